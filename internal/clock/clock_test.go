package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogical(t *testing.T) {
	t.Run("starts at origin", func(t *testing.T) {
		c, err := NewLogical(10, 0.5)
		require.NoError(t, err)
		assert.Equal(t, Logical, c.Mode())
		assert.Equal(t, 10.0, c.Now())
		assert.Equal(t, 0.5, c.Step())
	})

	t.Run("rejects non-positive step", func(t *testing.T) {
		_, err := NewLogical(0, 0)
		assert.ErrorContains(t, err, "step must be positive")
		_, err = NewLogical(0, -1)
		assert.ErrorContains(t, err, "step must be positive")
	})
}

func TestNewByMode(t *testing.T) {
	c, err := New(Logical, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, Logical, c.Mode())

	c, err = New(Paced, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, Paced, c.Mode())

	_, err = New(Mode("wall"), 0, 1)
	assert.ErrorContains(t, err, "unknown clock mode")
}

func TestAdvance(t *testing.T) {
	t.Run("moves by the fixed step", func(t *testing.T) {
		c, err := NewLogical(0, 2)
		require.NoError(t, err)

		assert.Equal(t, 2.0, c.Advance())
		assert.Equal(t, 4.0, c.Advance())
		assert.Equal(t, 4.0, c.Now())
	})

	t.Run("AdvanceBy rejects non-positive increments", func(t *testing.T) {
		c, err := NewLogical(0, 1)
		require.NoError(t, err)

		_, err = c.AdvanceBy(0)
		assert.ErrorContains(t, err, "must be positive")
		_, err = c.AdvanceBy(-0.1)
		assert.ErrorContains(t, err, "must be positive")
		assert.Equal(t, 0.0, c.Now())
	})

	t.Run("time never moves backward", func(t *testing.T) {
		c, err := NewLogical(5, 1)
		require.NoError(t, err)
		last := c.Now()
		for i := 0; i < 10; i++ {
			now, err := c.AdvanceBy(0.25)
			require.NoError(t, err)
			assert.Greater(t, now, last)
			last = now
		}
	})
}

func TestPacedSleepsToAnchoredTarget(t *testing.T) {
	c, err := NewPaced(0, 1)
	require.NoError(t, err)

	var slept []time.Duration
	c.sleep = func(d time.Duration) { slept = append(slept, d) }
	// Pin the anchor well into the past so sleep targets are already due.
	c.anchor = time.Now().Add(-10 * time.Second)

	c.Advance()
	c.Advance()
	assert.Empty(t, slept, "instants behind the wall clock must not sleep")

	// Re-anchor into the future: the next instant is ahead of the wall
	// clock, so Advance must sleep roughly the remaining distance.
	c.anchor = time.Now().Add(5 * time.Second)
	c.Advance()
	require.Len(t, slept, 1)
	assert.InDelta(t, (8 * time.Second).Seconds(), slept[0].Seconds(), 0.5)
}

func TestStateRestore(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		c, err := NewLogical(0, 1)
		require.NoError(t, err)
		c.Advance()
		c.Advance()

		s := c.State()
		assert.Equal(t, State{Instant: 2, Mode: Logical, Step: 1}, s)

		fresh, err := NewLogical(0, 1)
		require.NoError(t, err)
		require.NoError(t, fresh.Restore(s))
		assert.Equal(t, 2.0, fresh.Now())
		assert.Equal(t, 1.0, fresh.Step())
	})

	t.Run("restore may move time backward", func(t *testing.T) {
		c, err := NewLogical(100, 1)
		require.NoError(t, err)
		require.NoError(t, c.Restore(State{Instant: 3, Mode: Logical, Step: 1}))
		assert.Equal(t, 3.0, c.Now())
	})

	t.Run("restore into paced re-anchors", func(t *testing.T) {
		c, err := NewLogical(0, 1)
		require.NoError(t, err)
		require.NoError(t, c.Restore(State{Instant: 42, Mode: Paced, Step: 2}))
		assert.Equal(t, Paced, c.Mode())
		assert.Equal(t, 42.0, c.Now())
		assert.NotNil(t, c.sleep)
		assert.WithinDuration(t, time.Now(), c.anchor, time.Second)
	})

	t.Run("rejects bad snapshots", func(t *testing.T) {
		c, err := NewLogical(0, 1)
		require.NoError(t, err)
		assert.ErrorContains(t, c.Restore(State{Instant: 0, Mode: "wall", Step: 1}), "unknown clock mode")
		assert.ErrorContains(t, c.Restore(State{Instant: 0, Mode: Logical, Step: 0}), "step must be positive")
	})
}
