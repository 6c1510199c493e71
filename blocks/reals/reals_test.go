package reals

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/cxfgo/internal/block"
	"github.com/vk/cxfgo/internal/clock"
)

func num(f float64) cty.Value { return cty.NumberFloatVal(f) }

func evalNum(t *testing.T, b block.Block, in map[string]cty.Value) float64 {
	t.Helper()
	out, err := b.Evaluate(in)
	require.NoError(t, err)
	f, err := block.Num(out["y"])
	require.NoError(t, err)
	return f
}

func evalBool(t *testing.T, b block.Block, in map[string]cty.Value) bool {
	t.Helper()
	out, err := b.Evaluate(in)
	require.NoError(t, err)
	v, err := block.Bool(out["y"])
	require.NoError(t, err)
	return v
}

func TestArithmetic(t *testing.T) {
	two := map[string]cty.Value{"u1": num(6), "u2": num(4)}

	assert.Equal(t, 10.0, evalNum(t, NewAdd(), two))
	assert.Equal(t, 2.0, evalNum(t, NewSubtract(), two))
	assert.Equal(t, 24.0, evalNum(t, NewMultiply(), two))
	assert.Equal(t, 1.5, evalNum(t, NewDivide(), two))
	assert.Equal(t, 4.0, evalNum(t, NewMin(), two))
	assert.Equal(t, 6.0, evalNum(t, NewMax(), two))
	assert.Equal(t, 3.0, evalNum(t, NewAbs(), map[string]cty.Value{"u": num(-3)}))
}

func TestDivideByZero(t *testing.T) {
	_, err := NewDivide().Evaluate(map[string]cty.Value{"u1": num(1), "u2": num(0)})
	assert.ErrorContains(t, err, "division by zero")
}

func TestMissingInputIsAnError(t *testing.T) {
	_, err := NewAdd().Evaluate(map[string]cty.Value{"u1": num(1)})
	assert.ErrorContains(t, err, `input port "u2"`)
}

func TestMultiplyByParameter(t *testing.T) {
	assert.Equal(t, 15.0, evalNum(t, NewMultiplyByParameter(3), map[string]cty.Value{"u": num(5)}))
}

func TestAddParameter(t *testing.T) {
	assert.Equal(t, 4.5, evalNum(t, NewAddParameter(-0.5), map[string]cty.Value{"u": num(5)}))
}

func TestLimiter(t *testing.T) {
	lim := NewLimiter(1, -1)
	assert.Equal(t, 1.0, evalNum(t, lim, map[string]cty.Value{"u": num(7)}))
	assert.Equal(t, -1.0, evalNum(t, lim, map[string]cty.Value{"u": num(-7)}))
	assert.Equal(t, 0.25, evalNum(t, lim, map[string]cty.Value{"u": num(0.25)}))
}

func TestSwitch(t *testing.T) {
	sw := NewSwitch()
	in := map[string]cty.Value{"u1": num(1), "u2": cty.True, "u3": num(2)}
	assert.Equal(t, 1.0, evalNum(t, sw, in))
	in["u2"] = cty.False
	assert.Equal(t, 2.0, evalNum(t, sw, in))
}

func TestConstant(t *testing.T) {
	assert.Equal(t, 2.5, evalNum(t, NewConstant(2.5), nil))
}

func TestIntegrator(t *testing.T) {
	t.Run("output is committed pre-state", func(t *testing.T) {
		clk, err := clock.NewLogical(0, 1)
		require.NoError(t, err)
		intg := NewIntegrator(clk, 2, 10)

		clk.Advance()
		// First evaluate outputs the initial value; the integrated value is
		// only staged.
		assert.Equal(t, 10.0, evalNum(t, intg, map[string]cty.Value{"u": num(3)}))
		assert.Equal(t, 10.0, evalNum(t, intg, map[string]cty.Value{"u": num(3)}))

		intg.Commit()
		clk.Advance()
		assert.Equal(t, 16.0, evalNum(t, intg, map[string]cty.Value{"u": num(3)}))
	})

	t.Run("commit without evaluate is a no-op", func(t *testing.T) {
		clk, err := clock.NewLogical(0, 1)
		require.NoError(t, err)
		intg := NewIntegrator(clk, 1, 5)

		intg.Commit()
		intg.Commit()
		clk.Advance()
		assert.Equal(t, 5.0, evalNum(t, intg, map[string]cty.Value{"u": num(1)}))
	})

	t.Run("state round trip", func(t *testing.T) {
		clk, err := clock.NewLogical(0, 1)
		require.NoError(t, err)
		intg := NewIntegrator(clk, 1, 0)

		clk.Advance()
		evalNum(t, intg, map[string]cty.Value{"u": num(4)})
		intg.Commit()

		st := intg.State()
		assert.True(t, st["y"].RawEquals(num(4)))
		assert.True(t, st["t"].RawEquals(num(1)))

		fresh := NewIntegrator(clk, 1, 0)
		require.NoError(t, fresh.SetState(st))
		assert.Equal(t, intg.State(), fresh.State())
	})

	t.Run("SetState rejects incomplete records", func(t *testing.T) {
		clk, err := clock.NewLogical(0, 1)
		require.NoError(t, err)
		intg := NewIntegrator(clk, 1, 0)
		assert.ErrorContains(t, intg.SetState(map[string]cty.Value{"y": num(1)}), `missing "t"`)
	})
}

func TestHysteresis(t *testing.T) {
	h := NewHysteresis(-1, 1)

	step := func(u float64) bool {
		got := evalBool(t, h, map[string]cty.Value{"u": num(u)})
		h.Commit()
		return got
	}

	assert.False(t, step(0), "starts false inside the deadband")
	assert.True(t, step(2), "turns true above uHigh")
	assert.True(t, step(0), "holds inside the deadband")
	assert.False(t, step(-2), "turns false below uLow")
	assert.False(t, step(0.5), "holds inside the deadband")
}
