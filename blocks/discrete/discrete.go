// Package discrete implements the sampling elementary blocks of the
// catalogue. All of them are stateful: their committed value is what the
// rest of the network observed last step, and the freshly sampled value is
// staged until commit.
package discrete

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/cxfgo/internal/block"
	"github.com/vk/cxfgo/internal/clock"
)

// numState is the committed/staged pair shared by the real-valued blocks in
// this package.
type numState struct {
	y       float64
	stagedY float64
	staged  bool
}

func (s *numState) stage(v float64) {
	s.stagedY = v
	s.staged = true
}

func (s *numState) Commit() {
	if !s.staged {
		return
	}
	s.y = s.stagedY
	s.staged = false
}

// UnitDelay implements the discrete-time z^-1 operator: it outputs the input
// value from the previous step, starting at y_start.
type UnitDelay struct{ numState }

func NewUnitDelay(yStart float64) *UnitDelay {
	d := &UnitDelay{}
	d.y = yStart
	return d
}

func (b *UnitDelay) Spec() block.Spec {
	return block.Spec{Inputs: []string{"u"}, Outputs: []string{"y"}}
}

func (b *UnitDelay) Evaluate(in map[string]cty.Value) (map[string]cty.Value, error) {
	u, err := block.NumIn(in, "u")
	if err != nil {
		return nil, err
	}
	b.stage(u)
	return map[string]cty.Value{"y": block.NumVal(b.y)}, nil
}

func (b *UnitDelay) State() map[string]cty.Value {
	return map[string]cty.Value{"y": block.NumVal(b.y)}
}

func (b *UnitDelay) SetState(state map[string]cty.Value) error {
	y, err := stateNum(state, "y")
	if err != nil {
		return err
	}
	b.y = y
	b.staged = false
	return nil
}

// Sampler samples its input every samplePeriod seconds and holds the sampled
// value in between. The first sample is taken at the first step at or after
// construction time plus one period.
type Sampler struct {
	period float64
	clk    *clock.Clock

	y    float64
	next float64

	stagedY    float64
	stagedNext float64
	staged     bool
}

func NewSampler(clk *clock.Clock, samplePeriod float64) *Sampler {
	return &Sampler{period: samplePeriod, clk: clk, next: clk.Now() + samplePeriod}
}

func (b *Sampler) Spec() block.Spec {
	return block.Spec{Inputs: []string{"u"}, Outputs: []string{"y"}}
}

func (b *Sampler) Evaluate(in map[string]cty.Value) (map[string]cty.Value, error) {
	u, err := block.NumIn(in, "u")
	if err != nil {
		return nil, err
	}
	now := b.clk.Now()

	y := b.y
	next := b.next
	if now >= next {
		y = u
		for next <= now {
			next += b.period
		}
	}
	b.stagedY = y
	b.stagedNext = next
	b.staged = true

	return map[string]cty.Value{"y": block.NumVal(y)}, nil
}

func (b *Sampler) Commit() {
	if !b.staged {
		return
	}
	b.y = b.stagedY
	b.next = b.stagedNext
	b.staged = false
}

func (b *Sampler) State() map[string]cty.Value {
	return map[string]cty.Value{
		"y":    block.NumVal(b.y),
		"next": block.NumVal(b.next),
	}
}

func (b *Sampler) SetState(state map[string]cty.Value) error {
	y, err := stateNum(state, "y")
	if err != nil {
		return err
	}
	next, err := stateNum(state, "next")
	if err != nil {
		return err
	}
	b.y = y
	b.next = next
	b.staged = false
	return nil
}

// ZeroOrderHold samples its input every samplePeriod seconds and outputs the
// held value, starting from the first step.
type ZeroOrderHold struct {
	Sampler
}

func NewZeroOrderHold(clk *clock.Clock, samplePeriod float64) *ZeroOrderHold {
	z := &ZeroOrderHold{}
	z.period = samplePeriod
	z.clk = clk
	// Holds sample immediately: the first evaluate at or after construction
	// time captures the input.
	z.next = clk.Now()
	return z
}

// TriggeredSampler samples its input on each step in which the trigger input
// is true, and holds the last sampled value otherwise.
type TriggeredSampler struct{ numState }

func NewTriggeredSampler(yStart float64) *TriggeredSampler {
	t := &TriggeredSampler{}
	t.y = yStart
	return t
}

func (b *TriggeredSampler) Spec() block.Spec {
	return block.Spec{Inputs: []string{"u", "trigger"}, Outputs: []string{"y"}}
}

func (b *TriggeredSampler) Evaluate(in map[string]cty.Value) (map[string]cty.Value, error) {
	u, err := block.NumIn(in, "u")
	if err != nil {
		return nil, err
	}
	trigger, err := block.BoolIn(in, "trigger")
	if err != nil {
		return nil, err
	}
	y := b.y
	if trigger {
		y = u
	}
	b.stage(y)
	return map[string]cty.Value{"y": block.NumVal(y)}, nil
}

func (b *TriggeredSampler) State() map[string]cty.Value {
	return map[string]cty.Value{"y": block.NumVal(b.y)}
}

func (b *TriggeredSampler) SetState(state map[string]cty.Value) error {
	y, err := stateNum(state, "y")
	if err != nil {
		return err
	}
	b.y = y
	b.staged = false
	return nil
}

func stateNum(state map[string]cty.Value, key string) (float64, error) {
	v, ok := state[key]
	if !ok {
		return 0, fmt.Errorf("state record is missing %q", key)
	}
	return block.Num(v)
}
