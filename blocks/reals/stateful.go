package reals

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/cxfgo/internal/block"
	"github.com/vk/cxfgo/internal/clock"
)

// Integrator accumulates y = y_start + integral(k * u) over the fixed-step
// discretization supplied by the time source. Its output is the committed
// value from the previous step; the freshly integrated value is staged and
// becomes visible only after commit.
type Integrator struct {
	k   float64
	clk *clock.Clock

	y        float64
	lastTime float64

	stagedY    float64
	stagedTime float64
	staged     bool
}

func NewIntegrator(clk *clock.Clock, k, yStart float64) *Integrator {
	return &Integrator{k: k, clk: clk, y: yStart, lastTime: clk.Now()}
}

func (b *Integrator) Spec() block.Spec {
	return block.Spec{Inputs: []string{"u"}, Outputs: []string{"y"}}
}

func (b *Integrator) Evaluate(in map[string]cty.Value) (map[string]cty.Value, error) {
	u, err := block.NumIn(in, "u")
	if err != nil {
		return nil, err
	}
	now := b.clk.Now()
	dt := now - b.lastTime

	b.stagedY = b.y
	if dt > 0 {
		b.stagedY += b.k * u * dt
	}
	b.stagedTime = now
	b.staged = true

	return map[string]cty.Value{"y": block.NumVal(b.y)}, nil
}

func (b *Integrator) Commit() {
	if !b.staged {
		return
	}
	b.y = b.stagedY
	b.lastTime = b.stagedTime
	b.staged = false
}

func (b *Integrator) State() map[string]cty.Value {
	return map[string]cty.Value{
		"y": block.NumVal(b.y),
		"t": block.NumVal(b.lastTime),
	}
}

func (b *Integrator) SetState(state map[string]cty.Value) error {
	y, err := stateNum(state, "y")
	if err != nil {
		return err
	}
	t, err := stateNum(state, "t")
	if err != nil {
		return err
	}
	b.y = y
	b.lastTime = t
	b.staged = false
	return nil
}

// Hysteresis converts a real input into a boolean with deadband: the output
// turns true above uHigh, false below uLow, and otherwise holds its
// committed value.
type Hysteresis struct {
	uLow, uHigh float64

	y       bool
	stagedY bool
	staged  bool
}

func NewHysteresis(uLow, uHigh float64) *Hysteresis {
	return &Hysteresis{uLow: uLow, uHigh: uHigh}
}

func (b *Hysteresis) Spec() block.Spec {
	return block.Spec{Inputs: []string{"u"}, Outputs: []string{"y"}}
}

func (b *Hysteresis) Evaluate(in map[string]cty.Value) (map[string]cty.Value, error) {
	u, err := block.NumIn(in, "u")
	if err != nil {
		return nil, err
	}
	y := b.y
	switch {
	case u > b.uHigh:
		y = true
	case u < b.uLow:
		y = false
	}
	b.stagedY = y
	b.staged = true
	return map[string]cty.Value{"y": block.BoolVal(y)}, nil
}

func (b *Hysteresis) Commit() {
	if !b.staged {
		return
	}
	b.y = b.stagedY
	b.staged = false
}

func (b *Hysteresis) State() map[string]cty.Value {
	return map[string]cty.Value{"y": block.BoolVal(b.y)}
}

func (b *Hysteresis) SetState(state map[string]cty.Value) error {
	y, err := stateBool(state, "y")
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

func stateBool(state map[string]cty.Value, key string) (bool, error) {
	v, ok := state[key]
	if !ok {
		return false, fmt.Errorf("state record is missing %q", key)
	}
	return block.Bool(v)
}
