package logical

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/cxfgo/internal/block"
	"github.com/vk/cxfgo/internal/clock"
)

// boolState is the committed/staged pair shared by the single-bit stateful
// blocks in this package.
type boolState struct {
	pre       bool
	stagedPre bool
	staged    bool
}

func (s *boolState) stage(v bool) {
	s.stagedPre = v
	s.staged = true
}

func (s *boolState) Commit() {
	if !s.staged {
		return
	}
	s.pre = s.stagedPre
	s.staged = false
}

func (s *boolState) State() map[string]cty.Value {
	return map[string]cty.Value{"pre": block.BoolVal(s.pre)}
}

func (s *boolState) SetState(state map[string]cty.Value) error {
	v, ok := state["pre"]
	if !ok {
		return fmt.Errorf("state record is missing %q", "pre")
	}
	pre, err := block.Bool(v)
	if err != nil {
		return err
	}
	s.pre = pre
	s.staged = false
	return nil
}

// Pre is the boolean unit delay: it outputs the input value from the
// previous step, breaking algebraic loops in feedback networks.
type Pre struct{ boolState }

func NewPre(preUStart bool) *Pre {
	p := &Pre{}
	p.pre = preUStart
	return p
}

func (b *Pre) Spec() block.Spec {
	return block.Spec{Inputs: []string{"u"}, Outputs: []string{"y"}}
}

func (b *Pre) Evaluate(in map[string]cty.Value) (map[string]cty.Value, error) {
	u, err := block.BoolIn(in, "u")
	if err != nil {
		return nil, err
	}
	b.stage(u)
	return map[string]cty.Value{"y": block.BoolVal(b.pre)}, nil
}

// Edge outputs true for the single step in which the input rises from false
// to true.
type Edge struct{ boolState }

func NewEdge(preUStart bool) *Edge {
	e := &Edge{}
	e.pre = preUStart
	return e
}

func (b *Edge) Spec() block.Spec {
	return block.Spec{Inputs: []string{"u"}, Outputs: []string{"y"}}
}

func (b *Edge) Evaluate(in map[string]cty.Value) (map[string]cty.Value, error) {
	u, err := block.BoolIn(in, "u")
	if err != nil {
		return nil, err
	}
	b.stage(u)
	return map[string]cty.Value{"y": block.BoolVal(u && !b.pre)}, nil
}

// FallingEdge outputs true for the single step in which the input falls from
// true to false.
type FallingEdge struct{ boolState }

func NewFallingEdge(preUStart bool) *FallingEdge {
	e := &FallingEdge{}
	e.pre = preUStart
	return e
}

func (b *FallingEdge) Spec() block.Spec {
	return block.Spec{Inputs: []string{"u"}, Outputs: []string{"y"}}
}

func (b *FallingEdge) Evaluate(in map[string]cty.Value) (map[string]cty.Value, error) {
	u, err := block.BoolIn(in, "u")
	if err != nil {
		return nil, err
	}
	b.stage(u)
	return map[string]cty.Value{"y": block.BoolVal(!u && b.pre)}, nil
}

// Latch holds its output true once the latch input u is set, until the clear
// input clr resets it. clr dominates.
type Latch struct{ boolState }

func NewLatch() *Latch { return &Latch{} }

func (b *Latch) Spec() block.Spec {
	return block.Spec{Inputs: []string{"u", "clr"}, Outputs: []string{"y"}}
}

func (b *Latch) Evaluate(in map[string]cty.Value) (map[string]cty.Value, error) {
	u, err := block.BoolIn(in, "u")
	if err != nil {
		return nil, err
	}
	clr, err := block.BoolIn(in, "clr")
	if err != nil {
		return nil, err
	}
	y := b.pre
	switch {
	case clr:
		y = false
	case u:
		y = true
	}
	b.stage(y)
	return map[string]cty.Value{"y": block.BoolVal(y)}, nil
}

// Timer measures the time elapsed while its input is true. The output y is
// the elapsed time in seconds (zero while the input is false) and passed
// turns true once the elapsed time reaches the threshold t.
type Timer struct {
	t   float64
	clk *clock.Clock

	active bool
	since  float64

	stagedActive bool
	stagedSince  float64
	staged       bool
}

func NewTimer(clk *clock.Clock, t float64) *Timer {
	return &Timer{t: t, clk: clk}
}

func (b *Timer) Spec() block.Spec {
	return block.Spec{Inputs: []string{"u"}, Outputs: []string{"y", "passed"}}
}

func (b *Timer) Evaluate(in map[string]cty.Value) (map[string]cty.Value, error) {
	u, err := block.BoolIn(in, "u")
	if err != nil {
		return nil, err
	}
	now := b.clk.Now()

	elapsed := 0.0
	switch {
	case u && b.active:
		elapsed = now - b.since
		b.stagedActive = true
		b.stagedSince = b.since
	case u:
		b.stagedActive = true
		b.stagedSince = now
	default:
		b.stagedActive = false
		b.stagedSince = 0
	}
	b.staged = true

	return map[string]cty.Value{
		"y":      block.NumVal(elapsed),
		"passed": block.BoolVal(u && elapsed >= b.t),
	}, nil
}

func (b *Timer) Commit() {
	if !b.staged {
		return
	}
	b.active = b.stagedActive
	b.since = b.stagedSince
	b.staged = false
}

func (b *Timer) State() map[string]cty.Value {
	return map[string]cty.Value{
		"active": block.BoolVal(b.active),
		"since":  block.NumVal(b.since),
	}
}

func (b *Timer) SetState(state map[string]cty.Value) error {
	av, ok := state["active"]
	if !ok {
		return fmt.Errorf("state record is missing %q", "active")
	}
	active, err := block.Bool(av)
	if err != nil {
		return err
	}
	sv, ok := state["since"]
	if !ok {
		return fmt.Errorf("state record is missing %q", "since")
	}
	since, err := block.Num(sv)
	if err != nil {
		return err
	}
	b.active = active
	b.since = since
	b.staged = false
	return nil
}
