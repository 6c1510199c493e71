// Package logical implements the boolean elementary blocks of the
// catalogue: gates, edge detectors, the latch and the timer.
package logical

import (
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/cxfgo/internal/block"
)

// gate is a stateless two-input boolean block parameterized by its operator.
type gate struct {
	block.Stateless
	op func(a, b bool) bool
}

func (g *gate) Spec() block.Spec {
	return block.Spec{Inputs: []string{"u1", "u2"}, Outputs: []string{"y"}}
}

func (g *gate) Evaluate(in map[string]cty.Value) (map[string]cty.Value, error) {
	u1, err := block.BoolIn(in, "u1")
	if err != nil {
		return nil, err
	}
	u2, err := block.BoolIn(in, "u2")
	if err != nil {
		return nil, err
	}
	return map[string]cty.Value{"y": block.BoolVal(g.op(u1, u2))}, nil
}

// And outputs true while both inputs are true.
type And struct{ gate }

func NewAnd() *And { return &And{gate{op: func(a, b bool) bool { return a && b }}} }

// Or outputs true while either input is true.
type Or struct{ gate }

func NewOr() *Or { return &Or{gate{op: func(a, b bool) bool { return a || b }}} }

// Nand outputs false only while both inputs are true.
type Nand struct{ gate }

func NewNand() *Nand { return &Nand{gate{op: func(a, b bool) bool { return !(a && b) }}} }

// Nor outputs true only while both inputs are false.
type Nor struct{ gate }

func NewNor() *Nor { return &Nor{gate{op: func(a, b bool) bool { return !(a || b) }}} }

// Xor outputs true while exactly one input is true.
type Xor struct{ gate }

func NewXor() *Xor { return &Xor{gate{op: func(a, b bool) bool { return a != b }}} }

// Not inverts its single input.
type Not struct{ block.Stateless }

func NewNot() *Not { return &Not{} }

func (b *Not) Spec() block.Spec {
	return block.Spec{Inputs: []string{"u"}, Outputs: []string{"y"}}
}

func (b *Not) Evaluate(in map[string]cty.Value) (map[string]cty.Value, error) {
	u, err := block.BoolIn(in, "u")
	if err != nil {
		return nil, err
	}
	return map[string]cty.Value{"y": block.BoolVal(!u)}, nil
}

// Switch outputs u1 while the selector input u2 is true, u3 otherwise.
type Switch struct{ block.Stateless }

func NewSwitch() *Switch { return &Switch{} }

func (b *Switch) Spec() block.Spec {
	return block.Spec{Inputs: []string{"u1", "u2", "u3"}, Outputs: []string{"y"}}
}

func (b *Switch) Evaluate(in map[string]cty.Value) (map[string]cty.Value, error) {
	sel, err := block.BoolIn(in, "u2")
	if err != nil {
		return nil, err
	}
	port := "u3"
	if sel {
		port = "u1"
	}
	u, err := block.BoolIn(in, port)
	if err != nil {
		return nil, err
	}
	return map[string]cty.Value{"y": block.BoolVal(u)}, nil
}

// Constant outputs a fixed boolean value and has no input ports.
type Constant struct {
	block.Stateless
	k bool
}

func NewConstant(k bool) *Constant { return &Constant{k: k} }

func (b *Constant) Spec() block.Spec {
	return block.Spec{Outputs: []string{"y"}}
}

func (b *Constant) Evaluate(map[string]cty.Value) (map[string]cty.Value, error) {
	return map[string]cty.Value{"y": block.BoolVal(b.k)}, nil
}
