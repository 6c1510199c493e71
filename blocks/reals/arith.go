// Package reals implements the real-valued elementary blocks of the
// catalogue: arithmetic, limiting, switching, hysteresis and integration.
package reals

import (
	"fmt"
	"math"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/cxfgo/internal/block"
)

// Add outputs the sum of its two inputs.
type Add struct{ block.Stateless }

func NewAdd() *Add { return &Add{} }

func (b *Add) Spec() block.Spec {
	return block.Spec{Inputs: []string{"u1", "u2"}, Outputs: []string{"y"}}
}

func (b *Add) Evaluate(in map[string]cty.Value) (map[string]cty.Value, error) {
	u1, err := block.NumIn(in, "u1")
	if err != nil {
		return nil, err
	}
	u2, err := block.NumIn(in, "u2")
	if err != nil {
		return nil, err
	}
	return map[string]cty.Value{"y": block.NumVal(u1 + u2)}, nil
}

// Subtract outputs the difference u1 - u2.
type Subtract struct{ block.Stateless }

func NewSubtract() *Subtract { return &Subtract{} }

func (b *Subtract) Spec() block.Spec {
	return block.Spec{Inputs: []string{"u1", "u2"}, Outputs: []string{"y"}}
}

func (b *Subtract) Evaluate(in map[string]cty.Value) (map[string]cty.Value, error) {
	u1, err := block.NumIn(in, "u1")
	if err != nil {
		return nil, err
	}
	u2, err := block.NumIn(in, "u2")
	if err != nil {
		return nil, err
	}
	return map[string]cty.Value{"y": block.NumVal(u1 - u2)}, nil
}

// Multiply outputs the product of its two inputs.
type Multiply struct{ block.Stateless }

func NewMultiply() *Multiply { return &Multiply{} }

func (b *Multiply) Spec() block.Spec {
	return block.Spec{Inputs: []string{"u1", "u2"}, Outputs: []string{"y"}}
}

func (b *Multiply) Evaluate(in map[string]cty.Value) (map[string]cty.Value, error) {
	u1, err := block.NumIn(in, "u1")
	if err != nil {
		return nil, err
	}
	u2, err := block.NumIn(in, "u2")
	if err != nil {
		return nil, err
	}
	return map[string]cty.Value{"y": block.NumVal(u1 * u2)}, nil
}

// Divide outputs the quotient u1 / u2. Division by zero is a domain error
// surfaced as a step failure.
type Divide struct{ block.Stateless }

func NewDivide() *Divide { return &Divide{} }

func (b *Divide) Spec() block.Spec {
	return block.Spec{Inputs: []string{"u1", "u2"}, Outputs: []string{"y"}}
}

func (b *Divide) Evaluate(in map[string]cty.Value) (map[string]cty.Value, error) {
	u1, err := block.NumIn(in, "u1")
	if err != nil {
		return nil, err
	}
	u2, err := block.NumIn(in, "u2")
	if err != nil {
		return nil, err
	}
	if u2 == 0 {
		return nil, fmt.Errorf("division by zero")
	}
	return map[string]cty.Value{"y": block.NumVal(u1 / u2)}, nil
}

// Min outputs the smaller of its two inputs.
type Min struct{ block.Stateless }

func NewMin() *Min { return &Min{} }

func (b *Min) Spec() block.Spec {
	return block.Spec{Inputs: []string{"u1", "u2"}, Outputs: []string{"y"}}
}

func (b *Min) Evaluate(in map[string]cty.Value) (map[string]cty.Value, error) {
	u1, err := block.NumIn(in, "u1")
	if err != nil {
		return nil, err
	}
	u2, err := block.NumIn(in, "u2")
	if err != nil {
		return nil, err
	}
	return map[string]cty.Value{"y": block.NumVal(math.Min(u1, u2))}, nil
}

// Max outputs the larger of its two inputs.
type Max struct{ block.Stateless }

func NewMax() *Max { return &Max{} }

func (b *Max) Spec() block.Spec {
	return block.Spec{Inputs: []string{"u1", "u2"}, Outputs: []string{"y"}}
}

func (b *Max) Evaluate(in map[string]cty.Value) (map[string]cty.Value, error) {
	u1, err := block.NumIn(in, "u1")
	if err != nil {
		return nil, err
	}
	u2, err := block.NumIn(in, "u2")
	if err != nil {
		return nil, err
	}
	return map[string]cty.Value{"y": block.NumVal(math.Max(u1, u2))}, nil
}

// Abs outputs the absolute value of its input.
type Abs struct{ block.Stateless }

func NewAbs() *Abs { return &Abs{} }

func (b *Abs) Spec() block.Spec {
	return block.Spec{Inputs: []string{"u"}, Outputs: []string{"y"}}
}

func (b *Abs) Evaluate(in map[string]cty.Value) (map[string]cty.Value, error) {
	u, err := block.NumIn(in, "u")
	if err != nil {
		return nil, err
	}
	return map[string]cty.Value{"y": block.NumVal(math.Abs(u))}, nil
}
