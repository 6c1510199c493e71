// Package conversions implements the type-conversion elementary blocks of
// the catalogue.
package conversions

import (
	"math"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/cxfgo/internal/block"
)

// BooleanToReal maps a boolean input onto two configurable real values.
type BooleanToReal struct {
	block.Stateless
	realTrue, realFalse float64
}

func NewBooleanToReal(realTrue, realFalse float64) *BooleanToReal {
	return &BooleanToReal{realTrue: realTrue, realFalse: realFalse}
}

func (b *BooleanToReal) Spec() block.Spec {
	return block.Spec{Inputs: []string{"u"}, Outputs: []string{"y"}}
}

func (b *BooleanToReal) Evaluate(in map[string]cty.Value) (map[string]cty.Value, error) {
	u, err := block.BoolIn(in, "u")
	if err != nil {
		return nil, err
	}
	y := b.realFalse
	if u {
		y = b.realTrue
	}
	return map[string]cty.Value{"y": block.NumVal(y)}, nil
}

// BooleanToInteger maps a boolean input onto two configurable integer values.
type BooleanToInteger struct {
	block.Stateless
	integerTrue, integerFalse int64
}

func NewBooleanToInteger(integerTrue, integerFalse int64) *BooleanToInteger {
	return &BooleanToInteger{integerTrue: integerTrue, integerFalse: integerFalse}
}

func (b *BooleanToInteger) Spec() block.Spec {
	return block.Spec{Inputs: []string{"u"}, Outputs: []string{"y"}}
}

func (b *BooleanToInteger) Evaluate(in map[string]cty.Value) (map[string]cty.Value, error) {
	u, err := block.BoolIn(in, "u")
	if err != nil {
		return nil, err
	}
	y := b.integerFalse
	if u {
		y = b.integerTrue
	}
	return map[string]cty.Value{"y": block.IntVal(y)}, nil
}

// IntegerToReal passes its integer input through as a real.
type IntegerToReal struct{ block.Stateless }

func NewIntegerToReal() *IntegerToReal { return &IntegerToReal{} }

func (b *IntegerToReal) Spec() block.Spec {
	return block.Spec{Inputs: []string{"u"}, Outputs: []string{"y"}}
}

func (b *IntegerToReal) Evaluate(in map[string]cty.Value) (map[string]cty.Value, error) {
	u, err := block.IntIn(in, "u")
	if err != nil {
		return nil, err
	}
	return map[string]cty.Value{"y": block.NumVal(float64(u))}, nil
}

// RealToInteger rounds its real input to the nearest integer.
type RealToInteger struct{ block.Stateless }

func NewRealToInteger() *RealToInteger { return &RealToInteger{} }

func (b *RealToInteger) Spec() block.Spec {
	return block.Spec{Inputs: []string{"u"}, Outputs: []string{"y"}}
}

func (b *RealToInteger) Evaluate(in map[string]cty.Value) (map[string]cty.Value, error) {
	u, err := block.NumIn(in, "u")
	if err != nil {
		return nil, err
	}
	return map[string]cty.Value{"y": block.IntVal(int64(math.Round(u)))}, nil
}
