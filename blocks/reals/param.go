package reals

import (
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/cxfgo/internal/block"
)

// MultiplyByParameter outputs the input scaled by a constant gain k.
type MultiplyByParameter struct {
	block.Stateless
	k float64
}

func NewMultiplyByParameter(k float64) *MultiplyByParameter {
	return &MultiplyByParameter{k: k}
}

func (b *MultiplyByParameter) Spec() block.Spec {
	return block.Spec{Inputs: []string{"u"}, Outputs: []string{"y"}}
}

func (b *MultiplyByParameter) Evaluate(in map[string]cty.Value) (map[string]cty.Value, error) {
	u, err := block.NumIn(in, "u")
	if err != nil {
		return nil, err
	}
	return map[string]cty.Value{"y": block.NumVal(b.k * u)}, nil
}

// AddParameter outputs the input shifted by a constant offset p.
type AddParameter struct {
	block.Stateless
	p float64
}

func NewAddParameter(p float64) *AddParameter { return &AddParameter{p: p} }

func (b *AddParameter) Spec() block.Spec {
	return block.Spec{Inputs: []string{"u"}, Outputs: []string{"y"}}
}

func (b *AddParameter) Evaluate(in map[string]cty.Value) (map[string]cty.Value, error) {
	u, err := block.NumIn(in, "u")
	if err != nil {
		return nil, err
	}
	return map[string]cty.Value{"y": block.NumVal(u + b.p)}, nil
}

// Limiter clamps the input to the closed interval [uMin, uMax].
type Limiter struct {
	block.Stateless
	uMax, uMin float64
}

func NewLimiter(uMax, uMin float64) *Limiter { return &Limiter{uMax: uMax, uMin: uMin} }

func (b *Limiter) Spec() block.Spec {
	return block.Spec{Inputs: []string{"u"}, Outputs: []string{"y"}}
}

func (b *Limiter) Evaluate(in map[string]cty.Value) (map[string]cty.Value, error) {
	u, err := block.NumIn(in, "u")
	if err != nil {
		return nil, err
	}
	switch {
	case u > b.uMax:
		u = b.uMax
	case u < b.uMin:
		u = b.uMin
	}
	return map[string]cty.Value{"y": block.NumVal(u)}, nil
}

// Switch outputs u1 while the boolean input u2 is true, u3 otherwise.
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
	u, err := block.NumIn(in, port)
	if err != nil {
		return nil, err
	}
	return map[string]cty.Value{"y": block.NumVal(u)}, nil
}
