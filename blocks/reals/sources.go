package reals

import (
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/cxfgo/internal/block"
)

// Constant outputs a fixed real value and has no input ports.
type Constant struct {
	block.Stateless
	k float64
}

func NewConstant(k float64) *Constant { return &Constant{k: k} }

func (b *Constant) Spec() block.Spec {
	return block.Spec{Outputs: []string{"y"}}
}

func (b *Constant) Evaluate(map[string]cty.Value) (map[string]cty.Value, error) {
	return map[string]cty.Value{"y": block.NumVal(b.k)}, nil
}
