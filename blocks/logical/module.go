package logical

import (
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/cxfgo/internal/block"
	"github.com/vk/cxfgo/internal/catalogue"
)

const (
	importPath = "github.com/vk/cxfgo/blocks/logical"
	typePrefix = "Buildings.Controls.OBC.CDL.Logical."
)

// Module implements catalogue.Module for this package.
type Module struct{}

// Register adds every Logical block to the registry.
func (m *Module) Register(r *catalogue.Registry) {
	falseVal := cty.False
	zero := cty.NumberIntVal(0)

	stateless := func(name string, ctor string, inputs []string, newFn func() block.Block) {
		r.Register(&catalogue.Entry{
			Type:        typePrefix + name,
			ImportPath:  importPath,
			Constructor: ctor,
			Inputs:      inputs,
			Outputs:     []string{"y"},
			New:         func(catalogue.Context) (block.Block, error) { return newFn(), nil },
		})
	}

	stateless("And", "NewAnd", []string{"u1", "u2"}, func() block.Block { return NewAnd() })
	stateless("Or", "NewOr", []string{"u1", "u2"}, func() block.Block { return NewOr() })
	stateless("Nand", "NewNand", []string{"u1", "u2"}, func() block.Block { return NewNand() })
	stateless("Nor", "NewNor", []string{"u1", "u2"}, func() block.Block { return NewNor() })
	stateless("Xor", "NewXor", []string{"u1", "u2"}, func() block.Block { return NewXor() })
	stateless("Not", "NewNot", []string{"u"}, func() block.Block { return NewNot() })
	stateless("Switch", "NewSwitch", []string{"u1", "u2", "u3"}, func() block.Block { return NewSwitch() })

	preLike := func(name string, ctor string, newFn func(bool) block.Block) {
		r.Register(&catalogue.Entry{
			Type:        typePrefix + name,
			ImportPath:  importPath,
			Constructor: ctor,
			Params: []catalogue.ParamSpec{
				{Name: "pre_u_start", Type: cty.Bool, Default: &falseVal, Description: "Value of the input before the first step"},
			},
			Inputs:   []string{"u"},
			Outputs:  []string{"y"},
			Stateful: true,
			New: func(bc catalogue.Context) (block.Block, error) {
				start, err := bc.Bool("pre_u_start")
				if err != nil {
					return nil, err
				}
				return newFn(start), nil
			},
		})
	}

	preLike("Pre", "NewPre", func(s bool) block.Block { return NewPre(s) })
	preLike("Edge", "NewEdge", func(s bool) block.Block { return NewEdge(s) })
	preLike("FallingEdge", "NewFallingEdge", func(s bool) block.Block { return NewFallingEdge(s) })

	r.Register(&catalogue.Entry{
		Type:        typePrefix + "Latch",
		ImportPath:  importPath,
		Constructor: "NewLatch",
		Inputs:      []string{"u", "clr"},
		Outputs:     []string{"y"},
		Stateful:    true,
		New: func(catalogue.Context) (block.Block, error) {
			return NewLatch(), nil
		},
	})

	r.Register(&catalogue.Entry{
		Type:        typePrefix + "Timer",
		ImportPath:  importPath,
		Constructor: "NewTimer",
		Params: []catalogue.ParamSpec{
			{Name: "t", Type: cty.Number, Default: &zero, Description: "Threshold time for the passed output"},
		},
		Inputs:   []string{"u"},
		Outputs:  []string{"y", "passed"},
		Stateful: true,
		Clocked:  true,
		New: func(bc catalogue.Context) (block.Block, error) {
			t, err := bc.Float("t")
			if err != nil {
				return nil, err
			}
			return NewTimer(bc.Clock, t), nil
		},
	})

	r.Register(&catalogue.Entry{
		Type:        typePrefix + "Sources.Constant",
		ImportPath:  importPath,
		Constructor: "NewConstant",
		Params: []catalogue.ParamSpec{
			{Name: "k", Type: cty.Bool, Description: "Constant output value"},
		},
		Outputs: []string{"y"},
		New: func(bc catalogue.Context) (block.Block, error) {
			k, err := bc.Bool("k")
			if err != nil {
				return nil, err
			}
			return NewConstant(k), nil
		},
	})
}
