package reals

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/cxfgo/internal/block"
	"github.com/vk/cxfgo/internal/catalogue"
)

const (
	importPath = "github.com/vk/cxfgo/blocks/reals"
	typePrefix = "Buildings.Controls.OBC.CDL.Reals."
)

// Module implements catalogue.Module for this package.
type Module struct{}

// Register adds every Reals block to the registry.
func (m *Module) Register(r *catalogue.Registry) {
	one := cty.NumberIntVal(1)
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

	stateless("Add", "NewAdd", []string{"u1", "u2"}, func() block.Block { return NewAdd() })
	stateless("Subtract", "NewSubtract", []string{"u1", "u2"}, func() block.Block { return NewSubtract() })
	stateless("Multiply", "NewMultiply", []string{"u1", "u2"}, func() block.Block { return NewMultiply() })
	stateless("Divide", "NewDivide", []string{"u1", "u2"}, func() block.Block { return NewDivide() })
	stateless("Min", "NewMin", []string{"u1", "u2"}, func() block.Block { return NewMin() })
	stateless("Max", "NewMax", []string{"u1", "u2"}, func() block.Block { return NewMax() })
	stateless("Abs", "NewAbs", []string{"u"}, func() block.Block { return NewAbs() })
	stateless("Switch", "NewSwitch", []string{"u1", "u2", "u3"}, func() block.Block { return NewSwitch() })

	r.Register(&catalogue.Entry{
		Type:        typePrefix + "MultiplyByParameter",
		ImportPath:  importPath,
		Constructor: "NewMultiplyByParameter",
		Params: []catalogue.ParamSpec{
			{Name: "k", Type: cty.Number, Description: "Gain"},
		},
		Inputs:  []string{"u"},
		Outputs: []string{"y"},
		New: func(bc catalogue.Context) (block.Block, error) {
			k, err := bc.Float("k")
			if err != nil {
				return nil, err
			}
			return NewMultiplyByParameter(k), nil
		},
	})

	r.Register(&catalogue.Entry{
		Type:        typePrefix + "AddParameter",
		ImportPath:  importPath,
		Constructor: "NewAddParameter",
		Params: []catalogue.ParamSpec{
			{Name: "p", Type: cty.Number, Description: "Offset"},
		},
		Inputs:  []string{"u"},
		Outputs: []string{"y"},
		New: func(bc catalogue.Context) (block.Block, error) {
			p, err := bc.Float("p")
			if err != nil {
				return nil, err
			}
			return NewAddParameter(p), nil
		},
	})

	r.Register(&catalogue.Entry{
		Type:        typePrefix + "Limiter",
		ImportPath:  importPath,
		Constructor: "NewLimiter",
		Params: []catalogue.ParamSpec{
			{Name: "uMax", Type: cty.Number, Description: "Upper limit"},
			{Name: "uMin", Type: cty.Number, Description: "Lower limit"},
		},
		Inputs:  []string{"u"},
		Outputs: []string{"y"},
		New: func(bc catalogue.Context) (block.Block, error) {
			uMax, err := bc.Float("uMax")
			if err != nil {
				return nil, err
			}
			uMin, err := bc.Float("uMin")
			if err != nil {
				return nil, err
			}
			if uMin >= uMax {
				return nil, fmt.Errorf("uMin (%g) must be below uMax (%g)", uMin, uMax)
			}
			return NewLimiter(uMax, uMin), nil
		},
	})

	r.Register(&catalogue.Entry{
		Type:        typePrefix + "Hysteresis",
		ImportPath:  importPath,
		Constructor: "NewHysteresis",
		Params: []catalogue.ParamSpec{
			{Name: "uLow", Type: cty.Number, Description: "Falling threshold"},
			{Name: "uHigh", Type: cty.Number, Description: "Rising threshold"},
		},
		Inputs:   []string{"u"},
		Outputs:  []string{"y"},
		Stateful: true,
		New: func(bc catalogue.Context) (block.Block, error) {
			uLow, err := bc.Float("uLow")
			if err != nil {
				return nil, err
			}
			uHigh, err := bc.Float("uHigh")
			if err != nil {
				return nil, err
			}
			if uLow >= uHigh {
				return nil, fmt.Errorf("uLow (%g) must be below uHigh (%g)", uLow, uHigh)
			}
			return NewHysteresis(uLow, uHigh), nil
		},
	})

	r.Register(&catalogue.Entry{
		Type:        typePrefix + "Integrator",
		ImportPath:  importPath,
		Constructor: "NewIntegrator",
		Params: []catalogue.ParamSpec{
			{Name: "k", Type: cty.Number, Default: &one, Description: "Integrator gain"},
			{Name: "y_start", Type: cty.Number, Default: &zero, Description: "Initial value of output"},
		},
		Inputs:   []string{"u"},
		Outputs:  []string{"y"},
		Stateful: true,
		Clocked:  true,
		New: func(bc catalogue.Context) (block.Block, error) {
			k, err := bc.Float("k")
			if err != nil {
				return nil, err
			}
			yStart, err := bc.Float("y_start")
			if err != nil {
				return nil, err
			}
			return NewIntegrator(bc.Clock, k, yStart), nil
		},
	})

	r.Register(&catalogue.Entry{
		Type:        typePrefix + "Sources.Constant",
		ImportPath:  importPath,
		Constructor: "NewConstant",
		Params: []catalogue.ParamSpec{
			{Name: "k", Type: cty.Number, Description: "Constant output value"},
		},
		Outputs: []string{"y"},
		New: func(bc catalogue.Context) (block.Block, error) {
			k, err := bc.Float("k")
			if err != nil {
				return nil, err
			}
			return NewConstant(k), nil
		},
	})
}
