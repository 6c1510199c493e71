package discrete

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/cxfgo/internal/block"
	"github.com/vk/cxfgo/internal/catalogue"
)

const (
	importPath = "github.com/vk/cxfgo/blocks/discrete"
	typePrefix = "Buildings.Controls.OBC.CDL.Discrete."
)

// Module implements catalogue.Module for this package.
type Module struct{}

// Register adds every Discrete block to the registry.
func (m *Module) Register(r *catalogue.Registry) {
	zero := cty.NumberIntVal(0)

	r.Register(&catalogue.Entry{
		Type:        typePrefix + "UnitDelay",
		ImportPath:  importPath,
		Constructor: "NewUnitDelay",
		Params: []catalogue.ParamSpec{
			{Name: "y_start", Type: cty.Number, Default: &zero, Description: "Output before the first input is received"},
		},
		Inputs:   []string{"u"},
		Outputs:  []string{"y"},
		Stateful: true,
		New: func(bc catalogue.Context) (block.Block, error) {
			yStart, err := bc.Float("y_start")
			if err != nil {
				return nil, err
			}
			return NewUnitDelay(yStart), nil
		},
	})

	sampler := func(name string, ctor string, newFn func(bc catalogue.Context, period float64) block.Block) {
		r.Register(&catalogue.Entry{
			Type:        typePrefix + name,
			ImportPath:  importPath,
			Constructor: ctor,
			Params: []catalogue.ParamSpec{
				{Name: "samplePeriod", Type: cty.Number, Description: "Sample period in seconds"},
			},
			Inputs:   []string{"u"},
			Outputs:  []string{"y"},
			Stateful: true,
			Clocked:  true,
			New: func(bc catalogue.Context) (block.Block, error) {
				period, err := bc.Float("samplePeriod")
				if err != nil {
					return nil, err
				}
				if period <= 0 {
					return nil, fmt.Errorf("samplePeriod must be positive, got %g", period)
				}
				return newFn(bc, period), nil
			},
		})
	}

	sampler("Sampler", "NewSampler", func(bc catalogue.Context, period float64) block.Block {
		return NewSampler(bc.Clock, period)
	})
	sampler("ZeroOrderHold", "NewZeroOrderHold", func(bc catalogue.Context, period float64) block.Block {
		return NewZeroOrderHold(bc.Clock, period)
	})

	r.Register(&catalogue.Entry{
		Type:        typePrefix + "TriggeredSampler",
		ImportPath:  importPath,
		Constructor: "NewTriggeredSampler",
		Params: []catalogue.ParamSpec{
			{Name: "y_start", Type: cty.Number, Default: &zero, Description: "Output before the first trigger"},
		},
		Inputs:   []string{"u", "trigger"},
		Outputs:  []string{"y"},
		Stateful: true,
		New: func(bc catalogue.Context) (block.Block, error) {
			yStart, err := bc.Float("y_start")
			if err != nil {
				return nil, err
			}
			return NewTriggeredSampler(yStart), nil
		},
	})
}
