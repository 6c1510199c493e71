package conversions

import (
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/cxfgo/internal/block"
	"github.com/vk/cxfgo/internal/catalogue"
)

const (
	importPath = "github.com/vk/cxfgo/blocks/conversions"
	typePrefix = "Buildings.Controls.OBC.CDL.Conversions."
)

// Module implements catalogue.Module for this package.
type Module struct{}

// Register adds every Conversions block to the registry.
func (m *Module) Register(r *catalogue.Registry) {
	one := cty.NumberIntVal(1)
	zero := cty.NumberIntVal(0)

	r.Register(&catalogue.Entry{
		Type:        typePrefix + "BooleanToReal",
		ImportPath:  importPath,
		Constructor: "NewBooleanToReal",
		Params: []catalogue.ParamSpec{
			{Name: "realTrue", Type: cty.Number, Default: &one, Description: "Output for a true input"},
			{Name: "realFalse", Type: cty.Number, Default: &zero, Description: "Output for a false input"},
		},
		Inputs:  []string{"u"},
		Outputs: []string{"y"},
		New: func(bc catalogue.Context) (block.Block, error) {
			realTrue, err := bc.Float("realTrue")
			if err != nil {
				return nil, err
			}
			realFalse, err := bc.Float("realFalse")
			if err != nil {
				return nil, err
			}
			return NewBooleanToReal(realTrue, realFalse), nil
		},
	})

	r.Register(&catalogue.Entry{
		Type:        typePrefix + "BooleanToInteger",
		ImportPath:  importPath,
		Constructor: "NewBooleanToInteger",
		Params: []catalogue.ParamSpec{
			{Name: "integerTrue", Type: cty.Number, Default: &one, Description: "Output for a true input"},
			{Name: "integerFalse", Type: cty.Number, Default: &zero, Description: "Output for a false input"},
		},
		Inputs:  []string{"u"},
		Outputs: []string{"y"},
		New: func(bc catalogue.Context) (block.Block, error) {
			integerTrue, err := bc.Int("integerTrue")
			if err != nil {
				return nil, err
			}
			integerFalse, err := bc.Int("integerFalse")
			if err != nil {
				return nil, err
			}
			return NewBooleanToInteger(integerTrue, integerFalse), nil
		},
	})

	r.Register(&catalogue.Entry{
		Type:        typePrefix + "IntegerToReal",
		ImportPath:  importPath,
		Constructor: "NewIntegerToReal",
		Inputs:      []string{"u"},
		Outputs:     []string{"y"},
		New: func(catalogue.Context) (block.Block, error) {
			return NewIntegerToReal(), nil
		},
	})

	r.Register(&catalogue.Entry{
		Type:        typePrefix + "RealToInteger",
		ImportPath:  importPath,
		Constructor: "NewRealToInteger",
		Inputs:      []string{"u"},
		Outputs:     []string{"y"},
		New: func(catalogue.Context) (block.Block, error) {
			return NewRealToInteger(), nil
		},
	})
}
