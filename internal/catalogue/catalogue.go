// Package catalogue is the registry of elementary block types. Each entry
// carries the block's parameter schema, port declaration, and a constructor
// that builds a runnable instance from decoded parameters. Block packages
// self-register through the Module interface.
package catalogue

import (
	"fmt"
	"sort"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/vk/cxfgo/internal/block"
	"github.com/vk/cxfgo/internal/clock"
)

// ParamSpec declares a single parameter of an elementary block type.
type ParamSpec struct {
	Name        string
	Type        cty.Type
	Default     *cty.Value // nil means the parameter is required
	Description string
}

// Entry describes one elementary block type.
type Entry struct {
	// Type is the full dotted type path from the exchange format, e.g.
	// "Buildings.Controls.OBC.CDL.Reals.Add".
	Type string

	// ImportPath and Constructor locate the concrete Go constructor for the
	// artifact generator, e.g. "github.com/vk/cxfgo/blocks/reals" / "NewAdd".
	// Constructor arguments are the clock (when Clocked) followed by Params
	// in declaration order.
	ImportPath  string
	Constructor string

	Params  []ParamSpec
	Inputs  []string
	Outputs []string

	// Stateful marks blocks whose committed state participates in
	// checkpoints. Clocked marks blocks whose constructor takes the time
	// source; every clocked block is stateful, but not vice versa (a Pre
	// block holds state yet never reads the clock).
	Stateful bool
	Clocked  bool

	// New builds a runnable instance from validated, defaulted parameters.
	New func(bc Context) (block.Block, error)
}

// Param returns the named parameter spec, or nil.
func (e *Entry) Param(name string) *ParamSpec {
	for i := range e.Params {
		if e.Params[i].Name == name {
			return &e.Params[i]
		}
	}
	return nil
}

// HasInput reports whether the entry declares the named input port.
func (e *Entry) HasInput(name string) bool {
	for _, p := range e.Inputs {
		if p == name {
			return true
		}
	}
	return false
}

// HasOutput reports whether the entry declares the named output port.
func (e *Entry) HasOutput(name string) bool {
	for _, p := range e.Outputs {
		if p == name {
			return true
		}
	}
	return false
}

// ValidateParams checks a parameter assignment against the entry's schema:
// every name must be declared and every value convertible to the declared
// type.
func (e *Entry) ValidateParams(params map[string]cty.Value) error {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		spec := e.Param(name)
		if spec == nil {
			return fmt.Errorf("block type %s has no parameter %q", e.Type, name)
		}
		v := params[name]
		if _, err := convert.Convert(v, spec.Type); err != nil {
			return fmt.Errorf("parameter %q of %s: cannot convert %s to %s: %w",
				name, e.Type, v.Type().FriendlyName(), spec.Type.FriendlyName(), err)
		}
	}
	return nil
}

// Context carries everything a block constructor needs: the decoded
// parameter values (validated and defaulted by the registry) and the shared
// time source.
type Context struct {
	Parameters map[string]cty.Value
	Clock      *clock.Clock
}

// Float decodes the named parameter as a float64.
func (c Context) Float(name string) (float64, error) {
	v, ok := c.Parameters[name]
	if !ok {
		return 0, fmt.Errorf("parameter %q has no value", name)
	}
	conv, err := convert.Convert(v, cty.Number)
	if err != nil {
		return 0, fmt.Errorf("parameter %q: %w", name, err)
	}
	f, _ := conv.AsBigFloat().Float64()
	return f, nil
}

// Int decodes the named parameter as an int64.
func (c Context) Int(name string) (int64, error) {
	v, ok := c.Parameters[name]
	if !ok {
		return 0, fmt.Errorf("parameter %q has no value", name)
	}
	conv, err := convert.Convert(v, cty.Number)
	if err != nil {
		return 0, fmt.Errorf("parameter %q: %w", name, err)
	}
	i, _ := conv.AsBigFloat().Int64()
	return i, nil
}

// Bool decodes the named parameter as a bool.
func (c Context) Bool(name string) (bool, error) {
	v, ok := c.Parameters[name]
	if !ok {
		return false, fmt.Errorf("parameter %q has no value", name)
	}
	conv, err := convert.Convert(v, cty.Bool)
	if err != nil {
		return false, fmt.Errorf("parameter %q: %w", name, err)
	}
	return conv.True(), nil
}

// Module is the interface block packages implement to contribute their
// entries to a registry.
type Module interface {
	Register(r *Registry)
}

// Registry holds the elementary block entries for one application instance.
type Registry struct {
	entries map[string]*Entry
}

// New creates an empty registry and registers the given modules into it.
func New(mods ...Module) *Registry {
	r := &Registry{entries: make(map[string]*Entry)}
	for _, m := range mods {
		m.Register(r)
	}
	return r
}

// Register adds an entry. Registering the same type path twice is a
// programming error and panics.
func (r *Registry) Register(e *Entry) {
	if _, ok := r.entries[e.Type]; ok {
		panic(fmt.Sprintf("catalogue: duplicate registration of %s", e.Type))
	}
	r.entries[e.Type] = e
}

// Lookup returns the entry for a full type path.
func (r *Registry) Lookup(typePath string) (*Entry, bool) {
	e, ok := r.entries[typePath]
	return e, ok
}

// Types returns all registered type paths, sorted.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.entries))
	for t := range r.entries {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// NewBlock validates the parameter assignment, applies declared defaults,
// and invokes the entry's constructor.
func (r *Registry) NewBlock(typePath string, params map[string]cty.Value, clk *clock.Clock) (block.Block, error) {
	e, ok := r.entries[typePath]
	if !ok {
		return nil, fmt.Errorf("unknown elementary block type %q", typePath)
	}
	if err := e.ValidateParams(params); err != nil {
		return nil, err
	}

	merged := make(map[string]cty.Value, len(e.Params))
	for i := range e.Params {
		spec := &e.Params[i]
		if v, ok := params[spec.Name]; ok {
			conv, err := convert.Convert(v, spec.Type)
			if err != nil {
				return nil, fmt.Errorf("parameter %q of %s: %w", spec.Name, e.Type, err)
			}
			merged[spec.Name] = conv
			continue
		}
		if spec.Default == nil {
			return nil, fmt.Errorf("block type %s: missing required parameter %q", e.Type, spec.Name)
		}
		merged[spec.Name] = *spec.Default
	}

	if e.Clocked && clk == nil {
		return nil, fmt.Errorf("block type %s requires a time source", e.Type)
	}

	blk, err := e.New(Context{Parameters: merged, Clock: clk})
	if err != nil {
		return nil, fmt.Errorf("constructing %s: %w", e.Type, err)
	}
	return blk, nil
}
