// Package block defines the uniform contract implemented by every unit of a
// control network, elementary or composite: declared ports, an evaluate step
// and a commit step.
//
// Evaluate reads its inputs and the block's committed state only, and stages
// any next-state value without making it visible. Commit promotes the staged
// value to committed state. The two calls never overlap within a step: the
// engine evaluates every block before committing any of them, so each block
// observes a consistent pre-state snapshot regardless of evaluation order.
package block

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Spec declares a block's named input and output ports.
type Spec struct {
	Inputs  []string
	Outputs []string
}

// Block is the uniform interface over elementary and composite units.
type Block interface {
	// Spec returns the block's port declaration.
	Spec() Spec

	// Evaluate computes the block's outputs from the given inputs and the
	// committed (pre-) state. Stateful blocks stage their next state here;
	// they must not mutate committed state.
	Evaluate(inputs map[string]cty.Value) (map[string]cty.Value, error)

	// Commit replaces committed state with the value staged by the most
	// recent Evaluate. Calling Commit again without an intervening Evaluate
	// is a no-op, as is Commit on a stateless block.
	Commit()
}

// Stateful is implemented by blocks that carry internal state across steps.
// State exposes the committed state only; staged values are never visible.
type Stateful interface {
	Block

	State() map[string]cty.Value
	SetState(state map[string]cty.Value) error
}

// Stateless provides a no-op Commit for blocks without internal state.
type Stateless struct{}

// Commit implements Block for stateless units.
func (Stateless) Commit() {}

// Num unwraps a numeric value, converting where the cty type system allows it.
func Num(v cty.Value) (float64, error) {
	if v == cty.NilVal || v.IsNull() {
		return 0, fmt.Errorf("no value")
	}
	conv, err := convert.Convert(v, cty.Number)
	if err != nil {
		return 0, fmt.Errorf("cannot read %s as a number: %w", v.Type().FriendlyName(), err)
	}
	f, _ := conv.AsBigFloat().Float64()
	return f, nil
}

// Bool unwraps a boolean value.
func Bool(v cty.Value) (bool, error) {
	if v == cty.NilVal || v.IsNull() {
		return false, fmt.Errorf("no value")
	}
	conv, err := convert.Convert(v, cty.Bool)
	if err != nil {
		return false, fmt.Errorf("cannot read %s as a boolean: %w", v.Type().FriendlyName(), err)
	}
	return conv.True(), nil
}

// NumIn reads the named input port as a number.
func NumIn(inputs map[string]cty.Value, port string) (float64, error) {
	v, ok := inputs[port]
	if !ok {
		return 0, fmt.Errorf("input port %q has no value", port)
	}
	f, err := Num(v)
	if err != nil {
		return 0, fmt.Errorf("input port %q: %w", port, err)
	}
	return f, nil
}

// IntIn reads the named input port as an integer, truncating toward zero.
func IntIn(inputs map[string]cty.Value, port string) (int64, error) {
	v, ok := inputs[port]
	if !ok {
		return 0, fmt.Errorf("input port %q has no value", port)
	}
	conv, err := convert.Convert(v, cty.Number)
	if err != nil {
		return 0, fmt.Errorf("input port %q: cannot read %s as a number: %w", port, v.Type().FriendlyName(), err)
	}
	i, _ := conv.AsBigFloat().Int64()
	return i, nil
}

// BoolIn reads the named input port as a boolean.
func BoolIn(inputs map[string]cty.Value, port string) (bool, error) {
	v, ok := inputs[port]
	if !ok {
		return false, fmt.Errorf("input port %q has no value", port)
	}
	b, err := Bool(v)
	if err != nil {
		return false, fmt.Errorf("input port %q: %w", port, err)
	}
	return b, nil
}

// NumVal wraps a float64 as a cty number.
func NumVal(f float64) cty.Value { return cty.NumberFloatVal(f) }

// IntVal wraps an int64 as a cty number.
func IntVal(i int64) cty.Value { return cty.NumberIntVal(i) }

// BoolVal wraps a bool as a cty boolean.
func BoolVal(b bool) cty.Value { return cty.BoolVal(b) }
