// Package engine instantiates a resolved network and drives it step by step.
//
// Execution is two-phase. The evaluate phase sweeps every instance in
// topological order, computing outputs from committed state and from the
// outputs already produced this step; stateful blocks stage their next state
// without exposing it. The commit phase then promotes every staged state at
// once. A failure during evaluation skips the commit phase entirely, so a
// failed step never advances any state.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/cxfgo/internal/block"
	"github.com/vk/cxfgo/internal/catalogue"
	"github.com/vk/cxfgo/internal/clock"
	"github.com/vk/cxfgo/internal/ctxlog"
	"github.com/vk/cxfgo/internal/model"
)

// StepEvaluationError reports a block failure during the evaluate phase.
// Instance is the dotted path of the failing instance from the root network.
type StepEvaluationError struct {
	Instance string
	Err      error
}

func (e *StepEvaluationError) Error() string {
	return fmt.Sprintf("step evaluation failed at %q: %v", e.Instance, e.Err)
}

func (e *StepEvaluationError) Unwrap() error { return e.Err }

// wrapStepErr attributes err to the named instance. Errors coming out of a
// nested composite already carry an instance path; prepend rather than nest.
func wrapStepErr(name string, err error) error {
	var se *StepEvaluationError
	if errors.As(err, &se) {
		return &StepEvaluationError{Instance: name + "." + se.Instance, Err: se.Err}
	}
	return &StepEvaluationError{Instance: name, Err: err}
}

// Options tunes engine behaviour.
type Options struct {
	// MaxSweeps bounds the number of evaluate sweeps per step. With the
	// default of 1 each instance evaluates exactly once per step; higher
	// values re-sweep until instance outputs stop changing, for models with
	// same-step event propagation.
	MaxSweeps int
}

// binding routes one value: the named local port receives the value produced
// at src.
type binding struct {
	port string
	src  model.PortRef
}

// runtime is one live instance inside an engine.
type runtime struct {
	name    string
	blk     block.Block
	inputs  []binding
	outputs map[string]cty.Value
}

// Engine is a runnable instantiation of one network. Instances are held in
// topological order; the order is fixed at construction and identical for
// identical documents.
type Engine struct {
	net       *model.Network
	clk       *clock.Clock
	maxSweeps int

	instances []*runtime
	byName    map[string]*runtime
	outputs   []binding
}

// New instantiates the root network. Every composite instance must already
// be resolved; the catalogue supplies constructors for elementary types.
func New(net *model.Network, cat *catalogue.Registry, clk *clock.Clock, opts Options) (*Engine, error) {
	if opts.MaxSweeps <= 0 {
		opts.MaxSweeps = 1
	}
	env, err := paramEnv(net, nil)
	if err != nil {
		return nil, err
	}
	return build(net, cat, clk, env, opts)
}

func build(net *model.Network, cat *catalogue.Registry, clk *clock.Clock, env map[string]cty.Value, opts Options) (*Engine, error) {
	order, err := net.EvaluationOrder()
	if err != nil {
		return nil, err
	}

	e := &Engine{
		net:       net,
		clk:       clk,
		maxSweeps: opts.MaxSweeps,
		byName:    make(map[string]*runtime, len(order)),
	}

	for _, name := range order {
		inst := net.Instance(name)
		params, err := resolveParams(inst, env)
		if err != nil {
			return nil, fmt.Errorf("instance %q: %w", name, err)
		}

		var blk block.Block
		if inst.Elementary() {
			blk, err = cat.NewBlock(inst.Type, params, clk)
			if err != nil {
				return nil, fmt.Errorf("instance %q: %w", name, err)
			}
		} else {
			if inst.Composite == nil {
				return nil, fmt.Errorf("instance %q: composite reference %q is unresolved", name, inst.Type)
			}
			subEnv, err := paramEnv(inst.Composite, params)
			if err != nil {
				return nil, fmt.Errorf("instance %q: %w", name, err)
			}
			sub, err := build(inst.Composite, cat, clk, subEnv, opts)
			if err != nil {
				return nil, fmt.Errorf("instance %q: %w", name, err)
			}
			blk = &compositeBlock{eng: sub}
		}

		rt := &runtime{name: name, blk: blk}
		e.instances = append(e.instances, rt)
		e.byName[name] = rt
	}

	for _, c := range net.Connections {
		for _, t := range c.Targets {
			b := binding{port: t.Port, src: c.Source}
			if t.External() {
				e.outputs = append(e.outputs, b)
				continue
			}
			e.byName[t.Instance].inputs = append(e.byName[t.Instance].inputs, b)
		}
	}
	return e, nil
}

// paramEnv computes the value of every declared network parameter: the
// override from the instantiating context if present, else the declared
// literal. A parameter with neither is an error.
func paramEnv(net *model.Network, overrides map[string]cty.Value) (map[string]cty.Value, error) {
	env := make(map[string]cty.Value, len(net.Parameters))
	for _, p := range net.Parameters {
		if v, ok := overrides[p.Name]; ok {
			env[p.Name] = v
			continue
		}
		if p.Value == cty.NilVal {
			return nil, fmt.Errorf("network %q: parameter %q has no value", net.Name, p.Name)
		}
		env[p.Name] = p.Value
	}
	return env, nil
}

// resolveParams produces the final parameter assignment for one instance:
// its literals plus the values of any enclosing-network parameters it
// references.
func resolveParams(inst *model.Instance, env map[string]cty.Value) (map[string]cty.Value, error) {
	params := make(map[string]cty.Value, len(inst.Parameters)+len(inst.ParamRefs))
	for name, v := range inst.Parameters {
		params[name] = v
	}
	for name, refName := range inst.ParamRefs {
		v, ok := env[refName]
		if !ok {
			return nil, fmt.Errorf("parameter %q references undeclared model parameter %q", name, refName)
		}
		params[name] = v
	}
	return params, nil
}

// Network returns the network this engine instantiates.
func (e *Engine) Network() *model.Network { return e.net }

// Clock returns the shared time source.
func (e *Engine) Clock() *clock.Clock { return e.clk }

// Step runs one full step: evaluate every instance, then, if no evaluation
// failed, commit every staged state. Inputs are keyed by external input port
// name; the result is keyed by external output port name.
func (e *Engine) Step(ctx context.Context, inputs map[string]cty.Value) (map[string]cty.Value, error) {
	log := ctxlog.FromContext(ctx)

	out, err := e.evaluate(inputs)
	if err != nil {
		log.Debug("Step failed, state not advanced", "network", e.net.Name, "error", err)
		return nil, err
	}
	e.commit()
	return out, nil
}

// evaluate runs the evaluate phase: up to maxSweeps full sweeps, stopping
// early once no instance output changed between consecutive sweeps. With a
// bound above one, outputs still changing after the last sweep means the
// step failed to converge and must not commit.
func (e *Engine) evaluate(inputs map[string]cty.Value) (map[string]cty.Value, error) {
	stable := false
	for sweep := 0; sweep < e.maxSweeps && !stable; sweep++ {
		stable = true
		for _, rt := range e.instances {
			in, err := e.gather(rt, inputs)
			if err != nil {
				return nil, wrapStepErr(rt.name, err)
			}
			got, err := rt.blk.Evaluate(in)
			if err != nil {
				return nil, wrapStepErr(rt.name, err)
			}
			if !outputsEqual(rt.outputs, got) {
				stable = false
			}
			rt.outputs = got
		}
	}
	if e.maxSweeps > 1 && !stable {
		return nil, &StepEvaluationError{
			Instance: e.net.Name,
			Err:      fmt.Errorf("outputs did not stabilise within %d sweeps", e.maxSweeps),
		}
	}
	return e.externalOutputs(inputs), nil
}

func (e *Engine) gather(rt *runtime, inputs map[string]cty.Value) (map[string]cty.Value, error) {
	in := make(map[string]cty.Value, len(rt.inputs))
	for _, b := range rt.inputs {
		v, err := e.valueAt(b.src, inputs)
		if err != nil {
			return nil, err
		}
		in[b.port] = v
	}
	return in, nil
}

func (e *Engine) valueAt(src model.PortRef, inputs map[string]cty.Value) (cty.Value, error) {
	if src.External() {
		v, ok := inputs[src.Port]
		if !ok {
			return cty.NilVal, fmt.Errorf("model input %q has no value", src.Port)
		}
		return v, nil
	}
	srcRt, ok := e.byName[src.Instance]
	if !ok {
		return cty.NilVal, fmt.Errorf("no such instance %q", src.Instance)
	}
	v, ok := srcRt.outputs[src.Port]
	if !ok {
		return cty.NilVal, fmt.Errorf("instance %q produced no output %q", src.Instance, src.Port)
	}
	return v, nil
}

func (e *Engine) externalOutputs(inputs map[string]cty.Value) map[string]cty.Value {
	out := make(map[string]cty.Value, len(e.outputs))
	for _, b := range e.outputs {
		if v, err := e.valueAt(b.src, inputs); err == nil {
			out[b.port] = v
		}
	}
	return out
}

// commit promotes every staged state. Stateless blocks no-op; composites
// recurse.
func (e *Engine) commit() {
	for _, rt := range e.instances {
		rt.blk.Commit()
	}
}

func outputsEqual(a, b map[string]cty.Value) bool {
	if len(a) != len(b) {
		return false
	}
	for k, va := range a {
		vb, ok := b[k]
		if !ok || !va.RawEquals(vb) {
			return false
		}
	}
	return true
}

// compositeBlock adapts a nested engine to the block interface so composite
// instances slot into their parent's sweep like any elementary block. Its
// evaluate runs only the inner evaluate phase; inner state advances only
// when the outer commit reaches it.
type compositeBlock struct {
	eng *Engine
}

func (c *compositeBlock) Spec() block.Spec {
	spec := block.Spec{}
	for _, p := range c.eng.net.Inputs {
		spec.Inputs = append(spec.Inputs, p.Name)
	}
	for _, p := range c.eng.net.Outputs {
		spec.Outputs = append(spec.Outputs, p.Name)
	}
	return spec
}

func (c *compositeBlock) Evaluate(in map[string]cty.Value) (map[string]cty.Value, error) {
	return c.eng.evaluate(in)
}

func (c *compositeBlock) Commit() {
	c.eng.commit()
}
