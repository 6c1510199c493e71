package cxf

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"go.uber.org/multierr"

	"github.com/vk/cxfgo/internal/model"
)

func ctyConvert(v cty.Value, want cty.Type) (cty.Value, error) {
	return convert.Convert(v, want)
}

// validate runs every structural check that does not require resolved
// composite definitions. Defects are collected rather than reported one at a
// time, so a single pass surfaces everything wrong with a document.
func (p *Parser) validate(net *model.Network) error {
	var errs error

	errs = multierr.Append(errs, p.checkUniqueNames(net))
	errs = multierr.Append(errs, p.checkElementaryTypes(net))
	errs = multierr.Append(errs, p.checkParamRefs(net))
	errs = multierr.Append(errs, p.checkConnections(net))
	errs = multierr.Append(errs, checkArity(net, func(inst *model.Instance) ([]string, bool) {
		if !inst.Elementary() {
			return nil, false
		}
		entry, ok := p.cat.Lookup(inst.Type)
		if !ok {
			return nil, false
		}
		return entry.Inputs, true
	}))

	if errs != nil {
		return errs
	}

	// Cycle detection only makes sense on a structurally sound graph.
	if _, err := net.EvaluationOrder(); err != nil {
		return &MalformedDocumentError{Node: net.Name, Field: "connections", Reason: err.Error()}
	}
	return nil
}

func (p *Parser) checkUniqueNames(net *model.Network) error {
	var errs error
	seen := make(map[string]bool, len(net.Instances))
	for _, inst := range net.Instances {
		if seen[inst.Name] {
			errs = multierr.Append(errs, &MalformedDocumentError{
				Node: net.Name, Field: "instances." + inst.Name, Reason: "duplicate instance @id",
			})
			continue
		}
		seen[inst.Name] = true
	}

	seenParam := make(map[string]bool, len(net.Parameters))
	for _, param := range net.Parameters {
		if seenParam[param.Name] {
			errs = multierr.Append(errs, &MalformedDocumentError{
				Node: net.Name, Field: "parameters." + param.Name, Reason: "duplicate parameter name",
			})
			continue
		}
		seenParam[param.Name] = true
	}
	return errs
}

// checkElementaryTypes verifies every elementary instance against the
// catalogue: the type must be registered and the parameter assignment must
// fit its schema. Composite references are left for the resolver.
func (p *Parser) checkElementaryTypes(net *model.Network) error {
	var errs error
	for _, inst := range net.Instances {
		if !inst.Elementary() {
			continue
		}
		entry, ok := p.cat.Lookup(inst.Type)
		if !ok {
			errs = multierr.Append(errs, &MalformedDocumentError{
				Node: net.Name, Field: "instances." + inst.Name,
				Reason: fmt.Sprintf("unknown elementary block type %q", inst.Type),
			})
			continue
		}
		if err := entry.ValidateParams(inst.Parameters); err != nil {
			errs = multierr.Append(errs, &MalformedDocumentError{
				Node: net.Name, Field: "instances." + inst.Name, Reason: err.Error(),
			})
		}
		for name := range inst.ParamRefs {
			if entry.Param(name) == nil {
				errs = multierr.Append(errs, &MalformedDocumentError{
					Node: net.Name, Field: "instances." + inst.Name,
					Reason: fmt.Sprintf("block type %s has no parameter %q", inst.Type, name),
				})
			}
		}
	}
	return errs
}

// checkParamRefs verifies every parameter reference names a declared
// network parameter with a compatible type.
func (p *Parser) checkParamRefs(net *model.Network) error {
	var errs error
	for _, inst := range net.Instances {
		for name, refName := range inst.ParamRefs {
			if net.Parameter(refName) == nil {
				errs = multierr.Append(errs, &MalformedDocumentError{
					Node: net.Name, Field: fmt.Sprintf("instances.%s.parameters.%s", inst.Name, name),
					Reason: fmt.Sprintf("references undeclared model parameter %q", refName),
				})
			}
		}
	}
	return errs
}

// checkConnections verifies both endpoints of every connection exist.
// Elementary instance ports are checked against the catalogue; ports of
// unresolved composite instances are deferred to ValidateResolvedPorts.
func (p *Parser) checkConnections(net *model.Network) error {
	var errs error
	for _, c := range net.Connections {
		errs = multierr.Append(errs, p.checkEndpoint(net, c.Source, true))
		for _, t := range c.Targets {
			errs = multierr.Append(errs, p.checkEndpoint(net, t, false))
		}
	}
	return errs
}

func (p *Parser) checkEndpoint(net *model.Network, ref model.PortRef, isSource bool) error {
	if ref.External() {
		if isSource {
			if net.InputPort(ref.Port) == nil {
				return &DanglingConnectionError{Network: net.Name, Ref: ref, Detail: "no such model input"}
			}
			return nil
		}
		if net.OutputPort(ref.Port) == nil {
			return &DanglingConnectionError{Network: net.Name, Ref: ref, Detail: "no such model output"}
		}
		return nil
	}

	inst := net.Instance(ref.Instance)
	if inst == nil {
		return &DanglingConnectionError{Network: net.Name, Ref: ref, Detail: "no such instance"}
	}
	if !inst.Elementary() {
		// Port existence on a composite is checked once its document is
		// resolved.
		return nil
	}
	entry, ok := p.cat.Lookup(inst.Type)
	if !ok {
		// Reported by checkElementaryTypes already.
		return nil
	}
	if isSource {
		if !entry.HasOutput(ref.Port) {
			return &DanglingConnectionError{
				Network: net.Name, Ref: ref,
				Detail: fmt.Sprintf("block type %s has no output %q", inst.Type, ref.Port),
			}
		}
		return nil
	}
	if !entry.HasInput(ref.Port) {
		return &DanglingConnectionError{
			Network: net.Name, Ref: ref,
			Detail: fmt.Sprintf("block type %s has no input %q", inst.Type, ref.Port),
		}
	}
	return nil
}

// checkArity enforces single assignment: every declared input of every
// instance (as enumerated by inputsOf) and every external output must be the
// target of exactly one connection.
func checkArity(net *model.Network, inputsOf func(*model.Instance) ([]string, bool)) error {
	incoming := make(map[model.PortRef]int)
	for _, c := range net.Connections {
		for _, t := range c.Targets {
			incoming[t]++
		}
	}

	var errs error
	for _, inst := range net.Instances {
		inputs, ok := inputsOf(inst)
		if !ok {
			continue
		}
		for _, port := range inputs {
			count := incoming[model.PortRef{Instance: inst.Name, Port: port}]
			if count != 1 {
				errs = multierr.Append(errs, &PortArityError{
					Network: net.Name, Instance: inst.Name, Port: port, Count: count,
				})
			}
		}
	}
	for _, port := range net.Outputs {
		count := incoming[model.PortRef{Port: port.Name}]
		if count != 1 {
			errs = multierr.Append(errs, &PortArityError{Network: net.Name, Port: port.Name, Count: count})
		}
	}
	return errs
}

// ValidateResolvedPorts runs the checks that had to wait for composite
// resolution: connection endpoints on composite instances, single-assignment
// arity on their inputs, and parameter assignments against the resolved
// sub-network's declared parameters. The resolver calls this once per network
// after every composite reference in it has been resolved.
func ValidateResolvedPorts(net *model.Network) error {
	var errs error

	for _, c := range net.Connections {
		errs = multierr.Append(errs, checkResolvedEndpoint(net, c.Source, true))
		for _, t := range c.Targets {
			errs = multierr.Append(errs, checkResolvedEndpoint(net, t, false))
		}
	}

	errs = multierr.Append(errs, checkArity(net, func(inst *model.Instance) ([]string, bool) {
		if inst.Composite == nil {
			return nil, false
		}
		inputs := make([]string, 0, len(inst.Composite.Inputs))
		for _, p := range inst.Composite.Inputs {
			inputs = append(inputs, p.Name)
		}
		return inputs, true
	}))

	for _, inst := range net.Instances {
		if inst.Composite == nil {
			continue
		}
		for name := range inst.Parameters {
			if inst.Composite.Parameter(name) == nil {
				errs = multierr.Append(errs, &MalformedDocumentError{
					Node: net.Name, Field: fmt.Sprintf("instances.%s.parameters.%s", inst.Name, name),
					Reason: fmt.Sprintf("composite %q declares no parameter %q", inst.Composite.Name, name),
				})
			}
		}
		for name := range inst.ParamRefs {
			if inst.Composite.Parameter(name) == nil {
				errs = multierr.Append(errs, &MalformedDocumentError{
					Node: net.Name, Field: fmt.Sprintf("instances.%s.parameters.%s", inst.Name, name),
					Reason: fmt.Sprintf("composite %q declares no parameter %q", inst.Composite.Name, name),
				})
			}
		}
	}
	return errs
}

func checkResolvedEndpoint(net *model.Network, ref model.PortRef, isSource bool) error {
	if ref.External() {
		return nil
	}
	inst := net.Instance(ref.Instance)
	if inst == nil || inst.Composite == nil {
		return nil
	}
	if isSource {
		if inst.Composite.OutputPort(ref.Port) == nil {
			return &DanglingConnectionError{
				Network: net.Name, Ref: ref,
				Detail: fmt.Sprintf("composite %q has no output %q", inst.Composite.Name, ref.Port),
			}
		}
		return nil
	}
	if inst.Composite.InputPort(ref.Port) == nil {
		return &DanglingConnectionError{
			Network: net.Name, Ref: ref,
			Detail: fmt.Sprintf("composite %q has no input %q", inst.Composite.Name, ref.Port),
		}
	}
	return nil
}
