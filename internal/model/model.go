// Package model holds the in-memory representation of a parsed control
// network: block instances, their parameters, the connections between ports,
// and the derived evaluation order.
package model

import (
	"fmt"
	"strings"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/cxfgo/internal/dag"
)

// PortType is the declared value type of a port or parameter.
type PortType string

const (
	PortReal    PortType = "Real"
	PortInteger PortType = "Integer"
	PortBoolean PortType = "Boolean"
)

// CtyType maps a declared port type onto its cty representation.
func (t PortType) CtyType() (cty.Type, error) {
	switch t {
	case PortReal, PortInteger:
		return cty.Number, nil
	case PortBoolean:
		return cty.Bool, nil
	default:
		return cty.NilType, fmt.Errorf("unknown port type %q", string(t))
	}
}

// Port is a named input or output connector of a network.
type Port struct {
	Name        string
	Type        PortType
	Description string
}

// Parameter is a network-level parameter: a literal set once at construction
// and immutable thereafter. Instances inside the network may reference it by
// name instead of supplying their own literal.
type Parameter struct {
	Name        string
	Type        PortType
	Value       cty.Value
	Description string
}

// Instance is a single block instantiation within a network.
type Instance struct {
	// Name is unique within the enclosing network.
	Name string
	// Type is the block type tag from the document, e.g.
	// "Buildings.Controls.OBC.CDL.Reals.Add" or a composite reference.
	Type string
	// Parameters maps parameter names to literal values.
	Parameters map[string]cty.Value
	// ParamRefs maps parameter names to the name of an enclosing-network
	// parameter whose value is substituted at construction time.
	ParamRefs map[string]string
	// Composite is the resolved sub-network when Type is a composite
	// reference. It is nil for elementary instances and for composite
	// references that have not been resolved yet. Resolved sub-networks are
	// shared: two instances of the same type point at the same Network.
	Composite *Network
}

// Elementary reports whether the instance's type tag names a block from the
// built-in elementary catalogue. By convention a type is elementary when its
// dotted path contains a "CDL" segment; anything else is a composite
// reference whose definition lives in a separate document.
func (i *Instance) Elementary() bool {
	for _, seg := range strings.Split(i.Type, ".") {
		if seg == "CDL" {
			return true
		}
	}
	return false
}

// TypeName extracts the simple type name from the instance's type tag,
// stripping namespace prefixes ("ex:Sub"), URI fragments ("...#Pkg.Sub") and
// package paths ("Pkg.Sub" -> "Sub").
func (i *Instance) TypeName() string {
	t := i.Type
	if idx := strings.Index(t, ":"); idx >= 0 && !strings.Contains(t[:idx], "/") {
		t = t[idx+1:]
	}
	if idx := strings.Index(t, "#"); idx >= 0 {
		t = t[idx+1:]
	}
	if idx := strings.LastIndex(t, "."); idx >= 0 {
		t = t[idx+1:]
	}
	return t
}

// PortRef identifies one endpoint of a connection: a port on a named
// instance, or, when Instance is empty, one of the network's own external
// ports.
type PortRef struct {
	Instance string
	Port     string
}

// External reports whether the reference names one of the network's own ports.
func (r PortRef) External() bool { return r.Instance == "" }

// String renders the reference in document form: "instance.port" or the bare
// external port name.
func (r PortRef) String() string {
	if r.External() {
		return r.Port
	}
	return r.Instance + "." + r.Port
}

// ParsePortRef parses "instance.port" or a bare external port name.
func ParsePortRef(s string) PortRef {
	if idx := strings.Index(s, "."); idx >= 0 {
		return PortRef{Instance: s[:idx], Port: s[idx+1:]}
	}
	return PortRef{Port: s}
}

// Connection carries a value from one source port to one or more destination
// ports. Every destination has exactly one incoming connection; a source may
// fan out to many destinations.
type Connection struct {
	Source  PortRef
	Targets []PortRef
}

// Network is the in-memory representation of one composite block: an ordered
// set of instances, the connections among them, and the network's own
// external ports. The evaluation order is derived on demand and cached; it
// is a pure function of the connection graph, with declaration order
// breaking ties among independently-ready instances.
type Network struct {
	Name        string
	Description string
	Parameters  []Parameter
	Inputs      []Port
	Outputs     []Port
	Instances   []*Instance
	Connections []Connection

	order []string
}

// Instance returns the named instance, or nil.
func (n *Network) Instance(name string) *Instance {
	for _, inst := range n.Instances {
		if inst.Name == name {
			return inst
		}
	}
	return nil
}

// Parameter returns the named declared parameter, or nil.
func (n *Network) Parameter(name string) *Parameter {
	for i := range n.Parameters {
		if n.Parameters[i].Name == name {
			return &n.Parameters[i]
		}
	}
	return nil
}

// InputPort returns the named external input port, or nil.
func (n *Network) InputPort(name string) *Port {
	for i := range n.Inputs {
		if n.Inputs[i].Name == name {
			return &n.Inputs[i]
		}
	}
	return nil
}

// OutputPort returns the named external output port, or nil.
func (n *Network) OutputPort(name string) *Port {
	for i := range n.Outputs {
		if n.Outputs[i].Name == name {
			return &n.Outputs[i]
		}
	}
	return nil
}

// AddConnection appends a connection and invalidates the cached evaluation
// order.
func (n *Network) AddConnection(c Connection) {
	n.Connections = append(n.Connections, c)
	n.order = nil
}

// Graph builds the dependency graph over the network's instances. External
// endpoints contribute no edges; an instance-to-instance connection makes
// the target depend on the source.
func (n *Network) Graph() (*dag.Graph, error) {
	g := dag.New()
	for _, inst := range n.Instances {
		g.AddNode(inst.Name)
	}
	for _, c := range n.Connections {
		if c.Source.External() {
			continue
		}
		for _, t := range c.Targets {
			if t.External() {
				continue
			}
			if err := g.AddEdge(c.Source.Instance, t.Instance); err != nil {
				return nil, fmt.Errorf("connection %s -> %s: %w", c.Source, t, err)
			}
		}
	}
	return g, nil
}

// EvaluationOrder returns the instance names in topological order. The
// result is computed once and cached until the connection set changes.
func (n *Network) EvaluationOrder() ([]string, error) {
	if n.order != nil {
		return n.order, nil
	}
	g, err := n.Graph()
	if err != nil {
		return nil, err
	}
	order, err := g.TopoSort()
	if err != nil {
		return nil, fmt.Errorf("network %q: %w", n.Name, err)
	}
	n.order = order
	return order, nil
}
