// Package cxf decodes exchange-format (CXF) documents into network models.
//
// A CXF document is hierarchical JSON-LD: a root "@graph" listing of nodes,
// each identified by "@id" and tagged with "@type". The first composite node
// in the graph is the document's model. Field names and nesting follow the
// established exchange format exactly; they must not be renamed.
package cxf

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
	"go.uber.org/multierr"

	"github.com/vk/cxfgo/internal/catalogue"
	"github.com/vk/cxfgo/internal/model"
)

// Wire-format document structure. Field names are part of the exchange
// format and must be preserved bit-exact.
type document struct {
	Context json.RawMessage `json:"@context,omitempty"`
	Graph   []graphNode     `json:"@graph"`
}

type graphNode struct {
	ID          string           `json:"@id"`
	Type        string           `json:"@type"`
	Description string           `json:"description,omitempty"`
	Parameters  []parameterDecl  `json:"parameters,omitempty"`
	Inputs      []portDecl       `json:"inputs,omitempty"`
	Outputs     []portDecl       `json:"outputs,omitempty"`
	Instances   []instanceDecl   `json:"instances,omitempty"`
	Connections []connectionDecl `json:"connections,omitempty"`
}

type parameterDecl struct {
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	Value       json.RawMessage `json:"value,omitempty"`
	Description string          `json:"description,omitempty"`
}

type portDecl struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

type instanceDecl struct {
	ID         string                     `json:"@id"`
	Type       string                     `json:"type"`
	Parameters map[string]json.RawMessage `json:"parameters,omitempty"`
}

type connectionDecl struct {
	Source  string   `json:"source"`
	Targets []string `json:"targets"`
}

// paramRef is the JSON-LD form of a parameter value that references an
// enclosing-model parameter instead of carrying a literal.
type paramRef struct {
	ID string `json:"@id"`
}

const compositeType = "CompositeBlock"

// Parser decodes CXF documents into network models and validates them
// against the elementary block catalogue.
type Parser struct {
	cat *catalogue.Registry
}

// NewParser creates a parser backed by the given catalogue.
func NewParser(cat *catalogue.Registry) *Parser {
	return &Parser{cat: cat}
}

// ParseFile reads and parses a CXF document from disk.
func (p *Parser) ParseFile(path string) (*model.Network, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	net, err := p.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return net, nil
}

// Parse decodes a CXF document and returns the network model of its
// top-level composite. Composite references inside the model are left
// unresolved; the resolver fills them in. All structural defects are
// collected and returned together.
func (p *Parser) Parse(data []byte) (*model.Network, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &MalformedDocumentError{Node: "@graph", Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}
	if len(doc.Graph) == 0 {
		return nil, &MalformedDocumentError{Node: "@graph", Reason: "document has no @graph nodes"}
	}

	root := doc.Graph[0]
	if root.ID == "" {
		return nil, &MalformedDocumentError{Node: "@graph[0]", Field: "@id", Reason: "missing node identifier"}
	}
	if root.Type == "" {
		return nil, &MalformedDocumentError{Node: root.ID, Field: "@type", Reason: "missing node type"}
	}
	if root.Type != compositeType {
		return nil, &MalformedDocumentError{Node: root.ID, Field: "@type", Reason: fmt.Sprintf("unsupported node type %q, want %q", root.Type, compositeType)}
	}

	net, err := p.buildNetwork(root)
	if err != nil {
		return nil, err
	}
	if err := p.validate(net); err != nil {
		return nil, err
	}
	return net, nil
}

// buildNetwork converts a composite graph node into a model.Network,
// collecting every conversion defect.
func (p *Parser) buildNetwork(node graphNode) (*model.Network, error) {
	var errs error

	net := &model.Network{
		Name:        node.ID,
		Description: node.Description,
	}

	for _, decl := range node.Parameters {
		param, err := p.buildParameter(node.ID, decl)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		net.Parameters = append(net.Parameters, param)
	}

	var portErr error
	net.Inputs, portErr = buildPorts(node.ID, "inputs", node.Inputs)
	errs = multierr.Append(errs, portErr)
	net.Outputs, portErr = buildPorts(node.ID, "outputs", node.Outputs)
	errs = multierr.Append(errs, portErr)

	for _, decl := range node.Instances {
		inst, err := p.buildInstance(node.ID, decl)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		net.Instances = append(net.Instances, inst)
	}

	for i, decl := range node.Connections {
		if decl.Source == "" {
			errs = multierr.Append(errs, &MalformedDocumentError{
				Node: node.ID, Field: fmt.Sprintf("connections[%d].source", i), Reason: "missing source port reference",
			})
			continue
		}
		if len(decl.Targets) == 0 {
			errs = multierr.Append(errs, &MalformedDocumentError{
				Node: node.ID, Field: fmt.Sprintf("connections[%d].targets", i), Reason: "connection has no targets",
			})
			continue
		}
		conn := model.Connection{Source: model.ParsePortRef(decl.Source)}
		for _, t := range decl.Targets {
			conn.Targets = append(conn.Targets, model.ParsePortRef(t))
		}
		net.AddConnection(conn)
	}

	if errs != nil {
		return nil, errs
	}
	return net, nil
}

func (p *Parser) buildParameter(nodeID string, decl parameterDecl) (model.Parameter, error) {
	if decl.Name == "" {
		return model.Parameter{}, &MalformedDocumentError{Node: nodeID, Field: "parameters", Reason: "parameter without a name"}
	}
	portType := model.PortType(decl.Type)
	wantType, err := portType.CtyType()
	if err != nil {
		return model.Parameter{}, &MalformedDocumentError{Node: nodeID, Field: "parameters." + decl.Name, Reason: err.Error()}
	}

	value := cty.NilVal
	if len(decl.Value) > 0 {
		value, err = decodeLiteral(decl.Value)
		if err != nil {
			return model.Parameter{}, &MalformedDocumentError{Node: nodeID, Field: "parameters." + decl.Name, Reason: err.Error()}
		}
		if value, err = convertLiteral(value, wantType); err != nil {
			return model.Parameter{}, &MalformedDocumentError{Node: nodeID, Field: "parameters." + decl.Name, Reason: err.Error()}
		}
	}

	return model.Parameter{
		Name:        decl.Name,
		Type:        portType,
		Value:       value,
		Description: decl.Description,
	}, nil
}

func buildPorts(nodeID, field string, decls []portDecl) ([]model.Port, error) {
	var errs error
	seen := make(map[string]bool, len(decls))
	ports := make([]model.Port, 0, len(decls))

	for _, decl := range decls {
		if decl.Name == "" {
			errs = multierr.Append(errs, &MalformedDocumentError{Node: nodeID, Field: field, Reason: "port without a name"})
			continue
		}
		if seen[decl.Name] {
			errs = multierr.Append(errs, &MalformedDocumentError{Node: nodeID, Field: field + "." + decl.Name, Reason: "duplicate port name"})
			continue
		}
		seen[decl.Name] = true

		portType := model.PortType(decl.Type)
		if _, err := portType.CtyType(); err != nil {
			errs = multierr.Append(errs, &MalformedDocumentError{Node: nodeID, Field: field + "." + decl.Name, Reason: err.Error()})
			continue
		}
		ports = append(ports, model.Port{Name: decl.Name, Type: portType, Description: decl.Description})
	}
	if len(ports) == 0 {
		ports = nil
	}
	return ports, errs
}

func (p *Parser) buildInstance(nodeID string, decl instanceDecl) (*model.Instance, error) {
	if decl.ID == "" {
		return nil, &MalformedDocumentError{Node: nodeID, Field: "instances", Reason: "instance without an @id"}
	}
	if decl.Type == "" {
		return nil, &MalformedDocumentError{Node: nodeID, Field: "instances." + decl.ID, Reason: "instance without a type"}
	}

	inst := &model.Instance{Name: decl.ID, Type: decl.Type}

	names := make([]string, 0, len(decl.Parameters))
	for name := range decl.Parameters {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs error
	for _, name := range names {
		raw := decl.Parameters[name]
		field := fmt.Sprintf("instances.%s.parameters.%s", decl.ID, name)

		var ref paramRef
		if err := json.Unmarshal(raw, &ref); err == nil && ref.ID != "" {
			refName := model.ParsePortRef(ref.ID).Port
			if inst.ParamRefs == nil {
				inst.ParamRefs = make(map[string]string)
			}
			inst.ParamRefs[name] = refName
			continue
		}

		value, err := decodeLiteral(raw)
		if err != nil {
			errs = multierr.Append(errs, &MalformedDocumentError{Node: nodeID, Field: field, Reason: err.Error()})
			continue
		}
		if inst.Parameters == nil {
			inst.Parameters = make(map[string]cty.Value)
		}
		inst.Parameters[name] = value
	}

	if errs != nil {
		return nil, errs
	}
	return inst, nil
}

// decodeLiteral converts a JSON literal into a cty.Value using the type
// implied by its JSON shape.
func decodeLiteral(raw json.RawMessage) (cty.Value, error) {
	t, err := ctyjson.ImpliedType(raw)
	if err != nil {
		return cty.NilVal, fmt.Errorf("invalid literal: %v", err)
	}
	v, err := ctyjson.Unmarshal(raw, t)
	if err != nil {
		return cty.NilVal, fmt.Errorf("invalid literal: %v", err)
	}
	return v, nil
}

func convertLiteral(v cty.Value, want cty.Type) (cty.Value, error) {
	conv, err := ctyConvert(v, want)
	if err != nil {
		return cty.NilVal, fmt.Errorf("literal %s does not fit declared type: %v", v.Type().FriendlyName(), err)
	}
	return conv, nil
}
