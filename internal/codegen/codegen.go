// Package codegen emits Go source for resolved networks. Each composite
// becomes one file: a struct holding its block instances, a constructor
// taking the time source and the network's parameters, and Evaluate, Commit
// and Step methods mirroring the two-phase engine. Generation is
// deterministic: the same resolved model yields byte-identical output.
package codegen

import (
	"bytes"
	"fmt"
	"go/format"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/cxfgo/internal/catalogue"
	"github.com/vk/cxfgo/internal/model"
)

const modulePath = "github.com/vk/cxfgo"

// File is one generated artifact.
type File struct {
	Name    string
	Content []byte
}

// Generator turns resolved networks into Go source files.
type Generator struct {
	cat *catalogue.Registry
	pkg string
}

// New creates a generator emitting files into the named package.
func New(cat *catalogue.Registry, pkg string) *Generator {
	return &Generator{cat: cat, pkg: pkg}
}

// Generate emits one file per network. Networks must be given leaf-first
// (dependencies before dependents), the order the resolver produces, so a
// composite's generated type exists before its first use.
func (g *Generator) Generate(networks []*model.Network) ([]File, error) {
	files := make([]File, 0, len(networks))
	for _, net := range networks {
		f, err := g.generateNetwork(net)
		if err != nil {
			return nil, fmt.Errorf("generating %q: %w", net.Name, err)
		}
		files = append(files, f)
	}
	return files, nil
}

// WriteFiles writes generated artifacts under dir, creating it if needed.
func WriteFiles(dir string, files []File) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	for _, f := range files {
		path := filepath.Join(dir, f.Name)
		if err := os.WriteFile(path, f.Content, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	return nil
}

type fieldData struct {
	Name string
	Type string
}

type fileData struct {
	Model       string
	Package     string
	TypeName    string
	Description string
	Imports     []string
	Fields      []fieldData
	CtorParams  string
	CtorLines   []string
	EvalLines   []string
	ReturnExpr  string
	CommitLines []string
	InputPorts  []string
	OutputPorts []string
}

var fileTemplate = template.Must(template.New("network").Parse(`// Code generated by cxfgo from CXF model "{{.Model}}". DO NOT EDIT.

package {{.Package}}

import (
{{- range .Imports}}
	{{.}}
{{- end}}
)

// {{.TypeName}} {{if .Description}}implements {{.Description}}{{else}}is the control network "{{.Model}}"{{end}}.
type {{.TypeName}} struct {
{{- range .Fields}}
	{{.Name}} {{.Type}}
{{- end}}
}

// New{{.TypeName}} constructs the network with its parameter values bound.
func New{{.TypeName}}({{.CtorParams}}) *{{.TypeName}} {
	b := &{{.TypeName}}{}
{{- range .CtorLines}}
	{{.}}
{{- end}}
	return b
}

// Spec returns the network's port declaration.
func (b *{{.TypeName}}) Spec() block.Spec {
	return block.Spec{
		Inputs:  []string{ {{range $i, $p := .InputPorts}}{{if $i}}, {{end}}{{printf "%q" $p}}{{end}} },
		Outputs: []string{ {{range $i, $p := .OutputPorts}}{{if $i}}, {{end}}{{printf "%q" $p}}{{end}} },
	}
}

// Evaluate computes outputs from inputs and committed state, staging any
// next state without making it visible.
func (b *{{.TypeName}}) Evaluate(inputs map[string]cty.Value) (map[string]cty.Value, error) {
{{- range .EvalLines}}
	{{.}}
{{- end}}
	return {{.ReturnExpr}}, nil
}

// Commit promotes every staged state.
func (b *{{.TypeName}}) Commit() {
{{- range .CommitLines}}
	{{.}}
{{- end}}
}

// Step evaluates and, on success, commits. A failed step leaves all state
// untouched.
func (b *{{.TypeName}}) Step(inputs map[string]cty.Value) (map[string]cty.Value, error) {
	out, err := b.Evaluate(inputs)
	if err != nil {
		return nil, err
	}
	b.Commit()
	return out, nil
}
`))

func (g *Generator) generateNetwork(net *model.Network) (File, error) {
	order, err := net.EvaluationOrder()
	if err != nil {
		return File{}, err
	}

	data := fileData{
		Model:       net.Name,
		Package:     g.pkg,
		TypeName:    exportedName(net.Name),
		Description: strings.TrimSuffix(net.Description, "."),
	}

	imports := map[string]string{
		`"github.com/zclconf/go-cty/cty"`:       "",
		`"` + modulePath + `/internal/block"`:   "",
		`"` + modulePath + `/internal/clock"`:   "",
	}

	ctorParams := []string{"clk *clock.Clock"}
	for _, p := range net.Parameters {
		goType, err := goParamType(p.Type)
		if err != nil {
			return File{}, fmt.Errorf("parameter %q: %w", p.Name, err)
		}
		ctorParams = append(ctorParams, fmt.Sprintf("%s %s", paramIdent(p.Name), goType))
	}
	data.CtorParams = strings.Join(ctorParams, ", ")

	for _, name := range order {
		inst := net.Instance(name)
		field := fieldIdent(name)

		if inst.Elementary() {
			entry, ok := g.cat.Lookup(inst.Type)
			if !ok {
				return File{}, fmt.Errorf("instance %q: unknown elementary block type %q", name, inst.Type)
			}
			pkgName := path.Base(entry.ImportPath)
			imports[`"`+entry.ImportPath+`"`] = ""
			data.Fields = append(data.Fields, fieldData{Name: field, Type: "*" + pkgName + "." + strings.TrimPrefix(entry.Constructor, "New")})

			args, err := constructorArgs(entry, inst)
			if err != nil {
				return File{}, fmt.Errorf("instance %q: %w", name, err)
			}
			data.CtorLines = append(data.CtorLines,
				fmt.Sprintf("b.%s = %s.%s(%s)", field, pkgName, entry.Constructor, strings.Join(args, ", ")))
		} else {
			if inst.Composite == nil {
				return File{}, fmt.Errorf("instance %q: composite reference %q is unresolved", name, inst.Type)
			}
			subType := exportedName(inst.Composite.Name)
			data.Fields = append(data.Fields, fieldData{Name: field, Type: "*" + subType})

			args, err := compositeArgs(inst, inst.Composite)
			if err != nil {
				return File{}, fmt.Errorf("instance %q: %w", name, err)
			}
			data.CtorLines = append(data.CtorLines,
				fmt.Sprintf("b.%s = New%s(%s)", field, subType, strings.Join(args, ", ")))
		}

		data.CommitLines = append(data.CommitLines, fmt.Sprintf("b.%s.Commit()", field))
	}

	// Route values: each instance input port maps to the expression holding
	// its source value.
	incoming := make(map[model.PortRef]model.PortRef)
	for _, c := range net.Connections {
		for _, t := range c.Targets {
			incoming[t] = c.Source
		}
	}
	used := make(map[string]bool)
	for _, src := range incoming {
		if !src.External() {
			used[src.Instance] = true
		}
	}

	errDeclared := false
	for _, name := range order {
		inst := net.Instance(name)
		field := fieldIdent(name)
		outVar := field + "Out"

		var pairs []string
		for _, port := range instanceInputs(g.cat, inst) {
			src, ok := incoming[model.PortRef{Instance: name, Port: port}]
			if !ok {
				continue
			}
			pairs = append(pairs, fmt.Sprintf("%q: %s", port, sourceExpr(src)))
		}
		arg := "nil"
		if len(pairs) > 0 {
			arg = "map[string]cty.Value{" + strings.Join(pairs, ", ") + "}"
		}

		lhs := outVar
		if !used[name] {
			lhs = "_"
		}
		op := ":="
		if lhs == "_" && errDeclared {
			op = "="
		}
		data.EvalLines = append(data.EvalLines, fmt.Sprintf("%s, err %s b.%s.Evaluate(%s)", lhs, op, field, arg))
		data.EvalLines = append(data.EvalLines, "if err != nil {")
		data.EvalLines = append(data.EvalLines, fmt.Sprintf("\treturn nil, fmt.Errorf(%q, err)", name+": %w"))
		data.EvalLines = append(data.EvalLines, "}")
		errDeclared = true
	}
	if len(order) > 0 {
		imports[`"fmt"`] = ""
	}

	var outPairs []string
	for _, p := range net.Outputs {
		src, ok := incoming[model.PortRef{Port: p.Name}]
		if !ok {
			continue
		}
		outPairs = append(outPairs, fmt.Sprintf("%q: %s", p.Name, sourceExpr(src)))
	}
	data.ReturnExpr = "map[string]cty.Value{" + strings.Join(outPairs, ", ") + "}"

	for _, p := range net.Inputs {
		data.InputPorts = append(data.InputPorts, p.Name)
	}
	for _, p := range net.Outputs {
		data.OutputPorts = append(data.OutputPorts, p.Name)
	}

	for imp := range imports {
		data.Imports = append(data.Imports, imp)
	}
	sort.Strings(data.Imports)

	var buf bytes.Buffer
	if err := fileTemplate.Execute(&buf, data); err != nil {
		return File{}, err
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return File{}, fmt.Errorf("formatting generated source: %w", err)
	}
	return File{Name: fileName(net.Name), Content: src}, nil
}

// constructorArgs renders the argument list for an elementary constructor:
// the clock first when the block is clocked, then the entry's parameters in
// declaration order.
func constructorArgs(entry *catalogue.Entry, inst *model.Instance) ([]string, error) {
	var args []string
	if entry.Clocked {
		args = append(args, "clk")
	}
	for i := range entry.Params {
		spec := &entry.Params[i]
		if refName, ok := inst.ParamRefs[spec.Name]; ok {
			args = append(args, paramIdent(refName))
			continue
		}
		if v, ok := inst.Parameters[spec.Name]; ok {
			lit, err := valueLiteral(v)
			if err != nil {
				return nil, fmt.Errorf("parameter %q: %w", spec.Name, err)
			}
			args = append(args, lit)
			continue
		}
		if spec.Default == nil {
			return nil, fmt.Errorf("missing required parameter %q", spec.Name)
		}
		lit, err := valueLiteral(*spec.Default)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", spec.Name, err)
		}
		args = append(args, lit)
	}
	return args, nil
}

// compositeArgs renders the argument list for a generated composite
// constructor: the clock, then the sub-network's declared parameters in
// declaration order.
func compositeArgs(inst *model.Instance, sub *model.Network) ([]string, error) {
	args := []string{"clk"}
	for _, p := range sub.Parameters {
		if refName, ok := inst.ParamRefs[p.Name]; ok {
			args = append(args, paramIdent(refName))
			continue
		}
		if v, ok := inst.Parameters[p.Name]; ok {
			lit, err := valueLiteral(v)
			if err != nil {
				return nil, fmt.Errorf("parameter %q: %w", p.Name, err)
			}
			args = append(args, lit)
			continue
		}
		if p.Value == cty.NilVal {
			return nil, fmt.Errorf("missing required parameter %q", p.Name)
		}
		lit, err := valueLiteral(p.Value)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", p.Name, err)
		}
		args = append(args, lit)
	}
	return args, nil
}

// instanceInputs lists the declared input ports of an instance in their
// declared order.
func instanceInputs(cat *catalogue.Registry, inst *model.Instance) []string {
	if inst.Elementary() {
		if entry, ok := cat.Lookup(inst.Type); ok {
			return entry.Inputs
		}
		return nil
	}
	if inst.Composite == nil {
		return nil
	}
	ports := make([]string, 0, len(inst.Composite.Inputs))
	for _, p := range inst.Composite.Inputs {
		ports = append(ports, p.Name)
	}
	return ports
}

func sourceExpr(src model.PortRef) string {
	if src.External() {
		return fmt.Sprintf("inputs[%q]", src.Port)
	}
	return fmt.Sprintf("%sOut[%q]", fieldIdent(src.Instance), src.Port)
}

// valueLiteral renders a cty value as a Go literal. Numbers come out as
// untyped constants so they fit both float64 and int64 parameters.
func valueLiteral(v cty.Value) (string, error) {
	if v == cty.NilVal || v.IsNull() {
		return "", fmt.Errorf("no value")
	}
	switch v.Type() {
	case cty.Number:
		return v.AsBigFloat().Text('g', -1), nil
	case cty.Bool:
		if v.True() {
			return "true", nil
		}
		return "false", nil
	default:
		return "", fmt.Errorf("cannot render %s as a Go literal", v.Type().FriendlyName())
	}
}

func goParamType(t model.PortType) (string, error) {
	switch t {
	case model.PortReal:
		return "float64", nil
	case model.PortInteger:
		return "int64", nil
	case model.PortBoolean:
		return "bool", nil
	default:
		return "", fmt.Errorf("unknown port type %q", string(t))
	}
}

// exportedName derives the generated Go type name from a network name:
// "Custom.Sub" becomes "CustomSub".
func exportedName(name string) string {
	var b strings.Builder
	upper := true
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
			if upper {
				r = r - 'a' + 'A'
			}
			b.WriteRune(r)
			upper = false
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
			upper = false
		default:
			upper = true
		}
	}
	if b.Len() == 0 {
		return "Network"
	}
	out := b.String()
	if out[0] >= '0' && out[0] <= '9' {
		out = "N" + out
	}
	return out
}

// fieldIdent derives an unexported struct field name from an instance name.
func fieldIdent(name string) string {
	exp := exportedName(name)
	return strings.ToLower(exp[:1]) + exp[1:]
}

// paramIdent derives a constructor argument name from a parameter name.
func paramIdent(name string) string {
	id := fieldIdent(name)
	switch id {
	case "clk", "b", "err", "inputs", "out":
		return id + "Param"
	}
	return id
}

func fileName(name string) string {
	return strings.ToLower(exportedName(name)) + ".go"
}
