package codegen

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/cxfgo/blocks"
	"github.com/vk/cxfgo/internal/cxf"
	"github.com/vk/cxfgo/internal/model"
)

const innerDoc = `{
  "@graph": [
    {
      "@id": "Inner",
      "@type": "CompositeBlock",
      "parameters": [{"name": "k", "type": "Real", "value": 1}],
      "inputs": [{"name": "u", "type": "Real"}],
      "outputs": [{"name": "y", "type": "Real"}],
      "instances": [
        {"@id": "gai", "type": "Buildings.Controls.OBC.CDL.Reals.MultiplyByParameter",
         "parameters": {"k": {"@id": "Inner.k"}}},
        {"@id": "intg", "type": "Buildings.Controls.OBC.CDL.Reals.Integrator",
         "parameters": {"y_start": 0.5}}
      ],
      "connections": [
        {"source": "u", "targets": ["gai.u"]},
        {"source": "gai.y", "targets": ["intg.u"]},
        {"source": "intg.y", "targets": ["y"]}
      ]
    }
  ]
}`

const outerDoc = `{
  "@graph": [
    {
      "@id": "Outer",
      "@type": "CompositeBlock",
      "inputs": [{"name": "u", "type": "Real"}],
      "outputs": [{"name": "y", "type": "Real"}],
      "instances": [
        {"@id": "lim", "type": "Buildings.Controls.OBC.CDL.Reals.Limiter",
         "parameters": {"uMax": 10, "uMin": -10}},
        {"@id": "sub", "type": "ex:Inner", "parameters": {"k": 3}}
      ],
      "connections": [
        {"source": "u", "targets": ["lim.u"]},
        {"source": "lim.y", "targets": ["sub.u"]},
        {"source": "sub.y", "targets": ["y"]}
      ]
    }
  ]
}`

func resolvedNetworks(t *testing.T) []*model.Network {
	t.Helper()
	parser := cxf.NewParser(blocks.Core())
	inner, err := parser.Parse([]byte(innerDoc))
	require.NoError(t, err)
	outer, err := parser.Parse([]byte(outerDoc))
	require.NoError(t, err)
	outer.Instance("sub").Composite = inner
	require.NoError(t, cxf.ValidateResolvedPorts(outer))
	return []*model.Network{inner, outer}
}

func TestGenerate(t *testing.T) {
	gen := New(blocks.Core(), "ctrl")
	files, err := gen.Generate(resolvedNetworks(t))
	require.NoError(t, err)
	require.Len(t, files, 2)

	t.Run("leaf-first file order", func(t *testing.T) {
		assert.Equal(t, "inner.go", files[0].Name)
		assert.Equal(t, "outer.go", files[1].Name)
	})

	inner := string(files[0].Content)
	outer := string(files[1].Content)

	t.Run("generated header and package", func(t *testing.T) {
		assert.Contains(t, inner, `// Code generated by cxfgo from CXF model "Inner". DO NOT EDIT.`)
		assert.Contains(t, inner, "package ctrl")
	})

	t.Run("network parameters become constructor arguments", func(t *testing.T) {
		assert.Contains(t, inner, "func NewInner(clk *clock.Clock, k float64) *Inner")
		assert.Contains(t, inner, "reals.NewMultiplyByParameter(k)")
	})

	t.Run("literals and defaults are bound", func(t *testing.T) {
		// y_start from the document, default gain k=1 from the catalogue,
		// clock first for clocked blocks.
		assert.Contains(t, inner, "reals.NewIntegrator(clk, 1, 0.5)")
		assert.Contains(t, outer, "reals.NewLimiter(10, -10)")
	})

	t.Run("composite instances use generated constructors", func(t *testing.T) {
		assert.Contains(t, outer, "b.sub = NewInner(clk, 3)")
	})

	t.Run("evaluation is wired in topological order with error wrapping", func(t *testing.T) {
		assert.Contains(t, inner, `b.gai.Evaluate(map[string]cty.Value{"u": inputs["u"]})`)
		assert.Contains(t, inner, `b.intg.Evaluate(map[string]cty.Value{"u": gaiOut["y"]})`)
		assert.Contains(t, inner, `fmt.Errorf("gai: %w", err)`)
		assert.Contains(t, inner, `return map[string]cty.Value{"y": intgOut["y"]}, nil`)
	})

	t.Run("two-phase surface", func(t *testing.T) {
		assert.Contains(t, inner, "func (b *Inner) Evaluate(inputs map[string]cty.Value) (map[string]cty.Value, error)")
		assert.Contains(t, inner, "func (b *Inner) Commit()")
		assert.Contains(t, inner, "b.intg.Commit()")
		assert.Contains(t, inner, "func (b *Inner) Step(inputs map[string]cty.Value) (map[string]cty.Value, error)")
	})
}

func TestGenerateIsByteDeterministic(t *testing.T) {
	gen := New(blocks.Core(), "ctrl")

	first, err := gen.Generate(resolvedNetworks(t))
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := gen.Generate(resolvedNetworks(t))
		require.NoError(t, err)
		require.Len(t, again, len(first))
		for j := range first {
			assert.Equal(t, first[j].Name, again[j].Name)
			assert.Equal(t, string(first[j].Content), string(again[j].Content), "file %s", first[j].Name)
		}
	}
}

func TestWriteFiles(t *testing.T) {
	gen := New(blocks.Core(), "ctrl")
	files, err := gen.Generate(resolvedNetworks(t))
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "out", "ctrl")
	require.NoError(t, WriteFiles(dir, files))

	for _, f := range files {
		data, err := os.ReadFile(filepath.Join(dir, f.Name))
		require.NoError(t, err)
		assert.Equal(t, f.Content, data)
	}
}

func TestGenerateRejectsUnresolvedComposite(t *testing.T) {
	parser := cxf.NewParser(blocks.Core())
	outer, err := parser.Parse([]byte(outerDoc))
	require.NoError(t, err)

	_, err = New(blocks.Core(), "ctrl").Generate([]*model.Network{outer})
	assert.ErrorContains(t, err, "is unresolved")
}

func TestExportedName(t *testing.T) {
	assert.Equal(t, "SimpleLoop", exportedName("SimpleLoop"))
	assert.Equal(t, "CustomSub", exportedName("Custom.Sub"))
	assert.Equal(t, "MyModel", exportedName("my-model"))
	assert.Equal(t, "N3way", exportedName("3way"))
	assert.Equal(t, "Network", exportedName(""))
}
