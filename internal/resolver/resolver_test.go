package resolver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/cxfgo/blocks"
	"github.com/vk/cxfgo/internal/cxf"
)

func writeDoc(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// passthrough is a minimal composite: one Abs between its ports.
func passthrough(id string) string {
	return fmt.Sprintf(`{
  "@graph": [
    {
      "@id": %q,
      "@type": "CompositeBlock",
      "inputs": [{"name": "u", "type": "Real"}],
      "outputs": [{"name": "y", "type": "Real"}],
      "instances": [{"@id": "a", "type": "Buildings.Controls.OBC.CDL.Reals.Abs"}],
      "connections": [
        {"source": "u", "targets": ["a.u"]},
        {"source": "a.y", "targets": ["y"]}
      ]
    }
  ]
}`, id)
}

// wrapper is a composite delegating to one instance of the given type.
func wrapper(id, subType string) string {
	return fmt.Sprintf(`{
  "@graph": [
    {
      "@id": %q,
      "@type": "CompositeBlock",
      "inputs": [{"name": "u", "type": "Real"}],
      "outputs": [{"name": "y", "type": "Real"}],
      "instances": [{"@id": "sub", "type": %q}],
      "connections": [
        {"source": "u", "targets": ["sub.u"]},
        {"source": "sub.y", "targets": ["y"]}
      ]
    }
  ]
}`, id, subType)
}

func newResolver(searchPaths ...string) *Resolver {
	return New(cxf.NewParser(blocks.Core()), searchPaths)
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	searchDir := t.TempDir()

	root := writeDoc(t, dir, "Root.jsonld", `{
  "@graph": [
    {
      "@id": "Root",
      "@type": "CompositeBlock",
      "inputs": [{"name": "u", "type": "Real"}],
      "outputs": [{"name": "y", "type": "Real"}],
      "instances": [
        {"@id": "s1", "type": "ex:Inner"},
        {"@id": "s2", "type": "ex:Inner"}
      ],
      "connections": [
        {"source": "u", "targets": ["s1.u"]},
        {"source": "s1.y", "targets": ["s2.u"]},
        {"source": "s2.y", "targets": ["y"]}
      ]
    }
  ]
}`)
	writeDoc(t, dir, "Inner.jsonld", wrapper("Inner", "ex:Leaf"))
	writeDoc(t, searchDir, "Leaf.jsonld", passthrough("Leaf"))

	res, err := newResolver(searchDir).Resolve(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, "Root", res.Root.Name)

	t.Run("order is leaf-first with the root last", func(t *testing.T) {
		require.Len(t, res.Order, 3)
		assert.Equal(t, "Leaf", res.Order[0].Name)
		assert.Equal(t, "Inner", res.Order[1].Name)
		assert.Equal(t, "Root", res.Order[2].Name)
	})

	t.Run("networks are indexed by name", func(t *testing.T) {
		assert.Contains(t, res.Networks, "Leaf")
		assert.Contains(t, res.Networks, "Inner")
		assert.Same(t, res.Root, res.Networks["Root"])
	})

	t.Run("instances of the same type share one network", func(t *testing.T) {
		s1 := res.Root.Instance("s1")
		s2 := res.Root.Instance("s2")
		require.NotNil(t, s1.Composite)
		assert.Same(t, s1.Composite, s2.Composite)
	})

	t.Run("nested references resolve transitively", func(t *testing.T) {
		inner := res.Root.Instance("s1").Composite
		sub := inner.Instance("sub")
		require.NotNil(t, sub.Composite)
		assert.Equal(t, "Leaf", sub.Composite.Name)
	})
}

func TestResolveJSONExtensionFallback(t *testing.T) {
	dir := t.TempDir()
	root := writeDoc(t, dir, "Root.jsonld", wrapper("Root", "ex:Inner"))
	writeDoc(t, dir, "Inner.json", passthrough("Inner"))

	res, err := newResolver().Resolve(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, "Inner", res.Root.Instance("sub").Composite.Name)
}

func TestResolveSearchPathOrder(t *testing.T) {
	dir := t.TempDir()
	first := t.TempDir()
	second := t.TempDir()

	root := writeDoc(t, dir, "Root.jsonld", wrapper("Root", "ex:Inner"))
	writeDoc(t, first, "Inner.jsonld", passthrough("InnerFromFirst"))
	writeDoc(t, second, "Inner.jsonld", passthrough("InnerFromSecond"))

	res, err := newResolver(first, second).Resolve(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, "InnerFromFirst", res.Root.Instance("sub").Composite.Name)
}

func TestResolveUnresolvedReference(t *testing.T) {
	dir := t.TempDir()
	searchDir := t.TempDir()
	root := writeDoc(t, dir, "Root.jsonld", wrapper("Root", "ex:Ghost"))

	_, err := newResolver(searchDir).Resolve(context.Background(), root)
	require.Error(t, err)

	var unresolved *UnresolvedReferenceError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, "ex:Ghost", unresolved.Type)
	assert.Contains(t, unresolved.Searched, filepath.Join(dir, "Ghost.jsonld"))
	assert.Contains(t, unresolved.Searched, filepath.Join(dir, "Ghost.json"))
	assert.Contains(t, unresolved.Searched, filepath.Join(searchDir, "Ghost.jsonld"))
}

func TestResolveCircularDependency(t *testing.T) {
	dir := t.TempDir()
	root := writeDoc(t, dir, "A.jsonld", wrapper("A", "ex:B"))
	writeDoc(t, dir, "B.jsonld", wrapper("B", "ex:A"))

	_, err := newResolver().Resolve(context.Background(), root)
	require.Error(t, err)

	var circular *CircularDependencyError
	require.ErrorAs(t, err, &circular)
	assert.Equal(t, []string{"ex:B", "ex:A", "ex:B"}, circular.Chain)
	assert.ErrorContains(t, err, "ex:B -> ex:A -> ex:B")
}

func TestResolveSelfReference(t *testing.T) {
	dir := t.TempDir()
	root := writeDoc(t, dir, "Selfish.jsonld", wrapper("Selfish", "ex:Selfish"))

	_, err := newResolver().Resolve(context.Background(), root)
	require.Error(t, err)

	var circular *CircularDependencyError
	require.ErrorAs(t, err, &circular)
	assert.Equal(t, []string{"ex:Selfish", "ex:Selfish"}, circular.Chain)
}

func TestResolveDeferredPortValidation(t *testing.T) {
	dir := t.TempDir()
	root := writeDoc(t, dir, "Root.jsonld", `{
  "@graph": [
    {
      "@id": "Root",
      "@type": "CompositeBlock",
      "inputs": [{"name": "u", "type": "Real"}],
      "outputs": [{"name": "y", "type": "Real"}],
      "instances": [{"@id": "sub", "type": "ex:Inner"}],
      "connections": [
        {"source": "u", "targets": ["sub.nope"]},
        {"source": "sub.y", "targets": ["y"]}
      ]
    }
  ]
}`)
	writeDoc(t, dir, "Inner.jsonld", passthrough("Inner"))

	_, err := newResolver().Resolve(context.Background(), root)
	assert.ErrorContains(t, err, `has no input "nope"`)
}
