// Package resolver loads the documents a model depends on. A composite
// instance names its definition by type tag; the resolver locates the
// matching document on disk, parses it, recurses into its own composite
// references, and wires the resolved networks into the instance tree.
package resolver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/cxfgo/internal/ctxlog"
	"github.com/vk/cxfgo/internal/cxf"
	"github.com/vk/cxfgo/internal/model"
)

// UnresolvedReferenceError reports a composite type tag for which no
// document could be located. Searched lists every path that was tried.
type UnresolvedReferenceError struct {
	Type     string
	Searched []string
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("unresolved composite reference %q (searched %s)",
		e.Type, strings.Join(e.Searched, ", "))
}

// CircularDependencyError reports a reference cycle among composite
// documents. Chain lists the type tags along the cycle, ending with the one
// that closed it.
type CircularDependencyError struct {
	Chain []string
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("circular composite dependency: %s", strings.Join(e.Chain, " -> "))
}

// Resolution is the result of resolving a root document: the root network,
// every network it transitively depends on, and a deterministic leaf-first
// ordering over them (dependencies before dependents, root last).
type Resolution struct {
	Root     *model.Network
	Networks map[string]*model.Network
	Order    []*model.Network
}

// Resolver loads and links composite documents. A resolver may be reused
// across documents; resolved networks are memoised by type tag, so two
// instances of the same composite type share one Network.
type Resolver struct {
	parser      *cxf.Parser
	searchPaths []string

	memo  map[string]*model.Network
	chain []string
	order []*model.Network
}

// New creates a resolver. Composite documents are looked up first beside the
// referencing document, then under each search path in order.
func New(parser *cxf.Parser, searchPaths []string) *Resolver {
	return &Resolver{
		parser:      parser,
		searchPaths: searchPaths,
		memo:        make(map[string]*model.Network),
	}
}

// Resolve parses the root document at path and recursively resolves every
// composite reference in it.
func (r *Resolver) Resolve(ctx context.Context, path string) (*Resolution, error) {
	log := ctxlog.FromContext(ctx)
	log.Debug("Resolving root document", "path", path)

	r.chain = nil
	r.order = nil

	root, err := r.parser.ParseFile(path)
	if err != nil {
		return nil, err
	}

	baseDir := filepath.Dir(path)
	if err := r.resolveNetwork(ctx, root, baseDir); err != nil {
		return nil, err
	}
	r.order = append(r.order, root)

	res := &Resolution{
		Root:     root,
		Networks: make(map[string]*model.Network, len(r.order)),
		Order:    r.order,
	}
	for _, net := range r.order {
		res.Networks[net.Name] = net
	}
	log.Debug("Resolution complete", "networks", len(res.Order))
	return res, nil
}

// resolveNetwork resolves every composite instance of net, then runs the
// deferred port and parameter checks that needed the resolved definitions.
func (r *Resolver) resolveNetwork(ctx context.Context, net *model.Network, baseDir string) error {
	for _, inst := range net.Instances {
		if inst.Elementary() {
			continue
		}
		sub, err := r.resolveType(ctx, inst.Type, baseDir)
		if err != nil {
			return err
		}
		inst.Composite = sub
	}
	if err := cxf.ValidateResolvedPorts(net); err != nil {
		return fmt.Errorf("network %q: %w", net.Name, err)
	}
	return nil
}

// resolveType loads the document for one composite type tag, recursing into
// its own references. Results are memoised; an in-progress entry on the
// chain means the references form a cycle.
func (r *Resolver) resolveType(ctx context.Context, typeTag, baseDir string) (*model.Network, error) {
	if net, ok := r.memo[typeTag]; ok {
		return net, nil
	}
	for i, active := range r.chain {
		if active == typeTag {
			chain := append(append([]string{}, r.chain[i:]...), typeTag)
			return nil, &CircularDependencyError{Chain: chain}
		}
	}

	path, searched := r.locate(typeTag, baseDir)
	if path == "" {
		return nil, &UnresolvedReferenceError{Type: typeTag, Searched: searched}
	}

	log := ctxlog.FromContext(ctx)
	log.Debug("Resolving composite", "type", typeTag, "path", path)

	net, err := r.parser.ParseFile(path)
	if err != nil {
		return nil, err
	}

	r.chain = append(r.chain, typeTag)
	err = r.resolveNetwork(ctx, net, filepath.Dir(path))
	r.chain = r.chain[:len(r.chain)-1]
	if err != nil {
		return nil, err
	}

	r.memo[typeTag] = net
	r.order = append(r.order, net)
	return net, nil
}

// locate maps a composite type tag onto a document path. The simple type
// name with a ".jsonld" then ".json" extension is tried beside the
// referencing document first, then under each search path in order. The
// first existing file wins.
func (r *Resolver) locate(typeTag, baseDir string) (string, []string) {
	name := (&model.Instance{Type: typeTag}).TypeName()
	dirs := append([]string{baseDir}, r.searchPaths...)

	var searched []string
	for _, dir := range dirs {
		for _, ext := range []string{".jsonld", ".json"} {
			candidate := filepath.Join(dir, name+ext)
			searched = append(searched, candidate)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate, searched
			}
		}
	}
	return "", searched
}
