// Package graph builds and orders the dependency graph from a package
// manifest: recursive depth-first construction with cycle and
// compatibility checks (§4.7), followed by Kahn's algorithm for a
// deterministic "dependencies before dependants" ordering (§4.8). The
// builder never downloads or unpacks package contents itself; it is
// parameterized over a Resolver that supplies whatever metadata each
// source kind requires.
package graph

import (
	"path/filepath"
	"sort"

	"github.com/buffrs-dev/buffrs/errs"
	"github.com/buffrs-dev/buffrs/manifest"
	"github.com/buffrs-dev/buffrs/name"
	"github.com/buffrs-dev/buffrs/version"
)

// Node is one resolved dependency: its name, package type (if known),
// source, direct dependency names, and (for remote nodes) the version
// requirement that selected it (§3).
type Node struct {
	Name         name.Name
	Type         name.Type
	HasType      bool
	Source       manifest.Source
	Dependencies []name.Name
	Requirement  version.Req

	// Dir is the absolute directory a local node's own relative
	// dependencies resolve against — i.e. the directory holding the
	// local dependency's own Proto.toml. Unset for remote nodes; the
	// installer re-assembles a local node's tarball from this
	// directory (§4.9 step 6).
	Dir string
}

// Graph is the resolved dependency graph: a name-keyed map of nodes with
// edges implicit in each node's Dependencies list (§3).
type Graph struct {
	nodes map[string]*Node
}

// Get returns the node named n, if present.
func (g *Graph) Get(n name.Name) (*Node, bool) {
	node, ok := g.nodes[n.String()]
	return node, ok
}

// Nodes returns every node in the graph, sorted by name.
func (g *Graph) Nodes() []*Node {
	keys := make([]string, 0, len(g.nodes))
	for k := range g.nodes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*Node, len(keys))
	for i, k := range keys {
		out[i] = g.nodes[k]
	}
	return out
}

func (g *Graph) add(node *Node) {
	g.nodes[node.Name.String()] = node
}

// LocalInfo is what a Resolver returns for a local (filesystem) source:
// the child package's declared type (if any), its direct dependencies,
// and the directory its own relative paths resolve against.
type LocalInfo struct {
	Type         name.Type
	HasType      bool
	Dependencies []manifest.Dependency
	BaseDir      string
}

// RemoteInfo is what a Resolver returns for a remote source: lightweight
// metadata only, never the downloaded artifact itself (§4.7).
type RemoteInfo struct {
	Type         name.Type
	Dependencies []manifest.Dependency
}

// Resolver supplies per-source metadata during graph construction.
// Implementations backed by the real installer read local manifests from
// disk and query the registry/cache for remote metadata; test
// implementations can return canned data.
type Resolver interface {
	ResolveLocal(baseDir, relPath string) (LocalInfo, error)
	ResolveRemote(pkgName name.Name, src manifest.RemoteSource) (RemoteInfo, error)
}

// Builder constructs a Graph from a root manifest via recursive
// depth-first traversal (§4.7).
type Builder struct {
	resolver Resolver
}

// NewBuilder returns a Builder that consults r for per-source metadata.
func NewBuilder(r Resolver) *Builder {
	return &Builder{resolver: r}
}

// Build walks m's dependencies (and their transitive dependencies)
// starting from rootDir, the directory containing m, producing a Graph.
func (b *Builder) Build(m *manifest.Manifest, rootDir string) (*Graph, error) {
	g := &Graph{nodes: make(map[string]*Node)}
	visiting := make(map[string]bool)

	var rootType name.Type
	rootHasType := m.Package != nil
	if rootHasType {
		rootType = m.Package.Type
	}

	for _, dep := range m.Dependencies {
		if err := b.visit(g, visiting, rootDir, rootType, rootHasType, dep); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func (b *Builder) visit(g *Graph, visiting map[string]bool, baseDir string, parentType name.Type, parentHasType bool, dep manifest.Dependency) error {
	key := dep.Package.String()

	if visiting[key] {
		return errs.New(errs.KindCircularDependency, "resolve dependency \""+key+"\": circular dependency detected")
	}

	if existing, ok := g.nodes[key]; ok {
		return reconcile(existing, dep)
	}

	visiting[key] = true
	defer delete(visiting, key)

	switch src := dep.Source.(type) {
	case manifest.LocalSource:
		return b.visitLocal(g, visiting, baseDir, parentType, parentHasType, dep, src)
	case manifest.RemoteSource:
		return b.visitRemote(g, visiting, parentType, parentHasType, dep, src)
	default:
		return errs.New(errs.KindManifestMalformed, "resolve dependency \""+key+"\": unknown dependency source")
	}
}

func (b *Builder) visitLocal(g *Graph, visiting map[string]bool, baseDir string, parentType name.Type, parentHasType bool, dep manifest.Dependency, src manifest.LocalSource) error {
	info, err := b.resolver.ResolveLocal(baseDir, src.Path)
	if err != nil {
		return err
	}

	if err := checkTypeRule(parentType, parentHasType, info.Type, info.HasType, dep.Package); err != nil {
		return err
	}

	childBase := filepath.Join(baseDir, src.Path)
	if info.BaseDir != "" {
		childBase = info.BaseDir
	}

	g.add(&Node{
		Name:         dep.Package,
		Type:         info.Type,
		HasType:      info.HasType,
		Source:       dep.Source,
		Dependencies: depNames(info.Dependencies),
		Dir:          childBase,
	})

	for _, sub := range info.Dependencies {
		if err := b.visit(g, visiting, childBase, info.Type, info.HasType, sub); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) visitRemote(g *Graph, visiting map[string]bool, parentType name.Type, parentHasType bool, dep manifest.Dependency, src manifest.RemoteSource) error {
	if pinned, _ := src.Version.Pinned(); !pinned {
		return errs.New(errs.KindVersionNotPinned,
			"resolve dependency \""+dep.Package.String()+"\": version requirement is not pinned")
	}

	info, err := b.resolver.ResolveRemote(dep.Package, src)
	if err != nil {
		return err
	}

	if err := checkTypeRule(parentType, parentHasType, info.Type, true, dep.Package); err != nil {
		return err
	}

	g.add(&Node{
		Name:         dep.Package,
		Type:         info.Type,
		HasType:      true,
		Source:       dep.Source,
		Dependencies: depNames(info.Dependencies),
		Requirement:  src.Version,
	})

	for _, sub := range info.Dependencies {
		if err := b.visit(g, visiting, "", info.Type, true, sub); err != nil {
			return err
		}
	}
	return nil
}

// checkTypeRule enforces §3 invariant (d): a `lib` parent cannot depend
// on an `api` child.
func checkTypeRule(parentType name.Type, parentHasType bool, childType name.Type, childHasType bool, childName name.Name) error {
	if parentHasType && childHasType && name.ViolatesEdgeRule(parentType, childType) {
		return errs.New(errs.KindInvalidPackageTypeDependency,
			"resolve dependency \""+childName.String()+"\": lib packages cannot depend on api packages")
	}
	return nil
}

// reconcile validates a repeated reference to an already-resolved node:
// local/remote sources must agree, and remote version requirements must
// intersect (§3 invariant (c), §4.7 step 2).
func reconcile(existing *Node, dep manifest.Dependency) error {
	switch src := dep.Source.(type) {
	case manifest.LocalSource:
		if _, ok := existing.Source.(manifest.LocalSource); !ok {
			return errs.New(errs.KindLocalRemoteConflict,
				"resolve dependency \""+dep.Package.String()+"\": both local and remote sources requested")
		}
		return nil
	case manifest.RemoteSource:
		existingRemote, ok := existing.Source.(manifest.RemoteSource)
		if !ok {
			return errs.New(errs.KindLocalRemoteConflict,
				"resolve dependency \""+dep.Package.String()+"\": both local and remote sources requested")
		}
		if !existingRemote.Version.Intersects(src.Version) {
			return errs.New(errs.KindVersionConflict,
				"resolve dependency \""+dep.Package.String()+"\": conflicting version requirements")
		}
		return nil
	default:
		return nil
	}
}

func depNames(deps []manifest.Dependency) []name.Name {
	out := make([]name.Name, len(deps))
	for i, d := range deps {
		out[i] = d.Package
	}
	return out
}
