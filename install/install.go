// Package install implements the installer pipeline: resolve a
// manifest's dependency graph, materialize every node through the
// content cache and registry, and unpack the result into the vendor
// tree, recording a fresh lockfile (§4.9, §8 properties 6/7, E1-E6).
package install

import (
	"context"
	"os"
	"path/filepath"

	"github.com/buffrs-dev/buffrs/artifact"
	"github.com/buffrs-dev/buffrs/cache"
	"github.com/buffrs-dev/buffrs/credentials"
	"github.com/buffrs-dev/buffrs/errs"
	"github.com/buffrs-dev/buffrs/graph"
	"github.com/buffrs-dev/buffrs/internal/dlog"
	"github.com/buffrs-dev/buffrs/lock"
	"github.com/buffrs-dev/buffrs/manifest"
	"github.com/buffrs-dev/buffrs/workspace"
)

// ProtoDirName is the directory, relative to a package's manifest, that
// holds its own (non-vendored) proto sources (§6 "Vendor layout").
const ProtoDirName = "proto"

// VendorDirName is the directory, relative to ProtoDirName, that is
// wholly cleared and repopulated on each install (§3 "Vendor directory").
const VendorDirName = "vendor"

// Options configures a single install run.
type Options struct {
	// PreserveMTime requests that extracted files keep the archive's
	// recorded modification time (always the tar zero value, since
	// built archives carry fixed mode/size fields only, §4.2) instead of
	// the extraction wall-clock time. Has no bearing on any property in
	// §8; it exists for downstream tooling that treats file mtimes as a
	// build cache key.
	PreserveMTime bool
}

// Installer performs the install pipeline against a shared content
// cache and credentials provider (§4.9).
type Installer struct {
	Cache       *cache.Cache
	Credentials credentials.Provider
}

// New constructs an Installer.
func New(c *cache.Cache, creds credentials.Provider) *Installer {
	return &Installer{Cache: c, Credentials: creds}
}

// Install installs the manifest at dir. For a workspace manifest, every
// member is installed in turn, each with its own lockfile beside its own
// manifest (§4.9 "For workspace manifests, resolve members and install
// each in turn").
func (ins *Installer) Install(ctx context.Context, dir string, opts Options) error {
	m, err := manifest.TryRead(dir)
	if err != nil {
		return err
	}

	if m.IsWorkspace() {
		members, err := workspace.Resolve(dir, m.Workspace)
		if err != nil {
			return err
		}
		if len(members) == 0 {
			return errs.New(errs.KindWorkspaceMemberNotFound, "install workspace "+dir+": no members resolved")
		}
		for _, member := range members {
			if _, err := ins.installPackage(ctx, member, opts); err != nil {
				return err
			}
		}
		return nil
	}

	_, err = ins.installPackage(ctx, dir, opts)
	return err
}

// Clean idempotently removes dir's vendor tree (SUPPLEMENTED feature #5,
// §7 "uninstall-style cleanups may ignore not found").
func Clean(dir string) error {
	vendorDir := filepath.Join(dir, ProtoDirName, VendorDirName)
	if err := os.RemoveAll(vendorDir); err != nil {
		return errs.Wrap(errs.KindIO, "clean vendor directory "+vendorDir, err)
	}
	return nil
}

func (ins *Installer) installPackage(ctx context.Context, dir string, opts Options) (*lock.Lockfile, error) {
	m, err := manifest.RequirePackageAt(dir)
	if err != nil {
		return nil, err
	}

	logEntry := dlog.From(ctx)
	if m.Package != nil {
		logEntry = dlog.WithPackage(ctx, m.Package.Name.String(), m.Package.Version.String())
	}
	logEntry.Info("installing dependencies")

	// Step 1: clear the vendor directory.
	if err := Clean(dir); err != nil {
		return nil, err
	}

	// Step 2: populate the self-package into the vendor tree, if it
	// declares one with sources on disk.
	if err := ins.populate(dir, m); err != nil {
		return nil, err
	}

	// Step 3: build the dependency graph.
	existingLock, err := lock.ReadAt(dir)
	if err != nil {
		return nil, err
	}
	resolver, order, dependants, err := ins.resolve(ctx, dir, m, existingLock)
	if err != nil {
		return nil, err
	}

	// Steps 5-7: materialize and unpack every node in order.
	vendorDir := filepath.Join(dir, ProtoDirName, VendorDirName)
	var locked []lock.LockedPackage

	for _, node := range order {
		pkg, err := ins.materialize(resolver, node)
		if err != nil {
			return nil, err
		}

		target := filepath.Join(vendorDir, node.Name.String())
		if err := pkg.Extract(target, opts.PreserveMTime); err != nil {
			return nil, err
		}

		if entry, ok := lockedEntry(node, pkg, dependants); ok {
			locked = append(locked, entry)
		}
	}

	// Step 8: write the new lockfile.
	newLock := lock.New(locked)
	if err := lock.WriteAt(dir, newLock); err != nil {
		return nil, err
	}

	return newLock, nil
}

// resolve builds m's dependency graph from dir and returns it in
// topological order alongside each node's dependants count (§4.9 steps
// 3-4).
func (ins *Installer) resolve(ctx context.Context, dir string, m *manifest.Manifest, existingLock *lock.Lockfile) (*diskResolver, []*graph.Node, map[string]int, error) {
	resolver := newDiskResolver(ctx, ins.Cache, ins.Credentials, existingLock)
	g, err := graph.NewBuilder(resolver).Build(m, dir)
	if err != nil {
		return nil, nil, nil, err
	}

	order, err := g.TopoSort()
	if err != nil {
		return nil, nil, nil, err
	}
	return resolver, order, dependantCounts(g), nil
}

// resolveLock computes the lockfile a fresh install would produce,
// without extracting anything to the vendor tree (used by Check).
func (ins *Installer) resolveLock(ctx context.Context, dir string, m *manifest.Manifest, existingLock *lock.Lockfile) (*lock.Lockfile, error) {
	resolver, order, dependants, err := ins.resolve(ctx, dir, m, existingLock)
	if err != nil {
		return nil, err
	}

	var locked []lock.LockedPackage
	for _, node := range order {
		pkg, err := ins.materialize(resolver, node)
		if err != nil {
			return nil, err
		}
		if entry, ok := lockedEntry(node, pkg, dependants); ok {
			locked = append(locked, entry)
		}
	}
	return lock.New(locked), nil
}

// lockedEntry builds the LockedPackage record for node if it is a
// remote dependency; local dependencies are never locked (§3).
func lockedEntry(node *graph.Node, pkg *artifact.Package, dependants map[string]int) (lock.LockedPackage, bool) {
	remote, ok := node.Source.(manifest.RemoteSource)
	if !ok {
		return lock.LockedPackage{}, false
	}
	_, v := remote.Version.Pinned()
	return lock.LockedPackage{
		Name:         node.Name,
		Version:      v,
		Registry:     remote.Registry,
		Repository:   remote.Repository,
		Digest:       pkg.Digest(),
		Dependants:   dependants[node.Name.String()],
		Dependencies: node.Dependencies,
	}, true
}

// materialize produces the in-memory package for node: a local node is
// re-assembled fresh from disk every install (§4.9 step 6), while a
// remote node was already fetched (registry or cache) during graph
// construction and is simply handed back.
func (ins *Installer) materialize(r *diskResolver, node *graph.Node) (*artifact.Package, error) {
	switch src := node.Source.(type) {
	case manifest.LocalSource:
		return assembleLocal(node.Dir)
	case manifest.RemoteSource:
		pkg, err := r.fetch(node.Name, src)
		if err != nil {
			return nil, err
		}
		return pkg, nil
	default:
		return nil, errs.New(errs.KindManifestMalformed, "materialize \""+node.Name.String()+"\": unknown dependency source")
	}
}

// dependantCounts returns each node's in-degree within g — the number of
// other in-graph nodes that name it as a dependency (§3 "LockedPackage
// ... dependants count is the in-degree in the resolved graph").
func dependantCounts(g *graph.Graph) map[string]int {
	counts := make(map[string]int)
	for _, node := range g.Nodes() {
		for _, dep := range node.Dependencies {
			if _, ok := g.Get(dep); ok {
				counts[dep.String()]++
			}
		}
	}
	return counts
}

// localDepDir resolves relPath relative to baseDir, the directory of the
// manifest declaring the dependency (§3 "Local ... interpreted relative
// to the enclosing manifest").
func localDepDir(baseDir, relPath string) (string, error) {
	if baseDir == "" {
		return "", errs.New(errs.KindManifestMalformed, "resolve local path \""+relPath+"\": no base directory in context")
	}
	return filepath.Join(baseDir, relPath), nil
}
