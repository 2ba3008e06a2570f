// Package publish implements the publisher pipeline: pre-flight dirty
// checks, tarball assembly, recursive local-dependency publication with
// in-memory manifest rewrites, and the final upload (§4.10, E1).
package publish

import (
	"context"
	"path/filepath"

	"github.com/buffrs-dev/buffrs/artifact"
	"github.com/buffrs-dev/buffrs/credentials"
	"github.com/buffrs-dev/buffrs/errs"
	"github.com/buffrs-dev/buffrs/install"
	"github.com/buffrs-dev/buffrs/internal/dlog"
	"github.com/buffrs-dev/buffrs/manifest"
	"github.com/buffrs-dev/buffrs/name"
	"github.com/buffrs-dev/buffrs/regurl"
	"github.com/buffrs-dev/buffrs/registry"
	"github.com/buffrs-dev/buffrs/version"
)

// Options configures a single publish run.
type Options struct {
	Registry   regurl.URI
	Repository string

	// VersionOverride, if non-nil, replaces the top-level package's
	// manifest version before assembly (§4.10 step 2). It is never
	// applied to local dependencies published along the way — each
	// keeps its own manifest version.
	VersionOverride *version.Version

	// DryRun skips the final registry.Publish call but still runs
	// pre-flight checks, assembly, and (for local dependencies) the
	// recursive rewrite pass (§4.10 step 5).
	DryRun bool

	// AllowDirty skips the working-tree cleanliness check (§4.10 step 1).
	AllowDirty bool
}

// DirtyChecker reports whether dir's working tree has uncommitted
// changes. It models "version control integration" as an external
// collaborator (§4.10 step 1): a nil DirtyChecker on Publisher means no
// VCS integration is enabled, and the check is skipped entirely.
type DirtyChecker interface {
	IsDirty(dir string) (bool, error)
}

// Publisher performs the publish pipeline against a registry reached
// through Credentials.
type Publisher struct {
	Credentials credentials.Provider
	Dirty       DirtyChecker
}

// New constructs a Publisher. dirty may be nil to disable the
// pre-flight working-tree check entirely.
func New(creds credentials.Provider, dirty DirtyChecker) *Publisher {
	return &Publisher{Credentials: creds, Dirty: dirty}
}

// Publish runs the full pipeline for the package manifest at dir
// (§4.10).
func (p *Publisher) Publish(ctx context.Context, dir string, opts Options) error {
	if p.Dirty != nil && !opts.AllowDirty {
		dirty, err := p.Dirty.IsDirty(dir)
		if err != nil {
			return err
		}
		if dirty {
			return errs.New(errs.KindDirtyRepository,
				"publish "+dir+": working tree has uncommitted changes (pass --allow-dirty to override)")
		}
	}

	client, err := registry.New(opts.Registry, p.Credentials)
	if err != nil {
		return err
	}

	visiting := make(map[string]bool)
	published := make(map[string]manifest.RemoteSource)
	_, err = p.publishOne(ctx, client, dir, opts, opts.VersionOverride, visiting, published)
	return err
}

// publishOne publishes the package at dir, recursively publishing any
// local dependencies first and rewriting them to remote references that
// point at the coordinates they were just published under (§4.10 step
// 4). It returns the RemoteSource a parent manifest should rewrite its
// own reference to dir's package to.
//
// published records, for the lifetime of a single Publish call, the
// RemoteSource each local directory was already rewritten to, keyed by
// absolute path. In a diamond local-dependency graph (root depends on
// both B and C, which both depend on local D), D is published exactly
// once; every subsequent reference to it is served from published
// instead of triggering a second recursive publish, so siblings and
// dependants all see the same remote identity (spec.md §4.10 step 4:
// "Record the rewrites so siblings and dependants see the same remote
// identity").
func (p *Publisher) publishOne(ctx context.Context, client registry.Client, dir string, opts Options, versionOverride *version.Version, visiting map[string]bool, published map[string]manifest.RemoteSource) (manifest.RemoteSource, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		absDir = dir
	}

	if cached, ok := published[absDir]; ok {
		return cached, nil
	}

	m, err := manifest.RequirePackageAt(dir)
	if err != nil {
		return manifest.RemoteSource{}, err
	}
	if m.Package == nil {
		return manifest.RemoteSource{}, errs.New(errs.KindManifestMalformed, "publish "+dir+": manifest has no [package] section")
	}

	pkgName := m.Package.Name.String()

	if !m.Package.Type.IsPublishable() {
		return manifest.RemoteSource{}, errs.New(errs.KindManifestMalformed,
			"publish \""+pkgName+"\": impl packages cannot be published")
	}
	if m.Package.Type == name.Lib && len(m.Dependencies) > 0 {
		return manifest.RemoteSource{}, errs.New(errs.KindManifestMalformed,
			"publish \""+pkgName+"\": lib packages cannot declare dependencies")
	}

	if visiting[absDir] {
		return manifest.RemoteSource{}, errs.New(errs.KindCircularDependency,
			"publish \""+pkgName+"\": circular local dependency")
	}
	visiting[absDir] = true
	defer delete(visiting, absDir)

	if versionOverride != nil {
		m.Package.Version = *versionOverride
	}

	rewritten := *m
	rewritten.Dependencies = make([]manifest.Dependency, len(m.Dependencies))
	for i, dep := range m.Dependencies {
		local, ok := dep.Source.(manifest.LocalSource)
		if !ok {
			rewritten.Dependencies[i] = dep
			continue
		}

		childDir := filepath.Join(dir, local.Path)
		childRemote, err := p.publishOne(ctx, client, childDir, opts, nil, visiting, published)
		if err != nil {
			return manifest.RemoteSource{}, err
		}
		rewritten.Dependencies[i] = manifest.Dependency{Package: dep.Package, Source: childRemote}
	}

	logEntry := dlog.WithPackage(ctx, pkgName, m.Package.Version.String())
	logEntry.Info("publishing package")

	files, err := artifact.CollectFiles(filepath.Join(dir, install.ProtoDirName))
	if err != nil {
		return manifest.RemoteSource{}, err
	}

	pkg, err := artifact.Assemble(&rewritten, files)
	if err != nil {
		return manifest.RemoteSource{}, err
	}

	if opts.DryRun {
		logEntry.Info("dry run: skipping upload")
	} else if err := client.Publish(ctx, pkg, opts.Repository); err != nil {
		return manifest.RemoteSource{}, err
	}

	pinned, err := version.ParseReq("=" + m.Package.Version.String())
	if err != nil {
		return manifest.RemoteSource{}, err
	}

	result := manifest.RemoteSource{
		Registry:   opts.Registry,
		Repository: opts.Repository,
		Version:    pinned,
	}
	published[absDir] = result
	return result, nil
}
