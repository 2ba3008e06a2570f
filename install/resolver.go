package install

import (
	"context"

	"github.com/buffrs-dev/buffrs/artifact"
	"github.com/buffrs-dev/buffrs/cache"
	"github.com/buffrs-dev/buffrs/credentials"
	"github.com/buffrs-dev/buffrs/digest"
	"github.com/buffrs-dev/buffrs/errs"
	"github.com/buffrs-dev/buffrs/graph"
	"github.com/buffrs-dev/buffrs/internal/dlog"
	"github.com/buffrs-dev/buffrs/lock"
	"github.com/buffrs-dev/buffrs/manifest"
	"github.com/buffrs-dev/buffrs/name"
	"github.com/buffrs-dev/buffrs/regurl"
	"github.com/buffrs-dev/buffrs/registry"
)

// diskResolver implements graph.Resolver against the real filesystem,
// content cache, and registry network, per §4.7's "the builder does not
// download or unpack; it only constructs the graph" — for a remote
// source, resolving metadata means fetching (and caching) the whole
// artifact, since the registry client exposes no lighter-weight metadata
// call beyond LatestVersion (which answers a different question).
// Packages fetched here are kept around so the installer's
// materialization pass (§4.9 steps 6-7) does not re-fetch them.
type diskResolver struct {
	ctx   context.Context
	cache *cache.Cache
	creds credentials.Provider
	lock  *lock.Lockfile

	clients  map[string]registry.Client
	resolved map[string]*artifact.Package
}

func newDiskResolver(ctx context.Context, c *cache.Cache, creds credentials.Provider, lf *lock.Lockfile) *diskResolver {
	return &diskResolver{
		ctx:      ctx,
		cache:    c,
		creds:    creds,
		lock:     lf,
		clients:  make(map[string]registry.Client),
		resolved: make(map[string]*artifact.Package),
	}
}

func (r *diskResolver) ResolveLocal(baseDir, relPath string) (graph.LocalInfo, error) {
	dir, err := localDepDir(baseDir, relPath)
	if err != nil {
		return graph.LocalInfo{}, err
	}

	m, err := manifest.RequirePackageAt(dir)
	if err != nil {
		return graph.LocalInfo{}, err
	}

	info := graph.LocalInfo{Dependencies: m.Dependencies, BaseDir: dir}
	if m.Package != nil {
		info.Type = m.Package.Type
		info.HasType = true
	}
	return info, nil
}

func (r *diskResolver) ResolveRemote(pkgName name.Name, src manifest.RemoteSource) (graph.RemoteInfo, error) {
	pkg, err := r.fetch(pkgName, src)
	if err != nil {
		return graph.RemoteInfo{}, err
	}

	info := graph.RemoteInfo{Dependencies: pkg.Manifest.Dependencies}
	if pkg.Manifest.Package != nil {
		info.Type = pkg.Manifest.Package.Type
	}
	return info, nil
}

// fetch resolves pkgName per §4.5: a matching lock entry backed by a
// cache hit short-circuits the network; otherwise the registry is
// consulted and the cache is backfilled. The resolved package is
// memoized so the installer's later unpack step reuses it.
func (r *diskResolver) fetch(pkgName name.Name, src manifest.RemoteSource) (*artifact.Package, error) {
	if pkg, ok := r.resolved[pkgName.String()]; ok {
		return pkg, nil
	}

	pinned, v := src.Version.Pinned()
	if !pinned {
		return nil, errs.New(errs.KindVersionNotPinned,
			"resolve \""+pkgName.String()+"\": version requirement is not pinned")
	}

	entry, locked := r.lock.Get(pkgName)

	if locked && entry.Version.Equal(v) {
		cached, err := r.cache.Get(pkgName, entry.Digest)
		if err != nil {
			return nil, err
		}
		if cached != nil {
			if err := digest.Verify(cached.Tarball, entry.Digest); err != nil {
				return nil, errs.Wrap(errs.KindCacheCorruption,
					"resolve \""+pkgName.String()+"\": cached artifact does not match lockfile digest", err)
			}
			r.resolved[pkgName.String()] = cached
			return cached, nil
		}
	}

	client, err := r.clientFor(src.Registry)
	if err != nil {
		return nil, err
	}

	dep := manifest.Dependency{Package: pkgName, Source: src}
	pkg, err := client.Download(r.ctx, dep)
	if err != nil {
		return nil, err
	}

	if locked && entry.Version.Equal(v) && !pkg.Digest().Equal(entry.Digest) {
		return nil, errs.New(errs.KindDigestMismatch,
			"resolve \""+pkgName.String()+"\": downloaded artifact digest does not match lockfile entry")
	}

	if err := r.cache.Put(pkgName, pkg); err != nil {
		dlog.WithPackage(r.ctx, pkgName.String(), v.String()).WithError(err).Warn("failed to cache downloaded package")
	}

	r.resolved[pkgName.String()] = pkg
	return pkg, nil
}

func (r *diskResolver) clientFor(uri regurl.URI) (registry.Client, error) {
	key := uri.String()
	if c, ok := r.clients[key]; ok {
		return c, nil
	}
	c, err := registry.New(uri, r.creds)
	if err != nil {
		return nil, err
	}
	r.clients[key] = c
	return c, nil
}
