package manifest

import (
	"github.com/buffrs-dev/buffrs/errs"
	"github.com/buffrs-dev/buffrs/name"
	"github.com/buffrs-dev/buffrs/regurl"
	"github.com/buffrs-dev/buffrs/version"
)

// Source is the sealed interface implemented by RemoteSource and
// LocalSource (§3 "Dependency").
type Source interface {
	isDependencySource()
}

// RemoteSource pulls a package from a registry at a pinned-or-not
// version requirement (pinning is not checked here at parse time; the
// graph builder and the registry clients' Download reject an unpinned
// requirement with VersionNotPinned; §4.4, §7).
type RemoteSource struct {
	Registry   regurl.URI
	Repository string
	Version    version.Req
}

func (RemoteSource) isDependencySource() {}

// LocalSource resolves a dependency from a filesystem path, interpreted
// relative to the enclosing manifest (§3).
type LocalSource struct {
	Path string
}

func (LocalSource) isDependencySource() {}

// Dependency pairs a validated package name with its source.
type Dependency struct {
	Package name.Name
	Source  Source
}

// IsLocal reports whether the dependency resolves from the filesystem.
func (d Dependency) IsLocal() bool {
	_, ok := d.Source.(LocalSource)
	return ok
}

// IsRemote reports whether the dependency resolves from a registry.
func (d Dependency) IsRemote() bool {
	_, ok := d.Source.(RemoteSource)
	return ok
}

func dependencyFromRaw(pkgName string, raw rawDependency) (Dependency, error) {
	n, err := name.Parse(pkgName)
	if err != nil {
		return Dependency{}, err
	}

	isLocal := raw.Path != ""
	isRemote := raw.Version != "" || raw.Registry != "" || raw.Repository != ""

	switch {
	case isLocal && isRemote:
		return Dependency{}, errs.New(errs.KindManifestMalformed,
			"dependency \""+pkgName+"\" declares both a local path and remote registry fields")
	case isLocal:
		return Dependency{Package: n, Source: LocalSource{Path: raw.Path}}, nil
	case isRemote:
		if raw.Version == "" || raw.Registry == "" || raw.Repository == "" {
			return Dependency{}, errs.New(errs.KindManifestMalformed,
				"remote dependency \""+pkgName+"\" must set version, registry, and repository")
		}
		req, err := version.ParseReq(raw.Version)
		if err != nil {
			return Dependency{}, err
		}
		uri, err := regurl.Parse(raw.Registry)
		if err != nil {
			return Dependency{}, err
		}
		return Dependency{
			Package: n,
			Source: RemoteSource{
				Registry:   uri,
				Repository: raw.Repository,
				Version:    req,
			},
		}, nil
	default:
		return Dependency{}, errs.New(errs.KindManifestMalformed,
			"dependency \""+pkgName+"\" declares neither a local path nor remote registry fields")
	}
}

func dependencyToRaw(d Dependency) rawDependency {
	switch src := d.Source.(type) {
	case LocalSource:
		return rawDependency{Path: src.Path}
	case RemoteSource:
		return rawDependency{
			Version:    src.Version.String(),
			Registry:   src.Registry.String(),
			Repository: src.Repository,
		}
	default:
		return rawDependency{}
	}
}
