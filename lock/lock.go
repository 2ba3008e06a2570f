// Package lock implements Proto.lock: an immutable, name-sorted snapshot
// of the remote package identities an install resolved, guarded by a
// top-level digest over its own contents (§4.5, §6).
package lock

import (
	"bytes"
	"sort"

	"github.com/pelletier/go-toml/v2"

	"github.com/buffrs-dev/buffrs/digest"
	"github.com/buffrs-dev/buffrs/errs"
	"github.com/buffrs-dev/buffrs/name"
	"github.com/buffrs-dev/buffrs/regurl"
	"github.com/buffrs-dev/buffrs/version"
)

// FileName is the well-known lockfile name (§6).
const FileName = "Proto.lock"

// lockVersion is the lockfile format version tag.
const lockVersion = 1

// LockedPackage is an immutable record of one resolved remote
// dependency (§3). Local dependencies are never locked.
type LockedPackage struct {
	Name         name.Name
	Version      version.Version
	Registry     regurl.URI
	Repository   string
	Digest       digest.Digest
	Dependants   int
	Dependencies []name.Name
}

// Lockfile is the name-sorted set of LockedPackage entries plus an
// aggregate digest over the canonical serialization (§3, §4.5).
type Lockfile struct {
	Packages []LockedPackage
}

type rawLockfile struct {
	Version int             `toml:"version"`
	Digest  string          `toml:"digest"`
	Package []rawLockedPkg  `toml:"package"`
}

type rawLockedPkg struct {
	Name         string   `toml:"name"`
	Version      string   `toml:"version"`
	Registry     string   `toml:"registry"`
	Repository   string   `toml:"repository"`
	Digest       string   `toml:"digest"`
	Dependants   int      `toml:"dependants"`
	Dependencies []string `toml:"dependencies"`
}

// New builds a Lockfile from packages, sorting entries by name (§3
// invariant: "entries are sorted by name to ensure byte-stable output").
func New(packages []LockedPackage) *Lockfile {
	sorted := make([]LockedPackage, len(packages))
	copy(sorted, packages)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Name.String() < sorted[j].Name.String()
	})
	return &Lockfile{Packages: sorted}
}

// Get returns the locked entry for n, if present.
func (l *Lockfile) Get(n name.Name) (LockedPackage, bool) {
	for _, pkg := range l.Packages {
		if pkg.Name.Equal(n) {
			return pkg, true
		}
	}
	return LockedPackage{}, false
}

func toRaw(pkg LockedPackage) rawLockedPkg {
	deps := make([]string, len(pkg.Dependencies))
	for i, d := range pkg.Dependencies {
		deps[i] = d.String()
	}
	return rawLockedPkg{
		Name:         pkg.Name.String(),
		Version:      pkg.Version.String(),
		Registry:     pkg.Registry.String(),
		Repository:   pkg.Repository,
		Digest:       pkg.Digest.String(),
		Dependants:   pkg.Dependants,
		Dependencies: deps,
	}
}

func fromRaw(raw rawLockedPkg) (LockedPackage, error) {
	n, err := name.Parse(raw.Name)
	if err != nil {
		return LockedPackage{}, err
	}
	v, err := version.Parse(raw.Version)
	if err != nil {
		return LockedPackage{}, err
	}
	uri, err := regurl.Parse(raw.Registry)
	if err != nil {
		return LockedPackage{}, err
	}
	d, err := digest.Parse(raw.Digest)
	if err != nil {
		return LockedPackage{}, err
	}
	deps := make([]name.Name, len(raw.Dependencies))
	for i, depName := range raw.Dependencies {
		depN, err := name.Parse(depName)
		if err != nil {
			return LockedPackage{}, err
		}
		deps[i] = depN
	}
	return LockedPackage{
		Name:         n,
		Version:      v,
		Registry:     uri,
		Repository:   raw.Repository,
		Digest:       d,
		Dependants:   raw.Dependants,
		Dependencies: deps,
	}, nil
}

// canonicalBody serializes the package list only (no digest field),
// which is the content the aggregate digest covers.
func canonicalBody(l *Lockfile) ([]byte, error) {
	raw := rawLockfile{Version: lockVersion}
	raw.Package = make([]rawLockedPkg, len(l.Packages))
	for i, pkg := range l.Packages {
		raw.Package[i] = toRaw(pkg)
	}
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(raw); err != nil {
		return nil, errs.Wrap(errs.KindIO, "serialize "+FileName, err)
	}
	return buf.Bytes(), nil
}

// Marshal serializes l to its TOML wire form, computing and embedding
// the top-level aggregate digest (§3, §6).
func Marshal(l *Lockfile) ([]byte, error) {
	body, err := canonicalBody(l)
	if err != nil {
		return nil, err
	}
	sum := digest.FromBytes(body)

	raw := rawLockfile{Version: lockVersion, Digest: sum.String()}
	raw.Package = make([]rawLockedPkg, len(l.Packages))
	for i, pkg := range l.Packages {
		raw.Package[i] = toRaw(pkg)
	}
	out, err := toml.Marshal(raw)
	if err != nil {
		return nil, errs.Wrap(errs.KindIO, "serialize "+FileName, err)
	}
	return out, nil
}

// Parse decodes a Proto.lock document and verifies its aggregate digest
// against the recomputed canonical body, failing with CacheCorruption on
// a manual-edit mismatch (§4.5 "protects against manual edits").
func Parse(data []byte) (*Lockfile, error) {
	var raw rawLockfile
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, errs.Wrap(errs.KindIO, "parse "+FileName, err)
	}

	packages := make([]LockedPackage, len(raw.Package))
	for i, rawPkg := range raw.Package {
		pkg, err := fromRaw(rawPkg)
		if err != nil {
			return nil, err
		}
		packages[i] = pkg
	}
	l := &Lockfile{Packages: packages}

	if raw.Digest != "" {
		want, err := digest.Parse(raw.Digest)
		if err != nil {
			return nil, err
		}
		body, err := canonicalBody(l)
		if err != nil {
			return nil, err
		}
		got := digest.FromBytes(body)
		if !got.Equal(want) {
			return nil, errs.New(errs.KindCacheCorruption, "parse "+FileName+": aggregate digest does not match lockfile contents")
		}
	}

	return l, nil
}
