// Package manifest implements the Proto.toml data model: parsing,
// serialization, and the package-vs-workspace variant rules of §4.1.
package manifest

import (
	"sort"

	"github.com/pelletier/go-toml/v2"

	"github.com/buffrs-dev/buffrs/errs"
	"github.com/buffrs-dev/buffrs/name"
	"github.com/buffrs-dev/buffrs/version"
)

// FileName is the well-known manifest file name (§6).
const FileName = "Proto.toml"

// Package describes the `[package]` header of a package manifest (§3,
// §6).
type Package struct {
	Type        name.Type
	Name        name.Name
	Version     version.Version
	Description string
}

// Workspace describes the `[workspace]` block of a workspace manifest
// (§3, §4.11, §6).
type Workspace struct {
	Members []string
	Exclude []string
}

// Manifest is either a package manifest or a workspace manifest,
// mutually exclusive within a single document (§3, §4.1).
type Manifest struct {
	Edition Edition

	// Package is non-nil only for a package manifest. It may itself be
	// nil even on a package manifest, since the `[package]` header is
	// optional (§3).
	Package *Package

	// Dependencies is non-nil for a package manifest (possibly an empty
	// slice) and always nil for a workspace manifest.
	Dependencies []Dependency

	// Workspace is non-nil only for a workspace manifest.
	Workspace *Workspace
}

// IsPackage reports whether m is a package manifest.
func (m *Manifest) IsPackage() bool {
	return m.Workspace == nil
}

// IsWorkspace reports whether m is a workspace manifest.
func (m *Manifest) IsWorkspace() bool {
	return m.Workspace != nil
}

// rawManifest is the literal TOML wire shape (§6). A nil
// map/pointer means "key entirely absent"; the presence, not the
// contents, of package/dependencies vs. workspace is what the factory
// in Parse discriminates on (§4.1).
type rawManifest struct {
	Edition      string                   `toml:"edition"`
	Package      *rawPackage              `toml:"package,omitempty"`
	Dependencies map[string]rawDependency `toml:"dependencies,omitempty"`
	Workspace    *rawWorkspace            `toml:"workspace,omitempty"`
}

type rawPackage struct {
	Type        string `toml:"type"`
	Name        string `toml:"name"`
	Version     string `toml:"version"`
	Description string `toml:"description,omitempty"`
}

type rawDependency struct {
	Version    string `toml:"version,omitempty"`
	Registry   string `toml:"registry,omitempty"`
	Repository string `toml:"repository,omitempty"`
	Path       string `toml:"path,omitempty"`
}

type rawWorkspace struct {
	Members []string `toml:"members,omitempty"`
	Exclude []string `toml:"exclude,omitempty"`
}

// Parse decodes a Proto.toml document, applying the package-vs-workspace
// factory rule of §4.1: a workspace block with no package header and no
// dependencies key is a workspace manifest; a package header or a
// dependencies key (possibly empty) with no workspace block is a package
// manifest; any other combination is ManifestMixedVariant.
func Parse(data []byte) (*Manifest, error) {
	var raw rawManifest
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, errs.Wrap(errs.KindManifestMalformed, "parse "+FileName, err)
	}

	// Either a [package] header or a dependencies key marks a package
	// manifest; a package with no dependencies may omit the table.
	isPackage := raw.Package != nil || raw.Dependencies != nil
	hasWorkspace := raw.Workspace != nil

	switch {
	case isPackage && hasWorkspace:
		return nil, errs.New(errs.KindManifestMixedVariant,
			"parse "+FileName+": manifest cannot have both a package/dependencies and a workspace section")
	case !isPackage && !hasWorkspace:
		return nil, errs.New(errs.KindManifestMixedVariant,
			"parse "+FileName+": manifest must have either a package/dependencies or a workspace section")
	case hasWorkspace:
		return parseWorkspaceManifest(raw)
	default:
		return parsePackageManifest(raw)
	}
}

func parseWorkspaceManifest(raw rawManifest) (*Manifest, error) {
	return &Manifest{
		Edition: normalizeEdition(raw.Edition),
		Workspace: &Workspace{
			Members: raw.Workspace.Members,
			Exclude: raw.Workspace.Exclude,
		},
	}, nil
}

func parsePackageManifest(raw rawManifest) (*Manifest, error) {
	m := &Manifest{
		Edition:      normalizeEdition(raw.Edition),
		Dependencies: make([]Dependency, 0, len(raw.Dependencies)),
	}

	if raw.Package != nil {
		pkg, err := packageFromRaw(*raw.Package)
		if err != nil {
			return nil, err
		}
		m.Package = &pkg
	}

	names := make([]string, 0, len(raw.Dependencies))
	for depName := range raw.Dependencies {
		names = append(names, depName)
	}
	sort.Strings(names)

	for _, depName := range names {
		dep, err := dependencyFromRaw(depName, raw.Dependencies[depName])
		if err != nil {
			return nil, err
		}
		m.Dependencies = append(m.Dependencies, dep)
	}

	if m.Package != nil && m.Package.Type == name.Lib && len(m.Dependencies) > 0 {
		return nil, errs.New(errs.KindManifestMalformed, "parse "+FileName+": lib packages cannot declare dependencies")
	}

	return m, nil
}

func packageFromRaw(raw rawPackage) (Package, error) {
	typ, err := name.ParseType(raw.Type)
	if err != nil {
		return Package{}, err
	}
	n, err := name.Parse(raw.Name)
	if err != nil {
		return Package{}, err
	}
	v, err := version.Parse(raw.Version)
	if err != nil {
		return Package{}, err
	}
	return Package{Type: typ, Name: n, Version: v, Description: raw.Description}, nil
}

// Marshal serializes m to its TOML wire form, always emitting
// CurrentEdition (§4.1: "the current edition is emitted on write").
func Marshal(m *Manifest) ([]byte, error) {
	raw := rawManifest{Edition: string(CurrentEdition)}

	if m.IsWorkspace() {
		raw.Workspace = &rawWorkspace{
			Members: m.Workspace.Members,
			Exclude: m.Workspace.Exclude,
		}
	} else {
		raw.Dependencies = make(map[string]rawDependency, len(m.Dependencies))
		for _, dep := range m.Dependencies {
			raw.Dependencies[dep.Package.String()] = dependencyToRaw(dep)
		}
		if m.Package != nil {
			raw.Package = &rawPackage{
				Type:        m.Package.Type.String(),
				Name:        m.Package.Name.String(),
				Version:     m.Package.Version.String(),
				Description: m.Package.Description,
			}
		}
	}

	out, err := toml.Marshal(raw)
	if err != nil {
		return nil, errs.Wrap(errs.KindIO, "serialize "+FileName, err)
	}
	return out, nil
}

// RequirePackage returns m if it is a package manifest, or a
// ManifestMixedVariant error otherwise (§4.1 require_package).
func (m *Manifest) RequirePackage() (*Manifest, error) {
	if m.IsWorkspace() {
		return nil, errs.New(errs.KindManifestMixedVariant, "require package manifest: found a workspace manifest")
	}
	return m, nil
}

// AddDependency appends or replaces dep in m's dependency list, keeping
// it sorted by name so repeated writes stay byte-stable (SPEC_FULL
// supplement #2).
func (m *Manifest) AddDependency(dep Dependency) error {
	if m.IsWorkspace() {
		return errs.New(errs.KindManifestMixedVariant, "add dependency: manifest is a workspace manifest")
	}
	if m.Package != nil && m.Package.Type == name.Lib {
		return errs.New(errs.KindManifestMalformed, "add dependency: lib packages cannot declare dependencies")
	}

	replaced := false
	for i, existing := range m.Dependencies {
		if existing.Package.Equal(dep.Package) {
			m.Dependencies[i] = dep
			replaced = true
			break
		}
	}
	if !replaced {
		m.Dependencies = append(m.Dependencies, dep)
	}

	sort.Slice(m.Dependencies, func(i, j int) bool {
		return m.Dependencies[i].Package.String() < m.Dependencies[j].Package.String()
	})
	return nil
}

// RemoveDependency removes the dependency named n from m, if present.
// Removing an absent dependency is not an error (§7's "uninstall-style
// cleanups may ignore 'not found'" propagation exception, applied here
// to `buffrs remove`).
func (m *Manifest) RemoveDependency(n name.Name) error {
	if m.IsWorkspace() {
		return errs.New(errs.KindManifestMixedVariant, "remove dependency: manifest is a workspace manifest")
	}
	out := m.Dependencies[:0]
	for _, dep := range m.Dependencies {
		if !dep.Package.Equal(n) {
			out = append(out, dep)
		}
	}
	m.Dependencies = out
	return nil
}
