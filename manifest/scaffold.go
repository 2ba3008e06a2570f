package manifest

import (
	"os"
	"path/filepath"

	"github.com/buffrs-dev/buffrs/errs"
	"github.com/buffrs-dev/buffrs/name"
	"github.com/buffrs-dev/buffrs/version"
)

// initialVersion is the version a freshly scaffolded package starts at.
const initialVersion = "0.1.0"

// Scaffold creates a new package manifest and its proto/ source directory
// under dir (SUPPLEMENTED FEATURE: `init`/`new`). dir must already exist;
// `new` creates the named subdirectory first and calls Scaffold on it,
// while `init` calls Scaffold directly on the current directory.
func Scaffold(dir string, pkgType name.Type, pkgName name.Name) error {
	manifestPath := filepath.Join(dir, FileName)
	if _, err := os.Stat(manifestPath); err == nil {
		return errs.New(errs.KindIO, "scaffold "+manifestPath+": manifest already exists")
	}

	v, err := version.Parse(initialVersion)
	if err != nil {
		return err
	}

	m := &Manifest{
		Edition: CurrentEdition,
		Package: &Package{
			Type:    pkgType,
			Name:    pkgName,
			Version: v,
		},
		Dependencies: []Dependency{},
	}

	out, err := Marshal(m)
	if err != nil {
		return err
	}

	if err := os.WriteFile(manifestPath, out, 0o644); err != nil {
		return errs.Wrap(errs.KindIO, "scaffold "+manifestPath, err)
	}

	protoDir := filepath.Join(dir, "proto")
	if err := os.MkdirAll(protoDir, 0o755); err != nil {
		return errs.Wrap(errs.KindIO, "scaffold "+protoDir, err)
	}

	return nil
}

// TryRead loads and parses the manifest at dir/FileName, returning
// KindManifestMissing if it is not present (§4.1 try_read).
func TryRead(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.Wrap(errs.KindManifestMissing, "read "+path, err)
		}
		return nil, errs.Wrap(errs.KindIO, "read "+path, err)
	}
	return Parse(data)
}

// RequirePackageAt reads the manifest at dir and requires it to be a
// package manifest, not a workspace manifest (§4.1 require_package).
func RequirePackageAt(dir string) (*Manifest, error) {
	m, err := TryRead(dir)
	if err != nil {
		return nil, err
	}
	return m.RequirePackage()
}

// Write serializes m and writes it to dir/FileName.
func Write(m *Manifest, dir string) error {
	out, err := Marshal(m)
	if err != nil {
		return err
	}
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return errs.Wrap(errs.KindIO, "write "+path, err)
	}
	return nil
}
