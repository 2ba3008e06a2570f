package install

import (
	"os"
	"path/filepath"

	"github.com/buffrs-dev/buffrs/artifact"
	"github.com/buffrs-dev/buffrs/errs"
	"github.com/buffrs-dev/buffrs/manifest"
)

// populate copies the self-package's own proto tree into
// proto/vendor/<self-name>/, so downstream codegen can glob self and
// dependencies uniformly (§4.9 step 2, SUPPLEMENTED feature #4). A
// manifest with no [package] header, or a package with no proto sources
// on disk yet, leaves the vendor tree untouched.
func (ins *Installer) populate(dir string, m *manifest.Manifest) error {
	if m.Package == nil {
		return nil
	}

	protoDir := filepath.Join(dir, ProtoDirName)
	files, err := artifact.CollectFiles(protoDir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return nil
	}

	selfDir := filepath.Join(protoDir, VendorDirName, m.Package.Name.String())
	for rel, data := range files {
		target := filepath.Join(selfDir, rel)
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return errs.Wrap(errs.KindIO, "populate self package into "+selfDir, err)
		}
		if err := os.WriteFile(target, data, 0o444); err != nil {
			return errs.Wrap(errs.KindIO, "populate self package into "+selfDir, err)
		}
	}
	return nil
}

// assembleLocal re-assembles a local dependency's tarball from its
// on-disk source directory (§4.9 step 6): read its manifest, collect its
// proto/ tree, and build the same archive publish would have produced.
func assembleLocal(depDir string) (*artifact.Package, error) {
	m, err := manifest.RequirePackageAt(depDir)
	if err != nil {
		return nil, err
	}
	files, err := artifact.CollectFiles(filepath.Join(depDir, ProtoDirName))
	if err != nil {
		return nil, err
	}
	return artifact.Assemble(m, files)
}
