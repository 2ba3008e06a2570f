package artifact

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/buffrs-dev/buffrs/errs"
)

// vendorDirName is the subtree CollectFiles always excludes: the
// installer's vendor directory must never be re-embedded when a local
// dependency or the self-package is re-assembled into a fresh archive
// (§4.9 steps 2/6).
const vendorDirName = "vendor"

// CollectFiles walks dir and returns every regular file found, keyed by
// its posix-relative path in the shape Assemble expects, skipping a
// top-level "vendor" subdirectory. A missing dir (a brand new lib with
// no sources yet) yields an empty set rather than an error.
func CollectFiles(dir string) (map[string][]byte, error) {
	files := make(map[string][]byte)

	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return files, nil
		}
		return nil, errs.Wrap(errs.KindIO, "stat "+dir, err)
	}

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == dir {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if rel == vendorDirName {
				return filepath.SkipDir
			}
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = data
		return nil
	})
	if walkErr != nil {
		return nil, errs.Wrap(errs.KindIO, "collect files in "+dir, walkErr)
	}
	return files, nil
}
