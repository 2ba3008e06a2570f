// Package cache implements the content-addressed local store that sits
// astride every install: a flat directory of `{name}.{alg}.{hex}.tgz`
// files, swept clean of anything else each time it is opened (§4.6).
package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/buffrs-dev/buffrs/artifact"
	"github.com/buffrs-dev/buffrs/digest"
	"github.com/buffrs-dev/buffrs/errs"
	"github.com/buffrs-dev/buffrs/name"
)

var entryPattern = regexp.MustCompile(`^([a-z][a-z0-9-]{2,127})\.([a-z0-9]+)\.([0-9a-f]+)\.tgz$`)

// Cache is a content-addressed local store rooted at a directory.
type Cache struct {
	root string
}

// Open creates root if missing and sweeps it: any subdirectory is
// removed, and any file whose name does not match the
// `{name}.{alg}.{hex}.tgz` schema is removed (§4.6 steps 1-2).
func Open(root string) (*Cache, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errs.Wrap(errs.KindIO, "open cache at "+root, err)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, errs.Wrap(errs.KindIO, "open cache at "+root, err)
	}

	for _, entry := range entries {
		path := filepath.Join(root, entry.Name())
		if entry.IsDir() {
			if err := os.RemoveAll(path); err != nil {
				return nil, errs.Wrap(errs.KindIO, "sweep cache at "+root, err)
			}
			continue
		}
		if !entryPattern.MatchString(entry.Name()) {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return nil, errs.Wrap(errs.KindIO, "sweep cache at "+root, err)
			}
		}
	}

	return &Cache{root: root}, nil
}

func fileName(pkgName name.Name, d digest.Digest) string {
	return fmt.Sprintf("%s.%s.%s.tgz", pkgName.String(), d.Algorithm(), d.Hex())
}

// Get returns the parsed Package addressed by pkgName and d, or
// (nil, nil) if no such file exists. Digest validation against the
// lockfile is the caller's responsibility, not Get's (§4.6).
func (c *Cache) Get(pkgName name.Name, d digest.Digest) (*artifact.Package, error) {
	path := filepath.Join(c.root, fileName(pkgName, d))
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errs.Wrap(errs.KindIO, "read cache entry "+path, err)
	}

	pkg, err := artifact.Parse(data)
	if err != nil {
		return nil, err
	}
	return pkg, nil
}

// Put writes pkg's tarball to its content-addressed file name,
// atomically via write-to-temp-then-rename, and is idempotent: writing
// identical content twice produces the same file (§4.6).
func (c *Cache) Put(pkgName name.Name, pkg *artifact.Package) error {
	target := filepath.Join(c.root, fileName(pkgName, pkg.Digest()))

	if _, err := os.Stat(target); err == nil {
		return nil
	}

	tmp, err := os.CreateTemp(c.root, ".cache-*.tmp")
	if err != nil {
		return errs.Wrap(errs.KindIO, "write cache entry "+target, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(pkg.Tarball); err != nil {
		tmp.Close()
		return errs.Wrap(errs.KindIO, "write cache entry "+target, err)
	}
	if err := tmp.Close(); err != nil {
		return errs.Wrap(errs.KindIO, "write cache entry "+target, err)
	}

	if err := os.Rename(tmpPath, target); err != nil {
		return errs.Wrap(errs.KindIO, "write cache entry "+target, err)
	}
	return nil
}
