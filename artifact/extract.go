package artifact

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"

	"github.com/buffrs-dev/buffrs/errs"
)

// Extract unpacks p's tarball to dest: the destination is removed if it
// exists, recreated, then every entry is written relative to it (§4.2).
// Unknown entries (anything besides the manifest) are preserved on disk
// even though Parse ignores them in memory. Any entry that normalizes
// outside dest is rejected — this check is mandatory, not best-effort.
//
// Tar headers in a built archive carry fixed mode and size fields only
// (§4.2, §9 "deterministic archives") — no entry ever records a
// meaningful modification time, so every entry's recorded ModTime is
// the tar zero value. When preserveMTime is true, extracted files keep
// that value instead of the extraction wall-clock time, the same
// zero-valued timestamp an identical archive would produce on any
// machine; useful to a downstream build tool that treats file mtimes as
// a cache key and would otherwise see every vendor file change on every
// install even when its content didn't.
func (p *Package) Extract(dest string, preserveMTime bool) error {
	if err := os.RemoveAll(dest); err != nil {
		return errs.Wrap(errs.KindIO, "extract package to "+dest, err)
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return errs.Wrap(errs.KindIO, "extract package to "+dest, err)
	}

	gz, err := gzip.NewReader(bytes.NewReader(p.Tarball))
	if err != nil {
		return errs.Wrap(errs.KindTarballMalformed, "extract package to "+dest, err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errs.Wrap(errs.KindTarballMalformed, "extract package to "+dest, err)
		}

		target, err := safeJoin(dest, hdr.Name)
		if err != nil {
			return err
		}

		if hdr.Typeflag == tar.TypeDir {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return errs.Wrap(errs.KindIO, "extract entry \""+hdr.Name+"\"", err)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return errs.Wrap(errs.KindIO, "extract entry \""+hdr.Name+"\"", err)
		}
		f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o444)
		if err != nil {
			return errs.Wrap(errs.KindIO, "extract entry \""+hdr.Name+"\"", err)
		}
		if _, err := io.Copy(f, tr); err != nil {
			f.Close()
			return errs.Wrap(errs.KindIO, "extract entry \""+hdr.Name+"\"", err)
		}
		if err := f.Close(); err != nil {
			return errs.Wrap(errs.KindIO, "extract entry \""+hdr.Name+"\"", err)
		}
		if preserveMTime {
			if err := os.Chtimes(target, hdr.ModTime, hdr.ModTime); err != nil {
				return errs.Wrap(errs.KindIO, "set modification time on \""+hdr.Name+"\"", err)
			}
		}
	}

	return nil
}

// safeJoin joins dest and entryName, rejecting any entry that, after
// normalization, is not local to dest (zip-slip / tar-slip defense).
func safeJoin(dest, entryName string) (string, error) {
	if !filepath.IsLocal(entryName) {
		return "", errs.New(errs.KindTarballPathEscape,
			"extract entry \""+entryName+"\": escapes destination directory")
	}
	return filepath.Join(dest, entryName), nil
}
