package lock

import (
	"os"
	"path/filepath"

	"github.com/buffrs-dev/buffrs/errs"
)

// Default returns the empty lockfile, the value a fresh project starts
// from before any install has run (SPEC_FULL supplement #6).
func Default() *Lockfile {
	return New(nil)
}

// ReadAt loads dir/FileName, returning Default() if no lockfile exists
// yet (§4.5 "installer reads the lockfile opportunistically").
func ReadAt(dir string) (*Lockfile, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, errs.Wrap(errs.KindIO, "read "+path, err)
	}
	return Parse(data)
}

// WriteAt serializes l and writes it to dir/FileName (§4.9 step 8).
func WriteAt(dir string, l *Lockfile) error {
	out, err := Marshal(l)
	if err != nil {
		return err
	}
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return errs.Wrap(errs.KindIO, "write "+path, err)
	}
	return nil
}
