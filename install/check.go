package install

import (
	"bytes"
	"context"

	"github.com/buffrs-dev/buffrs/lock"
	"github.com/buffrs-dev/buffrs/manifest"
)

// Check reports whether dir's on-disk lockfile already matches what a
// fresh resolve would produce, without touching the vendor tree or
// rewriting the lockfile (SUPPLEMENTED FEATURE #6, CI-friendly "is the
// lockfile up to date" check). It performs the same graph
// resolution and materialization as Install, so a remote dependency is
// still fetched (and cached) to verify its digest, but nothing is
// extracted to proto/vendor.
func (ins *Installer) Check(ctx context.Context, dir string) (bool, error) {
	m, err := manifest.RequirePackageAt(dir)
	if err != nil {
		return false, err
	}

	existingLock, err := lock.ReadAt(dir)
	if err != nil {
		return false, err
	}

	fresh, err := ins.resolveLock(ctx, dir, m, existingLock)
	if err != nil {
		return false, err
	}

	want, err := lock.Marshal(existingLock)
	if err != nil {
		return false, err
	}
	got, err := lock.Marshal(fresh)
	if err != nil {
		return false, err
	}
	return bytes.Equal(want, got), nil
}
