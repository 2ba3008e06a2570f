package cache_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buffrs-dev/buffrs/artifact"
	"github.com/buffrs-dev/buffrs/cache"
	"github.com/buffrs-dev/buffrs/manifest"
)

func samplePackage(t *testing.T) *artifact.Package {
	t.Helper()
	m, err := manifest.Parse([]byte(`
edition = "0.12"

[package]
type = "lib"
name = "common-types"
version = "1.0.0"
`))
	require.NoError(t, err)
	pkg, err := artifact.Assemble(m, map[string][]byte{"common.proto": []byte("syntax = \"proto3\";")})
	require.NoError(t, err)
	return pkg
}

func TestOpenSweepsUnknownEntries(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "garbage.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "stray-dir"), 0o755))

	_, err := cache.Open(root)
	require.NoError(t, err)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPutThenGetRoundTrip(t *testing.T) {
	root := t.TempDir()
	c, err := cache.Open(root)
	require.NoError(t, err)

	pkg := samplePackage(t)
	pkgName := pkg.Manifest.Package.Name

	require.NoError(t, c.Put(pkgName, pkg))

	got, err := c.Get(pkgName, pkg.Digest())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, pkg.Tarball, got.Tarball)
}

func TestGetReturnsNilForMissingEntry(t *testing.T) {
	root := t.TempDir()
	c, err := cache.Open(root)
	require.NoError(t, err)

	pkg := samplePackage(t)
	got, err := c.Get(pkg.Manifest.Package.Name, pkg.Digest())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPutIsIdempotent(t *testing.T) {
	root := t.TempDir()
	c, err := cache.Open(root)
	require.NoError(t, err)

	pkg := samplePackage(t)
	require.NoError(t, c.Put(pkg.Manifest.Package.Name, pkg))
	require.NoError(t, c.Put(pkg.Manifest.Package.Name, pkg))

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
