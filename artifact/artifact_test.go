package artifact_test

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buffrs-dev/buffrs/artifact"
	"github.com/buffrs-dev/buffrs/errs"
	"github.com/buffrs-dev/buffrs/manifest"
)

func samplePackageManifest(t *testing.T) *manifest.Manifest {
	t.Helper()
	m, err := manifest.Parse([]byte(`
edition = "0.12"

[package]
type = "lib"
name = "common-types"
version = "1.0.0"
`))
	require.NoError(t, err)
	return m
}

func TestAssembleIsDeterministic(t *testing.T) {
	m := samplePackageManifest(t)
	files := map[string][]byte{
		"common.proto": []byte("syntax = \"proto3\";"),
		"a/nested.proto": []byte("syntax = \"proto3\";"),
	}

	pkg1, err := artifact.Assemble(m, files)
	require.NoError(t, err)
	pkg2, err := artifact.Assemble(m, files)
	require.NoError(t, err)

	assert.Equal(t, pkg1.Tarball, pkg2.Tarball)
	assert.True(t, pkg1.Digest().Equal(pkg2.Digest()))
}

func TestAssembleThenParseRoundTrip(t *testing.T) {
	m := samplePackageManifest(t)
	files := map[string][]byte{"common.proto": []byte("syntax = \"proto3\";")}

	pkg, err := artifact.Assemble(m, files)
	require.NoError(t, err)

	parsed, err := artifact.Parse(pkg.Tarball)
	require.NoError(t, err)
	assert.Equal(t, m.Package.Name.String(), parsed.Manifest.Package.Name.String())
}

func TestParseRejectsTarballWithoutManifest(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	content := []byte("syntax = \"proto3\";")
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "common.proto", Mode: 0o444, Size: int64(len(content))}))
	_, err := tw.Write(content)
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())

	_, err = artifact.Parse(buf.Bytes())
	require.Error(t, err)
	assert.Equal(t, errs.KindTarballMalformed, errs.Of(err))
}

func TestExtractWritesFilesUnderDest(t *testing.T) {
	m := samplePackageManifest(t)
	files := map[string][]byte{"common.proto": []byte("syntax = \"proto3\";")}
	pkg, err := artifact.Assemble(m, files)
	require.NoError(t, err)

	dest := t.TempDir()
	require.NoError(t, pkg.Extract(dest, false))

	data, err := os.ReadFile(filepath.Join(dest, "common.proto"))
	require.NoError(t, err)
	assert.Equal(t, files["common.proto"], data)

	_, err = os.Stat(filepath.Join(dest, manifest.FileName))
	require.NoError(t, err)
}

func TestExtractRejectsPathEscape(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	manifestBytes, err := manifest.Marshal(samplePackageManifest(t))
	require.NoError(t, err)
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: manifest.FileName, Mode: 0o444, Size: int64(len(manifestBytes))}))
	_, err = tw.Write(manifestBytes)
	require.NoError(t, err)

	evil := []byte("rm -rf /")
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "../../etc/evil", Mode: 0o444, Size: int64(len(evil))}))
	_, err = tw.Write(evil)
	require.NoError(t, err)

	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())

	pkg := &artifact.Package{Manifest: samplePackageManifest(t), Tarball: buf.Bytes()}
	dest := t.TempDir()
	err = pkg.Extract(filepath.Join(dest, "sub"), false)
	require.Error(t, err)
	assert.Equal(t, errs.KindTarballPathEscape, errs.Of(err))
}

func TestExtractPreservesArchiveModTimeWhenRequested(t *testing.T) {
	m := samplePackageManifest(t)
	files := map[string][]byte{"common.proto": []byte("syntax = \"proto3\";")}
	pkg, err := artifact.Assemble(m, files)
	require.NoError(t, err)

	dest := t.TempDir()
	require.NoError(t, pkg.Extract(dest, true))

	info, err := os.Stat(filepath.Join(dest, "common.proto"))
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(time.Unix(0, 0)),
		"built archives carry no meaningful mtime (§4.2 fixed mode/size fields only); a zero Header.ModTime round-trips as the Unix epoch, and preserving it yields that same epoch timestamp on disk")
}
