package publish_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buffrs-dev/buffrs/artifact"
	"github.com/buffrs-dev/buffrs/errs"
	"github.com/buffrs-dev/buffrs/manifest"
	"github.com/buffrs-dev/buffrs/publish"
	"github.com/buffrs-dev/buffrs/regurl"
	_ "github.com/buffrs-dev/buffrs/registry/artifactory"
	"github.com/buffrs-dev/buffrs/registry/registrytest"
)

type noopCreds struct{}

func (noopCreds) Token(regurl.URI) (string, bool) { return "", false }

type fakeDirty struct {
	dirty bool
}

func (f fakeDirty) IsDirty(string) (bool, error) { return f.dirty, nil }

func writeManifest(t *testing.T, dir, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, manifest.FileName), []byte(body), 0o644))
}

func newServerURI(t *testing.T, server *registrytest.Server) regurl.URI {
	t.Helper()
	httpSrv := httptest.NewServer(server.Handler())
	t.Cleanup(httpSrv.Close)
	uri, err := regurl.Parse(httpSrv.URL)
	require.NoError(t, err)
	return uri
}

func TestPublishRefusesManifestWithoutPackageSection(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
edition = "0.12"

[dependencies]
`)
	server := registrytest.NewServer()
	uri := newServerURI(t, server)

	p := publish.New(noopCreds{}, nil)
	err := p.Publish(context.Background(), dir, publish.Options{Registry: uri, Repository: "team-protos"})
	require.Error(t, err)
	assert.Equal(t, errs.KindManifestMalformed, errs.Of(err))
}

func TestPublishUploadsTarballMatchingManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
edition = "0.12"

[package]
type = "lib"
name = "foo"
version = "0.1.0"

[dependencies]
`)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "proto"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "proto", "foo.proto"), []byte("syntax = \"proto3\";"), 0o644))

	server := registrytest.NewServer()
	uri := newServerURI(t, server)

	p := publish.New(noopCreds{}, nil)
	err := p.Publish(context.Background(), dir, publish.Options{Registry: uri, Repository: "team-protos"})
	require.NoError(t, err)
	assert.Equal(t, 1, server.PutCount("team-protos", "foo", "0.1.0"))
}

func TestPublishRefusesImplPackage(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
edition = "0.12"

[package]
type = "impl"
name = "consumer"
version = "0.1.0"

[dependencies]
`)
	server := registrytest.NewServer()
	uri := newServerURI(t, server)

	p := publish.New(noopCreds{}, nil)
	err := p.Publish(context.Background(), dir, publish.Options{Registry: uri, Repository: "team-protos"})
	require.Error(t, err)
	assert.Equal(t, errs.KindManifestMalformed, errs.Of(err))
}

func TestPublishRefusesLibWithDependencies(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
edition = "0.12"

[package]
type = "lib"
name = "bad-lib"
version = "0.1.0"

[dependencies.other]
path = "../other"
`)
	server := registrytest.NewServer()
	uri := newServerURI(t, server)

	p := publish.New(noopCreds{}, nil)
	err := p.Publish(context.Background(), dir, publish.Options{Registry: uri, Repository: "team-protos"})
	require.Error(t, err)
	// The manifest layer itself rejects a lib declaring dependencies at
	// parse time (reading it back via RequirePackageAt surfaces that).
	assert.Equal(t, errs.KindManifestMalformed, errs.Of(err))
}

func TestPublishRewritesLocalDependencyToRemote(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, `
edition = "0.12"

[package]
type = "api"
name = "order-service"
version = "0.1.0"

[dependencies.common]
path = "common"
`)
	writeManifest(t, filepath.Join(root, "common"), `
edition = "0.12"

[package]
type = "lib"
name = "common"
version = "0.2.0"

[dependencies]
`)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "common", "proto"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "common", "proto", "common.proto"), []byte("syntax = \"proto3\";"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "proto"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "proto", "order.proto"), []byte("syntax = \"proto3\";"), 0o644))

	server := registrytest.NewServer()
	uri := newServerURI(t, server)

	p := publish.New(noopCreds{}, nil)
	err := p.Publish(context.Background(), root, publish.Options{Registry: uri, Repository: "team-protos"})
	require.NoError(t, err)
	assert.Equal(t, 1, server.PutCount("team-protos", "common", "0.2.0"))

	resp, err := http.Get(uri.Base() + "/team-protos/order-service/order-service-0.1.0.tgz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	uploaded, err := artifact.Parse(body)
	require.NoError(t, err)
	require.Len(t, uploaded.Manifest.Dependencies, 1)
	remote, ok := uploaded.Manifest.Dependencies[0].Source.(manifest.RemoteSource)
	require.True(t, ok, "the local dependency on common is uploaded as a remote dependency")
	assert.Equal(t, "team-protos", remote.Repository)
	assert.Equal(t, "=0.2.0", remote.Version.String())
}

func TestPublishDiamondLocalDependencyPublishesSharedDepOnce(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, `
edition = "0.12"

[package]
type = "api"
name = "app"
version = "0.1.0"

[dependencies.b]
path = "b"

[dependencies.c]
path = "c"
`)
	writeManifest(t, filepath.Join(root, "b"), `
edition = "0.12"

[package]
type = "api"
name = "b"
version = "0.1.0"

[dependencies.d]
path = "../d"
`)
	writeManifest(t, filepath.Join(root, "c"), `
edition = "0.12"

[package]
type = "api"
name = "c"
version = "0.1.0"

[dependencies.d]
path = "../d"
`)
	writeManifest(t, filepath.Join(root, "d"), `
edition = "0.12"

[package]
type = "lib"
name = "d"
version = "0.1.0"

[dependencies]
`)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "proto"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "proto", "app.proto"), []byte("syntax = \"proto3\";"), 0o644))
	for _, pkg := range []string{"b", "c", "d"} {
		protoDir := filepath.Join(root, pkg, "proto")
		require.NoError(t, os.MkdirAll(protoDir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(protoDir, pkg+".proto"), []byte("syntax = \"proto3\";"), 0o644))
	}

	server := registrytest.NewServer()
	uri := newServerURI(t, server)

	p := publish.New(noopCreds{}, nil)
	err := p.Publish(context.Background(), root, publish.Options{Registry: uri, Repository: "team-protos"})
	require.NoError(t, err)

	assert.Equal(t, 1, server.PutCount("team-protos", "d", "0.1.0"),
		"d is reachable via both b and c but must be published exactly once")
	assert.Equal(t, 1, server.PutCount("team-protos", "b", "0.1.0"))
	assert.Equal(t, 1, server.PutCount("team-protos", "c", "0.1.0"))
}

func TestPublishRefusesWhenWorkingTreeIsDirty(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
edition = "0.12"

[package]
type = "lib"
name = "foo"
version = "0.1.0"

[dependencies]
`)
	server := registrytest.NewServer()
	uri := newServerURI(t, server)

	p := publish.New(noopCreds{}, fakeDirty{dirty: true})
	err := p.Publish(context.Background(), dir, publish.Options{Registry: uri, Repository: "team-protos"})
	require.Error(t, err)
	assert.Equal(t, errs.KindDirtyRepository, errs.Of(err))
}

func TestPublishDryRunSkipsUpload(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
edition = "0.12"

[package]
type = "lib"
name = "foo"
version = "0.1.0"

[dependencies]
`)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "proto"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "proto", "foo.proto"), []byte("syntax = \"proto3\";"), 0o644))

	server := registrytest.NewServer()
	uri := newServerURI(t, server)

	p := publish.New(noopCreds{}, nil)
	err := p.Publish(context.Background(), dir, publish.Options{Registry: uri, Repository: "team-protos", DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 0, server.PutCount("team-protos", "foo", "0.1.0"))
}
