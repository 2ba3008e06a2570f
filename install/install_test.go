package install_test

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buffrs-dev/buffrs/artifact"
	"github.com/buffrs-dev/buffrs/cache"
	"github.com/buffrs-dev/buffrs/errs"
	"github.com/buffrs-dev/buffrs/install"
	"github.com/buffrs-dev/buffrs/lock"
	"github.com/buffrs-dev/buffrs/manifest"
	"github.com/buffrs-dev/buffrs/name"
	"github.com/buffrs-dev/buffrs/regurl"
	_ "github.com/buffrs-dev/buffrs/registry/artifactory"
	"github.com/buffrs-dev/buffrs/registry/registrytest"
	"github.com/buffrs-dev/buffrs/version"
)

type noopCreds struct{}

func (noopCreds) Token(regurl.URI) (string, bool) { return "", false }

// buildRemotePackage assembles the tarball a registry would host for a
// trivial remote lib, keyed by pkgName@ver.
func buildRemotePackage(t *testing.T, pkgName, ver string) *artifact.Package {
	t.Helper()
	m := &manifest.Manifest{
		Edition: manifest.CurrentEdition,
		Package: &manifest.Package{
			Type:    name.Lib,
			Name:    name.MustParse(pkgName),
			Version: version.MustParse(ver),
		},
	}
	pkg, err := artifact.Assemble(m, map[string][]byte{
		pkgName + ".proto": []byte("syntax = \"proto3\";\npackage " + pkgName + ";\n"),
	})
	require.NoError(t, err)
	return pkg
}

// writeManifest writes a package Proto.toml at dir.
func writeManifest(t *testing.T, dir, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, manifest.FileName), []byte(body), 0o644))
}

func newInstaller(t *testing.T) *install.Installer {
	t.Helper()
	c, err := cache.Open(t.TempDir())
	require.NoError(t, err)
	return install.New(c, noopCreds{})
}

func TestInstallResolvesOneRemoteDependency(t *testing.T) {
	pkg := buildRemotePackage(t, "dummy", "0.1.0")

	server := registrytest.NewServer()
	server.Seed("dummy-repo", "dummy", "0.1.0", pkg.Tarball)
	httpSrv := httptest.NewServer(server.Handler())
	defer httpSrv.Close()

	dir := t.TempDir()
	writeManifest(t, dir, `
edition = "0.12"

[package]
type = "api"
name = "order-service"
version = "0.1.0"

[dependencies.dummy]
version = "=0.1.0"
registry = "`+httpSrv.URL+`"
repository = "dummy-repo"
`)

	ins := newInstaller(t)
	require.NoError(t, ins.Install(context.Background(), dir, install.Options{}))

	vendored, err := os.ReadFile(filepath.Join(dir, "proto", "vendor", "dummy", "dummy.proto"))
	require.NoError(t, err)
	assert.Contains(t, string(vendored), "package dummy;")

	lf, err := lock.ReadAt(dir)
	require.NoError(t, err)
	require.Len(t, lf.Packages, 1)
	entry := lf.Packages[0]
	assert.Equal(t, "dummy", entry.Name.String())
	assert.Equal(t, "0.1.0", entry.Version.String())
	assert.Equal(t, pkg.Digest().String(), entry.Digest.String())
}

func TestInstallUpgradeReplacesVendorAndLock(t *testing.T) {
	pkgV1 := buildRemotePackage(t, "dummy", "0.1.0")
	pkgV2 := buildRemotePackage(t, "dummy", "0.2.0")

	server := registrytest.NewServer()
	server.Seed("dummy-repo", "dummy", "0.1.0", pkgV1.Tarball)
	server.Seed("dummy-repo", "dummy", "0.2.0", pkgV2.Tarball)
	httpSrv := httptest.NewServer(server.Handler())
	defer httpSrv.Close()

	dir := t.TempDir()
	manifestBody := func(ver string) string {
		return `
edition = "0.12"

[package]
type = "api"
name = "order-service"
version = "0.1.0"

[dependencies.dummy]
version = "=` + ver + `"
registry = "` + httpSrv.URL + `"
repository = "dummy-repo"
`
	}
	writeManifest(t, dir, manifestBody("0.1.0"))

	ins := newInstaller(t)
	require.NoError(t, ins.Install(context.Background(), dir, install.Options{}))

	lf1, err := lock.ReadAt(dir)
	require.NoError(t, err)
	require.Len(t, lf1.Packages, 1)
	assert.Equal(t, "0.1.0", lf1.Packages[0].Version.String())

	writeManifest(t, dir, manifestBody("0.2.0"))
	require.NoError(t, ins.Install(context.Background(), dir, install.Options{}))

	lf2, err := lock.ReadAt(dir)
	require.NoError(t, err)
	require.Len(t, lf2.Packages, 1)
	assert.Equal(t, "0.2.0", lf2.Packages[0].Version.String())
	assert.NotEqual(t, lf1.Packages[0].Digest.String(), lf2.Packages[0].Digest.String())

	vendored, err := os.ReadFile(filepath.Join(dir, "proto", "vendor", "dummy", "dummy.proto"))
	require.NoError(t, err)
	assert.Contains(t, string(vendored), "package dummy;")
}

func TestInstallDiamondUnpacksCommonOnce(t *testing.T) {
	root := t.TempDir()

	writeManifest(t, root, `
edition = "0.12"

[package]
type = "api"
name = "root"
version = "0.1.0"

[dependencies.lib1]
path = "lib1"

[dependencies.lib2]
path = "lib2"
`)
	writeManifest(t, filepath.Join(root, "lib1"), `
edition = "0.12"

[package]
type = "api"
name = "lib1"
version = "0.1.0"

[dependencies.common]
path = "../common"
`)
	writeManifest(t, filepath.Join(root, "lib2"), `
edition = "0.12"

[package]
type = "api"
name = "lib2"
version = "0.1.0"

[dependencies.common]
path = "../common"
`)
	writeManifest(t, filepath.Join(root, "common"), `
edition = "0.12"

[package]
type = "lib"
name = "common"
version = "0.1.0"
`)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "common", "proto"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "common", "proto", "common.proto"),
		[]byte("syntax = \"proto3\";"), 0o644))

	ins := newInstaller(t)
	require.NoError(t, ins.Install(context.Background(), root, install.Options{}))

	for _, member := range []string{"lib1", "lib2", "common"} {
		info, err := os.Stat(filepath.Join(root, "proto", "vendor", member, "common.proto"))
		if member == "common" {
			require.NoError(t, err)
			assert.False(t, info.IsDir())
		} else {
			assert.True(t, os.IsNotExist(err), "common.proto must not be vendored under %s", member)
		}
	}

	// common is vendored exactly once, directly under vendor/common.
	_, err := os.Stat(filepath.Join(root, "proto", "vendor", "common", "common.proto"))
	require.NoError(t, err)
}

func TestInstallDetectsCircularLocalDependency(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, filepath.Join(root, "pkg1"), `
edition = "0.12"

[package]
type = "api"
name = "pkg1"
version = "0.1.0"

[dependencies.pkg2]
path = "../pkg2"
`)
	writeManifest(t, filepath.Join(root, "pkg2"), `
edition = "0.12"

[package]
type = "api"
name = "pkg2"
version = "0.1.0"

[dependencies.pkg1]
path = "../pkg1"
`)

	ins := newInstaller(t)
	err := ins.Install(context.Background(), filepath.Join(root, "pkg1"), install.Options{})
	require.Error(t, err)
	assert.Equal(t, errs.KindCircularDependency, errs.Of(err))
}

func TestInstallPopulatesSelfIntoVendor(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
edition = "0.12"

[package]
type = "lib"
name = "self-lib"
version = "0.1.0"
`)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "proto"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "proto", "self.proto"), []byte("syntax = \"proto3\";"), 0o644))

	ins := newInstaller(t)
	require.NoError(t, ins.Install(context.Background(), dir, install.Options{}))

	data, err := os.ReadFile(filepath.Join(dir, "proto", "vendor", "self-lib", "self.proto"))
	require.NoError(t, err)
	assert.Equal(t, "syntax = \"proto3\";", string(data))
}
