package graph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buffrs-dev/buffrs/errs"
	"github.com/buffrs-dev/buffrs/graph"
	"github.com/buffrs-dev/buffrs/manifest"
	"github.com/buffrs-dev/buffrs/name"
	"github.com/buffrs-dev/buffrs/regurl"
	"github.com/buffrs-dev/buffrs/version"
)

// fakeResolver is a canned Resolver driven by maps keyed by relative
// path (local sources) and by repository (remote sources), standing in
// for the installer's real disk/registry-backed one.
type fakeResolver struct {
	local  map[string]graph.LocalInfo
	remote map[string]graph.RemoteInfo
}

func (f *fakeResolver) ResolveLocal(baseDir, relPath string) (graph.LocalInfo, error) {
	info, ok := f.local[relPath]
	if !ok {
		return graph.LocalInfo{}, errs.New(errs.KindManifestMissing, "resolve local path "+relPath)
	}
	return info, nil
}

func (f *fakeResolver) ResolveRemote(pkgName name.Name, src manifest.RemoteSource) (graph.RemoteInfo, error) {
	info, ok := f.remote[src.Repository]
	if !ok {
		return graph.RemoteInfo{}, errs.New(errs.KindPackageNotFound, "resolve remote repository "+src.Repository)
	}
	return info, nil
}

func remoteSource(t *testing.T, repository, versionReq string) manifest.RemoteSource {
	t.Helper()
	uri, err := regurl.Parse("https://my-registry.com")
	require.NoError(t, err)
	req, err := version.ParseReq(versionReq)
	require.NoError(t, err)
	return manifest.RemoteSource{Registry: uri, Repository: repository, Version: req}
}

func TestBuildSimpleRemoteGraph(t *testing.T) {
	m, err := manifest.Parse([]byte(`
edition = "0.12"

[package]
type = "api"
name = "order-service"
version = "0.1.0"

[dependencies.common-types]
version = "=1.0.0"
registry = "https://my-registry.com"
repository = "common-types"
`))
	require.NoError(t, err)

	resolver := &fakeResolver{
		remote: map[string]graph.RemoteInfo{
			"common-types": {Type: name.Lib},
		},
	}

	b := graph.NewBuilder(resolver)
	g, err := b.Build(m, "/repo")
	require.NoError(t, err)

	node, ok := g.Get(name.MustParse("common-types"))
	require.True(t, ok)
	assert.Equal(t, name.Lib, node.Type)
}

func TestBuildDetectsCircularDependency(t *testing.T) {
	m, err := manifest.Parse([]byte(`
edition = "0.12"

[package]
type = "api"
name = "order-service"
version = "0.1.0"

[dependencies.pkg-a]
path = "../pkg-a"
`))
	require.NoError(t, err)

	resolver := &fakeResolver{
		local: map[string]graph.LocalInfo{
			"../pkg-a": {
				HasType: true,
				Type:    name.Lib,
				Dependencies: []manifest.Dependency{
					{Package: name.MustParse("pkg-b"), Source: manifest.LocalSource{Path: "../pkg-b"}},
				},
				BaseDir: "/b-base",
			},
			"../pkg-b": {
				HasType: true,
				Type:    name.Lib,
				Dependencies: []manifest.Dependency{
					{Package: name.MustParse("pkg-a"), Source: manifest.LocalSource{Path: "../pkg-a"}},
				},
				BaseDir: "/a-base",
			},
		},
	}

	b := graph.NewBuilder(resolver)
	_, err = b.Build(m, "/repo")
	require.Error(t, err)
	assert.Equal(t, errs.KindCircularDependency, errs.Of(err))
}

func TestBuildRejectsLibParentDependingOnApiChild(t *testing.T) {
	m, err := manifest.Parse([]byte(`
edition = "0.12"

[dependencies.weird]
version = "=1.0.0"
registry = "https://my-registry.com"
repository = "weird"
`))
	require.NoError(t, err)

	resolver := &fakeResolver{
		remote: map[string]graph.RemoteInfo{
			"weird": {Type: name.Api},
		},
	}

	// Manually attach a lib-typed root package, since the parsed manifest
	// above has no [package] header.
	m.Package = &manifest.Package{Type: name.Lib, Name: name.MustParse("consumer"), Version: version.MustParse("1.0.0")}

	b := graph.NewBuilder(resolver)
	_, err = b.Build(m, "/repo")
	require.Error(t, err)
	assert.Equal(t, errs.KindInvalidPackageTypeDependency, errs.Of(err))
}

func TestBuildRejectsUnpinnedRemoteRequirement(t *testing.T) {
	m, err := manifest.Parse([]byte(`
edition = "0.12"

[package]
type = "api"
name = "order-service"
version = "0.1.0"

[dependencies.common-types]
version = ">=1.0.0"
registry = "https://my-registry.com"
repository = "common-types"
`))
	require.NoError(t, err)

	resolver := &fakeResolver{remote: map[string]graph.RemoteInfo{"common-types": {Type: name.Lib}}}
	b := graph.NewBuilder(resolver)
	_, err = b.Build(m, "/repo")
	require.Error(t, err)
	assert.Equal(t, errs.KindVersionNotPinned, errs.Of(err))
}

func TestBuildDetectsVersionConflictBetweenDependants(t *testing.T) {
	m, err := manifest.Parse([]byte(`
edition = "0.12"

[package]
type = "api"
name = "order-service"
version = "0.1.0"

[dependencies.pkg-a]
path = "../pkg-a"

[dependencies.pkg-b]
path = "../pkg-b"
`))
	require.NoError(t, err)

	resolver := &fakeResolver{
		local: map[string]graph.LocalInfo{
			"../pkg-a": {
				HasType: true,
				Type:    name.Api,
				Dependencies: []manifest.Dependency{
					{Package: name.MustParse("shared"), Source: remoteSource(t, "shared", "=1.0.0")},
				},
				BaseDir: "/a",
			},
			"../pkg-b": {
				HasType: true,
				Type:    name.Api,
				Dependencies: []manifest.Dependency{
					{Package: name.MustParse("shared"), Source: remoteSource(t, "shared", "=2.0.0")},
				},
				BaseDir: "/b",
			},
		},
		remote: map[string]graph.RemoteInfo{"shared": {Type: name.Lib}},
	}

	b := graph.NewBuilder(resolver)
	_, err = b.Build(m, "/repo")
	require.Error(t, err)
	assert.Equal(t, errs.KindVersionConflict, errs.Of(err))
}

func TestTopoSortOrdersDependenciesBeforeDependants(t *testing.T) {
	m, err := manifest.Parse([]byte(`
edition = "0.12"

[package]
type = "api"
name = "order-service"
version = "0.1.0"

[dependencies.pkg-a]
path = "../pkg-a"
`))
	require.NoError(t, err)

	resolver := &fakeResolver{
		local: map[string]graph.LocalInfo{
			"../pkg-a": {
				HasType: true,
				Type:    name.Lib,
				Dependencies: []manifest.Dependency{
					{Package: name.MustParse("pkg-b"), Source: manifest.LocalSource{Path: "../pkg-b"}},
				},
				BaseDir: "/a",
			},
			"../pkg-b": {HasType: true, Type: name.Lib, BaseDir: "/b"},
		},
	}

	b := graph.NewBuilder(resolver)
	g, err := b.Build(m, "/repo")
	require.NoError(t, err)

	order, err := g.TopoSort()
	require.NoError(t, err)
	require.Len(t, order, 2)
	assert.Equal(t, "pkg-b", order[0].Name.String())
	assert.Equal(t, "pkg-a", order[1].Name.String())
}
