package workspace_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buffrs-dev/buffrs/errs"
	"github.com/buffrs-dev/buffrs/manifest"
	"github.com/buffrs-dev/buffrs/workspace"
)

func makeMember(t *testing.T, root, relDir string) {
	t.Helper()
	dir := filepath.Join(root, relDir)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, manifest.FileName), []byte("edition = \"0.12\"\n[dependencies]\n"), 0o644))
}

func TestResolveDefaultsToWildcard(t *testing.T) {
	root := t.TempDir()
	makeMember(t, root, "pkg1")
	makeMember(t, root, "pkg2")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "not-a-member"), 0o755))

	members, err := workspace.Resolve(root, &manifest.Workspace{})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "pkg1"), filepath.Join(root, "pkg2")}, members)
}

func TestResolveLiteralAndGlobMembers(t *testing.T) {
	root := t.TempDir()
	makeMember(t, root, "pkg1")
	makeMember(t, root, "libs/a")
	makeMember(t, root, "libs/b")
	makeMember(t, root, "libs/internal-only")

	ws := &manifest.Workspace{
		Members: []string{"pkg1", "libs/*"},
		Exclude: []string{"libs/internal*"},
	}

	members, err := workspace.Resolve(root, ws)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "libs/a"),
		filepath.Join(root, "libs/b"),
		filepath.Join(root, "pkg1"),
	}, members)
}

func TestResolveErrorsOnMissingLiteralMember(t *testing.T) {
	root := t.TempDir()
	ws := &manifest.Workspace{Members: []string{"does-not-exist"}}

	_, err := workspace.Resolve(root, ws)
	require.Error(t, err)
	assert.Equal(t, errs.KindWorkspaceMemberNotFound, errs.Of(err))
}
