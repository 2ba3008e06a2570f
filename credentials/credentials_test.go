package credentials_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buffrs-dev/buffrs/credentials"
	"github.com/buffrs-dev/buffrs/regurl"
)

func TestLoadMissingFileIsEmptyStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.toml")
	s, err := credentials.Load(path)
	require.NoError(t, err)

	uri, err := regurl.Parse("https://my-registry.com")
	require.NoError(t, err)

	_, ok := s.Token(uri)
	assert.False(t, ok)
}

func TestLoginPersistsAcrossLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.toml")
	uri, err := regurl.Parse("https://my-registry.com")
	require.NoError(t, err)

	s, err := credentials.Load(path)
	require.NoError(t, err)
	require.NoError(t, s.Login(uri, "secret-token"))

	reloaded, err := credentials.Load(path)
	require.NoError(t, err)
	token, ok := reloaded.Token(uri)
	require.True(t, ok)
	assert.Equal(t, "secret-token", token)
}

func TestLogoutRemovesToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.toml")
	uri, err := regurl.Parse("https://my-registry.com")
	require.NoError(t, err)

	s, err := credentials.Load(path)
	require.NoError(t, err)
	require.NoError(t, s.Login(uri, "secret-token"))
	require.NoError(t, s.Logout(uri))

	_, ok := s.Token(uri)
	assert.False(t, ok)
}
