package buffrscfg_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buffrs-dev/buffrs/buffrscfg"
)

func TestResolveDefaultsCacheUnderHome(t *testing.T) {
	t.Setenv("BUFFRS_HOME", "/tmp/buffrs-home")
	t.Setenv("BUFFRS_CACHE", "")
	t.Setenv("BUFFRS_TESTSUITE", "")

	cfg, err := buffrscfg.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/buffrs-home", cfg.Home)
	assert.Equal(t, filepath.Join("/tmp/buffrs-home", "cache"), cfg.Cache)
	assert.False(t, cfg.Testsuite)
}

func TestResolveHonorsExplicitCache(t *testing.T) {
	t.Setenv("BUFFRS_HOME", "/tmp/buffrs-home")
	t.Setenv("BUFFRS_CACHE", "/tmp/elsewhere")

	cfg, err := buffrscfg.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/elsewhere", cfg.Cache)
}

func TestResolveParsesTestsuiteFlag(t *testing.T) {
	t.Setenv("BUFFRS_HOME", "/tmp/buffrs-home")
	t.Setenv("BUFFRS_TESTSUITE", "true")

	cfg, err := buffrscfg.Resolve()
	require.NoError(t, err)
	assert.True(t, cfg.Testsuite)
}
