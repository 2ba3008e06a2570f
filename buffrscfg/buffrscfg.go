// Package buffrscfg resolves the small set of environment variables that
// govern where the home directory, content cache, and test-suite
// behavior live (§6).
package buffrscfg

import (
	"os"
	"path/filepath"
	"strconv"
)

const (
	envHome      = "BUFFRS_HOME"
	envCache     = "BUFFRS_CACHE"
	envTestsuite = "BUFFRS_TESTSUITE"
)

// Config is the resolved set of environment-derived paths and flags.
type Config struct {
	Home      string
	Cache     string
	Testsuite bool
}

// Resolve reads the environment and applies the documented defaults:
// BUFFRS_HOME defaults to "~/.buffrs"; BUFFRS_CACHE defaults to
// "$BUFFRS_HOME/cache"; BUFFRS_TESTSUITE is truthy if it parses as a
// non-zero boolean (§6).
func Resolve() (Config, error) {
	home := os.Getenv(envHome)
	if home == "" {
		userHome, err := os.UserHomeDir()
		if err != nil {
			return Config{}, err
		}
		home = filepath.Join(userHome, ".buffrs")
	}

	cache := os.Getenv(envCache)
	if cache == "" {
		cache = filepath.Join(home, "cache")
	}

	testsuite, _ := strconv.ParseBool(os.Getenv(envTestsuite))

	return Config{Home: home, Cache: cache, Testsuite: testsuite}, nil
}

// CredentialsPath returns the path to the credentials file inside the
// home directory (§6).
func (c Config) CredentialsPath() string {
	return filepath.Join(c.Home, "credentials.toml")
}
