// Package credentials provides the external collaborator that looks up
// a bearer token per registry URI. The core treats it as an opaque
// key-value lookup (§1, §6); the concrete TOML-file-backed
// implementation lives here for completeness but is swappable.
package credentials

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/pelletier/go-toml/v2"

	"github.com/buffrs-dev/buffrs/errs"
	"github.com/buffrs-dev/buffrs/regurl"
)

// Provider is the interface registry clients depend on: a read-only
// token lookup keyed by registry URI.
type Provider interface {
	Token(registry regurl.URI) (string, bool)
}

// Store is the default Provider: a list of {uri, token} records
// persisted as TOML (§6).
type Store struct {
	path    string
	entries map[string]string
}

type rawStore struct {
	Entries []rawEntry `toml:"credentials"`
}

type rawEntry struct {
	URI   string `toml:"uri"`
	Token string `toml:"token"`
}

// Load reads the credentials file at path, treating a missing file as
// an empty store (a user who has never logged in anywhere).
func Load(path string) (*Store, error) {
	s := &Store{path: path, entries: make(map[string]string)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, errs.Wrap(errs.KindIO, "read credentials file "+path, err)
	}

	var raw rawStore
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, errs.Wrap(errs.KindIO, "parse credentials file "+path, err)
	}
	for _, entry := range raw.Entries {
		s.entries[entry.URI] = entry.Token
	}
	return s, nil
}

// Token implements Provider.
func (s *Store) Token(registry regurl.URI) (string, bool) {
	token, ok := s.entries[registry.String()]
	return token, ok
}

// Login stores token for registry and persists the store to disk
// (SPEC_FULL supplement #3; the caller is responsible for validating
// the token with a ping call before calling Login, unless
// BUFFRS_TESTSUITE suppresses that check).
func (s *Store) Login(registry regurl.URI, token string) error {
	s.entries[registry.String()] = token
	return s.save()
}

// Logout removes any stored token for registry and persists the store.
func (s *Store) Logout(registry regurl.URI) error {
	delete(s.entries, registry.String())
	return s.save()
}

func (s *Store) save() error {
	uris := make([]string, 0, len(s.entries))
	for uri := range s.entries {
		uris = append(uris, uri)
	}
	sort.Strings(uris)

	raw := rawStore{Entries: make([]rawEntry, 0, len(uris))}
	for _, uri := range uris {
		raw.Entries = append(raw.Entries, rawEntry{URI: uri, Token: s.entries[uri]})
	}

	out, err := toml.Marshal(raw)
	if err != nil {
		return errs.Wrap(errs.KindIO, "serialize credentials file "+s.path, err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return errs.Wrap(errs.KindIO, "create credentials directory for "+s.path, err)
	}
	if err := os.WriteFile(s.path, out, 0o600); err != nil {
		return errs.Wrap(errs.KindIO, "write credentials file "+s.path, err)
	}
	return nil
}
