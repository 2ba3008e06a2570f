// Package regurl implements RegistryUri, the validated URL type that
// identifies a registry backend and its wire-protocol dialect (§3, §4.4,
// §6). It is kept separate from the registry client package itself so
// that the manifest model (which embeds a RegistryUri in every remote
// dependency) does not need to import the registry client.
package regurl

import (
	"net/url"
	"strings"

	"github.com/buffrs-dev/buffrs/errs"
)

// Backend names the registry wire-protocol dialect selected by a
// RegistryUri's prefix.
type Backend int

const (
	// Artifactory is the default backend when no prefix is present.
	Artifactory Backend = iota
	// Maven lays out artifacts with an extra version path segment and
	// maintains a maven-metadata.xml index.
	Maven
)

func (b Backend) String() string {
	if b == Maven {
		return "maven"
	}
	return "artifactory"
}

const (
	artifactoryPrefix = "artifactory+"
	mavenPrefix       = "maven+"
)

// URI is a validated registry URI: an http(s) URL optionally prefixed
// with a backend discriminator.
type URI struct {
	url      *url.URL
	backend  Backend
	explicit bool
}

// Parse validates s as a RegistryUri per §3:
//   - optional "artifactory+"/"maven+" prefix, defaulting to artifactory
//   - scheme must be http or https
//   - host must be present
//   - hosts ending in ".jfrog.io" must have a path ending "/artifactory"
func Parse(s string) (URI, error) {
	rest, backend, explicit := stripPrefix(s)

	u, err := url.Parse(rest)
	if err != nil {
		return URI{}, errs.Wrap(errs.KindInvalidRegistryURI, "parse registry uri \""+s+"\"", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return URI{}, errs.New(errs.KindInvalidRegistryURI, "registry uri \""+s+"\" must use http or https")
	}

	if u.Host == "" {
		return URI{}, errs.New(errs.KindInvalidRegistryURI, "registry uri \""+s+"\" must have a host")
	}

	if strings.HasSuffix(u.Hostname(), ".jfrog.io") && !strings.HasSuffix(u.Path, "/artifactory") {
		return URI{}, errs.New(errs.KindInvalidRegistryURI,
			"registry uri \""+s+"\" must end with /artifactory when using a *.jfrog.io host")
	}

	return URI{url: u, backend: backend, explicit: explicit}, nil
}

func stripPrefix(s string) (string, Backend, bool) {
	if rest, ok := strings.CutPrefix(s, artifactoryPrefix); ok {
		return rest, Artifactory, true
	}
	if rest, ok := strings.CutPrefix(s, mavenPrefix); ok {
		return rest, Maven, true
	}
	return s, Artifactory, false
}

// Backend reports which wire-protocol dialect this URI selects.
func (u URI) Backend() Backend {
	return u.backend
}

// URL returns the underlying URL, without the backend prefix.
func (u URI) URL() *url.URL {
	return u.url
}

// Base returns the URI's string form with no trailing slash, suitable
// for building `{registry}/{repository}/...` artifact paths.
func (u URI) Base() string {
	return strings.TrimSuffix(u.url.String(), "/")
}

// String renders u back to its wire form. The backend prefix is
// re-emitted only if Parse originally found one explicitly present;
// the no-prefix default-to-Artifactory case round-trips with no
// prefix, per spec Testable Property #1 (write(read(T)) == T).
func (u URI) String() string {
	if !u.explicit {
		return u.url.String()
	}
	prefix := artifactoryPrefix
	if u.backend == Maven {
		prefix = mavenPrefix
	}
	return prefix + u.url.String()
}

// Equal reports whether two URIs denote the same registry and backend.
func (u URI) Equal(other URI) bool {
	return u.backend == other.backend && u.url.String() == other.url.String()
}

// MarshalText implements encoding.TextMarshaler.
func (u URI) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (u *URI) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}
