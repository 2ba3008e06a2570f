// Package registry defines the capability set every registry backend
// implements, plus the shared HTTP contract (redirect rejection, status
// classification) both concrete backends build on (§4.4). The two
// backends themselves live in registry/artifactory and registry/maven;
// each registers its constructor here via Register, the same
// registration-by-import pattern used throughout the Go standard
// library (image.RegisterFormat, database/sql.Register) so this package
// never has to import either backend (both import this package, so
// that would be an import cycle).
package registry

import (
	"context"
	"net/http"

	retryablehttp "github.com/hashicorp/go-retryablehttp"

	"github.com/buffrs-dev/buffrs/artifact"
	"github.com/buffrs-dev/buffrs/credentials"
	"github.com/buffrs-dev/buffrs/errs"
	"github.com/buffrs-dev/buffrs/manifest"
	"github.com/buffrs-dev/buffrs/name"
	"github.com/buffrs-dev/buffrs/regurl"
	"github.com/buffrs-dev/buffrs/version"
)

// Client is the capability set of §4.4: ping, download, publish, and
// latest-version lookup, polymorphic over backend variants.
type Client interface {
	Ping(ctx context.Context) error
	Download(ctx context.Context, dep manifest.Dependency) (*artifact.Package, error)
	Publish(ctx context.Context, pkg *artifact.Package, repository string) error
	LatestVersion(ctx context.Context, repository string, pkgName name.Name) (version.Version, error)
}

// Factory constructs a Client for a validated registry URI and a
// credentials provider.
type Factory func(uri regurl.URI, creds credentials.Provider) Client

var factories = map[regurl.Backend]Factory{}

// Register associates a Factory with a backend discriminator. Backend
// packages call this from an init() func.
func Register(backend regurl.Backend, factory Factory) {
	factories[backend] = factory
}

// New builds the Client for uri's backend discriminator (the
// RegistryBuilder of §4.4).
func New(uri regurl.URI, creds credentials.Provider) (Client, error) {
	factory, ok := factories[uri.Backend()]
	if !ok {
		return nil, errs.New(errs.KindRegistryError,
			"no registry backend registered for \""+uri.Backend().String()+"\" — import its package for side-effect registration")
	}
	return factory(uri, creds), nil
}

// NewHTTPClient returns a retryablehttp.Client configured per the
// common HTTP contract: redirects are never followed (any 3xx response
// is surfaced to the caller as-is, to be classified as an error by
// ClassifyResponse), and 5xx responses are retried per
// retryablehttp's defaults.
func NewHTTPClient() *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.Logger = nil
	c.HTTPClient.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return c
}

// Authorize attaches the bearer token for uri, if creds has one, to req.
func Authorize(req *retryablehttp.Request, uri regurl.URI, creds credentials.Provider) {
	if token, ok := creds.Token(uri); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// ClassifyResponse turns an HTTP response into the common error
// taxonomy of §4.4: 2xx is success; any 3xx is an error (redirects are
// rejected); 401 is Unauthorized with a login hint; everything else is
// RegistryError carrying method, URL, and status.
func ClassifyResponse(method, url string, resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		return errs.New(errs.KindUnauthorized, method+" "+url+": unauthorized — run \"buffrs login\"")
	default:
		return errs.New(errs.KindRegistryError, method+" "+url+": unexpected status "+resp.Status)
	}
}
