// Package artifactory implements the Artifactory-style registry.Client:
// `{registry}/{repository}/{name}/{name}-{version}.tgz` artifact paths,
// plus a folder-info query for latest-version lookup (§4.4).
package artifactory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	retryablehttp "github.com/hashicorp/go-retryablehttp"

	"github.com/buffrs-dev/buffrs/artifact"
	"github.com/buffrs-dev/buffrs/credentials"
	"github.com/buffrs-dev/buffrs/errs"
	"github.com/buffrs-dev/buffrs/internal/dlog"
	"github.com/buffrs-dev/buffrs/manifest"
	"github.com/buffrs-dev/buffrs/name"
	"github.com/buffrs-dev/buffrs/regurl"
	"github.com/buffrs-dev/buffrs/registry"
	"github.com/buffrs-dev/buffrs/version"
)

const contentType = "application/x-gzip"

func init() {
	registry.Register(regurl.Artifactory, func(uri regurl.URI, creds credentials.Provider) registry.Client {
		return New(uri, creds)
	})
}

// Client is the Artifactory-style registry client.
type Client struct {
	uri   regurl.URI
	creds credentials.Provider
	http  *retryablehttp.Client
}

// New constructs a Client for uri.
func New(uri regurl.URI, creds credentials.Provider) *Client {
	return &Client{uri: uri, creds: creds, http: registry.NewHTTPClient()}
}

func (c *Client) artifactURL(repository string, pkgName name.Name, v version.Version) string {
	return fmt.Sprintf("%s/%s/%s/%s-%s.tgz", c.uri.Base(), repository, pkgName.String(), pkgName.String(), v.String())
}

func (c *Client) do(ctx context.Context, method, url string, body io.Reader) (*http.Response, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, errs.Wrap(errs.KindRegistryError, method+" "+url, err)
	}
	registry.Authorize(req, c.uri, c.creds)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errs.Wrap(errs.KindRegistryError, method+" "+url, err)
	}
	return resp, nil
}

// Ping validates connectivity and credentials against the registry
// base URL (§4.4, §5 "synchronous and failure-fast").
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, c.uri.Base(), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return registry.ClassifyResponse(http.MethodGet, c.uri.Base(), resp)
}

// Download fetches dep's pinned version, rejecting unpinned requirements
// before making any network call (§4.4, §7 VersionNotPinned).
func (c *Client) Download(ctx context.Context, dep manifest.Dependency) (*artifact.Package, error) {
	remote, ok := dep.Source.(manifest.RemoteSource)
	if !ok {
		return nil, errs.New(errs.KindRegistryError, "download \""+dep.Package.String()+"\": not a remote dependency")
	}
	pinned, v := remote.Version.Pinned()
	if !pinned {
		return nil, errs.New(errs.KindVersionNotPinned,
			"download \""+dep.Package.String()+"\": version requirement is not pinned")
	}

	url := c.artifactURL(remote.Repository, dep.Package, v)
	entry := dlog.WithPackage(ctx, dep.Package.String(), v.String())
	entry.Debug("downloading package")

	resp, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := registry.ClassifyResponse(http.MethodGet, url, resp); err != nil {
		return nil, err
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" && ct != contentType {
		return nil, errs.New(errs.KindRegistryError,
			"download \""+dep.Package.String()+"\": unexpected content-type \""+ct+"\"")
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrap(errs.KindRegistryError, "download \""+dep.Package.String()+"\"", err)
	}
	return artifact.Parse(data)
}

// Publish uploads pkg's tarball as the named package's artifact in
// repository (§4.4).
func (c *Client) Publish(ctx context.Context, pkg *artifact.Package, repository string) error {
	url := c.artifactURL(repository, pkg.Manifest.Package.Name, pkg.Manifest.Package.Version)

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(pkg.Tarball))
	if err != nil {
		return errs.Wrap(errs.KindRegistryError, "publish "+url, err)
	}
	req.Header.Set("Content-Type", contentType)
	registry.Authorize(req, c.uri, c.creds)

	resp, err := c.http.Do(req)
	if err != nil {
		return errs.Wrap(errs.KindRegistryError, "publish "+url, err)
	}
	defer resp.Body.Close()
	return registry.ClassifyResponse(http.MethodPut, url, resp)
}

// folderInfo is the subset of Artifactory's folder-info API this client
// consumes to enumerate a package's published versions.
type folderInfo struct {
	Children []struct {
		URI    string `json:"uri"`
		Folder bool   `json:"folder"`
	} `json:"children"`
}

// LatestVersion queries the repository's folder listing for pkgName and
// returns the highest semantic version published (§4.4).
func (c *Client) LatestVersion(ctx context.Context, repository string, pkgName name.Name) (version.Version, error) {
	url := fmt.Sprintf("%s/api/storage/%s/%s", c.uri.Base(), repository, pkgName.String())

	resp, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return version.Version{}, err
	}
	defer resp.Body.Close()

	if err := registry.ClassifyResponse(http.MethodGet, url, resp); err != nil {
		return version.Version{}, err
	}

	var info folderInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return version.Version{}, errs.Wrap(errs.KindRegistryError, "parse folder listing for \""+pkgName.String()+"\"", err)
	}

	var versions []version.Version
	for _, child := range info.Children {
		if !child.Folder {
			continue
		}
		raw := strings.TrimPrefix(child.URI, "/")
		v, err := version.Parse(raw)
		if err != nil {
			continue
		}
		versions = append(versions, v)
	}
	if len(versions) == 0 {
		return version.Version{}, errs.New(errs.KindPackageNotFound, "no published versions found for \""+pkgName.String()+"\"")
	}

	sort.Slice(versions, func(i, j int) bool { return versions[i].Compare(versions[j]) < 0 })
	return versions[len(versions)-1], nil
}
