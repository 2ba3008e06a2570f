// Package maven implements the Maven-style registry.Client: artifacts
// live under an extra version path segment, and a maven-metadata.xml
// index at the package root tracks the latest release (§4.4, §6).
package maven

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	retryablehttp "github.com/hashicorp/go-retryablehttp"

	"github.com/buffrs-dev/buffrs/artifact"
	"github.com/buffrs-dev/buffrs/credentials"
	"github.com/buffrs-dev/buffrs/digest"
	"github.com/buffrs-dev/buffrs/errs"
	"github.com/buffrs-dev/buffrs/internal/dlog"
	"github.com/buffrs-dev/buffrs/manifest"
	"github.com/buffrs-dev/buffrs/name"
	"github.com/buffrs-dev/buffrs/regurl"
	"github.com/buffrs-dev/buffrs/registry"
	"github.com/buffrs-dev/buffrs/version"
)

var acceptedContentTypes = map[string]bool{
	"application/x-gzip":       true,
	"application/gzip":         true,
	"application/octet-stream": true,
}

func init() {
	registry.Register(regurl.Maven, func(uri regurl.URI, creds credentials.Provider) registry.Client {
		return New(uri, creds)
	})
}

// Client is the Maven-style registry client.
type Client struct {
	uri   regurl.URI
	creds credentials.Provider
	http  *retryablehttp.Client
}

// New constructs a Client for uri.
func New(uri regurl.URI, creds credentials.Provider) *Client {
	return &Client{uri: uri, creds: creds, http: registry.NewHTTPClient()}
}

func (c *Client) packageURL(repository string, pkgName name.Name) string {
	return fmt.Sprintf("%s/%s/%s", c.uri.Base(), repository, pkgName.String())
}

func (c *Client) artifactURL(repository string, pkgName name.Name, v version.Version) string {
	return fmt.Sprintf("%s/%s-%s.tgz", c.packageURL(repository, pkgName)+"/"+v.String(), pkgName.String(), v.String())
}

func (c *Client) metadataURL(repository string, pkgName name.Name) string {
	return c.packageURL(repository, pkgName) + "/maven-metadata.xml"
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
// base URL (§4.4).
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, c.uri.Base(), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return registry.ClassifyResponse(http.MethodGet, c.uri.Base(), resp)
}

// Download fetches dep's pinned version (§4.4, §7 VersionNotPinned).
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

	if ct := resp.Header.Get("Content-Type"); ct != "" && !acceptedContentTypes[ct] {
		return nil, errs.New(errs.KindRegistryError,
			"download \""+dep.Package.String()+"\": unexpected content-type \""+ct+"\"")
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrap(errs.KindRegistryError, "download \""+dep.Package.String()+"\"", err)
	}
	return artifact.Parse(data)
}

// Publish uploads pkg's tarball and refreshes maven-metadata.xml. If an
// artifact with the same coordinates already exists, its digest must
// match pkg's or the publish is rejected (§4.10, §6).
func (c *Client) Publish(ctx context.Context, pkg *artifact.Package, repository string) error {
	pkgName := pkg.Manifest.Package.Name
	v := pkg.Manifest.Package.Version
	url := c.artifactURL(repository, pkgName, v)
	entry := dlog.WithPackage(ctx, pkgName.String(), v.String())

	alreadyPublished, err := c.checkExisting(ctx, url, pkg)
	if err != nil {
		return err
	}
	if alreadyPublished {
		entry.Info("already published, skipping")
		return nil
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(pkg.Tarball))
	if err != nil {
		return errs.Wrap(errs.KindRegistryError, "publish "+url, err)
	}
	req.Header.Set("Content-Type", "application/x-gzip")
	registry.Authorize(req, c.uri, c.creds)

	resp, err := c.http.Do(req)
	if err != nil {
		return errs.Wrap(errs.KindRegistryError, "publish "+url, err)
	}
	defer resp.Body.Close()
	if err := registry.ClassifyResponse(http.MethodPut, url, resp); err != nil {
		return err
	}

	return c.putMetadata(ctx, repository, pkgName, v)
}

// checkExisting downloads any artifact already present at url and
// compares its digest against pkg's. A matching digest reports
// (true, nil): the caller treats this as a no-op success and skips
// both the upload and the metadata update (§4.4 "matching → no-op
// success"). A differing digest fails the publish outright rather than
// silently overwriting a different artifact under the same coordinates.
func (c *Client) checkExisting(ctx context.Context, url string, pkg *artifact.Package) (bool, error) {
	resp, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if err := registry.ClassifyResponse(http.MethodGet, url, resp); err != nil {
		return false, nil //nolint:nilerr // any non-404 error here is treated as "nothing to compare against"
	}

	existing, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, nil
	}

	existingDigest := digest.FromBytes(existing)
	if existingDigest.String() != pkg.Digest().String() {
		return false, errs.New(errs.KindDigestMismatch,
			"publish \""+pkg.Manifest.Package.Name.String()+"\": an artifact with different contents already exists at "+url)
	}
	return true, nil
}

type mavenVersioning struct {
	Latest      string   `xml:"latest,omitempty"`
	Release     string   `xml:"release,omitempty"`
	Versions    []string `xml:"versions,omitempty"`
	LastUpdated string   `xml:"lastUpdated,omitempty"`
}

type mavenMetadata struct {
	XMLName    xml.Name        `xml:"metadata"`
	ArtifactID string          `xml:"artifactId"`
	Versioning mavenVersioning `xml:"versioning"`
}

// fetchMetadata reads and parses any maven-metadata.xml already present
// at url, returning a fresh document when none exists yet.
func (c *Client) fetchMetadata(ctx context.Context, url string, pkgName name.Name) (mavenMetadata, error) {
	resp, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return mavenMetadata{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return mavenMetadata{ArtifactID: pkgName.String()}, nil
	}
	if err := registry.ClassifyResponse(http.MethodGet, url, resp); err != nil {
		return mavenMetadata{ArtifactID: pkgName.String()}, nil //nolint:nilerr // treat any other failure as "nothing to merge with"
	}

	var meta mavenMetadata
	if err := xml.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return mavenMetadata{}, errs.Wrap(errs.KindRegistryError, "parse existing maven-metadata.xml for \""+pkgName.String()+"\"", err)
	}
	if meta.ArtifactID == "" {
		meta.ArtifactID = pkgName.String()
	}
	return meta, nil
}

// putMetadata fetches any existing maven-metadata.xml, appends the
// newly published version if it is not already recorded, re-sorts the
// version list, refreshes <latest>/<release>/<lastUpdated>, and PUTs
// the merged document back (§4.4, SUPPLEMENTED FEATURES #7).
func (c *Client) putMetadata(ctx context.Context, repository string, pkgName name.Name, v version.Version) error {
	url := c.metadataURL(repository, pkgName)

	meta, err := c.fetchMetadata(ctx, url, pkgName)
	if err != nil {
		return err
	}

	versionStr := v.String()
	if !containsVersion(meta.Versioning.Versions, versionStr) {
		meta.Versioning.Versions = append(meta.Versioning.Versions, versionStr)
		sortVersions(meta.Versioning.Versions)
	}
	meta.Versioning.Latest = versionStr
	meta.Versioning.Release = versionStr
	meta.Versioning.LastUpdated = time.Now().UTC().Format("20060102150405")

	body, err := xml.MarshalIndent(meta, "", "  ")
	if err != nil {
		return errs.Wrap(errs.KindRegistryError, "marshal maven-metadata.xml for \""+pkgName.String()+"\"", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return errs.Wrap(errs.KindRegistryError, "publish metadata "+url, err)
	}
	req.Header.Set("Content-Type", "application/xml")
	registry.Authorize(req, c.uri, c.creds)

	resp, err := c.http.Do(req)
	if err != nil {
		return errs.Wrap(errs.KindRegistryError, "publish metadata "+url, err)
	}
	defer resp.Body.Close()
	return registry.ClassifyResponse(http.MethodPut, url, resp)
}

func containsVersion(versions []string, v string) bool {
	for _, existing := range versions {
		if existing == v {
			return true
		}
	}
	return false
}

// sortVersions orders versions ascending by semantic version,
// falling back to a byte-wise comparison for anything that fails to
// parse (mirroring the original implementation's best-effort sort).
func sortVersions(versions []string) {
	sort.Slice(versions, func(i, j int) bool {
		vi, erri := version.Parse(versions[i])
		vj, errj := version.Parse(versions[j])
		if erri == nil && errj == nil {
			return vi.Compare(vj) < 0
		}
		return versions[i] < versions[j]
	})
}

// LatestVersion reads maven-metadata.xml's <latest>, falling back to
// <release> when <latest> is absent (§4.4, §6).
func (c *Client) LatestVersion(ctx context.Context, repository string, pkgName name.Name) (version.Version, error) {
	url := c.metadataURL(repository, pkgName)

	resp, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return version.Version{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return version.Version{}, errs.New(errs.KindPackageNotFound, "no published versions found for \""+pkgName.String()+"\"")
	}
	if err := registry.ClassifyResponse(http.MethodGet, url, resp); err != nil {
		return version.Version{}, err
	}

	var meta mavenMetadata
	if err := xml.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return version.Version{}, errs.Wrap(errs.KindRegistryError, "parse maven-metadata.xml for \""+pkgName.String()+"\"", err)
	}

	raw := meta.Versioning.Latest
	if raw == "" {
		raw = meta.Versioning.Release
	}
	if raw == "" {
		return version.Version{}, errs.New(errs.KindPackageNotFound, "no published versions found for \""+pkgName.String()+"\"")
	}

	return version.Parse(raw)
}
