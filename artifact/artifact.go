// Package artifact implements the package archive format: a gzip-
// compressed tar whose first entry is the publish-time manifest and
// whose remaining entries are the package's `.proto` files in
// lexicographic path order (§4.2, §6).
package artifact

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"io"
	"sort"

	"github.com/buffrs-dev/buffrs/digest"
	"github.com/buffrs-dev/buffrs/errs"
	"github.com/buffrs-dev/buffrs/manifest"
)

const entryMode = 0o444

// Package is an in-memory pair of (manifest, compressed tarball bytes).
// Name and version are derived exclusively from the embedded manifest
// (§3).
type Package struct {
	Manifest  *manifest.Manifest
	Tarball   []byte
	digestVal digest.Digest
}

// Digest returns the SHA-256 digest of the compressed tarball bytes,
// computing it lazily on first use (§4.3).
func (p *Package) Digest() digest.Digest {
	if p.digestVal.IsZero() {
		p.digestVal = digest.FromBytes(p.Tarball)
	}
	return p.digestVal
}

// Assemble builds a Package from a manifest and a map of posix-relative
// paths to file contents, iterated in lexicographic key order (§4.2).
func Assemble(m *manifest.Manifest, files map[string][]byte) (*Package, error) {
	manifestBytes, err := manifest.Marshal(m)
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	if err := writeEntry(tw, manifest.FileName, manifestBytes); err != nil {
		return nil, err
	}
	for _, p := range paths {
		if err := writeEntry(tw, p, files[p]); err != nil {
			return nil, err
		}
	}

	if err := tw.Close(); err != nil {
		return nil, errs.Wrap(errs.KindTarballMalformed, "assemble package tarball", err)
	}
	if err := gz.Close(); err != nil {
		return nil, errs.Wrap(errs.KindTarballMalformed, "assemble package tarball", err)
	}

	return &Package{Manifest: m, Tarball: buf.Bytes()}, nil
}

func writeEntry(tw *tar.Writer, name string, content []byte) error {
	hdr := &tar.Header{
		Name: name,
		Mode: entryMode,
		Size: int64(len(content)),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return errs.Wrap(errs.KindTarballMalformed, "write tarball entry \""+name+"\"", err)
	}
	if _, err := tw.Write(content); err != nil {
		return errs.Wrap(errs.KindTarballMalformed, "write tarball entry \""+name+"\"", err)
	}
	return nil
}

// Parse decodes a Package from its compressed tarball bytes, locating
// the manifest by its well-known file name (§4.2). Other entries are
// ignored when constructing the in-memory Package; they are only
// consulted by Extract.
func Parse(tarball []byte) (*Package, error) {
	gz, err := gzip.NewReader(bytes.NewReader(tarball))
	if err != nil {
		return nil, errs.Wrap(errs.KindTarballMalformed, "parse package tarball", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errs.Wrap(errs.KindTarballMalformed, "parse package tarball", err)
		}
		if hdr.Name != manifest.FileName {
			continue
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, errs.Wrap(errs.KindTarballMalformed, "read manifest entry in package tarball", err)
		}
		m, err := manifest.Parse(data)
		if err != nil {
			return nil, err
		}
		return &Package{Manifest: m, Tarball: tarball}, nil
	}

	return nil, errs.New(errs.KindTarballMalformed, "parse package tarball: missing "+manifest.FileName+" entry")
}
