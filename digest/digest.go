// Package digest is a thin domain wrapper around
// github.com/opencontainers/go-digest, restricted to the single
// algorithm the core design supports: SHA-256. A Digest addresses cache
// entries, is recorded in the lockfile, and is what the installer
// verifies a cached or downloaded artifact against.
package digest

import (
	"io"

	godigest "github.com/opencontainers/go-digest"

	"github.com/buffrs-dev/buffrs/errs"
)

// Digest is a (algorithm, hex) pair. Its string form is
// "sha256:<hex>".
type Digest struct {
	inner godigest.Digest
}

// FromBytes computes the SHA-256 digest of p.
func FromBytes(p []byte) Digest {
	return Digest{inner: godigest.SHA256.FromBytes(p)}
}

// FromReader computes the SHA-256 digest of the content read from r.
func FromReader(r io.Reader) (Digest, error) {
	d, err := godigest.SHA256.FromReader(r)
	if err != nil {
		return Digest{}, errs.Wrap(errs.KindIO, "digest reader content", err)
	}
	return Digest{inner: d}, nil
}

// Parse validates s as a "sha256:<hex>" digest string.
func Parse(s string) (Digest, error) {
	d, err := godigest.Parse(s)
	if err != nil {
		return Digest{}, errs.Wrap(errs.KindManifestMalformed, "parse digest \""+s+"\"", err)
	}
	if d.Algorithm() != godigest.SHA256 {
		return Digest{}, errs.New(errs.KindManifestMalformed, "unsupported digest algorithm \""+string(d.Algorithm())+"\"")
	}
	return Digest{inner: d}, nil
}

// Algorithm returns the algorithm tag, always "sha256" for a valid
// Digest.
func (d Digest) Algorithm() string {
	return string(d.inner.Algorithm())
}

// Hex returns the lowercase hex-encoded digest bytes.
func (d Digest) Hex() string {
	return d.inner.Encoded()
}

func (d Digest) String() string {
	return d.inner.String()
}

// Equal reports whether two digests denote the same content.
func (d Digest) Equal(other Digest) bool {
	return d.inner == other.inner
}

// IsZero reports whether d is the unset zero value.
func (d Digest) IsZero() bool {
	return d.inner == ""
}

// MarshalText implements encoding.TextMarshaler.
func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Digest) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Verify returns a *errs.Error with Kind KindDigestMismatch if computing
// the digest of content does not produce want.
func Verify(content []byte, want Digest) error {
	got := FromBytes(content)
	if !got.Equal(want) {
		return errs.New(errs.KindDigestMismatch, "verify digest: want "+want.String()+", got "+got.String())
	}
	return nil
}
