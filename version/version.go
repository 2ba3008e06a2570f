// Package version wraps github.com/Masterminds/semver/v3 with the
// narrower semantics the core design requires: a Version is always a
// full major.minor.patch triple with optional prerelease, and a
// VersionReq may additionally be required to be "pinned" — a single
// exact-equality comparator — before a registry client will act on it.
package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/buffrs-dev/buffrs/errs"
)

// Version is a semantic version triple with optional pre-release.
type Version struct {
	inner *semver.Version
}

// Parse validates s as a full semantic version.
func Parse(s string) (Version, error) {
	v, err := semver.StrictNewVersion(s)
	if err != nil {
		return Version{}, errs.Wrap(errs.KindManifestMalformed, "parse version \""+s+"\"", err)
	}
	return Version{inner: v}, nil
}

// MustParse is Parse but panics on error; for constants and tests.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

func (v Version) String() string {
	if v.inner == nil {
		return "0.0.0"
	}
	return v.inner.String()
}

// Compare returns -1, 0, or 1 as v is less than, equal to, or greater
// than other, per semantic version precedence rules.
func (v Version) Compare(other Version) int {
	return v.inner.Compare(other.inner)
}

// Equal reports whether v and other denote the same version.
func (v Version) Equal(other Version) bool {
	return v.Compare(other) == 0
}

// MarshalText implements encoding.TextMarshaler.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Version) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Req is a version requirement: a comparator set, such as "=1.2.3" or
// ">=1.0.0, <2.0.0".
type Req struct {
	raw         string
	constraints *semver.Constraints
}

// ParseReq parses a version requirement string.
func ParseReq(s string) (Req, error) {
	c, err := semver.NewConstraint(s)
	if err != nil {
		return Req{}, errs.Wrap(errs.KindInvalidVersionRequirement, "parse version requirement \""+s+"\"", err)
	}
	return Req{raw: strings.TrimSpace(s), constraints: c}, nil
}

func (r Req) String() string {
	return r.raw
}

// Matches reports whether v satisfies the requirement.
func (r Req) Matches(v Version) bool {
	return r.constraints.Check(v.inner)
}

// IsPinned reports whether the requirement is a single exact-equality
// comparator with a full major.minor.patch — the only shape a registry
// client's download operation will accept (§3, §4.4, §7
// VersionNotPinned).
func (r Req) IsPinned() bool {
	pinned, _ := r.Pinned()
	return pinned
}

// Pinned reports whether the requirement is pinned and, if so, returns
// the exact Version it pins to.
func (r Req) Pinned() (bool, Version) {
	trimmed := strings.TrimSpace(r.raw)
	if !strings.HasPrefix(trimmed, "=") {
		return false, Version{}
	}
	rest := strings.TrimSpace(strings.TrimPrefix(trimmed, "="))
	if strings.ContainsAny(rest, "<>^~*, ") {
		return false, Version{}
	}
	v, err := Parse(rest)
	if err != nil {
		return false, Version{}
	}
	return true, v
}

// MarshalText implements encoding.TextMarshaler.
func (r Req) MarshalText() ([]byte, error) {
	return []byte(r.raw), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Req) UnmarshalText(text []byte) error {
	parsed, err := ParseReq(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Intersects reports whether two version requirements can be jointly
// satisfied by some version — used by the dependency graph builder to
// detect a VersionConflict between two dependants of the same package
// (§4.7 step 2, §7).
//
// Masterminds/semver does not expose constraint-set intersection
// directly, so this is approximated the way the graph builder needs it:
// two pinned requirements intersect only if they pin the same version;
// a pinned requirement intersects an unpinned one if the pinned version
// satisfies the unpinned constraint; two unpinned requirements are
// always treated as compatible (the registry will reject either at
// download time if it turns out not to be pinned).
func (r Req) Intersects(other Req) bool {
	rPinned, rVersion := r.Pinned()
	oPinned, oVersion := other.Pinned()

	switch {
	case rPinned && oPinned:
		return rVersion.Equal(oVersion)
	case rPinned && !oPinned:
		return other.Matches(rVersion)
	case !rPinned && oPinned:
		return r.Matches(oVersion)
	default:
		return true
	}
}
