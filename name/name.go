// Package name implements the validated PackageName identifier and the
// PackageType taxonomy (lib/api/impl) that govern which packages may
// depend on which, per the dependency-type rules of the core design.
package name

import (
	"regexp"

	"github.com/buffrs-dev/buffrs/errs"
)

// pattern matches the package naming grammar: first character ASCII
// lowercase alphabetic, remaining characters ASCII lowercase alphanumeric
// or '-', total length between 3 and 128 characters.
var pattern = regexp.MustCompile(`^[a-z][a-z0-9-]{2,127}$`)

// Name is a validated package identifier. The zero value is not a valid
// Name; every Name in memory has passed Parse.
type Name struct {
	raw string
}

// Parse validates s against the package naming grammar and returns a
// Name. Comparison between Names is byte-exact, so two Names built from
// the same string always compare equal.
func Parse(s string) (Name, error) {
	if !pattern.MatchString(s) {
		return Name{}, errs.New(errs.KindInvalidPackageName, "parse package name "+quote(s))
	}
	return Name{raw: s}, nil
}

// MustParse is Parse but panics on an invalid name; intended for
// compile-time-known constants such as tests and defaults.
func MustParse(s string) Name {
	n, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return n
}

func (n Name) String() string {
	return n.raw
}

// MarshalText implements encoding.TextMarshaler so a Name can be used
// directly as a TOML string value or map key.
func (n Name) MarshalText() ([]byte, error) {
	return []byte(n.raw), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, validating the
// incoming text against the package naming grammar.
func (n *Name) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}

// Equal reports byte-exact equality, the comparison rule mandated by the
// core design.
func (n Name) Equal(other Name) bool {
	return n.raw == other.raw
}

// IsZero reports whether n is the unvalidated zero value.
func (n Name) IsZero() bool {
	return n.raw == ""
}

func quote(s string) string {
	return "\"" + s + "\""
}
