package name

import "github.com/buffrs-dev/buffrs/errs"

// Type is the package-kind taxonomy: lib, api, or impl.
type Type int

const (
	// Lib is a library of schema primitives. A lib package cannot declare
	// any dependencies.
	Lib Type = iota
	// Api is a service/API schema package. An api package may depend on
	// lib packages.
	Api
	// Impl is a consumer package. impl is neither publishable nor
	// compilable by this system.
	Impl
)

func (t Type) String() string {
	switch t {
	case Lib:
		return "lib"
	case Api:
		return "api"
	case Impl:
		return "impl"
	default:
		return "unknown"
	}
}

// ParseType validates s against the known package kinds.
func ParseType(s string) (Type, error) {
	switch s {
	case "lib":
		return Lib, nil
	case "api":
		return Api, nil
	case "impl":
		return Impl, nil
	default:
		return 0, errs.New(errs.KindManifestMalformed, "parse package type \""+s+"\"")
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(text []byte) error {
	parsed, err := ParseType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// IsPublishable reports whether packages of this type may be published
// (§4.10: impl packages may never be published).
func (t Type) IsPublishable() bool {
	return t != Impl
}

// IsCompilable reports whether packages of this type may be compiled by
// downstream codegen tooling. impl packages are excluded.
func (t Type) IsCompilable() bool {
	return t != Impl
}

// MayDeclareDependencies reports whether a package of this type is
// allowed to declare any dependencies at all. A lib package may not
// (§3): it is a pure leaf of schema primitives.
func (t Type) MayDeclareDependencies() bool {
	return t != Lib
}

// ViolatesEdgeRule reports whether a graph edge from a parent of type
// parent to a child of type child is forbidden: a lib parent may never
// reach an api child (§3(d), §4.7 step 4, §7 InvalidPackageTypeDependency).
// This is checked independently of MayDeclareDependencies because it
// must also hold transitively, not just for the manifest's own direct
// dependency list.
func ViolatesEdgeRule(parent, child Type) bool {
	return parent == Lib && child == Api
}
