// Package errs provides the closed error taxonomy shared by every buffrs
// component. Every failure that crosses a package boundary is wrapped in
// an *Error carrying a Kind, the operation that failed, and the
// underlying cause, so callers can both match on Kind (with errors.Is)
// and print a human readable "while doing X" cause chain.
package errs

import (
	"errors"
	"fmt"
)

// Kind is a closed enum of the error kinds named in the core's error
// handling design. It has no "unknown" catch-all beyond KindUnspecified,
// which Of reports for an error with no *Error in its chain.
type Kind int

const (
	KindUnspecified Kind = iota

	KindManifestMissing
	KindManifestMalformed
	KindManifestMixedVariant

	KindInvalidPackageName
	KindInvalidRegistryURI
	KindInvalidVersionRequirement

	KindVersionNotPinned
	KindVersionConflict
	KindLocalRemoteConflict
	KindInvalidPackageTypeDependency
	KindCircularDependency

	KindRegistryError
	KindUnauthorized
	KindPackageNotFound

	KindTarballMalformed
	KindTarballPathEscape

	KindDigestMismatch
	KindCacheCorruption

	KindDirtyRepository
	KindWorkspaceMemberNotFound

	KindIO
)

// String returns the stable, lower_snake identifier for the kind, the
// same token a CLI exit-code mapping or test assertion would match on.
func (k Kind) String() string {
	switch k {
	case KindManifestMissing:
		return "manifest_missing"
	case KindManifestMalformed:
		return "manifest_malformed"
	case KindManifestMixedVariant:
		return "manifest_mixed_variant"
	case KindInvalidPackageName:
		return "invalid_package_name"
	case KindInvalidRegistryURI:
		return "invalid_registry_uri"
	case KindInvalidVersionRequirement:
		return "invalid_version_requirement"
	case KindVersionNotPinned:
		return "version_not_pinned"
	case KindVersionConflict:
		return "version_conflict"
	case KindLocalRemoteConflict:
		return "local_remote_conflict"
	case KindInvalidPackageTypeDependency:
		return "invalid_package_type_dependency"
	case KindCircularDependency:
		return "circular_dependency"
	case KindRegistryError:
		return "registry_error"
	case KindUnauthorized:
		return "unauthorized"
	case KindPackageNotFound:
		return "package_not_found"
	case KindTarballMalformed:
		return "tarball_malformed"
	case KindTarballPathEscape:
		return "tarball_path_escape"
	case KindDigestMismatch:
		return "digest_mismatch"
	case KindCacheCorruption:
		return "cache_corruption"
	case KindDirtyRepository:
		return "dirty_repository"
	case KindWorkspaceMemberNotFound:
		return "workspace_member_not_found"
	case KindIO:
		return "io"
	default:
		return "unspecified"
	}
}

// Error is the concrete error type produced by every buffrs package. Op
// names the operation that failed ("read manifest", "download package
// dummy@0.1.0"); Cause is the underlying error, possibly another *Error.
type Error struct {
	Kind  Kind
	Op    string
	Cause error
}

// New constructs a terminal *Error with no further cause.
func New(kind Kind, op string) *Error {
	return &Error{Kind: kind, Op: op}
}

// Wrap attaches an operation and kind to cause, producing a cause chain.
// If cause is nil, Wrap returns nil so callers can write
// `return errs.Wrap(...)` directly after a fallible call.
func Wrap(kind Kind, op string, cause error) *Error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Op
	}
	return fmt.Sprintf("%s: while %s", e.Cause.Error(), e.Op)
}

// Unwrap lets errors.Is/errors.As walk past an *Error to its cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same Kind, letting
// callers write errors.Is(err, errs.New(errs.KindCircularDependency, "")).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Of returns the Kind of err if it (or something in its cause chain) is
// an *Error, and KindUnspecified otherwise.
func Of(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnspecified
}

// Is reports whether the outermost *Error in err's chain has the given
// Kind.
func Is(err error, kind Kind) bool {
	return Of(err) == kind
}
