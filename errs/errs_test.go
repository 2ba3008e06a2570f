package errs_test

import (
	"errors"
	"testing"

	"github.com/buffrs-dev/buffrs/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapNilIsNil(t *testing.T) {
	require.Nil(t, errs.Wrap(errs.KindIO, "read file", nil))
}

func TestErrorMessageIncludesCauseChain(t *testing.T) {
	cause := errors.New("permission denied")
	err := errs.Wrap(errs.KindIO, "read manifest at Proto.toml", cause)
	require.Error(t, err)
	assert.Equal(t, "permission denied: while read manifest at Proto.toml", err.Error())
}

func TestOfAndIsMatchKind(t *testing.T) {
	err := errs.Wrap(errs.KindCircularDependency, "build graph", errors.New("pkg1 -> pkg2 -> pkg1"))
	assert.Equal(t, errs.KindCircularDependency, errs.Of(err))
	assert.True(t, errs.Is(err, errs.KindCircularDependency))
	assert.False(t, errs.Is(err, errs.KindDigestMismatch))
}

func TestErrorsIsMatchesSameKindRegardlessOfOp(t *testing.T) {
	a := errs.New(errs.KindVersionNotPinned, "download dummy")
	b := errs.New(errs.KindVersionNotPinned, "publish dummy")
	assert.True(t, errors.Is(a, b))
}

func TestNestedErrorChainPreservesOuterKind(t *testing.T) {
	inner := errs.New(errs.KindIO, "open cache root")
	outer := errs.Wrap(errs.KindCacheCorruption, "open cache", inner)
	assert.Equal(t, errs.KindCacheCorruption, errs.Of(outer))
}

func TestKindStringIsStable(t *testing.T) {
	assert.Equal(t, "circular_dependency", errs.KindCircularDependency.String())
	assert.Equal(t, "unspecified", errs.KindUnspecified.String())
}
