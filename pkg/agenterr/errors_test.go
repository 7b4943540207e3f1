package agenterr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_SatisfiesErrorsAsWithKind(t *testing.T) {
	err := New(PathForbidden, "outside allowed root")

	var target *Error
	require := assert.New(t)
	require.True(errors.As(err, &target))
	require.Equal(PathForbidden, target.Kind)
}

func TestWrap_PreservesCause(t *testing.T) {
	cause := errors.New("permission denied")
	err := Wrap(IOFailure, "writing file", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "permission denied")
}

func TestInvariant_IsDistinctFromError(t *testing.T) {
	var inv error = &Invariant{Detail: "loop_count out of sync"}
	var target *Error
	assert.False(t, errors.As(inv, &target))
	assert.Contains(t, inv.Error(), "loop_count out of sync")
}

func TestTransport_UnwrapsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := &Transport{StatusCode: 502, BodyPrefix: "bad gateway", Cause: cause}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "502")
}
