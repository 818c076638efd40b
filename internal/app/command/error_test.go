package command

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_WrapError(t *testing.T) {
	require.NoError(t, WrapError(nil))

	inner := errors.New("registry unreachable")
	wrapped := WrapError(inner)

	var cmdErr *Error
	require.ErrorAs(t, wrapped, &cmdErr)
	require.ErrorIs(t, wrapped, inner)

	// wrapping twice keeps a single layer
	require.Same(t, wrapped, WrapError(wrapped))
}
