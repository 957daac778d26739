package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminChecker(t *testing.T) {
	_, err := NewAdminChecker(0)
	assert.Error(t, err)

	checker, err := NewAdminChecker(42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), checker.AdminID())

	ok, err := checker.IsAdmin(context.Background(), 42)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = checker.IsAdmin(context.Background(), 7)
	require.NoError(t, err)
	assert.False(t, ok)
}
