package utils_test

import (
	"testing"

	"github.com/jrsteele09/go-social-server/internal/utils"
	"github.com/stretchr/testify/require"
)

func TestDeref(t *testing.T) {
	v, ok := utils.Deref[string](nil)
	require.False(t, ok)
	require.Empty(t, v)

	v, ok = utils.Deref(utils.Ptr(""))
	require.True(t, ok)
	require.Empty(t, v)

	n, ok := utils.Deref(utils.Ptr(7))
	require.True(t, ok)
	require.Equal(t, 7, n)
}
