package credential

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryVault(t *testing.T) {
	v := NewMemoryVault()

	_, err := v.Get("identity")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, v.Set("identity", "u1"))
	got, err := v.Get("identity")
	require.NoError(t, err)
	assert.Equal(t, "u1", got)

	require.NoError(t, v.Delete("identity"))
	require.NoError(t, v.Delete("identity"))
	_, err = v.Get("identity")
	assert.ErrorIs(t, err, ErrNotFound)
}
