package sha256

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHasherUnkeyedMatchesSHA256(t *testing.T) {
	t.Parallel()

	h := New(nil)
	got, err := h.Hash([]byte("hello world"))
	require.NoError(t, err)
	require.Equal(t, "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9", got)

	again, err := h.Hash([]byte("hello world"))
	require.NoError(t, err)
	require.Equal(t, got, again)
}

func TestHasherKeyed(t *testing.T) {
	t.Parallel()

	plain, err := New(nil).Hash([]byte("jane doe"))
	require.NoError(t, err)
	keyed, err := New([]byte("pepper")).Hash([]byte("jane doe"))
	require.NoError(t, err)
	other, err := New([]byte("salt")).Hash([]byte("jane doe"))
	require.NoError(t, err)

	require.Len(t, keyed, 64)
	require.NotEqual(t, plain, keyed)
	require.NotEqual(t, keyed, other)

	again, err := New([]byte("pepper")).Hash([]byte("jane doe"))
	require.NoError(t, err)
	require.Equal(t, keyed, again)
}

func TestHasherDistinctInputs(t *testing.T) {
	t.Parallel()

	h := New([]byte("k"))
	a, _ := h.Hash([]byte("jane doe"))
	b, _ := h.Hash([]byte("john doe"))
	require.NotEqual(t, a, b)
}
