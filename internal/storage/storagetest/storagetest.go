// Package storagetest holds the behaviour every storage.KV backend must share.
package storagetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/affiliatesdk/internal/storage"
)

// Run exercises get/set/has/delete semantics against kv.
func Run(t *testing.T, kv storage.KV) {
	t.Helper()
	ctx := context.Background()

	_, err := kv.Get(ctx, "missing")
	require.ErrorIs(t, err, storage.ErrNotFound)

	ok, err := kv.Has(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, kv.Set(ctx, "k", "v1"))
	v, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "v1", v)

	require.NoError(t, kv.Set(ctx, "k", "v2"))
	v, err = kv.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "v2", v)

	require.NoError(t, kv.Set(ctx, "empty", ""))
	ok, err = kv.Has(ctx, "empty")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, kv.Delete(ctx, "k"))
	ok, err = kv.Has(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, kv.Delete(ctx, "k"))
}
