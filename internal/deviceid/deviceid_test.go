package deviceid

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/affiliatesdk/internal/domain"
	"example.com/affiliatesdk/internal/storage"
)

var sixHex = regexp.MustCompile(`^[0-9A-F]{6}$`)

func TestDeriveShape(t *testing.T) {
	for _, seed := range []string{"", "a", "6f1c1f5e-4f0b-4a5e-9a77-7d3c4b1e2f10"} {
		require.Regexp(t, sixHex, Derive(seed))
	}
	require.Equal(t, Derive("same"), Derive("same"))
}

func TestGetOrCreatePersistsOnce(t *testing.T) {
	kv := storage.NewMemKV()
	ctx := context.Background()

	first := New(kv, nil).GetOrCreate(ctx)
	require.Regexp(t, sixHex, first)

	stored, err := kv.Get(ctx, domain.KeyDeviceID)
	require.NoError(t, err)
	require.Equal(t, first, stored)

	// a fresh Identity over the same store sees the persisted value
	require.Equal(t, first, New(kv, nil).GetOrCreate(ctx))
}

func TestGetOrCreateKeepsExisting(t *testing.T) {
	kv := storage.NewMemKV()
	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, domain.KeyDeviceID, "ABC123"))
	require.Equal(t, "ABC123", New(kv, nil).GetOrCreate(ctx))
}
