package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	t.Setenv("AFFILIATE_COMPANY_CODE", "ABC123")
	cfg, err := Parse()
	require.NoError(t, err)
	require.Equal(t, "leveldb", cfg.StoreDriver)

	require.Equal(t, "ABC123", cfg.CompanyCode)
	require.Zero(t, cfg.AttributionWindow())
	require.Equal(t, 10*time.Second, cfg.HTTPTimeout())
	require.Equal(t, "https://api.insertaffiliate.com", cfg.APIBaseURL)
}

func TestParseFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "affiliate.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
company_code = "FROMFILE"
insert_links_enabled = true
attribution_window_seconds = 1.5
store_driver = "sqlite"
`), 0o600))
	t.Setenv("AFFILIATE_CONFIG_FILE", path)
	t.Setenv("AFFILIATE_COMPANY_CODE", "FROMENV")
	t.Setenv("AFFILIATE_VERBOSE", "true")

	cfg, err := Parse()
	require.NoError(t, err)
	require.Equal(t, "FROMENV", cfg.CompanyCode)
	require.True(t, cfg.Verbose)
	require.True(t, cfg.InsertLinksEnabled)
	require.Equal(t, "sqlite", cfg.StoreDriver)
	require.Equal(t, 1500*time.Millisecond, cfg.AttributionWindow())
}

func TestParseRejectsUnknownDriver(t *testing.T) {
	t.Setenv("AFFILIATE_STORE_DRIVER", "redis")
	_, err := Parse()
	require.Error(t, err)
}
