package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8082", cfg.ListenAddr)

	fee, err := cfg.Fee()
	require.NoError(t, err)
	assert.True(t, fee.Equal(decimal.RequireFromString("50.00")))
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storefront.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"listen_addr: \":9000\"\nshipping_fee: \"75.50\"\nlog_level: debug\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	fee, err := cfg.Fee()
	require.NoError(t, err)
	assert.True(t, fee.Equal(decimal.RequireFromString("75.50")))
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("STOREFRONT_LISTEN_ADDR", ":7777")
	t.Setenv("STOREFRONT_SHIPPING_FEE", "0")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":7777", cfg.ListenAddr)
	fee, err := cfg.Fee()
	require.NoError(t, err)
	assert.True(t, fee.IsZero())
}

func TestBadShippingFee(t *testing.T) {
	t.Setenv("STOREFRONT_SHIPPING_FEE", "free")
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)

	t.Setenv("STOREFRONT_SHIPPING_FEE", "-5")
	_, err = Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
