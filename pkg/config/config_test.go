package config

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "8080", cfg.App.Port)
	require.True(t, cfg.DB.IsSQLite())
	require.Equal(t, "m__idem", cfg.RecordStore.KeyField)
	require.False(t, cfg.RecordStore.Configured())
	require.False(t, cfg.Redis.Enabled())
	require.True(t, cfg.Discount.DefaultRate().Equal(decimal.RequireFromString("0.05")))
}

func TestDiscountRateValidation(t *testing.T) {
	t.Setenv("INKBRIDGE_DISCOUNT_DEFAULT_RATE", "1.5")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("INKBRIDGE_DISCOUNT_DEFAULT_RATE", "not-a-number")
	_, err = Load()
	require.Error(t, err)
}

func TestRecordStoreConfigured(t *testing.T) {
	cfg := RecordStoreConfig{
		BaseURL: "https://records.example.com/v0",
		Token:   "secret",
		BaseID:  "appX",
		Table:   "orders",
	}
	require.True(t, cfg.Configured())

	cfg.Token = "  "
	require.False(t, cfg.Configured())
}
