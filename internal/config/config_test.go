package config

import (
	"testing"

	"github.com/andresuchdata/marfim-stock/backend-go/internal/analytics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineConfigKeepsDefaultsForZeroValues(t *testing.T) {
	cfg := AnalyticsConfig{}.EngineConfig()
	assert.Equal(t, analytics.DefaultConfig(), cfg)
}

func TestEngineConfigOverrides(t *testing.T) {
	cfg := AnalyticsConfig{
		Workers:        4,
		ServiceLevel:   0.99,
		Horizons:       []int{7, 14},
		CriticalDays:   5,
		StaleAfterDays: 60,
		PurchaseMargin: 1.5,
	}.EngineConfig()

	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 0.99, cfg.ServiceLevel)
	assert.Equal(t, []int{7, 14}, cfg.Horizons)
	assert.Equal(t, 5.0, cfg.CriticalDays)
	assert.Equal(t, 60, cfg.StaleAfterDays)
	assert.Equal(t, 1.5, cfg.PurchaseSafetyMargin)
	require.NoError(t, cfg.Validate())
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("APP_UPLOAD_DIR", t.TempDir())
	t.Setenv("APP_DATA_DIR", t.TempDir())
	t.Setenv("LEDGER_SOURCE", "csv")
	t.Setenv("ANALYTICS_SERVICE_LEVEL", "0.9")

	cfg := Load()
	assert.Equal(t, "csv", cfg.App.LedgerSource)
	assert.Equal(t, 0.9, cfg.Analytics.ServiceLevel)
	assert.Equal(t, "llama-3.3-70b-versatile", cfg.LLM.Model)
	assert.Equal(t, 300, cfg.Cache.ReportTTLSeconds)
}
