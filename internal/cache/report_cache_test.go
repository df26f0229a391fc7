package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/andresuchdata/marfim-stock/backend-go/internal/analytics"
	"github.com/andresuchdata/marfim-stock/backend-go/internal/config"
	"github.com/andresuchdata/marfim-stock/backend-go/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportKey(t *testing.T) {
	day := time.Date(2024, 6, 15, 18, 30, 0, 0, time.UTC)
	key := ReportKey{Source: "xlsx:/data/Estoque.xlsx", Day: day, Settings: analytics.DefaultConfig()}

	assert.Equal(t, key.String(), ReportKey{Source: "xlsx:/data/Estoque.xlsx", Day: day.Add(-time.Hour), Settings: analytics.DefaultConfig()}.String())
	assert.Contains(t, key.String(), "analytics:report:xlsx__data_estoque.xlsx:20240615:")

	changed := analytics.DefaultConfig()
	changed.ServiceLevel = 0.99
	assert.NotEqual(t, key.String(), ReportKey{Source: key.Source, Day: day, Settings: changed}.String())

	nextDay := key
	nextDay.Day = day.AddDate(0, 0, 1)
	assert.NotEqual(t, key.String(), nextDay.String())
}

func TestSettingsHashIgnoresWindowOrder(t *testing.T) {
	a := analytics.DefaultConfig()
	b := analytics.DefaultConfig()
	b.Windows = []int{90, 60, 30, 7}
	a.Windows = []int{7, 30, 60, 90}
	assert.Equal(t, settingsHash(a), settingsHash(b))
}

func TestSettingsHashCoversReportSettings(t *testing.T) {
	base := settingsHash(analytics.DefaultConfig())

	mutations := map[string]func(*analytics.Config){
		"z table":           func(c *analytics.Config) { c.ZTable = map[float64]float64{0.95: 1.96} },
		"default z":         func(c *analytics.Config) { c.DefaultZ = 2 },
		"lead time bounds":  func(c *analytics.Config) { c.MaxLeadTimeDays = 45 },
		"lot horizon":       func(c *analytics.Config) { c.LotHorizonDays = 45 },
		"std fallback":      func(c *analytics.Config) { c.StdFallbackRatio = 0.3 },
		"seasonal clamp":    func(c *analytics.Config) { c.SeasonalMax = 3 },
		"confidence":        func(c *analytics.Config) { c.HighConfidenceMin = 50 },
		"anomaly samples":   func(c *analytics.Config) { c.MinExitSamples = 9 },
		"purchase urgency":  func(c *analytics.Config) { c.PurchaseUrgentDays = 3 },
		"purchase high":     func(c *analytics.Config) { c.PurchaseHighDays = 20 },
		"turnover window":   func(c *analytics.Config) { c.TurnoverWindow = 60 },
		"divergence":        func(c *analytics.Config) { c.DivergenceTolerance = 5 },
		"planning window":   func(c *analytics.Config) { c.PlanningWindow = 60 },
		"seasonal lookback": func(c *analytics.Config) { c.SeasonalLookbackMonths = 6 },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			cfg := analytics.DefaultConfig()
			mutate(&cfg)
			assert.NotEqual(t, base, settingsHash(cfg))
		})
	}

	workers := analytics.DefaultConfig()
	workers.Workers = 16
	assert.Equal(t, base, settingsHash(workers))
}

func TestRedisOptions(t *testing.T) {
	opts, err := redisOptions(config.CacheConfig{RedisPassword: "s3cret", RedisDB: 2})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:6379", opts.Addr)
	assert.Equal(t, "s3cret", opts.Password)
	assert.Equal(t, 2, opts.DB)

	opts, err = redisOptions(config.CacheConfig{RedisURL: "redis://:pw@cache.internal:6380/3", RedisHost: "ignored"})
	require.NoError(t, err)
	assert.Equal(t, "cache.internal:6380", opts.Addr)
	assert.Equal(t, 3, opts.DB)

	_, err = redisOptions(config.CacheConfig{RedisURL: "http://cache"})
	assert.ErrorContains(t, err, "invalid redis url")
}

func TestReportTTL(t *testing.T) {
	assert.Equal(t, defaultReportTTL, reportTTL(config.CacheConfig{}))
	assert.Equal(t, 30*time.Second, reportTTL(config.CacheConfig{ReportTTLSeconds: 30}))
}

func TestNoopReportCache(t *testing.T) {
	c, err := NewReportCache(context.Background(), config.CacheConfig{Enabled: false})
	require.NoError(t, err)

	ctx := context.Background()
	key := ReportKey{Source: "csv", Day: time.Now()}
	require.NoError(t, c.Set(ctx, key, &domain.Report{Items: 3}))
	_, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = c.Latest(ctx, "csv")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, c.InvalidateAll(ctx))
}

func TestRedisReportCache(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	c, err := NewReportCache(context.Background(), config.CacheConfig{Enabled: true, RedisURL: url, ReportTTLSeconds: 30})
	if err != nil {
		t.Skipf("redis unavailable: %v", err)
	}

	ctx := context.Background()
	require.NoError(t, c.InvalidateAll(ctx))

	key := ReportKey{Source: "test", Day: time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), Settings: analytics.DefaultConfig()}
	report := &domain.Report{Items: 2, Mode: domain.ModeDated, Alerts: []domain.Alert{{ItemID: "Linha", Severity: domain.SeverityUrgent}}}
	require.NoError(t, c.Set(ctx, key, report))

	got, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, got.Items)
	assert.Equal(t, domain.SeverityUrgent, got.Alerts[0].Severity)

	latest, ok, err := c.Latest(ctx, "test")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, got, latest)

	require.NoError(t, c.InvalidateAll(ctx))
	_, ok, err = c.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}
