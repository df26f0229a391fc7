package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net"
	"sort"
	"strings"
	"time"

	"github.com/andresuchdata/marfim-stock/backend-go/internal/analytics"
	"github.com/andresuchdata/marfim-stock/backend-go/internal/config"
	"github.com/andresuchdata/marfim-stock/backend-go/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	keyNamespace    = "analytics:"
	reportKeyPrefix = keyNamespace + "report"
	latestKeyPrefix = keyNamespace + "latest"
	scanBatchSize   = 100

	// defaultReportTTL applies when ReportTTLSeconds is unset. Keys roll over daily anyway.
	defaultReportTTL = 15 * time.Minute
	pingTimeout      = 5 * time.Second
)

// ReportKey identifies a report: the same source, day and settings give the same report.
type ReportKey struct {
	Source   string
	Day      time.Time
	Settings analytics.Config
}

// String builds the redis key for k.
func (k ReportKey) String() string {
	return fmt.Sprintf("%s:%s:%s:%s", reportKeyPrefix, sanitize(k.Source), k.Day.UTC().Format("20060102"), settingsHash(k.Settings))
}

type ReportCache interface {
	Get(ctx context.Context, key ReportKey) (*domain.Report, bool, error)
	Set(ctx context.Context, key ReportKey, report *domain.Report) error
	// Latest returns the most recently stored report for a source.
	Latest(ctx context.Context, source string) (*domain.Report, bool, error)
	InvalidateAll(ctx context.Context) error
}

type redisReportCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopReportCache struct{}

// NewReportCache connects to redis when caching is enabled. The connection is
// checked once with a ping bounded by ctx.
func NewReportCache(ctx context.Context, cfg config.CacheConfig) (ReportCache, error) {
	if !cfg.Enabled {
		return &noopReportCache{}, nil
	}

	opts, err := redisOptions(cfg)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s failed: %w", opts.Addr, err)
	}

	return &redisReportCache{client: client, ttl: reportTTL(cfg)}, nil
}

// redisOptions prefers REDIS_URL and falls back to the discrete host settings.
func redisOptions(cfg config.CacheConfig) (*redis.Options, error) {
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		return opts, nil
	}
	host, port := cfg.RedisHost, cfg.RedisPort
	if host == "" {
		host = "127.0.0.1"
	}
	if port == "" {
		port = "6379"
	}
	return &redis.Options{
		Addr:     net.JoinHostPort(host, port),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, nil
}

func reportTTL(cfg config.CacheConfig) time.Duration {
	if cfg.ReportTTLSeconds <= 0 {
		return defaultReportTTL
	}
	return time.Duration(cfg.ReportTTLSeconds) * time.Second
}

func NewNoopReportCache() ReportCache {
	return &noopReportCache{}
}

func (c *redisReportCache) Get(ctx context.Context, key ReportKey) (*domain.Report, bool, error) {
	return c.load(ctx, key.String())
}

func (c *redisReportCache) Latest(ctx context.Context, source string) (*domain.Report, bool, error) {
	key, err := c.client.Get(ctx, latestKey(source)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}
	return c.load(ctx, key)
}

func (c *redisReportCache) load(ctx context.Context, key string) (*domain.Report, bool, error) {
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var report domain.Report
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, false, fmt.Errorf("decode report cache: %w", err)
	}
	return &report, true, nil
}

func (c *redisReportCache) Set(ctx context.Context, key ReportKey, report *domain.Report) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report cache: %w", err)
	}

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, key.String(), payload, c.ttl)
	pipe.Set(ctx, latestKey(key.Source), key.String(), c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// InvalidateAll drops every report and latest pointer. Keys are unlinked in
// scan-sized batches so a large keyspace never blocks redis.
func (c *redisReportCache) InvalidateAll(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, keyNamespace+"*", scanBatchSize).Iterator()
	batch := make([]string, 0, scanBatchSize)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatchSize {
			if err := c.client.Unlink(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("redis unlink failed: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan failed: %w", err)
	}
	if len(batch) > 0 {
		if err := c.client.Unlink(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("redis unlink failed: %w", err)
		}
	}
	return nil
}

func (n *noopReportCache) Get(ctx context.Context, key ReportKey) (*domain.Report, bool, error) {
	return nil, false, nil
}

func (n *noopReportCache) Set(ctx context.Context, key ReportKey, report *domain.Report) error {
	return nil
}

func (n *noopReportCache) Latest(ctx context.Context, source string) (*domain.Report, bool, error) {
	return nil, false, nil
}

func (n *noopReportCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func latestKey(source string) string {
	return latestKeyPrefix + ":" + sanitize(source)
}

var keySanitizer = strings.NewReplacer(":", "_", " ", "_", "/", "_")

func sanitize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "default"
	}
	return keySanitizer.Replace(s)
}

// settingsHash fingerprints every engine setting that changes report contents.
// Workers only affects scheduling and is left out.
func settingsHash(cfg analytics.Config) string {
	parts := []string{
		"windows=" + joinInts(cfg.Windows),
		fmt.Sprintf("short=%d planning=%d", cfg.ShortWindow, cfg.PlanningWindow),
		fmt.Sprintf("service_level=%g default_z=%g", cfg.ServiceLevel, cfg.DefaultZ),
		fmt.Sprintf("lead=%g/%g/%g", cfg.DefaultLeadTimeDays, cfg.MinLeadTimeDays, cfg.MaxLeadTimeDays),
		fmt.Sprintf("lot=%d std_fallback=%g", cfg.LotHorizonDays, cfg.StdFallbackRatio),
		"horizons=" + joinInts(cfg.Horizons),
		fmt.Sprintf("seasonal=%d/%g/%g", cfg.SeasonalMinMonths, cfg.SeasonalMin, cfg.SeasonalMax),
		fmt.Sprintf("confidence=%g/%d/%d", cfg.ConfidenceZ, cfg.HighConfidenceMin, cfg.MediumConfidenceMin),
		fmt.Sprintf("outlier_z=%g samples=%d/%d", cfg.OutlierZ, cfg.MinExitSamples, cfg.MinEntrySamples),
		fmt.Sprintf("repeated=%d same_day=%d", cfg.RepeatedValueMin, cfg.SameDayExitsMin),
		fmt.Sprintf("seasonal_anomaly=%d/%g/%d/%d", cfg.SeasonalLookbackMonths, cfg.SeasonalDeviation, cfg.SeasonalMinExits, cfg.SeasonalMinBuckets),
		fmt.Sprintf("abc=%g/%g", cfg.ClassALimit, cfg.ClassBLimit),
		fmt.Sprintf("alerts=%g/%g/%g/%g", cfg.CriticalDays, cfg.UrgentDays, cfg.AttentionDays, cfg.AlertReplenishDays),
		fmt.Sprintf("purchase=%g/%g/%g/%g/%g", cfg.PurchaseTargetDays, cfg.PurchaseSafetyMargin, cfg.PurchaseMaxCoverage, cfg.PurchaseUrgentDays, cfg.PurchaseHighDays),
		fmt.Sprintf("turnover=%d stale=%d divergence=%g", cfg.TurnoverWindow, cfg.StaleAfterDays, cfg.DivergenceTolerance),
	}

	weights := make([]int, 0, len(cfg.BaseRateWeights))
	for w := range cfg.BaseRateWeights {
		weights = append(weights, w)
	}
	sort.Ints(weights)
	for _, w := range weights {
		parts = append(parts, fmt.Sprintf("weight_%d=%g", w, cfg.BaseRateWeights[w]))
	}

	levels := make([]float64, 0, len(cfg.ZTable))
	for l := range cfg.ZTable {
		levels = append(levels, l)
	}
	sort.Float64s(levels)
	for _, l := range levels {
		parts = append(parts, fmt.Sprintf("z_%g=%g", l, cfg.ZTable[l]))
	}

	sum := sha1.Sum([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:8])
}

func joinInts(values []int) string {
	c := append([]int(nil), values...)
	sort.Ints(c)
	strs := make([]string, len(c))
	for i, v := range c {
		strs[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(strs, ",")
}
