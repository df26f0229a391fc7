package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/andresuchdata/marfim-stock/backend-go/internal/analytics"
	"github.com/andresuchdata/marfim-stock/backend-go/internal/cache"
	"github.com/andresuchdata/marfim-stock/backend-go/internal/domain"
	"github.com/andresuchdata/marfim-stock/backend-go/internal/export"
	"github.com/andresuchdata/marfim-stock/backend-go/internal/ledger"
	"github.com/andresuchdata/marfim-stock/backend-go/internal/llm"
	"github.com/andresuchdata/marfim-stock/backend-go/internal/repository"
	"github.com/andresuchdata/marfim-stock/backend-go/internal/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrItemNotFound is returned when an item is in neither the ledger nor the index.
var ErrItemNotFound = errors.New("item not found")

// ErrStorageDisabled is returned by the stored export operations when no object storage is configured.
var ErrStorageDisabled = errors.New("object storage is not configured")

// ErrInvalidExportRef is returned for a malformed day or a key outside the export prefix.
var ErrInvalidExportRef = errors.New("invalid export reference")

// Deps are the collaborators of AnalyticsService. Only Source and Engine are required.
type Deps struct {
	Source     ledger.Source
	Engine     *analytics.Engine
	Cache      cache.ReportCache
	Runs       repository.RunRepository
	Storage    storage.ObjectStorage
	Prefix     string
	Summarizer *llm.Summarizer
	Now        func() time.Time
}

// AnalyticsService produces reports from the configured ledger and keeps them
// cached, recorded and exportable.
type AnalyticsService struct {
	source     ledger.Source
	engine     *analytics.Engine
	cache      cache.ReportCache
	runs       repository.RunRepository
	storage    storage.ObjectStorage
	prefix     string
	summarizer *llm.Summarizer
	now        func() time.Time

	// refresh serializes ledger reads so concurrent misses load once.
	refresh sync.Mutex
}

func NewAnalyticsService(d Deps) (*AnalyticsService, error) {
	if d.Source == nil {
		return nil, errors.New("analytics service: ledger source is required")
	}
	if d.Engine == nil {
		return nil, errors.New("analytics service: engine is required")
	}
	if d.Cache == nil {
		d.Cache = cache.NewNoopReportCache()
	}
	if d.Runs == nil {
		d.Runs = repository.NewMemoryRunRepository()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &AnalyticsService{
		source:     d.Source,
		engine:     d.Engine,
		cache:      d.Cache,
		runs:       d.Runs,
		storage:    d.Storage,
		prefix:     d.Prefix,
		summarizer: d.Summarizer,
		now:        d.Now,
	}, nil
}

func (s *AnalyticsService) key(source string, now time.Time) cache.ReportKey {
	return cache.ReportKey{Source: source, Day: now, Settings: s.engine.Config()}
}

// Report returns today's report for the configured source, computing it on a cache miss.
func (s *AnalyticsService) Report(ctx context.Context) (*domain.Report, error) {
	key := s.key(s.source.Name(), s.now())
	if report, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		return report, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("analytics: cache get report failed")
	}

	s.refresh.Lock()
	defer s.refresh.Unlock()

	// another request may have filled the cache while we waited
	if report, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		return report, nil
	}
	report, _, err := s.run(ctx)
	return report, err
}

// Refresh reloads the ledger and recomputes the report regardless of the cache.
func (s *AnalyticsService) Refresh(ctx context.Context) (*domain.Report, *domain.AnalysisRun, error) {
	s.refresh.Lock()
	defer s.refresh.Unlock()
	return s.run(ctx)
}

func (s *AnalyticsService) run(ctx context.Context) (*domain.Report, *domain.AnalysisRun, error) {
	snap, err := s.source.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load ledger from %s: %w", s.source.Name(), err)
	}
	if snap.Skipped > 0 {
		log.Info().Int("rows", snap.Skipped).Str("source", s.source.Name()).Msg("analytics: skipped ledger rows without item")
	}
	return s.Analyze(ctx, s.source.Name(), snap)
}

// Analyze runs the engine over snap, caches the report under source and records the run.
func (s *AnalyticsService) Analyze(ctx context.Context, source string, snap *ledger.Snapshot) (*domain.Report, *domain.AnalysisRun, error) {
	start := time.Now()
	now := s.now()

	report, err := s.engine.Run(ctx, snap.Transactions, snap.Items, now)
	if err != nil {
		return nil, nil, err
	}

	if err := s.cache.Set(ctx, s.key(source, now), report); err != nil {
		log.Warn().Err(err).Str("source", source).Msg("analytics: cache set report failed")
	}

	run := newRun(source, report, time.Since(start))
	if err := s.runs.SaveRun(ctx, run, report.Alerts); err != nil {
		// the report is still valid without its history row
		log.Error().Err(err).Str("run_id", run.ID).Msg("analytics: failed to record run")
	}

	log.Info().
		Str("run_id", run.ID).
		Str("source", source).
		Int("items", report.Items).
		Int("critical", run.Critical).
		Int("errors", run.Errors).
		Int64("duration_ms", run.DurationMS).
		Msg("analytics: report generated")

	return report, run, nil
}

func newRun(source string, r *domain.Report, elapsed time.Duration) *domain.AnalysisRun {
	return &domain.AnalysisRun{
		ID:           uuid.NewString(),
		ReferenceAt:  r.GeneratedAt,
		Source:       source,
		Mode:         string(r.Mode),
		Items:        r.Items,
		Transactions: r.Transactions,
		Critical:     r.AlertSummary.Critical,
		Urgent:       r.AlertSummary.Urgent,
		Attention:    r.AlertSummary.Attention,
		Anomalies:    len(r.Anomalies),
		Errors:       len(r.Errors),
		DurationMS:   elapsed.Milliseconds(),
		CreatedAt:    time.Now().UTC(),
	}
}

// ItemDetail is every row of a report that concerns one item.
type ItemDetail struct {
	Consumption domain.ItemWindows         `json:"consumption"`
	Planning    *domain.PlanningParameters `json:"planning,omitempty"`
	Forecasts   []domain.ForecastResult    `json:"forecasts"`
	Anomalies   []domain.Anomaly           `json:"anomalies"`
	ABC         *domain.ABCEntry           `json:"abc,omitempty"`
	Alert       *domain.Alert              `json:"alert,omitempty"`
	Purchase    *domain.PurchaseItem       `json:"purchase,omitempty"`
	Skips       []domain.Skip              `json:"skips"`
}

// Item extracts the rows for item from the current report.
func (s *AnalyticsService) Item(ctx context.Context, item string) (*ItemDetail, error) {
	report, err := s.Report(ctx)
	if err != nil {
		return nil, err
	}
	return ItemFromReport(report, item)
}

// ItemFromReport matches item against the report using the same key normalization as the engine.
func ItemFromReport(r *domain.Report, item string) (*ItemDetail, error) {
	key := analytics.NormalizeKey(item)
	match := func(id string) bool { return analytics.NormalizeKey(id) == key }

	d := &ItemDetail{Forecasts: []domain.ForecastResult{}, Anomalies: []domain.Anomaly{}, Skips: []domain.Skip{}}
	found := false
	for _, c := range r.Consumption {
		if match(c.ItemID) {
			d.Consumption = c
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrItemNotFound, item)
	}

	for i := range r.Planning {
		if match(r.Planning[i].ItemID) {
			d.Planning = &r.Planning[i]
		}
	}
	for _, f := range r.Forecasts {
		if match(f.ItemID) {
			d.Forecasts = append(d.Forecasts, f)
		}
	}
	for _, a := range r.Anomalies {
		if match(a.ItemID) {
			d.Anomalies = append(d.Anomalies, a)
		}
	}
	for i := range r.ABC.Entries {
		if match(r.ABC.Entries[i].ItemID) {
			d.ABC = &r.ABC.Entries[i]
		}
	}
	for i := range r.Alerts {
		if match(r.Alerts[i].ItemID) {
			d.Alert = &r.Alerts[i]
		}
	}
	for i := range r.Purchases {
		if match(r.Purchases[i].ItemID) {
			d.Purchase = &r.Purchases[i]
		}
	}
	for _, sk := range r.Skips {
		if match(sk.ItemID) {
			d.Skips = append(d.Skips, sk)
		}
	}
	return d, nil
}

// Export renders report as xlsx. When object storage is configured the file is
// uploaded too and its key returned.
func (s *AnalyticsService) Export(ctx context.Context, report *domain.Report) ([]byte, string, error) {
	var buf bytes.Buffer
	if err := export.Write(report, &buf); err != nil {
		return nil, "", fmt.Errorf("failed to render export: %w", err)
	}

	if s.storage == nil {
		return buf.Bytes(), "", nil
	}
	key := storage.ExportKey(s.prefix, report.GeneratedAt.Format("2006-01-02"), export.FileName(report))
	if err := s.storage.UploadObject(ctx, key, buf.Bytes()); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("analytics: export upload failed")
		return buf.Bytes(), "", nil
	}
	log.Info().Str("key", key).Int("bytes", buf.Len()).Msg("analytics: export uploaded")
	return buf.Bytes(), key, nil
}

// StoredExports lists the uploaded exports of one day (YYYY-MM-DD), or of every day when day is blank.
func (s *AnalyticsService) StoredExports(ctx context.Context, day string) ([]storage.ObjectInfo, error) {
	if s.storage == nil {
		return nil, ErrStorageDisabled
	}
	prefix := strings.Trim(s.prefix, "/")
	if day = strings.TrimSpace(day); day != "" {
		if _, err := time.Parse("2006-01-02", day); err != nil {
			return nil, fmt.Errorf("%w: invalid day %q", ErrInvalidExportRef, day)
		}
		prefix = storage.ExportKey(s.prefix, day, "")
	}
	if prefix != "" {
		prefix += "/"
	}
	objects, err := s.storage.ListObjects(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list exports: %w", err)
	}
	return objects, nil
}

// FetchExport downloads a stored export to destPath. Keys outside the export prefix are rejected.
func (s *AnalyticsService) FetchExport(ctx context.Context, key, destPath string) error {
	if s.storage == nil {
		return ErrStorageDisabled
	}
	prefix := strings.Trim(s.prefix, "/")
	if key == "" || strings.Contains(key, "..") || (prefix != "" && !strings.HasPrefix(key, prefix+"/")) {
		return fmt.Errorf("%w: invalid export key %q", ErrInvalidExportRef, key)
	}
	if err := s.storage.DownloadObject(ctx, key, destPath); err != nil {
		return fmt.Errorf("failed to download export %s: %w", key, err)
	}
	log.Info().Str("key", key).Str("path", destPath).Msg("analytics: export downloaded")
	return nil
}

// Summary asks the language model for an overview of the current report.
func (s *AnalyticsService) Summary(ctx context.Context) (string, error) {
	if s.summarizer == nil {
		return "", llm.ErrDisabled
	}
	report, err := s.Report(ctx)
	if err != nil {
		return "", err
	}
	return s.summarizer.Summarize(ctx, report)
}

// ItemSummary asks the language model for a purchase recommendation on one item.
func (s *AnalyticsService) ItemSummary(ctx context.Context, item string) (string, error) {
	if s.summarizer == nil {
		return "", llm.ErrDisabled
	}
	report, err := s.Report(ctx)
	if err != nil {
		return "", err
	}
	if _, err := ItemFromReport(report, item); err != nil {
		return "", err
	}
	return s.summarizer.AnalyzeItem(ctx, report, item)
}

func (s *AnalyticsService) Runs(ctx context.Context, limit int) ([]domain.AnalysisRun, error) {
	return s.runs.ListRuns(ctx, limit)
}

// Run returns a recorded run and the alerts it raised.
func (s *AnalyticsService) Run(ctx context.Context, id string) (*domain.AnalysisRun, []domain.Alert, error) {
	run, err := s.runs.GetRun(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	alerts, err := s.runs.RunAlerts(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return run, alerts, nil
}

// InvalidateCache drops every cached report.
func (s *AnalyticsService) InvalidateCache(ctx context.Context) error {
	return s.cache.InvalidateAll(ctx)
}

func (s *AnalyticsService) SourceName() string { return s.source.Name() }
