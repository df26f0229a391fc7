package service

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/andresuchdata/marfim-stock/backend-go/internal/analytics"
	"github.com/andresuchdata/marfim-stock/backend-go/internal/cache"
	"github.com/andresuchdata/marfim-stock/backend-go/internal/domain"
	"github.com/andresuchdata/marfim-stock/backend-go/internal/ledger"
	"github.com/andresuchdata/marfim-stock/backend-go/internal/llm"
	"github.com/andresuchdata/marfim-stock/backend-go/internal/repository"
	"github.com/andresuchdata/marfim-stock/backend-go/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeSource struct {
	mu    sync.Mutex
	loads int
	snap  *ledger.Snapshot
	err   error
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Load(ctx context.Context) (*ledger.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	return f.snap, f.err
}

type mapCache struct {
	mu      sync.Mutex
	reports map[string]*domain.Report
}

func newMapCache() *mapCache { return &mapCache{reports: map[string]*domain.Report{}} }

func (c *mapCache) Get(ctx context.Context, key cache.ReportKey) (*domain.Report, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.reports[key.String()]
	return r, ok, nil
}

func (c *mapCache) Set(ctx context.Context, key cache.ReportKey, r *domain.Report) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reports[key.String()] = r
	return nil
}

func (c *mapCache) Latest(ctx context.Context, source string) (*domain.Report, bool, error) {
	return nil, false, nil
}

func (c *mapCache) InvalidateAll(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reports = map[string]*domain.Report{}
	return nil
}

type fakeStorage struct {
	uploads map[string][]byte
	err     error
}

func (f *fakeStorage) ListObjects(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	var out []storage.ObjectInfo
	for key, data := range f.uploads {
		if strings.HasPrefix(key, prefix) {
			out = append(out, storage.ObjectInfo{Key: key, Size: int64(len(data))})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (f *fakeStorage) DownloadObject(ctx context.Context, key, dest string) error {
	data, ok := f.uploads[key]
	if !ok {
		return errors.New("no such key")
	}
	return os.WriteFile(dest, data, 0o644)
}

func (f *fakeStorage) UploadObject(ctx context.Context, key string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.uploads[key] = data
	return nil
}

type fakeCompleter struct{ prompts []string }

func (f *fakeCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	f.prompts = append(f.prompts, user)
	return "ok", nil
}

func fixtureSnapshot() *ledger.Snapshot {
	var txs []domain.Transaction
	for d := 1; d <= 30; d++ {
		day := fixedNow.AddDate(0, 0, -d)
		txs = append(txs, domain.Transaction{ItemID: "Linha Branca", Date: &day, ExitQty: 10})
	}
	return &ledger.Snapshot{
		Transactions: txs,
		Items:        []domain.ItemSnapshot{{ItemID: "Linha Branca", CurrentBalance: 50}},
	}
}

func newTestService(t *testing.T, src *fakeSource, deps Deps) *AnalyticsService {
	t.Helper()
	engine, err := analytics.NewEngine(analytics.DefaultConfig())
	require.NoError(t, err)
	deps.Source = src
	deps.Engine = engine
	deps.Now = func() time.Time { return fixedNow }
	svc, err := NewAnalyticsService(deps)
	require.NoError(t, err)
	return svc
}

func TestNewAnalyticsServiceRequiresSourceAndEngine(t *testing.T) {
	_, err := NewAnalyticsService(Deps{})
	assert.Error(t, err)

	_, err = NewAnalyticsService(Deps{Source: &fakeSource{}})
	assert.Error(t, err)
}

func TestReportIsCachedPerDay(t *testing.T) {
	src := &fakeSource{snap: fixtureSnapshot()}
	runs := repository.NewMemoryRunRepository()
	svc := newTestService(t, src, Deps{Cache: newMapCache(), Runs: runs})
	ctx := context.Background()

	first, err := svc.Report(ctx)
	require.NoError(t, err)
	second, err := svc.Report(ctx)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, src.loads)
	assert.Equal(t, 1, first.AlertSummary.Critical)

	_, run, err := svc.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, src.loads)
	assert.Equal(t, "fake", run.Source)

	list, err := svc.Runs(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	got, alerts, err := svc.Run(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Critical)
	require.Len(t, alerts, 1)
	assert.Equal(t, "Linha Branca", alerts[0].ItemID)
}

func TestReportLoadError(t *testing.T) {
	src := &fakeSource{err: ledger.ErrEmptySheet}
	svc := newTestService(t, src, Deps{})

	_, err := svc.Report(context.Background())
	assert.ErrorIs(t, err, ledger.ErrEmptySheet)
}

func TestItem(t *testing.T) {
	svc := newTestService(t, &fakeSource{snap: fixtureSnapshot()}, Deps{})
	ctx := context.Background()

	detail, err := svc.Item(ctx, "  linha branca")
	require.NoError(t, err)
	assert.Equal(t, "Linha Branca", detail.Consumption.ItemID)
	require.NotNil(t, detail.Alert)
	assert.Equal(t, domain.SeverityCritical, detail.Alert.Severity)
	require.NotNil(t, detail.Planning)
	assert.NotEmpty(t, detail.Forecasts)

	_, err = svc.Item(ctx, "Agulha")
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestExport(t *testing.T) {
	ctx := context.Background()

	t.Run("without storage", func(t *testing.T) {
		svc := newTestService(t, &fakeSource{snap: fixtureSnapshot()}, Deps{})
		report, err := svc.Report(ctx)
		require.NoError(t, err)

		data, key, err := svc.Export(ctx, report)
		require.NoError(t, err)
		assert.Empty(t, key)

		f, err := excelize.OpenReader(bytes.NewReader(data))
		require.NoError(t, err)
		defer f.Close()
		assert.Contains(t, f.GetSheetList(), "Alerts")
	})

	t.Run("uploads under the day folder", func(t *testing.T) {
		store := &fakeStorage{uploads: map[string][]byte{}}
		svc := newTestService(t, &fakeSource{snap: fixtureSnapshot()}, Deps{Storage: store, Prefix: "exports"})
		report, err := svc.Report(ctx)
		require.NoError(t, err)

		data, key, err := svc.Export(ctx, report)
		require.NoError(t, err)
		assert.Equal(t, "exports/2026-03-01/analise_estoque_20260301_1200.xlsx", key)
		assert.Equal(t, data, store.uploads[key])
	})

	t.Run("upload failure still returns the file", func(t *testing.T) {
		store := &fakeStorage{uploads: map[string][]byte{}, err: errors.New("bucket gone")}
		svc := newTestService(t, &fakeSource{snap: fixtureSnapshot()}, Deps{Storage: store})
		report, err := svc.Report(ctx)
		require.NoError(t, err)

		data, key, err := svc.Export(ctx, report)
		require.NoError(t, err)
		assert.Empty(t, key)
		assert.NotEmpty(t, data)
	})
}

func TestStoredExports(t *testing.T) {
	ctx := context.Background()

	svc := newTestService(t, &fakeSource{snap: fixtureSnapshot()}, Deps{})
	_, err := svc.StoredExports(ctx, "")
	assert.ErrorIs(t, err, ErrStorageDisabled)
	assert.ErrorIs(t, svc.FetchExport(ctx, "exports/x.xlsx", filepath.Join(t.TempDir(), "x.xlsx")), ErrStorageDisabled)

	store := &fakeStorage{uploads: map[string][]byte{
		"exports/2026-02-28/old.xlsx": []byte("old"),
		"other/2026-03-01/skip.xlsx":  []byte("skip"),
	}}
	svc = newTestService(t, &fakeSource{snap: fixtureSnapshot()}, Deps{Storage: store, Prefix: "/exports/"})
	report, err := svc.Report(ctx)
	require.NoError(t, err)
	data, key, err := svc.Export(ctx, report)
	require.NoError(t, err)

	all, err := svc.StoredExports(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "exports/2026-02-28/old.xlsx", all[0].Key)

	day, err := svc.StoredExports(ctx, "2026-03-01")
	require.NoError(t, err)
	require.Len(t, day, 1)
	assert.Equal(t, key, day[0].Key)
	assert.Equal(t, int64(len(data)), day[0].Size)

	_, err = svc.StoredExports(ctx, "01/03/2026")
	assert.ErrorContains(t, err, "invalid day")

	dest := filepath.Join(t.TempDir(), "copy.xlsx")
	require.NoError(t, svc.FetchExport(ctx, key, dest))
	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	assert.ErrorContains(t, svc.FetchExport(ctx, "other/2026-03-01/skip.xlsx", dest), "invalid export key")
	assert.ErrorContains(t, svc.FetchExport(ctx, "exports/../other/2026-03-01/skip.xlsx", dest), "invalid export key")
	assert.ErrorContains(t, svc.FetchExport(ctx, "exports/2026-01-01/missing.xlsx", dest), "failed to download")
}

func TestSummary(t *testing.T) {
	ctx := context.Background()

	svc := newTestService(t, &fakeSource{snap: fixtureSnapshot()}, Deps{})
	_, err := svc.Summary(ctx)
	assert.ErrorIs(t, err, llm.ErrDisabled)

	completer := &fakeCompleter{}
	svc = newTestService(t, &fakeSource{snap: fixtureSnapshot()}, Deps{Summarizer: llm.NewSummarizer(completer)})

	text, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ok", text)

	_, err = svc.ItemSummary(ctx, "linha branca")
	require.NoError(t, err)
	require.Len(t, completer.prompts, 2)
	assert.Contains(t, completer.prompts[1], "Linha Branca")

	_, err = svc.ItemSummary(ctx, "Agulha")
	assert.ErrorIs(t, err, ErrItemNotFound)
}
