package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andresuchdata/marfim-stock/backend-go/internal/analytics"
	"github.com/andresuchdata/marfim-stock/backend-go/internal/domain"
	"github.com/andresuchdata/marfim-stock/backend-go/internal/ledger"
	"github.com/andresuchdata/marfim-stock/backend-go/internal/service"
	"github.com/andresuchdata/marfim-stock/backend-go/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type emptySource struct{}

func (emptySource) Name() string { return "empty" }

func (emptySource) Load(ctx context.Context) (*ledger.Snapshot, error) {
	day := time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)
	return &ledger.Snapshot{
		Transactions: []domain.Transaction{{ItemID: "Botão 10mm", Date: &day, ExitQty: 2}},
	}, nil
}

type memStorage map[string][]byte

func (m memStorage) ListObjects(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	var out []storage.ObjectInfo
	for key, data := range m {
		if strings.HasPrefix(key, prefix) {
			out = append(out, storage.ObjectInfo{Key: key, Size: int64(len(data))})
		}
	}
	return out, nil
}

func (m memStorage) DownloadObject(ctx context.Context, key, dest string) error { return nil }

func (m memStorage) UploadObject(ctx context.Context, key string, data []byte) error {
	m[key] = data
	return nil
}

func newTestHandler(t *testing.T, store storage.ObjectStorage) *AnalyticsHandler {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine, err := analytics.NewEngine(analytics.DefaultConfig())
	require.NoError(t, err)
	svc, err := service.NewAnalyticsService(service.Deps{
		Source:  emptySource{},
		Engine:  engine,
		Storage: store,
		Prefix:  "exports",
		Now:     func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return NewAnalyticsHandler(svc)
}

func TestUploadRejectsOversizedBody(t *testing.T) {
	h := newTestHandler(t, nil)
	h.uploadLimit = 1 << 10

	router := gin.New()
	router.POST("/upload", h.Upload)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "estoque.xlsx")
	require.NoError(t, err)
	_, err = part.Write(bytes.Repeat([]byte("x"), 4<<10))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "upload too large")
}

func TestListExports(t *testing.T) {
	store := memStorage{
		"exports/2026-02-28/analise_estoque_20260228_0900.xlsx": []byte("abc"),
		"exports/2026-03-01/analise_estoque_20260301_1200.xlsx": []byte("abcd"),
	}
	h := newTestHandler(t, store)
	router := gin.New()
	router.GET("/exports", h.ListExports)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/exports?day=2026-03-01", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Exports []storage.ObjectInfo `json:"exports"`
		Total   int                  `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)
	require.Len(t, resp.Exports, 1)
	assert.Equal(t, "exports/2026-03-01/analise_estoque_20260301_1200.xlsx", resp.Exports[0].Key)
	assert.Equal(t, int64(4), resp.Exports[0].Size)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/exports?day=ontem", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
