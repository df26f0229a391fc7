package handlers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/andresuchdata/marfim-stock/backend-go/internal/domain"
	"github.com/andresuchdata/marfim-stock/backend-go/internal/export"
	"github.com/andresuchdata/marfim-stock/backend-go/internal/ledger"
	"github.com/andresuchdata/marfim-stock/backend-go/internal/llm"
	"github.com/andresuchdata/marfim-stock/backend-go/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// maxUploadBytes bounds ledger workbook uploads.
const maxUploadBytes = 32 << 20

type AnalyticsHandler struct {
	service     *service.AnalyticsService
	uploadLimit int64
}

func NewAnalyticsHandler(service *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{service: service, uploadLimit: maxUploadBytes}
}

// report loads the current report or writes the error response. ok is false when the handler must stop.
func (h *AnalyticsHandler) report(c *gin.Context) (*domain.Report, bool) {
	report, err := h.service.Report(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("analytics: failed to build report")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build report", "details": err.Error()})
		return nil, false
	}
	return report, true
}

func (h *AnalyticsHandler) GetReport(c *gin.Context) {
	report, ok := h.report(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetAlerts lists alerts, optionally filtered by severity and category.
func (h *AnalyticsHandler) GetAlerts(c *gin.Context) {
	report, ok := h.report(c)
	if !ok {
		return
	}

	severities := queryList(c, "severity")
	for s := range severities {
		if _, valid := domain.ParseSeverity(s); !valid {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown severity %q", s)})
			return
		}
	}

	alerts := filterBy(report.Alerts, severities, func(a domain.Alert) string { return string(a.Severity) })
	alerts = filterBy(alerts, queryList(c, "category"), func(a domain.Alert) string { return a.Category })

	c.JSON(http.StatusOK, gin.H{
		"summary": report.AlertSummary,
		"alerts":  alerts,
		"total":   len(alerts),
	})
}

func (h *AnalyticsHandler) GetPlanning(c *gin.Context) {
	report, ok := h.report(c)
	if !ok {
		return
	}
	rows := filterBy(report.Planning, queryList(c, "status"), func(p domain.PlanningParameters) string { return string(p.Status) })
	rows = filterBy(rows, queryList(c, "category"), func(p domain.PlanningParameters) string { return p.Category })

	c.JSON(http.StatusOK, gin.H{
		"service_level": report.ServiceLevel,
		"items":         rows,
		"total":         len(rows),
	})
}

// GetForecast lists forecasts for one horizon (default 30 days).
func (h *AnalyticsHandler) GetForecast(c *gin.Context) {
	report, ok := h.report(c)
	if !ok {
		return
	}
	horizon := parsePositiveIntWithDefault(c.Query("horizon"), 30)

	onlyStockout := strings.TrimSpace(c.Query("stockout")) == "true"

	rows := make([]domain.ForecastResult, 0)
	for _, f := range report.Forecasts {
		if f.HorizonDays != horizon || (onlyStockout && !f.StockoutWithinHorizon) {
			continue
		}
		rows = append(rows, f)
	}

	c.JSON(http.StatusOK, gin.H{
		"horizon_days": horizon,
		"items":        rows,
		"total":        len(rows),
	})
}

func (h *AnalyticsHandler) GetAnomalies(c *gin.Context) {
	report, ok := h.report(c)
	if !ok {
		return
	}
	rows := filterBy(report.Anomalies, queryList(c, "kind"), func(a domain.Anomaly) string { return string(a.Kind) })

	c.JSON(http.StatusOK, gin.H{
		"anomalies": rows,
		"total":     len(rows),
	})
}

func (h *AnalyticsHandler) GetABC(c *gin.Context) {
	report, ok := h.report(c)
	if !ok {
		return
	}
	entries := filterBy(report.ABC.Entries, queryList(c, "class"), func(e domain.ABCEntry) string { return string(e.Class) })

	c.JSON(http.StatusOK, gin.H{
		"entries":     entries,
		"summary":     report.ABC.Summary,
		"no_movement": report.ABC.NoMovement,
	})
}

func (h *AnalyticsHandler) GetPurchases(c *gin.Context) {
	report, ok := h.report(c)
	if !ok {
		return
	}
	rows := filterBy(report.Purchases, queryList(c, "urgency"), func(p domain.PurchaseItem) string { return string(p.Urgency) })
	rows = filterBy(rows, queryList(c, "category"), func(p domain.PurchaseItem) string { return p.Category })

	c.JSON(http.StatusOK, gin.H{
		"items": rows,
		"total": len(rows),
	})
}

// GetInsights returns the housekeeping lists: turnover, stale items and index divergences.
func (h *AnalyticsHandler) GetInsights(c *gin.Context) {
	report, ok := h.report(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"turnover":    report.Turnover,
		"stale":       report.Stale,
		"divergences": report.Divergences,
		"skips":       report.Skips,
		"errors":      report.Errors,
	})
}

func (h *AnalyticsHandler) GetItem(c *gin.Context) {
	detail, err := h.service.Item(c.Request.Context(), c.Param("item"))
	if errors.Is(err, service.ErrItemNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "item not found", "item": c.Param("item")})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch item", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, detail)
}

// Export streams the workbook for the current report.
func (h *AnalyticsHandler) Export(c *gin.Context) {
	report, ok := h.report(c)
	if !ok {
		return
	}
	data, key, err := h.service.Export(c.Request.Context(), report)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to export report", "details": err.Error()})
		return
	}
	if key != "" {
		c.Header("X-Export-Key", key)
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(report)))
	c.Data(http.StatusOK, export.ContentType, data)
}

// ListExports lists the exports uploaded to object storage, optionally for one day.
func (h *AnalyticsHandler) ListExports(c *gin.Context) {
	objects, err := h.service.StoredExports(c.Request.Context(), c.Query("day"))
	switch {
	case errors.Is(err, service.ErrStorageDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "object storage is not configured"})
	case errors.Is(err, service.ErrInvalidExportRef):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to list exports", "details": err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"exports": objects, "total": len(objects)})
	}
}

// Refresh recomputes the report from the ledger, bypassing the cache.
func (h *AnalyticsHandler) Refresh(c *gin.Context) {
	report, run, err := h.service.Refresh(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to refresh report", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"run":           run,
		"alert_summary": report.AlertSummary,
	})
}

// Upload analyzes a workbook sent as multipart field "file" instead of the configured source.
func (h *AnalyticsHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.uploadLimit)
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || errors.Is(err, multipart.ErrMessageTooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload too large", "limit_bytes": h.uploadLimit})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file provided"})
		return
	}
	if ext := strings.ToLower(filepath.Ext(header.Filename)); ext != ".xlsx" {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unsupported file type %q", ext)})
		return
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read upload", "details": err.Error()})
		return
	}
	defer file.Close()

	snap, err := ledger.LoadXLSX(c.Request.Context(), file)
	if err != nil {
		log.Error().Err(err).Str("filename", header.Filename).Msg("analytics: failed to parse upload")
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "failed to parse workbook", "details": err.Error()})
		return
	}

	report, _, err := h.service.Analyze(c.Request.Context(), "upload:"+header.Filename, snap)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to analyze workbook", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *AnalyticsHandler) GetSummary(c *gin.Context) {
	text, err := h.service.Summary(c.Request.Context())
	h.writeSummary(c, text, err)
}

func (h *AnalyticsHandler) GetItemSummary(c *gin.Context) {
	text, err := h.service.ItemSummary(c.Request.Context(), c.Param("item"))
	h.writeSummary(c, text, err)
}

func (h *AnalyticsHandler) writeSummary(c *gin.Context, text string, err error) {
	switch {
	case errors.Is(err, llm.ErrDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "summaries are not configured"})
	case errors.Is(err, service.ErrItemNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "item not found", "item": c.Param("item")})
	case err != nil:
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to generate summary", "details": err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"summary": text})
	}
}
