package handlers

import (
	"errors"
	"net/http"

	"github.com/andresuchdata/marfim-stock/backend-go/internal/repository"
	"github.com/andresuchdata/marfim-stock/backend-go/internal/service"
	"github.com/gin-gonic/gin"
)

type RunHandler struct {
	service *service.AnalyticsService
}

func NewRunHandler(service *service.AnalyticsService) *RunHandler {
	return &RunHandler{service: service}
}

func (h *RunHandler) ListRuns(c *gin.Context) {
	limit := parsePositiveIntWithDefault(c.Query("limit"), 50)
	runs, err := h.service.Runs(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch runs", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs, "total": len(runs)})
}

func (h *RunHandler) GetRun(c *gin.Context) {
	run, alerts, err := h.service.Run(c.Request.Context(), c.Param("id"))
	if errors.Is(err, repository.ErrRunNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch run", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"run": run, "alerts": alerts})
}
