// internal/api/api.go
package api

import (
	"strings"
	"time"

	"github.com/andresuchdata/marfim-stock/backend-go/internal/api/handlers"
	"github.com/andresuchdata/marfim-stock/backend-go/internal/api/middleware"
	"github.com/andresuchdata/marfim-stock/backend-go/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Services struct {
	AnalyticsService *service.AnalyticsService
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	// Add middleware
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Export-Key"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")

	if services != nil && services.AnalyticsService != nil {
		analyticsHandler := handlers.NewAnalyticsHandler(services.AnalyticsService)
		analyticsGroup := apiGroup.Group("/analytics")
		{
			analyticsGroup.GET("/report", analyticsHandler.GetReport)
			analyticsGroup.GET("/alerts", analyticsHandler.GetAlerts)
			analyticsGroup.GET("/planning", analyticsHandler.GetPlanning)
			analyticsGroup.GET("/forecast", analyticsHandler.GetForecast)
			analyticsGroup.GET("/anomalies", analyticsHandler.GetAnomalies)
			analyticsGroup.GET("/abc", analyticsHandler.GetABC)
			analyticsGroup.GET("/purchases", analyticsHandler.GetPurchases)
			analyticsGroup.GET("/insights", analyticsHandler.GetInsights)
			analyticsGroup.GET("/items/:item", analyticsHandler.GetItem)
			analyticsGroup.GET("/items/:item/summary", analyticsHandler.GetItemSummary)
			analyticsGroup.GET("/export", analyticsHandler.Export)
			analyticsGroup.GET("/exports", analyticsHandler.ListExports)
			analyticsGroup.GET("/summary", analyticsHandler.GetSummary)
			analyticsGroup.POST("/refresh", analyticsHandler.Refresh)
			analyticsGroup.POST("/upload", analyticsHandler.Upload)
		}

		runHandler := handlers.NewRunHandler(services.AnalyticsService)
		runGroup := apiGroup.Group("/runs")
		{
			runGroup.GET("", runHandler.ListRuns)
			runGroup.GET("/:id", runHandler.GetRun)
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		for _, part := range strings.Split(origin, ",") {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
