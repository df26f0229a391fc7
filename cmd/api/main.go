package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/andresuchdata/marfim-stock/backend-go/internal/cache"
	"github.com/andresuchdata/marfim-stock/backend-go/internal/config"
	"github.com/andresuchdata/marfim-stock/backend-go/internal/drive"
	"github.com/andresuchdata/marfim-stock/backend-go/pkg/logger"
	"github.com/gorilla/mux"
)

// Ops server: pulls the stock workbook from Google Drive into the data dir.
func main() {
	cfg := config.Load()
	logger.Setup(cfg.Server.LogLevel, cfg.Server.Mode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize Google Drive service
	driveService, err := drive.NewService(ctx, cfg.Drive.CredentialsJSON)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize Google Drive service")
	}

	reportCache, err := cache.NewReportCache(ctx, cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("redis unavailable, reports will not be invalidated after sync")
		reportCache = cache.NewNoopReportCache()
	}

	syncer := drive.NewSyncer(driveService, drive.SyncOptions{
		FolderPath:   cfg.Drive.FolderPath,
		WorkbookName: cfg.Drive.WorkbookName,
		DataDir:      cfg.App.DataDir,
		ExportCSV:    cfg.App.LedgerSource == "csv",
	})
	// cached reports were computed from the previous workbook
	syncer.OnSync = func(ctx context.Context, res *drive.SyncResult) {
		if err := reportCache.InvalidateAll(ctx); err != nil {
			logger.Log.Warn().Err(err).Msg("failed to invalidate report cache")
		}
	}

	// Register routes
	r := mux.NewRouter()
	drive.NewHandler(driveService, syncer).RegisterRoutes(r)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.OpsPort),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Log.Info().Str("addr", srv.Addr).Msg("Ops server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Ops server failed")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error().Err(err).Msg("Ops server forced to shutdown")
	}
}
