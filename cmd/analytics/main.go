// cmd/analytics/main.go
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/andresuchdata/marfim-stock/backend-go/internal/config"
	"github.com/andresuchdata/marfim-stock/backend-go/internal/domain"
	"github.com/andresuchdata/marfim-stock/backend-go/internal/export"
	"github.com/andresuchdata/marfim-stock/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/marfim-stock/backend-go/internal/service"
	"github.com/andresuchdata/marfim-stock/backend-go/pkg/logger"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "analytics",
		Usage: "Run the stock analytics over the ledger",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "source",
				Usage:   "Ledger source: xlsx, csv or sheets",
				EnvVars: []string{"LEDGER_SOURCE"},
			},
			&cli.StringFlag{
				Name:    "ledger",
				Usage:   "Path to the ledger workbook or CSV",
				EnvVars: []string{"LEDGER_PATH"},
			},
			&cli.StringFlag{
				Name:    "index",
				Usage:   "Path to the item index CSV (csv source only)",
				EnvVars: []string{"INDEX_PATH"},
			},
			&cli.IntFlag{
				Name:    "workers",
				Usage:   "Items analyzed concurrently, 0 for one per CPU",
				EnvVars: []string{"ANALYTICS_WORKERS"},
			},
			&cli.Float64Flag{
				Name:    "service-level",
				Usage:   "Service level for safety stock (0.90, 0.95, 0.97, 0.99)",
				EnvVars: []string{"ANALYTICS_SERVICE_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "warn",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Before: func(c *cli.Context) error {
			logger.Setup(c.String("log-level"), "debug")
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Analyze the ledger and print the alert list",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Print the full report as JSON"},
				},
				Action: runReport,
			},
			{
				Name:  "export",
				Usage: "Write the report workbook",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Usage: "Output path, defaults to the data dir"},
				},
				Action: runExport,
			},
			{
				Name:  "purchases",
				Usage: "Print the suggested purchase list",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "urgency", Usage: "Keep only these urgencies"},
				},
				Action: runPurchases,
			},
			{
				Name:  "exports",
				Usage: "List exports stored in object storage, or download one with --get",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "day", Usage: "Only list exports of this day (YYYY-MM-DD)"},
					&cli.StringFlag{Name: "get", Usage: "Key of the export to download"},
					&cli.StringFlag{Name: "out", Usage: "Download path, defaults to the data dir"},
				},
				Action: runStoredExports,
			},
			{
				Name:  "runs",
				Usage: "List recorded analysis runs",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Value: 20},
				},
				Action: runHistory,
			},
			{
				Name:  "migrate",
				Usage: "Create the run history tables",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db-url",
						Usage:    "Database connection string",
						Required: true,
						EnvVars:  []string{"DATABASE_URL"},
					},
				},
				Action: runMigrate,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig applies the global flags over the environment configuration.
func loadConfig(c *cli.Context) *config.Config {
	cfg := *config.Load()
	if v := c.String("source"); v != "" {
		cfg.App.LedgerSource = v
	}
	if v := c.String("ledger"); v != "" {
		cfg.App.LedgerPath = v
	}
	if v := c.String("index"); v != "" {
		cfg.App.IndexPath = v
	}
	if c.IsSet("workers") {
		cfg.Analytics.Workers = c.Int("workers")
	}
	if v := c.Float64("service-level"); v > 0 {
		cfg.Analytics.ServiceLevel = v
	}
	return &cfg
}

func withService(c *cli.Context, fn func(ctx context.Context, svc *service.AnalyticsService, cfg *config.Config) error) error {
	cfg := loadConfig(c)
	svc, cleanup, err := service.FromConfig(c.Context, cfg)
	defer cleanup()
	if err != nil {
		return err
	}
	return fn(c.Context, svc, cfg)
}

func runReport(c *cli.Context) error {
	return withService(c, func(ctx context.Context, svc *service.AnalyticsService, _ *config.Config) error {
		report, _, err := svc.Refresh(ctx)
		if err != nil {
			return err
		}
		if c.Bool("json") {
			enc := json.NewEncoder(c.App.Writer)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}

		s := report.AlertSummary
		fmt.Fprintf(c.App.Writer, "%d items, %d transactions (%s)\n", report.Items, report.Transactions, report.Mode)
		fmt.Fprintf(c.App.Writer, "critical %d  urgent %d  attention %d  normal %d\n\n", s.Critical, s.Urgent, s.Attention, s.Normal)

		w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SEVERITY\tITEM\tBALANCE\tCONSUMPTION 30D\tCOVERAGE\tSUGGESTED")
		for _, a := range report.Alerts {
			fmt.Fprintf(w, "%s\t%s\t%.2f\t%.2f\t%s\t%.0f\n", a.Severity, a.ItemID, a.Balance, a.Consumption30d, coverage(a.CoverageDays, a.CoverageState), a.SuggestedQty)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		if n := len(report.Errors); n > 0 {
			fmt.Fprintf(c.App.Writer, "\n%d items failed, see the JSON report for details\n", n)
		}
		return nil
	})
}

func runExport(c *cli.Context) error {
	return withService(c, func(ctx context.Context, svc *service.AnalyticsService, cfg *config.Config) error {
		report, _, err := svc.Refresh(ctx)
		if err != nil {
			return err
		}
		data, key, err := svc.Export(ctx, report)
		if err != nil {
			return err
		}

		out := c.String("out")
		if out == "" {
			out = filepath.Join(cfg.App.DataDir, export.FileName(report))
		}
		if err := os.WriteFile(out, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", out, err)
		}
		fmt.Fprintln(c.App.Writer, "wrote", out)
		if key != "" {
			fmt.Fprintln(c.App.Writer, "uploaded", key)
		}
		return nil
	})
}

func runStoredExports(c *cli.Context) error {
	return withService(c, func(ctx context.Context, svc *service.AnalyticsService, cfg *config.Config) error {
		if key := c.String("get"); key != "" {
			out := c.String("out")
			if out == "" {
				out = filepath.Join(cfg.App.DataDir, path.Base(key))
			}
			if err := svc.FetchExport(ctx, key, out); err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, "wrote", out)
			return nil
		}

		objects, err := svc.StoredExports(ctx, c.String("day"))
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tBYTES")
		for _, o := range objects {
			fmt.Fprintf(w, "%s\t%d\n", o.Key, o.Size)
		}
		return w.Flush()
	})
}

func runPurchases(c *cli.Context) error {
	keep := make(map[domain.Urgency]bool)
	for _, u := range c.StringSlice("urgency") {
		keep[domain.Urgency(strings.ToUpper(strings.TrimSpace(u)))] = true
	}

	return withService(c, func(ctx context.Context, svc *service.AnalyticsService, _ *config.Config) error {
		report, _, err := svc.Refresh(ctx)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "URGENCY\tITEM\tBALANCE\tCOVERAGE\tBUY\tNEW COVERAGE")
		for _, p := range report.Purchases {
			if len(keep) > 0 && !keep[p.Urgency] {
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%.2f\t%.1f\t%.0f\t%.1f\n", p.Urgency, p.ItemID, p.Balance, p.CoverageDays, p.SuggestedQty, p.NewCoverageDays)
		}
		return w.Flush()
	})
}

func runHistory(c *cli.Context) error {
	return withService(c, func(ctx context.Context, svc *service.AnalyticsService, _ *config.Config) error {
		runs, err := svc.Runs(ctx, c.Int("limit"))
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCREATED\tSOURCE\tITEMS\tCRITICAL\tURGENT\tATTENTION\tMS")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\n", r.ID, r.CreatedAt.Format("2006-01-02 15:04"), r.Source, r.Items, r.Critical, r.Urgent, r.Attention, r.DurationMS)
		}
		return w.Flush()
	})
}

func runMigrate(c *cli.Context) error {
	db, err := sql.Open("pgx", c.String("db-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(c.Context); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	if err := postgres.Migrate(c.Context, db); err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, "schema applied")
	return nil
}

func coverage(days float64, state domain.CoverageState) string {
	switch state {
	case domain.CoverageUnbounded:
		return "no consumption"
	case domain.CoverageNegative:
		return "negative"
	default:
		return fmt.Sprintf("%.1f days", days)
	}
}
