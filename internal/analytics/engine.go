package analytics

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"time"

	"github.com/andresuchdata/marfim-stock/backend-go/internal/domain"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Engine runs every analytics component over a ledger snapshot.
type Engine struct {
	cfg Config
	// itemHook runs as each item enters planning. Tests use it to fail an item.
	itemHook func(h *ItemHistory)
}

// NewEngine validates cfg and returns an engine bound to it.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid analytics config: %w", err)
	}
	return &Engine{cfg: cfg}, nil
}

func (e *Engine) Config() Config { return e.cfg }

// Run builds a LedgerView from raw records and analyzes it.
func (e *Engine) Run(ctx context.Context, txs []domain.Transaction, snapshots []domain.ItemSnapshot, now time.Time) (*domain.Report, error) {
	return e.Analyze(ctx, NewLedgerView(txs, snapshots), now)
}

// itemResult carries everything computed for one item. Each worker owns one slot.
type itemResult struct {
	consumption domain.ItemWindows
	planning    *domain.PlanningParameters
	forecasts   []domain.ForecastResult
	anomalies   []domain.Anomaly
	abc         ABCInput
	alert       *domain.Alert
	severity    domain.Severity
	purchase    *domain.PurchaseItem
	turnover    domain.Turnover
	stale       *domain.StaleItem
	divergence  *domain.Divergence
	skips       []domain.Skip
	err         *domain.ItemError
}

// Analyze computes the full report. Items are processed concurrently; a failing item is
// recorded in Report.Errors and the rest of the batch continues. Only context
// cancellation aborts the run.
func (e *Engine) Analyze(ctx context.Context, view *LedgerView, now time.Time) (*domain.Report, error) {
	start := time.Now()

	agg := NewConsumptionAggregator(view, e.cfg.Windows, now)
	c := components{
		agg:       agg,
		planner:   NewSafetyStockPlanner(e.cfg, now),
		forecast:  NewDemandForecaster(e.cfg, now),
		anomalies: NewAnomalyDetector(e.cfg, now),
		alerts:    NewAlertClassifier(e.cfg),
		purchases: NewPurchasePlanner(e.cfg),
		cfg:       e.cfg,
		now:       now,
		hook:      e.itemHook,
	}

	keys := view.Keys()
	results := make([]itemResult, len(keys))

	workers := e.cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, key := range keys {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			h, _ := view.Item(key)
			results[i] = c.analyzeItem(h)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analysis aborted: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("analysis aborted: %w", err)
	}

	report := assemble(results, e.cfg)
	report.GeneratedAt = now
	report.Mode = agg.Mode()
	report.Items = view.Len()
	report.Transactions = view.Transactions()
	report.UndatedTransactions = view.Undated()
	report.ServiceLevel = e.cfg.ServiceLevel

	log.Debug().
		Int("items", report.Items).
		Int("transactions", report.Transactions).
		Str("mode", string(report.Mode)).
		Int("errors", len(report.Errors)).
		Dur("elapsed", time.Since(start)).
		Msg("analytics: run completed")

	return report, nil
}

type components struct {
	agg       *ConsumptionAggregator
	planner   *SafetyStockPlanner
	forecast  *DemandForecaster
	anomalies *AnomalyDetector
	alerts    *AlertClassifier
	purchases *PurchasePlanner
	cfg       Config
	now       time.Time
	hook      func(h *ItemHistory)
}

func (c components) analyzeItem(h *ItemHistory) (res itemResult) {
	component := "consumption"
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("item", h.Name()).Str("component", component).Interface("panic", r).Msg("analytics: item failed")
			res = itemResult{
				consumption: domain.ItemWindows{ItemID: h.Name()},
				abc:         ABCInput{ItemID: h.Name()},
				severity:    domain.SeverityNormal,
				err: &domain.ItemError{
					ItemID:    h.Name(),
					Component: component,
					Message:   fmt.Sprint(r),
				},
			}
		}
	}()

	name := h.Name()
	category := h.Category()
	if category == "" {
		category = ClassifyCategory(name)
	}
	balance := h.Balance()

	windows := c.agg.Aggregate(h)
	short := windowByDays(windows, c.cfg.ShortWindow)
	res.consumption = domain.ItemWindows{
		ItemID:        name,
		Category:      category,
		Unit:          h.Unit(),
		Balance:       balance,
		CoverageDays:  CoverageDays(balance, short.DailyMean),
		CoverageState: CoverageStateOf(balance, short.DailyMean),
		Windows:       windows,
	}
	res.abc = ABCInput{ItemID: name, Consumption: short.TotalExit}
	res.turnover = turnoverOf(name, windowByDays(windows, c.cfg.TurnoverWindow).TotalExit, balance)

	component = componentPlanner
	if c.hook != nil {
		c.hook(h)
	}
	if p, skip := c.planner.Plan(h, windows); skip != nil {
		res.skips = append(res.skips, *skip)
	} else {
		p.Category = category
		res.planning = &p
	}

	component = componentForecast
	if f, skip := c.forecast.Forecast(h, windows); skip != nil {
		res.skips = append(res.skips, *skip)
	} else {
		res.forecasts = f
	}

	component = "anomaly"
	res.anomalies = c.anomalies.Detect(h)

	component = "alert"
	alert, ok := c.alerts.Alert(name, category, balance, short)
	res.severity = alert.Severity
	if ok {
		res.alert = &alert
	}

	component = "purchase"
	avgEntry, lastEntry := entryStats(h)
	if item, ok := c.purchases.Suggest(PurchaseInput{
		ItemID:         name,
		Category:       category,
		Balance:        balance,
		DailyMean:      c.forecast.BaseRate(windows),
		Consumption30d: short.TotalExit,
		AvgEntryQty:    avgEntry,
		LastEntry:      lastEntry,
	}); ok {
		res.purchase = &item
	}

	component = "housekeeping"
	if c.agg.Mode() == domain.ModeDated {
		if s, ok := staleOf(h, c.now, c.cfg.StaleAfterDays); ok {
			res.stale = &s
		}
	}
	if d, ok := divergenceOf(h, c.cfg.DivergenceTolerance); ok {
		res.divergence = &d
	}

	return res
}

func assemble(results []itemResult, cfg Config) *domain.Report {
	report := &domain.Report{
		Consumption: make([]domain.ItemWindows, 0, len(results)),
		Planning:    []domain.PlanningParameters{},
		Forecasts:   []domain.ForecastResult{},
		Anomalies:   []domain.Anomaly{},
		Alerts:      []domain.Alert{},
		Purchases:   []domain.PurchaseItem{},
		Turnover:    make([]domain.Turnover, 0, len(results)),
		Stale:       []domain.StaleItem{},
		Divergences: []domain.Divergence{},
		Skips:       []domain.Skip{},
		Errors:      []domain.ItemError{},
	}

	abcInputs := make([]ABCInput, 0, len(results))
	for _, r := range results {
		report.Consumption = append(report.Consumption, r.consumption)
		report.Anomalies = append(report.Anomalies, r.anomalies...)
		report.Skips = append(report.Skips, r.skips...)
		abcInputs = append(abcInputs, r.abc)

		if r.err != nil {
			report.Errors = append(report.Errors, *r.err)
			continue
		}

		report.Turnover = append(report.Turnover, r.turnover)
		report.Forecasts = append(report.Forecasts, r.forecasts...)
		countSeverity(&report.AlertSummary, r.severity)
		if r.planning != nil {
			report.Planning = append(report.Planning, *r.planning)
		}
		if r.alert != nil {
			report.Alerts = append(report.Alerts, *r.alert)
		}
		if r.purchase != nil {
			report.Purchases = append(report.Purchases, *r.purchase)
		}
		if r.stale != nil {
			report.Stale = append(report.Stale, *r.stale)
		}
		if r.divergence != nil {
			report.Divergences = append(report.Divergences, *r.divergence)
		}
	}

	sort.SliceStable(report.Planning, func(i, j int) bool {
		a, b := report.Planning[i], report.Planning[j]
		if a.Status.Rank() != b.Status.Rank() {
			return a.Status.Rank() < b.Status.Rank()
		}
		if a.DailyMean != b.DailyMean {
			return a.DailyMean > b.DailyMean
		}
		return a.ItemID < b.ItemID
	})
	sort.SliceStable(report.Forecasts, func(i, j int) bool {
		a, b := report.Forecasts[i], report.Forecasts[j]
		if a.ItemID != b.ItemID {
			return a.ItemID < b.ItemID
		}
		return a.HorizonDays < b.HorizonDays
	})
	sort.SliceStable(report.Skips, func(i, j int) bool {
		a, b := report.Skips[i], report.Skips[j]
		if a.Component != b.Component {
			return a.Component < b.Component
		}
		return a.ItemID < b.ItemID
	})
	SortAnomalies(report.Anomalies)
	SortAlerts(report.Alerts)
	sortPurchases(report.Purchases)
	sortTurnover(report.Turnover)
	sortStale(report.Stale)

	report.ABC = ClassifyABC(abcInputs, cfg.ClassALimit, cfg.ClassBLimit)
	return report
}
