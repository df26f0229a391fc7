package analytics

import (
	"math"
	"time"

	"github.com/andresuchdata/marfim-stock/backend-go/internal/domain"
)

const componentPlanner = "planner"

// SafetyStockPlanner derives safety stock and reorder parameters per item.
type SafetyStockPlanner struct {
	cfg Config
	now time.Time
}

func NewSafetyStockPlanner(cfg Config, now time.Time) *SafetyStockPlanner {
	return &SafetyStockPlanner{cfg: cfg, now: now}
}

// Plan computes the parameters at the configured service level. Items without consumption in
// the planning window come back as a skip instead of a zero-filled row.
func (p *SafetyStockPlanner) Plan(h *ItemHistory, windows []domain.ConsumptionWindow) (domain.PlanningParameters, *domain.Skip) {
	return p.PlanAt(h, windows, p.cfg.ServiceLevel)
}

func (p *SafetyStockPlanner) PlanAt(h *ItemHistory, windows []domain.ConsumptionWindow, serviceLevel float64) (domain.PlanningParameters, *domain.Skip) {
	dailyMean := windowByDays(windows, p.cfg.PlanningWindow).DailyMean
	if dailyMean <= 0 {
		return domain.PlanningParameters{}, &domain.Skip{
			ItemID:    h.Name(),
			Component: componentPlanner,
			Reason:    domain.SkipNoConsumption,
		}
	}

	leadTime := p.LeadTime(h)
	dailyStd := p.DailyStd(h, dailyMean)
	z := p.cfg.ZFor(serviceLevel)
	balance := h.Balance()

	// 1. Safety stock = z × σ × √LT
	safetyStock := z * dailyStd * math.Sqrt(leadTime)

	// 2. Reorder point = μ × LT + safety stock
	reorderPoint := dailyMean*leadTime + safetyStock

	// 3. Min is the reorder point, max adds one lot of LotHorizonDays consumption
	lot := dailyMean * float64(p.cfg.LotHorizonDays)
	maxStock := reorderPoint + lot

	return domain.PlanningParameters{
		ItemID:       h.Name(),
		Category:     h.Category(),
		Balance:      balance,
		DailyMean:    roundFloat(dailyMean, 2),
		DailyStd:     roundFloat(dailyStd, 2),
		LeadTimeDays: roundFloat(leadTime, 1),
		ServiceLevel: serviceLevel,
		Z:            z,
		SafetyStock:  roundFloat(safetyStock, 2),
		ReorderPoint: roundFloat(reorderPoint, 2),
		MinStock:     roundFloat(reorderPoint, 2),
		MaxStock:     roundFloat(maxStock, 2),
		SuggestedLot: roundFloat(lot, 2),
		CoverageDays: CoverageDays(balance, dailyMean),
		Status:       planningStatus(balance, safetyStock, reorderPoint, maxStock),
	}, nil
}

func planningStatus(balance, safetyStock, reorderPoint, maxStock float64) domain.PlanningStatus {
	switch {
	case balance <= 0:
		return domain.StatusStockout
	case balance < safetyStock:
		return domain.StatusCritical
	case balance < reorderPoint:
		return domain.StatusReorder
	case balance < maxStock:
		return domain.StatusNormal
	default:
		return domain.StatusExcess
	}
}

// LeadTime is the mean gap in days between consecutive replenishments, clamped to the
// configured bounds. Same-day replenishments do not count as a gap.
func (p *SafetyStockPlanner) LeadTime(h *ItemHistory) float64 {
	var entries []time.Time
	for _, tx := range h.Dated() {
		if tx.EntryQty > 0 {
			entries = append(entries, dayOf(*tx.Date))
		}
	}
	if len(entries) < 2 {
		return p.cfg.DefaultLeadTimeDays
	}

	var gaps []float64
	for i := 1; i < len(entries); i++ {
		if d := daysBetween(entries[i-1], entries[i]); d > 0 {
			gaps = append(gaps, d)
		}
	}
	if len(gaps) == 0 {
		return p.cfg.DefaultLeadTimeDays
	}
	return clamp(mean(gaps), p.cfg.MinLeadTimeDays, p.cfg.MaxLeadTimeDays)
}

// DailyStd is the sample deviation of per-day exit totals over the planning window. When the
// window holds no dated rows the whole dated history is used. Too few points, or a zero
// deviation, fall back to a fixed share of the mean.
func (p *SafetyStockPlanner) DailyStd(h *ItemHistory, dailyMean float64) float64 {
	fallback := dailyMean * p.cfg.StdFallbackRatio

	start := p.now.AddDate(0, 0, -p.cfg.PlanningWindow)
	var inWindow []domain.Transaction
	for _, tx := range h.Dated() {
		if !tx.Date.Before(start) && !tx.Date.After(p.now) {
			inWindow = append(inWindow, tx)
		}
	}
	if len(inWindow) == 0 {
		inWindow = h.Dated()
	}

	points := dailyExitTotals(inWindow)
	if len(points) < 2 {
		return fallback
	}
	std := sampleStd(points)
	if math.IsNaN(std) || std == 0 {
		return fallback
	}
	return std
}

// dailyExitTotals sums exits per calendar day, in day order. Days with only entries count as zero.
func dailyExitTotals(txs []domain.Transaction) []float64 {
	var (
		out     []float64
		current time.Time
	)
	for i, tx := range txs {
		day := dayOf(*tx.Date)
		if i == 0 || !day.Equal(current) {
			out = append(out, 0)
			current = day
		}
		out[len(out)-1] += tx.ExitQty
	}
	return out
}

func daysBetween(a, b time.Time) float64 {
	return math.Round(b.Sub(a).Hours() / 24)
}
