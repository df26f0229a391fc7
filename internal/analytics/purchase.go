package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/andresuchdata/marfim-stock/backend-go/internal/domain"
)

// PurchaseInput is the per-item state the purchase list needs.
type PurchaseInput struct {
	ItemID         string
	Category       string
	Balance        float64
	DailyMean      float64 // weighted rate
	Consumption30d float64
	AvgEntryQty    float64
	LastEntry      *time.Time
}

// PurchasePlanner suggests replenishment quantities for items running short.
type PurchasePlanner struct {
	cfg Config
}

func NewPurchasePlanner(cfg Config) *PurchasePlanner {
	return &PurchasePlanner{cfg: cfg}
}

// Suggest returns ok=false when the item does not belong on the list.
func (p *PurchasePlanner) Suggest(in PurchaseInput) (domain.PurchaseItem, bool) {
	if in.DailyMean <= 0 {
		return domain.PurchaseItem{}, false
	}
	coverage := in.Balance / in.DailyMean
	if coverage >= p.cfg.PurchaseMaxCoverage {
		return domain.PurchaseItem{}, false
	}

	qty := p.Quantity(in.Balance, in.DailyMean, in.AvgEntryQty)
	if qty <= 0 {
		return domain.PurchaseItem{}, false
	}

	urgency, priority := p.urgency(in.Balance, coverage)
	return domain.PurchaseItem{
		ItemID:          in.ItemID,
		Category:        in.Category,
		Balance:         in.Balance,
		DailyMean:       roundFloat(in.DailyMean, 2),
		CoverageDays:    roundFloat(coverage, 1),
		SuggestedQty:    qty,
		Urgency:         urgency,
		Priority:        priority,
		Consumption30d:  in.Consumption30d,
		LastEntry:       in.LastEntry,
		NewCoverageDays: roundFloat((in.Balance+qty)/in.DailyMean, 1),
	}, true
}

// Quantity covers PurchaseTargetDays of consumption plus the safety margin, rounded to whole
// lots of the usual entry size when one is known.
func (p *PurchasePlanner) Quantity(balance, dailyMean, avgEntry float64) float64 {
	if dailyMean <= 0 {
		return 0
	}
	qty := math.Max(0, dailyMean*p.cfg.PurchaseTargetDays*p.cfg.PurchaseSafetyMargin-balance)
	if avgEntry > 0 {
		lots := math.Max(1, math.Round(qty/avgEntry))
		qty = lots * avgEntry
	}
	return math.Round(qty)
}

func (p *PurchasePlanner) urgency(balance, coverage float64) (domain.Urgency, int) {
	switch {
	case coverage < 0 || balance < 0:
		return domain.UrgencyCritical, 1
	case coverage <= p.cfg.PurchaseUrgentDays:
		return domain.UrgencyUrgent, 2
	case coverage <= p.cfg.PurchaseHighDays:
		return domain.UrgencyHigh, 3
	default:
		return domain.UrgencyMedium, 4
	}
}

func sortPurchases(list []domain.PurchaseItem) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if a.Consumption30d != b.Consumption30d {
			return a.Consumption30d > b.Consumption30d
		}
		return a.ItemID < b.ItemID
	})
}

// entryStats returns the mean replenishment size and the date of the latest one.
func entryStats(h *ItemHistory) (float64, *time.Time) {
	var (
		sizes []float64
		last  *time.Time
	)
	for _, tx := range h.Transactions() {
		if tx.EntryQty <= 0 {
			continue
		}
		sizes = append(sizes, tx.EntryQty)
		if tx.Date != nil && (last == nil || tx.Date.After(*last)) {
			d := *tx.Date
			last = &d
		}
	}
	return mean(sizes), last
}
