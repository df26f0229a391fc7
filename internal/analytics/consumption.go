package analytics

import (
	"time"

	"github.com/andresuchdata/marfim-stock/backend-go/internal/domain"
)

// ConsumptionAggregator computes windowed exit and entry sums.
type ConsumptionAggregator struct {
	windows []int
	now     time.Time
	mode    domain.AggregationMode
}

// NewConsumptionAggregator picks undated mode when no row of the view carries a date.
func NewConsumptionAggregator(view *LedgerView, windows []int, now time.Time) *ConsumptionAggregator {
	mode := domain.ModeDated
	if view.Transactions() > 0 && !view.HasDates() {
		mode = domain.ModeUndated
	}
	return &ConsumptionAggregator{windows: windows, now: now, mode: mode}
}

func (a *ConsumptionAggregator) Mode() domain.AggregationMode { return a.mode }

// Aggregate returns one window per configured length, in the configured order.
func (a *ConsumptionAggregator) Aggregate(h *ItemHistory) []domain.ConsumptionWindow {
	out := make([]domain.ConsumptionWindow, 0, len(a.windows))
	for _, w := range a.windows {
		out = append(out, a.window(h, w))
	}
	return out
}

func (a *ConsumptionAggregator) window(h *ItemHistory, days int) domain.ConsumptionWindow {
	cw := domain.ConsumptionWindow{
		ItemID:     h.Name(),
		WindowDays: days,
		Undated:    h.Undated(),
		Mode:       a.mode,
	}

	if a.mode == domain.ModeUndated {
		for _, tx := range h.Transactions() {
			cw.TotalExit += tx.ExitQty
			cw.TotalEntry += tx.EntryQty
		}
	} else {
		start := a.now.AddDate(0, 0, -days)
		for _, tx := range h.Dated() {
			if tx.Date.Before(start) || tx.Date.After(a.now) {
				continue
			}
			cw.TotalExit += tx.ExitQty
			cw.TotalEntry += tx.EntryQty
		}
	}

	cw.DailyMean = cw.TotalExit / float64(days)
	return cw
}

// windowByDays finds the window of the given length.
func windowByDays(windows []domain.ConsumptionWindow, days int) domain.ConsumptionWindow {
	for _, w := range windows {
		if w.WindowDays == days {
			return w
		}
	}
	return domain.ConsumptionWindow{WindowDays: days}
}
