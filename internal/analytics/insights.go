package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/andresuchdata/marfim-stock/backend-go/internal/domain"
)

// turnoverOf divides window consumption by the balance. Items without stock turn over at 0.
func turnoverOf(item string, consumption, balance float64) domain.Turnover {
	t := domain.Turnover{ItemID: item, Consumption: consumption, Balance: balance}
	if balance > 0 {
		t.Turnover = roundFloat(consumption/balance, 2)
	}
	return t
}

// staleOf reports items whose last dated movement is older than StaleAfterDays. Items that
// never moved get DaysIdle -1.
func staleOf(h *ItemHistory, now time.Time, after int) (domain.StaleItem, bool) {
	var last *time.Time
	for _, tx := range h.Dated() {
		if tx.EntryQty > 0 || tx.ExitQty > 0 {
			d := *tx.Date
			last = &d
		}
	}

	item := domain.StaleItem{ItemID: h.Name(), Balance: h.Balance(), LastMovement: last, DaysIdle: -1}
	if last == nil {
		return item, true
	}
	idle := int(daysBetween(dayOf(*last), dayOf(now)))
	if idle <= after {
		return domain.StaleItem{}, false
	}
	item.DaysIdle = idle
	return item, true
}

// divergenceOf compares the index balance with the balance after the latest ledger row.
func divergenceOf(h *ItemHistory, tolerance float64) (domain.Divergence, bool) {
	if !h.Indexed() {
		return domain.Divergence{}, false
	}
	ledger, ok := h.LastBalance()
	if !ok {
		return domain.Divergence{}, false
	}
	diff := h.Balance() - ledger
	if math.Abs(diff) <= tolerance {
		return domain.Divergence{}, false
	}
	return domain.Divergence{
		ItemID:        h.Name(),
		IndexBalance:  h.Balance(),
		LedgerBalance: ledger,
		Difference:    roundFloat(diff, 2),
	}, true
}

func sortTurnover(list []domain.Turnover) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Turnover != list[j].Turnover {
			return list[i].Turnover > list[j].Turnover
		}
		return list[i].ItemID < list[j].ItemID
	})
}

func sortStale(list []domain.StaleItem) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		// never-moved items first
		if (a.DaysIdle < 0) != (b.DaysIdle < 0) {
			return a.DaysIdle < 0
		}
		if a.DaysIdle != b.DaysIdle {
			return a.DaysIdle > b.DaysIdle
		}
		return a.ItemID < b.ItemID
	})
}
