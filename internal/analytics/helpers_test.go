package analytics

import (
	"time"

	"github.com/andresuchdata/marfim-stock/backend-go/internal/domain"
)

var testNow = time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

func daysAgo(n int) *time.Time {
	d := testNow.AddDate(0, 0, -n)
	return &d
}

func on(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 9, 0, 0, 0, time.UTC)
	return &t
}

func exitTx(item string, date *time.Time, qty float64) domain.Transaction {
	return domain.Transaction{ItemID: item, Date: date, ExitQty: qty}
}

func entryTx(item string, date *time.Time, qty float64) domain.Transaction {
	return domain.Transaction{ItemID: item, Date: date, EntryQty: qty}
}

func snapshot(item string, balance float64) domain.ItemSnapshot {
	return domain.ItemSnapshot{ItemID: item, CurrentBalance: balance}
}

// history builds a single-item view and returns its history.
func history(item string, balance float64, txs ...domain.Transaction) *ItemHistory {
	view := NewLedgerView(txs, []domain.ItemSnapshot{snapshot(item, balance)})
	h, _ := view.Item(NormalizeKey(item))
	return h
}
