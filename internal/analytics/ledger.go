package analytics

import (
	"sort"
	"strings"
	"time"

	"github.com/andresuchdata/marfim-stock/backend-go/internal/domain"
)

// ItemHistory is the read-only view of one item inside a LedgerView.
type ItemHistory struct {
	key         ItemKey
	name        string
	snapshot    domain.ItemSnapshot
	hasSnapshot bool
	txs         []domain.Transaction // dated ascending, undated last in source order
	undated     int
}

func (h *ItemHistory) Key() ItemKey { return h.key }

// Name is the display name: the index spelling when present, else the first ledger spelling.
func (h *ItemHistory) Name() string { return h.name }

// Balance is the index balance, zero for items the index does not know.
func (h *ItemHistory) Balance() float64 { return h.snapshot.CurrentBalance }

func (h *ItemHistory) Category() string { return h.snapshot.Category }

func (h *ItemHistory) Unit() string {
	if h.snapshot.Unit != "" {
		return h.snapshot.Unit
	}
	for _, tx := range h.txs {
		if tx.Unit != "" {
			return tx.Unit
		}
	}
	return ""
}

func (h *ItemHistory) Indexed() bool { return h.hasSnapshot }

func (h *ItemHistory) Undated() int { return h.undated }

// Transactions returns the item's rows. Callers must not modify the slice.
func (h *ItemHistory) Transactions() []domain.Transaction { return h.txs }

// Dated returns the rows with a known date, oldest first.
func (h *ItemHistory) Dated() []domain.Transaction { return h.txs[:len(h.txs)-h.undated] }

// LastBalance is balance_after of the latest row, ok=false when the item has no rows.
func (h *ItemHistory) LastBalance() (float64, bool) {
	if len(h.txs) == 0 {
		return 0, false
	}
	if dated := h.Dated(); len(dated) > 0 {
		return dated[len(dated)-1].BalanceAfter, true
	}
	return h.txs[len(h.txs)-1].BalanceAfter, true
}

// LedgerView is an immutable snapshot of the ledger and the item index.
type LedgerView struct {
	items        map[ItemKey]*ItemHistory
	keys         []ItemKey
	transactions int
	undated      int
}

// NewLedgerView groups rows and snapshots by normalized item key. Rows with a blank item are dropped.
func NewLedgerView(txs []domain.Transaction, snapshots []domain.ItemSnapshot) *LedgerView {
	v := &LedgerView{items: make(map[ItemKey]*ItemHistory)}

	for _, s := range snapshots {
		key := NormalizeKey(s.ItemID)
		if key == "" {
			continue
		}
		h := v.ensure(key, s.ItemID)
		if !h.hasSnapshot {
			h.snapshot = s
			h.snapshot.ItemID = strings.TrimSpace(s.ItemID)
			h.name = h.snapshot.ItemID
			h.hasSnapshot = true
		}
	}

	for _, tx := range txs {
		key := NormalizeKey(tx.ItemID)
		if key == "" {
			continue
		}
		h := v.ensure(key, tx.ItemID)
		h.txs = append(h.txs, tx)
		v.transactions++
		if tx.Date == nil {
			h.undated++
			v.undated++
		}
	}

	for _, h := range v.items {
		sortTransactions(h.txs)
	}

	v.keys = make([]ItemKey, 0, len(v.items))
	for k := range v.items {
		v.keys = append(v.keys, k)
	}
	sort.Slice(v.keys, func(i, j int) bool { return v.keys[i] < v.keys[j] })

	return v
}

func (v *LedgerView) ensure(key ItemKey, raw string) *ItemHistory {
	h, ok := v.items[key]
	if !ok {
		h = &ItemHistory{key: key, name: strings.TrimSpace(raw)}
		v.items[key] = h
	}
	return h
}

// Keys returns all item keys in ascending order.
func (v *LedgerView) Keys() []ItemKey { return v.keys }

func (v *LedgerView) Item(key ItemKey) (*ItemHistory, bool) {
	h, ok := v.items[key]
	return h, ok
}

func (v *LedgerView) Len() int { return len(v.keys) }

func (v *LedgerView) Transactions() int { return v.transactions }

func (v *LedgerView) Undated() int { return v.undated }

// HasDates reports whether at least one row carries a usable date.
func (v *LedgerView) HasDates() bool { return v.undated < v.transactions }

// sortTransactions orders dated rows ascending and keeps undated rows at the end.
func sortTransactions(txs []domain.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		a, b := txs[i].Date, txs[j].Date
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
