package domain

import "time"

// Transaction is one ledger row. Date is nil when the source value could not be parsed.
type Transaction struct {
	ItemID       string     `json:"item_id"`
	Date         *time.Time `json:"date,omitempty"`
	EntryQty     float64    `json:"entry_qty"`
	ExitQty      float64    `json:"exit_qty"`
	BalanceAfter float64    `json:"balance_after"`
	Unit         string     `json:"unit,omitempty"`
	Note         string     `json:"note,omitempty"`
	// Row is the 1-based row in the source sheet, 0 when unknown.
	Row int `json:"row,omitempty"`
}

// ItemSnapshot is the current state of an item as kept by the item index.
type ItemSnapshot struct {
	ItemID         string     `json:"item_id"`
	CurrentBalance float64    `json:"current_balance"`
	Category       string     `json:"category,omitempty"`
	Unit           string     `json:"unit,omitempty"`
	LastDate       *time.Time `json:"last_date,omitempty"`
	LedgerRow      int        `json:"ledger_row,omitempty"`
}
