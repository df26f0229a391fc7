package ledger

import (
	"context"
	"errors"

	"github.com/andresuchdata/marfim-stock/backend-go/internal/domain"
)

// Tab names used by the stock workbook, both on Google Sheets and in xlsx exports of it.
const (
	LedgerTab = "ESTOQUE"
	IndexTab  = "ÍNDICE_ITENS"
)

var (
	ErrColumnNotFound = errors.New("required column not found")
	ErrEmptySheet     = errors.New("sheet has no header row")
)

// Snapshot is everything read from one source in a single pass.
type Snapshot struct {
	Transactions []domain.Transaction
	Items        []domain.ItemSnapshot
	// Skipped counts ledger rows dropped for having no item name.
	Skipped int
}

// Source loads the ledger and the item index.
type Source interface {
	Name() string
	Load(ctx context.Context) (*Snapshot, error)
}

// build turns raw ledger and index tables (header row first) into a Snapshot.
func build(ledgerRows, indexRows [][]string) (*Snapshot, error) {
	txs, skipped, err := parseLedger(ledgerRows)
	if err != nil {
		return nil, err
	}
	snap := &Snapshot{Transactions: txs, Skipped: skipped}

	// the index is optional; balances default to 0 without it
	if len(indexRows) > 0 {
		items, err := parseIndex(indexRows)
		if err != nil {
			return nil, err
		}
		snap.Items = items
	}
	return snap, nil
}
