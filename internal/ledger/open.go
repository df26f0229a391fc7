package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/andresuchdata/marfim-stock/backend-go/internal/config"
)

// Open builds the source selected by app.LedgerSource.
func Open(ctx context.Context, app config.AppConfig, sheets config.SheetsConfig) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(app.LedgerSource)) {
	case "sheets":
		if sheets.SpreadsheetID == "" {
			return nil, fmt.Errorf("ledger source sheets needs GOOGLE_SHEETS_SPREADSHEET_ID")
		}
		src, err := NewSheetsSource(ctx, sheets.CredentialsJSON, sheets.SpreadsheetID)
		if err != nil {
			return nil, err
		}
		return src, nil
	case "xlsx", "":
		if app.LedgerPath == "" {
			return nil, fmt.Errorf("ledger source xlsx needs LEDGER_PATH")
		}
		return NewXLSXSource(app.LedgerPath), nil
	case "csv":
		if app.LedgerPath == "" {
			return nil, fmt.Errorf("ledger source csv needs LEDGER_PATH")
		}
		return NewCSVSource(app.LedgerPath, app.IndexPath), nil
	default:
		return nil, fmt.Errorf("unknown ledger source %q", app.LedgerSource)
	}
}
