package ledger

import (
	"context"
	"fmt"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsSource reads the live stock spreadsheet through the Sheets API with a
// service account.
type SheetsSource struct {
	srv           *sheets.Service
	spreadsheetID string
}

func NewSheetsSource(ctx context.Context, credentialsJSON, spreadsheetID string) (*SheetsSource, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id must be provided")
	}
	config, err := google.JWTConfigFromJSON([]byte(credentialsJSON), sheets.SpreadsheetsReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse service account credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets client: %w", err)
	}
	return &SheetsSource{srv: srv, spreadsheetID: spreadsheetID}, nil
}

func (s *SheetsSource) Name() string { return "sheets:" + s.spreadsheetID }

func (s *SheetsSource) Load(ctx context.Context) (*Snapshot, error) {
	resp, err := s.srv.Spreadsheets.Values.BatchGet(s.spreadsheetID).
		Ranges(quoteSheet(LedgerTab), quoteSheet(IndexTab)).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to read spreadsheet %s: %w", s.spreadsheetID, err)
	}
	if len(resp.ValueRanges) != 2 {
		return nil, fmt.Errorf("expected 2 ranges from spreadsheet, got %d", len(resp.ValueRanges))
	}
	return build(toRows(resp.ValueRanges[0].Values), toRows(resp.ValueRanges[1].Values))
}

func toRows(values [][]interface{}) [][]string {
	rows := make([][]string, len(values))
	for i, row := range values {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = fmt.Sprint(v)
		}
		rows[i] = cells
	}
	return rows
}

func quoteSheet(name string) string { return "'" + name + "'" }
