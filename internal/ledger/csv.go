package ledger

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
)

// CSVSource reads the ledger and the optional index from two CSV files.
type CSVSource struct {
	LedgerPath string
	IndexPath  string
	Comma      rune
}

func NewCSVSource(ledgerPath, indexPath string) *CSVSource {
	return &CSVSource{LedgerPath: ledgerPath, IndexPath: indexPath, Comma: ','}
}

func (s *CSVSource) Name() string { return "csv:" + s.LedgerPath }

func (s *CSVSource) Load(ctx context.Context) (*Snapshot, error) {
	ledgerRows, err := s.readAll(s.LedgerPath)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var indexRows [][]string
	if s.IndexPath != "" {
		if indexRows, err = s.readAll(s.IndexPath); err != nil {
			return nil, err
		}
	}
	return build(ledgerRows, indexRows)
}

func (s *CSVSource) readAll(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	if s.Comma != 0 {
		reader.Comma = s.Comma
	}
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return rows, nil
}
