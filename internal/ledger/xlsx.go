package ledger

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// rawCells skips number formats, so date cells read as serials and amounts
// keep their full precision regardless of the workbook locale.
var rawCells = excelize.Options{RawCellValue: true}

// XLSXSource reads a local copy of the stock workbook.
type XLSXSource struct {
	Path string
}

func NewXLSXSource(path string) *XLSXSource {
	return &XLSXSource{Path: path}
}

func (s *XLSXSource) Name() string { return "xlsx:" + s.Path }

func (s *XLSXSource) Load(ctx context.Context) (*Snapshot, error) {
	f, err := excelize.OpenFile(s.Path, rawCells)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx file %s: %w", s.Path, err)
	}
	defer f.Close()
	return loadWorkbook(ctx, f)
}

// LoadXLSX reads a workbook from r, as received by an upload.
func LoadXLSX(ctx context.Context, r io.Reader) (*Snapshot, error) {
	f, err := excelize.OpenReader(r, rawCells)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer f.Close()
	return loadWorkbook(ctx, f)
}

func loadWorkbook(ctx context.Context, f *excelize.File) (*Snapshot, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook: %w", ErrEmptySheet)
	}
	// a workbook without the ESTOQUE tab is read from its first sheet
	ledgerTab := sheets[0]
	if idx, _ := f.GetSheetIndex(LedgerTab); idx >= 0 {
		ledgerTab = LedgerTab
	}

	ledgerRows, err := f.GetRows(ledgerTab)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from sheet %s: %w", ledgerTab, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var indexRows [][]string
	if idx, _ := f.GetSheetIndex(IndexTab); idx >= 0 {
		if indexRows, err = f.GetRows(IndexTab); err != nil {
			return nil, fmt.Errorf("failed to read rows from sheet %s: %w", IndexTab, err)
		}
	}
	return build(ledgerRows, indexRows)
}
