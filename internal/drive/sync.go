package drive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/andresuchdata/marfim-stock/backend-go/internal/ledger"
	"github.com/rs/zerolog/log"
)

var (
	ErrFolderNotFound   = errors.New("drive folder not found")
	ErrWorkbookNotFound = errors.New("stock workbook not found in folder")
)

// SyncOptions controls where the stock workbook is looked up and written.
type SyncOptions struct {
	FolderPath string
	// WorkbookName selects a file by name. Empty picks the most recently modified .xlsx.
	WorkbookName string
	DataDir      string
	// ExportCSV also writes ledger.csv and index.csv next to the workbook.
	ExportCSV bool
}

// SyncResult describes one sync.
type SyncResult struct {
	FileID       string    `json:"file_id"`
	Name         string    `json:"name"`
	ModifiedTime string    `json:"modified_time,omitempty"`
	Path         string    `json:"path"`
	LedgerCSV    string    `json:"ledger_csv,omitempty"`
	IndexCSV     string    `json:"index_csv,omitempty"`
	SyncedAt     time.Time `json:"synced_at"`
}

// Syncer copies the stock workbook from Drive into the data dir.
type Syncer struct {
	files Files
	opts  SyncOptions
	// OnSync runs after every successful sync, for example to drop cached reports.
	OnSync func(ctx context.Context, res *SyncResult)
}

func NewSyncer(files Files, opts SyncOptions) *Syncer {
	return &Syncer{files: files, opts: opts}
}

// WorkbookPath is where the synced workbook lands.
func (s *Syncer) WorkbookPath() string {
	return filepath.Join(s.opts.DataDir, "estoque.xlsx")
}

// Sync downloads the workbook. The local copy is replaced only after a complete download.
func (s *Syncer) Sync(ctx context.Context) (*SyncResult, error) {
	if s.opts.DataDir == "" {
		return nil, fmt.Errorf("data dir is required")
	}
	if err := os.MkdirAll(s.opts.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	folderID, err := s.files.FindFolderByPath(ctx, s.opts.FolderPath)
	if err != nil {
		return nil, err
	}
	files, err := s.files.ListFiles(ctx, folderID)
	if err != nil {
		return nil, err
	}
	wb := pickWorkbook(files, s.opts.WorkbookName)
	if wb == nil {
		return nil, fmt.Errorf("%w: %s", ErrWorkbookNotFound, s.opts.FolderPath)
	}

	dest := s.WorkbookPath()
	tmp, err := os.CreateTemp(s.opts.DataDir, ".estoque-*.xlsx")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := s.files.DownloadFile(ctx, wb.ID, tmp); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to download %s: %w", wb.Name, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return nil, fmt.Errorf("failed to replace %s: %w", dest, err)
	}

	res := &SyncResult{
		FileID:       wb.ID,
		Name:         wb.Name,
		ModifiedTime: wb.ModifiedTime,
		Path:         dest,
		SyncedAt:     time.Now().UTC(),
	}

	if s.opts.ExportCSV {
		res.LedgerCSV = filepath.Join(s.opts.DataDir, "ledger.csv")
		if err := convertSheetToCSV(dest, ledger.LedgerTab, res.LedgerCSV); err != nil {
			return nil, err
		}
		res.IndexCSV = filepath.Join(s.opts.DataDir, "index.csv")
		if err := convertSheetToCSV(dest, ledger.IndexTab, res.IndexCSV); err != nil {
			if !errors.Is(err, errSheetMissing) {
				return nil, err
			}
			res.IndexCSV = ""
		}
	}

	log.Info().
		Str("file", wb.Name).
		Str("modified", wb.ModifiedTime).
		Str("path", dest).
		Msg("drive: stock workbook synced")

	if s.OnSync != nil {
		s.OnSync(ctx, res)
	}
	return res, nil
}

// pickWorkbook returns the file named name (case-insensitive), or the newest .xlsx when name is empty.
func pickWorkbook(files []*File, name string) *File {
	if name != "" {
		for _, f := range files {
			if strings.EqualFold(f.Name, name) {
				return f
			}
		}
		return nil
	}

	var candidates []*File
	for _, f := range files {
		if strings.ToLower(filepath.Ext(f.Name)) == ".xlsx" {
			candidates = append(candidates, f)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	// RFC3339 timestamps sort lexically
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].ModifiedTime > candidates[j].ModifiedTime
	})
	return candidates[0]
}
