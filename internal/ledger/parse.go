package ledger

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/andresuchdata/marfim-stock/backend-go/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	itemColumns      = []string{"item", "produto", "nome", "descricao", "material"}
	dateColumns      = []string{"data", "date"}
	entryColumns     = []string{"entrada", "entradas", "in"}
	exitColumns      = []string{"saida", "saidas", "out"}
	balanceColumns   = []string{"saldo", "saldo atual", "estoque", "qtd", "quantidade"}
	unitColumns      = []string{"unidade", "un", "unit"}
	noteColumns      = []string{"obs", "observacoes", "observacao", "note"}
	groupColumns     = []string{"grupo", "categoria", "category"}
	lastDateColumns  = []string{"ultima data", "last date"}
	ledgerRowColumns = []string{"linha estoque", "linha"}
)

// dateLayouts are tried in order. Day-first layouts come before the US one.
var dateLayouts = []string{
	"02/01/2006 15:04:05",
	"02/01/2006",
	"2006-01-02",
	"2006-01-02 15:04:05",
	"02-01-2006",
	"01/02/2006",
}

var columnNameSanitizer = strings.NewReplacer(" ", "", "_", "", ".", "", "-", "", "/", "")

func normalizeColumnName(name string) string {
	stripped, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), name)
	if err != nil {
		stripped = name
	}
	return columnNameSanitizer.Replace(strings.TrimSpace(strings.ToLower(stripped)))
}

type columns struct {
	header []string
}

// index returns the position of the first header matching any alias, or -1.
func (c columns) index(aliases ...string) int {
	targets := make(map[string]struct{}, len(aliases))
	for _, a := range aliases {
		targets[normalizeColumnName(a)] = struct{}{}
	}
	for i, h := range c.header {
		if _, ok := targets[normalizeColumnName(h)]; ok {
			return i
		}
	}
	return -1
}

// record wraps one data row so missing trailing cells read as blank.
type record []string

func (r record) get(idx int) string {
	if idx < 0 || idx >= len(r) {
		return ""
	}
	return strings.TrimSpace(r[idx])
}

// ParseNumber reads Brazilian (1.200,50) and plain (1200.5) numbers. Blank and
// unparseable cells read as 0.
func ParseNumber(raw string) float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}
	switch {
	case strings.Contains(s, ",") && strings.Contains(s, "."):
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	case strings.Contains(s, ","):
		s = strings.ReplaceAll(s, ",", ".")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	return d.InexactFloat64()
}

// maxExcelSerial is 9999-12-31 in the 1900 date system.
const maxExcelSerial = 2958465

// ParseDate returns nil when no known layout matches. A bare number is read as
// a spreadsheet date serial, which is how raw xlsx date cells arrive.
func ParseDate(raw string) *time.Time {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return &t
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial >= 1 && serial <= maxExcelSerial {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			t = t.UTC().Round(time.Second)
			return &t
		}
	}
	return nil
}

func parseLedger(rows [][]string) ([]domain.Transaction, int, error) {
	if len(rows) == 0 {
		return nil, 0, fmt.Errorf("%s: %w", LedgerTab, ErrEmptySheet)
	}
	cols := columns{header: rows[0]}
	idxItem := cols.index(itemColumns...)
	if idxItem < 0 {
		return nil, 0, fmt.Errorf("%s: %w: item", LedgerTab, ErrColumnNotFound)
	}
	idxDate := cols.index(dateColumns...)
	idxEntry := cols.index(entryColumns...)
	idxExit := cols.index(exitColumns...)
	idxBalance := cols.index(balanceColumns...)
	idxUnit := cols.index(unitColumns...)
	idxNote := cols.index(noteColumns...)

	var (
		txs     = make([]domain.Transaction, 0, len(rows)-1)
		skipped int
	)
	for i, raw := range rows[1:] {
		r := record(raw)
		item := r.get(idxItem)
		if item == "" {
			skipped++
			continue
		}
		txs = append(txs, domain.Transaction{
			ItemID:       item,
			Date:         ParseDate(r.get(idxDate)),
			EntryQty:     ParseNumber(r.get(idxEntry)),
			ExitQty:      ParseNumber(r.get(idxExit)),
			BalanceAfter: ParseNumber(r.get(idxBalance)),
			Unit:         r.get(idxUnit),
			Note:         r.get(idxNote),
			Row:          i + 2,
		})
	}
	return txs, skipped, nil
}

func parseIndex(rows [][]string) ([]domain.ItemSnapshot, error) {
	cols := columns{header: rows[0]}
	idxItem := cols.index(itemColumns...)
	if idxItem < 0 {
		return nil, fmt.Errorf("%s: %w: item", IndexTab, ErrColumnNotFound)
	}
	idxBalance := cols.index(balanceColumns...)
	if idxBalance < 0 {
		return nil, fmt.Errorf("%s: %w: saldo", IndexTab, ErrColumnNotFound)
	}
	idxGroup := cols.index(groupColumns...)
	idxUnit := cols.index(unitColumns...)
	idxLast := cols.index(lastDateColumns...)
	idxRow := cols.index(ledgerRowColumns...)

	items := make([]domain.ItemSnapshot, 0, len(rows)-1)
	for _, raw := range rows[1:] {
		r := record(raw)
		item := r.get(idxItem)
		if item == "" {
			continue
		}
		snap := domain.ItemSnapshot{
			ItemID:         item,
			CurrentBalance: ParseNumber(r.get(idxBalance)),
			Category:       strings.ToUpper(r.get(idxGroup)),
			Unit:           r.get(idxUnit),
			LastDate:       ParseDate(r.get(idxLast)),
		}
		if n, err := strconv.Atoi(r.get(idxRow)); err == nil {
			snap.LedgerRow = n
		}
		items = append(items, snap)
	}
	return items, nil
}
