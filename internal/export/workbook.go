// Package export renders an analytics report as an xlsx workbook.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/andresuchdata/marfim-stock/backend-go/internal/domain"
	"github.com/xuri/excelize/v2"
)

const (
	SheetSummary   = "Summary"
	SheetAlerts    = "Alerts"
	SheetPlanning  = "Planning"
	SheetForecast  = "Forecast"
	SheetAnomalies = "Anomalies"
	SheetABC       = "ABC"
	SheetPurchases = "Purchases"

	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// urgencySheets get their own purchase tab.
var urgencySheets = []domain.Urgency{domain.UrgencyCritical, domain.UrgencyUrgent, domain.UrgencyHigh}

type writer struct {
	f      *excelize.File
	header int
}

// Workbook builds the workbook for report. The caller closes the file.
func Workbook(report *domain.Report) (*excelize.File, error) {
	f := excelize.NewFile()
	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create header style: %w", err)
	}
	w := &writer{f: f, header: header}

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		f.Close()
		return nil, err
	}

	steps := []func(*domain.Report) error{
		w.summary,
		w.alerts,
		w.planning,
		w.forecast,
		w.anomalies,
		w.abc,
		w.purchases,
	}
	for _, step := range steps {
		if err := step(report); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

// Write streams the workbook for report to out.
func Write(report *domain.Report, out io.Writer) error {
	f, err := Workbook(report)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Write(out); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// SaveAs writes the workbook for report to path.
func SaveAs(report *domain.Report, path string) error {
	f, err := Workbook(report)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}

// FileName is the conventional export name for a report.
func FileName(report *domain.Report) string {
	return fmt.Sprintf("analise_estoque_%s.xlsx", report.GeneratedAt.Format("20060102_1504"))
}

func (w *writer) table(sheet string, headers []interface{}, rows [][]interface{}) error {
	if idx, _ := w.f.GetSheetIndex(sheet); idx < 0 {
		if _, err := w.f.NewSheet(sheet); err != nil {
			return fmt.Errorf("create sheet %s: %w", sheet, err)
		}
	}
	if err := w.f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := w.f.SetCellStyle(sheet, "A1", last, w.header); err != nil {
		return err
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := w.f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+2, err)
		}
	}
	return w.f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func (w *writer) summary(r *domain.Report) error {
	rows := [][]interface{}{
		{"Generated at", r.GeneratedAt.Format(time.RFC3339)},
		{"Mode", string(r.Mode)},
		{"Items", r.Items},
		{"Transactions", r.Transactions},
		{"Undated transactions", r.UndatedTransactions},
		{"Service level", r.ServiceLevel},
		{"CRITICAL", r.AlertSummary.Critical},
		{"URGENT", r.AlertSummary.Urgent},
		{"ATTENTION", r.AlertSummary.Attention},
		{"NORMAL", r.AlertSummary.Normal},
		{"Anomalies", len(r.Anomalies)},
		{"Purchase suggestions", len(r.Purchases)},
		{"Stale items", len(r.Stale)},
		{"Index divergences", len(r.Divergences)},
		{"Item errors", len(r.Errors)},
	}
	return w.table(SheetSummary, []interface{}{"Metric", "Value"}, rows)
}

func (w *writer) alerts(r *domain.Report) error {
	rows := make([][]interface{}, 0, len(r.Alerts))
	for _, a := range r.Alerts {
		rows = append(rows, []interface{}{a.ItemID, a.Category, string(a.Severity), a.Balance, a.Consumption30d, a.DailyMean, a.CoverageDays, string(a.CoverageState), a.SuggestedQty})
	}
	return w.table(SheetAlerts, []interface{}{"Item", "Category", "Severity", "Balance", "Consumption 30d", "Daily mean", "Coverage (days)", "Coverage state", "Suggested qty"}, rows)
}

var planningHeader = []interface{}{"Item", "Category", "Status", "Balance", "Daily mean", "Daily std", "Lead time", "Safety stock", "Reorder point", "Min", "Max", "Suggested lot", "Coverage (days)"}

func planningRow(p domain.PlanningParameters) []interface{} {
	return []interface{}{p.ItemID, p.Category, string(p.Status), p.Balance, p.DailyMean, p.DailyStd, p.LeadTimeDays, p.SafetyStock, p.ReorderPoint, p.MinStock, p.MaxStock, p.SuggestedLot, p.CoverageDays}
}

func (w *writer) planning(r *domain.Report) error {
	all := make([][]interface{}, 0, len(r.Planning))
	byStatus := make(map[domain.PlanningStatus][][]interface{})
	for _, p := range r.Planning {
		row := planningRow(p)
		all = append(all, row)
		byStatus[p.Status] = append(byStatus[p.Status], row)
	}
	if err := w.table(SheetPlanning, planningHeader, all); err != nil {
		return err
	}
	for _, status := range domain.PlanningStatuses {
		if len(byStatus[status]) == 0 {
			continue
		}
		if err := w.table(SheetPlanning+" "+string(status), planningHeader, byStatus[status]); err != nil {
			return err
		}
	}
	return nil
}

func (w *writer) forecast(r *domain.Report) error {
	rows := make([][]interface{}, 0, len(r.Forecasts))
	for _, f := range r.Forecasts {
		rows = append(rows, []interface{}{f.ItemID, f.HorizonDays, f.BaseRate, f.SeasonalFactor, f.PredictedConsumption, f.LowerBound, f.UpperBound, f.PredictedBalance, f.StockoutWithinHorizon, string(f.Confidence)})
	}
	return w.table(SheetForecast, []interface{}{"Item", "Horizon (days)", "Base rate", "Seasonal factor", "Predicted", "Lower", "Upper", "Predicted balance", "Stockout", "Confidence"}, rows)
}

func (w *writer) anomalies(r *domain.Report) error {
	rows := make([][]interface{}, 0, len(r.Anomalies))
	for _, a := range r.Anomalies {
		var date, z interface{}
		if a.Date != nil {
			date = a.Date.Format("02/01/2006")
		}
		if a.ZScore != nil {
			z = *a.ZScore
		}
		rows = append(rows, []interface{}{a.ItemID, string(a.Kind), date, a.ObservedValue, z, a.Description})
	}
	return w.table(SheetAnomalies, []interface{}{"Item", "Kind", "Date", "Value", "Z-score", "Description"}, rows)
}

func (w *writer) abc(r *domain.Report) error {
	rows := make([][]interface{}, 0, len(r.ABC.Entries))
	for _, e := range r.ABC.Entries {
		rows = append(rows, []interface{}{e.Rank, e.ItemID, e.Consumption30d, e.Share, e.CumulativeShare, string(e.Class)})
	}
	return w.table(SheetABC, []interface{}{"Rank", "Item", "Consumption 30d", "Share %", "Cumulative %", "Class"}, rows)
}

var purchaseHeader = []interface{}{"Item", "Category", "Urgency", "Balance", "Daily mean", "Coverage (days)", "Suggested qty", "Coverage after", "Consumption 30d", "Last entry"}

func purchaseRow(p domain.PurchaseItem) []interface{} {
	var last interface{}
	if p.LastEntry != nil {
		last = p.LastEntry.Format("02/01/2006")
	}
	return []interface{}{p.ItemID, p.Category, string(p.Urgency), p.Balance, p.DailyMean, p.CoverageDays, p.SuggestedQty, p.NewCoverageDays, p.Consumption30d, last}
}

func (w *writer) purchases(r *domain.Report) error {
	all := make([][]interface{}, 0, len(r.Purchases))
	byUrgency := make(map[domain.Urgency][][]interface{})
	for _, p := range r.Purchases {
		row := purchaseRow(p)
		all = append(all, row)
		byUrgency[p.Urgency] = append(byUrgency[p.Urgency], row)
	}
	if err := w.table(SheetPurchases, purchaseHeader, all); err != nil {
		return err
	}
	for _, u := range urgencySheets {
		if len(byUrgency[u]) == 0 {
			continue
		}
		if err := w.table(SheetPurchases+" "+string(u), purchaseHeader, byUrgency[u]); err != nil {
			return err
		}
	}
	return nil
}
