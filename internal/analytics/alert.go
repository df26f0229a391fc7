package analytics

import (
	"math"
	"sort"

	"github.com/andresuchdata/marfim-stock/backend-go/internal/domain"
)

// AlertClassifier maps balance and coverage to a severity.
type AlertClassifier struct {
	cfg Config
}

func NewAlertClassifier(cfg Config) *AlertClassifier {
	return &AlertClassifier{cfg: cfg}
}

// Severity applies the day thresholds. A negative balance is always CRITICAL, so it ranks above
// the unbounded coverage of items without consumption.
func (a *AlertClassifier) Severity(balance, coverage float64) domain.Severity {
	switch {
	case balance < 0 || coverage <= a.cfg.CriticalDays:
		return domain.SeverityCritical
	case coverage <= a.cfg.UrgentDays:
		return domain.SeverityUrgent
	case coverage <= a.cfg.AttentionDays:
		return domain.SeverityAttention
	default:
		return domain.SeverityNormal
	}
}

// Alert builds the alert for an item. ok is false for NORMAL items.
func (a *AlertClassifier) Alert(item, category string, balance float64, short domain.ConsumptionWindow) (domain.Alert, bool) {
	coverage := CoverageDays(balance, short.DailyMean)
	severity := a.Severity(balance, coverage)

	alert := domain.Alert{
		ItemID:         item,
		Category:       category,
		Balance:        balance,
		DailyMean:      roundFloat(short.DailyMean, 2),
		Consumption30d: short.TotalExit,
		CoverageDays:   coverage,
		CoverageState:  CoverageStateOf(balance, short.DailyMean),
		Severity:       severity,
		Priority:       severity.Priority(),
	}
	if short.DailyMean > 0 {
		alert.SuggestedQty = math.Max(0, math.Round(short.DailyMean*a.cfg.AlertReplenishDays-balance))
	}
	return alert, severity != domain.SeverityNormal
}

// SortAlerts orders by priority, then by 30-day consumption descending, then item.
func SortAlerts(alerts []domain.Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		a, b := alerts[i], alerts[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if a.Consumption30d != b.Consumption30d {
			return a.Consumption30d > b.Consumption30d
		}
		return a.ItemID < b.ItemID
	})
}

// countSeverity adds one item of the given severity to the summary.
func countSeverity(s *domain.AlertSummary, severity domain.Severity) {
	switch severity {
	case domain.SeverityCritical:
		s.Critical++
	case domain.SeverityUrgent:
		s.Urgent++
	case domain.SeverityAttention:
		s.Attention++
	default:
		s.Normal++
	}
}
