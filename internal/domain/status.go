package domain

import "strings"

// AggregationMode tells whether windowed sums were computed over dated rows or the whole ledger.
type AggregationMode string

const (
	ModeDated   AggregationMode = "dated"
	ModeUndated AggregationMode = "undated"
)

// CoverageState qualifies a coverage number.
type CoverageState string

const (
	CoverageFinite    CoverageState = "finite"
	CoverageUnbounded CoverageState = "unbounded"
	CoverageNegative  CoverageState = "negative"
)

// PlanningStatus is the stock position relative to the planning parameters.
type PlanningStatus string

const (
	StatusStockout PlanningStatus = "STOCKOUT"
	StatusCritical PlanningStatus = "CRITICAL"
	StatusReorder  PlanningStatus = "REORDER"
	StatusNormal   PlanningStatus = "NORMAL"
	StatusExcess   PlanningStatus = "EXCESS"
)

// PlanningStatuses lists statuses from most to least severe.
var PlanningStatuses = []PlanningStatus{StatusStockout, StatusCritical, StatusReorder, StatusNormal, StatusExcess}

// Rank returns the position of s in PlanningStatuses.
func (s PlanningStatus) Rank() int {
	for i, v := range PlanningStatuses {
		if v == s {
			return i
		}
	}
	return len(PlanningStatuses)
}

// Severity is the alert level derived from balance and coverage.
type Severity string

const (
	SeverityCritical  Severity = "CRITICAL"
	SeverityUrgent    Severity = "URGENT"
	SeverityAttention Severity = "ATTENTION"
	SeverityNormal    Severity = "NORMAL"
)

var severityPriority = map[Severity]int{
	SeverityCritical:  1,
	SeverityUrgent:    2,
	SeverityAttention: 3,
	SeverityNormal:    4,
}

// Priority returns 1 for the most severe level, 4 for NORMAL.
func (s Severity) Priority() int {
	if p, ok := severityPriority[s]; ok {
		return p
	}
	return 4
}

// ParseSeverity matches a severity label case-insensitively.
func ParseSeverity(label string) (Severity, bool) {
	s := Severity(strings.ToUpper(strings.TrimSpace(label)))
	_, ok := severityPriority[s]
	return s, ok
}

// Confidence labels the sample size behind a forecast.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// AnomalyKind enumerates the anomaly detectors.
type AnomalyKind string

const (
	AnomalyExitHigh        AnomalyKind = "EXIT_HIGH"
	AnomalyExitLow         AnomalyKind = "EXIT_LOW"
	AnomalyEntryHigh       AnomalyKind = "ENTRY_HIGH"
	AnomalyEntryLow        AnomalyKind = "ENTRY_LOW"
	AnomalyRepeatedValue   AnomalyKind = "REPEATED_VALUE"
	AnomalySameDayExits    AnomalyKind = "MULTIPLE_SAME_DAY_EXITS"
	AnomalyNegativeBalance AnomalyKind = "NEGATIVE_BALANCE"
	AnomalyAboveSeasonal   AnomalyKind = "ABOVE_SEASONAL"
	AnomalyBelowSeasonal   AnomalyKind = "BELOW_SEASONAL"
)

// ABCClass is a Pareto band.
type ABCClass string

const (
	ClassA ABCClass = "A"
	ClassB ABCClass = "B"
	ClassC ABCClass = "C"
)

// Urgency ranks purchase list entries.
type Urgency string

const (
	UrgencyCritical Urgency = "CRITICAL"
	UrgencyUrgent   Urgency = "URGENT"
	UrgencyHigh     Urgency = "HIGH"
	UrgencyMedium   Urgency = "MEDIUM"
)

// SkipReason explains why an item is missing from a component's output.
type SkipReason string

const (
	SkipNoConsumption SkipReason = "NO_CONSUMPTION"
	SkipNoHistory     SkipReason = "NO_HISTORY"
)
