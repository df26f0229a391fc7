package analytics

import "github.com/andresuchdata/marfim-stock/backend-go/internal/domain"

// CoverageDays returns balance/dailyMean rounded to one decimal, or CoverageUnbounded when
// there is no measurable consumption.
func CoverageDays(balance, dailyMean float64) float64 {
	if dailyMean <= 0 {
		return CoverageUnbounded
	}
	return roundFloat(balance/dailyMean, 1)
}

// CoverageStateOf qualifies the number returned by CoverageDays. A negative balance wins over
// the unbounded state.
func CoverageStateOf(balance, dailyMean float64) domain.CoverageState {
	switch {
	case balance < 0:
		return domain.CoverageNegative
	case dailyMean <= 0:
		return domain.CoverageUnbounded
	default:
		return domain.CoverageFinite
	}
}
