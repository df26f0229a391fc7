package analytics

import "fmt"

// CoverageUnbounded is the coverage reported for items without measurable consumption.
// Downstream filters compare against it, so the value is part of the public contract.
const CoverageUnbounded = 999.0

// Config holds every tunable of the engine
type Config struct {
	Windows        []int // consumption windows in days
	ShortWindow    int   // window behind coverage, alerts and ABC
	PlanningWindow int   // window behind daily mean and daily std of the planner
	Workers        int   // per-item concurrency, <= 0 means one worker per CPU

	// Planner
	ServiceLevel        float64
	ZTable              map[float64]float64
	DefaultZ            float64
	DefaultLeadTimeDays float64
	MinLeadTimeDays     float64
	MaxLeadTimeDays     float64
	LotHorizonDays      int
	StdFallbackRatio    float64 // daily_std = daily_mean * ratio when the sample is too small

	// Forecaster
	BaseRateWeights     map[int]float64 // window days -> weight
	Horizons            []int
	SeasonalMinMonths   int
	SeasonalMin         float64
	SeasonalMax         float64
	ConfidenceZ         float64
	HighConfidenceMin   int // exit events strictly above this are "high"
	MediumConfidenceMin int

	// Anomaly detector
	OutlierZ               float64
	MinExitSamples         int
	MinEntrySamples        int
	RepeatedValueMin       int
	SameDayExitsMin        int
	SeasonalLookbackMonths int
	SeasonalDeviation      float64
	SeasonalMinExits       int
	SeasonalMinBuckets     int

	// ABC
	ClassALimit float64 // percent
	ClassBLimit float64

	// Alerts
	CriticalDays       float64
	UrgentDays         float64
	AttentionDays      float64
	AlertReplenishDays float64

	// Purchase list
	PurchaseTargetDays   float64
	PurchaseSafetyMargin float64
	PurchaseMaxCoverage  float64
	PurchaseUrgentDays   float64
	PurchaseHighDays     float64

	// Housekeeping reports
	TurnoverWindow      int
	StaleAfterDays      int
	DivergenceTolerance float64
}

// DefaultConfig returns the thresholds used by the stock team
func DefaultConfig() Config {
	return Config{
		Windows:        []int{30, 60, 90},
		ShortWindow:    30,
		PlanningWindow: 90,

		ServiceLevel: 0.95,

		ZTable: map[float64]float64{
			0.90: 1.28,
			0.95: 1.65,
			0.97: 1.88,
			0.99: 2.33,
		},
		DefaultZ:            1.65,
		DefaultLeadTimeDays: 7,
		MinLeadTimeDays:     3,
		MaxLeadTimeDays:     30,
		LotHorizonDays:      30,
		StdFallbackRatio:    0.2,

		BaseRateWeights:     map[int]float64{30: 0.5, 60: 0.3, 90: 0.2},
		Horizons:            []int{15, 30, 60, 90},
		SeasonalMinMonths:   12,
		SeasonalMin:         0.5,
		SeasonalMax:         2.0,
		ConfidenceZ:         1.96,
		HighConfidenceMin:   20,
		MediumConfidenceMin: 5,

		OutlierZ:               2.5,
		MinExitSamples:         5,
		MinEntrySamples:        3,
		RepeatedValueMin:       5,
		SameDayExitsMin:        3,
		SeasonalLookbackMonths: 3,
		SeasonalDeviation:      0.5,
		SeasonalMinExits:       30,
		SeasonalMinBuckets:     6,

		ClassALimit: 80,
		ClassBLimit: 95,

		CriticalDays:       7,
		UrgentDays:         15,
		AttentionDays:      30,
		AlertReplenishDays: 45,

		PurchaseTargetDays:   30,
		PurchaseSafetyMargin: 1.2,
		PurchaseMaxCoverage:  30,
		PurchaseUrgentDays:   7,
		PurchaseHighDays:     15,

		TurnoverWindow:      90,
		StaleAfterDays:      30,
		DivergenceTolerance: 0.01,
	}
}

// Validate checks that the windows the components depend on are configured.
func (c Config) Validate() error {
	if len(c.Windows) == 0 {
		return fmt.Errorf("at least one consumption window is required")
	}
	have := make(map[int]bool, len(c.Windows))
	for _, w := range c.Windows {
		if w <= 0 {
			return fmt.Errorf("invalid window %d: must be positive", w)
		}
		have[w] = true
	}
	need := []int{c.ShortWindow, c.PlanningWindow, c.TurnoverWindow}
	for w := range c.BaseRateWeights {
		need = append(need, w)
	}
	for _, w := range need {
		if !have[w] {
			return fmt.Errorf("window %d is used but not listed in Windows %v", w, c.Windows)
		}
	}
	if c.ClassALimit <= 0 || c.ClassBLimit < c.ClassALimit || c.ClassBLimit > 100 {
		return fmt.Errorf("invalid ABC limits %.1f/%.1f", c.ClassALimit, c.ClassBLimit)
	}
	if c.SeasonalMin > c.SeasonalMax {
		return fmt.Errorf("seasonal clamp min %.2f above max %.2f", c.SeasonalMin, c.SeasonalMax)
	}
	if !(c.CriticalDays <= c.UrgentDays && c.UrgentDays <= c.AttentionDays) {
		return fmt.Errorf("alert thresholds must be ascending: %.0f/%.0f/%.0f", c.CriticalDays, c.UrgentDays, c.AttentionDays)
	}
	return nil
}

// ZFor maps a service level to its z-score, falling back to DefaultZ.
func (c Config) ZFor(level float64) float64 {
	for l, z := range c.ZTable {
		if almostEqual(l, level) {
			return z
		}
	}
	return c.DefaultZ
}
