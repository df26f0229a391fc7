package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/andresuchdata/marfim-stock/backend-go/internal/domain"
)

const componentForecast = "forecast"

// DemandForecaster projects consumption over several horizons from a weighted daily rate.
type DemandForecaster struct {
	cfg     Config
	now     time.Time
	weights []windowWeight
}

type windowWeight struct {
	days   int
	weight float64
}

func NewDemandForecaster(cfg Config, now time.Time) *DemandForecaster {
	weights := make([]windowWeight, 0, len(cfg.BaseRateWeights))
	for d, w := range cfg.BaseRateWeights {
		weights = append(weights, windowWeight{days: d, weight: w})
	}
	// fixed summation order keeps results bit-identical between runs
	sort.Slice(weights, func(i, j int) bool { return weights[i].days < weights[j].days })
	return &DemandForecaster{cfg: cfg, now: now, weights: weights}
}

// Forecast returns one result per configured horizon, all sharing the same base rate and
// seasonal factor.
func (f *DemandForecaster) Forecast(h *ItemHistory, windows []domain.ConsumptionWindow) ([]domain.ForecastResult, *domain.Skip) {
	return f.ForecastHorizons(h, windows, f.cfg.Horizons)
}

func (f *DemandForecaster) ForecastHorizons(h *ItemHistory, windows []domain.ConsumptionWindow, horizons []int) ([]domain.ForecastResult, *domain.Skip) {
	base := f.BaseRate(windows)
	if base <= 0 {
		return nil, &domain.Skip{ItemID: h.Name(), Component: componentForecast, Reason: domain.SkipNoConsumption}
	}

	sf := f.SeasonalFactor(h)
	exits := exitQuantities(h.Transactions())
	n := len(exits)

	// a single exit has no sample spread, so the band falls back to a share of the base rate
	var margin float64
	if n < 2 {
		margin = base * f.cfg.StdFallbackRatio
	} else {
		margin = f.cfg.ConfidenceZ * sampleStd(exits) / math.Sqrt(float64(n))
	}

	balance := h.Balance()
	rate := base * sf
	coverage := CoverageDays(balance, rate)
	confidence := f.confidence(n)

	out := make([]domain.ForecastResult, 0, len(horizons))
	for _, horizon := range horizons {
		hd := float64(horizon)
		predicted := rate * hd
		predictedBalance := balance - predicted
		out = append(out, domain.ForecastResult{
			ItemID:                h.Name(),
			HorizonDays:           horizon,
			BaseRate:              roundFloat(base, 4),
			SeasonalFactor:        roundFloat(sf, 2),
			PredictedConsumption:  roundFloat(predicted, 2),
			PredictedBalance:      roundFloat(predictedBalance, 2),
			LowerBound:            roundFloat(math.Max(0, predicted-margin*hd), 2),
			UpperBound:            roundFloat(predicted+margin*hd, 2),
			CoverageDays:          coverage,
			StockoutWithinHorizon: predictedBalance < 0,
			ExitEvents:            n,
			Confidence:            confidence,
		})
	}
	return out, nil
}

// BaseRate blends the windowed daily means with the configured weights.
func (f *DemandForecaster) BaseRate(windows []domain.ConsumptionWindow) float64 {
	var rate float64
	for _, w := range f.weights {
		rate += windowByDays(windows, w.days).DailyMean * w.weight
	}
	return rate
}

// SeasonalFactor compares the current calendar month against the average month. Histories
// spanning fewer than SeasonalMinMonths distinct months return 1.
func (f *DemandForecaster) SeasonalFactor(h *ItemHistory) float64 {
	var (
		byMonth [12]float64
		total   float64
		buckets = make(map[[2]int]struct{})
	)
	for _, tx := range h.Dated() {
		if tx.ExitQty <= 0 {
			continue
		}
		y, m, _ := tx.Date.Date()
		buckets[[2]int{y, int(m)}] = struct{}{}
		byMonth[m-1] += tx.ExitQty
		total += tx.ExitQty
	}
	if len(buckets) < f.cfg.SeasonalMinMonths {
		return 1.0
	}

	avg := total / 12
	if avg <= 0 {
		return 1.0
	}
	return clamp(byMonth[f.now.Month()-1]/avg, f.cfg.SeasonalMin, f.cfg.SeasonalMax)
}

func (f *DemandForecaster) confidence(exitEvents int) domain.Confidence {
	switch {
	case exitEvents > f.cfg.HighConfidenceMin:
		return domain.ConfidenceHigh
	case exitEvents > f.cfg.MediumConfidenceMin:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}

func exitQuantities(txs []domain.Transaction) []float64 {
	var out []float64
	for _, tx := range txs {
		if tx.ExitQty > 0 {
			out = append(out, tx.ExitQty)
		}
	}
	return out
}
