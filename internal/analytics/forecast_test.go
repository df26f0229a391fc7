package analytics

import (
	"testing"
	"time"

	"github.com/andresuchdata/marfim-stock/backend-go/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseRateWeights(t *testing.T) {
	f := NewDemandForecaster(DefaultConfig(), testNow)
	windows := []domain.ConsumptionWindow{
		{WindowDays: 30, DailyMean: 10},
		{WindowDays: 60, DailyMean: 5},
		{WindowDays: 90, DailyMean: 2},
	}
	assert.InDelta(t, 6.9, f.BaseRate(windows), 1e-9)
}

func TestForecastHorizonsAreIndependent(t *testing.T) {
	f := NewDemandForecaster(DefaultConfig(), testNow)

	var txs []domain.Transaction
	for d := 1; d <= 30; d++ {
		txs = append(txs, exitTx("Linha", daysAgo(d), 3))
	}
	h := history("Linha", 150, txs...)

	results, skip := f.Forecast(h, windowsOf(h))
	require.Nil(t, skip)
	require.Len(t, results, 4)

	byHorizon := map[int]domain.ForecastResult{}
	for _, r := range results {
		byHorizon[r.HorizonDays] = r
		assert.Equal(t, 1.0, r.SeasonalFactor)
		assert.Equal(t, r.BaseRate, results[0].BaseRate)
		assert.GreaterOrEqual(t, r.LowerBound, 0.0)
		assert.LessOrEqual(t, r.LowerBound, r.PredictedConsumption)
		assert.GreaterOrEqual(t, r.UpperBound, r.PredictedConsumption)
		assert.InDelta(t, 150-r.PredictedConsumption, r.PredictedBalance, 0.01)
		assert.Equal(t, domain.ConfidenceHigh, r.Confidence)
		assert.Equal(t, 30, r.ExitEvents)
	}

	// m30=3, m60=1.5, m90=1 -> 1.5+0.45+0.2
	assert.InDelta(t, 2.15, results[0].BaseRate, 1e-9)
	assert.InDelta(t, 2*byHorizon[15].PredictedConsumption, byHorizon[30].PredictedConsumption, 0.02)
	assert.InDelta(t, 6*byHorizon[15].PredictedConsumption, byHorizon[90].PredictedConsumption, 0.05)
	// identical exits: zero spread
	assert.Equal(t, byHorizon[30].PredictedConsumption, byHorizon[30].UpperBound)
	assert.False(t, byHorizon[30].StockoutWithinHorizon)
	assert.True(t, byHorizon[90].StockoutWithinHorizon)
}

func TestForecastSkipsIdleItems(t *testing.T) {
	f := NewDemandForecaster(DefaultConfig(), testNow)
	h := history("Tinta", 5, exitTx("Tinta", daysAgo(300), 5))

	results, skip := f.Forecast(h, windowsOf(h))
	assert.Nil(t, results)
	require.NotNil(t, skip)
	assert.Equal(t, domain.SkipNoConsumption, skip.Reason)
	assert.Equal(t, "forecast", skip.Component)
}

func TestSeasonalFactor(t *testing.T) {
	f := NewDemandForecaster(DefaultConfig(), testNow)

	t.Run("short history", func(t *testing.T) {
		h := history("X", 0,
			exitTx("X", on(2024, time.June, 1), 100),
			exitTx("X", on(2024, time.May, 1), 10),
		)
		assert.Equal(t, 1.0, f.SeasonalFactor(h))
	})

	t.Run("peak month clamped", func(t *testing.T) {
		var txs []domain.Transaction
		for m := time.July; m <= time.December; m++ {
			txs = append(txs, exitTx("X", on(2023, m, 10), 10))
		}
		for m := time.January; m <= time.May; m++ {
			txs = append(txs, exitTx("X", on(2024, m, 10), 10))
		}
		txs = append(txs, exitTx("X", on(2024, time.June, 10), 30))
		// 140 over 12 months, June 30 / 11.67 = 2.57
		assert.Equal(t, 2.0, f.SeasonalFactor(history("X", 0, txs...)))
	})

	t.Run("quiet month", func(t *testing.T) {
		var txs []domain.Transaction
		for m := time.July; m <= time.December; m++ {
			txs = append(txs, exitTx("X", on(2023, m, 10), 12))
		}
		for m := time.January; m <= time.June; m++ {
			txs = append(txs, exitTx("X", on(2024, m, 10), 12))
		}
		txs = append(txs, exitTx("X", on(2024, time.January, 11), 36))
		// June 12 against 180/12 = 15
		assert.InDelta(t, 0.8, f.SeasonalFactor(history("X", 0, txs...)), 1e-9)
	})
}

func TestForecastConfidence(t *testing.T) {
	f := NewDemandForecaster(DefaultConfig(), testNow)
	assert.Equal(t, domain.ConfidenceHigh, f.confidence(21))
	assert.Equal(t, domain.ConfidenceMedium, f.confidence(20))
	assert.Equal(t, domain.ConfidenceMedium, f.confidence(6))
	assert.Equal(t, domain.ConfidenceLow, f.confidence(5))
	assert.Equal(t, domain.ConfidenceLow, f.confidence(0))
}

func TestForecastMarginFromExitSpread(t *testing.T) {
	f := NewDemandForecaster(DefaultConfig(), testNow)
	h := history("Sarja", 500,
		exitTx("Sarja", daysAgo(2), 10),
		exitTx("Sarja", daysAgo(5), 30),
	)
	results, skip := f.ForecastHorizons(h, windowsOf(h), []int{10})
	require.Nil(t, skip)
	r := results[0]

	// sample std of {10, 30} = 14.142, margin = 1.96*14.142/sqrt(2) = 19.6
	assert.InDelta(t, r.PredictedConsumption+196, r.UpperBound, 0.02)
	assert.Equal(t, 0.0, r.LowerBound)
	assert.Equal(t, domain.ConfidenceLow, r.Confidence)
}

func TestForecastMarginFallbackForSingleExit(t *testing.T) {
	f := NewDemandForecaster(DefaultConfig(), testNow)
	h := history("Viés", 100, exitTx("Viés", daysAgo(5), 30))
	results, skip := f.ForecastHorizons(h, windowsOf(h), []int{10})
	require.Nil(t, skip)
	r := results[0]

	assert.Equal(t, 1, r.ExitEvents)
	// m30=1, m60=0.5, m90=1/3 -> base 0.71667, margin = base*0.2 = 0.14333
	assert.InDelta(t, 7.17, r.PredictedConsumption, 0.01)
	assert.InDelta(t, 8.60, r.UpperBound, 0.01)
	assert.InDelta(t, 5.73, r.LowerBound, 0.01)
}
