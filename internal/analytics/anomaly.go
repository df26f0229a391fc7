package analytics

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/andresuchdata/marfim-stock/backend-go/internal/domain"
)

// AnomalyDetector flags suspicious rows and periods from an item's raw transactions.
type AnomalyDetector struct {
	cfg Config
	now time.Time
}

func NewAnomalyDetector(cfg Config, now time.Time) *AnomalyDetector {
	return &AnomalyDetector{cfg: cfg, now: now}
}

// Detect runs every detector. Findings are additive: the same row may appear under several kinds.
func (d *AnomalyDetector) Detect(h *ItemHistory) []domain.Anomaly {
	var out []domain.Anomaly
	out = append(out, d.Outliers(h)...)
	out = append(out, d.RepeatedValues(h)...)
	out = append(out, d.SameDayExits(h)...)
	out = append(out, d.NegativeBalances(h)...)
	out = append(out, d.SeasonalDeviations(h)...)
	SortAnomalies(out)
	return out
}

// Outliers scores each exit and entry against the population mean and deviation of its own type.
func (d *AnomalyDetector) Outliers(h *ItemHistory) []domain.Anomaly {
	var exits, entries []domain.Transaction
	for _, tx := range h.Transactions() {
		if tx.ExitQty > 0 {
			exits = append(exits, tx)
		}
		if tx.EntryQty > 0 {
			entries = append(entries, tx)
		}
	}

	var out []domain.Anomaly
	if len(exits) >= d.cfg.MinExitSamples {
		out = append(out, d.scoreOutliers(h.Name(), exits, func(tx domain.Transaction) float64 { return tx.ExitQty },
			domain.AnomalyExitHigh, domain.AnomalyExitLow, "exit")...)
	}
	if len(entries) >= d.cfg.MinEntrySamples {
		out = append(out, d.scoreOutliers(h.Name(), entries, func(tx domain.Transaction) float64 { return tx.EntryQty },
			domain.AnomalyEntryHigh, domain.AnomalyEntryLow, "entry")...)
	}
	return out
}

func (d *AnomalyDetector) scoreOutliers(item string, txs []domain.Transaction, qty func(domain.Transaction) float64,
	high, low domain.AnomalyKind, label string) []domain.Anomaly {
	values := make([]float64, len(txs))
	for i, tx := range txs {
		values[i] = qty(tx)
	}
	m := mean(values)
	std := populationStd(values)
	if math.IsNaN(std) || std == 0 {
		return nil
	}

	var out []domain.Anomaly
	for i, tx := range txs {
		z := (values[i] - m) / std
		if math.Abs(z) <= d.cfg.OutlierZ {
			continue
		}
		kind, word := high, "above"
		if z < 0 {
			kind, word = low, "below"
		}
		zs := roundFloat(z, 2)
		out = append(out, domain.Anomaly{
			ItemID:        item,
			Kind:          kind,
			Date:          tx.Date,
			ObservedValue: values[i],
			ZScore:        &zs,
			Description: fmt.Sprintf("%s of %.2f is %.1f standard deviations %s the mean of %.2f",
				label, values[i], math.Abs(zs), word, m),
		})
	}
	return out
}

// RepeatedValues flags each exit quantity seen at least RepeatedValueMin times.
func (d *AnomalyDetector) RepeatedValues(h *ItemHistory) []domain.Anomaly {
	counts := make(map[float64]int)
	for _, tx := range h.Transactions() {
		if tx.ExitQty > 0 {
			counts[tx.ExitQty]++
		}
	}

	values := make([]float64, 0, len(counts))
	for v, n := range counts {
		if n >= d.cfg.RepeatedValueMin {
			values = append(values, v)
		}
	}
	sort.Float64s(values)

	out := make([]domain.Anomaly, 0, len(values))
	for _, v := range values {
		out = append(out, domain.Anomaly{
			ItemID:        h.Name(),
			Kind:          domain.AnomalyRepeatedValue,
			ObservedValue: v,
			Count:         counts[v],
			Description:   fmt.Sprintf("exit of exactly %.2f recorded %d times", v, counts[v]),
		})
	}
	return out
}

// SameDayExits flags calendar days with at least SameDayExitsMin exit rows.
func (d *AnomalyDetector) SameDayExits(h *ItemHistory) []domain.Anomaly {
	var (
		out   []domain.Anomaly
		day   time.Time
		count int
		total float64
	)
	flush := func() {
		if count >= d.cfg.SameDayExitsMin {
			date := day
			out = append(out, domain.Anomaly{
				ItemID:        h.Name(),
				Kind:          domain.AnomalySameDayExits,
				Date:          &date,
				ObservedValue: total,
				Count:         count,
				Description:   fmt.Sprintf("%d exits on %s totalling %.2f", count, date.Format("2006-01-02"), total),
			})
		}
	}

	for _, tx := range h.Dated() {
		if tx.ExitQty <= 0 {
			continue
		}
		current := dayOf(*tx.Date)
		if count > 0 && !current.Equal(day) {
			flush()
			count, total = 0, 0
		}
		day = current
		count++
		total += tx.ExitQty
	}
	if count > 0 {
		flush()
	}
	return out
}

// NegativeBalances flags every row that left the balance below zero.
func (d *AnomalyDetector) NegativeBalances(h *ItemHistory) []domain.Anomaly {
	var out []domain.Anomaly
	for _, tx := range h.Transactions() {
		if tx.BalanceAfter >= 0 {
			continue
		}
		out = append(out, domain.Anomaly{
			ItemID:        h.Name(),
			Kind:          domain.AnomalyNegativeBalance,
			Date:          tx.Date,
			ObservedValue: tx.BalanceAfter,
			Description:   fmt.Sprintf("balance went to %.2f", tx.BalanceAfter),
		})
	}
	return out
}

type monthKey struct {
	year  int
	month time.Month
}

// SeasonalDeviations compares each of the last SeasonalLookbackMonths calendar months with the
// average of the same month in earlier years.
func (d *AnomalyDetector) SeasonalDeviations(h *ItemHistory) []domain.Anomaly {
	buckets := make(map[monthKey]float64)
	exits := 0
	for _, tx := range h.Dated() {
		if tx.ExitQty <= 0 {
			continue
		}
		y, m, _ := tx.Date.Date()
		buckets[monthKey{y, m}] += tx.ExitQty
		exits++
	}
	if exits < d.cfg.SeasonalMinExits || len(buckets) < d.cfg.SeasonalMinBuckets {
		return nil
	}

	var out []domain.Anomaly
	current := time.Date(d.now.Year(), d.now.Month(), 1, 0, 0, 0, 0, d.now.Location())
	for i := 0; i < d.cfg.SeasonalLookbackMonths; i++ {
		target := current.AddDate(0, -i, 0)
		key := monthKey{target.Year(), target.Month()}

		var prior []float64
		for k, v := range buckets {
			if k.month == key.month && k.year < key.year {
				prior = append(prior, v)
			}
		}
		sort.Float64s(prior)
		avg := mean(prior)
		if avg <= 0 {
			continue
		}

		actual := buckets[key]
		variation := (actual - avg) / avg
		if math.Abs(variation) <= d.cfg.SeasonalDeviation {
			continue
		}

		kind, word := domain.AnomalyAboveSeasonal, "above"
		if variation < 0 {
			kind, word = domain.AnomalyBelowSeasonal, "below"
		}
		date := target
		out = append(out, domain.Anomaly{
			ItemID:        h.Name(),
			Kind:          kind,
			Date:          &date,
			ObservedValue: actual,
			Description: fmt.Sprintf("%s consumption %.2f is %.0f%% %s the historical average of %.2f",
				target.Format("2006-01"), actual, math.Abs(variation)*100, word, avg),
		})
	}
	return out
}

// SortAnomalies orders by date descending with undated findings last, then item, kind and value.
func SortAnomalies(list []domain.Anomaly) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		switch {
		case a.Date != nil && b.Date == nil:
			return true
		case a.Date == nil && b.Date != nil:
			return false
		case a.Date != nil && b.Date != nil && !a.Date.Equal(*b.Date):
			return a.Date.After(*b.Date)
		}
		if a.ItemID != b.ItemID {
			return a.ItemID < b.ItemID
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.ObservedValue < b.ObservedValue
	})
}
