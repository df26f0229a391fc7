package analytics

import (
	"sort"

	"github.com/andresuchdata/marfim-stock/backend-go/internal/domain"
)

// shareEpsilon absorbs float error when a cumulative share lands exactly on a limit.
const shareEpsilon = 1e-9

// ABCInput is one item's consumption over the short window.
type ABCInput struct {
	ItemID      string
	Consumption float64
}

// ClassifyABC ranks moving items by consumption and assigns Pareto classes from each item's own
// cumulative share: up to aLimit is A, up to bLimit is B, the rest C.
func ClassifyABC(items []ABCInput, aLimit, bLimit float64) domain.ABCResult {
	result := domain.ABCResult{
		Entries:    []domain.ABCEntry{},
		NoMovement: []string{},
	}

	var (
		moving []ABCInput
		total  float64
	)
	for _, it := range items {
		if it.Consumption > 0 {
			moving = append(moving, it)
			total += it.Consumption
		} else {
			result.NoMovement = append(result.NoMovement, it.ItemID)
		}
	}
	sort.Strings(result.NoMovement)
	sort.SliceStable(moving, func(i, j int) bool {
		if moving[i].Consumption != moving[j].Consumption {
			return moving[i].Consumption > moving[j].Consumption
		}
		return moving[i].ItemID < moving[j].ItemID
	})

	summary := map[domain.ABCClass]*domain.ABCSummary{
		domain.ClassA: {Class: domain.ClassA},
		domain.ClassB: {Class: domain.ClassB},
		domain.ClassC: {Class: domain.ClassC},
	}

	var running float64
	for i, it := range moving {
		running += it.Consumption
		cumulative := running / total * 100

		class := domain.ClassC
		switch {
		case cumulative <= aLimit+shareEpsilon:
			class = domain.ClassA
		case cumulative <= bLimit+shareEpsilon:
			class = domain.ClassB
		}

		result.Entries = append(result.Entries, domain.ABCEntry{
			ItemID:          it.ItemID,
			Rank:            i + 1,
			Consumption30d:  it.Consumption,
			Share:           roundFloat(it.Consumption/total*100, 2),
			CumulativeShare: roundFloat(running/total*100, 2),
			Class:           class,
		})

		s := summary[class]
		s.Items++
		s.Consumption += it.Consumption
	}

	for _, class := range []domain.ABCClass{domain.ClassA, domain.ClassB, domain.ClassC} {
		s := summary[class]
		if total > 0 {
			s.Share = roundFloat(s.Consumption/total*100, 2)
		}
		result.Summary = append(result.Summary, *s)
	}
	return result
}
