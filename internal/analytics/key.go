package analytics

import (
	"strings"

	"golang.org/x/text/cases"
)

// ItemKey is the canonical identity used for every join between ledger rows and the item index.
type ItemKey string

// NormalizeKey trims and case-folds a raw item identifier.
func NormalizeKey(raw string) ItemKey {
	return ItemKey(cases.Fold().String(strings.TrimSpace(raw)))
}
