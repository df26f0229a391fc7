package analytics

import (
	"testing"

	"github.com/andresuchdata/marfim-stock/backend-go/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTurnover(t *testing.T) {
	assert.Equal(t, 2.5, turnoverOf("x", 250, 100).Turnover)
	assert.Zero(t, turnoverOf("x", 250, 0).Turnover)
	assert.Zero(t, turnoverOf("x", 250, -3).Turnover)
}

func TestStaleItems(t *testing.T) {
	idle := history("Forro", 12, entryTx("Forro", daysAgo(45), 12))
	s, ok := staleOf(idle, testNow, 30)
	require.True(t, ok)
	assert.Equal(t, 45, s.DaysIdle)
	assert.Equal(t, daysAgo(45), s.LastMovement)

	recent := history("Forro", 12, exitTx("Forro", daysAgo(30), 1))
	_, ok = staleOf(recent, testNow, 30)
	assert.False(t, ok)

	never := history("Forro", 12)
	s, ok = staleOf(never, testNow, 30)
	require.True(t, ok)
	assert.Equal(t, -1, s.DaysIdle)
	assert.Nil(t, s.LastMovement)

	list := []domain.StaleItem{{ItemID: "b", DaysIdle: 40}, {ItemID: "a", DaysIdle: 90}, {ItemID: "c", DaysIdle: -1}}
	sortStale(list)
	assert.Equal(t, "c", list[0].ItemID)
	assert.Equal(t, "a", list[1].ItemID)
}

func TestDivergence(t *testing.T) {
	row := domain.Transaction{ItemID: "Fita", Date: daysAgo(2), ExitQty: 5, BalanceAfter: 40}

	h := history("Fita", 37.5, row)
	d, ok := divergenceOf(h, 0.01)
	require.True(t, ok)
	assert.Equal(t, -2.5, d.Difference)
	assert.Equal(t, 40.0, d.LedgerBalance)

	_, ok = divergenceOf(history("Fita", 40.005, row), 0.01)
	assert.False(t, ok)

	// ledger-only items have no index balance to compare
	view := NewLedgerView([]domain.Transaction{row}, nil)
	orphan, _ := view.Item(NormalizeKey("Fita"))
	_, ok = divergenceOf(orphan, 0.01)
	assert.False(t, ok)
}
