package analytics

import (
	"testing"

	"github.com/andresuchdata/marfim-stock/backend-go/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateWindows(t *testing.T) {
	h := history("Malha", 100,
		exitTx("Malha", daysAgo(5), 30),
		exitTx("Malha", daysAgo(45), 60),
		exitTx("Malha", daysAgo(80), 90),
		exitTx("Malha", daysAgo(200), 1000),
		entryTx("Malha", daysAgo(20), 50),
		exitTx("Malha", nil, 7),
		exitTx("Malha", daysAgo(-3), 500), // after now
	)
	view := NewLedgerView(h.Transactions(), nil)
	agg := NewConsumptionAggregator(view, []int{30, 60, 90}, testNow)
	require.Equal(t, domain.ModeDated, agg.Mode())

	windows := agg.Aggregate(h)
	require.Len(t, windows, 3)

	assert.Equal(t, 30, windows[0].WindowDays)
	assert.Equal(t, 30.0, windows[0].TotalExit)
	assert.Equal(t, 50.0, windows[0].TotalEntry)
	assert.Equal(t, 1.0, windows[0].DailyMean)
	assert.Equal(t, 1, windows[0].Undated)

	assert.Equal(t, 90.0, windows[1].TotalExit)
	assert.Equal(t, 1.5, windows[1].DailyMean)

	assert.Equal(t, 180.0, windows[2].TotalExit)
	assert.Equal(t, 2.0, windows[2].DailyMean)
}

func TestAggregateNoRowsInWindow(t *testing.T) {
	h := history("Ziper", 10, exitTx("Ziper", daysAgo(400), 5))
	view := NewLedgerView(h.Transactions(), nil)
	w := NewConsumptionAggregator(view, []int{30}, testNow).Aggregate(h)[0]
	assert.Zero(t, w.TotalExit)
	assert.Zero(t, w.DailyMean)
}

func TestAggregateUndatedMode(t *testing.T) {
	txs := []domain.Transaction{
		exitTx("Forro", nil, 30),
		exitTx("Forro", nil, 60),
		entryTx("Forro", nil, 10),
	}
	view := NewLedgerView(txs, nil)
	agg := NewConsumptionAggregator(view, []int{30, 90}, testNow)
	require.Equal(t, domain.ModeUndated, agg.Mode())

	h, _ := view.Item(NormalizeKey("forro"))
	windows := agg.Aggregate(h)
	assert.Equal(t, 90.0, windows[0].TotalExit)
	assert.Equal(t, 3.0, windows[0].DailyMean)
	assert.Equal(t, 90.0, windows[1].TotalExit)
	assert.Equal(t, 1.0, windows[1].DailyMean)
	assert.Equal(t, domain.ModeUndated, windows[1].Mode)
	assert.Equal(t, 3, windows[1].Undated)
}
