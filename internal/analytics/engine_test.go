package analytics

import (
	"context"
	"testing"

	"github.com/andresuchdata/marfim-stock/backend-go/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func engineFixture() ([]domain.Transaction, []domain.ItemSnapshot) {
	var txs []domain.Transaction
	for d := 1; d <= 30; d++ {
		txs = append(txs, exitTx("TECIDO AZUL ", daysAgo(d), 10))
	}
	txs = append(txs,
		entryTx("Botao", daysAgo(200), 20),
		exitTx("Sem Cadastro", daysAgo(3), 4),
	)
	return txs, []domain.ItemSnapshot{
		{ItemID: "Tecido Azul", CurrentBalance: 50, Category: "TECIDO"},
		snapshot("Botao", 20),
	}
}

func byItem[T any](list []T, id func(T) string, item string) (T, bool) {
	for _, v := range list {
		if id(v) == item {
			return v, true
		}
	}
	var zero T
	return zero, false
}

func TestEngineRun(t *testing.T) {
	e, err := NewEngine(DefaultConfig())
	require.NoError(t, err)

	txs, snaps := engineFixture()
	report, err := e.Run(context.Background(), txs, snaps, testNow)
	require.NoError(t, err)

	assert.Equal(t, domain.ModeDated, report.Mode)
	assert.Equal(t, 3, report.Items)
	assert.Equal(t, 32, report.Transactions)
	assert.Empty(t, report.Errors)

	t.Run("ledger spelling joins the index", func(t *testing.T) {
		c, ok := byItem(report.Consumption, func(w domain.ItemWindows) string { return w.ItemID }, "Tecido Azul")
		require.True(t, ok)
		assert.Equal(t, 50.0, c.Balance)
		assert.Equal(t, 5.0, c.CoverageDays)
		assert.Equal(t, "TECIDO", c.Category)

		alert, ok := byItem(report.Alerts, func(a domain.Alert) string { return a.ItemID }, "Tecido Azul")
		require.True(t, ok)
		assert.Equal(t, domain.SeverityCritical, alert.Severity)
	})

	t.Run("item without movement", func(t *testing.T) {
		c, ok := byItem(report.Consumption, func(w domain.ItemWindows) string { return w.ItemID }, "Botao")
		require.True(t, ok)
		assert.Equal(t, CoverageUnbounded, c.CoverageDays)
		assert.Equal(t, domain.CoverageUnbounded, c.CoverageState)

		_, planned := byItem(report.Planning, func(p domain.PlanningParameters) string { return p.ItemID }, "Botao")
		assert.False(t, planned)
		assert.Contains(t, report.Skips, domain.Skip{ItemID: "Botao", Component: componentPlanner, Reason: domain.SkipNoConsumption})
		assert.Contains(t, report.Skips, domain.Skip{ItemID: "Botao", Component: componentForecast, Reason: domain.SkipNoConsumption})
		assert.Contains(t, report.ABC.NoMovement, "Botao")

		stale, ok := byItem(report.Stale, func(s domain.StaleItem) string { return s.ItemID }, "Botao")
		require.True(t, ok)
		assert.Equal(t, 200, stale.DaysIdle)
	})

	t.Run("ledger-only item has zero balance", func(t *testing.T) {
		c, ok := byItem(report.Consumption, func(w domain.ItemWindows) string { return w.ItemID }, "Sem Cadastro")
		require.True(t, ok)
		assert.Zero(t, c.Balance)
		assert.Equal(t, CategoryOther, c.Category)
	})

	t.Run("summary counts every item", func(t *testing.T) {
		s := report.AlertSummary
		assert.Equal(t, report.Items, s.Critical+s.Urgent+s.Attention+s.Normal)
	})
}

func TestEngineRecoversFailingItem(t *testing.T) {
	e, err := NewEngine(DefaultConfig())
	require.NoError(t, err)
	e.itemHook = func(h *ItemHistory) {
		if h.Name() == "Sem Cadastro" {
			panic("corrupt row")
		}
	}

	txs, snaps := engineFixture()
	report, err := e.Run(context.Background(), txs, snaps, testNow)
	require.NoError(t, err)

	require.Len(t, report.Errors, 1)
	assert.Equal(t, domain.ItemError{ItemID: "Sem Cadastro", Component: componentPlanner, Message: "corrupt row"}, report.Errors[0])

	assert.Equal(t, 3, report.Items)
	assert.Len(t, report.Consumption, 3)

	alert, ok := byItem(report.Alerts, func(a domain.Alert) string { return a.ItemID }, "Tecido Azul")
	require.True(t, ok)
	assert.Equal(t, domain.SeverityCritical, alert.Severity)
	_, planned := byItem(report.Planning, func(p domain.PlanningParameters) string { return p.ItemID }, "Tecido Azul")
	assert.True(t, planned)
	_, forecast := byItem(report.Forecasts, func(f domain.ForecastResult) string { return f.ItemID }, "Tecido Azul")
	assert.True(t, forecast)

	_, planned = byItem(report.Planning, func(p domain.PlanningParameters) string { return p.ItemID }, "Sem Cadastro")
	assert.False(t, planned)
	_, alerted := byItem(report.Alerts, func(a domain.Alert) string { return a.ItemID }, "Sem Cadastro")
	assert.False(t, alerted)

	s := report.AlertSummary
	assert.Equal(t, report.Items-len(report.Errors), s.Critical+s.Urgent+s.Attention+s.Normal)
}

func TestEngineIsDeterministic(t *testing.T) {
	cfg := DefaultConfig()
	txs, snaps := engineFixture()

	cfg.Workers = 1
	serial, err := NewEngine(cfg)
	require.NoError(t, err)
	cfg.Workers = 8
	parallel, err := NewEngine(cfg)
	require.NoError(t, err)

	first, err := serial.Run(context.Background(), txs, snaps, testNow)
	require.NoError(t, err)
	second, err := parallel.Run(context.Background(), txs, snaps, testNow)
	require.NoError(t, err)
	third, err := parallel.Run(context.Background(), txs, snaps, testNow)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, second, third)
}

func TestEngineUndatedLedger(t *testing.T) {
	e, err := NewEngine(DefaultConfig())
	require.NoError(t, err)

	report, err := e.Run(context.Background(),
		[]domain.Transaction{exitTx("Linha", nil, 30), exitTx("Linha", nil, 60)},
		[]domain.ItemSnapshot{snapshot("Linha", 100)},
		testNow)
	require.NoError(t, err)

	assert.Equal(t, domain.ModeUndated, report.Mode)
	assert.Equal(t, 2, report.UndatedTransactions)
	assert.Empty(t, report.Stale)
	require.Len(t, report.Consumption, 1)
	for _, w := range report.Consumption[0].Windows {
		assert.Equal(t, 90.0, w.TotalExit)
	}
}

func TestEngineEmptyLedger(t *testing.T) {
	e, err := NewEngine(DefaultConfig())
	require.NoError(t, err)

	report, err := e.Run(context.Background(), nil, nil, testNow)
	require.NoError(t, err)
	assert.Zero(t, report.Items)
	assert.Empty(t, report.Alerts)
	assert.Empty(t, report.ABC.Entries)
}

func TestEngineCancelled(t *testing.T) {
	e, err := NewEngine(DefaultConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	txs, snaps := engineFixture()
	_, err = e.Run(ctx, txs, snaps, testNow)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewEngineRejectsBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ClassALimit = 97
	_, err := NewEngine(cfg)
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.Windows = []int{7, 30}
	_, err = NewEngine(cfg)
	assert.ErrorContains(t, err, "window")
}
