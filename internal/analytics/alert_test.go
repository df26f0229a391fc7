package analytics

import (
	"testing"

	"github.com/andresuchdata/marfim-stock/backend-go/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlertSeverity(t *testing.T) {
	a := NewAlertClassifier(DefaultConfig())

	tests := []struct {
		name     string
		balance  float64
		coverage float64
		want     domain.Severity
	}{
		{"negative balance beats sentinel", -1, CoverageUnbounded, domain.SeverityCritical},
		{"negative coverage", -10, -2, domain.SeverityCritical},
		{"seven days", 70, 7, domain.SeverityCritical},
		{"just above seven", 71, 7.1, domain.SeverityUrgent},
		{"fifteen days", 150, 15, domain.SeverityUrgent},
		{"thirty days", 300, 30, domain.SeverityAttention},
		{"plenty", 310, 31, domain.SeverityNormal},
		{"no consumption", 20, CoverageUnbounded, domain.SeverityNormal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, a.Severity(tt.balance, tt.coverage))
		})
	}
}

func TestAlertFromThirtyDayConsumption(t *testing.T) {
	a := NewAlertClassifier(DefaultConfig())
	short := domain.ConsumptionWindow{WindowDays: 30, TotalExit: 300, DailyMean: 10}

	alert, ok := a.Alert("Colchete", "AVIAMENTO", 50, short)
	require.True(t, ok)
	assert.Equal(t, 5.0, alert.CoverageDays)
	assert.Equal(t, domain.SeverityCritical, alert.Severity)
	assert.Equal(t, 1, alert.Priority)
	assert.Equal(t, 400.0, alert.SuggestedQty)
	assert.Equal(t, domain.CoverageFinite, alert.CoverageState)

	_, ok = a.Alert("Idle", "", 20, domain.ConsumptionWindow{WindowDays: 30})
	assert.False(t, ok)
}

func TestSortAlerts(t *testing.T) {
	alerts := []domain.Alert{
		{ItemID: "b", Priority: 2, Consumption30d: 500},
		{ItemID: "a", Priority: 1, Consumption30d: 10},
		{ItemID: "c", Priority: 1, Consumption30d: 90},
		{ItemID: "d", Priority: 3, Consumption30d: 900},
		{ItemID: "e", Priority: 1, Consumption30d: 90},
	}
	SortAlerts(alerts)

	var order []string
	for _, a := range alerts {
		order = append(order, a.ItemID)
	}
	assert.Equal(t, []string{"c", "e", "a", "b", "d"}, order)
	for i := 1; i < len(alerts); i++ {
		assert.LessOrEqual(t, alerts[i-1].Priority, alerts[i].Priority)
	}
}
