package domain

import "time"

// ConsumptionWindow holds windowed sums for one item.
type ConsumptionWindow struct {
	ItemID     string          `json:"item_id"`
	WindowDays int             `json:"window_days"`
	TotalExit  float64         `json:"total_exit"`
	TotalEntry float64         `json:"total_entry"`
	DailyMean  float64         `json:"daily_mean"`
	Undated    int             `json:"undated"`
	Mode       AggregationMode `json:"mode"`
}

// PlanningParameters is the replenishment plan for an item.
type PlanningParameters struct {
	ItemID       string         `json:"item_id"`
	Category     string         `json:"category,omitempty"`
	Balance      float64        `json:"balance"`
	DailyMean    float64        `json:"daily_mean"`
	DailyStd     float64        `json:"daily_std"`
	LeadTimeDays float64        `json:"lead_time_days"`
	ServiceLevel float64        `json:"service_level"`
	Z            float64        `json:"z"`
	SafetyStock  float64        `json:"safety_stock"`
	ReorderPoint float64        `json:"reorder_point"`
	MinStock     float64        `json:"min_stock"`
	MaxStock     float64        `json:"max_stock"`
	SuggestedLot float64        `json:"suggested_lot"`
	CoverageDays float64        `json:"coverage_days"`
	Status       PlanningStatus `json:"status"`
}

// ForecastResult is the projection for one item and horizon.
type ForecastResult struct {
	ItemID                string     `json:"item_id"`
	HorizonDays           int        `json:"horizon_days"`
	BaseRate              float64    `json:"base_rate"`
	SeasonalFactor        float64    `json:"seasonal_factor"`
	PredictedConsumption  float64    `json:"predicted_consumption"`
	PredictedBalance      float64    `json:"predicted_balance"`
	LowerBound            float64    `json:"lower_bound"`
	UpperBound            float64    `json:"upper_bound"`
	CoverageDays          float64    `json:"coverage_days"`
	StockoutWithinHorizon bool       `json:"stockout_within_horizon"`
	ExitEvents            int        `json:"exit_events"`
	Confidence            Confidence `json:"confidence"`
}

// Anomaly is one suspicious transaction or period.
type Anomaly struct {
	ItemID        string      `json:"item_id"`
	Kind          AnomalyKind `json:"kind"`
	Date          *time.Time  `json:"date,omitempty"`
	ObservedValue float64     `json:"observed_value"`
	ZScore        *float64    `json:"z_score,omitempty"`
	Count         int         `json:"count,omitempty"`
	Description   string      `json:"description"`
}

// ABCEntry is one ranked item.
type ABCEntry struct {
	ItemID          string   `json:"item_id"`
	Rank            int      `json:"rank"`
	Consumption30d  float64  `json:"consumption_30d"`
	Share           float64  `json:"share"`
	CumulativeShare float64  `json:"cumulative_share"`
	Class           ABCClass `json:"class"`
}

// ABCSummary aggregates one class.
type ABCSummary struct {
	Class       ABCClass `json:"class"`
	Items       int      `json:"items"`
	Consumption float64  `json:"consumption"`
	Share       float64  `json:"share"`
}

// ABCResult is the Pareto table plus the items with no movement.
type ABCResult struct {
	Entries    []ABCEntry   `json:"entries"`
	Summary    []ABCSummary `json:"summary"`
	NoMovement []string     `json:"no_movement"`
}

// Alert is an item whose coverage or balance needs attention.
type Alert struct {
	ItemID         string        `json:"item_id"`
	Category       string        `json:"category,omitempty"`
	Balance        float64       `json:"balance"`
	DailyMean      float64       `json:"daily_mean"`
	Consumption30d float64       `json:"consumption_30d"`
	CoverageDays   float64       `json:"coverage_days"`
	CoverageState  CoverageState `json:"coverage_state"`
	Severity       Severity      `json:"severity"`
	Priority       int           `json:"priority"`
	SuggestedQty   float64       `json:"suggested_qty"`
}

// AlertSummary counts items per severity, NORMAL included.
type AlertSummary struct {
	Critical  int `json:"critical"`
	Urgent    int `json:"urgent"`
	Attention int `json:"attention"`
	Normal    int `json:"normal"`
}

// PurchaseItem is a line of the suggested purchase list.
type PurchaseItem struct {
	ItemID          string     `json:"item_id"`
	Category        string     `json:"category,omitempty"`
	Balance         float64    `json:"balance"`
	DailyMean       float64    `json:"daily_mean"`
	CoverageDays    float64    `json:"coverage_days"`
	SuggestedQty    float64    `json:"suggested_qty"`
	Urgency         Urgency    `json:"urgency"`
	Priority        int        `json:"priority"`
	Consumption30d  float64    `json:"consumption_30d"`
	LastEntry       *time.Time `json:"last_entry,omitempty"`
	NewCoverageDays float64    `json:"new_coverage_days"`
}

// Turnover is consumption over a window divided by the current balance.
type Turnover struct {
	ItemID      string  `json:"item_id"`
	Consumption float64 `json:"consumption"`
	Balance     float64 `json:"balance"`
	Turnover    float64 `json:"turnover"`
}

// StaleItem has had no dated movement for a while. LastMovement is nil when the item never moved.
type StaleItem struct {
	ItemID       string     `json:"item_id"`
	Balance      float64    `json:"balance"`
	LastMovement *time.Time `json:"last_movement,omitempty"`
	DaysIdle     int        `json:"days_idle"`
}

// Divergence flags an index balance that disagrees with the ledger.
type Divergence struct {
	ItemID        string  `json:"item_id"`
	IndexBalance  float64 `json:"index_balance"`
	LedgerBalance float64 `json:"ledger_balance"`
	Difference    float64 `json:"difference"`
}

// Skip records an item excluded from a component's output.
type Skip struct {
	ItemID    string     `json:"item_id"`
	Component string     `json:"component"`
	Reason    SkipReason `json:"reason"`
}

// ItemError records a failure confined to one item.
type ItemError struct {
	ItemID    string `json:"item_id"`
	Component string `json:"component"`
	Message   string `json:"message"`
}

// ItemWindows groups the consumption windows of one item.
type ItemWindows struct {
	ItemID        string              `json:"item_id"`
	Category      string              `json:"category,omitempty"`
	Unit          string              `json:"unit,omitempty"`
	Balance       float64             `json:"balance"`
	CoverageDays  float64             `json:"coverage_days"`
	CoverageState CoverageState       `json:"coverage_state"`
	Windows       []ConsumptionWindow `json:"windows"`
}

// Report is the full output of one analysis run.
type Report struct {
	GeneratedAt         time.Time            `json:"generated_at"`
	Mode                AggregationMode      `json:"mode"`
	Items               int                  `json:"items"`
	Transactions        int                  `json:"transactions"`
	UndatedTransactions int                  `json:"undated_transactions"`
	ServiceLevel        float64              `json:"service_level"`
	Consumption         []ItemWindows        `json:"consumption"`
	Planning            []PlanningParameters `json:"planning"`
	Forecasts           []ForecastResult     `json:"forecasts"`
	Anomalies           []Anomaly            `json:"anomalies"`
	ABC                 ABCResult            `json:"abc"`
	Alerts              []Alert              `json:"alerts"`
	AlertSummary        AlertSummary         `json:"alert_summary"`
	Purchases           []PurchaseItem       `json:"purchases"`
	Turnover            []Turnover           `json:"turnover"`
	Stale               []StaleItem          `json:"stale"`
	Divergences         []Divergence         `json:"divergences"`
	Skips               []Skip               `json:"skips"`
	Errors              []ItemError          `json:"errors"`
}

// AnalysisRun is the persisted record of one report generation.
type AnalysisRun struct {
	ID           string    `json:"id" db:"id"`
	ReferenceAt  time.Time `json:"reference_at" db:"reference_at"`
	Source       string    `json:"source" db:"source"`
	Mode         string    `json:"mode" db:"mode"`
	Items        int       `json:"items" db:"items"`
	Transactions int       `json:"transactions" db:"transactions"`
	Critical     int       `json:"critical" db:"critical"`
	Urgent       int       `json:"urgent" db:"urgent"`
	Attention    int       `json:"attention" db:"attention"`
	Anomalies    int       `json:"anomalies" db:"anomalies"`
	Errors       int       `json:"errors" db:"errors"`
	DurationMS   int64     `json:"duration_ms" db:"duration_ms"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
