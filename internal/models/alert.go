package models

// FilterKey identifies one boolean predicate evaluated against an enriched
// asset (asset + indicator set).
type FilterKey string

const (
	// Moving-average group
	FilterPriceAboveMA FilterKey = "price_above_ma"
	FilterPriceBelowMA FilterKey = "price_below_ma"
	FilterMABullish    FilterKey = "ma_bullish"
	FilterMABearish    FilterKey = "ma_bearish"
	FilterGoldenCross  FilterKey = "golden_cross"
	FilterDeadCross    FilterKey = "dead_cross"

	// RSI group
	FilterRSIOverbought    FilterKey = "rsi_overbought"
	FilterRSIOversold      FilterKey = "rsi_oversold"
	FilterRSIBounce        FilterKey = "rsi_bounce"
	FilterRSIOverheatEntry FilterKey = "rsi_overheat_entry"

	// Signal group (feed-supplied classification pass-through)
	FilterSignalStrongBuy  FilterKey = "signal_strong_buy"
	FilterSignalBuy        FilterKey = "signal_buy"
	FilterSignalSell       FilterKey = "signal_sell"
	FilterSignalStrongSell FilterKey = "signal_strong_sell"

	// Portfolio group
	FilterProfitable   FilterKey = "profitable"
	FilterLosing       FilterKey = "losing"
	FilterDropFromHigh FilterKey = "drop_from_high"
)

// FilterGroup is the family a predicate key belongs to. Keys in the same
// group combine with OR; groups combine with AND.
type FilterGroup string

const (
	GroupMovingAverage FilterGroup = "moving_average"
	GroupRSI           FilterGroup = "rsi"
	GroupSignal        FilterGroup = "signal"
	GroupPortfolio     FilterGroup = "portfolio"
)

// FilterKeyGroups is the static key→group table. Grouping is fixed at compile
// time, never inferred at runtime.
var FilterKeyGroups = map[FilterKey]FilterGroup{
	FilterPriceAboveMA: GroupMovingAverage,
	FilterPriceBelowMA: GroupMovingAverage,
	FilterMABullish:    GroupMovingAverage,
	FilterMABearish:    GroupMovingAverage,
	FilterGoldenCross:  GroupMovingAverage,
	FilterDeadCross:    GroupMovingAverage,

	FilterRSIOverbought:    GroupRSI,
	FilterRSIOversold:      GroupRSI,
	FilterRSIBounce:        GroupRSI,
	FilterRSIOverheatEntry: GroupRSI,

	FilterSignalStrongBuy:  GroupSignal,
	FilterSignalBuy:        GroupSignal,
	FilterSignalSell:       GroupSignal,
	FilterSignalStrongSell: GroupSignal,

	FilterProfitable:   GroupPortfolio,
	FilterLosing:       GroupPortfolio,
	FilterDropFromHigh: GroupPortfolio,
}

// FilterConfig supplies thresholds and periods for the predicates that need
// them.
type FilterConfig struct {
	ShortPeriod int     `json:"short_period,omitempty"` // price-vs-MA and crossover short window
	LongPeriod  int     `json:"long_period,omitempty"`  // crossover long window
	DropRate    float64 `json:"drop_rate,omitempty"`    // drop-from-high threshold, negative percent
}

// AlertSeverity ranks alert rules.
type AlertSeverity string

const (
	SeverityCritical AlertSeverity = "critical"
	SeverityWarning  AlertSeverity = "warning"
	SeverityInfo     AlertSeverity = "info"
)

// AlertAction is the suggested action when a rule matches.
type AlertAction string

const (
	ActionSell AlertAction = "sell"
	ActionBuy  AlertAction = "buy"
)

// AlertRule is a named, severity-tagged conjunction of filter predicates.
// Unlike the two-level filter algebra, a rule's keys are ANDed flat,
// regardless of their group.
type AlertRule struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Severity AlertSeverity `json:"severity"`
	Action   AlertAction   `json:"action"`
	Enabled  bool          `json:"enabled"`
	Keys     []FilterKey   `json:"keys"`
	Config   FilterConfig  `json:"config"`
}

// AlertMatch is one asset matching one rule, with a short human-readable
// details string built from whichever of RSI, day change, return % and
// drop-from-high are defined.
type AlertMatch struct {
	AssetID string `json:"asset_id"`
	Ticker  string `json:"ticker"`
	Name    string `json:"name,omitempty"`
	Details string `json:"details,omitempty"`
}

// AlertResult is one rule together with the assets that matched it. Rules
// with no matches are not reported.
type AlertResult struct {
	Rule    AlertRule    `json:"rule"`
	Matches []AlertMatch `json:"matches"`
}

// DefaultAlertRules returns the built-in rule set.
func DefaultAlertRules() []AlertRule {
	return []AlertRule{
		{
			ID:       "stop_loss",
			Name:     "Stop loss",
			Severity: SeverityCritical,
			Action:   ActionSell,
			Enabled:  true,
			Keys:     []FilterKey{FilterLosing, FilterDropFromHigh},
			Config:   FilterConfig{DropRate: -15},
		},
		{
			ID:       "dead_cross",
			Name:     "Dead cross",
			Severity: SeverityWarning,
			Action:   ActionSell,
			Enabled:  true,
			Keys:     []FilterKey{FilterDeadCross},
			Config:   FilterConfig{ShortPeriod: 20, LongPeriod: 60},
		},
		{
			ID:       "golden_cross",
			Name:     "Golden cross",
			Severity: SeverityInfo,
			Action:   ActionBuy,
			Enabled:  true,
			Keys:     []FilterKey{FilterGoldenCross},
			Config:   FilterConfig{ShortPeriod: 20, LongPeriod: 60},
		},
		{
			ID:       "rsi_overheat",
			Name:     "RSI overheat",
			Severity: SeverityWarning,
			Action:   ActionSell,
			Enabled:  true,
			Keys:     []FilterKey{FilterRSIOverheatEntry},
		},
		{
			ID:       "rsi_bounce",
			Name:     "RSI bounce",
			Severity: SeverityInfo,
			Action:   ActionBuy,
			Enabled:  true,
			Keys:     []FilterKey{FilterRSIBounce},
		},
	}
}
