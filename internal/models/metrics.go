package models

// AssetMetrics holds the computed valuation metrics for one asset.
// All monetary fields are in the home currency unless suffixed Native.
type AssetMetrics struct {
	AssetID string `json:"asset_id"`
	Ticker  string `json:"ticker"`
	Name    string `json:"name,omitempty"`

	CurrentValueNative float64 `json:"current_value_native"` // price × quantity, native currency
	CurrentValue       float64 `json:"current_value"`
	PurchaseValue      float64 `json:"purchase_value"`
	ProfitLoss         float64 `json:"profit_loss"`
	ReturnPct          float64 `json:"return_pct"`

	DayChangePct    float64 `json:"day_change_pct"`
	DropFromHighPct float64 `json:"drop_from_high_pct"` // native units, ≤ 0 in the well-formed case
	AllocationPct   float64 `json:"allocation_pct"`

	UnitPrice float64 `json:"unit_price"` // home-currency price per unit
}

// PortfolioSummary aggregates AssetMetrics across all held assets.
type PortfolioSummary struct {
	TotalValue         float64 `json:"total_value"`
	TotalPurchaseValue float64 `json:"total_purchase_value"`
	TotalGainLoss      float64 `json:"total_gain_loss"`
	TotalReturnPct     float64 `json:"total_return_pct"`
	AssetCount         int     `json:"asset_count"`

	Metrics []AssetMetrics `json:"metrics"`

	Realized *RealizedStats `json:"realized,omitempty"`
}

// RealizedStats summarizes profit and loss from completed sales.
type RealizedStats struct {
	TotalSaleValue     float64 `json:"total_sale_value"`
	TotalPurchaseValue float64 `json:"total_purchase_value"`
	RealizedGainLoss   float64 `json:"realized_gain_loss"`
	RealizedReturnPct  float64 `json:"realized_return_pct"`
	SellCount          int     `json:"sell_count"`
}
