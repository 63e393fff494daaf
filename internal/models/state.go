package models

import "time"

// SchemaVersion is the current state document schema. Loaded documents with
// an older (or missing) version pass through MigrateState before use.
const SchemaVersion = 2

// Settings holds user preferences persisted with the state document.
type Settings struct {
	// DefaultSellAlertDropRate is the portfolio-wide drop-from-high alert
	// threshold (negative percent), overridable per asset.
	DefaultSellAlertDropRate float64 `json:"default_sell_alert_drop_rate"`

	// LastAlertDate dedupes the daily alert popup: the popup is shown at
	// most once per calendar date.
	LastAlertDate string `json:"last_alert_date,omitempty"` // YYYY-MM-DD

	AlertRules []AlertRule `json:"alert_rules,omitempty"`
}

// ExchangeRates maps a foreign currency code to its home-currency rate.
type ExchangeRates map[Currency]float64

// AppState is the entire application state, serialized as one JSON document
// and round-tripped through the blob store as a single atomic unit.
type AppState struct {
	SchemaVersion int `json:"schema_version"`

	Assets    []Asset         `json:"assets"`
	Snapshots []DailySnapshot `json:"snapshots,omitempty"`
	// SellHistory keeps records of sales whose asset has since been deleted;
	// sells of live assets ride on the asset itself.
	SellHistory []SellRecord `json:"sell_history,omitempty"`
	Watchlist   Watchlist    `json:"watchlist"`

	Rates     ExchangeRates `json:"rates,omitempty"`
	RatesTime time.Time     `json:"rates_time,omitempty"`

	Settings Settings `json:"settings"`

	UpdatedAt time.Time `json:"updated_at"`
}

// NewAppState returns an empty state document at the current schema version.
func NewAppState() *AppState {
	return &AppState{
		SchemaVersion: SchemaVersion,
		Rates:         ExchangeRates{},
		Settings: Settings{
			DefaultSellAlertDropRate: -15,
			AlertRules:               DefaultAlertRules(),
		},
	}
}

// ActiveAssets returns the assets still held (quantity > 0).
func (s *AppState) ActiveAssets() []Asset {
	active := make([]Asset, 0, len(s.Assets))
	for _, a := range s.Assets {
		if !a.Closed() {
			active = append(active, a)
		}
	}
	return active
}

// FindAsset returns the asset with the given id and its index, or (nil, -1).
func (s *AppState) FindAsset(id string) (*Asset, int) {
	for i := range s.Assets {
		if s.Assets[i].ID == id {
			return &s.Assets[i], i
		}
	}
	return nil, -1
}

// RemoveAsset deletes the asset with the given id, preserving its sell
// records in SellHistory so realized statistics survive. Returns false if no
// such asset exists.
func (s *AppState) RemoveAsset(id string) bool {
	_, idx := s.FindAsset(id)
	if idx < 0 {
		return false
	}
	s.SellHistory = append(s.SellHistory, s.Assets[idx].Sells...)
	s.Assets = append(s.Assets[:idx], s.Assets[idx+1:]...)
	return true
}

// AllSellRecords returns the sell history plus the sells attached to live
// assets, the full input for realized statistics.
func (s *AppState) AllSellRecords() []SellRecord {
	records := make([]SellRecord, 0, len(s.SellHistory))
	records = append(records, s.SellHistory...)
	for _, a := range s.Assets {
		records = append(records, a.Sells...)
	}
	return records
}

// SellAlertDropRate resolves the drop-from-high alert threshold for an asset:
// the per-asset override when present, otherwise the portfolio default.
func (s *AppState) SellAlertDropRate(a *Asset) float64 {
	if a.SellAlertDropRate != nil {
		return *a.SellAlertDropRate
	}
	return s.Settings.DefaultSellAlertDropRate
}
