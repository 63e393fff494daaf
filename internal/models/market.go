package models

import "time"

// PriceQuote is one live quote returned by the price feed for a single
// instrument. A feed that cannot resolve an instrument marks the quote
// Mocked rather than omitting it, so callers can flag the asset instead of
// silently keeping stale data.
type PriceQuote struct {
	Ticker        string    `json:"ticker"`
	Exchange      string    `json:"exchange"`
	Currency      Currency  `json:"currency"`
	Price         float64   `json:"price"`                // native quote currency
	HomePrice     float64   `json:"home_price,omitempty"` // home-currency price when the feed supplies one
	PreviousClose float64   `json:"previous_close"`
	High52Week    float64   `json:"high_52_week,omitempty"`
	ChangeRate    *float64  `json:"change_rate,omitempty"` // day change %, nil when the feed omits it
	Signal        string    `json:"signal,omitempty"`      // feed classification, opaque label
	RSI           *float64  `json:"rsi,omitempty"`
	RSIStatus     string    `json:"rsi_status,omitempty"`
	Mocked        bool      `json:"mocked,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// PricePoint is a single (date, close) observation in a historical series.
type PricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// HistoricalSeries is an ascending-by-date series of closing prices for one
// instrument.
type HistoricalSeries struct {
	Ticker   string       `json:"ticker"`
	Exchange string       `json:"exchange"`
	Points   []PricePoint `json:"points"`
}

// IndicatorPeriods are the moving-average windows computed for every asset.
var IndicatorPeriods = []int{5, 10, 20, 60, 120, 200}

// RSIPeriod is the lookback window for the relative strength index.
const RSIPeriod = 14

// IndicatorSet holds today's and yesterday's indicator values for one
// instrument. A nil entry means the series was too short to compute it.
type IndicatorSet struct {
	Ticker   string `json:"ticker"`
	Exchange string `json:"exchange"`

	SMA     map[int]*float64 `json:"sma"`      // period → today's simple moving average
	PrevSMA map[int]*float64 `json:"prev_sma"` // period → yesterday's simple moving average

	RSI     *float64 `json:"rsi"`
	PrevRSI *float64 `json:"prev_rsi"`

	ComputedAt time.Time `json:"computed_at"`
}

// SMAAt returns today's moving average for period, or nil.
func (s *IndicatorSet) SMAAt(period int) *float64 {
	if s == nil || s.SMA == nil {
		return nil
	}
	return s.SMA[period]
}

// PrevSMAAt returns yesterday's moving average for period, or nil.
func (s *IndicatorSet) PrevSMAAt(period int) *float64 {
	if s == nil || s.PrevSMA == nil {
		return nil
	}
	return s.PrevSMA[period]
}
