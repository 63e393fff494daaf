package models

import (
	"strings"
	"time"
)

// WatchlistItem is a tracked-but-not-owned instrument.
type WatchlistItem struct {
	Ticker   string   `json:"ticker"`
	Exchange string   `json:"exchange"`
	Category Category `json:"category"`
	Name     string   `json:"name,omitempty"`

	// Live price fields, populated when monitoring is enabled.
	CurrentPrice  float64  `json:"current_price,omitempty"`
	PreviousClose float64  `json:"previous_close,omitempty"`
	ChangeRate    *float64 `json:"change_rate,omitempty"`
	Currency      Currency `json:"currency,omitempty"`

	Monitoring bool      `json:"monitoring"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Key returns the de-duplication key (ticker, normalized exchange).
func (w *WatchlistItem) Key() string {
	return strings.ToUpper(w.Ticker) + "." + NormalizeExchange(w.Exchange)
}

// Watchlist holds all watchlist items, de-duplicated by Key.
type Watchlist struct {
	Items []WatchlistItem `json:"items"`
}

// Find returns the item matching ticker/exchange and its index, or (nil, -1).
func (wl *Watchlist) Find(ticker, exchange string) (*WatchlistItem, int) {
	key := strings.ToUpper(ticker) + "." + NormalizeExchange(exchange)
	for i := range wl.Items {
		if wl.Items[i].Key() == key {
			return &wl.Items[i], i
		}
	}
	return nil, -1
}
