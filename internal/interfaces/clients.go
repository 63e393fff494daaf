// Package interfaces defines service contracts for wonfolio
package interfaces

import (
	"context"
	"time"

	"github.com/jaehoon-lim/wonfolio/internal/models"
)

// QuoteRequest identifies one instrument for a batch quote lookup.
type QuoteRequest struct {
	Ticker   string
	Exchange string
	Currency models.Currency
}

// QuoteClient provides access to the market data feed.
type QuoteClient interface {
	// GetQuotes retrieves live quotes for a batch of instruments. The result
	// has one entry per request; unresolvable instruments come back Mocked.
	GetQuotes(ctx context.Context, requests []QuoteRequest) ([]models.PriceQuote, error)

	// GetHistory retrieves the daily close series for one instrument,
	// ascending by date.
	GetHistory(ctx context.Context, ticker, exchange string, opts ...HistoryOption) (*models.HistoricalSeries, error)
}

// HistoryOption configures historical data requests
type HistoryOption func(*HistoryParams)

// HistoryParams holds historical query parameters
type HistoryParams struct {
	From  time.Time
	To    time.Time
	Limit int
}

// WithDateRange sets the date range for a history query
func WithDateRange(from, to time.Time) HistoryOption {
	return func(p *HistoryParams) {
		p.From = from
		p.To = to
	}
}

// WithLimit caps the number of observations returned, newest kept
func WithLimit(limit int) HistoryOption {
	return func(p *HistoryParams) {
		p.Limit = limit
	}
}

// FXClient provides access to the exchange-rate feed.
type FXClient interface {
	// GetRate retrieves the home-currency rate for one foreign currency.
	GetRate(ctx context.Context, currency models.Currency) (float64, error)

	// GetRates retrieves home-currency rates for all supported foreign
	// currencies in one call.
	GetRates(ctx context.Context) (models.ExchangeRates, error)
}
