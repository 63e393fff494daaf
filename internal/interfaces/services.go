// Package interfaces defines service contracts for wonfolio
package interfaces

import (
	"context"
	"io"
	"time"

	"github.com/jaehoon-lim/wonfolio/internal/models"
)

// PortfolioService manages holdings and their valuation.
type PortfolioService interface {
	// ListAssets returns all assets, open and closed.
	ListAssets(ctx context.Context) ([]*models.Asset, error)

	// GetAsset retrieves one asset by ID.
	GetAsset(ctx context.Context, id string) (*models.Asset, error)

	// AddAsset validates and stores a new holding, assigning an ID.
	AddAsset(ctx context.Context, asset *models.Asset) (*models.Asset, error)

	// UpdateAsset replaces the editable fields of an existing holding.
	UpdateAsset(ctx context.Context, asset *models.Asset) (*models.Asset, error)

	// DeleteAsset removes a holding. Its sell records move to the portfolio
	// sell history so realized statistics survive the deletion.
	DeleteAsset(ctx context.Context, id string) error

	// Buy merges an additional purchase into an existing position.
	Buy(ctx context.Context, id string, quantity, price, exchangeRate float64, date string) (*models.Asset, error)

	// Sell records a sale against a position. Over-sells are rejected.
	Sell(ctx context.Context, id string, rec models.SellRecord) (*models.Asset, error)

	// Summary computes per-asset metrics and portfolio totals, including
	// realized statistics when sell history exists.
	Summary(ctx context.Context) (*models.PortfolioSummary, error)

	// Snapshots returns up to days of retained daily snapshots, oldest first.
	// days <= 0 returns everything retained.
	Snapshots(ctx context.Context, days int) ([]models.DailySnapshot, error)

	// RecordSnapshot captures today's valuation into the snapshot history,
	// overwriting an existing entry for the same date.
	RecordSnapshot(ctx context.Context) error

	// RenderGrowthChart renders the portfolio value history as a PNG.
	RenderGrowthChart(ctx context.Context, days int) ([]byte, error)
}

// IndicatorService computes technical indicators for a set of instruments.
type IndicatorService interface {
	// GetIndicators returns the indicator set for each instrument, keyed by
	// models.Asset.Key(). Results are cached; an instrument whose history
	// could not be fetched is absent from the map rather than nil.
	GetIndicators(ctx context.Context, requests []QuoteRequest) (map[string]*models.IndicatorSet, error)

	// Invalidate drops the cache so the next call refetches history.
	Invalidate()
}

// AlertService evaluates filters and alert rules against the portfolio.
type AlertService interface {
	// FilterAssets returns metrics for the held assets matching the filter
	// keys under the two-level group algebra.
	FilterAssets(ctx context.Context, keys []models.FilterKey, cfg models.FilterConfig) ([]models.AssetMetrics, error)

	// Evaluate runs every enabled alert rule and returns the rules with at
	// least one matching asset.
	Evaluate(ctx context.Context) ([]models.AlertResult, error)

	// EvaluateForNotify behaves like Evaluate but also reports whether the
	// user has already been notified today, and records today as notified
	// when matches exist.
	EvaluateForNotify(ctx context.Context) ([]models.AlertResult, bool, error)
}

// WatchlistService manages the watchlist.
type WatchlistService interface {
	List(ctx context.Context) ([]models.WatchlistItem, error)

	// Add upserts an item; an existing (ticker, exchange) entry is updated
	// in place rather than duplicated.
	Add(ctx context.Context, item models.WatchlistItem) (*models.WatchlistItem, error)

	Remove(ctx context.Context, ticker, exchange string) error
}

// RefreshService refreshes exchange rates, quotes and indicator history.
type RefreshService interface {
	// RefreshAll runs a full refresh cycle: rates first, then quotes and
	// history concurrently. Partial failure degrades rather than aborts.
	RefreshAll(ctx context.Context, force bool) (*RefreshReport, error)
}

// RefreshReport summarizes one refresh cycle.
type RefreshReport struct {
	RatesUpdated   bool          `json:"rates_updated"`
	QuotesUpdated  int           `json:"quotes_updated"`
	QuotesFailed   int           `json:"quotes_failed"`
	HistoryUpdated int           `json:"history_updated"`
	HistoryFailed  int           `json:"history_failed"`
	Duration       time.Duration `json:"duration"`
	StartedAt      time.Time     `json:"started_at"`
}

// TransferService imports and exports portfolio data as CSV.
type TransferService interface {
	// ImportCSV reads asset rows, validating each independently. Valid rows
	// are imported, invalid rows are reported with their line number.
	ImportCSV(ctx context.Context, r io.Reader) (*ImportResult, error)

	// ExportCSV writes all assets as CSV rows.
	ExportCSV(ctx context.Context, w io.Writer) error
}

// ImportResult reports the outcome of a CSV import.
type ImportResult struct {
	Imported int        `json:"imported"`
	Skipped  []RowError `json:"skipped,omitempty"`
}

// RowError describes one rejected import row.
type RowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}
