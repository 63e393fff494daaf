// Package app wires configuration, storage, clients and services together.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jaehoon-lim/wonfolio/internal/clients/fxrates"
	"github.com/jaehoon-lim/wonfolio/internal/clients/quotes"
	"github.com/jaehoon-lim/wonfolio/internal/common"
	"github.com/jaehoon-lim/wonfolio/internal/interfaces"
	"github.com/jaehoon-lim/wonfolio/internal/services/alert"
	"github.com/jaehoon-lim/wonfolio/internal/services/indicator"
	"github.com/jaehoon-lim/wonfolio/internal/services/refresh"
	"github.com/jaehoon-lim/wonfolio/internal/services/transfer"
	"github.com/jaehoon-lim/wonfolio/internal/services/valuation"
	"github.com/jaehoon-lim/wonfolio/internal/services/watchlist"
	"github.com/jaehoon-lim/wonfolio/internal/storage"
)

// App holds all initialized services and clients. It is the shared core
// behind cmd/wonfolio-server.
type App struct {
	Config *common.Config
	Logger *common.Logger

	Blobs interfaces.StateStore

	QuotesClient interfaces.QuoteClient
	FXClient     interfaces.FXClient

	PortfolioService interfaces.PortfolioService
	IndicatorService interfaces.IndicatorService
	AlertService     interfaces.AlertService
	WatchlistService interfaces.WatchlistService
	RefreshService   interfaces.RefreshService
	TransferService  interfaces.TransferService

	StartupTime time.Time

	schedulerCancel context.CancelFunc
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes storage, clients and services from configuration.
// configPath may be empty, in which case the default resolution is used.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	binDir := getBinaryDir()

	// Config resolution: explicit path, WONFOLIO_CONFIG, binary dir, then
	// the development fallback.
	if configPath == "" {
		configPath = os.Getenv("WONFOLIO_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "wonfolio.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/wonfolio.toml"
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve a relative storage path against the binary directory.
	if config.Storage.BasePath != "" && !filepath.IsAbs(config.Storage.BasePath) {
		config.Storage.BasePath = filepath.Join(binDir, config.Storage.BasePath)
	}

	logger := common.NewLoggerFromConfig(config.Logging)

	blobs, err := storage.NewBlobStore(logger, &config.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	store := storage.NewStateStore(logger, blobs, config.Storage.StateKey)

	quotesClient := quotes.NewClient(config.Clients.Quotes.APIKey,
		quotes.WithBaseURL(config.Clients.Quotes.BaseURL),
		quotes.WithLogger(logger),
		quotes.WithRateLimit(config.Clients.Quotes.RateLimit),
		quotes.WithTimeout(config.Clients.Quotes.GetTimeout()),
	)

	fxClient := fxrates.NewClient(
		fxrates.WithBaseURL(config.Clients.FXRates.BaseURL),
		fxrates.WithLogger(logger),
		fxrates.WithRateLimit(config.Clients.FXRates.RateLimit),
		fxrates.WithTimeout(config.Clients.FXRates.GetTimeout()),
	)

	portfolioService := valuation.NewService(store, logger)
	indicatorService := indicator.NewService(quotesClient, logger).
		WithBatching(config.Refresh.HistoryBatch, config.Refresh.GetBatchDelay())
	alertService := alert.NewService(store, indicatorService, logger)
	watchlistService := watchlist.NewService(store, logger)
	refreshService := refresh.NewService(store, quotesClient, fxClient, indicatorService, portfolioService, logger)
	transferService := transfer.NewService(store, logger)

	a := &App{
		Config:           config,
		Logger:           logger,
		Blobs:            store,
		QuotesClient:     quotesClient,
		FXClient:         fxClient,
		PortfolioService: portfolioService,
		IndicatorService: indicatorService,
		AlertService:     alertService,
		WatchlistService: watchlistService,
		RefreshService:   refreshService,
		TransferService:  transferService,
		StartupTime:      startupStart,
	}

	logger.Info().Dur("startup", time.Since(startupStart)).Msg("App initialized")

	return a, nil
}

// StartRefreshScheduler launches the background refresh goroutine.
func (a *App) StartRefreshScheduler() {
	ctx, cancel := context.WithCancel(context.Background())
	a.schedulerCancel = cancel
	go runRefreshScheduler(ctx, a.RefreshService, a.Logger, a.Config.Refresh.GetInterval())
}

// Close releases all resources. Shutdown order: cancel scheduler, close
// storage.
func (a *App) Close() {
	if a.schedulerCancel != nil {
		a.schedulerCancel()
		a.schedulerCancel = nil
	}
	if a.Blobs != nil {
		if err := a.Blobs.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Closing storage failed")
		}
		a.Blobs = nil
	}
}
