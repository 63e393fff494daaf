package app

import (
	"context"
	"time"

	"github.com/jaehoon-lim/wonfolio/internal/common"
	"github.com/jaehoon-lim/wonfolio/internal/interfaces"
)

// runRefreshScheduler refreshes market data on a fixed interval. An initial
// cycle runs immediately so a fresh process does not sit on stale state
// until the first tick.
func runRefreshScheduler(ctx context.Context, refreshService interfaces.RefreshService, logger *common.Logger, interval time.Duration) {
	runRefresh(ctx, refreshService, logger)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Refresh scheduler: stopped")
			return
		case <-ticker.C:
			runRefresh(ctx, refreshService, logger)
		}
	}
}

func runRefresh(ctx context.Context, refreshService interfaces.RefreshService, logger *common.Logger) {
	report, err := refreshService.RefreshAll(ctx, false)
	if err != nil {
		logger.Warn().Err(err).Msg("Refresh scheduler: cycle failed")
		return
	}

	logger.Info().
		Int("quotes_updated", report.QuotesUpdated).
		Int("quotes_failed", report.QuotesFailed).
		Dur("elapsed", report.Duration).
		Msg("Refresh scheduler: cycle complete")
}
