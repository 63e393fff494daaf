// Package refresh runs the market data refresh cycle
package refresh

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jaehoon-lim/wonfolio/internal/common"
	"github.com/jaehoon-lim/wonfolio/internal/fx"
	"github.com/jaehoon-lim/wonfolio/internal/interfaces"
	"github.com/jaehoon-lim/wonfolio/internal/models"
	"github.com/jaehoon-lim/wonfolio/internal/services/valuation"
)

// ratesMaxAge is how long a rate table stays fresh; inside the window a
// non-forced refresh skips the FX call.
const ratesMaxAge = time.Hour

// Service implements RefreshService. One cycle refreshes exchange rates
// first, then live quotes and indicator history concurrently; the two price
// tracks are independent of each other but both depend on fresh rates.
type Service struct {
	store      interfaces.StateStore
	quotes     interfaces.QuoteClient
	fxClient   interfaces.FXClient
	indicators interfaces.IndicatorService
	portfolio  interfaces.PortfolioService
	logger     *common.Logger
	now        func() time.Time

	mu sync.Mutex // one refresh cycle at a time
}

var _ interfaces.RefreshService = (*Service)(nil)

// NewService creates a new refresh service
func NewService(
	store interfaces.StateStore,
	quotes interfaces.QuoteClient,
	fxClient interfaces.FXClient,
	indicators interfaces.IndicatorService,
	portfolio interfaces.PortfolioService,
	logger *common.Logger,
) *Service {
	return &Service{
		store:      store,
		quotes:     quotes,
		fxClient:   fxClient,
		indicators: indicators,
		portfolio:  portfolio,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock overrides the service clock, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// RefreshAll runs one full refresh cycle. Partial failure degrades: a feed
// outage flags the affected items and the cycle carries on, so every asset
// ends up either fresh or explicitly marked failed.
func (s *Service) RefreshAll(ctx context.Context, force bool) (*interfaces.RefreshReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	started := s.now()
	report := &interfaces.RefreshReport{StartedAt: started}

	// The network window works off a snapshot; mutations are applied to the
	// live document afterwards so writes landing mid-cycle survive.
	snapshot, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	// Rates first: every home-currency conversion this cycle depends on
	// them. A failed fetch falls back to the last-known table.
	rates, ratesFetched := s.fetchRates(ctx, snapshot, force)

	requests := quoteRequests(snapshot)

	var (
		wg        sync.WaitGroup
		quotes    []models.PriceQuote
		quotesErr error
	)
	wg.Add(2)

	go func() {
		defer wg.Done()
		if len(requests) > 0 {
			quotes, quotesErr = s.quotes.GetQuotes(ctx, requests)
		}
	}()

	go func() {
		defer wg.Done()
		s.refreshHistory(ctx, requests, force, report)
	}()

	wg.Wait()

	err = s.store.Update(ctx, func(state *models.AppState) error {
		if ratesFetched {
			state.Rates = fx.MergeRates(state.Rates, rates)
			state.RatesTime = s.now()
			report.RatesUpdated = true
		}
		s.applyQuotes(state, requests, quotes, quotesErr, report)
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Today's snapshot reflects the freshly fetched data.
	if err := s.portfolio.RecordSnapshot(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Snapshot after refresh failed")
	}

	report.Duration = s.now().Sub(started)
	s.logger.Info().
		Bool("rates_updated", report.RatesUpdated).
		Int("quotes_updated", report.QuotesUpdated).
		Int("quotes_failed", report.QuotesFailed).
		Int("history_updated", report.HistoryUpdated).
		Int("history_failed", report.HistoryFailed).
		Dur("duration", report.Duration).
		Msg("Refresh cycle complete")
	return report, nil
}

// fetchRates fetches a fresh rate table when the stored one is stale or the
// cycle is forced. The sanity floors and the merge over the previous values
// happen later, against the live document.
func (s *Service) fetchRates(ctx context.Context, state *models.AppState, force bool) (models.ExchangeRates, bool) {
	if !force && s.now().Sub(state.RatesTime) < ratesMaxAge && len(state.Rates) > 0 {
		return nil, false
	}

	fetched, err := s.fxClient.GetRates(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("FX fetch failed, keeping last-known rates")
		return nil, false
	}
	return fetched, true
}

// quoteRequests collects the instruments to quote: held assets plus
// monitored watchlist items.
func quoteRequests(state *models.AppState) []interfaces.QuoteRequest {
	requests := make([]interfaces.QuoteRequest, 0, len(state.Assets)+len(state.Watchlist.Items))
	seen := make(map[string]bool)

	for i := range state.Assets {
		a := &state.Assets[i]
		if a.Closed() || a.Ticker == "" {
			continue
		}
		if seen[a.Key()] {
			continue
		}
		seen[a.Key()] = true
		requests = append(requests, interfaces.QuoteRequest{
			Ticker:   a.Ticker,
			Exchange: a.Exchange,
			Currency: a.Currency,
		})
	}

	for i := range state.Watchlist.Items {
		w := &state.Watchlist.Items[i]
		if !w.Monitoring || seen[w.Key()] {
			continue
		}
		seen[w.Key()] = true
		requests = append(requests, interfaces.QuoteRequest{
			Ticker:   w.Ticker,
			Exchange: w.Exchange,
			Currency: w.Currency,
		})
	}

	return requests
}

// applyQuotes folds the fetched quotes into assets and watchlist items.
// Runs inside the store's update section, over the live document.
func (s *Service) applyQuotes(state *models.AppState, requests []interfaces.QuoteRequest, quotes []models.PriceQuote, fetchErr error, report *interfaces.RefreshReport) {
	if len(requests) == 0 {
		return
	}

	if fetchErr != nil {
		// A whole-batch failure flags every requested asset.
		s.logger.Warn().Err(fetchErr).Msg("Quote fetch failed")
		for i := range state.Assets {
			if !state.Assets[i].Closed() && state.Assets[i].Ticker != "" {
				state.Assets[i].PriceFailed = true
				report.QuotesFailed++
			}
		}
		return
	}

	byKey := make(map[string]models.PriceQuote, len(quotes))
	for _, q := range quotes {
		byKey[strings.ToUpper(q.Ticker)+"."+models.NormalizeExchange(q.Exchange)] = q
	}

	for i := range state.Assets {
		a := &state.Assets[i]
		if a.Closed() || a.Ticker == "" {
			continue
		}
		q, ok := byKey[a.Key()]
		if !ok || q.Mocked {
			a.PriceFailed = true
			report.QuotesFailed++
			continue
		}
		applyQuote(a, q)
		report.QuotesUpdated++
	}

	for i := range state.Watchlist.Items {
		w := &state.Watchlist.Items[i]
		if !w.Monitoring {
			continue
		}
		q, ok := byKey[w.Key()]
		if !ok || q.Mocked {
			continue
		}
		w.CurrentPrice = q.Price
		w.PreviousClose = q.PreviousClose
		w.ChangeRate = q.ChangeRate
		if q.Currency != "" {
			w.Currency = q.Currency
		}
		w.UpdatedAt = q.Timestamp
	}
}

// applyQuote folds one resolved quote into an asset.
func applyQuote(a *models.Asset, q models.PriceQuote) {
	a.CurrentPrice = q.Price
	a.HomePrice = q.HomePrice
	a.PreviousClose = q.PreviousClose
	a.ChangeRate = q.ChangeRate
	a.Signal = q.Signal
	a.RSI = q.RSI
	a.RSIStatus = q.RSIStatus
	a.PriceFailed = false
	a.UpdatedAt = q.Timestamp

	// Crypto pairs are quoted in whatever currency the venue uses; the
	// feed's currency wins over the stored one.
	if a.Category == models.CategoryCrypto && q.Currency != "" && q.Currency != a.Currency {
		a.Currency = q.Currency
	}

	valuation.UpdateHighestPrice(a, q.High52Week)
	valuation.UpdateHighestPrice(a, q.Price)
}

// refreshHistory re-warms the indicator cache for the refreshed instruments.
func (s *Service) refreshHistory(ctx context.Context, requests []interfaces.QuoteRequest, force bool, report *interfaces.RefreshReport) {
	if len(requests) == 0 {
		return
	}

	if force {
		s.indicators.Invalidate()
	}

	sets, err := s.indicators.GetIndicators(ctx, requests)
	if err != nil {
		s.logger.Warn().Err(err).Msg("History refresh failed")
		report.HistoryFailed = len(requests)
		return
	}

	report.HistoryUpdated = len(sets)
	report.HistoryFailed = len(requests) - len(sets)
}
