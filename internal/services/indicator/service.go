// Package indicator computes and caches technical indicators
package indicator

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jaehoon-lim/wonfolio/internal/common"
	"github.com/jaehoon-lim/wonfolio/internal/interfaces"
	"github.com/jaehoon-lim/wonfolio/internal/models"
	"github.com/jaehoon-lim/wonfolio/internal/signals"
)

const (
	// CacheTTL bounds load on the upstream history feed: identical requests
	// inside the window return the cached map without refetching.
	CacheTTL = 10 * time.Minute

	DefaultBatchSize  = 10
	DefaultBatchDelay = 500 * time.Millisecond
)

// cacheEntry is one whole-value cache generation. The map is replaced as a
// unit, never mutated in place.
type cacheEntry struct {
	key     string
	results map[string]*models.IndicatorSet
	at      time.Time
}

// Service implements IndicatorService with an in-memory TTL cache keyed by
// the sorted set of requested instruments.
type Service struct {
	client     interfaces.QuoteClient
	logger     *common.Logger
	now        func() time.Time
	batchSize  int
	batchDelay time.Duration

	mu    sync.Mutex
	cache *cacheEntry
}

var _ interfaces.IndicatorService = (*Service)(nil)

// NewService creates a new indicator service
func NewService(client interfaces.QuoteClient, logger *common.Logger) *Service {
	return &Service{
		client:     client,
		logger:     logger,
		now:        time.Now,
		batchSize:  DefaultBatchSize,
		batchDelay: DefaultBatchDelay,
	}
}

// WithClock overrides the service clock, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithBatching overrides the history fetch batch size and inter-batch delay.
func (s *Service) WithBatching(size int, delay time.Duration) *Service {
	if size > 0 {
		s.batchSize = size
	}
	s.batchDelay = delay
	return s
}

// cacheKey is the sorted set of instrument keys, so request order does not
// fragment the cache.
func cacheKey(requests []interfaces.QuoteRequest) string {
	keys := make([]string, 0, len(requests))
	for _, r := range requests {
		keys = append(keys, strings.ToUpper(r.Ticker)+"."+models.NormalizeExchange(r.Exchange))
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}

// GetIndicators returns the indicator set for each instrument, keyed by
// "TICKER.EXCHANGE". Instruments whose history could not be fetched are
// absent from the map. Identical requests within the TTL hit the cache.
func (s *Service) GetIndicators(ctx context.Context, requests []interfaces.QuoteRequest) (map[string]*models.IndicatorSet, error) {
	if len(requests) == 0 {
		return map[string]*models.IndicatorSet{}, nil
	}

	key := cacheKey(requests)

	s.mu.Lock()
	if s.cache != nil && s.cache.key == key && s.now().Sub(s.cache.at) < CacheTTL {
		cached := s.cache.results
		s.mu.Unlock()
		s.logger.Debug().Int("instruments", len(cached)).Msg("Indicator cache hit")
		return cached, nil
	}
	s.mu.Unlock()

	results, err := s.computeAll(ctx, requests)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache = &cacheEntry{key: key, results: results, at: s.now()}
	s.mu.Unlock()

	return results, nil
}

// Invalidate drops the cache so the next call refetches history.
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.cache = nil
	s.mu.Unlock()
}

// computeAll fetches history in batches and computes indicator sets. A
// failed fetch is retried once; instruments still failing after the retry
// are dropped from the result, never returned stale.
func (s *Service) computeAll(ctx context.Context, requests []interfaces.QuoteRequest) (map[string]*models.IndicatorSet, error) {
	results := make(map[string]*models.IndicatorSet, len(requests))
	var failed []interfaces.QuoteRequest

	for start := 0; start < len(requests); start += s.batchSize {
		end := start + s.batchSize
		if end > len(requests) {
			end = len(requests)
		}

		for _, req := range requests[start:end] {
			if err := s.fetchOne(ctx, req, results); err != nil {
				failed = append(failed, req)
			}
		}

		if end < len(requests) && s.batchDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.batchDelay):
			}
		}
	}

	for _, req := range failed {
		if err := s.fetchOne(ctx, req, results); err != nil {
			s.logger.Warn().
				Str("ticker", req.Ticker).
				Err(err).
				Msg("History fetch failed after retry")
		}
	}

	s.logger.Debug().
		Int("requested", len(requests)).
		Int("computed", len(results)).
		Msg("Indicators computed")
	return results, nil
}

func (s *Service) fetchOne(ctx context.Context, req interfaces.QuoteRequest, results map[string]*models.IndicatorSet) error {
	series, err := s.client.GetHistory(ctx, req.Ticker, req.Exchange)
	if err != nil {
		return err
	}

	key := strings.ToUpper(req.Ticker) + "." + models.NormalizeExchange(req.Exchange)
	results[key] = signals.Compute(*series, s.now())
	return nil
}
