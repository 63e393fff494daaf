// Package alert evaluates filters and alert rules against the portfolio
package alert

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jaehoon-lim/wonfolio/internal/common"
	"github.com/jaehoon-lim/wonfolio/internal/interfaces"
	"github.com/jaehoon-lim/wonfolio/internal/models"
	"github.com/jaehoon-lim/wonfolio/internal/services/valuation"
	"github.com/jaehoon-lim/wonfolio/internal/signals"
)

// Service implements AlertService.
type Service struct {
	store      interfaces.StateStore
	indicators interfaces.IndicatorService
	logger     *common.Logger
	now        func() time.Time
}

var _ interfaces.AlertService = (*Service)(nil)

// NewService creates a new alert service
func NewService(store interfaces.StateStore, indicators interfaces.IndicatorService, logger *common.Logger) *Service {
	return &Service{
		store:      store,
		indicators: indicators,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock overrides the service clock, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// enrichedAsset pairs one held asset with everything predicates read.
type enrichedAsset struct {
	asset    *models.Asset
	enriched signals.Enriched
	metrics  models.AssetMetrics
}

// enrich loads the portfolio and assembles predicate inputs for every held
// asset: computed metrics plus indicator sets where history was available.
func (s *Service) enrich(ctx context.Context) (*models.AppState, []enrichedAsset, error) {
	state, err := s.store.Load(ctx)
	if err != nil {
		return nil, nil, err
	}

	summary := valuation.Aggregate(state)

	active := state.ActiveAssets()
	requests := make([]interfaces.QuoteRequest, 0, len(active))
	for i := range active {
		requests = append(requests, interfaces.QuoteRequest{
			Ticker:   active[i].Ticker,
			Exchange: active[i].Exchange,
			Currency: active[i].Currency,
		})
	}

	sets, err := s.indicators.GetIndicators(ctx, requests)
	if err != nil {
		// Indicator outage degrades to feed-supplied fallbacks, it does not
		// abort the evaluation.
		s.logger.Warn().Err(err).Msg("Indicator fetch failed, evaluating without history")
		sets = map[string]*models.IndicatorSet{}
	}

	metricsByID := make(map[string]models.AssetMetrics, len(summary.Metrics))
	for _, m := range summary.Metrics {
		metricsByID[m.AssetID] = m
	}

	enriched := make([]enrichedAsset, 0, len(active))
	for i := range active {
		a := &active[i]
		m := metricsByID[a.ID]
		enriched = append(enriched, enrichedAsset{
			asset: a,
			enriched: signals.Enriched{
				Asset:           a,
				Indicators:      sets[a.Key()],
				ReturnPct:       m.ReturnPct,
				DropFromHighPct: m.DropFromHighPct,
			},
			metrics: m,
		})
	}

	return state, enriched, nil
}

// FilterAssets returns metrics for the held assets matching the filter keys
// under the two-level group algebra.
func (s *Service) FilterAssets(ctx context.Context, keys []models.FilterKey, cfg models.FilterConfig) ([]models.AssetMetrics, error) {
	_, enriched, err := s.enrich(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]models.AssetMetrics, 0, len(enriched))
	for _, e := range enriched {
		if signals.Match(keys, cfg, e.enriched) {
			matched = append(matched, e.metrics)
		}
	}
	return matched, nil
}

// Evaluate runs every enabled alert rule, returning only rules with at least
// one matching asset.
func (s *Service) Evaluate(ctx context.Context) ([]models.AlertResult, error) {
	state, enriched, err := s.enrich(ctx)
	if err != nil {
		return nil, err
	}
	return s.evaluateRules(state, enriched), nil
}

func (s *Service) evaluateRules(state *models.AppState, enriched []enrichedAsset) []models.AlertResult {
	rules := state.Settings.AlertRules
	if len(rules) == 0 {
		rules = models.DefaultAlertRules()
	}

	var results []models.AlertResult
	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}

		var matches []models.AlertMatch
		for _, e := range enriched {
			cfg := rule.Config
			// Per-asset drop threshold overrides the rule's, which in turn
			// overrides the portfolio default.
			if e.asset.SellAlertDropRate != nil {
				cfg.DropRate = *e.asset.SellAlertDropRate
			} else if cfg.DropRate == 0 {
				cfg.DropRate = state.Settings.DefaultSellAlertDropRate
			}
			if !signals.MatchAll(rule.Keys, cfg, e.enriched) {
				continue
			}
			matches = append(matches, models.AlertMatch{
				AssetID: e.asset.ID,
				Ticker:  e.asset.Ticker,
				Name:    e.asset.Name,
				Details: buildDetails(e),
			})
		}

		if len(matches) > 0 {
			results = append(results, models.AlertResult{Rule: rule, Matches: matches})
		}
	}

	if len(results) > 0 {
		s.logger.Info().Int("rules", len(results)).Msg("Alert rules matched")
	}
	return results
}

// EvaluateForNotify evaluates the rules and reports whether today's popup
// was already shown; when matches exist and it was not, today is recorded
// as notified.
func (s *Service) EvaluateForNotify(ctx context.Context) ([]models.AlertResult, bool, error) {
	state, enriched, err := s.enrich(ctx)
	if err != nil {
		return nil, false, err
	}

	results := s.evaluateRules(state, enriched)
	today := s.now().Format("2006-01-02")
	alreadyNotified := state.Settings.LastAlertDate == today

	if len(results) > 0 && !alreadyNotified {
		err := s.store.Update(ctx, func(state *models.AppState) error {
			state.Settings.LastAlertDate = today
			return nil
		})
		if err != nil {
			return nil, false, err
		}
	}

	return results, alreadyNotified, nil
}

// buildDetails renders a short human-readable summary of whichever figures
// are defined for the asset.
func buildDetails(e enrichedAsset) string {
	var parts []string

	if rsi := currentRSI(e); rsi != nil {
		parts = append(parts, fmt.Sprintf("RSI %.1f", *rsi))
	}
	if e.metrics.DayChangePct != 0 {
		parts = append(parts, fmt.Sprintf("day %+.2f%%", e.metrics.DayChangePct))
	}
	if e.metrics.ReturnPct != 0 {
		parts = append(parts, fmt.Sprintf("return %+.2f%%", e.metrics.ReturnPct))
	}
	if e.metrics.DropFromHighPct < 0 {
		parts = append(parts, fmt.Sprintf("from high %.2f%%", e.metrics.DropFromHighPct))
	}

	return strings.Join(parts, ", ")
}

func currentRSI(e enrichedAsset) *float64 {
	if e.enriched.Indicators != nil && e.enriched.Indicators.RSI != nil {
		return e.enriched.Indicators.RSI
	}
	return e.asset.RSI
}
