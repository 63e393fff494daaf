package signals

import (
	"github.com/jaehoon-lim/wonfolio/internal/models"
)

// Default moving-average windows used when a filter config leaves the
// periods unset.
const (
	defaultShortPeriod = 20
	defaultLongPeriod  = 60
)

// Enriched bundles one asset with everything the filter predicates may need:
// its computed indicator set (nil when no history was available) and the
// valuation figures the portfolio predicates read.
type Enriched struct {
	Asset      *models.Asset
	Indicators *models.IndicatorSet

	ReturnPct       float64
	DropFromHighPct float64
}

// normalize fills in default periods for configs that omit them.
func normalize(cfg models.FilterConfig) models.FilterConfig {
	if cfg.ShortPeriod <= 0 {
		cfg.ShortPeriod = defaultShortPeriod
	}
	if cfg.LongPeriod <= 0 {
		cfg.LongPeriod = defaultLongPeriod
	}
	return cfg
}

// smaFor resolves today's moving average for period, falling back to the
// feed-supplied value on the asset when the indicator engine produced
// nothing. The fallback only exists for the conventional 20 and 60 windows.
func smaFor(e Enriched, period int) *float64 {
	if v := e.Indicators.SMAAt(period); v != nil {
		return v
	}
	if e.Asset == nil {
		return nil
	}
	switch period {
	case 20:
		return e.Asset.MA20
	case 60:
		return e.Asset.MA60
	}
	return nil
}

// rsiFor resolves today's RSI, preferring the computed value over the
// feed-supplied one.
func rsiFor(e Enriched) *float64 {
	if e.Indicators != nil && e.Indicators.RSI != nil {
		return e.Indicators.RSI
	}
	if e.Asset == nil {
		return nil
	}
	return e.Asset.RSI
}

// Evaluate applies a single predicate to an enriched asset. Unknown keys and
// missing inputs evaluate to false; predicates are total and never panic.
func Evaluate(key models.FilterKey, cfg models.FilterConfig, e Enriched) bool {
	cfg = normalize(cfg)

	switch key {
	case models.FilterPriceAboveMA:
		ma := smaFor(e, cfg.ShortPeriod)
		if ma == nil || e.Asset == nil || e.Asset.CurrentPrice <= 0 {
			return false
		}
		return e.Asset.CurrentPrice > *ma

	case models.FilterPriceBelowMA:
		ma := smaFor(e, cfg.ShortPeriod)
		if ma == nil || e.Asset == nil || e.Asset.CurrentPrice <= 0 {
			return false
		}
		return e.Asset.CurrentPrice < *ma

	case models.FilterMABullish:
		short, long := smaFor(e, cfg.ShortPeriod), smaFor(e, cfg.LongPeriod)
		if short == nil || long == nil {
			return false
		}
		return *short > *long

	case models.FilterMABearish:
		short, long := smaFor(e, cfg.ShortPeriod), smaFor(e, cfg.LongPeriod)
		if short == nil || long == nil {
			return false
		}
		return *short < *long

	case models.FilterGoldenCross:
		return GoldenCross(e.Indicators, cfg.ShortPeriod, cfg.LongPeriod)

	case models.FilterDeadCross:
		return DeadCross(e.Indicators, cfg.ShortPeriod, cfg.LongPeriod)

	case models.FilterRSIOverbought:
		rsi := rsiFor(e)
		return rsi != nil && *rsi >= 70

	case models.FilterRSIOversold:
		rsi := rsiFor(e)
		return rsi != nil && *rsi <= 30

	case models.FilterRSIBounce:
		return RSIBounce(e.Indicators)

	case models.FilterRSIOverheatEntry:
		return RSIOverheatEntry(e.Indicators)

	case models.FilterSignalStrongBuy:
		return e.Asset != nil && e.Asset.Signal == "strong_buy"

	case models.FilterSignalBuy:
		return e.Asset != nil && e.Asset.Signal == "buy"

	case models.FilterSignalSell:
		return e.Asset != nil && e.Asset.Signal == "sell"

	case models.FilterSignalStrongSell:
		return e.Asset != nil && e.Asset.Signal == "strong_sell"

	case models.FilterProfitable:
		return e.ReturnPct > 0

	case models.FilterLosing:
		return e.ReturnPct < 0

	case models.FilterDropFromHigh:
		// Both values are negative percentages, so "dropped at least N%"
		// means less than or equal to the threshold.
		if e.DropFromHighPct >= 0 {
			return false
		}
		return e.DropFromHighPct <= cfg.DropRate
	}

	return false
}

// Match evaluates a set of filter keys against an enriched asset using the
// two-level algebra: keys sharing a group combine with OR, groups combine
// with AND. An empty key set matches everything.
func Match(keys []models.FilterKey, cfg models.FilterConfig, e Enriched) bool {
	if len(keys) == 0 {
		return true
	}

	groups := make(map[models.FilterGroup][]models.FilterKey)
	for _, key := range keys {
		group, ok := models.FilterKeyGroups[key]
		if !ok {
			// Unknown keys form a group that can never match.
			group = models.FilterGroup("unknown")
		}
		groups[group] = append(groups[group], key)
	}

	for _, groupKeys := range groups {
		any := false
		for _, key := range groupKeys {
			if Evaluate(key, cfg, e) {
				any = true
				break
			}
		}
		if !any {
			return false
		}
	}
	return true
}

// MatchAll evaluates a set of keys as a flat conjunction, ignoring groups.
// Alert rules use this stricter combination.
func MatchAll(keys []models.FilterKey, cfg models.FilterConfig, e Enriched) bool {
	for _, key := range keys {
		if !Evaluate(key, cfg, e) {
			return false
		}
	}
	return true
}
