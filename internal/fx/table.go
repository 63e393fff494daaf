package fx

import "github.com/jaehoon-lim/wonfolio/internal/models"

// Sanity floors for live-tracked rates. A feed occasionally returns an
// inverted or zero rate; anything below the floor is rejected and the last
// good value kept.
var rateFloors = map[models.Currency]float64{
	models.CurrencyUSD: 100,
	models.CurrencyJPY: 1,
}

// AcceptRate reports whether a freshly fetched rate passes the sanity floor
// for its currency. Currencies without a floor accept any positive rate.
func AcceptRate(currency models.Currency, rate float64) bool {
	if rate <= 0 {
		return false
	}
	if floor, ok := rateFloors[currency]; ok {
		return rate >= floor
	}
	return true
}

// MergeRates folds freshly fetched rates into the existing table, keeping the
// previous value for any rate that fails its sanity floor. Returns the merged
// table; the inputs are not modified.
func MergeRates(existing models.ExchangeRates, fetched models.ExchangeRates) models.ExchangeRates {
	merged := make(models.ExchangeRates, len(existing)+len(fetched))
	for c, r := range existing {
		merged[c] = r
	}
	for c, r := range fetched {
		if AcceptRate(c, r) {
			merged[c] = r
		}
	}
	return merged
}
