// Package fx provides currency conversion against the home currency.
package fx

import "github.com/jaehoon-lim/wonfolio/internal/models"

// ToHome converts an amount from the given currency to the home currency.
// The home currency converts as identity. A missing or zero rate yields 0;
// callers treat 0 as "unconvertible", not as a real valuation.
func ToHome(amount float64, currency models.Currency, rates models.ExchangeRates) float64 {
	if currency == models.CurrencyKRW || currency == "" {
		return amount
	}
	rate, ok := rates[currency]
	if !ok || rate == 0 {
		return 0
	}
	return amount * rate
}

// Rate returns the home-currency rate for a currency, 1 for the home
// currency itself, and 0 when unknown.
func Rate(currency models.Currency, rates models.ExchangeRates) float64 {
	if currency == models.CurrencyKRW || currency == "" {
		return 1
	}
	return rates[currency]
}
