// Package valuation computes asset and portfolio metrics
package valuation

import (
	"github.com/jaehoon-lim/wonfolio/internal/fx"
	"github.com/jaehoon-lim/wonfolio/internal/models"
)

// unitErrorRatio is the threshold of the highest-price unit-correction
// heuristic: a recorded high more than 20x the live price on a foreign asset
// is assumed to be a home-currency value stored in a native-currency field.
// This is a compatibility shim for bad historical data, not an invariant;
// it can go once old documents are known clean.
const unitErrorRatio = 20

// UpdateHighestPrice folds a newly observed native price into the asset's
// highest-price watermark, applying the unit-error correction first.
func UpdateHighestPrice(a *models.Asset, observed float64) {
	if observed <= 0 {
		return
	}
	if a.IsForeign() && a.HighestPrice > observed*unitErrorRatio {
		a.HighestPrice = 0
	}
	if observed > a.HighestPrice {
		a.HighestPrice = observed
	}
}

// purchaseValueResolver attempts one strategy for deriving the home-currency
// cost basis of a position. A nil result means the strategy does not apply
// and the next one in the chain is tried.
type purchaseValueResolver func(a *models.Asset, rates models.ExchangeRates) *float64

// purchaseValueChain is the ordered cost-basis resolution: the first
// non-nil result wins.
var purchaseValueChain = []purchaseValueResolver{
	resolveHomeNative,
	resolveRecordedRate,
	resolveImpliedRate,
	resolveCurrentRate,
}

// resolveHomeNative: home-currency assets need no conversion.
func resolveHomeNative(a *models.Asset, _ models.ExchangeRates) *float64 {
	if a.IsForeign() {
		return nil
	}
	v := a.PurchasePrice * a.Quantity
	return &v
}

// resolveRecordedRate uses the exchange rate captured at purchase time.
func resolveRecordedRate(a *models.Asset, _ models.ExchangeRates) *float64 {
	if a.PurchaseExchangeRate <= 0 {
		return nil
	}
	v := a.PurchasePrice * a.PurchaseExchangeRate * a.Quantity
	return &v
}

// resolveImpliedRate derives a rate from the feed's home/native price pair.
func resolveImpliedRate(a *models.Asset, _ models.ExchangeRates) *float64 {
	if a.HomePrice <= 0 || a.CurrentPrice <= 0 {
		return nil
	}
	v := a.PurchasePrice * (a.HomePrice / a.CurrentPrice) * a.Quantity
	return &v
}

// resolveCurrentRate converts at today's rate, the weakest approximation.
func resolveCurrentRate(a *models.Asset, rates models.ExchangeRates) *float64 {
	v := fx.ToHome(a.PurchasePrice, a.Currency, rates) * a.Quantity
	return &v
}

// PurchaseValue resolves the home-currency cost basis of a position.
func PurchaseValue(a *models.Asset, rates models.ExchangeRates) float64 {
	for _, resolve := range purchaseValueChain {
		if v := resolve(a, rates); v != nil {
			return *v
		}
	}
	return 0
}

// ComputeMetrics derives the full metric set for one asset. totalValue is
// the portfolio's total home-currency value for allocation; pass 0 on the
// first aggregation pass. Every output is defined for every input: missing
// data yields 0, never NaN or a panic.
func ComputeMetrics(a *models.Asset, rates models.ExchangeRates, totalValue float64) models.AssetMetrics {
	m := models.AssetMetrics{
		AssetID: a.ID,
		Ticker:  a.Ticker,
		Name:    a.Name,
	}

	price := a.CurrentPrice
	if price <= 0 {
		// Without a live price the position is valued at cost.
		price = a.PurchasePrice
	}

	m.CurrentValueNative = price * a.Quantity
	m.UnitPrice = fx.ToHome(price, a.Currency, rates)
	m.CurrentValue = m.UnitPrice * a.Quantity

	m.PurchaseValue = PurchaseValue(a, rates)
	m.ProfitLoss = m.CurrentValue - m.PurchaseValue
	if m.PurchaseValue != 0 {
		m.ReturnPct = m.ProfitLoss / m.PurchaseValue * 100
	}

	m.DayChangePct = dayChangePct(a)
	m.DropFromHighPct = dropFromHighPct(a)

	if totalValue > 0 {
		m.AllocationPct = m.CurrentValue / totalValue * 100
	}

	return m
}

// dayChangePct prefers the feed's change rate, even when it is exactly zero,
// over the locally derived previous-close formula. The two are not
// guaranteed to agree under all rounding paths.
func dayChangePct(a *models.Asset) float64 {
	if a.ChangeRate != nil {
		return *a.ChangeRate
	}
	if a.PreviousClose <= 0 || a.CurrentPrice <= 0 {
		return 0
	}
	return (a.CurrentPrice - a.PreviousClose) / a.PreviousClose * 100
}

// dropFromHighPct is the percentage decline from the highest observed native
// price, 0 when no high has been recorded.
func dropFromHighPct(a *models.Asset) float64 {
	if a.HighestPrice <= 0 || a.CurrentPrice <= 0 {
		return 0
	}
	return (a.CurrentPrice - a.HighestPrice) / a.HighestPrice * 100
}

// Aggregate computes per-asset metrics and portfolio totals over the held
// assets. Allocation needs the total, so metrics are computed in two passes:
// values first, allocation re-derived once totals are known.
func Aggregate(state *models.AppState) *models.PortfolioSummary {
	summary := &models.PortfolioSummary{}

	active := state.ActiveAssets()
	summary.Metrics = make([]models.AssetMetrics, 0, len(active))

	for i := range active {
		m := ComputeMetrics(&active[i], state.Rates, 0)
		summary.TotalValue += m.CurrentValue
		summary.TotalPurchaseValue += m.PurchaseValue
		summary.Metrics = append(summary.Metrics, m)
	}

	for i := range summary.Metrics {
		if summary.TotalValue > 0 {
			summary.Metrics[i].AllocationPct = summary.Metrics[i].CurrentValue / summary.TotalValue * 100
		}
	}

	summary.TotalGainLoss = summary.TotalValue - summary.TotalPurchaseValue
	if summary.TotalPurchaseValue != 0 {
		summary.TotalReturnPct = summary.TotalGainLoss / summary.TotalPurchaseValue * 100
	}
	summary.AssetCount = len(active)

	if realized := ComputeRealized(state); realized.SellCount > 0 {
		summary.Realized = realized
	}

	return summary
}

// ComputeRealized folds the sell history into realized profit/loss figures.
// Cost basis resolution per record: the basis captured at sale time wins;
// else the still-held asset's current basis; else the sale is treated as
// break-even so a deleted asset cannot fabricate phantom profit.
func ComputeRealized(state *models.AppState) *models.RealizedStats {
	stats := &models.RealizedStats{}

	for _, rec := range state.AllSellRecords() {
		saleRate := rec.ExchangeRate
		if saleRate <= 0 {
			saleRate = fx.Rate(rec.Currency, state.Rates)
		}
		saleValue := rec.Price * rec.Quantity * saleRate

		var purchaseValue float64
		if rec.OriginalPurchasePrice > 0 {
			rate := rec.OriginalPurchaseExchangeRate
			if rate <= 0 {
				rate = 1
			}
			purchaseValue = rec.OriginalPurchasePrice * rate * rec.Quantity
		} else if basis := heldBasis(state, rec); basis != nil {
			purchaseValue = *basis * rec.Quantity
		} else {
			purchaseValue = saleValue // break-even
		}

		stats.TotalSaleValue += saleValue
		stats.TotalPurchaseValue += purchaseValue
		stats.SellCount++
	}

	stats.RealizedGainLoss = stats.TotalSaleValue - stats.TotalPurchaseValue
	if stats.TotalPurchaseValue != 0 {
		stats.RealizedReturnPct = stats.RealizedGainLoss / stats.TotalPurchaseValue * 100
	}

	return stats
}

// heldBasis returns the per-unit home-currency cost basis of the still-held
// asset a sell record refers to, or nil when the position is gone.
func heldBasis(state *models.AppState, rec models.SellRecord) *float64 {
	asset, _ := state.FindAsset(rec.AssetID)
	if asset == nil || asset.PurchasePrice <= 0 {
		return nil
	}
	rate := asset.PurchaseExchangeRate
	if rate <= 0 {
		if asset.IsForeign() {
			rate = fx.Rate(asset.Currency, state.Rates)
		} else {
			rate = 1
		}
	}
	if rate <= 0 {
		return nil
	}
	basis := asset.PurchasePrice * rate
	return &basis
}
