// Package models defines data structures for wonfolio
package models

import (
	"fmt"
	"strings"
	"time"
)

// HomeCurrency is the single reporting currency all valuations are expressed in.
const HomeCurrency = "KRW"

// Currency is an ISO 4217 currency code tracked by the application.
type Currency string

const (
	CurrencyKRW Currency = "KRW"
	CurrencyUSD Currency = "USD"
	CurrencyJPY Currency = "JPY"
)

// ValidCurrency reports whether c is a member of the supported currency set.
func ValidCurrency(c Currency) bool {
	switch c {
	case CurrencyKRW, CurrencyUSD, CurrencyJPY:
		return true
	}
	return false
}

// Category classifies an instrument.
type Category string

const (
	CategoryDomesticStock Category = "domestic_stock"
	CategoryForeignStock  Category = "foreign_stock"
	CategoryBond          Category = "bond"
	CategoryPhysical      Category = "physical"
	CategoryCrypto        Category = "crypto"
	CategoryCash          Category = "cash"
)

// ValidCategory reports whether c is a member of the category enumeration.
func ValidCategory(c Category) bool {
	switch c {
	case CategoryDomesticStock, CategoryForeignStock, CategoryBond,
		CategoryPhysical, CategoryCrypto, CategoryCash:
		return true
	}
	return false
}

// NormalizeExchange maps feed and user-supplied market identifiers to
// canonical exchange codes. Returns "KRX" for empty/unknown domestic markets.
func NormalizeExchange(exchange string) string {
	switch strings.ToUpper(strings.TrimSpace(exchange)) {
	case "KRX", "KOSPI", "KOSDAQ", "KS", "KQ":
		return "KRX"
	case "NYSE", "NASDAQ", "US", "AMEX", "BATS", "ARCA":
		return "US"
	case "TSE", "TYO", "JP":
		return "TSE"
	case "UPBIT", "BITHUMB", "CRYPTO":
		return "CRYPTO"
	case "":
		return "KRX"
	default:
		return strings.ToUpper(strings.TrimSpace(exchange))
	}
}

// SellRecord is an append-only record of one sell transaction.
// The cost basis in effect at sale time is captured on the record so realized
// statistics survive the asset later being deleted.
type SellRecord struct {
	ID                           string    `json:"id"`
	AssetID                      string    `json:"asset_id"`
	Ticker                       string    `json:"ticker"`
	Name                         string    `json:"name,omitempty"`
	Date                         string    `json:"date"` // YYYY-MM-DD
	Price                        float64   `json:"price"`
	Quantity                     float64   `json:"quantity"`
	Currency                     Currency  `json:"currency"`
	ExchangeRate                 float64   `json:"exchange_rate"` // home-currency rate realized at sale
	OriginalPurchasePrice        float64   `json:"original_purchase_price,omitempty"`
	OriginalPurchaseExchangeRate float64   `json:"original_purchase_exchange_rate,omitempty"`
	CreatedAt                    time.Time `json:"created_at"`
}

// Asset represents one holding.
type Asset struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Category Category `json:"category"`
	Ticker   string   `json:"ticker"`
	Exchange string   `json:"exchange"`
	Currency Currency `json:"currency"`

	Quantity      float64 `json:"quantity"`
	PurchasePrice float64 `json:"purchase_price"` // average cost in native currency
	PurchaseDate  string  `json:"purchase_date"`  // YYYY-MM-DD
	// PurchaseExchangeRate is the home-currency rate captured at buy time.
	// It is only recomputed by later buys (quantity-weighted), never by a
	// current-rate refresh.
	PurchaseExchangeRate float64 `json:"purchase_exchange_rate,omitempty"`

	// Live market data, populated by the refresh cycle.
	CurrentPrice  float64  `json:"current_price"`        // native quote currency
	HomePrice     float64  `json:"home_price,omitempty"` // feed-supplied home-currency price, when available
	PreviousClose float64  `json:"previous_close,omitempty"`
	HighestPrice  float64  `json:"highest_price,omitempty"`
	ChangeRate    *float64 `json:"change_rate,omitempty"` // server-supplied day change %; nil when absent
	Signal        string   `json:"signal,omitempty"`      // server classification: strong_buy, buy, sell, strong_sell
	RSI           *float64 `json:"rsi,omitempty"`
	RSIStatus     string   `json:"rsi_status,omitempty"`
	MA20          *float64 `json:"ma20,omitempty"`         // feed-supplied moving averages, fallback when the
	MA60          *float64 `json:"ma60,omitempty"`         // indicator engine has no result for this asset
	PriceFailed   bool     `json:"price_failed,omitempty"` // last refresh could not resolve this asset

	// SellAlertDropRate overrides the portfolio-wide drop-from-high alert
	// threshold for this asset (negative percent). Nil uses the default.
	SellAlertDropRate *float64 `json:"sell_alert_drop_rate,omitempty"`

	Sells []SellRecord `json:"sells,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsForeign reports whether the asset is priced in a non-home currency.
func (a *Asset) IsForeign() bool {
	return a.Currency != CurrencyKRW
}

// Key returns the de-duplication key (ticker, normalized exchange).
func (a *Asset) Key() string {
	return strings.ToUpper(a.Ticker) + "." + NormalizeExchange(a.Exchange)
}

// ApplyBuy merges an additional purchase into the position, recomputing the
// quantity-weighted average cost and average purchase exchange rate.
func (a *Asset) ApplyBuy(quantity, price, exchangeRate float64, date string) error {
	if quantity <= 0 {
		return fmt.Errorf("buy quantity must be positive, got %v", quantity)
	}
	if price < 0 {
		return fmt.Errorf("buy price must be non-negative, got %v", price)
	}

	newQty := a.Quantity + quantity
	a.PurchasePrice = (a.PurchasePrice*a.Quantity + price*quantity) / newQty
	if exchangeRate > 0 {
		prevRate := a.PurchaseExchangeRate
		if prevRate <= 0 {
			prevRate = exchangeRate
		}
		a.PurchaseExchangeRate = (prevRate*a.Quantity + exchangeRate*quantity) / newQty
	}
	a.Quantity = newQty
	if date != "" {
		a.PurchaseDate = date
	}
	a.UpdatedAt = time.Now()
	return nil
}

// ApplySell appends a sell record and decrements quantity. A sell that would
// drive the quantity negative is rejected. Partial sells leave the average
// cost untouched.
func (a *Asset) ApplySell(rec SellRecord) error {
	if rec.Quantity <= 0 {
		return fmt.Errorf("sell quantity must be positive, got %v", rec.Quantity)
	}
	if rec.Quantity > a.Quantity {
		return fmt.Errorf("sell quantity %v exceeds held quantity %v", rec.Quantity, a.Quantity)
	}

	// Capture the cost basis in effect at sale time.
	rec.AssetID = a.ID
	rec.Ticker = a.Ticker
	if rec.Name == "" {
		rec.Name = a.Name
	}
	rec.Currency = a.Currency
	rec.OriginalPurchasePrice = a.PurchasePrice
	rec.OriginalPurchaseExchangeRate = a.PurchaseExchangeRate

	a.Sells = append(a.Sells, rec)
	a.Quantity -= rec.Quantity
	a.UpdatedAt = time.Now()
	return nil
}

// Closed reports whether the position has been fully exited.
func (a *Asset) Closed() bool {
	return a.Quantity <= 0
}
