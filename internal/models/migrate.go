package models

import (
	"encoding/json"
	"fmt"
)

// Legacy (v1) state documents were written by the original web client with
// camelCase field names and an older category vocabulary. Migration is
// table-driven and runs once at load time; steady-state code never sees the
// legacy shape.

// legacyAssetFields maps v1 asset field names to the current names.
var legacyAssetFields = map[string]string{
	"purchasePrice":        "purchase_price",
	"purchaseDate":         "purchase_date",
	"purchaseExchangeRate": "purchase_exchange_rate",
	// v1 stored the converted home-currency price in currentPrice and the
	// native quote in priceOriginal; the current schema is the other way up.
	"currentPrice":      "home_price",
	"priceOriginal":     "current_price",
	"previousClose":     "previous_close",
	"highestPrice":      "highest_price",
	"changeRate":        "change_rate",
	"rsiStatus":         "rsi_status",
	"sellAlertDropRate": "sell_alert_drop_rate",
	"sellTransactions":  "sells",
	"createdAt":         "created_at",
	"updatedAt":         "updated_at",
}

// legacyWatchlistFields maps v1 watchlist field names to the current names.
// Watchlist prices were never converted, so currentPrice stays the native
// quote rather than swapping like the asset table.
var legacyWatchlistFields = map[string]string{
	"currentPrice":  "current_price",
	"previousClose": "previous_close",
	"changeRate":    "change_rate",
	"createdAt":     "created_at",
	"updatedAt":     "updated_at",
}

// legacySellFields maps v1 sell-record field names to the current names.
var legacySellFields = map[string]string{
	"assetId":                      "asset_id",
	"exchangeRate":                 "exchange_rate",
	"originalPurchasePrice":        "original_purchase_price",
	"originalPurchaseExchangeRate": "original_purchase_exchange_rate",
	"createdAt":                    "created_at",
}

// legacyCategories maps v1 category strings to the current enumeration.
var legacyCategories = map[string]Category{
	"domestic":    CategoryDomesticStock,
	"domesticETF": CategoryDomesticStock,
	"overseas":    CategoryForeignStock,
	"foreign":     CategoryForeignStock,
	"coin":        CategoryCrypto,
	"crypto":      CategoryCrypto,
	"realAsset":   CategoryPhysical,
	"physical":    CategoryPhysical,
	"bond":        CategoryBond,
	"cash":        CategoryCash,
}

// MigrateState upgrades a raw state document to the current schema. Documents
// already at the current version are decoded unchanged.
func MigrateState(raw []byte) (*AppState, error) {
	var header struct {
		SchemaVersion int `json:"schema_version"`
	}
	if err := json.Unmarshal(raw, &header); err != nil {
		return nil, fmt.Errorf("unreadable state document: %w", err)
	}

	if header.SchemaVersion >= SchemaVersion {
		var state AppState
		if err := json.Unmarshal(raw, &state); err != nil {
			return nil, fmt.Errorf("failed to decode state document: %w", err)
		}
		return &state, nil
	}

	migrated, err := migrateV1(raw)
	if err != nil {
		return nil, fmt.Errorf("v1 migration failed: %w", err)
	}
	return migrated, nil
}

// migrateV1 rewrites a v1 document into the current shape.
func migrateV1(raw []byte) (*AppState, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}

	state := NewAppState()

	if assetsRaw, ok := doc["assets"]; ok {
		var items []map[string]interface{}
		if err := json.Unmarshal(assetsRaw, &items); err != nil {
			return nil, fmt.Errorf("failed to decode legacy assets: %w", err)
		}
		state.Assets = make([]Asset, 0, len(items))
		for _, item := range items {
			renameFields(item, legacyAssetFields)
			if cat, ok := item["category"].(string); ok {
				if mapped, ok := legacyCategories[cat]; ok {
					item["category"] = string(mapped)
				}
			}
			if sells, ok := item["sells"].([]interface{}); ok {
				for _, s := range sells {
					if m, ok := s.(map[string]interface{}); ok {
						renameFields(m, legacySellFields)
					}
				}
			}
			var asset Asset
			if err := reencode(item, &asset); err != nil {
				return nil, fmt.Errorf("failed to migrate asset: %w", err)
			}
			// Home-currency assets had no priceOriginal; their legacy
			// currentPrice is the native price too.
			if asset.CurrentPrice == 0 && asset.HomePrice > 0 {
				asset.CurrentPrice = asset.HomePrice
			}
			state.Assets = append(state.Assets, asset)
		}
	}

	if ratesRaw, ok := doc["exchangeRates"]; ok {
		if err := json.Unmarshal(ratesRaw, &state.Rates); err != nil {
			return nil, fmt.Errorf("failed to decode legacy rates: %w", err)
		}
	}

	if wlRaw, ok := doc["watchlist"]; ok {
		var items []map[string]interface{}
		if err := json.Unmarshal(wlRaw, &items); err == nil {
			for _, item := range items {
				renameFields(item, legacyWatchlistFields)
				if cat, ok := item["category"].(string); ok {
					if mapped, ok := legacyCategories[cat]; ok {
						item["category"] = string(mapped)
					}
				}
				var wi WatchlistItem
				if err := reencode(item, &wi); err == nil {
					state.Watchlist.Items = append(state.Watchlist.Items, wi)
				}
			}
		}
	}

	state.SchemaVersion = SchemaVersion
	return state, nil
}

// renameFields moves values from legacy keys to their current names.
func renameFields(m map[string]interface{}, table map[string]string) {
	for old, current := range table {
		if v, ok := m[old]; ok {
			m[current] = v
			delete(m, old)
		}
	}
}

// reencode round-trips a generic map through JSON into a typed value.
func reencode(m map[string]interface{}, dest interface{}) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}
