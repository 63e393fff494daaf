package models

import "sort"

// SnapshotRetentionDays caps the snapshot history; the earliest dates are
// dropped first once the cap is exceeded.
const SnapshotRetentionDays = 365

// SnapshotEntry records one asset's valuation inside a daily snapshot.
type SnapshotEntry struct {
	AssetID       string  `json:"asset_id"`
	Name          string  `json:"name"`
	CurrentValue  float64 `json:"current_value"`  // home currency
	PurchaseValue float64 `json:"purchase_value"` // home currency
	UnitPrice     float64 `json:"unit_price"`     // home currency
}

// DailySnapshot is a dated, immutable record of every held asset's valuation.
// One snapshot exists per calendar day.
type DailySnapshot struct {
	Date    string          `json:"date"` // YYYY-MM-DD
	Entries []SnapshotEntry `json:"entries"`
}

// UpsertSnapshot inserts snap into history or overwrites the snapshot for the
// same calendar date in place. When the history exceeds the retention cap the
// earliest dates are dropped, FIFO by date rather than by insertion order.
// Returns the updated history sorted ascending by date.
func UpsertSnapshot(history []DailySnapshot, snap DailySnapshot) []DailySnapshot {
	replaced := false
	for i := range history {
		if history[i].Date == snap.Date {
			history[i] = snap
			replaced = true
			break
		}
	}
	if !replaced {
		history = append(history, snap)
	}

	sort.Slice(history, func(i, j int) bool {
		return history[i].Date < history[j].Date
	})

	if len(history) > SnapshotRetentionDays {
		history = history[len(history)-SnapshotRetentionDays:]
	}
	return history
}
