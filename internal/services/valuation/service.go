package valuation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jaehoon-lim/wonfolio/internal/common"
	"github.com/jaehoon-lim/wonfolio/internal/interfaces"
	"github.com/jaehoon-lim/wonfolio/internal/models"
)

// Service implements PortfolioService on top of the state store.
type Service struct {
	store  interfaces.StateStore
	logger *common.Logger
	now    func() time.Time
}

var _ interfaces.PortfolioService = (*Service)(nil)

// NewService creates a new portfolio service
func NewService(store interfaces.StateStore, logger *common.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the service clock, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// ListAssets returns all assets, open and closed.
func (s *Service) ListAssets(ctx context.Context) ([]*models.Asset, error) {
	state, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	assets := make([]*models.Asset, 0, len(state.Assets))
	for i := range state.Assets {
		assets = append(assets, &state.Assets[i])
	}
	return assets, nil
}

// GetAsset retrieves one asset by ID.
func (s *Service) GetAsset(ctx context.Context, id string) (*models.Asset, error) {
	state, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	asset, _ := state.FindAsset(id)
	if asset == nil {
		return nil, fmt.Errorf("asset %s not found", id)
	}
	return asset, nil
}

// validateAsset rejects malformed user input before it enters the engine.
func validateAsset(a *models.Asset) error {
	if a.Ticker == "" && a.Name == "" {
		return fmt.Errorf("asset needs a ticker or a name")
	}
	if a.Quantity < 0 {
		return fmt.Errorf("quantity must be non-negative, got %v", a.Quantity)
	}
	if a.PurchasePrice < 0 {
		return fmt.Errorf("purchase price must be non-negative, got %v", a.PurchasePrice)
	}
	if !models.ValidCategory(a.Category) {
		return fmt.Errorf("unknown category %q", a.Category)
	}
	if !models.ValidCurrency(a.Currency) {
		return fmt.Errorf("unknown currency %q", a.Currency)
	}
	if a.PurchaseDate != "" {
		if _, err := time.Parse("2006-01-02", a.PurchaseDate); err != nil {
			return fmt.Errorf("purchase date must be YYYY-MM-DD, got %q", a.PurchaseDate)
		}
	}
	return nil
}

// AddAsset validates and stores a new holding.
func (s *Service) AddAsset(ctx context.Context, asset *models.Asset) (*models.Asset, error) {
	if err := validateAsset(asset); err != nil {
		return nil, err
	}

	asset.ID = uuid.New().String()
	asset.Exchange = models.NormalizeExchange(asset.Exchange)
	now := s.now()
	asset.CreatedAt = now
	asset.UpdatedAt = now

	err := s.store.Update(ctx, func(state *models.AppState) error {
		state.Assets = append(state.Assets, *asset)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("ticker", asset.Ticker).Str("id", asset.ID).Msg("Asset added")
	return asset, nil
}

// UpdateAsset replaces the editable fields of an existing holding. Live
// market fields and the sell history are carried over untouched.
func (s *Service) UpdateAsset(ctx context.Context, asset *models.Asset) (*models.Asset, error) {
	if err := validateAsset(asset); err != nil {
		return nil, err
	}

	var updated models.Asset
	err := s.store.Update(ctx, func(state *models.AppState) error {
		existing, idx := state.FindAsset(asset.ID)
		if existing == nil {
			return fmt.Errorf("asset %s not found", asset.ID)
		}

		existing.Name = asset.Name
		existing.Category = asset.Category
		existing.Ticker = asset.Ticker
		existing.Exchange = models.NormalizeExchange(asset.Exchange)
		existing.Currency = asset.Currency
		existing.Quantity = asset.Quantity
		existing.PurchasePrice = asset.PurchasePrice
		existing.PurchaseDate = asset.PurchaseDate
		existing.PurchaseExchangeRate = asset.PurchaseExchangeRate
		existing.SellAlertDropRate = asset.SellAlertDropRate
		existing.UpdatedAt = s.now()
		state.Assets[idx] = *existing
		updated = *existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteAsset removes a holding, moving its sell records to the portfolio
// sell history.
func (s *Service) DeleteAsset(ctx context.Context, id string) error {
	err := s.store.Update(ctx, func(state *models.AppState) error {
		if !state.RemoveAsset(id) {
			return fmt.Errorf("asset %s not found", id)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info().Str("id", id).Msg("Asset deleted")
	return nil
}

// Buy merges an additional purchase into an existing position.
func (s *Service) Buy(ctx context.Context, id string, quantity, price, exchangeRate float64, date string) (*models.Asset, error) {
	var bought models.Asset
	err := s.store.Update(ctx, func(state *models.AppState) error {
		asset, idx := state.FindAsset(id)
		if asset == nil {
			return fmt.Errorf("asset %s not found", id)
		}

		if err := asset.ApplyBuy(quantity, price, exchangeRate, date); err != nil {
			return err
		}
		state.Assets[idx] = *asset
		bought = *asset
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("ticker", bought.Ticker).
		Float64("quantity", quantity).
		Float64("price", price).
		Msg("Buy recorded")
	return &bought, nil
}

// Sell records a sale against a position.
func (s *Service) Sell(ctx context.Context, id string, rec models.SellRecord) (*models.Asset, error) {
	if rec.Date != "" {
		if _, err := time.Parse("2006-01-02", rec.Date); err != nil {
			return nil, fmt.Errorf("sell date must be YYYY-MM-DD, got %q", rec.Date)
		}
	} else {
		rec.Date = s.now().Format("2006-01-02")
	}
	rec.ID = uuid.New().String()
	rec.CreatedAt = s.now()

	var sold models.Asset
	err := s.store.Update(ctx, func(state *models.AppState) error {
		asset, idx := state.FindAsset(id)
		if asset == nil {
			return fmt.Errorf("asset %s not found", id)
		}

		if err := asset.ApplySell(rec); err != nil {
			return err
		}
		state.Assets[idx] = *asset
		sold = *asset
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("ticker", sold.Ticker).
		Float64("quantity", rec.Quantity).
		Float64("remaining", sold.Quantity).
		Msg("Sell recorded")
	return &sold, nil
}

// Summary computes per-asset metrics and portfolio totals.
func (s *Service) Summary(ctx context.Context) (*models.PortfolioSummary, error) {
	state, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	return Aggregate(state), nil
}

// Snapshots returns up to days of retained daily snapshots, oldest first.
func (s *Service) Snapshots(ctx context.Context, days int) ([]models.DailySnapshot, error) {
	state, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	snaps := state.Snapshots
	if days > 0 && len(snaps) > days {
		snaps = snaps[len(snaps)-days:]
	}
	return snaps, nil
}

// RecordSnapshot captures today's valuation into the snapshot history.
func (s *Service) RecordSnapshot(ctx context.Context) error {
	var snap models.DailySnapshot
	var retained int

	err := s.store.Update(ctx, func(state *models.AppState) error {
		summary := Aggregate(state)

		snap = models.DailySnapshot{
			Date:    s.now().Format("2006-01-02"),
			Entries: make([]models.SnapshotEntry, 0, len(summary.Metrics)),
		}
		for _, m := range summary.Metrics {
			snap.Entries = append(snap.Entries, models.SnapshotEntry{
				AssetID:       m.AssetID,
				Name:          m.Name,
				CurrentValue:  m.CurrentValue,
				PurchaseValue: m.PurchaseValue,
				UnitPrice:     m.UnitPrice,
			})
		}

		state.Snapshots = models.UpsertSnapshot(state.Snapshots, snap)
		retained = len(state.Snapshots)
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug().
		Str("date", snap.Date).
		Int("entries", len(snap.Entries)).
		Int("retained", retained).
		Msg("Snapshot recorded")
	return nil
}
