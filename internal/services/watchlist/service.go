// Package watchlist manages tracked-but-not-owned instruments
package watchlist

import (
	"context"
	"fmt"
	"time"

	"github.com/jaehoon-lim/wonfolio/internal/common"
	"github.com/jaehoon-lim/wonfolio/internal/interfaces"
	"github.com/jaehoon-lim/wonfolio/internal/models"
)

// Service implements WatchlistService.
type Service struct {
	store  interfaces.StateStore
	logger *common.Logger
	now    func() time.Time
}

var _ interfaces.WatchlistService = (*Service)(nil)

// NewService creates a new watchlist service
func NewService(store interfaces.StateStore, logger *common.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// List returns all watchlist items.
func (s *Service) List(ctx context.Context) ([]models.WatchlistItem, error) {
	state, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	return state.Watchlist.Items, nil
}

// Add upserts an item. An existing entry with the same (ticker, normalized
// exchange) is updated in place rather than duplicated.
func (s *Service) Add(ctx context.Context, item models.WatchlistItem) (*models.WatchlistItem, error) {
	if item.Ticker == "" {
		return nil, fmt.Errorf("watchlist item needs a ticker")
	}
	if item.Category != "" && !models.ValidCategory(item.Category) {
		return nil, fmt.Errorf("unknown category %q", item.Category)
	}

	item.Exchange = models.NormalizeExchange(item.Exchange)
	now := s.now()

	var replaced bool
	err := s.store.Update(ctx, func(state *models.AppState) error {
		existing, idx := state.Watchlist.Find(item.Ticker, item.Exchange)
		if existing != nil {
			item.CreatedAt = existing.CreatedAt
			item.UpdatedAt = now
			state.Watchlist.Items[idx] = item
			replaced = true
		} else {
			item.CreatedAt = now
			item.UpdatedAt = now
			state.Watchlist.Items = append(state.Watchlist.Items, item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug().
		Str("ticker", item.Ticker).
		Bool("updated", replaced).
		Msg("Watchlist item upserted")
	return &item, nil
}

// Remove deletes the item matching (ticker, normalized exchange).
func (s *Service) Remove(ctx context.Context, ticker, exchange string) error {
	return s.store.Update(ctx, func(state *models.AppState) error {
		_, idx := state.Watchlist.Find(ticker, exchange)
		if idx < 0 {
			return fmt.Errorf("watchlist item %s not found", ticker)
		}

		state.Watchlist.Items = append(state.Watchlist.Items[:idx], state.Watchlist.Items[idx+1:]...)
		return nil
	})
}
