package services

import (
	"context"
	"fmt"
	"log/slog"

	"eventcatalog/internal/domain"
	"eventcatalog/internal/repository/bounded"
)

// WatchlistStore is the bounded store backing the watchlist.
type WatchlistStore = bounded.Store[string, domain.WatchItem]

type watchlistService struct {
	store  *WatchlistStore
	logger *slog.Logger
}

// NewWatchlistService returns a domain.WatchlistService over store.
func NewWatchlistService(store *WatchlistStore, logger *slog.Logger) domain.WatchlistService {
	if logger == nil {
		logger = slog.Default()
	}
	return &watchlistService{store: store, logger: logger}
}

func (s *watchlistService) Add(ctx context.Context, e domain.Event) (domain.Event, error) {
	item, err := domain.NewWatchItem(e)
	if err != nil {
		return domain.Event{}, err
	}
	if s.store.Contains(item.ID) {
		return e, nil
	}
	if _, err := s.store.Put(ctx, item.ID, item); err != nil {
		return domain.Event{}, fmt.Errorf("add to watchlist: %w", err)
	}
	s.logger.Debug("watchlist add", "event_id", item.ID)
	return e, nil
}

func (s *watchlistService) Remove(ctx context.Context, e domain.Event) (domain.Watchlist, error) {
	item, err := domain.NewWatchItem(e)
	if err != nil {
		return domain.Watchlist{}, err
	}
	rest, err := s.store.Remove(ctx, item.ID)
	if err != nil {
		return domain.Watchlist{}, fmt.Errorf("remove from watchlist: %w", err)
	}
	return domain.Watchlist{Items: rest}, nil
}

func (s *watchlistService) Contains(e domain.Event) bool {
	if !e.HasID() {
		return false
	}
	return s.store.Contains(e.ID)
}

func (s *watchlistService) Fetch(maxCount int) (domain.Watchlist, error) {
	items, err := s.store.FetchAll(maxCount)
	if err != nil {
		return domain.Watchlist{}, err
	}
	return domain.Watchlist{Items: items}, nil
}
