package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"eventcatalog/internal/domain"
	"eventcatalog/internal/repository/bounded"
)

// MigrateLegacyWatchlist moves the deprecated live-event watchlist blob into
// store and deletes it. It returns the number of migrated items; a missing
// legacy blob migrates nothing.
func MigrateLegacyWatchlist(ctx context.Context, storage domain.BlobStorage, store *WatchlistStore) (int, error) {
	blob, err := storage.Get(ctx, domain.LegacyWatchlistKey)
	if errors.Is(err, domain.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read legacy watchlist: %w", err)
	}
	var legacy domain.Watchlist
	if err := json.Unmarshal(blob, &legacy); err != nil {
		return 0, &domain.SerializationError{Key: domain.LegacyWatchlistKey, Err: err}
	}
	entries := make([]bounded.Entry[string, domain.WatchItem], 0, len(legacy.Items))
	for _, item := range legacy.Items {
		if item.ID == "" {
			continue
		}
		entries = append(entries, bounded.Entry[string, domain.WatchItem]{Key: item.ID, Value: item})
	}
	if err := store.PutAll(ctx, entries); err != nil {
		return 0, fmt.Errorf("write migrated watchlist: %w", err)
	}
	if err := storage.Delete(ctx, domain.LegacyWatchlistKey); err != nil {
		return 0, fmt.Errorf("delete legacy watchlist: %w", err)
	}
	return len(entries), nil
}

// MigrateLegacyEventCache converts the deprecated live-event cache blob (a
// JSON array of legacy events) into cache entries and deletes it.
func MigrateLegacyEventCache(ctx context.Context, storage domain.BlobStorage, cache *EventCache, fetchedAt time.Time) (int, error) {
	blob, err := storage.Get(ctx, domain.LegacyEventCacheKey)
	if errors.Is(err, domain.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read legacy event cache: %w", err)
	}
	var legacy []domain.LegacyEvent
	if err := json.Unmarshal(blob, &legacy); err != nil {
		return 0, &domain.SerializationError{Key: domain.LegacyEventCacheKey, Err: err}
	}
	entries := make([]bounded.Entry[string, CachedEvent], 0, len(legacy))
	for _, l := range legacy {
		e := l.ToEvent()
		if !e.HasID() {
			continue
		}
		entries = append(entries, bounded.Entry[string, CachedEvent]{Key: e.ID, Value: CachedEvent{Event: e, FetchedAt: fetchedAt}})
	}
	if err := cache.PutAll(ctx, entries); err != nil {
		return 0, fmt.Errorf("write migrated events: %w", err)
	}
	if err := storage.Delete(ctx, domain.LegacyEventCacheKey); err != nil {
		return 0, fmt.Errorf("delete legacy event cache: %w", err)
	}
	return len(entries), nil
}
