package domain

import "context"

// WatchItem is a watchlist entry: the identifier of a user-selected event.
type WatchItem struct {
	ID string `json:"watchItem"`
}

// NewWatchItem returns the watch item for e. It fails with ErrMissingIdentifier
// when e has no server identifier.
func NewWatchItem(e Event) (WatchItem, error) {
	if !e.HasID() {
		return WatchItem{}, ErrMissingIdentifier
	}
	return WatchItem{ID: e.ID}, nil
}

// Watchlist is the serialized form of a watchlist.
type Watchlist struct {
	Items []WatchItem `json:"list"`
}

// WatchlistService keeps the bounded, persistent set of watched events.
type WatchlistService interface {
	// Add stores the event's id and returns e unchanged.
	Add(ctx context.Context, e Event) (Event, error)
	// Remove deletes the event's id and returns the remaining watchlist.
	Remove(ctx context.Context, e Event) (Watchlist, error)
	// Contains is false for events without an id.
	Contains(e Event) bool
	// Fetch returns up to maxCount items, failing with ErrEmptyStore when none are stored.
	Fetch(maxCount int) (Watchlist, error)
}
