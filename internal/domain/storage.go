package domain

import "context"

// Storage keys of the persisted collections.
const (
	EventCacheKey       = "eventcatalog.events.cache"
	WatchlistKey        = "eventcatalog.events.watchlist"
	LegacyWatchlistKey  = "eventcatalog.liveevents.watchlist"
	LegacyEventCacheKey = "eventcatalog.liveevents.cache"
)

// Default capacities of the persisted collections.
const (
	DefaultWatchlistLimit  = 1000
	DefaultEventCacheLimit = 1000
)

// BlobStorage is a key-value store of opaque byte blobs.
// Get returns ErrNotFound for a missing key.
type BlobStorage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
