package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventcatalog/internal/domain"
	"eventcatalog/internal/repository/bounded"
	"eventcatalog/internal/repository/memory"
)

func TestMigrateLegacyWatchlist(t *testing.T) {
	ctx := context.Background()
	storage := memory.NewBlobStorage()
	require.NoError(t, storage.Set(ctx, domain.LegacyWatchlistKey,
		[]byte(`{"list":[{"watchItem":"a"},{"watchItem":""},{"watchItem":"b"}]}`)))

	svc, store := newWatchlist(t, storage, 10)
	n, err := MigrateLegacyWatchlist(ctx, storage, store)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, svc.Contains(domain.Event{ID: "a"}))
	assert.True(t, svc.Contains(domain.Event{ID: "b"}))

	_, err = storage.Get(ctx, domain.LegacyWatchlistKey)
	require.ErrorIs(t, err, domain.ErrNotFound)

	n, err = MigrateLegacyWatchlist(ctx, storage, store)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestMigrateLegacyWatchlist_Corrupt(t *testing.T) {
	ctx := context.Background()
	storage := memory.NewBlobStorage()
	require.NoError(t, storage.Set(ctx, domain.LegacyWatchlistKey, []byte(`[oops`)))
	_, store := newWatchlist(t, storage, 10)

	_, err := MigrateLegacyWatchlist(ctx, storage, store)
	require.ErrorIs(t, err, domain.ErrSerializationFailure)
	_, err = storage.Get(ctx, domain.LegacyWatchlistKey)
	require.NoError(t, err, "a failed migration keeps the legacy blob")
}

func TestMigrateLegacyEventCache(t *testing.T) {
	ctx := context.Background()
	storage := memory.NewBlobStorage()
	require.NoError(t, storage.Set(ctx, domain.LegacyEventCacheKey, []byte(`[
		{"objectId":"l1","title":"Lesung","startDateTime":{"__type":"Date","iso":"2022-02-14T19:00:00.000Z"}},
		{"title":"no id"}
	]`)))
	cache, err := bounded.New[string, CachedEvent](ctx, storage, domain.EventCacheKey, 10)
	require.NoError(t, err)

	n, err := MigrateLegacyEventCache(ctx, storage, cache, refDay)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	cached, ok := cache.Get("l1")
	require.True(t, ok)
	assert.Equal(t, "Lesung", cached.Event.Name)
	assert.True(t, cached.FetchedAt.Equal(refDay))

	_, err = storage.Get(ctx, domain.LegacyEventCacheKey)
	require.ErrorIs(t, err, domain.ErrNotFound)
}
