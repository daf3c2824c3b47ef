package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventcatalog/internal/domain"
)

func openTestStorage(t *testing.T) (*BlobStorage, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.sqlite")
	s, err := Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestOpen_UsesWAL(t *testing.T) {
	s, _ := openTestStorage(t)
	mode, err := s.journalMode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "wal", mode)
}

func TestBlobStorage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, path := openTestStorage(t)

	_, err := s.Get(ctx, "k")
	require.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, s.Set(ctx, "k", []byte(`{"version":1}`)))
	require.NoError(t, s.Set(ctx, "k", []byte(`{"version":2}`)))
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `{"version":2}`, string(got))

	require.NoError(t, s.Close())
	reopened, err := Open(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()
	got, err = reopened.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `{"version":2}`, string(got))

	require.NoError(t, reopened.Delete(ctx, "k"))
	_, err = reopened.Get(ctx, "k")
	require.ErrorIs(t, err, domain.ErrNotFound)
}
