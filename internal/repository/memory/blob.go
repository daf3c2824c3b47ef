// Package memory provides an in-process domain.BlobStorage.
package memory

import (
	"context"
	"slices"
	"sync"

	"eventcatalog/internal/domain"
)

// BlobStorage keeps blobs in a map. The zero value is not usable; use NewBlobStorage.
type BlobStorage struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewBlobStorage returns an empty in-memory blob storage.
func NewBlobStorage() *BlobStorage {
	return &BlobStorage{blobs: make(map[string][]byte)}
}

func (s *BlobStorage) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return slices.Clone(b), nil
}

func (s *BlobStorage) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = slices.Clone(value)
	return nil
}

func (s *BlobStorage) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
	return nil
}
