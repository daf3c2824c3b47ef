// Package bounded implements a persistent, capacity-limited key-value
// collection with FIFO eviction on top of domain.BlobStorage.
package bounded

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"eventcatalog/internal/domain"
)

const snapshotVersion = 1

// Entry is a key-value pair in insertion order.
type Entry[K comparable, V any] struct {
	Key   K `json:"key"`
	Value V `json:"value"`
}

type snapshot[K comparable, V any] struct {
	Version int           `json:"version"`
	Entries []Entry[K, V] `json:"entries"`
}

// Option configures a Store.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger used for load and persist diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Store is a bounded collection persisted under a single storage key.
// When a new key is added to a full store the oldest inserted key is evicted.
// Overwriting a key keeps its position. Every mutation is written through to
// storage before it becomes visible; a failed write leaves the store unchanged.
type Store[K comparable, V any] struct {
	storage  domain.BlobStorage
	key      string
	capacity int
	logger   *slog.Logger

	mu     sync.RWMutex
	order  []K
	values map[K]V
}

// New loads the collection stored under key. A missing blob yields an empty
// store; a blob holding more than capacity entries is trimmed oldest-first.
func New[K comparable, V any](ctx context.Context, storage domain.BlobStorage, key string, capacity int, opts ...Option) (*Store[K, V], error) {
	if capacity <= 0 {
		return nil, domain.ErrCapacityInvalid
	}
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	s := &Store[K, V]{
		storage:  storage,
		key:      key,
		capacity: capacity,
		logger:   o.logger,
		values:   make(map[K]V),
	}

	blob, err := storage.Get(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", key, err)
	}
	var snap snapshot[K, V]
	if err := json.Unmarshal(blob, &snap); err != nil {
		return nil, &domain.SerializationError{Key: key, Err: err}
	}
	if snap.Version != snapshotVersion {
		return nil, &domain.SerializationError{Key: key, Err: fmt.Errorf("unsupported version %d", snap.Version)}
	}
	for _, e := range snap.Entries {
		if _, ok := s.values[e.Key]; !ok {
			s.order = append(s.order, e.Key)
		}
		s.values[e.Key] = e.Value
	}
	if n := len(s.order) - capacity; n > 0 {
		for _, k := range s.order[:n] {
			delete(s.values, k)
		}
		s.order = slices.Clone(s.order[n:])
		s.logger.Warn("bounded store trimmed on load", "key", key, "evicted", n, "capacity", capacity)
	}
	return s, nil
}

// Capacity returns the maximum number of entries.
func (s *Store[K, V]) Capacity() int {
	return s.capacity
}

// Len returns the number of entries.
func (s *Store[K, V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Get returns the value stored under k.
func (s *Store[K, V]) Get(k K) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[k]
	return v, ok
}

// Contains reports whether k is stored.
func (s *Store[K, V]) Contains(k K) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.values[k]
	return ok
}

// FetchAll returns up to maxCount values, oldest first. It fails with
// domain.ErrEmptyStore when the store holds nothing; a non-positive maxCount
// on a non-empty store yields an empty result.
func (s *Store[K, V]) FetchAll(maxCount int) ([]V, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.order) == 0 {
		return nil, domain.ErrEmptyStore
	}
	if maxCount <= 0 {
		return []V{}, nil
	}
	n := min(maxCount, len(s.order))
	out := make([]V, 0, n)
	for _, k := range s.order[:n] {
		out = append(out, s.values[k])
	}
	return out, nil
}

// Put inserts or overwrites k and returns the stored value.
func (s *Store[K, V]) Put(ctx context.Context, k K, v V) (V, error) {
	if err := s.PutAll(ctx, []Entry[K, V]{{Key: k, Value: v}}); err != nil {
		var zero V
		return zero, err
	}
	return v, nil
}

// PutAll inserts or overwrites every entry in order and persists once.
func (s *Store[K, V]) PutAll(ctx context.Context, entries []Entry[K, V]) error {
	if len(entries) == 0 {
		return nil
	}
	_, err := s.mutate(ctx, func(order []K, values map[K]V) ([]K, bool) {
		for _, e := range entries {
			if _, ok := values[e.Key]; !ok {
				if len(order) == s.capacity {
					delete(values, order[0])
					order = order[1:]
				}
				order = append(order, e.Key)
			}
			values[e.Key] = e.Value
		}
		return order, true
	})
	return err
}

// Remove deletes k and returns the remaining values, oldest first.
// Removing an absent key is a no-op.
func (s *Store[K, V]) Remove(ctx context.Context, k K) ([]V, error) {
	return s.mutate(ctx, func(order []K, values map[K]V) ([]K, bool) {
		if _, ok := values[k]; !ok {
			return order, false
		}
		delete(values, k)
		return slices.DeleteFunc(order, func(o K) bool { return o == k }), true
	})
}

// mutate applies fn to a copy of the state, persists the copy and swaps it in.
// When fn reports no change nothing is written.
func (s *Store[K, V]) mutate(ctx context.Context, fn func(order []K, values map[K]V) ([]K, bool)) ([]V, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values := maps.Clone(s.values)
	order, changed := fn(slices.Clone(s.order), values)
	if !changed {
		return collect(s.order, s.values), nil
	}

	snap := snapshot[K, V]{Version: snapshotVersion, Entries: make([]Entry[K, V], 0, len(order))}
	for _, k := range order {
		snap.Entries = append(snap.Entries, Entry[K, V]{Key: k, Value: values[k]})
	}
	blob, err := json.Marshal(snap)
	if err != nil {
		return nil, &domain.SerializationError{Key: s.key, Err: err}
	}
	if err := s.storage.Set(ctx, s.key, blob); err != nil {
		s.logger.Error("bounded store persist failed", "key", s.key, "error", err)
		return nil, fmt.Errorf("persist %q: %w", s.key, err)
	}
	s.order, s.values = order, values
	return collect(order, values), nil
}

func collect[K comparable, V any](order []K, values map[K]V) []V {
	out := make([]V, 0, len(order))
	for _, k := range order {
		out = append(out, values[k])
	}
	return out
}
