package controllers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"eventcatalog/internal/delivery/http/helpers"
	"eventcatalog/internal/domain"

	"github.com/stretchr/testify/require"
)

// testLogger is a no-op logger for controller tests so we don't assert on log output.
var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

// fakeEventRepository implements domain.EventRepository for handler tests.
type fakeEventRepository struct {
	events []domain.Event
	count  int
	err    error

	lastOp       string
	lastMaxCount int
	lastNextDays int
	lastStrategy domain.CachingStrategy
	lastQuery    string
	lastRaw      bool
	lastIDs      []string
}

func (f *fakeEventRepository) list(op string, maxCount int, strategy domain.CachingStrategy) ([]domain.Event, error) {
	f.lastOp = op
	f.lastMaxCount = maxCount
	f.lastStrategy = strategy
	if f.err != nil {
		return nil, f.err
	}
	return f.events, nil
}

func (f *fakeEventRepository) FetchAll(_ context.Context, maxCount int, strategy domain.CachingStrategy) ([]domain.Event, error) {
	return f.list("all", maxCount, strategy)
}

func (f *fakeEventRepository) FetchToday(_ context.Context, maxCount int, strategy domain.CachingStrategy) ([]domain.Event, error) {
	return f.list("today", maxCount, strategy)
}

func (f *fakeEventRepository) FetchNext(_ context.Context, maxCount, nextDays int, strategy domain.CachingStrategy) ([]domain.Event, error) {
	f.lastNextDays = nextDays
	return f.list("next", maxCount, strategy)
}

func (f *fakeEventRepository) FetchByQuery(_ context.Context, maxCount int, query string, strategy domain.CachingStrategy, opts ...domain.QueryOption) ([]domain.Event, error) {
	var o domain.QueryOptions
	for _, opt := range opts {
		opt(&o)
	}
	f.lastQuery = query
	f.lastRaw = o.Raw
	return f.list("query", maxCount, strategy)
}

func (f *fakeEventRepository) FetchByID(_ context.Context, id string) (*domain.Event, error) {
	f.lastOp = "byID"
	f.lastIDs = []string{id}
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.events {
		if f.events[i].ID == id {
			return &f.events[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeEventRepository) FetchByIDs(_ context.Context, ids []string) ([]domain.Event, error) {
	f.lastOp = "byIDs"
	f.lastIDs = ids
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.Event
	for _, id := range ids {
		for _, e := range f.events {
			if e.ID == id {
				out = append(out, e)
			}
		}
	}
	return out, nil
}

func (f *fakeEventRepository) CountToday(_ context.Context) (int, error) {
	f.lastOp = "countToday"
	return f.count, f.err
}

func (f *fakeEventRepository) CountByQuery(_ context.Context, query string) (int, error) {
	f.lastOp = "countQuery"
	f.lastQuery = query
	return f.count, f.err
}

// fakeWatchlist implements domain.WatchlistService over an ordered id slice.
type fakeWatchlist struct {
	ids []string
	err error
}

func (f *fakeWatchlist) Add(_ context.Context, e domain.Event) (domain.Event, error) {
	if f.err != nil {
		return domain.Event{}, f.err
	}
	if !e.HasID() {
		return domain.Event{}, domain.ErrMissingIdentifier
	}
	if !f.Contains(e) {
		f.ids = append(f.ids, e.ID)
	}
	return e, nil
}

func (f *fakeWatchlist) Remove(_ context.Context, e domain.Event) (domain.Watchlist, error) {
	if f.err != nil {
		return domain.Watchlist{}, f.err
	}
	var kept []string
	for _, id := range f.ids {
		if id != e.ID {
			kept = append(kept, id)
		}
	}
	f.ids = kept
	return f.snapshot(len(kept)), nil
}

func (f *fakeWatchlist) Contains(e domain.Event) bool {
	for _, id := range f.ids {
		if e.HasID() && id == e.ID {
			return true
		}
	}
	return false
}

func (f *fakeWatchlist) Fetch(maxCount int) (domain.Watchlist, error) {
	if f.err != nil {
		return domain.Watchlist{}, f.err
	}
	if len(f.ids) == 0 {
		return domain.Watchlist{}, domain.ErrEmptyStore
	}
	return f.snapshot(maxCount), nil
}

func (f *fakeWatchlist) snapshot(maxCount int) domain.Watchlist {
	items := []domain.WatchItem{}
	for i, id := range f.ids {
		if i >= maxCount {
			break
		}
		items = append(items, domain.WatchItem{ID: id})
	}
	return domain.Watchlist{Items: items}
}

// fakeExporter records the events it was asked to render.
type fakeExporter struct {
	got []domain.Event
}

func (f *fakeExporter) Export(events []domain.Event) string {
	f.got = events
	return "BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"
}

// fakeIssuer implements domain.TokenIssuer.
type fakeIssuer struct {
	err             error
	lastSubject     string
	lastSession     string
	lastExpiry      time.Duration
	issuedExpiresAt time.Time
}

func (f *fakeIssuer) Issue(subject, sessionToken string, expiry time.Duration) (string, time.Time, error) {
	f.lastSubject = subject
	f.lastSession = sessionToken
	f.lastExpiry = expiry
	if f.err != nil {
		return "", time.Time{}, f.err
	}
	return "signed." + subject, f.issuedExpiresAt, nil
}

func event(id string, start time.Time) domain.Event {
	return domain.Event{ID: id, Name: "Event " + id, StartDate: domain.NewParseDate(start)}
}

// decodeEnvelope decodes the API envelope and, when data is non-nil, its data field.
func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder, data any) helpers.APIResponse {
	t.Helper()
	var raw struct {
		Data  json.RawMessage   `json:"data"`
		Error *helpers.APIError `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&raw))
	if data != nil && len(raw.Data) > 0 && string(raw.Data) != "null" {
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	return helpers.APIResponse{Data: data, Error: raw.Error}
}
