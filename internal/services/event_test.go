package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventcatalog/internal/domain"
	"eventcatalog/internal/repository/bounded"
	"eventcatalog/internal/repository/memory"
)

// fakeRemote is an in-memory RemoteCatalog for tests.
type fakeRemote struct {
	mu         sync.Mutex
	results    []json.RawMessage
	count      *int
	searchBody json.RawMessage
	err        error
	block      bool // wait for ctx cancellation before answering

	queries   []domain.ClassQuery
	functions []string
	params    []any
	tokens    []string
}

func (f *fakeRemote) QueryClass(ctx context.Context, className string, q domain.ClassQuery) (domain.ClassResult, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.tokens = append(f.tokens, q.SessionToken)
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return domain.ClassResult{}, fmt.Errorf("catalog request: %w", ctx.Err())
	}
	if f.err != nil {
		return domain.ClassResult{}, f.err
	}
	return domain.ClassResult{Results: f.results, Count: f.count}, nil
}

func (f *fakeRemote) CallFunction(ctx context.Context, name string, params any, sessionToken string) (json.RawMessage, error) {
	f.mu.Lock()
	f.functions = append(f.functions, name)
	f.params = append(f.params, params)
	f.tokens = append(f.tokens, sessionToken)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.searchBody, nil
}

func (f *fakeRemote) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries) + len(f.functions)
}

func rawEvents(t *testing.T, events ...domain.Event) []json.RawMessage {
	t.Helper()
	out := make([]json.RawMessage, 0, len(events))
	for _, e := range events {
		b, err := json.Marshal(e)
		require.NoError(t, err)
		out = append(out, b)
	}
	return out
}

func searchBody(t *testing.T, records ...json.RawMessage) json.RawMessage {
	t.Helper()
	if records == nil {
		records = []json.RawMessage{}
	}
	b, err := json.Marshal(map[string]any{"result": records})
	require.NoError(t, err)
	return b
}

func noConnectivity() error {
	return &domain.TransportError{Kind: domain.TransportNoConnectivity, Err: fmt.Errorf("dial tcp: connection refused")}
}

type repoFixture struct {
	repo   domain.EventRepository
	remote *fakeRemote
	cache  *EventCache
	now    time.Time
}

func newRepoFixture(t *testing.T, maxAge time.Duration) *repoFixture {
	t.Helper()
	cache, err := bounded.New[string, CachedEvent](context.Background(), memory.NewBlobStorage(), domain.EventCacheKey, 50)
	require.NoError(t, err)
	f := &repoFixture{remote: &fakeRemote{}, cache: cache, now: refDay}
	f.repo = NewEventRepository(f.remote, cache, EventRepositoryConfig{
		MaxAge:  maxAge,
		Timeout: time.Second,
		Now:     func() time.Time { return f.now },
	})
	return f
}

func (f *repoFixture) seed(t *testing.T, fetchedAt time.Time, events ...domain.Event) {
	t.Helper()
	entries := make([]bounded.Entry[string, CachedEvent], 0, len(events))
	for _, e := range events {
		entries = append(entries, bounded.Entry[string, CachedEvent]{Key: e.ID, Value: CachedEvent{Event: e, FetchedAt: fetchedAt}})
	}
	require.NoError(t, f.cache.PutAll(context.Background(), entries))
}

func TestEventRepository_NetworkThenCacheWritesThrough(t *testing.T) {
	f := newRepoFixture(t, 0)
	f.remote.results = rawEvents(t,
		eventAt("a", refDay),
		eventAt("b", refDay.Add(24*time.Hour)),
		eventAt("c", refDay.Add(48*time.Hour)),
	)

	got, err := f.repo.FetchAll(context.Background(), 10, domain.NetworkThenCache)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, ids(got))
	assert.Equal(t, 3, f.cache.Len())

	require.Len(t, f.remote.queries, 1)
	assert.Equal(t, 10, f.remote.queries[0].Limit)
	assert.Equal(t, "startDate", f.remote.queries[0].Order)
}

func TestEventRepository_FallsBackToCacheOnConnectivityFailure(t *testing.T) {
	f := newRepoFixture(t, 0)
	f.seed(t, refDay, eventAt("a", refDay), eventAt("b", refDay.Add(time.Hour)), eventAt("c", refDay.Add(2*time.Hour)))
	f.remote.err = noConnectivity()

	got, err := f.repo.FetchAll(context.Background(), 10, domain.NetworkThenCache)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, ids(got))
}

func TestEventRepository_FallsBackOnDataLoading(t *testing.T) {
	f := newRepoFixture(t, 0)
	f.seed(t, refDay, eventAt("a", refDay))
	f.remote.err = &domain.TransportError{Kind: domain.TransportDataLoading, StatusCode: 503}

	got, err := f.repo.FetchToday(context.Background(), 10, domain.NetworkThenCache)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(got))
}

func TestEventRepository_FallbackWithEmptyCacheSurfacesRemoteError(t *testing.T) {
	f := newRepoFixture(t, 0)
	f.remote.err = noConnectivity()

	_, err := f.repo.FetchAll(context.Background(), 10, domain.NetworkThenCache)
	require.ErrorIs(t, err, domain.ErrNoConnectivity)
	assert.NotErrorIs(t, err, domain.ErrEmptyStore)
}

func TestEventRepository_ContractErrorsAreNotRetriedAgainstCache(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"invalid response", &domain.TransportError{Kind: domain.TransportInvalidResponse}, domain.ErrInvalidResponse},
		{"invalid request", &domain.TransportError{Kind: domain.TransportInvalidRequest}, domain.ErrInvalidRequest},
		{"json decoding", &domain.TransportError{Kind: domain.TransportJSONDecoding, Err: fmt.Errorf("eof")}, domain.ErrJSONDecoding},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRepoFixture(t, 0)
			f.seed(t, refDay, eventAt("a", refDay))
			f.remote.err = tt.err

			_, err := f.repo.FetchAll(context.Background(), 10, domain.NetworkThenCache)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestEventRepository_StrictDecodingFailsTheCall(t *testing.T) {
	f := newRepoFixture(t, 0)
	f.seed(t, refDay, eventAt("cached", refDay))
	f.remote.results = append(rawEvents(t, eventAt("a", refDay)), json.RawMessage(`{"objectId":"bad","eventStatus":"exploded"}`))

	_, err := f.repo.FetchAll(context.Background(), 10, domain.NetworkThenCache)
	require.ErrorIs(t, err, domain.ErrJSONDecoding)
	_, ok := f.cache.Get("a")
	assert.False(t, ok)
}

func TestEventRepository_NetworkOnlyNeverTouchesCache(t *testing.T) {
	f := newRepoFixture(t, 0)
	f.remote.results = rawEvents(t, eventAt("a", refDay))

	got, err := f.repo.FetchAll(context.Background(), 10, domain.NetworkOnly)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(got))
	assert.Equal(t, 0, f.cache.Len())

	f.seed(t, refDay, eventAt("cached", refDay))
	f.remote.err = noConnectivity()
	_, err = f.repo.FetchAll(context.Background(), 10, domain.NetworkOnly)
	require.ErrorIs(t, err, domain.ErrNoConnectivity)
}

func TestEventRepository_CacheOnly(t *testing.T) {
	f := newRepoFixture(t, 0)

	_, err := f.repo.FetchAll(context.Background(), 10, domain.CacheOnly)
	require.ErrorIs(t, err, domain.ErrEmptyStore)

	f.seed(t, refDay, eventAt("a", refDay), eventAt("b", refDay.Add(time.Hour)))
	got, err := f.repo.FetchAll(context.Background(), 1, domain.CacheOnly)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids(got))

	got, err = f.repo.FetchAll(context.Background(), 0, domain.CacheOnly)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 0, f.remote.calls())
}

func TestEventRepository_CacheThenNetwork(t *testing.T) {
	t.Run("fresh cache skips the network", func(t *testing.T) {
		f := newRepoFixture(t, time.Hour)
		f.seed(t, refDay.Add(-time.Minute), eventAt("cached", refDay))

		got, err := f.repo.FetchAll(context.Background(), 10, domain.CacheThenNetwork)
		require.NoError(t, err)
		assert.Equal(t, []string{"cached"}, ids(got))
		assert.Equal(t, 0, f.remote.calls())
	})

	t.Run("empty cache goes to the network", func(t *testing.T) {
		f := newRepoFixture(t, time.Hour)
		f.remote.results = rawEvents(t, eventAt("remote", refDay))

		got, err := f.repo.FetchAll(context.Background(), 10, domain.CacheThenNetwork)
		require.NoError(t, err)
		assert.Equal(t, []string{"remote"}, ids(got))
		assert.Equal(t, 1, f.remote.calls())
	})

	t.Run("stale cache goes to the network", func(t *testing.T) {
		f := newRepoFixture(t, time.Hour)
		f.seed(t, refDay.Add(-2*time.Hour), eventAt("cached", refDay))
		f.remote.results = rawEvents(t, eventAt("remote", refDay))

		got, err := f.repo.FetchAll(context.Background(), 10, domain.CacheThenNetwork)
		require.NoError(t, err)
		assert.Equal(t, []string{"remote"}, ids(got))
	})

	t.Run("stale cache is served when the network is down", func(t *testing.T) {
		f := newRepoFixture(t, time.Hour)
		f.seed(t, refDay.Add(-2*time.Hour), eventAt("cached", refDay))
		f.remote.err = noConnectivity()

		got, err := f.repo.FetchAll(context.Background(), 10, domain.CacheThenNetwork)
		require.NoError(t, err)
		assert.Equal(t, []string{"cached"}, ids(got))
	})
}

func TestEventRepository_FetchNextWindow(t *testing.T) {
	f := newRepoFixture(t, 0)
	midnight := time.Date(2022, 2, 14, 0, 0, 0, 0, time.UTC)
	cancelled := eventAt("cancelled", midnight.Add(30*time.Hour))
	cancelled.Status = domain.StatusCancelled
	f.remote.results = rawEvents(t,
		eventAt("yesterday", midnight.Add(-time.Hour)),
		eventAt("today", midnight),
		cancelled,
		eventAt("day+2", midnight.AddDate(0, 0, 2).Add(23*time.Hour)),
		eventAt("day+3", midnight.AddDate(0, 0, 3)),
	)

	got, err := f.repo.FetchNext(context.Background(), 100, 2, domain.NetworkThenCache)
	require.NoError(t, err)
	assert.Equal(t, []string{"day+2", "today"}, ids(got))
	assert.Equal(t, 5, f.cache.Len(), "the unsliced result is cached")

	require.Len(t, f.remote.queries, 1)
	values, err := f.remote.queries[0].Values()
	require.NoError(t, err)
	assert.Equal(t, "100", values.Get("limit"))
	assert.JSONEq(t, `{"startDate":{
		"$gte":{"__type":"Date","iso":"2022-02-14T00:00:00.000Z"},
		"$lt":{"__type":"Date","iso":"2022-02-17T00:00:00.000Z"}}}`, values.Get("where"))
}

func TestEventRepository_FetchByQuery(t *testing.T) {
	valid := rawEvents(t, eventAt("jazz", refDay))
	invalid := json.RawMessage(`{"objectId":"bad","eventStatus":"exploded"}`)

	t.Run("strict decoding aborts", func(t *testing.T) {
		f := newRepoFixture(t, 0)
		f.remote.searchBody = searchBody(t, valid[0], invalid)

		_, err := f.repo.FetchByQuery(context.Background(), 10, "jazz", domain.NetworkThenCache)
		require.ErrorIs(t, err, domain.ErrJSONDecoding)
	})

	t.Run("raw mode drops invalid records", func(t *testing.T) {
		f := newRepoFixture(t, 0)
		f.remote.searchBody = searchBody(t, valid[0], invalid)

		got, err := f.repo.FetchByQuery(context.Background(), 10, "jazz", domain.NetworkThenCache, domain.WithRawResults())
		require.NoError(t, err)
		assert.Equal(t, []string{"jazz"}, ids(got))

		require.Len(t, f.remote.params, 1)
		params := f.remote.params[0].(domain.SearchParameters)
		assert.True(t, params.Raw)
		assert.Equal(t, "jazz", params.Query)
		assert.Equal(t, domain.DefaultSearchIndex, params.Index)
		assert.Equal(t, []string{domain.SearchFunctionName}, f.remote.functions)
	})

	t.Run("remote hits are returned as matched by the index", func(t *testing.T) {
		f := newRepoFixture(t, 0)
		hit := eventAt("e1", refDay)
		hit.Name = "Konzert im Park"
		hit.Location = &domain.Location{Address: &domain.Address{Name: "Jazzhaus"}}
		f.remote.searchBody = searchBody(t, rawEvents(t, hit)...)

		for _, strategy := range []domain.CachingStrategy{domain.NetworkOnly, domain.NetworkThenCache} {
			got, err := f.repo.FetchByQuery(context.Background(), 10, "jazzhaus", strategy)
			require.NoError(t, err, strategy.String())
			assert.Equal(t, []string{"e1"}, ids(got), strategy.String())
		}
	})

	t.Run("cache fallback matches locally", func(t *testing.T) {
		f := newRepoFixture(t, 0)
		jazz := eventAt("jazz", refDay)
		jazz.Tags = []string{"Jazz"}
		f.seed(t, refDay, jazz, eventAt("rock", refDay))
		f.remote.err = noConnectivity()

		got, err := f.repo.FetchByQuery(context.Background(), 10, "jazz", domain.NetworkThenCache)
		require.NoError(t, err)
		assert.Equal(t, []string{"jazz"}, ids(got))
	})
}

func TestEventRepository_CancellationDoesNotWriteCache(t *testing.T) {
	f := newRepoFixture(t, 0)
	f.remote.block = true

	ctx, cancel := context.WithCancel(context.Background())
	call := Start(ctx, func(ctx context.Context) ([]domain.Event, error) {
		return f.repo.FetchAll(ctx, 10, domain.NetworkThenCache)
	})
	require.Eventually(t, func() bool { return f.remote.calls() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	_, err := call.Wait()
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, f.cache.Len())
}

func TestEventRepository_SessionTokenFromContext(t *testing.T) {
	f := newRepoFixture(t, 0)
	f.remote.results = rawEvents(t)
	f.remote.searchBody = searchBody(t)

	ctx := domain.WithSessionToken(context.Background(), "r:session")
	_, err := f.repo.FetchAll(ctx, 10, domain.NetworkOnly)
	require.NoError(t, err)
	_, err = f.repo.FetchByQuery(ctx, 10, "x", domain.NetworkOnly)
	require.NoError(t, err)

	assert.Equal(t, []string{"r:session", "r:session"}, f.remote.tokens)
}

func TestEventRepository_FetchByID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		f := newRepoFixture(t, 0)
		f.remote.results = rawEvents(t, eventAt("a", refDay))

		got, err := f.repo.FetchByID(context.Background(), "a")
		require.NoError(t, err)
		assert.Equal(t, "a", got.ID)
		assert.True(t, f.cache.Contains("a"))
		assert.Equal(t, 1, f.remote.queries[0].Limit)
	})

	t.Run("not found", func(t *testing.T) {
		f := newRepoFixture(t, 0)
		f.remote.results = rawEvents(t)

		_, err := f.repo.FetchByID(context.Background(), "a")
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("cache fallback", func(t *testing.T) {
		f := newRepoFixture(t, 0)
		f.seed(t, refDay, eventAt("a", refDay))
		f.remote.err = noConnectivity()

		got, err := f.repo.FetchByID(context.Background(), "a")
		require.NoError(t, err)
		assert.Equal(t, "a", got.ID)

		_, err = f.repo.FetchByID(context.Background(), "b")
		require.ErrorIs(t, err, domain.ErrNoConnectivity)
	})

	t.Run("empty id", func(t *testing.T) {
		f := newRepoFixture(t, 0)
		_, err := f.repo.FetchByID(context.Background(), "")
		require.ErrorIs(t, err, domain.ErrMissingIdentifier)
	})
}

func TestEventRepository_FetchByIDs(t *testing.T) {
	f := newRepoFixture(t, 0)
	f.remote.searchBody = searchBody(t, rawEvents(t, eventAt("a", refDay), eventAt("b", refDay.Add(time.Hour)))...)

	got, err := f.repo.FetchByIDs(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, ids(got))
	params := f.remote.params[0].(domain.SearchParameters)
	assert.Equal(t, []string{"a", "b"}, params.ObjectIDs)

	got, err = f.repo.FetchByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEventRepository_CountToday(t *testing.T) {
	t.Run("remote count", func(t *testing.T) {
		f := newRepoFixture(t, 0)
		n := 4
		f.remote.count = &n

		got, err := f.repo.CountToday(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 4, got)
		assert.True(t, f.remote.queries[0].Count)
		assert.Equal(t, 0, f.remote.queries[0].Limit)
	})

	t.Run("cache fallback pins the day boundaries", func(t *testing.T) {
		f := newRepoFixture(t, 0)
		midnight := time.Date(2022, 2, 14, 0, 0, 0, 0, time.UTC)
		next := midnight.AddDate(0, 0, 1)

		endsAtMidnight := eventAt("ends-at-midnight", midnight.Add(-2*time.Hour))
		endsAtMidnight.EndDate = domain.NewParseDate(midnight)
		spansDay := eventAt("spans-day", midnight.Add(-time.Hour))
		spansDay.EndDate = domain.NewParseDate(midnight.Add(time.Hour))
		startsAtMidnight := eventAt("starts-at-midnight", midnight)
		startsNextMidnight := eventAt("starts-next-midnight", next)
		multiDay := eventAt("multi-day", midnight.AddDate(0, 0, -3))
		multiDay.EndDate = domain.NewParseDate(next.AddDate(0, 0, 3))

		f.seed(t, refDay, endsAtMidnight, spansDay, startsAtMidnight, startsNextMidnight, multiDay)
		f.remote.err = noConnectivity()

		got, err := f.repo.CountToday(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 3, got, "spans-day, starts-at-midnight and multi-day")
	})
}

func TestEventRepository_CountByQuery(t *testing.T) {
	f := newRepoFixture(t, 0)
	f.remote.searchBody = json.RawMessage(`{"result":{"count":12}}`)

	got, err := f.repo.CountByQuery(context.Background(), "jazz")
	require.NoError(t, err)
	assert.Equal(t, 12, got)
	assert.Equal(t, []string{domain.SearchCountFunctionName}, f.remote.functions)
	params := f.remote.params[0].(domain.SearchParameters)
	assert.Nil(t, params.From)
	assert.Nil(t, params.Size)

	f.remote.searchBody = json.RawMessage(`{"result":{}}`)
	_, err = f.repo.CountByQuery(context.Background(), "jazz")
	require.ErrorIs(t, err, domain.ErrInvalidResponse)
}
