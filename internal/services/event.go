package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"eventcatalog/internal/domain"
	"eventcatalog/internal/repository/bounded"
)

// CachedEvent is an event as kept in the local cache.
type CachedEvent struct {
	Event     domain.Event `json:"event"`
	FetchedAt time.Time    `json:"fetchedAt"`
}

// EventCache is the bounded store backing the event repository.
type EventCache = bounded.Store[string, CachedEvent]

// EventRepositoryConfig tunes the event repository. Zero values select defaults.
type EventRepositoryConfig struct {
	ClassName   string
	SearchIndex string
	// MaxAge marks the cache stale for CacheThenNetwork once its newest entry is
	// older than this. Zero keeps the cache fresh for as long as it is populated.
	MaxAge  time.Duration
	Timeout time.Duration
	Now     func() time.Time
	Logger  *slog.Logger
}

type eventRepository struct {
	remote         domain.RemoteCatalog
	cache          *EventCache
	className      string
	searchIndex    string
	maxAge         time.Duration
	contextTimeout time.Duration
	now            func() time.Time
	logger         *slog.Logger
}

// NewEventRepository returns a domain.EventRepository reading from remote and
// caching results in cache.
func NewEventRepository(remote domain.RemoteCatalog, cache *EventCache, cfg EventRepositoryConfig) domain.EventRepository {
	r := &eventRepository{
		remote:         remote,
		cache:          cache,
		className:      cfg.ClassName,
		searchIndex:    cfg.SearchIndex,
		maxAge:         cfg.MaxAge,
		contextTimeout: cfg.Timeout,
		now:            cfg.Now,
		logger:         cfg.Logger,
	}
	if r.className == "" {
		r.className = domain.EventClassName
	}
	if r.searchIndex == "" {
		r.searchIndex = domain.DefaultSearchIndex
	}
	if r.contextTimeout <= 0 {
		r.contextTimeout = 30 * time.Second
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// view turns the descending, unsliced event list into the requested result.
type view func(events []domain.Event) []domain.Event

// views holds the view applied to remote results and the one applied to
// results served from the cache.
type views struct {
	remote view
	cached view
}

func sameView(v view) views {
	return views{remote: v, cached: v}
}

func unshaped(events []domain.Event) []domain.Event {
	return events
}

func (r *eventRepository) FetchAll(ctx context.Context, maxCount int, strategy domain.CachingStrategy) ([]domain.Event, error) {
	now := r.now()
	remote := func(ctx context.Context) ([]domain.Event, error) {
		q := domain.UpcomingEventsQuery(maxCount, 0, now)
		return r.queryClass(ctx, q)
	}
	return r.fetch(ctx, "all", maxCount, strategy, remote, sameView(unshaped))
}

func (r *eventRepository) FetchToday(ctx context.Context, maxCount int, strategy domain.CachingStrategy) ([]domain.Event, error) {
	return r.FetchNext(ctx, maxCount, 0, strategy)
}

func (r *eventRepository) FetchNext(ctx context.Context, maxCount, nextDays int, strategy domain.CachingStrategy) ([]domain.Event, error) {
	now := r.now()
	remote := func(ctx context.Context) ([]domain.Event, error) {
		q := domain.WindowEventsQuery(maxCount, 0, domain.DayWindow(now, nextDays))
		return r.queryClass(ctx, q)
	}
	return r.fetch(ctx, "next", maxCount, strategy, remote, sameView(func(events []domain.Event) []domain.Event {
		return FilterCancelled(SliceByDate(now, nextDays, events))
	}))
}

func (r *eventRepository) FetchByQuery(ctx context.Context, maxCount int, query string, strategy domain.CachingStrategy, opts ...domain.QueryOption) ([]domain.Event, error) {
	var o domain.QueryOptions
	for _, opt := range opts {
		opt(&o)
	}
	remote := func(ctx context.Context) ([]domain.Event, error) {
		params := domain.NewSearchParameters(domain.SearchRequest{
			Index: r.searchIndex,
			Query: query,
			Limit: maxCount,
			Raw:   o.Raw,
		})
		return r.search(ctx, params, o.Raw)
	}
	// the index already matched remote hits; only cached events are matched locally
	return r.fetch(ctx, "query", maxCount, strategy, remote, views{
		remote: unshaped,
		cached: func(events []domain.Event) []domain.Event {
			return matchQuery(query, events)
		},
	})
}

func (r *eventRepository) FetchByID(ctx context.Context, id string) (*domain.Event, error) {
	if id == "" {
		return nil, domain.ErrMissingIdentifier
	}
	ctx, cancel := context.WithTimeout(ctx, r.contextTimeout)
	defer cancel()

	events, err := r.queryClass(ctx, withSession(ctx, domain.EventByIDQuery(id)))
	if err != nil {
		if errors.Is(err, context.Canceled) || !domain.IsFallbackEligible(err) {
			return nil, err
		}
		if cached, ok := r.cache.Get(id); ok {
			r.logger.Info("serving event from cache", "id", id, "error", err)
			e := cached.Event
			return &e, nil
		}
		return nil, err
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("event %q: %w", id, domain.ErrNotFound)
	}
	if cancelled(ctx) {
		return nil, ctx.Err()
	}
	r.store(ctx, events[:1])
	return &events[0], nil
}

func (r *eventRepository) FetchByIDs(ctx context.Context, ids []string) ([]domain.Event, error) {
	if len(ids) == 0 {
		return []domain.Event{}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, r.contextTimeout)
	defer cancel()

	params := domain.NewSearchParameters(domain.SearchRequest{
		Index: r.searchIndex,
		Limit: len(ids),
		IDs:   ids,
	})
	events, err := r.search(ctx, params, false)
	if err != nil {
		if errors.Is(err, context.Canceled) || !domain.IsFallbackEligible(err) {
			return nil, err
		}
		var cached []domain.Event
		for _, id := range ids {
			if c, ok := r.cache.Get(id); ok {
				cached = append(cached, c.Event)
			}
		}
		if len(cached) == 0 {
			return nil, err
		}
		r.logger.Info("serving events by id from cache", "requested", len(ids), "cached", len(cached), "error", err)
		SortByStartDateDescending(cached)
		return cached, nil
	}
	if cancelled(ctx) {
		return nil, ctx.Err()
	}
	SortByStartDateDescending(events)
	r.store(ctx, events)
	return events, nil
}

func (r *eventRepository) CountToday(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.contextTimeout)
	defer cancel()

	now := r.now()
	res, err := r.remote.QueryClass(ctx, r.className, withSession(ctx, domain.SameDayCountQuery(now)))
	if err != nil {
		err = translate(err)
		if errors.Is(err, context.Canceled) || !domain.IsFallbackEligible(err) {
			return 0, err
		}
		cached, cerr := r.cachedEvents()
		if cerr != nil {
			return 0, err
		}
		return countSameDay(now, cached), nil
	}
	if res.Count == nil {
		return 0, domain.ErrInvalidResponse
	}
	return *res.Count, nil
}

func (r *eventRepository) CountByQuery(ctx context.Context, query string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.contextTimeout)
	defer cancel()

	params := domain.NewSearchCountParameters(domain.SearchRequest{Index: r.searchIndex, Query: query})
	raw, err := r.remote.CallFunction(ctx, domain.SearchCountFunctionName, params, domain.SessionTokenFromContext(ctx))
	if err != nil {
		return 0, translate(err)
	}
	var res domain.SearchCountResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return 0, &domain.JSONDecodingError{Err: err}
	}
	if res.Result == nil || res.Result.Count == nil {
		return 0, domain.ErrInvalidResponse
	}
	return *res.Result.Count, nil
}

// fetch runs one repository call under the given caching strategy.
func (r *eventRepository) fetch(ctx context.Context, op string, maxCount int, strategy domain.CachingStrategy, remote func(context.Context) ([]domain.Event, error), shape views) ([]domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, r.contextTimeout)
	defer cancel()

	switch strategy {
	case domain.NetworkOnly:
		events, err := remote(ctx)
		if err != nil {
			return nil, err
		}
		SortByStartDateDescending(events)
		return limit(shape.remote(events), maxCount), nil

	case domain.CacheOnly:
		cached, err := r.cachedEvents()
		if err != nil {
			return nil, err
		}
		return limit(shape.cached(cached), maxCount), nil

	case domain.CacheThenNetwork:
		if cached, err := r.cachedEvents(); err == nil && !r.stale(cached) {
			return limit(shape.cached(cached), maxCount), nil
		}
		return r.networkThenCache(ctx, op, maxCount, remote, shape)

	case domain.NetworkThenCache:
		return r.networkThenCache(ctx, op, maxCount, remote, shape)
	}
	return nil, fmt.Errorf("%w: unknown caching strategy %s", domain.ErrInvalidRequest, strategy)
}

func (r *eventRepository) networkThenCache(ctx context.Context, op string, maxCount int, remote func(context.Context) ([]domain.Event, error), shape views) ([]domain.Event, error) {
	events, err := remote(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || !domain.IsFallbackEligible(err) {
			return nil, err
		}
		cached, cerr := r.cachedEvents()
		if cerr != nil {
			return nil, err
		}
		r.logger.Info("remote fetch failed, serving cache", "op", op, "cached", len(cached), "error", err)
		return limit(shape.cached(cached), maxCount), nil
	}
	if cancelled(ctx) {
		return nil, ctx.Err()
	}
	SortByStartDateDescending(events)
	r.store(ctx, events)
	return limit(shape.remote(events), maxCount), nil
}

// queryClass runs q against the event class and strictly decodes the results.
func (r *eventRepository) queryClass(ctx context.Context, q domain.ClassQuery) ([]domain.Event, error) {
	res, err := r.remote.QueryClass(ctx, r.className, withSession(ctx, q))
	if err != nil {
		return nil, translate(err)
	}
	return decodeEvents(res.Results, false, r.logger)
}

// search calls the search function. Raw mode drops records that fail validation.
func (r *eventRepository) search(ctx context.Context, params domain.SearchParameters, raw bool) ([]domain.Event, error) {
	body, err := r.remote.CallFunction(ctx, domain.SearchFunctionName, params, domain.SessionTokenFromContext(ctx))
	if err != nil {
		return nil, translate(err)
	}
	var res domain.SearchResult
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, &domain.JSONDecodingError{Err: err}
	}
	if res.Result == nil {
		return nil, fmt.Errorf("%w: search result missing", domain.ErrInvalidResponse)
	}
	return decodeEvents(res.Result, raw, r.logger)
}

func decodeEvents(records []json.RawMessage, bestEffort bool, logger *slog.Logger) ([]domain.Event, error) {
	events := make([]domain.Event, 0, len(records))
	dropped := 0
	for _, rec := range records {
		e, err := domain.DecodeEvent(rec)
		if err != nil {
			if !bestEffort {
				return nil, &domain.JSONDecodingError{Err: err}
			}
			dropped++
			continue
		}
		events = append(events, e)
	}
	if dropped > 0 {
		logger.Warn("dropped undecodable events", "dropped", dropped, "kept", len(events))
	}
	return events, nil
}

// cachedEvents returns the cached events sorted descending.
func (r *eventRepository) cachedEvents() ([]domain.Event, error) {
	cached, err := r.cache.FetchAll(r.cache.Capacity())
	if err != nil {
		return nil, err
	}
	events := make([]domain.Event, 0, len(cached))
	for _, c := range cached {
		events = append(events, c.Event)
	}
	SortByStartDateDescending(events)
	return events, nil
}

func (r *eventRepository) stale(events []domain.Event) bool {
	if r.maxAge <= 0 {
		return false
	}
	var newest time.Time
	for _, e := range events {
		if c, ok := r.cache.Get(e.ID); ok && c.FetchedAt.After(newest) {
			newest = c.FetchedAt
		}
	}
	return r.now().Sub(newest) > r.maxAge
}

// store writes events with an id through to the cache. The write outlives the
// call deadline. A failed write is logged; the remote result is still returned
// to the caller.
func (r *eventRepository) store(ctx context.Context, events []domain.Event) {
	ctx = context.WithoutCancel(ctx)
	fetchedAt := r.now()
	entries := make([]bounded.Entry[string, CachedEvent], 0, len(events))
	for _, e := range events {
		if !e.HasID() {
			continue
		}
		entries = append(entries, bounded.Entry[string, CachedEvent]{Key: e.ID, Value: CachedEvent{Event: e, FetchedAt: fetchedAt}})
	}
	if err := r.cache.PutAll(ctx, entries); err != nil {
		r.logger.Error("event cache write failed", "events", len(entries), "error", err)
	}
}

// cancelled reports whether the caller gave up on the call.
func cancelled(ctx context.Context) bool {
	return errors.Is(ctx.Err(), context.Canceled)
}

func withSession(ctx context.Context, q domain.ClassQuery) domain.ClassQuery {
	q.SessionToken = domain.SessionTokenFromContext(ctx)
	return q
}

func limit(events []domain.Event, maxCount int) []domain.Event {
	if maxCount <= 0 {
		return []domain.Event{}
	}
	if len(events) > maxCount {
		return events[:maxCount]
	}
	return events
}

// matchQuery is the local stand-in for the search index: a case-insensitive
// substring match over the text fields. An empty query matches everything.
func matchQuery(query string, events []domain.Event) []domain.Event {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return events
	}
	out := make([]domain.Event, 0, len(events))
	for _, e := range events {
		fields := append([]string{e.Name, e.Description, e.Category, e.Subcategory}, e.Tags...)
		for _, f := range fields {
			if strings.Contains(strings.ToLower(f), q) {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

// countSameDay counts events taking place on day: events without an end date
// that start during the day, and events overlapping it. An event ending
// exactly at midnight does not count for the following day.
func countSameDay(day time.Time, events []domain.Event) int {
	w := domain.DayWindow(day, 0)
	n := 0
	for _, e := range events {
		start, ok := e.Start()
		if !ok {
			continue
		}
		if e.EndDate == nil {
			if w.Contains(start) {
				n++
			}
			continue
		}
		if start.Before(w.End) && e.EndDate.After(w.Start) {
			n++
		}
	}
	return n
}
