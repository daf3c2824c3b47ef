package controllers

import (
	"log/slog"
	"net/http"
	"strings"

	"eventcatalog/internal/delivery/http/helpers"
	"eventcatalog/internal/domain"
)

// EventListResponse is the data of every event list endpoint.
type EventListResponse struct {
	Events []domain.Event `json:"events"`
	Count  int            `json:"count"`
}

// EventListSuccessResponse is the success response envelope for event lists (200).
type EventListSuccessResponse struct {
	Data  EventListResponse `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// EventSuccessResponse is the success response envelope for a single event (200).
type EventSuccessResponse struct {
	Data  *domain.Event     `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// CountResponse is the data of the count endpoints.
type CountResponse struct {
	Count int `json:"count"`
}

// CountSuccessResponse is the success response envelope for counts (200).
type CountSuccessResponse struct {
	Data  CountResponse     `json:"data"`
	Error *helpers.APIError `json:"error"`
}

type EventController struct {
	Logger *slog.Logger
	Events domain.EventRepository
}

func NewEventController(logger *slog.Logger, events domain.EventRepository) *EventController {
	return &EventController{
		Logger: logger,
		Events: events,
	}
}

// listParams are the query parameters shared by the list endpoints.
type listParams struct {
	maxCount int
	strategy domain.CachingStrategy
}

func parseListParams(w http.ResponseWriter, r *http.Request) (listParams, bool) {
	maxCount, err := helpers.ParseIntParam(r, "maxCount", helpers.DefaultMaxCount, helpers.MaxMaxCount)
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
		return listParams{}, false
	}
	strategy, err := helpers.ParseStrategy(r)
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
		return listParams{}, false
	}
	return listParams{maxCount: maxCount, strategy: strategy}, true
}

func (c *EventController) writeList(w http.ResponseWriter, r *http.Request, events []domain.Event, err error) {
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	if events == nil {
		events = []domain.Event{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, EventListResponse{Events: events, Count: len(events)})
}

// ListEvents godoc
// @Summary List upcoming events
// @Description Events starting today or later, ordered by start date.
// @Tags events
// @Produce json
// @Param maxCount query int false "Maximum number of events (default 100, max 1000)"
// @Param strategy query string false "networkOnly, cacheOnly, networkThenCache (default) or cacheThenNetwork"
// @Success 200 {object} controllers.EventListSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: empty_store"
// @Failure 502 {object} helpers.APIResponse "error.code: upstream_failure"
// @Failure 503 {object} helpers.APIResponse "error.code: service_unavailable"
// @Router /events [get]
func (c *EventController) ListEvents(w http.ResponseWriter, r *http.Request) {
	p, ok := parseListParams(w, r)
	if !ok {
		return
	}
	events, err := c.Events.FetchAll(r.Context(), p.maxCount, p.strategy)
	c.writeList(w, r, events, err)
}

// ListToday godoc
// @Summary List today's events
// @Description Events starting today, excluding cancelled events.
// @Tags events
// @Produce json
// @Param maxCount query int false "Maximum number of events (default 100, max 1000)"
// @Param strategy query string false "Caching strategy"
// @Success 200 {object} controllers.EventListSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: empty_store"
// @Failure 502 {object} helpers.APIResponse "error.code: upstream_failure"
// @Failure 503 {object} helpers.APIResponse "error.code: service_unavailable"
// @Router /events/today [get]
func (c *EventController) ListToday(w http.ResponseWriter, r *http.Request) {
	p, ok := parseListParams(w, r)
	if !ok {
		return
	}
	events, err := c.Events.FetchToday(r.Context(), p.maxCount, p.strategy)
	c.writeList(w, r, events, err)
}

// ListNext godoc
// @Summary List events of the next days
// @Description Events from today up to the end of the day nextDays later.
// @Tags events
// @Produce json
// @Param maxCount query int false "Maximum number of events (default 100, max 1000)"
// @Param nextDays query int false "Number of days after today (default 7, max 365)"
// @Param strategy query string false "Caching strategy"
// @Success 200 {object} controllers.EventListSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: empty_store"
// @Failure 502 {object} helpers.APIResponse "error.code: upstream_failure"
// @Failure 503 {object} helpers.APIResponse "error.code: service_unavailable"
// @Router /events/next [get]
func (c *EventController) ListNext(w http.ResponseWriter, r *http.Request) {
	p, ok := parseListParams(w, r)
	if !ok {
		return
	}
	nextDays, err := helpers.ParseIntParam(r, "nextDays", helpers.DefaultNextDays, helpers.MaxNextDays)
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
		return
	}
	events, err := c.Events.FetchNext(r.Context(), p.maxCount, nextDays, p.strategy)
	c.writeList(w, r, events, err)
}

func searchQuery(w http.ResponseWriter, r *http.Request) (string, bool) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "q is required")
		return "", false
	}
	return q, true
}

// Search godoc
// @Summary Search events
// @Description Full text search over the event index. With raw=true records failing validation are dropped instead of failing the request.
// @Tags events
// @Produce json
// @Param q query string true "Search text"
// @Param maxCount query int false "Maximum number of events (default 100, max 1000)"
// @Param raw query bool false "Best-effort decoding"
// @Param strategy query string false "Caching strategy"
// @Success 200 {object} controllers.EventListSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: empty_store"
// @Failure 502 {object} helpers.APIResponse "error.code: upstream_failure"
// @Failure 503 {object} helpers.APIResponse "error.code: service_unavailable"
// @Router /events/search [get]
func (c *EventController) Search(w http.ResponseWriter, r *http.Request) {
	q, ok := searchQuery(w, r)
	if !ok {
		return
	}
	p, ok := parseListParams(w, r)
	if !ok {
		return
	}
	raw, err := helpers.ParseBoolParam(r, "raw")
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
		return
	}
	var opts []domain.QueryOption
	if raw {
		opts = append(opts, domain.WithRawResults())
	}
	events, err := c.Events.FetchByQuery(r.Context(), p.maxCount, q, p.strategy, opts...)
	c.writeList(w, r, events, err)
}

// SearchCount godoc
// @Summary Count search results
// @Tags events
// @Produce json
// @Param q query string true "Search text"
// @Success 200 {object} controllers.CountSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 502 {object} helpers.APIResponse "error.code: upstream_failure"
// @Failure 503 {object} helpers.APIResponse "error.code: service_unavailable"
// @Router /events/search/count [get]
func (c *EventController) SearchCount(w http.ResponseWriter, r *http.Request) {
	q, ok := searchQuery(w, r)
	if !ok {
		return
	}
	n, err := c.Events.CountByQuery(r.Context(), q)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, CountResponse{Count: n})
}

// CountToday godoc
// @Summary Count events taking place today
// @Description Includes multi-day events overlapping today. Falls back to the cache when the catalog is unreachable.
// @Tags events
// @Produce json
// @Success 200 {object} controllers.CountSuccessResponse
// @Failure 404 {object} helpers.APIResponse "error.code: empty_store"
// @Failure 502 {object} helpers.APIResponse "error.code: upstream_failure"
// @Failure 503 {object} helpers.APIResponse "error.code: service_unavailable"
// @Router /events/count/today [get]
func (c *EventController) CountToday(w http.ResponseWriter, r *http.Request) {
	n, err := c.Events.CountToday(r.Context())
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, CountResponse{Count: n})
}

// GetEventByID godoc
// @Summary Get an event by ID
// @Description Falls back to the cache when the catalog is unreachable.
// @Tags events
// @Produce json
// @Param eventID path string true "Event ID"
// @Success 200 {object} controllers.EventSuccessResponse "data contains the event"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 502 {object} helpers.APIResponse "error.code: upstream_failure"
// @Failure 503 {object} helpers.APIResponse "error.code: service_unavailable"
// @Router /events/{eventID} [get]
func (c *EventController) GetEventByID(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	event, err := c.Events.FetchByID(r.Context(), eventID)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}
