package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"eventcatalog/internal/delivery/http/helpers"
	"eventcatalog/internal/domain"
)

// CalendarExporter renders events as an iCalendar document.
type CalendarExporter interface {
	Export(events []domain.Event) string
}

// AddWatchItemRequest is the request body for POST /watchlist.
type AddWatchItemRequest struct {
	EventID string `json:"eventId"`
}

// Validate implements Validator.
func (a AddWatchItemRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(a.EventID) == "" {
		errs = append(errs, "eventId is required")
	}
	return errs
}

// WatchlistResponse is the data of GET /watchlist.
type WatchlistResponse struct {
	Items      []domain.WatchItem     `json:"items"`
	Pagination helpers.PaginationMeta `json:"pagination"`
}

// WatchlistSuccessResponse is the success response envelope for GET /watchlist (200).
type WatchlistSuccessResponse struct {
	Data  WatchlistResponse `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// WatchStatusResponse is the data of GET /watchlist/{eventID}.
type WatchStatusResponse struct {
	EventID string `json:"eventId"`
	Watched bool   `json:"watched"`
}

// WatchStatusSuccessResponse is the success response envelope for GET /watchlist/{eventID} (200).
type WatchStatusSuccessResponse struct {
	Data  WatchStatusResponse `json:"data"`
	Error *helpers.APIError   `json:"error"`
}

// WatchItemSuccessResponse is the success response envelope for POST /watchlist (201).
type WatchItemSuccessResponse struct {
	Data  domain.WatchItem  `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// RemainingWatchlistSuccessResponse is the success response envelope for DELETE /watchlist/{eventID} (200).
type RemainingWatchlistSuccessResponse struct {
	Data  domain.Watchlist  `json:"data"`
	Error *helpers.APIError `json:"error"`
}

type WatchlistController struct {
	Logger    *slog.Logger
	Watchlist domain.WatchlistService
	Events    domain.EventRepository
	Calendar  CalendarExporter
	// MaxItems bounds how many watch items a single request reads.
	MaxItems int
}

func NewWatchlistController(logger *slog.Logger, watchlist domain.WatchlistService, events domain.EventRepository, calendar CalendarExporter, maxItems int) *WatchlistController {
	if maxItems <= 0 {
		maxItems = domain.DefaultWatchlistLimit
	}
	return &WatchlistController{
		Logger:    logger,
		Watchlist: watchlist,
		Events:    events,
		Calendar:  calendar,
		MaxItems:  maxItems,
	}
}

// GetWatchlist godoc
// @Summary List watched events
// @Description Watch items in insertion order, oldest first.
// @Tags watchlist
// @Produce json
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.WatchlistSuccessResponse
// @Failure 404 {object} helpers.APIResponse "error.code: empty_store"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /watchlist [get]
func (c *WatchlistController) GetWatchlist(w http.ResponseWriter, r *http.Request) {
	params := helpers.ParsePagination(r)
	list, err := c.Watchlist.Fetch(c.MaxItems)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, WatchlistResponse{
		Items:      domain.Paginate(list.Items, params),
		Pagination: helpers.NewPaginationMeta(params.Page, params.PageSize, len(list.Items)),
	})
}

// AddToWatchlist godoc
// @Summary Watch an event
// @Description Adding an already watched event keeps its position. The oldest item is evicted when the watchlist is full.
// @Tags watchlist
// @Accept json
// @Produce json
// @Param body body AddWatchItemRequest true "Event to watch"
// @Success 201 {object} controllers.WatchItemSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /watchlist [post]
func (c *WatchlistController) AddToWatchlist(w http.ResponseWriter, r *http.Request) {
	var req AddWatchItemRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	event, err := c.Watchlist.Add(r.Context(), domain.Event{ID: strings.TrimSpace(req.EventID)})
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, domain.WatchItem{ID: event.ID})
}

// GetWatchStatus godoc
// @Summary Check whether an event is watched
// @Tags watchlist
// @Produce json
// @Param eventID path string true "Event ID"
// @Success 200 {object} controllers.WatchStatusSuccessResponse
// @Router /watchlist/{eventID} [get]
func (c *WatchlistController) GetWatchStatus(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	watched := c.Watchlist.Contains(domain.Event{ID: eventID})
	helpers.WriteJSONSuccess(w, http.StatusOK, WatchStatusResponse{EventID: eventID, Watched: watched})
}

// RemoveFromWatchlist godoc
// @Summary Stop watching an event
// @Description Returns the remaining watchlist. Removing an unwatched event is not an error.
// @Tags watchlist
// @Produce json
// @Param eventID path string true "Event ID"
// @Success 200 {object} controllers.RemainingWatchlistSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /watchlist/{eventID} [delete]
func (c *WatchlistController) RemoveFromWatchlist(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	remaining, err := c.Watchlist.Remove(r.Context(), domain.Event{ID: eventID})
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	if remaining.Items == nil {
		remaining.Items = []domain.WatchItem{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, remaining)
}

// watchedEvents resolves the watch items to events. An empty watchlist yields no events.
func (c *WatchlistController) watchedEvents(r *http.Request) ([]domain.Event, error) {
	list, err := c.Watchlist.Fetch(c.MaxItems)
	if errors.Is(err, domain.ErrEmptyStore) {
		return []domain.Event{}, nil
	}
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(list.Items))
	for _, item := range list.Items {
		ids = append(ids, item.ID)
	}
	return c.Events.FetchByIDs(r.Context(), ids)
}

// GetWatchedEvents godoc
// @Summary Resolve watched events
// @Description Loads the events of the watchlist from the catalog, falling back to the cache.
// @Tags watchlist
// @Produce json
// @Success 200 {object} controllers.EventListSuccessResponse
// @Failure 502 {object} helpers.APIResponse "error.code: upstream_failure"
// @Failure 503 {object} helpers.APIResponse "error.code: service_unavailable"
// @Router /watchlist/events [get]
func (c *WatchlistController) GetWatchedEvents(w http.ResponseWriter, r *http.Request) {
	events, err := c.watchedEvents(r)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, EventListResponse{Events: events, Count: len(events)})
}

// ExportCalendar godoc
// @Summary Export the watchlist as iCalendar
// @Description One VEVENT per resolvable watched event. An empty watchlist yields an empty calendar.
// @Tags watchlist
// @Produce text/calendar
// @Success 200 {string} string "iCalendar document"
// @Failure 502 {object} helpers.APIResponse "error.code: upstream_failure"
// @Failure 503 {object} helpers.APIResponse "error.code: service_unavailable"
// @Router /watchlist/calendar.ics [get]
func (c *WatchlistController) ExportCalendar(w http.ResponseWriter, r *http.Request) {
	events, err := c.watchedEvents(r)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteCalendar(w, "watchlist.ics", c.Calendar.Export(events))
}
