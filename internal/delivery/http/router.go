package http

import (
	"log/slog"
	"net/http"

	"eventcatalog/internal/delivery/http/controllers"
	"eventcatalog/internal/delivery/http/middleware"
	"eventcatalog/internal/domain"

	httpSwagger "github.com/swaggo/http-swagger"
)

// Controllers groups the route handlers.
type Controllers struct {
	Events    *controllers.EventController
	Watchlist *controllers.WatchlistController
	Session   *controllers.SessionController
	Health    *controllers.HealthController
}

// NewRouter initializes the HTTP router with all application routes
func NewRouter(c Controllers) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", c.Health.Health)

	// Events
	mux.HandleFunc("GET /events", c.Events.ListEvents)
	mux.HandleFunc("GET /events/today", c.Events.ListToday)
	mux.HandleFunc("GET /events/next", c.Events.ListNext)
	mux.HandleFunc("GET /events/search", c.Events.Search)
	mux.HandleFunc("GET /events/search/count", c.Events.SearchCount)
	mux.HandleFunc("GET /events/count/today", c.Events.CountToday)
	mux.HandleFunc("GET /events/{eventID}", c.Events.GetEventByID)

	// Watchlist
	mux.HandleFunc("GET /watchlist", c.Watchlist.GetWatchlist)
	mux.HandleFunc("POST /watchlist", c.Watchlist.AddToWatchlist)
	mux.HandleFunc("GET /watchlist/events", c.Watchlist.GetWatchedEvents)
	mux.HandleFunc("GET /watchlist/calendar.ics", c.Watchlist.ExportCalendar)
	mux.HandleFunc("GET /watchlist/{eventID}", c.Watchlist.GetWatchStatus)
	mux.HandleFunc("DELETE /watchlist/{eventID}", c.Watchlist.RemoveFromWatchlist)

	// Session
	mux.HandleFunc("POST /session", c.Session.CreateSession)

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}

// NewHandler wraps the router with the middleware chain. Outermost first:
// request id, CORS, request logging, bearer session auth.
func NewHandler(mux http.Handler, logger *slog.Logger, verifier domain.TokenVerifier, allowedOrigins []string) http.Handler {
	var h http.Handler = mux
	h = middleware.SessionAuth(verifier, logger, h)
	h = middleware.LoggingMiddleware(logger, h)
	h = middleware.CORS(allowedOrigins, h)
	return middleware.RequestID(h)
}
