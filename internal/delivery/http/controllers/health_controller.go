package controllers

import (
	"net/http"

	"eventcatalog/internal/delivery/http/helpers"
)

// HealthResponse is the data of GET /health.
type HealthResponse struct {
	Status        string `json:"status"`
	CachedEvents  int    `json:"cachedEvents"`
	WatchedEvents int    `json:"watchedEvents"`
}

// Sizer reports the number of entries of a local collection.
type Sizer interface {
	Len() int
}

type HealthController struct {
	Cache     Sizer
	Watchlist Sizer
}

func NewHealthController(cache, watchlist Sizer) *HealthController {
	return &HealthController{Cache: cache, Watchlist: watchlist}
}

// Health godoc
// @Summary Liveness probe
// @Description Reports the sizes of the local event cache and watchlist.
// @Tags health
// @Produce json
// @Success 200 {object} helpers.APIResponse
// @Router /health [get]
func (c *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok"}
	if c.Cache != nil {
		resp.CachedEvents = c.Cache.Len()
	}
	if c.Watchlist != nil {
		resp.WatchedEvents = c.Watchlist.Len()
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, resp)
}
