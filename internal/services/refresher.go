package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"eventcatalog/internal/domain"
)

// DefaultRefreshSchedule refreshes the cache every 15 minutes.
const DefaultRefreshSchedule = "*/15 * * * *"

// CacheRefresher keeps the event cache warm by periodically fetching the
// upcoming events with NetworkThenCache.
type CacheRefresher struct {
	repo        domain.EventRepository
	maxCount    int
	horizonDays int
	logger      *slog.Logger

	cron *cron.Cron

	mu      sync.Mutex
	running *Call[[]domain.Event]
}

// NewCacheRefresher schedules refreshes of the next horizonDays days.
func NewCacheRefresher(repo domain.EventRepository, schedule string, maxCount, horizonDays int, logger *slog.Logger) (*CacheRefresher, error) {
	if schedule == "" {
		schedule = DefaultRefreshSchedule
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &CacheRefresher{
		repo:        repo,
		maxCount:    maxCount,
		horizonDays: horizonDays,
		logger:      logger,
		cron:        cron.New(),
	}
	if _, err := r.cron.AddFunc(schedule, func() { r.Refresh(context.Background()) }); err != nil {
		return nil, fmt.Errorf("parse refresh schedule %q: %w", schedule, err)
	}
	return r, nil
}

// Start begins running scheduled refreshes.
func (r *CacheRefresher) Start() {
	r.cron.Start()
}

// Stop halts the schedule and cancels an in-flight refresh.
func (r *CacheRefresher) Stop() {
	ctx := r.cron.Stop()
	r.mu.Lock()
	if r.running != nil {
		r.running.Cancel()
	}
	r.mu.Unlock()
	<-ctx.Done()
}

// Refresh runs one refresh and waits for it. A refresh that is already in
// flight is joined instead of starting another.
func (r *CacheRefresher) Refresh(ctx context.Context) (int, error) {
	r.mu.Lock()
	call := r.running
	if call == nil {
		call = Start(ctx, func(ctx context.Context) ([]domain.Event, error) {
			return r.repo.FetchNext(ctx, r.maxCount, r.horizonDays, domain.NetworkThenCache)
		})
		r.running = call
	}
	r.mu.Unlock()

	events, err := call.Wait()

	r.mu.Lock()
	if r.running == call {
		r.running = nil
	}
	r.mu.Unlock()

	if err != nil {
		r.logger.Warn("cache refresh failed", "error", err)
		return 0, err
	}
	r.logger.Info("cache refreshed", "events", len(events), "horizon_days", r.horizonDays)
	return len(events), nil
}
