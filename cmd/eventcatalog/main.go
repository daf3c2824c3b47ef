package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eventcatalog/config"
	_ "eventcatalog/docs"
	"eventcatalog/internal/adapters/auth"
	"eventcatalog/internal/adapters/calendar"
	"eventcatalog/internal/adapters/parse"
	delivery "eventcatalog/internal/delivery/http"
	"eventcatalog/internal/delivery/http/controllers"
	"eventcatalog/internal/domain"
	"eventcatalog/internal/repository/bounded"
	"eventcatalog/internal/repository/memory"
	mongostore "eventcatalog/internal/repository/mongo"
	"eventcatalog/internal/repository/postgres"
	"eventcatalog/internal/repository/sqlite"
	"eventcatalog/internal/services"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

const shutdownTimeout = 10 * time.Second

// @title Event Catalog API
// @version 1.0
// @description Cached event catalog and persistent watchlist.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	logger := config.NewLogger()
	if err := run(logger); err != nil {
		logger.Error("eventcatalog stopped", "err", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storage, closeStorage, err := openStorage(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer closeStorage()
	logger.Info("storage ready", "driver", cfg.Storage.Driver)

	eventCache, err := bounded.New[string, services.CachedEvent](ctx, storage, domain.EventCacheKey, cfg.Cache.EventCapacity, bounded.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("load event cache: %w", err)
	}
	watchStore, err := bounded.New[string, domain.WatchItem](ctx, storage, domain.WatchlistKey, cfg.Cache.WatchlistCapacity, bounded.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("load watchlist: %w", err)
	}
	if n, err := services.MigrateLegacyWatchlist(ctx, storage, watchStore); err != nil {
		logger.Warn("legacy watchlist migration failed", "err", err)
	} else if n > 0 {
		logger.Info("migrated legacy watchlist", "items", n)
	}
	if n, err := services.MigrateLegacyEventCache(ctx, storage, eventCache, time.Now()); err != nil {
		logger.Warn("legacy event cache migration failed", "err", err)
	} else if n > 0 {
		logger.Info("migrated legacy event cache", "events", n)
	}

	client := parse.NewClient(parse.Config{
		BaseURL:       cfg.Catalog.BaseURL,
		ApplicationID: cfg.Catalog.AppID,
		ClientKey:     cfg.Catalog.ClientKey,
		Timeout:       cfg.Catalog.Timeout,
	}, parse.WithLogger(logger))

	events := services.NewEventRepository(client, eventCache, services.EventRepositoryConfig{
		ClassName:   cfg.Catalog.EventClass,
		SearchIndex: cfg.Catalog.SearchIndex,
		MaxAge:      cfg.Cache.MaxAge,
		Timeout:     cfg.Catalog.Timeout,
		Now:         func() time.Time { return time.Now().In(loc) },
		Logger:      logger,
	})
	watchlist := services.NewWatchlistService(watchStore, logger)

	refresher, err := services.NewCacheRefresher(events, cfg.Cache.RefreshCron, cfg.Cache.EventCapacity, cfg.Cache.RefreshHorizon, logger)
	if err != nil {
		return err
	}
	refresher.Start()
	defer refresher.Stop()

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		secret = uuid.NewString()
		logger.Warn("JWT_SECRET not set, issued tokens will not survive a restart")
	}
	tokens := auth.NewJWT(secret)

	mux := delivery.NewRouter(delivery.Controllers{
		Events:    controllers.NewEventController(logger, events),
		Watchlist: controllers.NewWatchlistController(logger, watchlist, events, calendar.NewExporter(calendar.DefaultProductID, "eventcatalog"), cfg.Cache.WatchlistCapacity),
		Session:   controllers.NewSessionController(logger, tokens, cfg.Auth.TokenExpiry),
		Health:    controllers.NewHealthController(eventCache, watchStore),
	})
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           delivery.NewHandler(mux, logger, tokens, cfg.CORSAllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", server.Addr, "env", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// openStorage opens the configured blob storage and returns its closer.
func openStorage(ctx context.Context, cfg config.StorageConfig) (domain.BlobStorage, func(), error) {
	switch cfg.Driver {
	case config.StorageMemory:
		return memory.NewBlobStorage(), func() {}, nil
	case config.StorageSQLite:
		s, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	case config.StoragePostgres:
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("ping postgres: %w", err)
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
		return postgres.NewBlobStorage(db), func() { _ = db.Close() }, nil
	case config.StorageMongo:
		s, err := mongostore.Connect(ctx, mongostore.Config{
			URI:      cfg.MongoURI,
			Database: cfg.MongoDatabase,
			Timeout:  10 * time.Second,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = s.Close(ctx)
		}, nil
	}
	return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}
