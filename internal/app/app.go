package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alex-user-go/pricecheck/internal/config"
	"github.com/alex-user-go/pricecheck/internal/db"
	"github.com/alex-user-go/pricecheck/internal/handler"
	"github.com/alex-user-go/pricecheck/internal/logger"
	"github.com/alex-user-go/pricecheck/internal/middleware"
	"github.com/alex-user-go/pricecheck/internal/newbook"
	"github.com/alex-user-go/pricecheck/internal/obs"
	"github.com/alex-user-go/pricecheck/internal/pricing"
	"github.com/alex-user-go/pricecheck/internal/ratelimit"
	"github.com/alex-user-go/pricecheck/internal/sites"
)

// DefaultConfigPath is read when CONFIG_PATH is unset.
const DefaultConfigPath = "configs/config.yaml"

// Run initializes and runs the application.
func Run() error {
	cfg, err := config.Load(getEnv("CONFIG_PATH", DefaultConfigPath))
	if err != nil {
		return err
	}

	log := logger.New(logger.Options{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		AddSource: cfg.Log.AddSource,
		Env:       cfg.Env,
	})
	slog.SetDefault(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := obs.NewMetrics(log)
	catalog := sites.NewCatalog(cfg.Sites, cfg.Options)

	if cfg.Store.Backend == config.BackendPostgres {
		stop, err := startSiteStore(ctx, cfg, catalog, log)
		if err != nil {
			return err
		}
		defer stop()
	}

	limiter, closeLimiter, err := newLimiter(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeLimiter()

	client := newbook.NewClient(cfg.Upstream.Endpoint, cfg.UpstreamTimeout())
	svc := pricing.NewService(client, catalog, cfg.Upstream.FallbackConcurrency, metrics, log)
	h := handler.New(svc, catalog, limiter, metrics, log, cfg.RateLimit.TrustProxyHeaders)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      NewRouter(h, metrics, log),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("starting server",
			"addr", srv.Addr,
			"sites", len(catalog.Sites()),
			"rate_limit_backend", cfg.RateLimit.Backend,
			"site_store", cfg.Store.Backend,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeoutSeconds)*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", "error", err)
		return err
	}

	log.Info("server stopped")
	return nil
}

// NewRouter registers the API, health and metrics routes behind the request
// logging and panic recovery middleware.
func NewRouter(h *handler.Handler, metrics *obs.Metrics, log *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/price-check", h.PriceCheck)
	mux.HandleFunc("POST /api/price-check", h.PriceCheck)
	mux.HandleFunc("GET /api/fallback-check", h.FallbackCheck)
	mux.HandleFunc("POST /api/fallback-check", h.FallbackCheck)
	mux.HandleFunc("GET /api/widget", h.Widget)
	mux.HandleFunc("GET /healthz", obs.HealthHandler(log))
	mux.HandleFunc("GET /metrics", metrics.MetricsHandler())

	return middleware.Logging(log)(middleware.Recover(log)(mux))
}

// startSiteStore loads the catalog from Postgres and keeps it refreshed.
// With store.seed the configured sites are written first.
func startSiteStore(ctx context.Context, cfg *config.Config, catalog *sites.Catalog, log *slog.Logger) (func(), error) {
	pool, err := db.NewPostgresPool(ctx, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, err
	}

	store := sites.NewPostgresStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	if cfg.Store.Seed && len(cfg.Sites) > 0 {
		if err := store.Save(ctx, cfg.Sites); err != nil {
			pool.Close()
			return nil, fmt.Errorf("seed sites: %w", err)
		}
		log.Info("sites seeded", "count", len(cfg.Sites))
	}

	refresher := sites.NewRefresher(store, catalog, cfg.Store.Refresh, log)
	if err := refresher.Start(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return func() {
		refresher.Stop()
		pool.Close()
	}, nil
}

func newLimiter(ctx context.Context, cfg *config.Config, log *slog.Logger) (ratelimit.Limiter, func(), error) {
	if cfg.RateLimit.Backend == config.BackendRedis {
		client, err := db.NewRedisClient(ctx, cfg.RateLimit.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		l := ratelimit.NewRedis(client, cfg.RateLimit.KeyPrefix, cfg.RateLimit.Limit, cfg.RateWindow(), log)
		return l, func() { _ = client.Close() }, nil
	}

	l := ratelimit.NewMemory(cfg.RateLimit.Limit, cfg.RateWindow())
	return l, l.Close, nil
}

// getEnv gets an environment variable with a default fallback.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
