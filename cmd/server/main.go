package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"trip-planner-service/internal/adapters/cache"
	"trip-planner-service/internal/adapters/distance"
	"trip-planner-service/internal/adapters/repositories"
	"trip-planner-service/internal/adapters/sessions"
	"trip-planner-service/internal/api"
	"trip-planner-service/internal/config"
	"trip-planner-service/internal/platform/db"
	"trip-planner-service/internal/platform/obs"
	"trip-planner-service/internal/ports"
	"trip-planner-service/internal/services"
)

// main is the application composition root.
// It wires concrete adapters (Postgres, Redis, ORS) behind ports and starts the HTTP server.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := obs.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}

	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := repositories.InitSchema(ctx, database); err != nil {
		return err
	}

	// Seed demo places on startup for local runs.
	if seedPath := config.Get("SEED_PATH", ""); seedPath != "" {
		n, err := repositories.SeedFromJSON(ctx, database, seedPath)
		if err != nil {
			return err
		}
		logger.Info("places seeded", zap.Int("count", n), zap.String("path", seedPath))
	}

	policy := cfg.Policy

	matrix, err := newTravelMatrix(cfg, database, logger)
	if err != nil {
		return err
	}

	source := repositories.NewResilientCandidateSource(
		repositories.NewPostgresCandidateSource(database),
		policy.UpstreamTimeout, policy.RetryBackoff, logger,
	)

	store, closeStore, err := newSessionStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	assembler := services.NewItineraryAssembler(source, matrix, store, policy, logger)
	engine := services.NewFeedbackEngine(store, source, matrix, policy, logger)
	router := api.NewRouter(assembler, engine, store, logger)

	// Timeouts are tuned for cold-cache planning (external API latency).
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}

// newTravelMatrix returns ORS behind the resilient wrapper when a key is
// configured, and the haversine estimate alone otherwise.
func newTravelMatrix(cfg config.Config, database *sql.DB, logger *zap.Logger) (ports.TravelTimeMatrix, error) {
	fallback := distance.NewHaversineMatrix(cfg.Policy.Fallback)
	if cfg.ORSAPIKey == "" {
		logger.Warn("ORS_API_KEY not set; travel times are estimated")
		return fallback, nil
	}

	ors, err := distance.NewORSTravelMatrix(cfg.ORSAPIKey,
		distance.WithCache(cache.NewSQLTravelTimeCache(database)),
		distance.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("travel matrix: %w", err)
	}

	return distance.NewResilientMatrix(ors, fallback, cfg.Policy.UpstreamTimeout, cfg.Policy.RetryBackoff, logger), nil
}

// newSessionStore connects to Redis when REDIS_URL is set and falls back to
// a process-local store otherwise.
func newSessionStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (ports.SessionStore, func(), error) {
	if cfg.RedisURL == "" {
		logger.Warn("REDIS_URL not set; sessions are kept in memory")
		return sessions.NewMemorySessionStore(), func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("session store: parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("session store: ping redis: %w", err)
	}

	return sessions.NewRedisSessionStore(client), func() { _ = client.Close() }, nil
}
