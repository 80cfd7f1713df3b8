package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/riverfold/docgate/internal/config"
	"github.com/riverfold/docgate/internal/handlers"
	"github.com/riverfold/docgate/internal/services"
	"github.com/riverfold/docgate/pkg/database"
	"github.com/riverfold/docgate/pkg/redwin"
)

func main() {
	// Setup logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().Str("environment", cfg.Environment).Msg("Starting docgate")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Build the gateway in whichever validation mode is configured.
	var gateway *handlers.Gateway

	if cfg.DBMode() {
		db, err := database.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer db.Close()

		log.Info().Msg("Running database migrations...")
		if err := db.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to run migrations")
		}
		log.Info().Msg("Migrations completed successfully")

		// Window counters live in Postgres unless Redis is configured.
		var counter services.WindowCounter = db
		if cfg.RedisURL != "" {
			redisCounter, err := redwin.New(cfg.RedisURL, "docgate:rl")
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to connect to redis")
			}
			defer redisCounter.Close()
			counter = redisCounter
			log.Info().Msg("Using Redis rate-limit counters")
		}

		cache := services.NewCredentialCache(cfg.CacheCapacity, cfg.CacheValidityPeriod)
		validator := services.NewDBValidator(db, cache)
		limiter := services.NewRateLimiter(counter, services.Limits{
			PerMinute: cfg.RateLimitPerMinute,
			PerHour:   cfg.RateLimitPerHour,
			PerDay:    cfg.RateLimitPerDay,
		}, cfg.RateLimitFailClosed)
		if cfg.RateLimitFailClosed {
			log.Info().Msg("Rate limiter configured fail-closed")
		}

		recorder := services.NewRecorder(db, cfg.UsageQueueSize, cfg.BatchUpdateThreshold, cfg.UsageWriteRate)
		recorder.Start(ctx)

		startCounterPruner(ctx, db)

		gateway = handlers.NewDBGateway(validator, limiter, recorder)
		log.Info().Msg("Authentication mode: database")
	} else {
		static := services.NewStaticValidator(cfg.AuthEnabled, cfg.APIKeys, cfg.KeyNames)
		gateway = handlers.NewStaticGateway(static)
		if static.Enabled() {
			log.Info().Int("keys", len(cfg.APIKeys)).Msg("Authentication mode: static")
		} else {
			log.Warn().Msg("Authentication mode: disabled")
		}
	}

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(gateway.Middleware)

	// Public endpoints (bypassed inside the gateway as well)
	r.Get("/health", handlers.Health)
	r.Get("/", handlers.Root(cfg.Environment))

	// Everything else goes downstream once the gateway accepts it.
	downstream := http.Handler(http.HandlerFunc(handlers.NoUpstream))
	if cfg.UpstreamURL != "" {
		downstream, err = handlers.NewUpstreamProxy(cfg.UpstreamURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid UPSTREAM_URL")
		}
		log.Info().Str("upstream", cfg.UpstreamURL).Msg("Proxying accepted requests")
	}
	r.Handle("/*", downstream)

	// Start server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info().Msg("Shutting down server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server shutdown error")
		}
		cancel()
	}()

	log.Info().Str("port", cfg.Port).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("Server error")
	}

	log.Info().Msg("Server stopped")
}

// startCounterPruner deletes expired rate-counter windows in the
// background. Day windows are the longest, so anything older than 48h is
// unreachable by the limiter.
func startCounterPruner(ctx context.Context, db *database.DB) {
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				pruned, err := db.PruneCounters(ctx, time.Now().Add(-48*time.Hour))
				if err != nil {
					log.Error().Err(err).Msg("Failed to prune rate counters")
					continue
				}
				if pruned > 0 {
					log.Debug().Int64("rows", pruned).Msg("Pruned expired rate counters")
				}
			}
		}
	}()
}
