package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"parkspot-api/config"
	"parkspot-api/handlers"
	"parkspot-api/middleware"
	"parkspot-api/services"
	"parkspot-api/socrata"
	"parkspot-api/streetnames"
)

func main() {
	cfgPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)

	cache, err := services.NewCacheService(cfg.Redis, logger)
	if err != nil {
		// A cold Redis only costs estimator continuity, not the API.
		logger.Warn().Err(err).Msg("redis unavailable, running without cached state")
	}

	streets := buildStreetLookup(cfg, logger)
	source := socrata.NewClient(cfg.DataSource, logger)

	liveSvc, err := services.NewLiveParkingService(source, cache, streets, cfg.Heuristics, nil, nil, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build live parking service")
	}
	predSvc, err := services.NewPredictionService(source, cache, cfg.Heuristics, nil, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build prediction service")
	}

	router := gin.Default()
	router.Use(middleware.SetupCORS(cfg.CORS))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "UP",
			"message": "ParkSpot API is running",
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	liveHandler := handlers.NewLiveParkingHandler(liveSvc, logger)
	predHandler := handlers.NewPredictionHandler(predSvc, logger)

	api := router.Group("/api/v1")
	{
		api.GET("/live-parking", liveHandler.GetLive)
		api.GET("/predictions", predHandler.GetPredictions)
	}
	router.GET("/ws/live", handlers.LiveWebSocket(cache, logger))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Server.RefreshIntervalSec > 0 {
		go refreshLoop(ctx, liveSvc, time.Duration(cfg.Server.RefreshIntervalSec)*time.Second, logger)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	if cache != nil {
		if err := cache.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close cache client")
		}
	}
}

func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	logger := zerolog.New(os.Stderr)
	if cfg.Console {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	return logger.Level(level).With().Timestamp().Logger()
}

// buildStreetLookup picks the street-name source: the segments table when a
// database is configured, otherwise the JSON snapshot from cmd/streetcache.
// Either source failing degrades to the default label rather than aborting.
func buildStreetLookup(cfg *config.Config, logger zerolog.Logger) *streetnames.Lookup {
	if cfg.Database.Enabled {
		db, err := gorm.Open(postgres.Open(cfg.Database.GetDSN()), &gorm.Config{})
		if err != nil {
			logger.Warn().Err(err).Msg("database unavailable, street names fall back to default")
			return streetnames.Empty()
		}
		lookup, err := streetnames.FromDB(db)
		if err != nil {
			logger.Warn().Err(err).Msg("street segment query failed, using default labels")
			return streetnames.Empty()
		}
		logger.Info().Int("streets", lookup.Len()).Msg("loaded street names from database")
		return lookup
	}

	if cfg.Streets.File != "" {
		lookup, err := streetnames.FromFile(cfg.Streets.File)
		if err != nil {
			logger.Warn().Err(err).Str("file", cfg.Streets.File).Msg("street snapshot unreadable, using default labels")
			return streetnames.Empty()
		}
		logger.Info().Int("streets", lookup.Len()).Msg("loaded street names from snapshot")
		return lookup
	}

	return streetnames.Empty()
}

func refreshLoop(ctx context.Context, live *services.LiveParkingService, interval time.Duration, logger zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info().Dur("interval", interval).Msg("background refresh enabled")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := live.Refresh(ctx); err != nil {
				logger.Warn().Err(err).Msg("background refresh failed")
			}
		}
	}
}
