package main

import (
	"context"
	"docflow/internal/broadcast"
	"docflow/internal/cache"
	"docflow/internal/config"
	"docflow/internal/db"
	"docflow/internal/logger"
	"docflow/internal/worker"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Environment: cfg.Environment, File: cfg.LogFile})

	// Connect to database
	gdb, err := db.Connect(cfg, logger.Component(log, "db"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close(gdb, log)

	// Migrate database schema
	if err := db.Migrate(gdb, log); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}

	// Seed database with initial data (for development)
	if !cfg.IsProduction() {
		if err := db.SeedData(gdb, log); err != nil {
			log.Fatal().Err(err).Msg("Failed to seed database")
		}
	}

	ctx := context.Background()
	listCache := cache.Connect(ctx, cfg.RedisAddress, logger.Component(log, "cache"))
	defer listCache.Close()

	bus, err := newBus(cfg, listCache, logger.Component(log, "broadcast"))
	if err != nil {
		log.Fatal().Err(err).Str("transport", cfg.BroadcastTransport).Msg("Failed to start broadcast bus")
	}
	defer bus.Close()

	workers := worker.NewWorkerPool(cfg.WorkerCount, logger.Component(log, "worker"))

	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := newRouter(cfg, app{
		db:      gdb,
		cache:   listCache,
		bus:     bus,
		workers: workers,
		log:     log,
	})

	// Server configuration
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: router.Handler(),
	}

	// Start server
	go func() {
		log.Info().Str("port", cfg.ServerPort).Msg("Server listening")
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	shutdown(shutdownCtx, server, workers, bus, log)

	log.Info().Msg("Server shutdown complete")
}

// shutdown stops accepting requests, drains queued broadcasts, then closes
// the bus. Hijacked websocket connections outlive server.Shutdown and end
// when the bus closes.
func shutdown(ctx context.Context, server *http.Server, workers *worker.WorkerPool, bus broadcast.Bus, log zerolog.Logger) {
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}
	workers.Shutdown()
	if err := bus.Close(); err != nil {
		log.Error().Err(err).Msg("Broadcast bus close error")
	}
}

// newBus picks the broadcast transport. Redis reuses the cache connection.
func newBus(cfg *config.Config, listCache *cache.Cache, log zerolog.Logger) (broadcast.Bus, error) {
	switch cfg.BroadcastTransport {
	case "redis":
		if !listCache.Enabled() {
			return nil, errors.New("redis transport selected but redis is not reachable")
		}
		return broadcast.NewRedisBus(listCache.Client(), cfg.BroadcastChannel, log), nil
	case "nats":
		conn, err := broadcast.ConnectNATS(cfg.NATSURL, log)
		if err != nil {
			return nil, err
		}
		return broadcast.NewNATSBus(conn, cfg.BroadcastChannel, log), nil
	default:
		return broadcast.NewLocalBus(), nil
	}
}
