package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/vanshika/mapnav/backend/internal/config"
	"github.com/vanshika/mapnav/backend/internal/logging"
	"github.com/vanshika/mapnav/backend/internal/metrics"
	"github.com/vanshika/mapnav/backend/internal/repository"
	"github.com/vanshika/mapnav/backend/internal/routing"
	"github.com/vanshika/mapnav/backend/internal/server"
	"github.com/vanshika/mapnav/backend/internal/service"
	"github.com/vanshika/mapnav/backend/internal/watcher"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := repository.Open(ctx, cfg.Store, logger)
	if err != nil {
		logger.Error("failed to open store", "backend", cfg.Store.Backend, "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			logger.Warn("closing store failed", "error", err)
		}
	}()

	var reg *metrics.Registry
	if cfg.Metrics.Enabled {
		reg = metrics.NewRegistry()
	}

	mapOpts := []service.MapServiceOption{service.WithMetrics(reg)}
	if cfg.Routing.MaxIterations > 0 {
		mapOpts = append(mapOpts, service.WithRoutingOptions(routing.WithMaxIterations(cfg.Routing.MaxIterations)))
	}
	maps := service.NewMapService(store, logger, mapOpts...)

	loadCtx, cancelLoad := context.WithTimeout(ctx, cfg.Store.LoadTimeout)
	_, err = maps.Load(loadCtx)
	cancelLoad()
	if err != nil {
		// Serve anyway: /healthz reports degraded and a reload or file
		// change can bring the dataset in later.
		logger.Error("initial dataset load failed", "error", err)
	}

	sessions := service.NewSessionManager(maps, service.SessionConfig{
		IdleTTL:       cfg.Sessions.IdleTTL,
		SweepInterval: cfg.Sessions.SweepInterval,
		MaxSessions:   cfg.Sessions.MaxSessions,
	}, logger, reg)

	router := server.NewRouter(logger, server.RouterDependencies{
		Health:           server.MapHealthService{Maps: maps},
		API:              server.NewAPIHandlers(logger, maps, sessions),
		Metrics:          reg,
		MetricsPath:      cfg.Metrics.Path,
		AllowedOrigins:   server.ParseAllowedOrigins(cfg.HTTP.AllowedOriginsCSV),
		AllowCredentials: true,
		RateLimit:        cfg.HTTP.RateLimit,
		RateBurst:        cfg.HTTP.RateBurst,
	})
	srv := server.New(logger, cfg.HTTP, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		sessions.Run(gctx)
		return nil
	})
	if cfg.Store.Watch {
		w := watcher.New(cfg.Store.DatasetPath, cfg.Store.WatchDebounce, watcher.ReloaderFunc(func(ctx context.Context) error {
			_, err := maps.Reload(ctx)
			return err
		}), logger)
		g.Go(func() error {
			return w.Run(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server stopped unexpectedly", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
