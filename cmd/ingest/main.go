package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vanshika/mapnav/backend/internal/config"
	"github.com/vanshika/mapnav/backend/internal/dataset"
	"github.com/vanshika/mapnav/backend/internal/domain"
	"github.com/vanshika/mapnav/backend/internal/logging"
	"github.com/vanshika/mapnav/backend/internal/repository"
	"github.com/vanshika/mapnav/backend/internal/routing"
	"github.com/vanshika/mapnav/backend/internal/service"
)

const (
	modeReplace = "replace"
	modeUpsert  = "upsert"
)

var errUpsertUnsupported = errors.New("backend does not support record upserts")

func main() {
	var (
		datasetPath = flag.String("dataset", "./data/building.json", "Path to a JSON or YAML dataset")
		backend     = flag.String("backend", "", "Store backend (neo4j, postgres); defaults to STORE_BACKEND")
		mode        = flag.String("mode", modeReplace, "replace: swap the whole map atomically; upsert: merge record by record")
		workers     = flag.Int("workers", 4, "Number of concurrent workers for upsert mode")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *backend != "" {
		cfg.Store.Backend = *backend
	}

	logger := logging.New(cfg.Logging).With("component", "ingest")

	ds, err := dataset.Load(*datasetPath)
	if err != nil {
		logger.Error("failed to load dataset", "error", err, "path", *datasetPath)
		os.Exit(1)
	}
	if len(ds.Vertices) == 0 {
		logger.Error("dataset has no vertices", "path", *datasetPath)
		os.Exit(1)
	}
	// Reject what the server would reject before touching the store.
	if _, err := routing.Build(ds.Vertices, ds.Edges); err != nil {
		logger.Error("dataset is not a valid graph", "error", err, "path", *datasetPath)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

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

	start := time.Now()
	logger.Info("ingesting dataset",
		"mode", *mode,
		"vertices", len(ds.Vertices),
		"edges", len(ds.Edges),
		"map_images", len(ds.MapImages),
	)

	switch *mode {
	case modeReplace:
		err = store.ReplaceDataset(ctx, ds)
	case modeUpsert:
		err = upsert(ctx, store, ds, *workers)
	default:
		err = fmt.Errorf("unknown mode %q", *mode)
	}
	if err != nil {
		logger.Error("ingestion failed", "error", err)
		os.Exit(1)
	}

	logger.Info("ingestion complete", "duration", time.Since(start).String())
}

func upsert(ctx context.Context, store repository.Store, ds domain.Dataset, workers int) error {
	writer, ok := store.(service.MapWriter)
	if !ok {
		return fmt.Errorf("%w: %T", errUpsertUnsupported, store)
	}
	report, err := service.NewBulkIngestor(writer, workers).IngestDataset(ctx, ds)
	if err != nil {
		return err
	}
	if report.Vertices != len(ds.Vertices) || report.Edges != len(ds.Edges) {
		return fmt.Errorf("partial ingest: %d/%d vertices, %d/%d edges", report.Vertices, len(ds.Vertices), report.Edges, len(ds.Edges))
	}
	return nil
}
