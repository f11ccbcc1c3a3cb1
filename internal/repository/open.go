package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vanshika/mapnav/backend/internal/config"
	"github.com/vanshika/mapnav/backend/internal/domain"
	"github.com/vanshika/mapnav/backend/internal/graphdb"
)

// ErrUnknownBackend is returned by Open for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown store backend")

// ErrMissingDatasetPath is returned by Open when the file backend has no path.
var ErrMissingDatasetPath = errors.New("dataset path is required for the file backend")

// Store is what every backend offers: reads for the map service, a bulk
// replace for ingestion and lifecycle hooks.
type Store interface {
	ListVertices(ctx context.Context) ([]domain.Vertex, error)
	ListEdges(ctx context.Context) ([]domain.Edge, error)
	ListMapImages(ctx context.Context) ([]domain.MapImage, error)
	ReplaceDataset(ctx context.Context, ds domain.Dataset) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Open connects to the backend selected in cfg. Cypher and SQL stores get
// their schema created on the way.
func Open(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Backend {
	case config.BackendNeo4j:
		client, err := graphdb.NewNeo4jClient(ctx, graphdb.Options{
			URI:            cfg.Neo4j.URI,
			Database:       cfg.Neo4j.Database,
			Username:       cfg.Neo4j.Username,
			Password:       cfg.Neo4j.Password,
			MaxConnections: cfg.Neo4j.MaxConnections,
			AcquireTimeout: cfg.Neo4j.AcquireTimeout,
		})
		if err != nil {
			return nil, err
		}
		repo := New(client)
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = repo.Close(ctx)
			return nil, fmt.Errorf("ensure graph schema: %w", err)
		}
		logger.Info("connected to graph", "uri", cfg.Neo4j.URI, "database", cfg.Neo4j.Database)
		return repo, nil

	case config.BackendPostgres:
		repo, err := NewPostgres(ctx, PostgresOptions{
			DSN:      cfg.Postgres.DSN,
			MaxConns: int32(cfg.Postgres.MaxConns),
			MinConns: int32(cfg.Postgres.MinConns),
		})
		if err != nil {
			return nil, err
		}
		logger.Info("connected to postgres")
		return repo, nil

	case config.BackendFile:
		if cfg.DatasetPath == "" {
			return nil, ErrMissingDatasetPath
		}
		logger.Info("serving dataset file", "path", cfg.DatasetPath)
		return NewFile(cfg.DatasetPath), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}
