package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vanshika/mapnav/backend/internal/domain"
)

// PostgresOptions configures the connection pool.
type PostgresOptions struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// ErrMissingDSN indicates the Postgres connection string is not provided.
var ErrMissingDSN = errors.New("postgres DSN is required")

// PostgresRepository stores the map in three relational tables. Edge
// endpoints are foreign keys, so dangling edges are refused by the database.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgres connects, verifies the connection and creates missing tables.
func NewPostgres(ctx context.Context, opts PostgresOptions) (*PostgresRepository, error) {
	if opts.DSN == "" {
		return nil, ErrMissingDSN
	}
	config, err := pgxpool.ParseConfig(opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 1
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute
	if opts.MaxConns > 0 {
		config.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		config.MinConns = opts.MinConns
	}
	if opts.MaxConnLifetime > 0 {
		config.MaxConnLifetime = opts.MaxConnLifetime
	}
	if opts.MaxConnIdleTime > 0 {
		config.MaxConnIdleTime = opts.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	r := &PostgresRepository{pool: pool}
	if err := r.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return r, nil
}

func (r *PostgresRepository) migrate(ctx context.Context) error {
	for _, stmt := range postgresSchema {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Ping checks database connectivity.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the connection pool.
func (r *PostgresRepository) Close(context.Context) error {
	r.pool.Close()
	return nil
}

// UpsertVertex inserts a vertex or updates it by id.
func (r *PostgresRepository) UpsertVertex(ctx context.Context, v domain.Vertex) error {
	if v.ID < 0 {
		return fmt.Errorf("vertex id %d is negative", v.ID)
	}
	if _, err := r.pool.Exec(ctx, upsertVertexSQL, v.ID, v.X, v.Y, v.Floor); err != nil {
		return fmt.Errorf("upsert vertex %d: %w", v.ID, err)
	}
	return nil
}

// UpsertEdge links two stored vertices; repeated links are ignored.
func (r *PostgresRepository) UpsertEdge(ctx context.Context, e domain.Edge) error {
	if _, err := r.pool.Exec(ctx, upsertEdgeSQL, e.NodeA, e.NodeB); err != nil {
		return fmt.Errorf("upsert edge %d-%d: %w", e.NodeA, e.NodeB, err)
	}
	return nil
}

// UpsertMapImage inserts a floor plan or updates it by name.
func (r *PostgresRepository) UpsertMapImage(ctx context.Context, img domain.MapImage) error {
	if img.Name == "" {
		return errors.New("map image name is required")
	}
	_, err := r.pool.Exec(ctx, upsertMapImageSQL,
		img.Name,
		img.TopLeft.X, img.TopLeft.Y,
		img.TopRight.X, img.TopRight.Y,
		img.BottomRight.X, img.BottomRight.Y,
		img.Floor,
	)
	if err != nil {
		return fmt.Errorf("upsert map image %s: %w", img.Name, err)
	}
	return nil
}

// ReplaceDataset truncates the map tables and bulk-copies ds in one transaction.
func (r *PostgresRepository) ReplaceDataset(ctx context.Context, ds domain.Dataset) error {
	if err := checkEdges(ds); err != nil {
		return fmt.Errorf("replace dataset: %w", err)
	}
	edges := uniqueEdges(ds.Edges)
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `TRUNCATE map_edges, map_vertices, map_images`); err != nil {
			return fmt.Errorf("truncate: %w", err)
		}

		_, err := tx.CopyFrom(ctx, pgx.Identifier{"map_vertices"},
			[]string{"id", "x_pos", "y_pos", "floor"},
			pgx.CopyFromSlice(len(ds.Vertices), func(i int) ([]any, error) {
				v := ds.Vertices[i]
				return []any{v.ID, v.X, v.Y, v.Floor}, nil
			}))
		if err != nil {
			return fmt.Errorf("copy vertices: %w", err)
		}

		_, err = tx.CopyFrom(ctx, pgx.Identifier{"map_edges"},
			[]string{"node_a", "node_b"},
			pgx.CopyFromSlice(len(edges), func(i int) ([]any, error) {
				e := edges[i]
				return []any{e.NodeA, e.NodeB}, nil
			}))
		if err != nil {
			return fmt.Errorf("copy edges: %w", err)
		}

		_, err = tx.CopyFrom(ctx, pgx.Identifier{"map_images"},
			[]string{"name", "top_left_x", "top_left_y", "top_right_x", "top_right_y", "bottom_right_x", "bottom_right_y", "floor"},
			pgx.CopyFromSlice(len(ds.MapImages), func(i int) ([]any, error) {
				img := ds.MapImages[i]
				return []any{
					img.Name,
					img.TopLeft.X, img.TopLeft.Y,
					img.TopRight.X, img.TopRight.Y,
					img.BottomRight.X, img.BottomRight.Y,
					img.Floor,
				}, nil
			}))
		if err != nil {
			return fmt.Errorf("copy map images: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace dataset: %w", err)
	}
	return nil
}

// uniqueEdges drops repeated vertex pairs in either direction, keeping the
// first occurrence. The edge table holds one row per pair.
func uniqueEdges(edges []domain.Edge) []domain.Edge {
	type pair struct{ lo, hi int64 }
	seen := make(map[pair]struct{}, len(edges))
	out := make([]domain.Edge, 0, len(edges))
	for _, e := range edges {
		key := pair{min(e.NodeA, e.NodeB), max(e.NodeA, e.NodeB)}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, e)
	}
	return out
}

// ListVertices returns every stored vertex ordered by id.
func (r *PostgresRepository) ListVertices(ctx context.Context) ([]domain.Vertex, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, x_pos, y_pos, floor FROM map_vertices ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list vertices: %w", err)
	}
	vertices, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Vertex, error) {
		var v domain.Vertex
		err := row.Scan(&v.ID, &v.X, &v.Y, &v.Floor)
		return v, err
	})
	if err != nil {
		return nil, fmt.Errorf("list vertices: %w", err)
	}
	return vertices, nil
}

// ListEdges returns every stored edge.
func (r *PostgresRepository) ListEdges(ctx context.Context) ([]domain.Edge, error) {
	rows, err := r.pool.Query(ctx, `SELECT node_a, node_b FROM map_edges ORDER BY node_a, node_b`)
	if err != nil {
		return nil, fmt.Errorf("list edges: %w", err)
	}
	edges, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Edge, error) {
		var e domain.Edge
		err := row.Scan(&e.NodeA, &e.NodeB)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("list edges: %w", err)
	}
	return edges, nil
}

// ListMapImages returns every stored floor plan ordered by floor and name.
func (r *PostgresRepository) ListMapImages(ctx context.Context) ([]domain.MapImage, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT name, top_left_x, top_left_y, top_right_x, top_right_y, bottom_right_x, bottom_right_y, floor
		FROM map_images
		ORDER BY floor, name
	`)
	if err != nil {
		return nil, fmt.Errorf("list map images: %w", err)
	}
	images, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.MapImage, error) {
		var img domain.MapImage
		err := row.Scan(
			&img.Name,
			&img.TopLeft.X, &img.TopLeft.Y,
			&img.TopRight.X, &img.TopRight.Y,
			&img.BottomRight.X, &img.BottomRight.Y,
			&img.Floor,
		)
		return img, err
	})
	if err != nil {
		return nil, fmt.Errorf("list map images: %w", err)
	}
	return images, nil
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS map_vertices (
		id     BIGINT PRIMARY KEY CHECK (id >= 0),
		x_pos  DOUBLE PRECISION NOT NULL,
		y_pos  DOUBLE PRECISION NOT NULL,
		floor  INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS map_edges (
		node_a BIGINT NOT NULL REFERENCES map_vertices(id) ON DELETE CASCADE,
		node_b BIGINT NOT NULL REFERENCES map_vertices(id) ON DELETE CASCADE
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS map_edges_pair ON map_edges (LEAST(node_a, node_b), GREATEST(node_a, node_b))`,
	`CREATE TABLE IF NOT EXISTS map_images (
		name            TEXT PRIMARY KEY,
		top_left_x      DOUBLE PRECISION NOT NULL,
		top_left_y      DOUBLE PRECISION NOT NULL,
		top_right_x     DOUBLE PRECISION NOT NULL,
		top_right_y     DOUBLE PRECISION NOT NULL,
		bottom_right_x  DOUBLE PRECISION NOT NULL,
		bottom_right_y  DOUBLE PRECISION NOT NULL,
		floor           INTEGER NOT NULL DEFAULT 0
	)`,
}

const upsertVertexSQL = `
	INSERT INTO map_vertices (id, x_pos, y_pos, floor)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (id) DO UPDATE SET x_pos = EXCLUDED.x_pos, y_pos = EXCLUDED.y_pos, floor = EXCLUDED.floor
`

const upsertEdgeSQL = `
	INSERT INTO map_edges (node_a, node_b)
	VALUES ($1, $2)
	ON CONFLICT DO NOTHING
`

const upsertMapImageSQL = `
	INSERT INTO map_images (name, top_left_x, top_left_y, top_right_x, top_right_y, bottom_right_x, bottom_right_y, floor)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (name) DO UPDATE SET
		top_left_x = EXCLUDED.top_left_x,
		top_left_y = EXCLUDED.top_left_y,
		top_right_x = EXCLUDED.top_right_x,
		top_right_y = EXCLUDED.top_right_y,
		bottom_right_x = EXCLUDED.bottom_right_x,
		bottom_right_y = EXCLUDED.bottom_right_y,
		floor = EXCLUDED.floor
`
