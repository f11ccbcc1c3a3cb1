package repository

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/vanshika/mapnav/backend/internal/dataset"
	"github.com/vanshika/mapnav/backend/internal/domain"
)

// FileRepository serves the map from a dataset file. The decoded file is
// cached until its modification time or size changes.
type FileRepository struct {
	path string

	mu      sync.Mutex
	cached  domain.Dataset
	modTime time.Time
	size    int64
	loaded  bool
}

// NewFile returns a repository reading path. The file is not opened until
// the first read.
func NewFile(path string) *FileRepository {
	return &FileRepository{path: path}
}

// Path returns the dataset file location.
func (r *FileRepository) Path() string {
	return r.path
}

// Ping checks that the dataset file exists.
func (r *FileRepository) Ping(context.Context) error {
	if _, err := os.Stat(r.path); err != nil {
		return fmt.Errorf("stat dataset: %w", err)
	}
	return nil
}

// Close is a no-op.
func (r *FileRepository) Close(context.Context) error {
	return nil
}

// ReplaceDataset rewrites the file with ds.
func (r *FileRepository) ReplaceDataset(_ context.Context, ds domain.Dataset) error {
	if err := checkEdges(ds); err != nil {
		return fmt.Errorf("replace dataset: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := dataset.Write(r.path, ds); err != nil {
		return fmt.Errorf("replace dataset: %w", err)
	}
	r.loaded = false
	return nil
}

// ListVertices returns the vertices stored in the file.
func (r *FileRepository) ListVertices(ctx context.Context) ([]domain.Vertex, error) {
	ds, err := r.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("list vertices: %w", err)
	}
	return append([]domain.Vertex(nil), ds.Vertices...), nil
}

// ListEdges returns the edges stored in the file.
func (r *FileRepository) ListEdges(ctx context.Context) ([]domain.Edge, error) {
	ds, err := r.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("list edges: %w", err)
	}
	return append([]domain.Edge(nil), ds.Edges...), nil
}

// ListMapImages returns the floor plans stored in the file.
func (r *FileRepository) ListMapImages(ctx context.Context) ([]domain.MapImage, error) {
	ds, err := r.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("list map images: %w", err)
	}
	return append([]domain.MapImage(nil), ds.MapImages...), nil
}

func (r *FileRepository) load(ctx context.Context) (domain.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return domain.Dataset{}, err
	}
	info, err := os.Stat(r.path)
	if err != nil {
		return domain.Dataset{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loaded && info.ModTime().Equal(r.modTime) && info.Size() == r.size {
		return r.cached, nil
	}

	ds, err := dataset.Load(r.path)
	if err != nil {
		return domain.Dataset{}, err
	}
	r.cached, r.modTime, r.size, r.loaded = ds, info.ModTime(), info.Size(), true
	return ds, nil
}
