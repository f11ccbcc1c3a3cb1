package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/vanshika/mapnav/backend/internal/domain"
)

// MapWriter is the storage contract required by the bulk ingestor.
type MapWriter interface {
	UpsertVertex(ctx context.Context, v domain.Vertex) error
	UpsertEdge(ctx context.Context, e domain.Edge) error
	UpsertMapImage(ctx context.Context, img domain.MapImage) error
}

// TaskError accumulates multiple errors produced during bulk ingestion.
type TaskError struct {
	Errors []error
}

func (e *TaskError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := fmt.Sprintf("%d errors:", len(e.Errors))
	for _, err := range e.Errors {
		msg += " " + err.Error() + ";"
	}
	return msg
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e *TaskError) Unwrap() []error {
	return e.Errors
}

func (e *TaskError) append(err error) {
	if err == nil {
		return
	}
	e.Errors = append(e.Errors, err)
}

func (e *TaskError) asError() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

// IngestReport counts the records written per collection.
type IngestReport struct {
	Vertices  int
	Edges     int
	MapImages int
}

// BulkIngestor upserts large datasets record by record using a worker pool.
type BulkIngestor struct {
	writer  MapWriter
	workers int
}

// NewBulkIngestor creates a new BulkIngestor instance with the provided concurrency.
func NewBulkIngestor(writer MapWriter, workers int) *BulkIngestor {
	if workers <= 0 {
		workers = 4
	}
	return &BulkIngestor{
		writer:  writer,
		workers: workers,
	}
}

// IngestDataset writes vertices first, then edges and map images, so every
// edge finds both endpoints already stored. Edge ingestion does not start if
// any vertex failed.
func (bi *BulkIngestor) IngestDataset(ctx context.Context, ds domain.Dataset) (IngestReport, error) {
	var report IngestReport

	written, err := bi.IngestVertices(ctx, ds.Vertices)
	report.Vertices = written
	if err != nil {
		return report, fmt.Errorf("ingest vertices: %w", err)
	}

	written, err = bi.IngestEdges(ctx, ds.Edges)
	report.Edges = written
	if err != nil {
		return report, fmt.Errorf("ingest edges: %w", err)
	}

	written, err = bi.IngestMapImages(ctx, ds.MapImages)
	report.MapImages = written
	if err != nil {
		return report, fmt.Errorf("ingest map images: %w", err)
	}
	return report, nil
}

// IngestVertices processes the provided vertices concurrently.
func (bi *BulkIngestor) IngestVertices(ctx context.Context, vertices []domain.Vertex) (int, error) {
	return bi.run(ctx, len(vertices), func(idx int) error {
		return bi.writer.UpsertVertex(ctx, vertices[idx])
	})
}

// IngestEdges processes the provided edges concurrently.
func (bi *BulkIngestor) IngestEdges(ctx context.Context, edges []domain.Edge) (int, error) {
	return bi.run(ctx, len(edges), func(idx int) error {
		return bi.writer.UpsertEdge(ctx, edges[idx])
	})
}

// IngestMapImages processes the provided floor plans concurrently.
func (bi *BulkIngestor) IngestMapImages(ctx context.Context, images []domain.MapImage) (int, error) {
	return bi.run(ctx, len(images), func(idx int) error {
		return bi.writer.UpsertMapImage(ctx, images[idx])
	})
}

// run returns the number of tasks that completed without error.
func (bi *BulkIngestor) run(ctx context.Context, total int, workerFn func(idx int) error) (int, error) {
	if total == 0 {
		return 0, nil
	}
	indexCh := make(chan int)
	errCh := make(chan error, total)
	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)

	worker := func() {
		defer wg.Done()
		for idx := range indexCh {
			if err := workerFn(idx); err != nil {
				errCh <- err
				continue
			}
			mu.Lock()
			ok++
			mu.Unlock()
		}
	}

	for i := 0; i < bi.workers; i++ {
		wg.Add(1)
		go worker()
	}

Loop:
	for i := 0; i < total; i++ {
		select {
		case indexCh <- i:
		case <-ctx.Done():
			break Loop
		}
	}
	close(indexCh)
	wg.Wait()
	close(errCh)

	if err := ctx.Err(); err != nil {
		return ok, err
	}

	var taskErr TaskError
	for err := range errCh {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return ok, err
		}
		taskErr.append(err)
	}
	return ok, taskErr.asError()
}
