package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/mapnav/backend/internal/domain"
)

type recordingWriter struct {
	mu       sync.Mutex
	vertices map[int64]bool
	edges    []domain.Edge
	images   []string
	failIDs  map[int64]bool
}

func newRecordingWriter() *recordingWriter {
	return &recordingWriter{vertices: map[int64]bool{}, failIDs: map[int64]bool{}}
}

func (w *recordingWriter) UpsertVertex(_ context.Context, v domain.Vertex) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failIDs[v.ID] {
		return fmt.Errorf("vertex %d: write refused", v.ID)
	}
	w.vertices[v.ID] = true
	return nil
}

func (w *recordingWriter) UpsertEdge(_ context.Context, e domain.Edge) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.vertices[e.NodeA] || !w.vertices[e.NodeB] {
		return fmt.Errorf("edge %d-%d: endpoint missing", e.NodeA, e.NodeB)
	}
	w.edges = append(w.edges, e)
	return nil
}

func (w *recordingWriter) UpsertMapImage(_ context.Context, img domain.MapImage) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.images = append(w.images, img.Name)
	return nil
}

func TestBulkIngestor_IngestDataset(t *testing.T) {
	writer := newRecordingWriter()
	ingestor := NewBulkIngestor(writer, 3)

	report, err := ingestor.IngestDataset(context.Background(), twoFloors())
	require.NoError(t, err)
	assert.Equal(t, IngestReport{Vertices: 6, Edges: 4, MapImages: 2}, report)
	assert.Len(t, writer.edges, 4)
	assert.ElementsMatch(t, []string{"ground", "first"}, writer.images)
}

func TestBulkIngestor_VertexFailureStopsEdges(t *testing.T) {
	writer := newRecordingWriter()
	writer.failIDs[2] = true
	writer.failIDs[11] = true
	ingestor := NewBulkIngestor(writer, 2)

	report, err := ingestor.IngestDataset(context.Background(), twoFloors())
	require.Error(t, err)
	assert.Equal(t, 4, report.Vertices)
	assert.Zero(t, report.Edges)
	assert.Empty(t, writer.edges)

	var taskErr *TaskError
	require.True(t, errors.As(err, &taskErr))
	assert.Len(t, taskErr.Errors, 2)
	assert.Contains(t, err.Error(), "ingest vertices")
}

func TestBulkIngestor_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewBulkIngestor(newRecordingWriter(), 2).IngestVertices(ctx, twoFloors().Vertices)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBulkIngestor_EmptyInput(t *testing.T) {
	n, err := NewBulkIngestor(newRecordingWriter(), 0).IngestEdges(context.Background(), nil)
	assert.NoError(t, err)
	assert.Zero(t, n)
}

func TestTaskError_Unwrap(t *testing.T) {
	sentinel := errors.New("boom")
	te := &TaskError{Errors: []error{errors.New("other"), fmt.Errorf("wrapped: %w", sentinel)}}

	assert.ErrorIs(t, te, sentinel)
	assert.Contains(t, te.Error(), "2 errors")
	assert.Equal(t, "no errors", (&TaskError{}).Error())
}
