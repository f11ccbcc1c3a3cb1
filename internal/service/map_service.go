package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/vanshika/mapnav/backend/internal/domain"
	"github.com/vanshika/mapnav/backend/internal/metrics"
	"github.com/vanshika/mapnav/backend/internal/routing"
	"github.com/vanshika/mapnav/backend/internal/selection"
)

const tracerName = "github.com/vanshika/mapnav/backend/internal/service"

// ErrNotLoaded is returned by queries made before the first successful load.
var ErrNotLoaded = fmt.Errorf("%w: dataset not loaded", routing.ErrMalformedGraph)

// MapStore is the storage contract required by the map service.
type MapStore interface {
	ListVertices(ctx context.Context) ([]domain.Vertex, error)
	ListEdges(ctx context.Context) ([]domain.Edge, error)
	ListMapImages(ctx context.Context) ([]domain.MapImage, error)
	Ping(ctx context.Context) error
}

// Snapshot is an immutable, fully built view of one dataset load. Readers
// keep using the snapshot they obtained even while a reload replaces it.
type Snapshot struct {
	Version   uint64
	LoadedAt  time.Time
	Graph     *routing.Graph
	Vertices  []domain.Vertex
	Edges     []domain.Edge
	MapImages []domain.MapImage
}

// MapService owns the live graph snapshot and answers path queries against it.
type MapService struct {
	store   MapStore
	logger  *slog.Logger
	metrics *metrics.Registry
	tracer  trace.Tracer
	routing []routing.Option
	nowFn   func() time.Time

	loadMu  sync.Mutex
	version uint64
	current atomic.Pointer[Snapshot]
}

// MapServiceOption customises a MapService.
type MapServiceOption func(*MapService)

// WithMetrics records query and load metrics into reg.
func WithMetrics(reg *metrics.Registry) MapServiceOption {
	return func(s *MapService) { s.metrics = reg }
}

// WithTracer overrides the tracer taken from the global otel provider.
func WithTracer(tracer trace.Tracer) MapServiceOption {
	return func(s *MapService) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithRoutingOptions passes engine options to every query.
func WithRoutingOptions(opts ...routing.Option) MapServiceOption {
	return func(s *MapService) { s.routing = append(s.routing, opts...) }
}

// WithClock overrides the time provider (used primarily in tests).
func WithClock(nowFn func() time.Time) MapServiceOption {
	return func(s *MapService) {
		if nowFn != nil {
			s.nowFn = nowFn
		}
	}
}

// NewMapService returns a service with no snapshot; call Load before serving.
func NewMapService(store MapStore, logger *slog.Logger, opts ...MapServiceOption) *MapService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &MapService{
		store:  store,
		logger: logger.With("component", "map_service"),
		tracer: otel.Tracer(tracerName),
		nowFn:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load fetches the dataset and swaps in a new snapshot. On any failure the
// previous snapshot, if any, stays live.
func (s *MapService) Load(ctx context.Context) (*Snapshot, error) {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	ctx, span := s.tracer.Start(ctx, "mapnav.dataset.load")
	defer span.End()
	started := s.nowFn()

	snap, err := s.build(ctx)
	elapsed := s.nowFn().Sub(started)
	if err != nil {
		s.metrics.RecordDatasetLoad(err, elapsed, 0, 0)
		span.RecordError(err)
		span.SetStatus(codes.Error, "dataset load failed")
		s.logger.Error("dataset load failed", "error", err, "duration", elapsed)
		return nil, err
	}

	s.version++
	snap.Version = s.version
	snap.LoadedAt = s.nowFn()
	s.current.Store(snap)

	s.metrics.RecordDatasetLoad(nil, elapsed, snap.Graph.Len(), snap.Graph.EdgeCount())
	span.SetAttributes(
		attribute.Int64("mapnav.dataset.version", int64(snap.Version)),
		attribute.Int("mapnav.graph.vertices", snap.Graph.Len()),
		attribute.Int("mapnav.graph.edges", snap.Graph.EdgeCount()),
	)
	s.logger.Info("dataset loaded",
		"version", snap.Version,
		"vertices", snap.Graph.Len(),
		"edges", snap.Graph.EdgeCount(),
		"map_images", len(snap.MapImages),
		"duration", elapsed,
	)
	return snap, nil
}

// Reload is Load under the name used by the admin endpoint and the watcher.
func (s *MapService) Reload(ctx context.Context) (*Snapshot, error) {
	return s.Load(ctx)
}

// build fetches the three collections concurrently and builds the graph.
func (s *MapService) build(ctx context.Context) (*Snapshot, error) {
	var (
		vertices []domain.Vertex
		edges    []domain.Edge
		images   []domain.MapImage
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		vertices, err = s.store.ListVertices(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		edges, err = s.store.ListEdges(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		images, err = s.store.ListMapImages(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch dataset: %w", err)
	}

	graph, err := routing.Build(vertices, edges)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		Graph:     graph,
		Vertices:  vertices,
		Edges:     edges,
		MapImages: images,
	}, nil
}

// Snapshot returns the live snapshot, or nil before the first load.
func (s *MapService) Snapshot() *Snapshot {
	return s.current.Load()
}

// Ready reports whether a snapshot is available.
func (s *MapService) Ready() bool {
	return s.current.Load() != nil
}

// Ping checks the backing store.
func (s *MapService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// FindPath answers a shortest-path query against the live snapshot.
// routing.ErrNoPath is returned alongside an empty result when the endpoints
// are disconnected.
func (s *MapService) FindPath(ctx context.Context, sourceID, targetID int64) (routing.PathResult, error) {
	snap := s.current.Load()
	if snap == nil {
		return routing.PathResult{}, ErrNotLoaded
	}
	return s.query(ctx, snap, sourceID, targetID)
}

// Route is a path result resolved against the snapshot that produced it.
type Route struct {
	routing.PathResult
	Version uint64
	// Vertices holds the route's vertices in travel order.
	Vertices []domain.Vertex
}

// FindRoute is FindPath plus the coordinates of every vertex on the route,
// all taken from one snapshot.
func (s *MapService) FindRoute(ctx context.Context, sourceID, targetID int64) (Route, error) {
	snap := s.current.Load()
	if snap == nil {
		return Route{}, ErrNotLoaded
	}
	res, err := s.query(ctx, snap, sourceID, targetID)
	route := Route{PathResult: res, Version: snap.Version}
	if err != nil {
		return route, err
	}
	route.Vertices = make([]domain.Vertex, 0, len(res.VertexIDs))
	for _, id := range res.VertexIDs {
		v, _ := snap.Graph.Vertex(id)
		route.Vertices = append(route.Vertices, v)
	}
	return route, nil
}

func (s *MapService) query(ctx context.Context, snap *Snapshot, sourceID, targetID int64) (routing.PathResult, error) {
	_, span := s.tracer.Start(ctx, "mapnav.path.find", trace.WithAttributes(
		attribute.Int64("mapnav.path.source", sourceID),
		attribute.Int64("mapnav.path.target", targetID),
		attribute.Int64("mapnav.dataset.version", int64(snap.Version)),
	))
	defer span.End()

	started := s.nowFn()
	res, err := routing.ShortestPath(snap.Graph, sourceID, targetID, s.routing...)
	elapsed := s.nowFn().Sub(started)

	outcome := "found"
	switch {
	case err == nil:
		span.SetAttributes(
			attribute.Float64("mapnav.path.distance", res.TotalDistance),
			attribute.Int("mapnav.path.hops", res.Hops()),
		)
	case errors.Is(err, routing.ErrNoPath):
		outcome = "no_path"
	case errors.Is(err, routing.ErrUnknownVertex):
		outcome = "unknown_vertex"
		s.logger.Warn("path query for unknown vertex", "source", sourceID, "target", targetID)
	default:
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, "path query failed")
		s.logger.Error("path query failed",
			"source", sourceID,
			"target", targetID,
			"version", snap.Version,
			"error", err,
		)
	}
	span.SetAttributes(attribute.String("mapnav.path.outcome", outcome))
	s.metrics.RecordPathQuery(outcome, elapsed, res.Stats.Finalized, res.Stats.Relaxations)
	return res, err
}

// finder binds path queries for a selection machine to one snapshot.
func (s *MapService) finder(ctx context.Context, snap *Snapshot) selection.PathFinder {
	return selection.PathFinderFunc(func(sourceID, targetID int64) (routing.PathResult, error) {
		if snap == nil {
			return routing.PathResult{}, ErrNotLoaded
		}
		return s.query(ctx, snap, sourceID, targetID)
	})
}

// Vertices lists the live vertices, optionally restricted to one floor.
func (s *MapService) Vertices(floor *int) ([]domain.Vertex, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, ErrNotLoaded
	}
	return filterFloor(snap.Vertices, floor, func(v domain.Vertex) int { return v.Floor }), nil
}

// Edges lists the live edges. With a floor filter only edges whose both
// endpoints lie on that floor are returned.
func (s *MapService) Edges(floor *int) ([]domain.Edge, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, ErrNotLoaded
	}
	if floor == nil {
		return append([]domain.Edge{}, snap.Edges...), nil
	}
	out := make([]domain.Edge, 0)
	for _, e := range snap.Edges {
		a, okA := snap.Graph.Vertex(e.NodeA)
		b, okB := snap.Graph.Vertex(e.NodeB)
		if okA && okB && a.Floor == *floor && b.Floor == *floor {
			out = append(out, e)
		}
	}
	return out, nil
}

// MapImages lists the live floor plans, optionally restricted to one floor.
func (s *MapService) MapImages(floor *int) ([]domain.MapImage, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, ErrNotLoaded
	}
	return filterFloor(snap.MapImages, floor, func(m domain.MapImage) int { return m.Floor }), nil
}

func filterFloor[T any](items []T, floor *int, floorOf func(T) int) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if floor == nil || floorOf(item) == *floor {
			out = append(out, item)
		}
	}
	return out
}
