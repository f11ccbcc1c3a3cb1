package routing

import (
	"fmt"
	"math"
)

// NoParent marks a PathNode that has no predecessor yet.
const NoParent int64 = -1

// PathNode is the per-query working state of one discovered vertex.
type PathNode struct {
	ID                int64
	TentativeDistance float64
	Finalized         bool
	ParentID          int64
}

// Stats counts the work done by a search.
type Stats struct {
	Iterations  int
	Finalized   int
	Relaxations int
}

// SearchTree is the parent-pointer tree produced by Search. Vertices that
// were never discovered are absent from Nodes and count as +Inf.
type SearchTree struct {
	SourceID int64
	TargetID int64
	Nodes    map[int64]*PathNode
	Stats    Stats
}

// Reached reports whether id was finalized, i.e. its distance is proven.
func (t *SearchTree) Reached(id int64) bool {
	n, ok := t.Nodes[id]
	return ok && n.Finalized
}

// Distance returns the tentative distance of id, +Inf when undiscovered.
func (t *SearchTree) Distance(id int64) float64 {
	if n, ok := t.Nodes[id]; ok {
		return n.TentativeDistance
	}
	return math.Inf(1)
}

func (t *SearchTree) node(id int64) *PathNode {
	n, ok := t.Nodes[id]
	if !ok {
		n = &PathNode{
			ID:                id,
			TentativeDistance: math.Inf(1),
			ParentID:          NoParent,
		}
		t.Nodes[id] = n
	}
	return n
}

// nextFrontier picks the non-finalized node with the smallest distance,
// breaking ties by ascending id. The order is total, so map iteration order
// cannot leak into the result.
func (t *SearchTree) nextFrontier() *PathNode {
	var best *PathNode
	for _, n := range t.Nodes {
		if n.Finalized {
			continue
		}
		if best == nil ||
			n.TentativeDistance < best.TentativeDistance ||
			(n.TentativeDistance == best.TentativeDistance && n.ID < best.ID) {
			best = n
		}
	}
	return best
}

// Options configures a search.
type Options struct {
	// MaxIterations aborts the search with ErrInternal once exceeded.
	// Zero means Len()+1, which a well-formed graph can never reach.
	MaxIterations int
}

// Option mutates Options.
type Option func(*Options)

// WithMaxIterations overrides the iteration cap.
func WithMaxIterations(n int) Option {
	return func(o *Options) {
		o.MaxIterations = n
	}
}

// Search runs Dijkstra from sourceID and stops as soon as targetID is
// finalized or the frontier is exhausted. The returned tree is owned by the
// caller; g is never modified.
func Search(g *Graph, sourceID, targetID int64, opts ...Option) (*SearchTree, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: nil graph", ErrInternal)
	}
	if !g.Has(sourceID) {
		return nil, fmt.Errorf("%w: source %d", ErrUnknownVertex, sourceID)
	}
	if !g.Has(targetID) {
		return nil, fmt.Errorf("%w: target %d", ErrUnknownVertex, targetID)
	}

	var cfg Options
	for _, opt := range opts {
		opt(&cfg)
	}
	limit := cfg.MaxIterations
	if limit <= 0 {
		limit = g.Len() + 1
	}

	tree := &SearchTree{
		SourceID: sourceID,
		TargetID: targetID,
		Nodes:    make(map[int64]*PathNode),
	}
	tree.node(sourceID).TentativeDistance = 0

	for {
		cur := tree.nextFrontier()
		if cur == nil || math.IsInf(cur.TentativeDistance, 1) {
			return tree, nil
		}

		tree.Stats.Iterations++
		if tree.Stats.Iterations > limit {
			return tree, fmt.Errorf("%w: iteration cap %d exceeded searching %d->%d", ErrInternal, limit, sourceID, targetID)
		}

		cur.Finalized = true
		tree.Stats.Finalized++
		if cur.ID == targetID {
			return tree, nil
		}

		for _, nb := range g.Neighbors(cur.ID) {
			next := tree.node(nb.ID)
			if next.Finalized {
				continue
			}
			candidate := cur.TentativeDistance + nb.Weight
			if candidate < next.TentativeDistance {
				next.TentativeDistance = candidate
				next.ParentID = cur.ID
				tree.Stats.Relaxations++
			}
		}
	}
}

// ShortestPath returns the shortest walking route from sourceID to targetID.
// When the target is unreachable the error is ErrNoPath and the result still
// carries the ids and search stats. A query from a vertex to itself is a
// single-vertex path of distance 0.
func ShortestPath(g *Graph, sourceID, targetID int64, opts ...Option) (PathResult, error) {
	tree, err := Search(g, sourceID, targetID, opts...)
	if err != nil {
		return PathResult{SourceID: sourceID, TargetID: targetID}, err
	}
	return Reconstruct(g, tree, targetID)
}
