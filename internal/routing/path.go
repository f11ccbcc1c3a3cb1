package routing

import (
	"fmt"

	"github.com/vanshika/mapnav/backend/internal/domain"
)

// PathResult is a reconstructed route ordered from source to target.
type PathResult struct {
	SourceID      int64
	TargetID      int64
	TotalDistance float64
	VertexIDs     []int64
	Edges         []domain.Edge
	Stats         Stats
}

// Empty reports whether the result holds no route.
func (r PathResult) Empty() bool {
	return len(r.VertexIDs) == 0
}

// Hops is the number of edges on the route.
func (r PathResult) Hops() int {
	return len(r.Edges)
}

// Reconstruct walks parent links from targetID back to the tree's source and
// returns the route in source-to-target order. Edges are resolved through g
// so each step names the record that connects the pair.
func Reconstruct(g *Graph, tree *SearchTree, targetID int64) (PathResult, error) {
	res := PathResult{
		SourceID: tree.SourceID,
		TargetID: targetID,
		Stats:    tree.Stats,
	}
	if !tree.Reached(targetID) {
		return res, fmt.Errorf("%w: %d is unreachable from %d", ErrNoPath, targetID, tree.SourceID)
	}

	ids := []int64{targetID}
	var edges []domain.Edge
	for cur := targetID; cur != tree.SourceID; {
		node, ok := tree.Nodes[cur]
		if !ok {
			return res, fmt.Errorf("%w: vertex %d missing from search tree", ErrBrokenChain, cur)
		}
		parent := node.ParentID
		if parent == NoParent {
			return res, fmt.Errorf("%w: vertex %d has no parent before reaching %d", ErrBrokenChain, cur, tree.SourceID)
		}
		if !g.Has(parent) {
			return res, fmt.Errorf("%w: parent %d of %d is not in the graph", ErrBrokenChain, parent, cur)
		}
		edge, _, ok := g.EdgeBetween(parent, cur)
		if !ok {
			return res, fmt.Errorf("%w: no edge joins %d and %d", ErrBrokenChain, parent, cur)
		}
		edges = append(edges, edge)
		ids = append(ids, parent)
		if len(ids) > len(tree.Nodes) {
			return res, fmt.Errorf("%w: cycle through %d", ErrBrokenChain, parent)
		}
		cur = parent
	}

	reverse(ids)
	reverse(edges)
	res.VertexIDs = ids
	res.Edges = edges
	res.TotalDistance = tree.Nodes[targetID].TentativeDistance
	return res, nil
}

func reverse[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
