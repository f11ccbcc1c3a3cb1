package routing

import (
	"fmt"
	"math"
	"sort"

	"github.com/vanshika/mapnav/backend/internal/domain"
)

// Neighbor is one adjacency entry of a vertex.
type Neighbor struct {
	ID     int64
	Weight float64
	Edge   domain.Edge
}

type edgeKey struct {
	lo, hi int64
}

func keyFor(a, b int64) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{lo: a, hi: b}
}

// Graph is an immutable weighted adjacency view keyed by vertex id.
type Graph struct {
	vertices map[int64]domain.Vertex
	adj      map[int64][]Neighbor
	edges    map[edgeKey]Neighbor
	ids      []int64
	edgeLen  int
}

// Build validates the records and assembles a Graph. Ids may be sparse and
// arrive in any order.
func Build(vertices []domain.Vertex, edges []domain.Edge) (*Graph, error) {
	g := &Graph{
		vertices: make(map[int64]domain.Vertex, len(vertices)),
		adj:      make(map[int64][]Neighbor, len(vertices)),
		edges:    make(map[edgeKey]Neighbor, len(edges)),
		ids:      make([]int64, 0, len(vertices)),
		edgeLen:  len(edges),
	}

	for _, v := range vertices {
		if v.ID < 0 {
			return nil, fmt.Errorf("%w: negative vertex id %d", ErrMalformedGraph, v.ID)
		}
		if _, dup := g.vertices[v.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate vertex id %d", ErrMalformedGraph, v.ID)
		}
		g.vertices[v.ID] = v
		g.ids = append(g.ids, v.ID)
	}
	sort.Slice(g.ids, func(i, j int) bool { return g.ids[i] < g.ids[j] })

	for i, e := range edges {
		a, okA := g.vertices[e.NodeA]
		b, okB := g.vertices[e.NodeB]
		if !okA || !okB {
			return nil, fmt.Errorf("%w: edge %d (%d-%d) references unknown vertex", ErrMalformedGraph, i, e.NodeA, e.NodeB)
		}

		w := Weight(a, b)
		g.adj[a.ID] = append(g.adj[a.ID], Neighbor{ID: b.ID, Weight: w, Edge: e})
		if a.ID != b.ID {
			g.adj[b.ID] = append(g.adj[b.ID], Neighbor{ID: a.ID, Weight: w, Edge: e})
		}

		k := keyFor(a.ID, b.ID)
		if prev, ok := g.edges[k]; !ok || w < prev.Weight {
			g.edges[k] = Neighbor{ID: b.ID, Weight: w, Edge: e}
		}
	}

	for id, list := range g.adj {
		sort.SliceStable(list, func(i, j int) bool {
			if list[i].ID != list[j].ID {
				return list[i].ID < list[j].ID
			}
			return list[i].Weight < list[j].Weight
		})
		g.adj[id] = list
	}

	return g, nil
}

// Weight is the Euclidean distance between the positions of a and b. Floors
// are not part of the distance.
func Weight(a, b domain.Vertex) float64 {
	return math.Sqrt((b.X-a.X)*(b.X-a.X) + (b.Y-a.Y)*(b.Y-a.Y))
}

// Neighbors returns the adjacency list of id ordered by neighbor id. The
// slice is shared; callers must not modify it.
func (g *Graph) Neighbors(id int64) []Neighbor {
	return g.adj[id]
}

// Vertex looks up a vertex by id.
func (g *Graph) Vertex(id int64) (domain.Vertex, bool) {
	v, ok := g.vertices[id]
	return v, ok
}

// Has reports whether id is a vertex of the graph.
func (g *Graph) Has(id int64) bool {
	_, ok := g.vertices[id]
	return ok
}

// VertexIDs returns all vertex ids in ascending order.
func (g *Graph) VertexIDs() []int64 {
	return append([]int64(nil), g.ids...)
}

// Len is the number of vertices.
func (g *Graph) Len() int {
	return len(g.ids)
}

// EdgeCount is the number of edge records the graph was built from.
func (g *Graph) EdgeCount() int {
	return g.edgeLen
}

// EdgeBetween returns the lightest edge joining a and b.
func (g *Graph) EdgeBetween(a, b int64) (domain.Edge, float64, bool) {
	n, ok := g.edges[keyFor(a, b)]
	if !ok {
		return domain.Edge{}, 0, false
	}
	return n.Edge, n.Weight, true
}
