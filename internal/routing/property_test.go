package routing

import (
	"errors"
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/vanshika/mapnav/backend/internal/domain"
)

// randomGraph builds a sparse-id graph from a seed list of coordinates. Each
// vertex i is linked to vertex (i*7+3) mod n, which leaves some components
// disconnected for small n.
func randomGraph(coords []float64) (*Graph, []domain.Vertex, error) {
	for len(coords) < 24 {
		coords = append(coords, 0)
	}
	n := len(coords) / 2
	vertices := make([]domain.Vertex, 0, n)
	for i := 0; i < n; i++ {
		vertices = append(vertices, domain.Vertex{
			ID: int64(i*13 + 5),
			X:  coords[2*i],
			Y:  coords[2*i+1],
		})
	}
	var edges []domain.Edge
	for i := 0; i < n; i++ {
		j := (i*7 + 3) % n
		edges = append(edges, domain.Edge{NodeA: vertices[i].ID, NodeB: vertices[j].ID})
	}
	g, err := Build(vertices, edges)
	return g, vertices, err
}

func TestRoutingProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	coordGen := gen.SliceOfN(24, gen.Float64Range(-500, 500))

	properties.Property("edge weights are euclidean", prop.ForAll(
		func(coords []float64) bool {
			g, vertices, err := randomGraph(coords)
			if err != nil {
				return false
			}
			for _, v := range vertices {
				for _, nb := range g.Neighbors(v.ID) {
					other, _ := g.Vertex(nb.ID)
					want := math.Sqrt(math.Pow(other.X-v.X, 2) + math.Pow(other.Y-v.Y, 2))
					if math.Abs(nb.Weight-want) > 1e-9 {
						return false
					}
				}
			}
			return true
		},
		coordGen,
	))

	properties.Property("repeated queries are identical", prop.ForAll(
		func(coords []float64, a, b int) bool {
			g, vertices, err := randomGraph(coords)
			if err != nil {
				return false
			}
			src, dst := vertices[a%len(vertices)].ID, vertices[b%len(vertices)].ID
			first, err1 := ShortestPath(g, src, dst)
			second, err2 := ShortestPath(g, src, dst)
			if (err1 == nil) != (err2 == nil) {
				return false
			}
			if err1 != nil && err1.Error() != err2.Error() {
				return false
			}
			if len(first.VertexIDs) != len(second.VertexIDs) {
				return false
			}
			for i := range first.VertexIDs {
				if first.VertexIDs[i] != second.VertexIDs[i] {
					return false
				}
			}
			return math.Float64bits(first.TotalDistance) == math.Float64bits(second.TotalDistance)
		},
		coordGen,
		gen.IntRange(0, 11),
		gen.IntRange(0, 11),
	))

	properties.Property("path distance equals the sum of its edge weights", prop.ForAll(
		func(coords []float64, a, b int) bool {
			g, vertices, err := randomGraph(coords)
			if err != nil {
				return false
			}
			res, err := ShortestPath(g, vertices[a%len(vertices)].ID, vertices[b%len(vertices)].ID)
			if errors.Is(err, ErrNoPath) {
				return res.Empty()
			}
			if err != nil {
				return false
			}
			var sum float64
			for _, e := range res.Edges {
				_, w, ok := g.EdgeBetween(e.NodeA, e.NodeB)
				if !ok {
					return false
				}
				sum += w
			}
			return math.Abs(sum-res.TotalDistance) < 1e-6 &&
				res.VertexIDs[0] == res.SourceID &&
				res.VertexIDs[len(res.VertexIDs)-1] == res.TargetID
		},
		coordGen,
		gen.IntRange(0, 11),
		gen.IntRange(0, 11),
	))

	properties.Property("a previous query does not change the next", prop.ForAll(
		func(coords []float64, a, b, c, d int) bool {
			g, vertices, err := randomGraph(coords)
			if err != nil {
				return false
			}
			pick := func(i int) int64 { return vertices[i%len(vertices)].ID }

			fresh, freshErr := ShortestPath(g, pick(c), pick(d))
			_, _ = ShortestPath(g, pick(a), pick(b))
			after, afterErr := ShortestPath(g, pick(c), pick(d))

			if (freshErr == nil) != (afterErr == nil) {
				return false
			}
			return math.Float64bits(fresh.TotalDistance) == math.Float64bits(after.TotalDistance) &&
				len(fresh.VertexIDs) == len(after.VertexIDs)
		},
		coordGen,
		gen.IntRange(0, 11),
		gen.IntRange(0, 11),
		gen.IntRange(0, 11),
		gen.IntRange(0, 11),
	))

	properties.TestingRun(t)
}
