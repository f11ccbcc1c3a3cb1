package routing

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/mapnav/backend/internal/domain"
)

func TestBuild_SparseIDs(t *testing.T) {
	g, err := Build(
		[]domain.Vertex{{ID: 900, X: 0, Y: 0}, {ID: 7, X: 3, Y: 4}, {ID: 4000, X: 3, Y: 0}},
		[]domain.Edge{{NodeA: 900, NodeB: 7}, {NodeA: 4000, NodeB: 7}},
	)
	require.NoError(t, err)

	assert.Equal(t, 3, g.Len())
	assert.Equal(t, 2, g.EdgeCount())
	assert.Equal(t, []int64{7, 900, 4000}, g.VertexIDs())
	assert.True(t, g.Has(4000))
	assert.False(t, g.Has(1))

	nbs := g.Neighbors(7)
	require.Len(t, nbs, 2)
	assert.Equal(t, int64(900), nbs[0].ID)
	assert.InDelta(t, 5.0, nbs[0].Weight, 1e-9)
	assert.Equal(t, int64(4000), nbs[1].ID)
	assert.InDelta(t, 4.0, nbs[1].Weight, 1e-9)
}

func TestBuild_RejectsMalformed(t *testing.T) {
	tests := []struct {
		name     string
		vertices []domain.Vertex
		edges    []domain.Edge
	}{
		{
			name:     "duplicate id",
			vertices: []domain.Vertex{{ID: 1}, {ID: 1, X: 2}},
		},
		{
			name:     "negative id",
			vertices: []domain.Vertex{{ID: -3}},
		},
		{
			name:     "edge to unknown vertex",
			vertices: []domain.Vertex{{ID: 1}, {ID: 2}},
			edges:    []domain.Edge{{NodeA: 1, NodeB: 2}, {NodeA: 2, NodeB: 99}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			g, err := Build(tc.vertices, tc.edges)
			assert.Nil(t, g)
			assert.True(t, errors.Is(err, ErrMalformedGraph), "got %v", err)
		})
	}
}

func TestBuild_EmptyDataset(t *testing.T) {
	g, err := Build(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, g.Len())
	assert.Empty(t, g.Neighbors(1))
}

func TestEdgeBetween_PrefersLightestDuplicate(t *testing.T) {
	g, err := Build(
		[]domain.Vertex{{ID: 1}, {ID: 2, X: 6, Y: 8}},
		[]domain.Edge{{NodeA: 1, NodeB: 2}, {NodeA: 2, NodeB: 1}, {NodeA: 1, NodeB: 1}},
	)
	require.NoError(t, err)

	edge, w, ok := g.EdgeBetween(2, 1)
	require.True(t, ok)
	assert.True(t, edge.Connects(1, 2))
	assert.InDelta(t, 10.0, w, 1e-9)

	loop, w, ok := g.EdgeBetween(1, 1)
	require.True(t, ok)
	assert.Equal(t, domain.Edge{NodeA: 1, NodeB: 1}, loop)
	assert.Zero(t, w)

	_, _, ok = g.EdgeBetween(1, 3)
	assert.False(t, ok)
}

func TestWeight(t *testing.T) {
	a := domain.Vertex{X: 1.5, Y: -2}
	b := domain.Vertex{X: -3, Y: 7.25, Floor: 4}
	want := math.Sqrt(math.Pow(b.X-a.X, 2) + math.Pow(b.Y-a.Y, 2))
	assert.InDelta(t, want, Weight(a, b), 1e-9)
	assert.InDelta(t, Weight(a, b), Weight(b, a), 1e-12)
}
