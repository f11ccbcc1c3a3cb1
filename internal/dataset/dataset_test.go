package dataset

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/mapnav/backend/internal/domain"
)

func sampleDataset() domain.Dataset {
	return domain.Dataset{
		Vertices: []domain.Vertex{
			{ID: 3, X: 1.5, Y: 2, Floor: 1},
			{ID: 40, X: -4, Y: 0.25, Floor: 2},
		},
		Edges: []domain.Edge{{NodeA: 3, NodeB: 40}},
		MapImages: []domain.MapImage{{
			Name:        "floor1.png",
			TopLeft:     domain.Point{X: 0, Y: 10},
			TopRight:    domain.Point{X: 20, Y: 10},
			BottomRight: domain.Point{X: 20, Y: 0},
			Floor:       1,
		}},
	}
}

func TestDecode_JSON(t *testing.T) {
	doc := `{
  "vertices": [{"id": 7, "xPos": 1, "yPos": 2, "floor": 3}],
  "edges": [{"nodeA": 7, "nodeB": 7}],
  "mapImages": [{"name": "f3", "topLeftX": 1, "topRightX": 2, "bottomRightY": -1, "floor": 3}]
}`
	ds, err := Decode(strings.NewReader(doc), FormatJSON)
	require.NoError(t, err)

	require.Len(t, ds.Vertices, 1)
	assert.Equal(t, domain.Vertex{ID: 7, X: 1, Y: 2, Floor: 3}, ds.Vertices[0])
	assert.Equal(t, []domain.Edge{{NodeA: 7, NodeB: 7}}, ds.Edges)
	require.Len(t, ds.MapImages, 1)
	assert.Equal(t, domain.Point{X: 1}, ds.MapImages[0].TopLeft)
	assert.Equal(t, domain.Point{Y: -1}, ds.MapImages[0].BottomRight)
}

func TestDecode_YAML(t *testing.T) {
	doc := `
vertices:
  - {id: 1, xPos: 0, yPos: 0, floor: 0}
  - {id: 2, xPos: 3, yPos: 4, floor: 0}
edges:
  - {nodeA: 1, nodeB: 2}
`
	ds, err := Decode(strings.NewReader(doc), FormatYAML)
	require.NoError(t, err)
	assert.Len(t, ds.Vertices, 2)
	assert.Equal(t, []domain.Edge{{NodeA: 1, NodeB: 2}}, ds.Edges)
	assert.Empty(t, ds.MapImages)
}

func TestDecode_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		doc    string
	}{
		{name: "negative vertex id", format: FormatJSON, doc: `{"vertices":[{"id":-1}]}`},
		{name: "negative edge endpoint", format: FormatYAML, doc: "edges:\n  - {nodeA: 1, nodeB: -2}\n"},
		{name: "unnamed map image", format: FormatJSON, doc: `{"mapImages":[{"floor":1}]}`},
		{name: "unknown field", format: FormatJSON, doc: `{"vertices":[{"id":1,"z":2}]}`},
		{name: "unknown yaml field", format: FormatYAML, doc: "nodes: []\n"},
		{name: "broken json", format: FormatJSON, doc: `{"vertices":`},
		{name: "unsupported", format: Format("xml"), doc: `<x/>`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tc.doc), tc.format)
			require.Error(t, err)
		})
	}
}

func TestEncodeDecode_BothFormats(t *testing.T) {
	for _, format := range []Format{FormatJSON, FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, format, sampleDataset()))

			got, err := Decode(&buf, format)
			require.NoError(t, err)
			assert.Equal(t, sampleDataset(), got)
		})
	}
}

func TestWriteLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "building.yaml")

	require.NoError(t, Write(path, sampleDataset()))
	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, sampleDataset(), got)
}

func TestFormatFor(t *testing.T) {
	f, err := FormatFor("a/b/map.JSON")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	f, err = FormatFor("map.yml")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)

	_, err = FormatFor("map.csv")
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))

	_, err = Load("map.csv")
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}
