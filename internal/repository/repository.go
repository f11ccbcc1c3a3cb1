package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/vanshika/mapnav/backend/internal/domain"
	"github.com/vanshika/mapnav/backend/internal/graphdb"
)

// importChunkSize bounds the UNWIND list sent in one statement.
const importChunkSize = 500

// ErrEdgeEndpointMissing is returned when an edge names a vertex the store does not hold.
var ErrEdgeEndpointMissing = errors.New("edge endpoint not found")

// Repository stores the map in the graph database: vertices are :Vertex
// nodes, edges are :CONNECTS relationships, floor plans are :MapImage nodes.
type Repository struct {
	client graphdb.Client
}

// New instantiates a Repository backed by the supplied graph client.
func New(client graphdb.Client) *Repository {
	return &Repository{client: client}
}

// EnsureSchema creates the uniqueness constraints the upserts rely on.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaCypher {
		if _, err := r.client.ExecuteWrite(ctx, stmt, nil); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Ping checks that the graph database answers.
func (r *Repository) Ping(ctx context.Context) error {
	return r.client.VerifyConnectivity(ctx)
}

// Close releases the underlying driver.
func (r *Repository) Close(ctx context.Context) error {
	return r.client.Close(ctx)
}

// UpsertVertex creates or updates a vertex by id.
func (r *Repository) UpsertVertex(ctx context.Context, v domain.Vertex) error {
	if v.ID < 0 {
		return fmt.Errorf("vertex id %d is negative", v.ID)
	}
	if _, err := r.client.ExecuteWrite(ctx, upsertVertexCypher, vertexParams(v)); err != nil {
		return fmt.Errorf("upsert vertex %d: %w", v.ID, err)
	}
	return nil
}

// UpsertEdge links two existing vertices. Both must already be stored.
func (r *Repository) UpsertEdge(ctx context.Context, e domain.Edge) error {
	res, err := r.client.ExecuteWrite(ctx, upsertEdgeCypher, edgeParams(e))
	if err != nil {
		return fmt.Errorf("upsert edge %d-%d: %w", e.NodeA, e.NodeB, err)
	}
	if len(res.Records) == 0 {
		return fmt.Errorf("upsert edge %d-%d: %w", e.NodeA, e.NodeB, ErrEdgeEndpointMissing)
	}
	return nil
}

// UpsertMapImage creates or updates a floor plan by name.
func (r *Repository) UpsertMapImage(ctx context.Context, img domain.MapImage) error {
	if img.Name == "" {
		return errors.New("map image name is required")
	}
	if _, err := r.client.ExecuteWrite(ctx, upsertMapImageCypher, mapImageParams(img)); err != nil {
		return fmt.Errorf("upsert map image %s: %w", img.Name, err)
	}
	return nil
}

// ReplaceDataset swaps the stored map for ds in a single transaction.
func (r *Repository) ReplaceDataset(ctx context.Context, ds domain.Dataset) error {
	if err := checkEdges(ds); err != nil {
		return fmt.Errorf("replace dataset: %w", err)
	}
	statements := []graphdb.Statement{{Cypher: clearMapCypher}}

	vertices := make([]map[string]any, 0, len(ds.Vertices))
	for _, v := range ds.Vertices {
		vertices = append(vertices, vertexParams(v))
	}
	for _, chunk := range chunks(vertices, importChunkSize) {
		statements = append(statements, graphdb.Statement{Cypher: importVerticesCypher, Params: map[string]any{"rows": chunk}})
	}

	edges := make([]map[string]any, 0, len(ds.Edges))
	for _, e := range ds.Edges {
		edges = append(edges, edgeParams(e))
	}
	for _, chunk := range chunks(edges, importChunkSize) {
		statements = append(statements, graphdb.Statement{Cypher: importEdgesCypher, Params: map[string]any{"rows": chunk}})
	}

	images := make([]map[string]any, 0, len(ds.MapImages))
	for _, img := range ds.MapImages {
		images = append(images, mapImageParams(img))
	}
	for _, chunk := range chunks(images, importChunkSize) {
		statements = append(statements, graphdb.Statement{Cypher: importMapImagesCypher, Params: map[string]any{"rows": chunk}})
	}

	if err := r.client.ExecuteWriteBatch(ctx, statements); err != nil {
		return fmt.Errorf("replace dataset: %w", err)
	}
	return nil
}

// ListVertices returns every stored vertex ordered by id.
func (r *Repository) ListVertices(ctx context.Context) ([]domain.Vertex, error) {
	res, err := r.client.ExecuteRead(ctx, listVerticesCypher, nil)
	if err != nil {
		return nil, fmt.Errorf("list vertices: %w", err)
	}
	vertices := make([]domain.Vertex, 0, len(res.Records))
	for _, record := range res.Records {
		vertices = append(vertices, domain.Vertex{
			ID:    toInt64(record["id"]),
			X:     toFloat64(record["xPos"]),
			Y:     toFloat64(record["yPos"]),
			Floor: int(toInt64(record["floor"])),
		})
	}
	return vertices, nil
}

// ListEdges returns every stored edge.
func (r *Repository) ListEdges(ctx context.Context) ([]domain.Edge, error) {
	res, err := r.client.ExecuteRead(ctx, listEdgesCypher, nil)
	if err != nil {
		return nil, fmt.Errorf("list edges: %w", err)
	}
	edges := make([]domain.Edge, 0, len(res.Records))
	for _, record := range res.Records {
		edges = append(edges, domain.Edge{
			NodeA: toInt64(record["nodeA"]),
			NodeB: toInt64(record["nodeB"]),
		})
	}
	return edges, nil
}

// ListMapImages returns every stored floor plan ordered by floor and name.
func (r *Repository) ListMapImages(ctx context.Context) ([]domain.MapImage, error) {
	res, err := r.client.ExecuteRead(ctx, listMapImagesCypher, nil)
	if err != nil {
		return nil, fmt.Errorf("list map images: %w", err)
	}
	images := make([]domain.MapImage, 0, len(res.Records))
	for _, record := range res.Records {
		images = append(images, domain.MapImage{
			Name:        toString(record["name"]),
			TopLeft:     domain.Point{X: toFloat64(record["topLeftX"]), Y: toFloat64(record["topLeftY"])},
			TopRight:    domain.Point{X: toFloat64(record["topRightX"]), Y: toFloat64(record["topRightY"])},
			BottomRight: domain.Point{X: toFloat64(record["bottomRightX"]), Y: toFloat64(record["bottomRightY"])},
			Floor:       int(toInt64(record["floor"])),
		})
	}
	return images, nil
}

func vertexParams(v domain.Vertex) map[string]any {
	return map[string]any{
		"id":    v.ID,
		"xPos":  v.X,
		"yPos":  v.Y,
		"floor": int64(v.Floor),
	}
}

func edgeParams(e domain.Edge) map[string]any {
	return map[string]any{
		"nodeA": e.NodeA,
		"nodeB": e.NodeB,
	}
}

func mapImageParams(img domain.MapImage) map[string]any {
	return map[string]any{
		"name":         img.Name,
		"topLeftX":     img.TopLeft.X,
		"topLeftY":     img.TopLeft.Y,
		"topRightX":    img.TopRight.X,
		"topRightY":    img.TopRight.Y,
		"bottomRightX": img.BottomRight.X,
		"bottomRightY": img.BottomRight.Y,
		"floor":        int64(img.Floor),
	}
}

// checkEdges rejects edges whose endpoints are not part of ds; the bulk
// edge import would otherwise drop them without notice.
func checkEdges(ds domain.Dataset) error {
	ids := make(map[int64]struct{}, len(ds.Vertices))
	for _, v := range ds.Vertices {
		ids[v.ID] = struct{}{}
	}
	for _, e := range ds.Edges {
		for _, id := range []int64{e.NodeA, e.NodeB} {
			if _, ok := ids[id]; !ok {
				return fmt.Errorf("%w: edge %d-%d names vertex %d", ErrEdgeEndpointMissing, e.NodeA, e.NodeB, id)
			}
		}
	}
	return nil
}

func chunks[T any](items []T, size int) [][]T {
	var out [][]T
	for len(items) > 0 {
		n := min(size, len(items))
		out = append(out, items[:n])
		items = items[n:]
	}
	return out
}

func toString(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case []byte:
		return string(v)
	default:
		return ""
	}
}

func toFloat64(val any) float64 {
	switch v := val.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}

func toInt64(val any) int64 {
	switch v := val.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

var schemaCypher = []string{
	`CREATE CONSTRAINT vertex_id IF NOT EXISTS FOR (v:Vertex) REQUIRE v.id IS UNIQUE`,
	`CREATE CONSTRAINT map_image_name IF NOT EXISTS FOR (m:MapImage) REQUIRE m.name IS UNIQUE`,
}

const upsertVertexCypher = `
MERGE (v:Vertex {id: $id})
SET v.xPos = $xPos,
	v.yPos = $yPos,
	v.floor = $floor
RETURN v.id AS id
`

const upsertEdgeCypher = `
MATCH (a:Vertex {id: $nodeA})
MATCH (b:Vertex {id: $nodeB})
MERGE (a)-[:CONNECTS]->(b)
RETURN a.id AS nodeA, b.id AS nodeB
`

const upsertMapImageCypher = `
MERGE (m:MapImage {name: $name})
SET m.topLeftX = $topLeftX,
	m.topLeftY = $topLeftY,
	m.topRightX = $topRightX,
	m.topRightY = $topRightY,
	m.bottomRightX = $bottomRightX,
	m.bottomRightY = $bottomRightY,
	m.floor = $floor
RETURN m.name AS name
`

const clearMapCypher = `
MATCH (n)
WHERE n:Vertex OR n:MapImage
DETACH DELETE n
`

const importVerticesCypher = `
UNWIND $rows AS row
CREATE (:Vertex {id: row.id, xPos: row.xPos, yPos: row.yPos, floor: row.floor})
`

const importEdgesCypher = `
UNWIND $rows AS row
MATCH (a:Vertex {id: row.nodeA})
MATCH (b:Vertex {id: row.nodeB})
CREATE (a)-[:CONNECTS]->(b)
`

const importMapImagesCypher = `
UNWIND $rows AS row
CREATE (:MapImage {
	name: row.name,
	topLeftX: row.topLeftX,
	topLeftY: row.topLeftY,
	topRightX: row.topRightX,
	topRightY: row.topRightY,
	bottomRightX: row.bottomRightX,
	bottomRightY: row.bottomRightY,
	floor: row.floor
})
`

const listVerticesCypher = `
MATCH (v:Vertex)
RETURN v.id AS id, v.xPos AS xPos, v.yPos AS yPos, v.floor AS floor
ORDER BY id
`

const listEdgesCypher = `
MATCH (a:Vertex)-[:CONNECTS]->(b:Vertex)
RETURN a.id AS nodeA, b.id AS nodeB
ORDER BY nodeA, nodeB
`

const listMapImagesCypher = `
MATCH (m:MapImage)
RETURN m.name AS name,
	m.topLeftX AS topLeftX, m.topLeftY AS topLeftY,
	m.topRightX AS topRightX, m.topRightY AS topRightY,
	m.bottomRightX AS bottomRightX, m.bottomRightY AS bottomRightY,
	m.floor AS floor
ORDER BY floor, name
`
