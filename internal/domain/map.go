package domain

// Vertex is a room or corridor junction on the indoor map.
type Vertex struct {
	ID    int64
	X     float64
	Y     float64
	Floor int
}

// Edge is an undirected walkable connection between two vertices.
type Edge struct {
	NodeA int64
	NodeB int64
}

// Other returns the endpoint of the edge opposite to id.
func (e Edge) Other(id int64) int64 {
	if e.NodeA == id {
		return e.NodeB
	}
	return e.NodeA
}

// Connects reports whether the edge joins a and b in either direction.
func (e Edge) Connects(a, b int64) bool {
	return (e.NodeA == a && e.NodeB == b) || (e.NodeA == b && e.NodeB == a)
}

// Point is a position in map coordinates.
type Point struct {
	X float64
	Y float64
}

// MapImage anchors a floor plan image onto map coordinates. The bottom-left
// corner is implied by the other three.
type MapImage struct {
	Name        string
	TopLeft     Point
	TopRight    Point
	BottomRight Point
	Floor       int
}

// Dataset is everything a map load returns.
type Dataset struct {
	Vertices  []Vertex
	Edges     []Edge
	MapImages []MapImage
}
