package generator

// Config drives the synthetic building generator.
type Config struct {
	Floors int
	// Junctions is the number of corridor junctions per floor.
	Junctions int
	// RoomChance is the probability that a room hangs off either side of a
	// junction.
	RoomChance float64
	// Stairwells is the number of junctions per floor joined to the floor above.
	Stairwells int
	// IsolatedRooms per floor have no edges at all; queries to them yield no route.
	IsolatedRooms int
	// Spacing is the distance between neighbouring junctions.
	Spacing float64
	// IDGap is the largest step between consecutive vertex ids; ids are sparse
	// whenever it exceeds 1.
	IDGap int
	Seed  int64
}

// DefaultConfig returns a mid-sized office building.
func DefaultConfig() Config {
	return Config{
		Floors:        4,
		Junctions:     40,
		RoomChance:    0.6,
		Stairwells:    2,
		IsolatedRooms: 1,
		Spacing:       12,
		IDGap:         5,
		Seed:          42,
	}
}
