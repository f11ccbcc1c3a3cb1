package generator

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/vanshika/mapnav/backend/internal/domain"
)

const roomOffset = 6.0

// Generator produces synthetic multi-floor buildings. Each floor is a
// straight corridor of junctions with rooms on either side; stairwells join
// the same junction on consecutive floors.
type Generator struct {
	cfg    Config
	rand   *rand.Rand
	nextID int64
}

// New returns a configured Generator instance.
func New(cfg Config) *Generator {
	def := DefaultConfig()
	if cfg.Floors <= 0 {
		cfg.Floors = def.Floors
	}
	if cfg.Junctions <= 0 {
		cfg.Junctions = def.Junctions
	}
	if cfg.RoomChance < 0 || cfg.RoomChance > 1 {
		cfg.RoomChance = def.RoomChance
	}
	if cfg.Stairwells <= 0 {
		cfg.Stairwells = def.Stairwells
	}
	if cfg.Stairwells > cfg.Junctions {
		cfg.Stairwells = cfg.Junctions
	}
	if cfg.IsolatedRooms < 0 {
		cfg.IsolatedRooms = 0
	}
	if cfg.Spacing <= 0 {
		cfg.Spacing = def.Spacing
	}
	if cfg.IDGap <= 0 {
		cfg.IDGap = 1
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	return &Generator{
		cfg:  cfg,
		rand: rand.New(rand.NewSource(cfg.Seed)),
	}
}

// Generate builds the dataset. It respects context cancellation.
func (g *Generator) Generate(ctx context.Context) (domain.Dataset, error) {
	var ds domain.Dataset
	stairs := g.stairwellJunctions()
	var below []int64

	for floor := 0; floor < g.cfg.Floors; floor++ {
		if err := ctx.Err(); err != nil {
			return domain.Dataset{}, err
		}

		junctions := make([]int64, g.cfg.Junctions)
		for j := range junctions {
			v := g.vertex(float64(j)*g.cfg.Spacing, 0, floor)
			ds.Vertices = append(ds.Vertices, v)
			junctions[j] = v.ID
			if j > 0 {
				ds.Edges = append(ds.Edges, g.edge(junctions[j-1], v.ID))
			}

			for _, side := range []float64{-roomOffset, roomOffset} {
				if g.rand.Float64() >= g.cfg.RoomChance {
					continue
				}
				room := g.vertex(float64(j)*g.cfg.Spacing, side, floor)
				ds.Vertices = append(ds.Vertices, room)
				ds.Edges = append(ds.Edges, g.edge(v.ID, room.ID))
			}
		}

		if below != nil {
			for _, j := range stairs {
				ds.Edges = append(ds.Edges, g.edge(below[j], junctions[j]))
			}
		}
		below = junctions

		for i := 0; i < g.cfg.IsolatedRooms; i++ {
			x := float64(g.rand.Intn(g.cfg.Junctions)) * g.cfg.Spacing
			ds.Vertices = append(ds.Vertices, g.vertex(x, 3*roomOffset, floor))
		}

		ds.MapImages = append(ds.MapImages, g.floorPlan(floor))
	}
	return ds, nil
}

// stairwellJunctions spreads the stairwells evenly along the corridor.
func (g *Generator) stairwellJunctions() []int {
	out := make([]int, 0, g.cfg.Stairwells)
	step := g.cfg.Junctions / g.cfg.Stairwells
	for i := 0; i < g.cfg.Stairwells; i++ {
		out = append(out, i*step+step/2)
	}
	return out
}

func (g *Generator) vertex(x, y float64, floor int) domain.Vertex {
	g.nextID += 1 + int64(g.rand.Intn(g.cfg.IDGap))
	return domain.Vertex{ID: g.nextID, X: x, Y: y, Floor: floor}
}

// edge stores endpoints in a random orientation; edges are undirected.
func (g *Generator) edge(a, b int64) domain.Edge {
	if g.rand.Intn(2) == 0 {
		a, b = b, a
	}
	return domain.Edge{NodeA: a, NodeB: b}
}

func (g *Generator) floorPlan(floor int) domain.MapImage {
	margin := 2 * roomOffset
	right := float64(g.cfg.Junctions-1)*g.cfg.Spacing + margin
	return domain.MapImage{
		Name:        fmt.Sprintf("floor-%02d.png", floor),
		TopLeft:     domain.Point{X: -margin, Y: 4 * roomOffset},
		TopRight:    domain.Point{X: right, Y: 4 * roomOffset},
		BottomRight: domain.Point{X: right, Y: -margin},
		Floor:       floor,
	}
}
