package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/vanshika/mapnav/backend/internal/dataset"
	"github.com/vanshika/mapnav/backend/internal/generator"
)

func main() {
	cfg := generator.DefaultConfig()
	var (
		floors      = flag.Int("floors", cfg.Floors, "number of floors")
		junctions   = flag.Int("junctions", cfg.Junctions, "corridor junctions per floor")
		roomChance  = flag.Float64("room-chance", cfg.RoomChance, "probability of a room on either side of a junction")
		stairwells  = flag.Int("stairwells", cfg.Stairwells, "stairwells joining consecutive floors")
		isolated    = flag.Int("isolated", cfg.IsolatedRooms, "unreachable rooms per floor")
		spacing     = flag.Float64("spacing", cfg.Spacing, "distance between corridor junctions")
		idGap       = flag.Int("id-gap", cfg.IDGap, "largest step between consecutive vertex ids")
		seed        = flag.Int64("seed", cfg.Seed, "random seed for deterministic generation")
		output      = flag.String("output", "data/building.json", "dataset file to write (.json, .yaml or .yml)")
		writeStdout = flag.Bool("stdout", false, "write the dataset as JSON to stdout instead of a file")
	)
	flag.Parse()

	genCfg := generator.Config{
		Floors:        *floors,
		Junctions:     *junctions,
		RoomChance:    clampProbability(*roomChance),
		Stairwells:    *stairwells,
		IsolatedRooms: *isolated,
		Spacing:       *spacing,
		IDGap:         *idGap,
		Seed:          *seed,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ds, err := generator.New(genCfg).Generate(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generation failed: %v\n", err)
		os.Exit(1)
	}

	if *writeStdout {
		if err := dataset.Encode(os.Stdout, dataset.FormatJSON, ds); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write dataset to stdout: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := generator.WriteDataset(ds, *output); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write dataset: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stdout, "Generated %d vertices, %d edges and %d floor plans into %s\n", len(ds.Vertices), len(ds.Edges), len(ds.MapImages), *output)
}

func clampProbability(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}
