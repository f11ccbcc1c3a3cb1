package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/vanshika/mapnav/backend/internal/dataset"
	"github.com/vanshika/mapnav/backend/internal/routing"
	"github.com/vanshika/mapnav/backend/internal/viewer"
)

type rootOptions struct {
	datasetPath   string
	maxIterations int
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "mapctl",
		Short:         "Inspect indoor map datasets and compute routes offline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.datasetPath, "dataset", "d", "data/building.json", "dataset file (.json, .yaml or .yml)")
	root.PersistentFlags().IntVar(&opts.maxIterations, "max-iterations", 0, "override the search iteration cap")

	root.AddCommand(newValidateCmd(opts), newPathCmd(opts), newViewCmd(opts))
	return root
}

func (o *rootOptions) load() (*routing.Graph, error) {
	ds, err := dataset.Load(o.datasetPath)
	if err != nil {
		return nil, err
	}
	return routing.Build(ds.Vertices, ds.Edges)
}

func (o *rootOptions) routingOptions() []routing.Option {
	if o.maxIterations > 0 {
		return []routing.Option{routing.WithMaxIterations(o.maxIterations)}
	}
	return nil
}

func newValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check that the dataset builds into a routable graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			g, err := opts.load()
			if err != nil {
				return err
			}
			return writeSummary(cmd.OutOrStdout(), opts.datasetPath, g)
		},
	}
}

func writeSummary(w io.Writer, path string, g *routing.Graph) error {
	perFloor := make(map[int]int)
	isolated := 0
	for _, id := range g.VertexIDs() {
		v, _ := g.Vertex(id)
		perFloor[v.Floor]++
		if len(g.Neighbors(id)) == 0 {
			isolated++
		}
	}
	floors := make([]int, 0, len(perFloor))
	for f := range perFloor {
		floors = append(floors, f)
	}
	sort.Ints(floors)

	fmt.Fprintf(w, "%s: ok\n", path)
	fmt.Fprintf(w, "vertices: %d\nedges: %d\nisolated: %d\n", g.Len(), g.EdgeCount(), isolated)
	for _, f := range floors {
		fmt.Fprintf(w, "floor %d: %d vertices\n", f, perFloor[f])
	}
	return nil
}

type pathOutput struct {
	Found         bool    `json:"found"`
	StartID       int64   `json:"startId"`
	EndID         int64   `json:"endId"`
	TotalDistance float64 `json:"totalDistance"`
	VertexIDs     []int64 `json:"vertexIds"`
}

func newPathCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "path <startID> <endID>",
		Short: "Print the shortest route between two vertices",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid startID %q", args[0])
			}
			end, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid endID %q", args[1])
			}
			g, err := opts.load()
			if err != nil {
				return err
			}

			res, err := routing.ShortestPath(g, start, end, opts.routingOptions()...)
			if err != nil && !errors.Is(err, routing.ErrNoPath) {
				return err
			}
			out := pathOutput{
				Found:         err == nil,
				StartID:       start,
				EndID:         end,
				TotalDistance: res.TotalDistance,
				VertexIDs:     append([]int64{}, res.VertexIDs...),
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			return writeRoute(cmd.OutOrStdout(), g, out)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the route as JSON")
	return cmd
}

func writeRoute(w io.Writer, g *routing.Graph, out pathOutput) error {
	if !out.Found {
		fmt.Fprintf(w, "no route from %d to %d\n", out.StartID, out.EndID)
		return nil
	}
	fmt.Fprintf(w, "route from %d to %d: %.2f over %d hops\n", out.StartID, out.EndID, out.TotalDistance, len(out.VertexIDs)-1)
	for i, id := range out.VertexIDs {
		v, _ := g.Vertex(id)
		fmt.Fprintf(w, "%3d. %d (%.1f, %.1f) floor %d\n", i+1, id, v.X, v.Y, v.Floor)
	}
	return nil
}

func newViewCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "view",
		Short: "Browse the map and pick routes interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			g, err := opts.load()
			if err != nil {
				return err
			}
			p := tea.NewProgram(viewer.New(g, opts.routingOptions()...),
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.OutOrStdout()),
				tea.WithContext(cmd.Context()),
			)
			_, err = p.Run()
			return err
		},
	}
}
