// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var aggregateCmd = &cobra.Command{
	Use:   "aggregate <snapshot.yaml> [component-ids...]",
	Short: "Print aggregated bounding boxes and masses",
	Long: `Aggregate computes the bounding box and total mass of each component,
folding in descendants where the component's own measurement is missing or
partial. Without component ids every component is listed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAggregate,
}

func init() {
	aggregateCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(aggregateCmd)
}

type aggregateRow struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	Origin string     `json:"origin"`
	Box    [6]float64 `json:"box"`
	Mass   float64    `json:"mass"`
	Unit   string     `json:"unit"`
}

func runAggregate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	_, graph, engine, err := openAssembly(ctx, args[0], cfg, logger)
	if err != nil {
		return err
	}

	ids := args[1:]
	if len(ids) == 0 {
		for _, c := range graph.Components() {
			ids = append(ids, c.ID)
		}
	}

	rows := make([]aggregateRow, 0, len(ids))
	for _, id := range ids {
		name, err := graph.DisplayName(ctx, id)
		if err != nil {
			return err
		}
		bounds, err := engine.BoundingBox(ctx, id)
		if err != nil {
			return err
		}
		mass, err := engine.Mass(ctx, id)
		if err != nil {
			return err
		}
		rows = append(rows, aggregateRow{
			ID:     id,
			Name:   name,
			Origin: bounds.Origin.String(),
			Box:    bounds.Box.Coordinates(),
			Mass:   mass.Mass,
			Unit:   mass.Unit,
		})
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	fmt.Fprintf(os.Stdout, "%-36s  %-20s  %-10s  %-40s  %s\n", "ID", "Name", "Origin", "Box", "Mass")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 120))
	for _, r := range rows {
		fmt.Fprintf(os.Stdout, "%-36s  %-20s  %-10s  %-40s  %g %s\n",
			r.ID, truncate(r.Name, 20), r.Origin, formatBox(r.Box), r.Mass, r.Unit)
	}
	return nil
}

// truncate shortens s to at most n characters, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func formatBox(c [6]float64) string {
	return fmt.Sprintf("[%g %g %g]..[%g %g %g]", c[0], c[1], c[2], c[3], c[4], c[5])
}
