// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/cadfacts/internal/facts"
	"github.com/pdiddy/cadfacts/internal/operations"
)

var operationsCmd = &cobra.Command{
	Use:   "operations",
	Short: "List extraction operations and their completion state",
	Long: `Operations lists every extraction operation in the order a full run
executes them, and whether the configured store holds committed facts for
each.`,
	RunE: runOperations,
}

func init() {
	rootCmd.AddCommand(operationsCmd)
}

func runOperations(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := facts.Open(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	counts := map[string]int{}
	if s, ok := store.(*facts.SQLiteStore); ok {
		summaries, err := s.Operations(ctx)
		if err != nil {
			return err
		}
		for _, op := range summaries {
			counts[op.Name] = op.FactCount
		}
	}

	fmt.Fprintf(os.Stdout, "Store: %s\n\n", storeLabel(cfg.Store))
	fmt.Fprintf(os.Stdout, "%-24s  %-10s  %s\n", "Operation", "State", "Description")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 90))
	for _, name := range operations.Names() {
		done, err := store.Completed(ctx, name)
		if err != nil {
			return err
		}
		state := "-"
		if done {
			state = "completed"
			if n, ok := counts[name]; ok {
				state = fmt.Sprintf("%d facts", n)
			}
		}
		fmt.Fprintf(os.Stdout, "%-24s  %-10s  %s\n", name, state, operations.Description(name))
	}
	return nil
}
