// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/cadfacts/internal/assembly"
	"github.com/pdiddy/cadfacts/internal/identity"
)

var syncCmd = &cobra.Command{
	Use:   "sync <source.yaml> <target.yaml>",
	Short: "Match components of two snapshots and carry ids across",
	Long: `Sync matches every source component to the first target component with
the same display name and placement, and prints the resulting target to
source id mapping. With --apply the target snapshot is rewritten so that
matched components take over the source ids.`,
	Args: cobra.ExactArgs(2),
	RunE: runSync,
}

var idsCmd = &cobra.Command{
	Use:   "ids",
	Short: "Manage persisted component ids",
}

var idsClearCmd = &cobra.Command{
	Use:   "clear <snapshot.yaml>",
	Short: "Remove persisted component ids from a snapshot",
	Long: `Clear removes the ids of every component in a snapshot so they are
reassigned on the next load. Components referenced by links or connectors
keep their ids and are reported as failed.`,
	Args: cobra.ExactArgs(1),
	RunE: runIDsClear,
}

func init() {
	syncCmd.Flags().Float64("tolerance", -1, "per-entry transform tolerance (default from config, 0 = exact)")
	syncCmd.Flags().Bool("apply", false, "write matched ids back to the target snapshot")
	syncCmd.Flags().String("output", "", "write the mapping to this YAML file")
	syncCmd.Flags().Bool("json", false, "output the mapping as JSON")

	idsCmd.AddCommand(idsClearCmd)

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(idsCmd)
}

type mappingEntry struct {
	Target string `json:"target" yaml:"target"`
	Source string `json:"source" yaml:"source"`
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	source, err := assembly.LoadSnapshot(args[0])
	if err != nil {
		return err
	}
	target, err := assembly.LoadSnapshot(args[1])
	if err != nil {
		return err
	}

	tolerance, _ := cmd.Flags().GetFloat64("tolerance")
	if tolerance < 0 {
		tolerance = cfg.Sync.Tolerance
	}

	res, err := identity.Synchronize(ctx, source, target, identity.Options{Tolerance: tolerance, Logger: logger})
	if err != nil {
		return err
	}

	entries := make([]mappingEntry, 0, len(res.Order))
	for _, t := range res.Order {
		entries = append(entries, mappingEntry{Target: t, Source: res.Mapping[t]})
	}

	if path, _ := cmd.Flags().GetString("output"); path != "" {
		data, err := yaml.Marshal(entries)
		if err != nil {
			return fmt.Errorf("marshaling mapping: %w", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(entries); err != nil {
			return err
		}
	} else {
		for _, e := range entries {
			fmt.Printf("%s <- %s\n", e.Target, e.Source)
		}
		for _, m := range res.Mismatches {
			fmt.Printf("unmatched %s (%s): %v\n", m.SourceID, m.Name, m.Err)
		}
		fmt.Printf("\nmatched: %d, unmatched: %d, skipped targets: %d\n",
			res.Matched(), len(res.Mismatches), len(res.Skipped))
	}

	if apply, _ := cmd.Flags().GetBool("apply"); apply {
		n, err := identity.Apply(target, res)
		if err != nil {
			return err
		}
		if err := target.Save(args[1]); err != nil {
			return err
		}
		fmt.Printf("Rewrote %d id(s) in %s\n", n, args[1])
	}
	return nil
}

func runIDsClear(cmd *cobra.Command, args []string) error {
	snap, err := assembly.LoadSnapshot(args[0])
	if err != nil {
		return err
	}
	cleared, failed := snap.ClearIDs()
	if err := snap.Save(args[0]); err != nil {
		return err
	}
	fmt.Printf("cleared: %d, failed: %d\n", cleared, failed)
	return nil
}
