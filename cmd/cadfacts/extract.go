// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/cadfacts/internal/aggregate"
	"github.com/pdiddy/cadfacts/internal/assembly"
	"github.com/pdiddy/cadfacts/internal/facts"
	"github.com/pdiddy/cadfacts/internal/metrics"
	"github.com/pdiddy/cadfacts/internal/operations"
	"github.com/pdiddy/cadfacts/internal/orchestrator"
	"github.com/pdiddy/cadfacts/pkg/types"
)

var extractCmd = &cobra.Command{
	Use:   "extract <snapshot.yaml>",
	Short: "Extract facts from an assembly snapshot into the fact store",
	Long: `Extract runs the extraction operations against an assembly snapshot and
commits their facts to the configured store. Without --operations every
operation runs; operations whose inputs are not ready yet are deferred and
retried once at the end. With --operations only the named operations run,
in the given order, without deferral.

The store is reset first unless --append is set.`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringSlice("operations", nil, "run only these operations, in order")
	extractCmd.Flags().Bool("append", false, "keep facts from previous sessions")
	extractCmd.Flags().String("export", "", "export facts after extraction: yaml, json, or nt")
	extractCmd.Flags().String("metrics-file", "", "write Prometheus metrics to this textfile")

	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
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

	store, err := facts.Open(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	appendFacts, _ := cmd.Flags().GetBool("append")
	if !appendFacts {
		if err := store.Reset(ctx); err != nil {
			return err
		}
	}

	reg := orchestrator.NewRegistry()
	err = operations.Register(reg, operations.Deps{
		Graph:      graph,
		Engine:     engine,
		Store:      store,
		Vocabulary: cfg.Extraction.Vocabulary,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	o := orchestrator.New(reg, store, orchestrator.Config{Logger: logger, Progress: os.Stdout})

	names, _ := cmd.Flags().GetStringSlice("operations")
	if len(names) == 0 {
		names = cfg.Extraction.Operations
	}
	var outcomes []orchestrator.Outcome
	if len(names) > 0 {
		outcomes = o.RunSelected(ctx, names)
	} else {
		outcomes = o.RunAll(ctx)
	}

	if format, _ := cmd.Flags().GetString("export"); format != "" {
		path, n, err := facts.ExportFile(ctx, store, cfg.Store.FactsDir, format, facts.QueryOptions{})
		if err != nil {
			return err
		}
		fmt.Printf("Exported %d facts to %s\n", n, path)
	}

	if path, _ := cmd.Flags().GetString("metrics-file"); path != "" {
		if err := metrics.WriteTextfile(path); err != nil {
			logger.Warn("writing metrics textfile", zap.String("path", path), zap.Error(err))
		}
	}

	if s := orchestrator.Summarize(outcomes); s.HasFailures() {
		return fmt.Errorf("%d operation(s) failed", s.Failed)
	}
	return nil
}

// openAssembly loads a snapshot and builds its graph and aggregation engine.
func openAssembly(ctx context.Context, path string, cfg types.Config, logger *zap.Logger) (*assembly.Snapshot, *assembly.Graph, *aggregate.Engine, error) {
	snap, err := assembly.LoadSnapshot(path)
	if err != nil {
		return nil, nil, nil, err
	}
	graph, err := assembly.NewGraph(ctx, snap)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("indexing %s: %w", path, err)
	}
	engine, err := aggregate.NewEngine(graph, aggregate.Config{
		MassUnit: cfg.Extraction.MassUnit,
		Logger:   logger,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	logger.Debug("assembly loaded",
		zap.String("snapshot", snap.Name()),
		zap.Int("components", graph.Len()))
	return snap, graph, engine, nil
}
