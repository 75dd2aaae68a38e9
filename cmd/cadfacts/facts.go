// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/cadfacts/internal/facts"
	"github.com/pdiddy/cadfacts/internal/publish"
	"github.com/pdiddy/cadfacts/pkg/types"
)

var factsCmd = &cobra.Command{
	Use:   "facts",
	Short: "Query, export, import, and publish stored facts",
}

// --- retrieve subcommand ---

var factsRetrieveCmd = &cobra.Command{
	Use:   "retrieve [text]",
	Short: "Query the fact store",
	Long: `Retrieve lists facts matching exact subject, predicate, object, or
operation filters, or whose subject or object contains the given text.`,
	RunE: runFactsRetrieve,
}

func runFactsRetrieve(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	opts := queryOptsFromFlags(cmd, args)
	if opts.IsEmpty() {
		return fmt.Errorf("query or filter required: provide text, --subject, --predicate, --object, or --operation")
	}

	results, err := store.Retrieve(ctx, opts)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	for _, f := range results {
		object := f.Object
		if f.IsLiteral() {
			object = fmt.Sprintf("%q (%s)", f.Object, f.Datatype)
		}
		fmt.Fprintf(os.Stdout, "%s  %s  %s\n", f.Subject, f.Predicate, object)
	}
	fmt.Fprintf(os.Stdout, "\n%d results\n", len(results))
	return nil
}

// --- export subcommand ---

var factsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export facts to YAML, JSON, or N-Triples",
	Long: `Export writes the stored facts (or a filtered subset) to
<facts-dir>/index/export.<format>. Supports the same filter flags as
retrieve for partial exports.`,
	RunE: runFactsExport,
}

func runFactsExport(cmd *cobra.Command, args []string) error {
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

	format, _ := cmd.Flags().GetString("format")
	path, n, err := facts.ExportFile(ctx, store, cfg.Store.FactsDir, format, queryOptsFromFlags(cmd, args))
	if err != nil {
		return err
	}
	fmt.Printf("Exported %d facts to %s\n", n, path)
	return nil
}

// --- import subcommand ---

var factsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Load facts from a YAML or JSON export",
	Args:  cobra.ExactArgs(1),
	RunE:  runFactsImport,
}

func runFactsImport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	format, _ := cmd.Flags().GetString("format")
	if format == "" {
		format = strings.TrimPrefix(filepath.Ext(args[0]), ".")
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening %s: %w", args[0], err)
	}
	defer f.Close()

	n, err := facts.Import(ctx, store, f, format)
	if err != nil {
		return err
	}
	fmt.Printf("Imported %d facts from %s\n", n, args[0])
	return nil
}

// --- publish subcommand ---

var factsPublishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Upload a fact export to S3-compatible object storage",
	Long: `Publish exports the stored facts and uploads them to the configured
bucket as <prefix>/<name>.<format>.`,
	RunE: runFactsPublish,
}

func runFactsPublish(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if bucket, _ := cmd.Flags().GetString("bucket"); bucket != "" {
		cfg.Publish.Bucket = bucket
	}
	pub, err := publish.New(ctx, cfg.Publish, logger)
	if err != nil {
		return err
	}

	store, err := facts.Open(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	name, _ := cmd.Flags().GetString("name")
	format, _ := cmd.Flags().GetString("format")
	key, n, err := pub.PublishFacts(ctx, store, name, format, queryOptsFromFlags(cmd, args))
	if err != nil {
		return err
	}
	fmt.Printf("Published %d facts to s3://%s/%s\n", n, cfg.Publish.Bucket, key)
	return nil
}

// --- shared helpers ---

func openStore(ctx context.Context) (facts.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return facts.Open(ctx, cfg.Store)
}

func queryOptsFromFlags(cmd *cobra.Command, args []string) facts.QueryOptions {
	contains, _ := cmd.Flags().GetString("contains")
	if contains == "" && len(args) > 0 {
		contains = strings.Join(args, " ")
	}
	subject, _ := cmd.Flags().GetString("subject")
	predicate, _ := cmd.Flags().GetString("predicate")
	object, _ := cmd.Flags().GetString("object")
	operation, _ := cmd.Flags().GetString("operation")
	limit, _ := cmd.Flags().GetInt("limit")

	return facts.QueryOptions{
		Subject:    subject,
		Predicate:  predicate,
		Object:     object,
		Operation:  operation,
		Contains:   contains,
		MaxResults: limit,
	}
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("subject", "", "filter by exact subject IRI")
	cmd.Flags().String("predicate", "", "filter by exact predicate IRI")
	cmd.Flags().String("object", "", "filter by exact object")
	cmd.Flags().String("operation", "", "filter by producing operation")
	cmd.Flags().String("contains", "", "match subjects or objects containing this text")
	cmd.Flags().Int("limit", 0, "maximum results (0 = use default)")
}

func init() {
	addFilterFlags(factsRetrieveCmd)
	factsRetrieveCmd.Flags().Bool("json", false, "output results as JSON")

	addFilterFlags(factsExportCmd)
	factsExportCmd.Flags().String("format", facts.FormatYAML, "export format: yaml, json, or nt")

	factsImportCmd.Flags().String("format", "", "input format: yaml or json (default from file extension)")

	addFilterFlags(factsPublishCmd)
	factsPublishCmd.Flags().String("format", facts.FormatNTriples, "export format: yaml, json, or nt")
	factsPublishCmd.Flags().String("name", "facts", "object name without extension")
	factsPublishCmd.Flags().String("bucket", "", "override the configured bucket")

	factsCmd.AddCommand(factsRetrieveCmd)
	factsCmd.AddCommand(factsExportCmd)
	factsCmd.AddCommand(factsImportCmd)
	factsCmd.AddCommand(factsPublishCmd)

	rootCmd.AddCommand(factsCmd)
}

// storeLabel describes where facts live, for status lines.
func storeLabel(cfg types.StoreConfig) string {
	switch cfg.Backend {
	case types.StoreMemory:
		return "memory"
	case types.StorePostgres:
		return "postgres"
	default:
		return filepath.Join(cfg.FactsDir, "index", "facts.db")
	}
}
