// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the cadfacts CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/cadfacts/internal/logging"
	"github.com/pdiddy/cadfacts/internal/secrets"
	"github.com/pdiddy/cadfacts/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets secrets.Set

// rootCmd is the base command for the cadfacts CLI.
var rootCmd = &cobra.Command{
	Use:   "cadfacts",
	Short: "Extract engineering facts from CAD assembly snapshots",
	Long: `cadfacts reads an assembly snapshot, aggregates bounding boxes and
masses up the component hierarchy, and extracts facts (components,
placements, holes, links, joints, connections) into a fact store.

Subcommands cover extraction, aggregation, identity synchronization between
snapshots, and querying, exporting, and publishing the stored facts.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", s.Keys())
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./cadfacts.yaml or ~/.config/cadfacts/cadfacts.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("cadfacts")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "cadfacts"))
		}
	}

	viper.SetDefault("store.backend", string(types.StoreSQLite))
	viper.SetDefault("store.facts_dir", "facts")
	viper.SetDefault("store.max_results", 50)
	viper.SetDefault("store.postgres_dsn", "")
	viper.SetDefault("extraction.mass_unit", "kg")
	viper.SetDefault("sync.tolerance", 0.0)
	viper.SetDefault("publish.bucket", "")
	viper.SetDefault("publish.prefix", "")
	viper.SetDefault("publish.region", "")
	viper.SetDefault("publish.endpoint", "")
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "console")

	viper.SetEnvPrefix("CADFACTS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig decodes the merged viper settings over the built-in defaults
// and fills credentials from .secrets/.
func loadConfig() (types.Config, error) {
	cfg := types.Config{
		Extraction: types.ExtractionConfig{Vocabulary: types.DefaultVocabulary()},
	}
	err := viper.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
	})
	if err != nil {
		return types.Config{}, fmt.Errorf("decoding config: %w", err)
	}
	loadedSecrets.Apply(&cfg)
	return cfg, nil
}

// setup loads the config and builds the logger. Logs go to stderr so
// stdout stays free for progress lines and command output.
func setup() (types.Config, *zap.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return types.Config{}, nil, err
	}
	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		return types.Config{}, nil, err
	}
	return cfg, logger, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
