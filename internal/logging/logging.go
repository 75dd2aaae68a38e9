// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logging builds the structured logger used across the CLI.
package logging

import (
	"go.uber.org/zap"

	"github.com/pdiddy/cadfacts/pkg/types"
)

// NewLogger creates a zap logger from cfg. An unparseable level falls back
// to info.
func NewLogger(cfg types.LoggingConfig) (*zap.Logger, error) {
	var zapConfig zap.Config
	if cfg.Development {
		zapConfig = zap.NewDevelopmentConfig()
	} else {
		zapConfig = zap.NewProductionConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	zapConfig.Level = level

	if cfg.Format == "console" {
		zapConfig.Encoding = "console"
	} else {
		zapConfig.Encoding = "json"
	}

	// Stdout carries command output; logs go to stderr unless redirected.
	zapConfig.OutputPaths = []string{"stderr"}
	if cfg.OutputPath != "" {
		zapConfig.OutputPaths = []string{cfg.OutputPath}
	}

	return zapConfig.Build(zap.Fields(zap.String("service", "cadfacts")))
}

// NewDefaultLogger returns an info-level console logger, falling back to a
// no-op logger when it cannot be built.
func NewDefaultLogger() *zap.Logger {
	logger, err := NewLogger(types.LoggingConfig{Level: "info", Format: "console"})
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
