// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/nextstep/pkg/logging"
)

// =============================================================================
// GLOBAL FLAGS
// =============================================================================

var (
	flagConfig   string
	flagLogLevel string
	flagLogDir   string
	flagQuiet    bool
)

// defaultConfigPath is consulted when --config is not given.
const defaultConfigPath = "nextstep.yaml"

var logger *logging.Logger

var rootCmd = &cobra.Command{
	Use:   "nextstep",
	Short: "Workflow next-action prediction tooling",
	Long: `nextstep validates workflow graph definitions, replays recorded
transition logs into learned weights, predicts likely next actions,
and mines workflow history for patterns.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, required := defaultConfigPath, false
		if flagConfig != "" {
			path, required = flagConfig, true
		}
		cfg, err := loadCLIConfig(path, required)
		if err != nil {
			return err
		}
		applyConfigDefaults(cmd, cfg)

		logger = logging.New(logging.Config{
			Level:   logging.ParseLevel(flagLogLevel),
			LogDir:  flagLogDir,
			Service: "nextstep",
			Quiet:   flagQuiet,
		})
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Close()
		}
	},
}

// applyConfigDefaults backfills flags the user did not set from the
// config file. Command-line values always take precedence.
func applyConfigDefaults(cmd *cobra.Command, cfg cliConfig) {
	pf := cmd.Root().PersistentFlags()
	if cfg.LogLevel != "" && !pf.Changed("log-level") {
		flagLogLevel = cfg.LogLevel
	}
	if cfg.LogDir != "" && !pf.Changed("log-dir") {
		flagLogDir = cfg.LogDir
	}
	if cfg.Quiet && !pf.Changed("quiet") {
		flagQuiet = true
	}
	if cfg.Graph != "" {
		if f := cmd.Flags().Lookup("graph"); f != nil && !f.Changed {
			_ = cmd.Flags().Set("graph", cfg.Graph)
		}
	}
}

// cmdContext is the base context for command execution.
func cmdContext() context.Context {
	return context.Background()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "YAML config file supplying flag defaults (default nextstep.yaml when present)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Minimum log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flagLogDir, "log-dir", "", "Directory for JSON log files (disabled when empty)")
	rootCmd.PersistentFlags().BoolVar(&flagQuiet, "quiet", false, "Suppress stderr logging")
}
