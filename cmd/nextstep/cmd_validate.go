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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/nextstep/builder"
)

var validateGraphPath string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a workflow graph definition file",
	Long: `Parses a JSON or YAML definition file, checks its document shape,
and runs full graph construction validation (identifier shapes, guard
syntax, duplicate edges, procedure walkability).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := builder.BuildFile(validateGraphPath)
		if err != nil {
			return err
		}
		stats := g.Stats()
		logger.Info("definition valid",
			"file", validateGraphPath,
			"nodes", stats.NodeCount,
			"edges", stats.EdgeCount,
			"procedures", stats.ProcedureCount)
		fmt.Printf("OK: %d nodes, %d edges, %d procedures\n",
			stats.NodeCount, stats.EdgeCount, stats.ProcedureCount)
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateGraphPath, "graph", "", "Definition file (.json, .yaml)")
	_ = validateCmd.MarkFlagRequired("graph")
	rootCmd.AddCommand(validateCmd)
}
