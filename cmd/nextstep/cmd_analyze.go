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
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/nextstep/builder"
	"github.com/AleutianAI/nextstep/engine"
	"github.com/AleutianAI/nextstep/graph"
	"github.com/AleutianAI/nextstep/patterns"
	"github.com/AleutianAI/nextstep/weights"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	analyzeGraphPath        string
	analyzeEventsPath       string
	analyzeActor            string
	analyzeHotThreshold     float64
	analyzeTrafficThreshold float64
	analyzeDelayThreshold   time.Duration
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run pattern analysis over a graph and its history",
	Long: `Loads a graph definition, optionally replays a transition log, and
prints the full pattern report: strongly connected components, hot and
unproductive loops, runaway-walk warnings, bottlenecks, automation
candidates, and a structural summary.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rules, err := builder.BuildFile(analyzeGraphPath)
		if err != nil {
			return err
		}
		overlay, err := weights.New(rules, weights.DefaultConfig())
		if err != nil {
			return err
		}
		eng, err := engine.New(rules, overlay)
		if err != nil {
			return err
		}
		defer func() { _ = eng.Destroy() }()

		var chains patterns.ChainSource
		if analyzeEventsPath != "" {
			applied, skipped, err := replayEvents(eng, analyzeEventsPath, false)
			if err != nil {
				return err
			}
			logger.Info("history loaded", "applied", applied, "skipped", skipped)
			chains = eng
		}

		analyzer, err := patterns.NewAnalyzer(rules, overlay, chains,
			patterns.WithHotLoopThreshold(analyzeHotThreshold),
			patterns.WithTrafficThreshold(analyzeTrafficThreshold),
			patterns.WithDelayThreshold(analyzeDelayThreshold))
		if err != nil {
			return err
		}

		report, err := analyzer.AnalyzeByContext(cmdContext(), graph.Actor(analyzeActor))
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeGraphPath, "graph", "", "Definition file (.json, .yaml)")
	analyzeCmd.Flags().StringVar(&analyzeEventsPath, "events", "", "JSON-lines transition log to replay first")
	analyzeCmd.Flags().StringVar(&analyzeActor, "actor", string(graph.ActorUser), "Actor context to analyze")
	analyzeCmd.Flags().Float64Var(&analyzeHotThreshold, "hot-threshold", 3, "Minimum internal traffic for a hot loop")
	analyzeCmd.Flags().Float64Var(&analyzeTrafficThreshold, "traffic-threshold", 1, "Minimum incoming traffic for a bottleneck")
	analyzeCmd.Flags().DurationVar(&analyzeDelayThreshold, "delay-threshold", 0, "Dwell time that escalates a bottleneck (0 = off)")
	_ = analyzeCmd.MarkFlagRequired("graph")
	rootCmd.AddCommand(analyzeCmd)
}
