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
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/nextstep/builder"
	"github.com/AleutianAI/nextstep/engine"
	"github.com/AleutianAI/nextstep/graph"
	"github.com/AleutianAI/nextstep/weights"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	predictGraphPath    string
	predictSnapshotPath string
	predictFrom         string
	predictActor        string
	predictCount        int
	predictJSON         bool
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Rank likely next actions from a node",
	Long: `Loads a graph definition, optionally applies a previously saved
weight snapshot, and prints the ranked next-action candidates from the
given node for the given actor.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rules, err := builder.BuildFile(predictGraphPath)
		if err != nil {
			return err
		}
		overlay, err := weights.New(rules, weights.DefaultConfig())
		if err != nil {
			return err
		}
		if predictSnapshotPath != "" {
			if err := loadSnapshot(overlay, predictSnapshotPath); err != nil {
				return err
			}
		}
		eng, err := engine.New(rules, overlay)
		if err != nil {
			return err
		}
		defer func() { _ = eng.Destroy() }()

		details, err := eng.PredictNextDetailed(cmdContext(), predictFrom, engine.PredictionContext{
			Actor: graph.Actor(predictActor),
			Count: predictCount,
		})
		if err != nil {
			return err
		}

		if predictJSON {
			out, err := json.MarshalIndent(details, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		}
		if len(details) == 0 {
			fmt.Printf("no outgoing transitions from %s for actor %s\n", predictFrom, predictActor)
			return nil
		}
		for i, d := range details {
			fmt.Printf("%2d. %-24s score=%.4f confidence=%.2f (base=%.2f dynamic=%.4f seen=%d)\n",
				i+1, d.NodeID, d.Score, d.Confidence, d.BaseWeight, d.DynamicWeight, d.ObservationCount)
		}
		return nil
	},
}

// loadSnapshot reads a weight snapshot file into the overlay.
func loadSnapshot(overlay *weights.Overlay, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "reading snapshot %s", path)
	}
	var snap weights.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return errors.Wrapf(err, "parsing snapshot %s", path)
	}
	if err := overlay.ImportSnapshot(&snap); err != nil {
		return errors.Wrapf(err, "importing snapshot %s", path)
	}
	return nil
}

func init() {
	predictCmd.Flags().StringVar(&predictGraphPath, "graph", "", "Definition file (.json, .yaml)")
	predictCmd.Flags().StringVar(&predictSnapshotPath, "snapshot", "", "Weight snapshot to apply before predicting")
	predictCmd.Flags().StringVar(&predictFrom, "from", "", "Current node ID")
	predictCmd.Flags().StringVar(&predictActor, "actor", string(graph.ActorUser), "Actor to predict for")
	predictCmd.Flags().IntVar(&predictCount, "count", 0, "Limit the number of candidates (0 = all)")
	predictCmd.Flags().BoolVar(&predictJSON, "json", false, "Emit JSON instead of a table")
	_ = predictCmd.MarkFlagRequired("graph")
	_ = predictCmd.MarkFlagRequired("from")
	rootCmd.AddCommand(predictCmd)
}
