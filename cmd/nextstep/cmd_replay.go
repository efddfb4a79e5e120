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
	"bufio"
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
	replayGraphPath   string
	replayEventsPath  string
	replaySnapshotOut string
	replayStrict      bool
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a transition log into learned weights",
	Long: `Reads a JSON-lines transition log, records every transition against
the graph, and optionally writes the resulting weight snapshot.

Each line is one record:

  {"from": "browse", "to": "cart", "context": {"actor": "user", "timestamp": "2026-08-30T10:00:00Z"}}

With --strict the replay aborts on the first rejected transition;
otherwise rejections are logged and skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rules, err := builder.BuildFile(replayGraphPath)
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

		applied, skipped, err := replayEvents(eng, replayEventsPath, replayStrict)
		if err != nil {
			return err
		}
		logger.Info("replay finished", "applied", applied, "skipped", skipped)
		fmt.Printf("replayed %d transitions (%d skipped)\n", applied, skipped)

		if replaySnapshotOut != "" {
			snap, err := overlay.ExportSnapshot()
			if err != nil {
				return errors.Wrap(err, "exporting snapshot")
			}
			data, err := json.MarshalIndent(snap, "", "  ")
			if err != nil {
				return errors.Wrap(err, "encoding snapshot")
			}
			if err := os.WriteFile(replaySnapshotOut, data, 0o644); err != nil {
				return errors.Wrapf(err, "writing snapshot %s", replaySnapshotOut)
			}
			fmt.Printf("snapshot written to %s\n", replaySnapshotOut)
		}
		return nil
	},
}

// replayEvents streams the JSON-lines log through the engine. Sessions
// named in the log are created on first reference.
func replayEvents(eng *engine.Engine, path string, strict bool) (applied, skipped int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "opening event log %s", path)
	}
	defer f.Close()

	ctx := cmdContext()
	sessions := make(map[string]bool)
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var rec engine.TransitionRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			if strict {
				return applied, skipped, errors.Wrapf(err, "parsing line %d", line)
			}
			logger.Warn("skipping malformed line", "line", line, "error", err)
			skipped++
			continue
		}
		if sid := rec.Context.SessionID; sid != "" && !sessions[sid] {
			actor := rec.Context.Actor
			if actor == "" {
				actor = graph.ActorUser
			}
			if _, err := eng.StartSession(sid, actor); err != nil {
				return applied, skipped, errors.Wrapf(err, "starting session %s", sid)
			}
			sessions[sid] = true
		}
		if _, err := eng.RecordTransition(ctx, rec.From, rec.To, rec.Context); err != nil {
			if strict {
				return applied, skipped, errors.Wrapf(err, "recording line %d", line)
			}
			logger.Warn("transition rejected", "line", line, "from", rec.From, "to", rec.To, "error", err)
			skipped++
			continue
		}
		applied++
	}
	if err := scanner.Err(); err != nil {
		return applied, skipped, errors.Wrap(err, "reading event log")
	}
	return applied, skipped, nil
}

func init() {
	replayCmd.Flags().StringVar(&replayGraphPath, "graph", "", "Definition file (.json, .yaml)")
	replayCmd.Flags().StringVar(&replayEventsPath, "events", "", "JSON-lines transition log")
	replayCmd.Flags().StringVar(&replaySnapshotOut, "snapshot-out", "", "Write the resulting weight snapshot here")
	replayCmd.Flags().BoolVar(&replayStrict, "strict", false, "Abort on the first rejected transition")
	_ = replayCmd.MarkFlagRequired("graph")
	_ = replayCmd.MarkFlagRequired("events")
	rootCmd.AddCommand(replayCmd)
}
