// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package patterns

import (
	"context"
	"sort"
	"strings"

	"github.com/AleutianAI/nextstep/engine"
	"github.com/AleutianAI/nextstep/graph"
)

// AutomationCandidates mines the actor's history for transition
// sequences worth automating.
//
// # Description
//
// The history is segmented per session into node paths, then scanned
// with sliding windows from the configured minimum number of
// transitions up to the configured maximum. A window qualifies when it
// repeats at least MinRepetitions
// times and every step's dominant successor share meets
// ConfidenceThreshold. A candidate is deterministic when each of its
// steps had exactly one observed successor. Longer sequences are
// preferred: a window wholly contained in a reported longer window at
// the same repetition count is suppressed.
func (a *Analyzer) AutomationCandidates(ctx context.Context, actor graph.Actor) ([]AutomationCandidate, error) {
	if ctx == nil {
		return nil, ErrInvalidInput
	}
	events, err := a.events(actor)
	if err != nil {
		return nil, err
	}
	paths := sessionPaths(events)
	if len(paths) == 0 {
		return nil, nil
	}

	// Successor distribution per node, for confidence scoring.
	successors := make(map[string]map[string]int)
	for _, path := range paths {
		for i := 0; i+1 < len(path); i++ {
			if successors[path[i]] == nil {
				successors[path[i]] = make(map[string]int)
			}
			successors[path[i]][path[i+1]]++
		}
	}

	// Count windows of each length. Lengths are in nodes: a sequence of
	// n transitions spans n+1 nodes.
	minNodes := a.opts.MinSequenceLength + 1
	if minNodes < 2 {
		minNodes = 2
	}
	windowCounts := make(map[string]int)
	for _, path := range paths {
		maxLen := a.opts.MaxSequenceLength
		for length := minNodes; length <= maxLen+1; length++ {
			for i := 0; i+length <= len(path); i++ {
				windowCounts[strings.Join(path[i:i+length], "\x00")]++
			}
		}
	}

	var candidates []AutomationCandidate
	for key, reps := range windowCounts {
		if reps < a.opts.MinRepetitions {
			continue
		}
		seq := strings.Split(key, "\x00")
		confidence, deterministic := a.sequenceConfidence(seq, successors)
		if confidence < a.opts.ConfidenceThreshold {
			continue
		}
		candidates = append(candidates, AutomationCandidate{
			Sequence:      seq,
			Actor:         actor,
			Repetitions:   reps,
			Confidence:    confidence,
			Deterministic: deterministic,
		})
	}

	candidates = suppressSubsequences(candidates)
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Repetitions != candidates[j].Repetitions {
			return candidates[i].Repetitions > candidates[j].Repetitions
		}
		if len(candidates[i].Sequence) != len(candidates[j].Sequence) {
			return len(candidates[i].Sequence) > len(candidates[j].Sequence)
		}
		return strings.Join(candidates[i].Sequence, ",") < strings.Join(candidates[j].Sequence, ",")
	})
	a.opts.Metrics.RecordAnalysis("automation")
	return candidates, nil
}

// sequenceConfidence is the minimum dominant-successor share across the
// sequence's steps, plus whether every step was fully deterministic.
func (a *Analyzer) sequenceConfidence(seq []string, successors map[string]map[string]int) (float64, bool) {
	confidence := 1.0
	deterministic := true
	for i := 0; i+1 < len(seq); i++ {
		dist := successors[seq[i]]
		var total, taken int
		for to, n := range dist {
			total += n
			if to == seq[i+1] {
				taken = n
			}
		}
		if total == 0 {
			return 0, false
		}
		share := float64(taken) / float64(total)
		if share < confidence {
			confidence = share
		}
		if len(dist) > 1 {
			deterministic = false
		}
	}
	return confidence, deterministic
}

// sessionPaths reassembles per-session node paths from the merged
// event stream. A gap (event whose From differs from the previous To)
// starts a new path segment.
func sessionPaths(events []engine.Event) [][]string {
	bySession := make(map[string][]engine.Event)
	var order []string
	for _, ev := range events {
		if _, ok := bySession[ev.SessionID]; !ok {
			order = append(order, ev.SessionID)
		}
		bySession[ev.SessionID] = append(bySession[ev.SessionID], ev)
	}

	var paths [][]string
	for _, id := range order {
		var path []string
		for _, ev := range bySession[id] {
			if len(path) == 0 || path[len(path)-1] != ev.From {
				if len(path) > 1 {
					paths = append(paths, path)
				}
				path = []string{ev.From}
			}
			path = append(path, ev.To)
		}
		if len(path) > 1 {
			paths = append(paths, path)
		}
	}
	return paths
}

// suppressSubsequences drops candidates wholly contained in a longer
// candidate with the same repetition count.
func suppressSubsequences(candidates []AutomationCandidate) []AutomationCandidate {
	keep := make([]AutomationCandidate, 0, len(candidates))
	for i, c := range candidates {
		contained := false
		for j, longer := range candidates {
			if i == j || len(longer.Sequence) <= len(c.Sequence) {
				continue
			}
			if longer.Repetitions == c.Repetitions && containsSeq(longer.Sequence, c.Sequence) {
				contained = true
				break
			}
		}
		if !contained {
			keep = append(keep, c)
		}
	}
	return keep
}

func containsSeq(haystack, needle []string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
