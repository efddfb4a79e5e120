// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import (
	"time"

	"github.com/AleutianAI/nextstep/graph"
)

// TransitionContext carries the metadata accompanying one recorded
// transition.
type TransitionContext struct {
	// Actor is the transition initiator category.
	Actor graph.Actor `json:"actor"`

	// SessionID is the active session to append to. Empty records the
	// transition into the weight overlay only.
	SessionID string `json:"session_id,omitempty"`

	// Path is optional caller-supplied context (e.g., a route or screen).
	Path string `json:"path,omitempty"`

	// Timestamp is the observation time. Zero means time.Now().
	Timestamp time.Time `json:"timestamp,omitzero"`
}

// TransitionRecord is one entry of a batch recording.
type TransitionRecord struct {
	From    string            `json:"from"`
	To      string            `json:"to"`
	Context TransitionContext `json:"context"`
}

// Event is one recorded transition in a session chain.
type Event struct {
	// From is the source node ID.
	From string `json:"from"`

	// To is the destination node ID.
	To string `json:"to"`

	// Actor is the transition initiator category.
	Actor graph.Actor `json:"actor"`

	// SessionID is the session the event belongs to.
	SessionID string `json:"session_id,omitempty"`

	// Path is optional caller-supplied context.
	Path string `json:"path,omitempty"`

	// Timestamp is the effective observation time. Chains are strictly
	// time-ordered; colliding timestamps are nudged forward on append.
	Timestamp time.Time `json:"timestamp"`
}

// PredictionContext carries the parameters of one prediction call.
type PredictionContext struct {
	// Actor filters candidate edges to this initiator category.
	Actor graph.Actor `json:"actor"`

	// Count truncates the ranked result. Zero or negative returns all
	// candidates.
	Count int `json:"count,omitempty"`

	// At is the evaluation time for lazily decayed dynamic weights.
	// Zero means time.Now().
	At time.Time `json:"at,omitzero"`
}

// Prediction is one ranked candidate next node.
type Prediction struct {
	// NodeID is the candidate destination node.
	NodeID string `json:"node_id"`

	// BaseWeight is the static rule weight of the edge taken.
	BaseWeight float64 `json:"base_weight"`

	// DynamicWeight is the learned weight at evaluation time.
	DynamicWeight float64 `json:"dynamic_weight"`

	// Score is the combined ranking score.
	Score float64 `json:"score"`

	// Confidence is the candidate's share of the total score, in [0, 1].
	// When every candidate scores zero, confidence is uniform.
	Confidence float64 `json:"confidence"`
}

// PredictionDetail is a Prediction with observation metadata.
type PredictionDetail struct {
	Prediction

	// ObservationCount is how many times the candidate edge has been
	// recorded for the requesting actor.
	ObservationCount int `json:"observation_count"`

	// WarmupComplete reports whether the overlay has seen enough updates
	// for dynamic weights to be considered reliable.
	WarmupComplete bool `json:"warmup_complete"`
}

// Scorer combines a candidate's static and dynamic weights into a ranking
// score. It must be monotonic in the dynamic weight: increasing the
// dynamic weight never lowers rank.
type Scorer func(base, dynamic float64) float64

// LinearScorer is the default score combination: base + dynamic.
func LinearScorer(base, dynamic float64) float64 {
	return base + dynamic
}
