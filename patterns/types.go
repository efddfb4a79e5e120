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
	"time"

	"github.com/AleutianAI/nextstep/graph"
)

// Severity grades a finding.
type Severity string

const (
	// SeverityInfo marks a finding that is informational only.
	SeverityInfo Severity = "info"

	// SeverityWarning marks a finding that likely needs attention.
	SeverityWarning Severity = "warning"

	// SeverityError marks a finding that indicates a structural problem.
	SeverityError Severity = "error"
)

// LoopKind categorizes a cycle by its length.
type LoopKind string

const (
	// LoopTight is a two-node back-and-forth cycle.
	LoopTight LoopKind = "tight"

	// LoopSmall is a cycle of three or four nodes.
	LoopSmall LoopKind = "small"

	// LoopLarge is a cycle of five nodes or more.
	LoopLarge LoopKind = "large"
)

// kindOf maps a cycle length to its LoopKind.
func kindOf(length int) LoopKind {
	switch {
	case length <= 2:
		return LoopTight
	case length <= 4:
		return LoopSmall
	default:
		return LoopLarge
	}
}

// Component is one strongly connected component of the rule graph.
// Nodes are listed in declaration order.
type Component struct {
	// Nodes are the member node IDs.
	Nodes []string `json:"nodes"`
}

// Cyclic reports whether the component contains a cycle: more than one
// node, or a single node with a self edge.
func (c Component) Cyclic() bool {
	return len(c.Nodes) > 1
}

// HotLoop is a cycle carrying heavy learned traffic.
type HotLoop struct {
	// Nodes are the cycle members in declaration order.
	Nodes []string `json:"nodes"`

	// Kind categorizes the cycle length.
	Kind LoopKind `json:"kind"`

	// Traffic sums the overlay's dynamic weights over the cycle's
	// internal edges.
	Traffic float64 `json:"traffic"`

	// Frequency counts recorded chain traversals of the cycle's edges.
	// Zero without chain history.
	Frequency int `json:"frequency"`

	// Severity grades the finding by traffic and kind.
	Severity Severity `json:"severity"`
}

// InfiniteLoopWarning flags a start node whose greedy max-weight walk
// enters a cycle with no exit taken.
type InfiniteLoopWarning struct {
	// Start is the node the walk began at.
	Start string `json:"start"`

	// Cycle is the repeating node sequence the walk fell into.
	Cycle []string `json:"cycle"`

	// Steps is how many transitions the walk took before repeating.
	Steps int `json:"steps"`

	// Severity grades the finding.
	Severity Severity `json:"severity"`
}

// UnproductiveLoop is a cycle from which no procedure terminal node is
// reachable.
type UnproductiveLoop struct {
	// Nodes are the cycle members in declaration order.
	Nodes []string `json:"nodes"`

	// Severity grades the finding.
	Severity Severity `json:"severity"`
}

// Bottleneck is a node where recorded traffic accumulates faster than
// it drains.
type Bottleneck struct {
	// Node is the congested node ID.
	Node string `json:"node"`

	// InDegree and OutDegree count declared edges across all actors.
	InDegree  int `json:"in_degree"`
	OutDegree int `json:"out_degree"`

	// InTraffic and OutTraffic sum the overlay's dynamic weights over
	// the node's in- and out-edges.
	InTraffic  float64 `json:"in_traffic"`
	OutTraffic float64 `json:"out_traffic"`

	// Congestion is InTraffic divided by OutTraffic, with the
	// denominator floored at a small epsilon.
	Congestion float64 `json:"congestion"`

	// AvgDwell is the mean observed time between arriving at and
	// leaving the node. Zero without chain history.
	AvgDwell time.Duration `json:"avg_dwell,omitempty"`

	// Severity grades the finding; observed dwell beyond the configured
	// delay threshold escalates it.
	Severity Severity `json:"severity"`
}

// AutomationCandidate is a recurring transition sequence suitable for
// automation.
type AutomationCandidate struct {
	// Sequence is the repeated node path, including the start node.
	Sequence []string `json:"sequence"`

	// Actor is the initiator the sequence was mined for.
	Actor graph.Actor `json:"actor"`

	// Repetitions counts complete occurrences in the history.
	Repetitions int `json:"repetitions"`

	// Confidence is the minimum per-step dominant-successor share
	// across the sequence, in [0, 1].
	Confidence float64 `json:"confidence"`

	// Deterministic reports whether every step's successor was the same
	// in every occurrence.
	Deterministic bool `json:"deterministic"`
}

// Summary is a one-shot structural and behavioral overview.
type Summary struct {
	Nodes            int `json:"nodes"`
	Edges            int `json:"edges"`
	Procedures       int `json:"procedures"`
	Components       int `json:"components"`
	CyclicComponents int `json:"cyclic_components"`
	HotLoops         int `json:"hot_loops"`
	Bottlenecks      int `json:"bottlenecks"`

	// AvgPathLength is the mean number of transitions per sampled
	// simple path. Zero when no path was sampled.
	AvgPathLength float64 `json:"avg_path_length"`

	// SamplePaths is a bounded sample of simple paths from source nodes
	// (no inbound edges) to sink nodes (no outbound edges).
	SamplePaths [][]string `json:"sample_paths,omitempty"`
}

// Report bundles every analysis for one actor context.
type Report struct {
	Actor             graph.Actor           `json:"actor,omitempty"`
	Components        []Component           `json:"components"`
	HotLoops          []HotLoop             `json:"hot_loops"`
	InfiniteLoops     []InfiniteLoopWarning `json:"infinite_loops"`
	UnproductiveLoops []UnproductiveLoop    `json:"unproductive_loops"`
	Bottlenecks       []Bottleneck          `json:"bottlenecks"`
	Automation        []AutomationCandidate `json:"automation"`
	Summary           Summary               `json:"summary"`
}
