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
	"time"

	"github.com/AleutianAI/nextstep/engine"
	"github.com/AleutianAI/nextstep/graph"
)

// HotLoops returns cycles whose internal edges carry aggregate
// dynamic-weight traffic above the configured threshold.
//
// # Description
//
// Cycles come from the rule graph's strongly connected components. The
// traffic of a cycle is the sum of the overlay's current weights over
// its internal edges, scoped to the given actor when one is named.
// Recorded chain traversals, when a chain source is present, are
// reported as the frequency measure but do not gate the finding.
// Results are ordered by descending traffic, then by declaration
// position.
func (a *Analyzer) HotLoops(ctx context.Context, actor graph.Actor) ([]HotLoop, error) {
	if ctx == nil {
		return nil, ErrInvalidInput
	}
	cyclic, err := a.cyclicComponents(ctx)
	if err != nil {
		return nil, err
	}

	// Count recorded traversals per edge pair, when history exists.
	var events []engine.Event
	if a.chains != nil {
		if events, err = a.events(actor); err != nil {
			return nil, err
		}
	}
	traversals := make(map[[2]string]int)
	for _, ev := range events {
		traversals[[2]string{ev.From, ev.To}]++
	}

	now := time.Now()
	order := a.declarationIndex()
	var loops []HotLoop
	for _, c := range cyclic {
		members := make(map[string]bool, len(c.Nodes))
		for _, n := range c.Nodes {
			members[n] = true
		}
		var traffic float64
		for _, e := range a.rules.Edges() {
			if !members[e.From] || !members[e.To] {
				continue
			}
			if actor != "" && e.Actor != actor {
				continue
			}
			traffic += a.dynamicWeight(e, now)
		}
		if traffic <= a.opts.HotLoopThreshold {
			continue
		}
		var freq int
		for pair, n := range traversals {
			if members[pair[0]] && members[pair[1]] {
				freq += n
			}
		}
		kind := kindOf(len(c.Nodes))
		loops = append(loops, HotLoop{
			Nodes:     c.Nodes,
			Kind:      kind,
			Traffic:   traffic,
			Frequency: freq,
			Severity:  hotLoopSeverity(kind, traffic, a.opts.HotLoopThreshold),
		})
	}

	sort.Slice(loops, func(i, j int) bool {
		if loops[i].Traffic != loops[j].Traffic {
			return loops[i].Traffic > loops[j].Traffic
		}
		return order[loops[i].Nodes[0]] < order[loops[j].Nodes[0]]
	})
	a.opts.Metrics.RecordAnalysis("hot_loops")
	return loops, nil
}

// hotLoopSeverity grades a hot loop. Tight loops carrying traffic well
// past the threshold are the strongest signal of a user stuck in place.
func hotLoopSeverity(kind LoopKind, traffic, threshold float64) Severity {
	if kind == LoopTight && traffic >= threshold*3 {
		return SeverityError
	}
	if traffic >= threshold*2 {
		return SeverityWarning
	}
	return SeverityInfo
}

// InfiniteLoops walks greedily from every node, always taking the
// highest-weight outgoing edge for the actor, and reports walks that
// settle into a cycle within the configured step bound.
//
// # Description
//
// The walk weight is the combined static and learned weight when an
// overlay is present, otherwise the static rule weight. Ties fall back
// to declaration order, matching prediction ranking. A walk that
// reaches a node with no outgoing edges terminates cleanly and is not
// reported.
func (a *Analyzer) InfiniteLoops(ctx context.Context, actor graph.Actor) ([]InfiniteLoopWarning, error) {
	if ctx == nil {
		return nil, ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var warnings []InfiniteLoopWarning
	seenCycles := make(map[string]bool)
	for _, start := range a.rules.Nodes() {
		cycle, steps := a.greedyWalk(start, actor)
		if cycle == nil {
			continue
		}
		key := cycleKey(cycle)
		if seenCycles[key] {
			continue
		}
		seenCycles[key] = true
		warnings = append(warnings, InfiniteLoopWarning{
			Start:    start,
			Cycle:    cycle,
			Steps:    steps,
			Severity: a.infiniteLoopSeverity(cycle),
		})
	}
	a.opts.Metrics.RecordAnalysis("infinite_loops")
	return warnings, nil
}

// greedyWalk follows max-weight edges from start until it revisits a
// node (returning the repeating cycle) or terminates. A nil cycle means
// the walk ended cleanly or exceeded the step bound without repeating.
func (a *Analyzer) greedyWalk(start string, actor graph.Actor) ([]string, int) {
	visitedAt := map[string]int{start: 0}
	path := []string{start}
	current := start

	for step := 1; step <= a.opts.MaxWalkSteps; step++ {
		next, ok := a.bestEdge(current, actor)
		if !ok {
			return nil, 0
		}
		if at, seen := visitedAt[next]; seen {
			return append([]string(nil), path[at:]...), step
		}
		visitedAt[next] = len(path)
		path = append(path, next)
		current = next
	}
	return nil, 0
}

// bestEdge picks the successor the greedy walk takes from node.
func (a *Analyzer) bestEdge(node string, actor graph.Actor) (string, bool) {
	edges := a.rules.Outgoing(node, actor)
	if len(edges) == 0 {
		return "", false
	}
	best := edges[0]
	bestWeight := a.walkWeight(best)
	for _, edge := range edges[1:] {
		if w := a.walkWeight(edge); w > bestWeight {
			best = edge
			bestWeight = w
		}
	}
	return best.To, true
}

// walkWeight is the ranking weight of an edge for the greedy walk.
func (a *Analyzer) walkWeight(edge graph.Edge) float64 {
	if a.overlay == nil {
		return edge.Weight
	}
	return edge.Weight + a.overlay.Weight(edge.From, edge.To, edge.Actor)
}

// infiniteLoopSeverity grades a runaway cycle. A cycle with no exit
// edge at all is an error; one the walk merely prefers is a warning.
func (a *Analyzer) infiniteLoopSeverity(cycle []string) Severity {
	members := make(map[string]bool, len(cycle))
	for _, n := range cycle {
		members[n] = true
	}
	for _, n := range cycle {
		for _, edge := range a.rules.Outgoing(n, "") {
			if !members[edge.To] {
				return SeverityWarning
			}
		}
	}
	return SeverityError
}

// UnproductiveLoops returns cycles from which no procedure terminal is
// reachable.
//
// # Description
//
// A cycle is unproductive when no walk from any of its members can
// reach the terminal node of any declared procedure. Graphs without
// procedures have no productivity reference and report nothing.
func (a *Analyzer) UnproductiveLoops(ctx context.Context) ([]UnproductiveLoop, error) {
	if ctx == nil {
		return nil, ErrInvalidInput
	}
	cyclic, err := a.cyclicComponents(ctx)
	if err != nil {
		return nil, err
	}

	terminals := make(map[string]bool)
	for _, proc := range a.rules.Procedures() {
		if t := proc.TerminalNode(); t != "" {
			terminals[t] = true
		}
	}
	if len(terminals) == 0 {
		return nil, nil
	}

	var loops []UnproductiveLoop
	for _, c := range cyclic {
		if a.reachesAny(c.Nodes[0], terminals) {
			continue
		}
		loops = append(loops, UnproductiveLoop{
			Nodes:    c.Nodes,
			Severity: SeverityWarning,
		})
	}
	a.opts.Metrics.RecordAnalysis("unproductive_loops")
	return loops, nil
}

// reachesAny reports whether a walk from start can reach any target.
func (a *Analyzer) reachesAny(start string, targets map[string]bool) bool {
	visited := map[string]bool{start: true}
	queue := []string{start}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		if targets[node] {
			return true
		}
		for _, edge := range a.rules.Outgoing(node, "") {
			if !visited[edge.To] {
				visited[edge.To] = true
				queue = append(queue, edge.To)
			}
		}
	}
	return false
}

// cycleKey canonicalizes a cycle for deduplication: rotate so the
// lexicographically smallest node leads.
func cycleKey(cycle []string) string {
	if len(cycle) == 0 {
		return ""
	}
	min := 0
	for i, n := range cycle {
		if n < cycle[min] {
			min = i
		}
	}
	key := ""
	for i := 0; i < len(cycle); i++ {
		key += cycle[(min+i)%len(cycle)] + "|"
	}
	return key
}
