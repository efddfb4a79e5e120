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

	"github.com/AleutianAI/nextstep/graph"
)

// Summarize computes a fresh structural and behavioral overview. Every
// call recomputes from current inputs; nothing is cached.
func (a *Analyzer) Summarize(ctx context.Context, actor graph.Actor) (Summary, error) {
	if ctx == nil {
		return Summary{}, ErrInvalidInput
	}
	components, err := a.Components(ctx)
	if err != nil {
		return Summary{}, err
	}
	cyclic := 0
	for _, c := range components {
		if c.Cyclic() || a.hasSelfEdge(c.Nodes[0]) {
			cyclic++
		}
	}
	bottlenecks, err := a.Bottlenecks(ctx)
	if err != nil {
		return Summary{}, err
	}

	hot, err := a.HotLoops(ctx, actor)
	if err != nil {
		return Summary{}, err
	}

	paths := a.samplePaths()
	stats := a.rules.Stats()
	s := Summary{
		Nodes:            stats.NodeCount,
		Edges:            stats.EdgeCount,
		Procedures:       stats.ProcedureCount,
		Components:       len(components),
		CyclicComponents: cyclic,
		HotLoops:         len(hot),
		Bottlenecks:      len(bottlenecks),
		AvgPathLength:    avgPathLength(paths),
		SamplePaths:      paths,
	}
	a.opts.Metrics.RecordAnalysis("summary")
	return s, nil
}

// avgPathLength is the mean number of transitions across the sampled
// paths.
func avgPathLength(paths [][]string) float64 {
	if len(paths) == 0 {
		return 0
	}
	total := 0
	for _, p := range paths {
		total += len(p) - 1
	}
	return float64(total) / float64(len(paths))
}

// samplePaths collects up to the configured number of simple paths from
// source nodes to sink nodes, depth-first in declaration order.
func (a *Analyzer) samplePaths() [][]string {
	limit := a.opts.SamplePathLimit
	if limit <= 0 {
		return nil
	}

	var sources, sinks []string
	sinkSet := make(map[string]bool)
	for _, node := range a.rules.Nodes() {
		if len(a.rules.Incoming(node, "")) == 0 {
			sources = append(sources, node)
		}
		if len(a.rules.Outgoing(node, "")) == 0 {
			sinks = append(sinks, node)
			sinkSet[node] = true
		}
	}
	if len(sources) == 0 || len(sinks) == 0 {
		return nil
	}

	var paths [][]string
	var walk func(node string, visited map[string]bool, path []string)
	walk = func(node string, visited map[string]bool, path []string) {
		if len(paths) >= limit {
			return
		}
		if sinkSet[node] {
			paths = append(paths, append([]string(nil), path...))
			return
		}
		for _, edge := range a.rules.Outgoing(node, "") {
			if visited[edge.To] {
				continue
			}
			visited[edge.To] = true
			walk(edge.To, visited, append(path, edge.To))
			delete(visited, edge.To)
		}
	}

	for _, src := range sources {
		if len(paths) >= limit {
			break
		}
		walk(src, map[string]bool{src: true}, []string{src})
	}
	return paths
}
