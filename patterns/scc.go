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
)

// Components returns the strongly connected components of the rule
// graph, singletons included.
//
// # Description
//
// Uses Tarjan's algorithm over the declared edges of every actor.
// Output is deterministic: nodes within a component follow declaration
// order, and components are ordered by their first node's declaration
// position.
func (a *Analyzer) Components(ctx context.Context) ([]Component, error) {
	if ctx == nil {
		return nil, ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sccs := a.stronglyConnected()
	order := a.declarationIndex()

	components := make([]Component, 0, len(sccs))
	for _, scc := range sccs {
		sort.Slice(scc, func(i, j int) bool {
			return order[scc[i]] < order[scc[j]]
		})
		components = append(components, Component{Nodes: scc})
	}
	sort.Slice(components, func(i, j int) bool {
		return order[components[i].Nodes[0]] < order[components[j].Nodes[0]]
	})
	return components, nil
}

// cyclicComponents returns only components that contain a cycle: SCCs
// of more than one node, plus singletons with a self edge.
func (a *Analyzer) cyclicComponents(ctx context.Context) ([]Component, error) {
	components, err := a.Components(ctx)
	if err != nil {
		return nil, err
	}
	var cyclic []Component
	for _, c := range components {
		if c.Cyclic() || a.hasSelfEdge(c.Nodes[0]) {
			cyclic = append(cyclic, c)
		}
	}
	return cyclic, nil
}

func (a *Analyzer) hasSelfEdge(node string) bool {
	_, ok := a.rules.EdgeAny(node, node)
	return ok
}

// declarationIndex maps node ID to its declaration position.
func (a *Analyzer) declarationIndex() map[string]int {
	nodes := a.rules.Nodes()
	order := make(map[string]int, len(nodes))
	for i, id := range nodes {
		order[id] = i
	}
	return order
}

// stronglyConnected runs Tarjan's SCC over the rule graph. Nodes are
// visited in declaration order so the result is stable.
func (a *Analyzer) stronglyConnected() [][]string {
	index := 0
	stack := make([]string, 0)
	onStack := make(map[string]bool)
	indices := make(map[string]int)
	lowlinks := make(map[string]int)
	var sccs [][]string

	var strongConnect func(v string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlinks[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, edge := range a.rules.Outgoing(v, "") {
			w := edge.To
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				if lowlinks[w] < lowlinks[v] {
					lowlinks[v] = lowlinks[w]
				}
			} else if onStack[w] {
				if indices[w] < lowlinks[v] {
					lowlinks[v] = indices[w]
				}
			}
		}

		if lowlinks[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, v := range a.rules.Nodes() {
		if _, visited := indices[v]; !visited {
			strongConnect(v)
		}
	}

	return sccs
}
