// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph implements the immutable rule graph: the sole source of
// "what is legal" for workflow transition recording and prediction.
//
// The graph is a flat, key-addressed structure. Nodes live in a map keyed
// by node ID, edges live in a declaration-ordered slice with a composite
// (from, to, actor) index on top. Nothing holds pointers to anything else,
// which keeps the structure trivially immutable after construction: every
// mutation path is a constructor.
package graph

import (
	"fmt"
	"sort"

	"github.com/AleutianAI/nextstep/pkg/validation"
)

// RuleGraph is an immutable set of nodes and directed, actor-tagged,
// weighted edges, plus optional named procedures.
//
// # Description
//
// RuleGraph answers membership and enumeration queries. It has no mutation
// methods: structural change requires building a new instance via
// NewRuleGraph.
//
// # Thread Safety
//
// Immutable after construction; safe for any number of concurrent readers.
type RuleGraph struct {
	nodes      map[string]Node
	nodeOrder  []string
	edges      []Edge           // declaration order
	edgeIndex  map[EdgeKey]int  // key -> index into edges
	outgoing   map[string][]int // from node -> edge indices, declaration order
	incoming   map[string][]int // to node -> edge indices, declaration order
	procedures map[string]Procedure
	actors     map[Actor]bool
	actorOrder []Actor
}

// Options configures RuleGraph construction.
type Options struct {
	// Validate enables construction-time structural validation: procedure
	// walkability, guard syntax, identifier shape.
	Validate bool
}

// Option is a functional option for NewRuleGraph.
type Option func(*Options)

// WithValidation enables or disables construction-time validation.
func WithValidation(enabled bool) Option {
	return func(o *Options) {
		o.Validate = enabled
	}
}

// NewRuleGraph constructs a RuleGraph from a Definition.
//
// # Description
//
// Builds the flat node/edge maps from the definition. Nodes referenced by
// edges but not declared are created implicitly. Duplicate (from, to,
// actor) triples and negative static weights are always rejected; with
// validation enabled, procedure walkability, guard syntax, and identifier
// shape are additionally checked and all problems are reported together.
//
// # Inputs
//
//   - def: Construction input. Edge order is preserved.
//   - opts: Optional construction options.
//
// # Outputs
//
//   - *RuleGraph: The immutable graph.
//   - error: Non-nil on duplicate edges, unknown actors, negative weights,
//     or (when validation is enabled) a *ValidationError.
//
// # Example
//
//	g, err := graph.NewRuleGraph(def, graph.WithValidation(true))
func NewRuleGraph(def Definition, opts ...Option) (*RuleGraph, error) {
	options := Options{}
	for _, opt := range opts {
		opt(&options)
	}

	actors := def.Actors
	if len(actors) == 0 {
		actors = DefaultActors()
	}

	g := &RuleGraph{
		nodes:      make(map[string]Node),
		edges:      make([]Edge, 0, len(def.Edges)),
		edgeIndex:  make(map[EdgeKey]int, len(def.Edges)),
		outgoing:   make(map[string][]int),
		incoming:   make(map[string][]int),
		procedures: make(map[string]Procedure, len(def.Procedures)),
		actors:     make(map[Actor]bool, len(actors)),
		actorOrder: append([]Actor(nil), actors...),
	}
	for _, a := range actors {
		g.actors[a] = true
	}

	for _, n := range def.Nodes {
		if n.ID == "" {
			return nil, fmt.Errorf("%w: node with empty id", ErrValidationFailed)
		}
		g.addNode(n)
	}

	for _, e := range def.Edges {
		if e.Weight < 0 {
			return nil, NewEdgeError(e.Key(), fmt.Errorf("%w: negative weight %g", ErrValidationFailed, e.Weight))
		}
		if !g.actors[e.Actor] {
			return nil, NewEdgeError(e.Key(), fmt.Errorf("%w: %q", ErrUnknownActor, e.Actor))
		}
		key := e.Key()
		if _, exists := g.edgeIndex[key]; exists {
			return nil, NewEdgeError(key, ErrDuplicateEdge)
		}

		// Implicit node creation for undeclared endpoints.
		g.addNode(Node{ID: e.From})
		g.addNode(Node{ID: e.To})

		idx := len(g.edges)
		g.edges = append(g.edges, e)
		g.edgeIndex[key] = idx
		g.outgoing[e.From] = append(g.outgoing[e.From], idx)
		g.incoming[e.To] = append(g.incoming[e.To], idx)
	}

	for _, p := range def.Procedures {
		if p.ID == "" {
			return nil, fmt.Errorf("%w: procedure with empty id", ErrValidationFailed)
		}
		if _, exists := g.procedures[p.ID]; exists {
			return nil, fmt.Errorf("%w: duplicate procedure %q", ErrValidationFailed, p.ID)
		}
		g.procedures[p.ID] = p
	}

	if options.Validate {
		if err := g.validate(); err != nil {
			return nil, err
		}
	}

	return g, nil
}

// addNode inserts a node unless one with the same ID already exists.
// Declared nodes win over implicit ones, so declarations are applied first.
func (g *RuleGraph) addNode(n Node) {
	if _, exists := g.nodes[n.ID]; exists {
		return
	}
	g.nodes[n.ID] = n
	g.nodeOrder = append(g.nodeOrder, n.ID)
}

// validate runs the construction-time structural checks and aggregates
// every problem into a single *ValidationError.
func (g *RuleGraph) validate() error {
	var problems []string

	for _, id := range g.nodeOrder {
		if err := validation.ValidateIdentifier(id); err != nil {
			problems = append(problems, fmt.Sprintf("node %q: %v", id, err))
		}
	}

	for _, e := range g.edges {
		if e.Guard == "" {
			continue
		}
		if err := CheckGuardSyntax(e.Guard); err != nil {
			problems = append(problems, fmt.Sprintf("edge %s: guard: %v", e.Key(), err))
		}
	}

	for _, id := range sortedKeys(g.procedures) {
		p := g.procedures[id]
		if len(p.NodeSequence) == 0 {
			problems = append(problems, fmt.Sprintf("procedure %q: empty node sequence", id))
			continue
		}
		for _, nodeID := range p.NodeSequence {
			if _, ok := g.nodes[nodeID]; !ok {
				problems = append(problems, fmt.Sprintf("procedure %q: unknown node %q", id, nodeID))
			}
		}
		for i := 0; i+1 < len(p.NodeSequence); i++ {
			from, to := p.NodeSequence[i], p.NodeSequence[i+1]
			if !g.connected(from, to) {
				problems = append(problems, fmt.Sprintf("procedure %q: no edge %s->%s", id, from, to))
			}
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// connected reports whether any edge (any actor) links from to to.
func (g *RuleGraph) connected(from, to string) bool {
	for _, idx := range g.outgoing[from] {
		if g.edges[idx].To == to {
			return true
		}
	}
	return false
}

// Node returns the node with the given ID.
func (g *RuleGraph) Node(id string) (Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns all node IDs in declaration order.
func (g *RuleGraph) Nodes() []string {
	out := make([]string, len(g.nodeOrder))
	copy(out, g.nodeOrder)
	return out
}

// Edge returns the edge for an exact (from, to, actor) triple.
func (g *RuleGraph) Edge(from, to string, actor Actor) (Edge, bool) {
	idx, ok := g.edgeIndex[EdgeKey{From: from, To: to, Actor: actor}]
	if !ok {
		return Edge{}, false
	}
	return g.edges[idx], true
}

// EdgeAny returns the first declared edge between from and to for any
// actor, in declaration order.
func (g *RuleGraph) EdgeAny(from, to string) (Edge, bool) {
	for _, idx := range g.outgoing[from] {
		if g.edges[idx].To == to {
			return g.edges[idx], true
		}
	}
	return Edge{}, false
}

// HasEdge reports whether the exact (from, to, actor) triple is declared.
func (g *RuleGraph) HasEdge(from, to string, actor Actor) bool {
	_, ok := g.edgeIndex[EdgeKey{From: from, To: to, Actor: actor}]
	return ok
}

// HasNode reports whether the node ID exists.
func (g *RuleGraph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// Outgoing returns the outgoing edges of a node in declaration order.
//
// # Inputs
//
//   - node: Source node ID.
//   - actor: Optional filter. The zero value ("") returns all actors.
//
// # Outputs
//
//   - []Edge: Matching edges, declaration order. Empty (not nil) for a
//     terminal node or an unknown node.
func (g *RuleGraph) Outgoing(node string, actor Actor) []Edge {
	indices := g.outgoing[node]
	out := make([]Edge, 0, len(indices))
	for _, idx := range indices {
		if actor != "" && g.edges[idx].Actor != actor {
			continue
		}
		out = append(out, g.edges[idx])
	}
	return out
}

// Incoming returns the incoming edges of a node in declaration order,
// optionally filtered by actor ("" for all).
func (g *RuleGraph) Incoming(node string, actor Actor) []Edge {
	indices := g.incoming[node]
	out := make([]Edge, 0, len(indices))
	for _, idx := range indices {
		if actor != "" && g.edges[idx].Actor != actor {
			continue
		}
		out = append(out, g.edges[idx])
	}
	return out
}

// Edges returns all edges in declaration order.
func (g *RuleGraph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// Procedure returns the procedure with the given ID.
func (g *RuleGraph) Procedure(id string) (Procedure, bool) {
	p, ok := g.procedures[id]
	return p, ok
}

// Procedures returns all procedures sorted by ID.
func (g *RuleGraph) Procedures() []Procedure {
	out := make([]Procedure, 0, len(g.procedures))
	for _, id := range sortedKeys(g.procedures) {
		out = append(out, g.procedures[id])
	}
	return out
}

// Actors returns the configured valid actor set in declaration order.
func (g *RuleGraph) Actors() []Actor {
	out := make([]Actor, len(g.actorOrder))
	copy(out, g.actorOrder)
	return out
}

// HasActor reports whether the actor is in the configured valid set.
func (g *RuleGraph) HasActor(actor Actor) bool {
	return g.actors[actor]
}

// Stats returns aggregate graph statistics.
func (g *RuleGraph) Stats() Stats {
	byActor := make(map[Actor]int, len(g.actorOrder))
	for _, e := range g.edges {
		byActor[e.Actor]++
	}
	return Stats{
		NodeCount:      len(g.nodes),
		EdgeCount:      len(g.edges),
		ProcedureCount: len(g.procedures),
		EdgesByActor:   byActor,
	}
}

// sortedKeys returns map keys in sorted order for deterministic iteration.
func sortedKeys(m map[string]Procedure) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
