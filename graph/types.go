// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import "fmt"

// Actor categorizes who initiates a transition.
type Actor string

const (
	// ActorUser is a human-initiated transition.
	ActorUser Actor = "user"

	// ActorSystem is a transition initiated by the system itself.
	ActorSystem Actor = "system"

	// ActorAutomation is a transition initiated by an automation.
	ActorAutomation Actor = "automation"
)

// DefaultActors is the standard actor set used when a Definition does not
// declare its own. The valid set is a construction parameter, not a
// process-wide constant.
func DefaultActors() []Actor {
	return []Actor{ActorUser, ActorSystem, ActorAutomation}
}

// Node is a workflow state.
//
// Nodes are owned by the RuleGraph and are immutable after construction.
type Node struct {
	// ID uniquely identifies the node within the graph.
	ID string `json:"id" yaml:"id"`

	// Label is an optional human-readable name.
	Label string `json:"label,omitempty" yaml:"label,omitempty"`

	// Kind is an optional node classification (e.g., "screen", "job").
	Kind string `json:"kind,omitempty" yaml:"kind,omitempty"`
}

// Edge is a declared legal transition between two nodes.
//
// Edges are owned by the RuleGraph and are immutable after construction.
// Declaration order is preserved and used as the deterministic tie-break
// when predictions score equally.
type Edge struct {
	// From is the source node ID.
	From string `json:"from" yaml:"from"`

	// To is the destination node ID.
	To string `json:"to" yaml:"to"`

	// Actor tags which initiator category may take this transition.
	Actor Actor `json:"actor" yaml:"actor"`

	// Weight is the static rule weight. Must be >= 0.
	Weight float64 `json:"weight" yaml:"weight"`

	// Guard is optional guard text. Guards are syntax-checked at
	// construction and never evaluated at runtime.
	Guard string `json:"guard,omitempty" yaml:"guard,omitempty"`
}

// Key returns the composite lookup key for this edge.
func (e Edge) Key() EdgeKey {
	return EdgeKey{From: e.From, To: e.To, Actor: e.Actor}
}

// EdgeKey identifies an edge by its (from, to, actor) triple.
//
// The graph is represented as flat, key-addressed maps rather than
// pointer-linked node objects, so EdgeKey is the unit of addressing for
// everything layered on top (weight overlay, pattern analysis).
type EdgeKey struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Actor Actor  `json:"actor"`
}

// String returns a stable human-readable form, e.g. "a->b[user]".
func (k EdgeKey) String() string {
	return fmt.Sprintf("%s->%s[%s]", k.From, k.To, k.Actor)
}

// Procedure is a named, ordered sub-path through nodes.
//
// Every consecutive pair in NodeSequence must be connected by a declared
// edge (any actor) when validation is requested at construction.
type Procedure struct {
	// ID uniquely identifies the procedure.
	ID string `json:"id" yaml:"id"`

	// NodeSequence is the ordered list of node IDs.
	NodeSequence []string `json:"node_sequence" yaml:"node_sequence"`
}

// TerminalNode returns the last node of the sequence, or "" if empty.
func (p Procedure) TerminalNode() string {
	if len(p.NodeSequence) == 0 {
		return ""
	}
	return p.NodeSequence[len(p.NodeSequence)-1]
}

// Definition is the construction input for a RuleGraph.
//
// Textual parsing (JSON/YAML) is the builder's responsibility; the core
// only consumes this already-structured form.
type Definition struct {
	// Nodes declares workflow states. Nodes referenced by edges but not
	// declared here are created implicitly with only an ID.
	Nodes []Node `json:"nodes,omitempty" yaml:"nodes,omitempty"`

	// Edges declares the legal transitions.
	Edges []Edge `json:"edges" yaml:"edges"`

	// Procedures declares named sub-paths.
	Procedures []Procedure `json:"procedures,omitempty" yaml:"procedures,omitempty"`

	// Actors is the valid actor set. Empty means DefaultActors().
	Actors []Actor `json:"actors,omitempty" yaml:"actors,omitempty"`
}

// Stats are aggregate statistics about a RuleGraph.
type Stats struct {
	// NodeCount is the total number of nodes.
	NodeCount int `json:"node_count"`

	// EdgeCount is the total number of edges.
	EdgeCount int `json:"edge_count"`

	// ProcedureCount is the total number of procedures.
	ProcedureCount int `json:"procedure_count"`

	// EdgesByActor is the per-actor edge count.
	EdgesByActor map[Actor]int `json:"edges_by_actor"`
}
