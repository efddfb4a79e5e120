// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package builder assembles graph definitions programmatically or from
// JSON and YAML documents.
package builder

import (
	"github.com/AleutianAI/nextstep/graph"
)

// Builder accumulates nodes, edges, and procedures into a Definition.
//
// # Description
//
// Builder methods chain and never fail; problems surface when Build
// hands the accumulated definition to graph.NewRuleGraph, which runs
// full construction validation.
//
// # Thread Safety
//
// Not safe for concurrent use. Build each graph from one goroutine.
//
// # Example
//
//	g, err := builder.New().
//		Node("browse", "Browse catalog").
//		Edge("browse", "cart", graph.ActorUser, 1.0).
//		Edge("cart", "checkout", graph.ActorUser, 2.0).
//		Procedure("purchase", "browse", "cart", "checkout").
//		Build()
type Builder struct {
	def graph.Definition
}

// New creates an empty Builder using the default actor set.
func New() *Builder {
	return &Builder{}
}

// Actors replaces the valid actor set. Without this call the graph
// falls back to the default actors.
func (b *Builder) Actors(actors ...graph.Actor) *Builder {
	b.def.Actors = actors
	return b
}

// Node declares a node. Nodes referenced only by edges are created
// implicitly; declaring them is needed only to attach a label or kind.
func (b *Builder) Node(id, label string) *Builder {
	b.def.Nodes = append(b.def.Nodes, graph.Node{ID: id, Label: label})
	return b
}

// NodeKind declares a node with an application-defined kind.
func (b *Builder) NodeKind(id, label, kind string) *Builder {
	b.def.Nodes = append(b.def.Nodes, graph.Node{ID: id, Label: label, Kind: kind})
	return b
}

// Edge declares a weighted transition.
func (b *Builder) Edge(from, to string, actor graph.Actor, weight float64) *Builder {
	b.def.Edges = append(b.def.Edges, graph.Edge{From: from, To: to, Actor: actor, Weight: weight})
	return b
}

// GuardedEdge declares a transition with a guard expression.
func (b *Builder) GuardedEdge(from, to string, actor graph.Actor, weight float64, guard string) *Builder {
	b.def.Edges = append(b.def.Edges, graph.Edge{From: from, To: to, Actor: actor, Weight: weight, Guard: guard})
	return b
}

// Procedure declares an ordered node sequence.
func (b *Builder) Procedure(id string, nodes ...string) *Builder {
	b.def.Procedures = append(b.def.Procedures, graph.Procedure{ID: id, NodeSequence: nodes})
	return b
}

// Definition returns the accumulated definition without validating it.
func (b *Builder) Definition() graph.Definition {
	return b.def
}

// Build validates and constructs the rule graph.
func (b *Builder) Build(opts ...graph.Option) (*graph.RuleGraph, error) {
	return graph.NewRuleGraph(b.def, opts...)
}
