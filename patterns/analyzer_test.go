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
	"testing"
	"time"

	"github.com/AleutianAI/nextstep/engine"
	"github.com/AleutianAI/nextstep/graph"
	"github.com/AleutianAI/nextstep/weights"
)

// stubChains is a canned ChainSource.
type stubChains struct {
	events map[graph.Actor][]engine.Event
}

func (s *stubChains) SessionChain(actor graph.Actor, _ engine.ChainQuery) ([]engine.Event, error) {
	return s.events[actor], nil
}

// chainOf turns a node path into a session's event stream with
// strictly increasing timestamps.
func chainOf(sessionID string, actor graph.Actor, start time.Time, nodes ...string) []engine.Event {
	var events []engine.Event
	for i := 0; i+1 < len(nodes); i++ {
		events = append(events, engine.Event{
			From:      nodes[i],
			To:        nodes[i+1],
			Actor:     actor,
			SessionID: sessionID,
			Timestamp: start.Add(time.Duration(i) * time.Second),
		})
	}
	return events
}

// createCyclicGraph builds:
//
//	a -> b -> c -> a   (three-node cycle, user)
//	c -> exit          (cycle escape, user)
//	island             (isolated node)
//
// with procedure "flow" terminating at exit.
func createCyclicGraph(t *testing.T) *graph.RuleGraph {
	t.Helper()
	g, err := graph.NewRuleGraph(graph.Definition{
		Nodes: []graph.Node{{ID: "island"}},
		Edges: []graph.Edge{
			{From: "a", To: "b", Actor: graph.ActorUser, Weight: 1.0},
			{From: "b", To: "c", Actor: graph.ActorUser, Weight: 1.0},
			{From: "c", To: "a", Actor: graph.ActorUser, Weight: 2.0},
			{From: "c", To: "exit", Actor: graph.ActorUser, Weight: 1.0},
		},
		Procedures: []graph.Procedure{
			{ID: "flow", NodeSequence: []string{"a", "b", "c", "exit"}},
		},
	})
	if err != nil {
		t.Fatalf("NewRuleGraph() error = %v", err)
	}
	return g
}

func createTestAnalyzer(t *testing.T, rules *graph.RuleGraph, chains ChainSource, options ...Option) *Analyzer {
	t.Helper()
	return createWeightedAnalyzer(t, rules, nil, chains, options...)
}

func createWeightedAnalyzer(t *testing.T, rules *graph.RuleGraph, overlay *weights.Overlay, chains ChainSource, options ...Option) *Analyzer {
	t.Helper()
	a, err := NewAnalyzer(rules, overlay, chains, options...)
	if err != nil {
		t.Fatalf("NewAnalyzer() error = %v", err)
	}
	return a
}

// createTrafficOverlay builds an overlay that accumulates one unit per
// observation, without decay or cold-start seeding, and applies the
// given (from, to, actor) observations.
func createTrafficOverlay(t *testing.T, rules *graph.RuleGraph, observations ...[3]string) *weights.Overlay {
	t.Helper()
	cfg := weights.DefaultConfig()
	cfg.Decay = weights.DecayConfig{Algorithm: weights.DecayNone}
	cfg.ColdStart = weights.ColdStartPreload
	o, err := weights.New(rules, cfg)
	if err != nil {
		t.Fatalf("weights.New() error = %v", err)
	}
	for _, obs := range observations {
		if err := o.RecordUpdate(obs[0], obs[1], graph.Actor(obs[2]), time.Now()); err != nil {
			t.Fatalf("RecordUpdate(%v) error = %v", obs, err)
		}
	}
	return o
}

// ===== Components =====

func TestComponents(t *testing.T) {
	ctx := context.Background()

	t.Run("cycle plus singletons", func(t *testing.T) {
		a := createTestAnalyzer(t, createCyclicGraph(t), nil)
		components, err := a.Components(ctx)
		if err != nil {
			t.Fatalf("Components() error = %v", err)
		}
		// {island}, {a,b,c}, {exit}
		if len(components) != 3 {
			t.Fatalf("len(components) = %d, want 3", len(components))
		}
		var cycle *Component
		for i := range components {
			if len(components[i].Nodes) == 3 {
				cycle = &components[i]
			}
		}
		if cycle == nil {
			t.Fatal("expected a three-node component")
		}
		want := []string{"a", "b", "c"}
		for i, n := range cycle.Nodes {
			if n != want[i] {
				t.Errorf("cycle.Nodes[%d] = %q, want %q", i, n, want[i])
			}
		}
	})

	t.Run("deterministic across calls", func(t *testing.T) {
		a := createTestAnalyzer(t, createCyclicGraph(t), nil)
		first, _ := a.Components(ctx)
		for i := 0; i < 3; i++ {
			again, _ := a.Components(ctx)
			if len(again) != len(first) {
				t.Fatalf("component count changed")
			}
			for j := range again {
				if len(again[j].Nodes) != len(first[j].Nodes) || again[j].Nodes[0] != first[j].Nodes[0] {
					t.Errorf("components reordered on call %d", i)
				}
			}
		}
	})

	t.Run("nil context rejected", func(t *testing.T) {
		a := createTestAnalyzer(t, createCyclicGraph(t), nil)
		//nolint:staticcheck // nil context is the case under test
		if _, err := a.Components(nil); err == nil {
			t.Error("expected error for nil context")
		}
	})
}

// ===== Hot loops =====

func TestHotLoops(t *testing.T) {
	ctx := context.Background()
	rules := createCyclicGraph(t)

	t.Run("busy cycle reported with traffic and frequency", func(t *testing.T) {
		overlay := createTrafficOverlay(t, rules,
			[3]string{"a", "b", "user"}, [3]string{"a", "b", "user"},
			[3]string{"b", "c", "user"}, [3]string{"c", "a", "user"})
		chains := &stubChains{events: map[graph.Actor][]engine.Event{
			graph.ActorUser: chainOf("s1", graph.ActorUser, time.Now(),
				"a", "b", "c", "a", "b", "c", "a", "b", "c", "exit"),
		}}
		a := createWeightedAnalyzer(t, rules, overlay, chains, WithHotLoopThreshold(3))
		loops, err := a.HotLoops(ctx, graph.ActorUser)
		if err != nil {
			t.Fatalf("HotLoops() error = %v", err)
		}
		if len(loops) != 1 {
			t.Fatalf("len(loops) = %d, want 1", len(loops))
		}
		if loops[0].Kind != LoopSmall {
			t.Errorf("Kind = %q, want %q", loops[0].Kind, LoopSmall)
		}
		if loops[0].Traffic != 4.0 {
			t.Errorf("Traffic = %v, want 4.0", loops[0].Traffic)
		}
		// a->b, b->c, c->a twice plus a final a->b, b->c.
		if loops[0].Frequency != 8 {
			t.Errorf("Frequency = %d, want 8", loops[0].Frequency)
		}
	})

	t.Run("quiet cycle not reported", func(t *testing.T) {
		overlay := createTrafficOverlay(t, rules,
			[3]string{"a", "b", "user"}, [3]string{"b", "c", "user"})
		a := createWeightedAnalyzer(t, rules, overlay, nil, WithHotLoopThreshold(3))
		loops, err := a.HotLoops(ctx, graph.ActorUser)
		if err != nil {
			t.Fatalf("HotLoops() error = %v", err)
		}
		if len(loops) != 0 {
			t.Errorf("len(loops) = %d, want 0", len(loops))
		}
	})

	t.Run("graph and overlay alone suffice", func(t *testing.T) {
		overlay := createTrafficOverlay(t, rules,
			[3]string{"a", "b", "user"}, [3]string{"a", "b", "user"},
			[3]string{"b", "c", "user"}, [3]string{"c", "a", "user"})
		a := createWeightedAnalyzer(t, rules, overlay, nil, WithHotLoopThreshold(3))
		loops, err := a.HotLoops(ctx, graph.ActorUser)
		if err != nil {
			t.Fatalf("HotLoops() error = %v", err)
		}
		if len(loops) != 1 {
			t.Fatalf("len(loops) = %d, want 1", len(loops))
		}
		if loops[0].Frequency != 0 {
			t.Errorf("Frequency = %d, want 0 without history", loops[0].Frequency)
		}
	})

	t.Run("no overlay means no traffic", func(t *testing.T) {
		chains := &stubChains{events: map[graph.Actor][]engine.Event{
			graph.ActorUser: chainOf("s1", graph.ActorUser, time.Now(),
				"a", "b", "c", "a", "b", "c", "a", "b", "c", "exit"),
		}}
		a := createTestAnalyzer(t, rules, chains, WithHotLoopThreshold(3))
		loops, err := a.HotLoops(ctx, graph.ActorUser)
		if err != nil {
			t.Fatalf("HotLoops() error = %v", err)
		}
		if len(loops) != 0 {
			t.Errorf("len(loops) = %d, want 0", len(loops))
		}
	})
}

// ===== Runaway walks =====

func TestInfiniteLoops(t *testing.T) {
	ctx := context.Background()

	t.Run("greedy walk prefers the cycle", func(t *testing.T) {
		// c->a outweighs c->exit, so the walk never leaves.
		a := createTestAnalyzer(t, createCyclicGraph(t), nil)
		warnings, err := a.InfiniteLoops(ctx, graph.ActorUser)
		if err != nil {
			t.Fatalf("InfiniteLoops() error = %v", err)
		}
		if len(warnings) != 1 {
			t.Fatalf("len(warnings) = %d, want 1", len(warnings))
		}
		if len(warnings[0].Cycle) != 3 {
			t.Errorf("Cycle = %v, want three nodes", warnings[0].Cycle)
		}
		// An escape edge exists, so this is a preference, not a trap.
		if warnings[0].Severity != SeverityWarning {
			t.Errorf("Severity = %q, want %q", warnings[0].Severity, SeverityWarning)
		}
	})

	t.Run("inescapable cycle is an error", func(t *testing.T) {
		g, err := graph.NewRuleGraph(graph.Definition{
			Edges: []graph.Edge{
				{From: "x", To: "y", Actor: graph.ActorUser, Weight: 1.0},
				{From: "y", To: "x", Actor: graph.ActorUser, Weight: 1.0},
			},
		})
		if err != nil {
			t.Fatalf("NewRuleGraph() error = %v", err)
		}
		a := createTestAnalyzer(t, g, nil)
		warnings, err := a.InfiniteLoops(ctx, graph.ActorUser)
		if err != nil {
			t.Fatalf("InfiniteLoops() error = %v", err)
		}
		if len(warnings) != 1 {
			t.Fatalf("len(warnings) = %d, want 1", len(warnings))
		}
		if warnings[0].Severity != SeverityError {
			t.Errorf("Severity = %q, want %q", warnings[0].Severity, SeverityError)
		}
	})

	t.Run("walk that drains out reports nothing", func(t *testing.T) {
		g, err := graph.NewRuleGraph(graph.Definition{
			Edges: []graph.Edge{
				{From: "p", To: "q", Actor: graph.ActorUser, Weight: 1.0},
				{From: "q", To: "r", Actor: graph.ActorUser, Weight: 1.0},
			},
		})
		if err != nil {
			t.Fatalf("NewRuleGraph() error = %v", err)
		}
		a := createTestAnalyzer(t, g, nil)
		warnings, err := a.InfiniteLoops(ctx, graph.ActorUser)
		if err != nil {
			t.Fatalf("InfiniteLoops() error = %v", err)
		}
		if len(warnings) != 0 {
			t.Errorf("warnings = %+v, want none", warnings)
		}
	})
}

// ===== Unproductive loops =====

func TestUnproductiveLoops(t *testing.T) {
	ctx := context.Background()

	t.Run("cycle reaching a terminal is productive", func(t *testing.T) {
		a := createTestAnalyzer(t, createCyclicGraph(t), nil)
		loops, err := a.UnproductiveLoops(ctx)
		if err != nil {
			t.Fatalf("UnproductiveLoops() error = %v", err)
		}
		if len(loops) != 0 {
			t.Errorf("loops = %+v, want none", loops)
		}
	})

	t.Run("dead-end cycle reported", func(t *testing.T) {
		g, err := graph.NewRuleGraph(graph.Definition{
			Edges: []graph.Edge{
				{From: "a", To: "done", Actor: graph.ActorUser, Weight: 1.0},
				{From: "x", To: "y", Actor: graph.ActorUser, Weight: 1.0},
				{From: "y", To: "x", Actor: graph.ActorUser, Weight: 1.0},
			},
			Procedures: []graph.Procedure{
				{ID: "flow", NodeSequence: []string{"a", "done"}},
			},
		})
		if err != nil {
			t.Fatalf("NewRuleGraph() error = %v", err)
		}
		a := createTestAnalyzer(t, g, nil)
		loops, err := a.UnproductiveLoops(ctx)
		if err != nil {
			t.Fatalf("UnproductiveLoops() error = %v", err)
		}
		if len(loops) != 1 {
			t.Fatalf("len(loops) = %d, want 1", len(loops))
		}
		if len(loops[0].Nodes) != 2 {
			t.Errorf("Nodes = %v, want the x/y cycle", loops[0].Nodes)
		}
	})

	t.Run("no procedures means nothing to report", func(t *testing.T) {
		g, err := graph.NewRuleGraph(graph.Definition{
			Edges: []graph.Edge{
				{From: "x", To: "y", Actor: graph.ActorUser, Weight: 1.0},
				{From: "y", To: "x", Actor: graph.ActorUser, Weight: 1.0},
			},
		})
		if err != nil {
			t.Fatalf("NewRuleGraph() error = %v", err)
		}
		a := createTestAnalyzer(t, g, nil)
		loops, err := a.UnproductiveLoops(ctx)
		if err != nil {
			t.Fatalf("UnproductiveLoops() error = %v", err)
		}
		if loops != nil {
			t.Errorf("loops = %+v, want nil", loops)
		}
	})
}

// ===== Bottlenecks =====

func TestBottlenecks(t *testing.T) {
	ctx := context.Background()

	// Three feeders into hub, one way out.
	g, err := graph.NewRuleGraph(graph.Definition{
		Edges: []graph.Edge{
			{From: "f1", To: "hub", Actor: graph.ActorUser, Weight: 1.0},
			{From: "f2", To: "hub", Actor: graph.ActorUser, Weight: 1.0},
			{From: "f3", To: "hub", Actor: graph.ActorSystem, Weight: 1.0},
			{From: "hub", To: "out", Actor: graph.ActorUser, Weight: 1.0},
		},
	})
	if err != nil {
		t.Fatalf("NewRuleGraph() error = %v", err)
	}

	// Four observations into hub, one out.
	hubTraffic := [][3]string{
		{"f1", "hub", "user"}, {"f1", "hub", "user"},
		{"f2", "hub", "user"}, {"f3", "hub", "system"},
		{"hub", "out", "user"},
	}

	t.Run("zero recorded traffic never flags", func(t *testing.T) {
		overlay := createTrafficOverlay(t, g)
		a := createWeightedAnalyzer(t, g, overlay, nil)
		found, err := a.Bottlenecks(ctx)
		if err != nil {
			t.Fatalf("Bottlenecks() error = %v", err)
		}
		if len(found) != 0 {
			t.Errorf("found = %+v, want none on an unvisited graph", found)
		}
	})

	t.Run("congested hub reported", func(t *testing.T) {
		overlay := createTrafficOverlay(t, g, hubTraffic...)
		a := createWeightedAnalyzer(t, g, overlay, nil)
		found, err := a.Bottlenecks(ctx)
		if err != nil {
			t.Fatalf("Bottlenecks() error = %v", err)
		}
		if len(found) != 1 {
			t.Fatalf("len(found) = %d, want 1", len(found))
		}
		b := found[0]
		if b.Node != "hub" || b.InDegree != 3 || b.OutDegree != 1 {
			t.Errorf("bottleneck = %+v", b)
		}
		if b.InTraffic != 4.0 || b.OutTraffic != 1.0 {
			t.Errorf("traffic = %v/%v, want 4.0/1.0", b.InTraffic, b.OutTraffic)
		}
		if b.Congestion != 4.0 {
			t.Errorf("Congestion = %v, want 4.0", b.Congestion)
		}
		if b.Severity != SeverityWarning {
			t.Errorf("Severity = %q, want %q", b.Severity, SeverityWarning)
		}
	})

	t.Run("below traffic threshold skipped", func(t *testing.T) {
		overlay := createTrafficOverlay(t, g, hubTraffic...)
		a := createWeightedAnalyzer(t, g, overlay, nil, WithTrafficThreshold(10))
		found, err := a.Bottlenecks(ctx)
		if err != nil {
			t.Fatalf("Bottlenecks() error = %v", err)
		}
		if len(found) != 0 {
			t.Errorf("found = %+v, want none below the traffic threshold", found)
		}
	})

	t.Run("balanced node not congested, sink accumulates", func(t *testing.T) {
		overlay := createTrafficOverlay(t, g,
			[3]string{"f1", "hub", "user"}, [3]string{"f2", "hub", "user"},
			[3]string{"hub", "out", "user"}, [3]string{"hub", "out", "user"})
		a := createWeightedAnalyzer(t, g, overlay, nil)
		found, err := a.Bottlenecks(ctx)
		if err != nil {
			t.Fatalf("Bottlenecks() error = %v", err)
		}
		// hub's inflow matches its outflow; "out" has no way to drain.
		if len(found) != 1 {
			t.Fatalf("len(found) = %d, want 1", len(found))
		}
		if found[0].Node != "out" {
			t.Errorf("Node = %q, want %q", found[0].Node, "out")
		}
	})

	t.Run("dwell beyond threshold escalates", func(t *testing.T) {
		base := time.Now()
		overlay := createTrafficOverlay(t, g, hubTraffic...)
		chains := &stubChains{events: map[graph.Actor][]engine.Event{
			graph.ActorUser: {
				{From: "f1", To: "hub", Actor: graph.ActorUser, SessionID: "s1", Timestamp: base},
				{From: "hub", To: "out", Actor: graph.ActorUser, SessionID: "s1", Timestamp: base.Add(10 * time.Second)},
			},
		}}
		a := createWeightedAnalyzer(t, g, overlay, chains, WithDelayThreshold(time.Second))
		found, err := a.Bottlenecks(ctx)
		if err != nil {
			t.Fatalf("Bottlenecks() error = %v", err)
		}
		if len(found) != 1 {
			t.Fatalf("len(found) = %d, want 1", len(found))
		}
		if found[0].AvgDwell != 10*time.Second {
			t.Errorf("AvgDwell = %v, want 10s", found[0].AvgDwell)
		}
		if found[0].Severity != SeverityError {
			t.Errorf("Severity = %q, want %q", found[0].Severity, SeverityError)
		}
	})
}

// ===== Automation mining =====

func TestAutomationCandidates(t *testing.T) {
	ctx := context.Background()
	g, err := graph.NewRuleGraph(graph.Definition{
		Edges: []graph.Edge{
			{From: "open", To: "fill", Actor: graph.ActorUser, Weight: 1.0},
			{From: "fill", To: "submit", Actor: graph.ActorUser, Weight: 1.0},
			{From: "submit", To: "open", Actor: graph.ActorUser, Weight: 1.0},
		},
	})
	if err != nil {
		t.Fatalf("NewRuleGraph() error = %v", err)
	}

	t.Run("repeated deterministic sequence found", func(t *testing.T) {
		chains := &stubChains{events: map[graph.Actor][]engine.Event{
			graph.ActorUser: chainOf("s1", graph.ActorUser, time.Now(),
				"open", "fill", "submit", "open", "fill", "submit", "open", "fill", "submit", "open"),
		}}
		a := createTestAnalyzer(t, g, chains, WithAutomationMining(2, 3, 3, 0.8))
		candidates, err := a.AutomationCandidates(ctx, graph.ActorUser)
		if err != nil {
			t.Fatalf("AutomationCandidates() error = %v", err)
		}
		if len(candidates) == 0 {
			t.Fatal("expected at least one candidate")
		}
		top := candidates[0]
		if top.Repetitions < 3 {
			t.Errorf("Repetitions = %d, want >= 3", top.Repetitions)
		}
		if !top.Deterministic {
			t.Error("cycle with single successors should be deterministic")
		}
		if top.Confidence != 1.0 {
			t.Errorf("Confidence = %v, want 1.0", top.Confidence)
		}
	})

	t.Run("low confidence branch filtered", func(t *testing.T) {
		g2, err := graph.NewRuleGraph(graph.Definition{
			Edges: []graph.Edge{
				{From: "a", To: "b", Actor: graph.ActorUser, Weight: 1.0},
				{From: "b", To: "c", Actor: graph.ActorUser, Weight: 1.0},
				{From: "b", To: "d", Actor: graph.ActorUser, Weight: 1.0},
				{From: "c", To: "a", Actor: graph.ActorUser, Weight: 1.0},
				{From: "d", To: "a", Actor: graph.ActorUser, Weight: 1.0},
			},
		})
		if err != nil {
			t.Fatalf("NewRuleGraph() error = %v", err)
		}
		// b splits evenly between c and d: no step share reaches 0.9.
		chains := &stubChains{events: map[graph.Actor][]engine.Event{
			graph.ActorUser: chainOf("s1", graph.ActorUser, time.Now(),
				"a", "b", "c", "a", "b", "d", "a", "b", "c", "a", "b", "d", "a"),
		}}
		a := createTestAnalyzer(t, g2, chains, WithAutomationMining(2, 3, 2, 0.9))
		candidates, err := a.AutomationCandidates(ctx, graph.ActorUser)
		if err != nil {
			t.Fatalf("AutomationCandidates() error = %v", err)
		}
		for _, c := range candidates {
			for i := 0; i+1 < len(c.Sequence); i++ {
				if c.Sequence[i] == "b" {
					t.Errorf("sequence %v crosses the low-confidence branch", c.Sequence)
				}
			}
		}
	})

	t.Run("minimum length excludes short windows", func(t *testing.T) {
		chains := &stubChains{events: map[graph.Actor][]engine.Event{
			graph.ActorUser: chainOf("s1", graph.ActorUser, time.Now(),
				"open", "fill", "submit", "open", "fill", "submit", "open", "fill", "submit", "open"),
		}}
		a := createTestAnalyzer(t, g, chains, WithAutomationMining(3, 4, 2, 0.8))
		candidates, err := a.AutomationCandidates(ctx, graph.ActorUser)
		if err != nil {
			t.Fatalf("AutomationCandidates() error = %v", err)
		}
		for _, c := range candidates {
			if len(c.Sequence)-1 < 3 {
				t.Errorf("sequence %v has %d transitions, want >= 3", c.Sequence, len(c.Sequence)-1)
			}
		}
		if len(candidates) == 0 {
			t.Fatal("expected three-transition candidates")
		}
	})

	t.Run("empty history yields nothing", func(t *testing.T) {
		a := createTestAnalyzer(t, g, &stubChains{})
		candidates, err := a.AutomationCandidates(ctx, graph.ActorUser)
		if err != nil {
			t.Fatalf("AutomationCandidates() error = %v", err)
		}
		if len(candidates) != 0 {
			t.Errorf("candidates = %+v, want none", candidates)
		}
	})

	t.Run("no chain source fails", func(t *testing.T) {
		a := createTestAnalyzer(t, g, nil)
		if _, err := a.AutomationCandidates(ctx, graph.ActorUser); err != ErrNoChainSource {
			t.Errorf("error = %v, want ErrNoChainSource", err)
		}
	})
}

// ===== Summary and full report =====

func TestSummarize(t *testing.T) {
	ctx := context.Background()

	t.Run("structural totals", func(t *testing.T) {
		a := createTestAnalyzer(t, createCyclicGraph(t), nil)
		s, err := a.Summarize(ctx, graph.ActorUser)
		if err != nil {
			t.Fatalf("Summarize() error = %v", err)
		}
		if s.Nodes != 5 {
			t.Errorf("Nodes = %d, want 5", s.Nodes)
		}
		if s.Edges != 4 {
			t.Errorf("Edges = %d, want 4", s.Edges)
		}
		if s.CyclicComponents != 1 {
			t.Errorf("CyclicComponents = %d, want 1", s.CyclicComponents)
		}
	})

	t.Run("average path length over the sample", func(t *testing.T) {
		g, err := graph.NewRuleGraph(graph.Definition{
			Edges: []graph.Edge{
				{From: "a", To: "b", Actor: graph.ActorUser, Weight: 1.0},
				{From: "b", To: "c", Actor: graph.ActorUser, Weight: 1.0},
				{From: "c", To: "d", Actor: graph.ActorUser, Weight: 1.0},
				{From: "b", To: "d", Actor: graph.ActorUser, Weight: 1.0},
			},
		})
		if err != nil {
			t.Fatalf("NewRuleGraph() error = %v", err)
		}
		a := createTestAnalyzer(t, g, nil)
		s, err := a.Summarize(ctx, graph.ActorUser)
		if err != nil {
			t.Fatalf("Summarize() error = %v", err)
		}
		// Sampled paths a->b->c->d and a->b->d: (3 + 2) / 2.
		if len(s.SamplePaths) != 2 {
			t.Fatalf("len(SamplePaths) = %d, want 2", len(s.SamplePaths))
		}
		if s.AvgPathLength != 2.5 {
			t.Errorf("AvgPathLength = %v, want 2.5", s.AvgPathLength)
		}
	})
}

func TestAnalyzeByContext(t *testing.T) {
	ctx := context.Background()
	rules := createCyclicGraph(t)
	overlay := createTrafficOverlay(t, rules,
		[3]string{"a", "b", "user"}, [3]string{"a", "b", "user"},
		[3]string{"b", "c", "user"}, [3]string{"c", "a", "user"})
	chains := &stubChains{events: map[graph.Actor][]engine.Event{
		graph.ActorUser: chainOf("s1", graph.ActorUser, time.Now(),
			"a", "b", "c", "a", "b", "c", "a", "b", "c", "exit"),
	}}
	a := createWeightedAnalyzer(t, rules, overlay, chains)

	report, err := a.AnalyzeByContext(ctx, graph.ActorUser)
	if err != nil {
		t.Fatalf("AnalyzeByContext() error = %v", err)
	}
	if report.Actor != graph.ActorUser {
		t.Errorf("Actor = %q", report.Actor)
	}
	if len(report.Components) == 0 {
		t.Error("expected components")
	}
	if len(report.HotLoops) == 0 {
		t.Error("expected hot loops from the learned churn")
	} else if report.HotLoops[0].Frequency == 0 {
		t.Error("expected recorded traversals in the frequency measure")
	}
	if report.Summary.Nodes == 0 {
		t.Error("summary not populated")
	}
}
