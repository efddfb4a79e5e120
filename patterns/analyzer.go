// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package patterns derives structural and behavioral findings from a
// rule graph and its recorded transition history: strongly connected
// components, hot and unproductive loops, runaway-walk warnings,
// bottlenecks, and automation candidates.
package patterns

import (
	"context"
	"time"

	"github.com/AleutianAI/nextstep/engine"
	"github.com/AleutianAI/nextstep/graph"
	"github.com/AleutianAI/nextstep/telemetry"
	"github.com/AleutianAI/nextstep/weights"
)

// ChainSource supplies recorded transition history per actor. The
// engine satisfies this directly.
type ChainSource interface {
	SessionChain(actor graph.Actor, q engine.ChainQuery) ([]engine.Event, error)
}

// Options configures an Analyzer.
type Options struct {
	// HotLoopThreshold is the minimum aggregate dynamic-weight traffic
	// along a cycle's internal edges for it to be reported hot.
	HotLoopThreshold float64

	// MaxWalkSteps bounds the greedy walk used for runaway detection.
	MaxWalkSteps int

	// TrafficThreshold is the minimum incoming dynamic-weight traffic
	// for a node to be considered as a bottleneck.
	TrafficThreshold float64

	// CongestionThreshold is the minimum incoming/outgoing traffic
	// ratio for a node to be reported as a bottleneck.
	CongestionThreshold float64

	// DelayThreshold escalates a bottleneck's severity when the mean
	// observed dwell time at the node exceeds it. Zero disables the
	// escalation.
	DelayThreshold time.Duration

	// MinRepetitions is the minimum occurrence count for an automation
	// candidate.
	MinRepetitions int

	// ConfidenceThreshold is the minimum per-step dominant-successor
	// share for an automation candidate.
	ConfidenceThreshold float64

	// MinSequenceLength is the smallest number of transitions a mined
	// sequence may have.
	MinSequenceLength int

	// MaxSequenceLength bounds the mined sequence window.
	MaxSequenceLength int

	// SamplePathLimit caps the simple-path sample in a Summary.
	SamplePathLimit int

	// Metrics receives per-analysis counters. Nil disables
	// instrumentation.
	Metrics *telemetry.Metrics
}

// DefaultOptions returns the standard analyzer configuration.
func DefaultOptions() Options {
	return Options{
		HotLoopThreshold:    3.0,
		MaxWalkSteps:        100,
		TrafficThreshold:    1.0,
		CongestionThreshold: 1.0,
		DelayThreshold:      0,
		MinRepetitions:      3,
		ConfidenceThreshold: 0.8,
		MinSequenceLength:   2,
		MaxSequenceLength:   5,
		SamplePathLimit:     10,
	}
}

// Option mutates analyzer Options.
type Option func(*Options)

// WithHotLoopThreshold sets the minimum internal dynamic-weight traffic
// for a cycle to be reported hot.
func WithHotLoopThreshold(v float64) Option {
	return func(o *Options) { o.HotLoopThreshold = v }
}

// WithMaxWalkSteps bounds the runaway-detection walk.
func WithMaxWalkSteps(n int) Option {
	return func(o *Options) { o.MaxWalkSteps = n }
}

// WithTrafficThreshold sets the incoming-traffic floor for bottleneck
// candidates.
func WithTrafficThreshold(v float64) Option {
	return func(o *Options) { o.TrafficThreshold = v }
}

// WithCongestionThreshold sets the bottleneck in/out traffic ratio floor.
func WithCongestionThreshold(r float64) Option {
	return func(o *Options) { o.CongestionThreshold = r }
}

// WithDelayThreshold sets the dwell time that escalates a bottleneck.
func WithDelayThreshold(d time.Duration) Option {
	return func(o *Options) { o.DelayThreshold = d }
}

// WithAutomationMining sets the sequence mining parameters: the length
// window in transitions, the minimum occurrence count, and the per-step
// confidence floor.
func WithAutomationMining(minLen, maxLen, minReps int, confidence float64) Option {
	return func(o *Options) {
		o.MinSequenceLength = minLen
		o.MaxSequenceLength = maxLen
		o.MinRepetitions = minReps
		o.ConfidenceThreshold = confidence
	}
}

// WithSamplePathLimit caps the Summary path sample.
func WithSamplePathLimit(n int) Option {
	return func(o *Options) { o.SamplePathLimit = n }
}

// WithMetrics attaches analysis instrumentation.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(o *Options) { o.Metrics = m }
}

// Analyzer runs pattern analyses over a rule graph, an optional weight
// overlay, and an optional transition history.
//
// # Thread Safety
//
// The analyzer holds no mutable state of its own; every analysis
// recomputes from current inputs. Safe for concurrent use when its
// inputs are.
type Analyzer struct {
	rules   *graph.RuleGraph
	overlay *weights.Overlay
	chains  ChainSource
	opts    Options
}

// NewAnalyzer creates an Analyzer.
//
// # Inputs
//
//   - rules: the rule graph to analyze. Required.
//   - overlay: learned weights supplying the traffic for hot-loop and
//     bottleneck gating and steering the runaway walk. Nil leaves the
//     traffic analyses empty and the walk on static rule weights.
//   - chains: recorded history for frequency-based analyses. Nil limits
//     the analyzer to structural findings.
func NewAnalyzer(rules *graph.RuleGraph, overlay *weights.Overlay, chains ChainSource, options ...Option) (*Analyzer, error) {
	if rules == nil {
		return nil, ErrInvalidInput
	}
	opts := DefaultOptions()
	for _, opt := range options {
		opt(&opts)
	}
	return &Analyzer{
		rules:   rules,
		overlay: overlay,
		chains:  chains,
		opts:    opts,
	}, nil
}

// AnalyzeByContext runs every analysis scoped to one actor and bundles
// the findings.
func (a *Analyzer) AnalyzeByContext(ctx context.Context, actor graph.Actor) (*Report, error) {
	if ctx == nil {
		return nil, ErrInvalidInput
	}
	ctx, span := startSpan(ctx, "patterns.AnalyzeByContext")
	defer span.End()

	components, err := a.Components(ctx)
	if err != nil {
		return nil, err
	}
	infinite, err := a.InfiniteLoops(ctx, actor)
	if err != nil {
		return nil, err
	}
	unproductive, err := a.UnproductiveLoops(ctx)
	if err != nil {
		return nil, err
	}
	bottlenecks, err := a.Bottlenecks(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Actor:             actor,
		Components:        components,
		InfiniteLoops:     infinite,
		UnproductiveLoops: unproductive,
		Bottlenecks:       bottlenecks,
	}

	if report.HotLoops, err = a.HotLoops(ctx, actor); err != nil {
		return nil, err
	}

	// Sequence mining degrades to empty without a chain source.
	if a.chains != nil {
		if report.Automation, err = a.AutomationCandidates(ctx, actor); err != nil {
			return nil, err
		}
	}

	summary, err := a.Summarize(ctx, actor)
	if err != nil {
		return nil, err
	}
	report.Summary = summary

	a.opts.Metrics.RecordAnalysis("full_report")
	return report, nil
}

// dynamicWeight is the overlay's current weight for an edge's triple.
// Without an overlay there is no recorded traffic, so the weight is zero.
func (a *Analyzer) dynamicWeight(e graph.Edge, now time.Time) float64 {
	if a.overlay == nil {
		return 0
	}
	return a.overlay.WeightAt(e.From, e.To, e.Actor, now)
}

// events fetches the actor's merged history, or every actor's when
// actor is empty.
func (a *Analyzer) events(actor graph.Actor) ([]engine.Event, error) {
	if a.chains == nil {
		return nil, ErrNoChainSource
	}
	if actor != "" {
		return a.chains.SessionChain(actor, engine.ChainQuery{})
	}
	var all []engine.Event
	for _, act := range a.rules.Actors() {
		events, err := a.chains.SessionChain(act, engine.ChainQuery{})
		if err != nil {
			return nil, err
		}
		all = append(all, events...)
	}
	return all, nil
}
