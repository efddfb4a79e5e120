// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package engine orchestrates a rule graph and a weight overlay into a
// recording and prediction surface. All mutation flows through the
// engine: transitions are validated against the rule graph, applied to
// the overlay, appended to the owning session chain, and fanned out to
// subscribers as a single all-or-nothing operation.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/AleutianAI/nextstep/graph"
	"github.com/AleutianAI/nextstep/telemetry"
	"github.com/AleutianAI/nextstep/weights"
)

// Options configures an Engine.
type Options struct {
	// ValidateTransitions rejects transitions whose (from, to, actor)
	// triple is not declared in the rule graph. When false, undeclared
	// transitions skip the overlay update but are still appended to the
	// session chain and delivered to subscribers.
	ValidateTransitions bool

	// WidenOnEmpty retries a prediction across all actors when the
	// requested actor has no outgoing edges at the node.
	WidenOnEmpty bool

	// Scorer combines static and dynamic weights into a ranking score.
	Scorer Scorer

	// SessionResumeWindow bounds how long after close a session can be
	// reopened.
	SessionResumeWindow time.Duration

	// MaxChainLength caps per-session chains. Zero disables truncation.
	MaxChainLength int

	// Truncate selects the chain shortening strategy.
	Truncate TruncateStrategy

	// EnforceSingleActive supersedes an actor's previous active session
	// when a new one starts.
	EnforceSingleActive bool

	// Logger receives structured engine logs. Nil disables logging.
	Logger *slog.Logger

	// Metrics receives engine counters and latency histograms. Nil
	// disables instrumentation.
	Metrics *telemetry.Metrics
}

// DefaultOptions returns the standard engine configuration.
func DefaultOptions() Options {
	return Options{
		ValidateTransitions: true,
		WidenOnEmpty:        false,
		Scorer:              LinearScorer,
		SessionResumeWindow: 30 * time.Minute,
		MaxChainLength:      1000,
		Truncate:            TruncateOldest,
		EnforceSingleActive: true,
	}
}

// Option mutates engine Options.
type Option func(*Options)

// WithValidation toggles rule-graph validation of recorded transitions.
func WithValidation(enabled bool) Option {
	return func(o *Options) { o.ValidateTransitions = enabled }
}

// WithWidenOnEmpty toggles the all-actors prediction fallback.
func WithWidenOnEmpty(enabled bool) Option {
	return func(o *Options) { o.WidenOnEmpty = enabled }
}

// WithScorer replaces the ranking score combination.
func WithScorer(s Scorer) Option {
	return func(o *Options) {
		if s != nil {
			o.Scorer = s
		}
	}
}

// WithSessionResumeWindow sets how long a closed session stays resumable.
func WithSessionResumeWindow(d time.Duration) Option {
	return func(o *Options) { o.SessionResumeWindow = d }
}

// WithMaxChainLength caps per-session chain length.
func WithMaxChainLength(n int, strategy TruncateStrategy) Option {
	return func(o *Options) {
		o.MaxChainLength = n
		o.Truncate = strategy
	}
}

// WithSingleActiveSession toggles supersession of an actor's previous
// active session.
func WithSingleActiveSession(enabled bool) Option {
	return func(o *Options) { o.EnforceSingleActive = enabled }
}

// WithLogger attaches a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithMetrics attaches engine instrumentation.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(o *Options) { o.Metrics = m }
}

// Engine binds a rule graph, a weight overlay, and session state.
//
// # Thread Safety
//
// All methods are safe for concurrent use. Subscriber callbacks run
// synchronously after the engine lock is released.
type Engine struct {
	mu            sync.RWMutex
	rules         *graph.RuleGraph
	overlay       *weights.Overlay
	opts          Options
	sessions      map[string]*sessionState
	activeByActor map[graph.Actor]string
	subscribers   map[int]func(Event)
	nextSubID     int
	destroyed     bool
}

// New creates an Engine over the rule graph and overlay.
func New(rules *graph.RuleGraph, overlay *weights.Overlay, options ...Option) (*Engine, error) {
	if rules == nil || overlay == nil {
		return nil, ErrInvalidInput
	}
	opts := DefaultOptions()
	for _, opt := range options {
		opt(&opts)
	}
	if opts.Scorer == nil {
		opts.Scorer = LinearScorer
	}
	return &Engine{
		rules:         rules,
		overlay:       overlay,
		opts:          opts,
		sessions:      make(map[string]*sessionState),
		activeByActor: make(map[graph.Actor]string),
		subscribers:   make(map[int]func(Event)),
	}, nil
}

// Rules returns the underlying rule graph.
func (e *Engine) Rules() *graph.RuleGraph { return e.rules }

// Overlay returns the underlying weight overlay.
func (e *Engine) Overlay() *weights.Overlay { return e.overlay }

// RecordTransition records one observed transition. The operation is
// all-or-nothing: validation failures leave the overlay, the session
// chain, and subscribers untouched.
//
// # Inputs
//
//   - ctx: carries trace context for logging and spans
//   - from, to: node IDs of the transition taken
//   - tc: actor, optional session, optional path and timestamp
//
// # Outputs
//
//   - Event: the appended event with its effective timestamp
//   - error: graph.ErrNodeNotFound, weights.ErrInvalidTransition,
//     ErrSessionNotFound, ErrSessionExpired, or ErrDestroyed
func (e *Engine) RecordTransition(ctx context.Context, from, to string, tc TransitionContext) (Event, error) {
	ctx, span := startSpan(ctx, "engine.RecordTransition")
	defer span.End()
	start := time.Now()

	ev, subs, err := e.recordOne(ctx, from, to, tc)
	if err != nil {
		recordError(span, err)
		e.opts.Metrics.RejectTransition(rejectReason(err))
		return Event{}, err
	}
	e.opts.Metrics.RecordTransition(string(ev.Actor), time.Since(start))
	e.notify(subs, ev)
	if e.opts.Logger != nil {
		telemetry.LoggerWithTrace(ctx, e.opts.Logger).Debug("transition recorded",
			"from", ev.From, "to", ev.To, "actor", ev.Actor, "session_id", ev.SessionID)
	}
	return ev, nil
}

// RecordTransitions records a batch atomically: every record is
// validated before any is applied, and a failure anywhere leaves the
// engine unchanged.
func (e *Engine) RecordTransitions(ctx context.Context, records []TransitionRecord) ([]Event, error) {
	ctx, span := startSpan(ctx, "engine.RecordTransitions")
	defer span.End()

	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		return nil, ErrDestroyed
	}
	for _, r := range records {
		if err := e.validateLocked(r.From, r.To, r.Context); err != nil {
			e.mu.Unlock()
			recordError(span, err)
			e.opts.Metrics.RejectTransition(rejectReason(err))
			return nil, err
		}
	}
	events := make([]Event, 0, len(records))
	for _, r := range records {
		ev := e.applyLocked(r.From, r.To, r.Context)
		events = append(events, ev)
	}
	subs := e.subscriberList()
	e.mu.Unlock()

	for _, ev := range events {
		e.notify(subs, ev)
	}
	return events, nil
}

// recordOne validates and applies one transition under the lock and
// returns the subscriber list to notify after release.
func (e *Engine) recordOne(_ context.Context, from, to string, tc TransitionContext) (Event, []func(Event), error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.destroyed {
		return Event{}, nil, ErrDestroyed
	}
	if err := e.validateLocked(from, to, tc); err != nil {
		return Event{}, nil, err
	}
	ev := e.applyLocked(from, to, tc)
	return ev, e.subscriberList(), nil
}

// validateLocked checks a transition without mutating anything. Caller
// holds e.mu.
func (e *Engine) validateLocked(from, to string, tc TransitionContext) error {
	if from == "" || to == "" {
		return ErrInvalidInput
	}
	actor := tc.Actor
	if actor == "" {
		actor = graph.ActorUser
	}
	if !e.rules.HasActor(actor) {
		return graph.ErrUnknownActor
	}
	if !e.rules.HasNode(from) {
		return NewNodeError(from, graph.ErrNodeNotFound)
	}
	if !e.rules.HasNode(to) {
		return NewNodeError(to, graph.ErrNodeNotFound)
	}
	if e.opts.ValidateTransitions && !e.rules.HasEdge(from, to, actor) {
		return weights.NewTransitionError(graph.EdgeKey{From: from, To: to, Actor: actor})
	}
	if tc.SessionID != "" {
		state, ok := e.sessions[tc.SessionID]
		if !ok {
			return NewSessionError(tc.SessionID, ErrSessionNotFound)
		}
		if !state.active() {
			return NewSessionError(tc.SessionID, ErrSessionExpired)
		}
	}
	return nil
}

// applyLocked performs the validated mutation. Caller holds e.mu and
// has already run validateLocked.
func (e *Engine) applyLocked(from, to string, tc TransitionContext) Event {
	actor := tc.Actor
	if actor == "" {
		actor = graph.ActorUser
	}
	ts := tc.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	if e.rules.HasEdge(from, to, actor) {
		// Undeclared triples can only get here with validation off;
		// they bypass learning but still land in the chain.
		_ = e.overlay.RecordUpdate(from, to, actor, ts)
	}

	ev := Event{
		From:      from,
		To:        to,
		Actor:     actor,
		SessionID: tc.SessionID,
		Path:      tc.Path,
		Timestamp: ts,
	}
	if tc.SessionID != "" {
		state := e.sessions[tc.SessionID]
		ev = state.append(ev, e.opts.MaxChainLength, e.opts.Truncate)
	}
	return ev
}

// IsValidTransition reports whether the triple is declared in the rule
// graph.
func (e *Engine) IsValidTransition(from, to string, actor graph.Actor) bool {
	return e.rules.HasEdge(from, to, actor)
}

// ValidTransitions returns the declared outgoing edges at node for the
// actor, in declaration order. An empty actor matches all actors.
func (e *Engine) ValidTransitions(node string, actor graph.Actor) ([]graph.Edge, error) {
	if !e.rules.HasNode(node) {
		return nil, NewNodeError(node, graph.ErrNodeNotFound)
	}
	return e.rules.Outgoing(node, actor), nil
}

// PredictNext returns the ranked candidate next nodes from the current
// node for the prediction context's actor.
//
// Ranking is deterministic: candidates are ordered by descending score,
// then edge declaration order breaks ties. Confidence values sum to 1
// over the full (untruncated) candidate set.
func (e *Engine) PredictNext(ctx context.Context, current string, pc PredictionContext) ([]Prediction, error) {
	details, err := e.PredictNextDetailed(ctx, current, pc)
	if err != nil {
		return nil, err
	}
	out := make([]Prediction, len(details))
	for i, d := range details {
		out[i] = d.Prediction
	}
	return out, nil
}

// PredictNextDetailed is PredictNext with per-candidate observation
// metadata attached.
func (e *Engine) PredictNextDetailed(ctx context.Context, current string, pc PredictionContext) ([]PredictionDetail, error) {
	_, span := startSpan(ctx, "engine.PredictNext")
	defer span.End()
	start := time.Now()

	e.mu.RLock()
	destroyed := e.destroyed
	e.mu.RUnlock()
	if destroyed {
		return nil, ErrDestroyed
	}

	if !e.rules.HasNode(current) {
		err := NewNodeError(current, graph.ErrNodeNotFound)
		recordError(span, err)
		return nil, err
	}
	actor := pc.Actor
	if actor == "" {
		actor = graph.ActorUser
	}
	if !e.rules.HasActor(actor) {
		recordError(span, graph.ErrUnknownActor)
		return nil, graph.ErrUnknownActor
	}
	at := pc.At
	if at.IsZero() {
		at = time.Now()
	}

	edges := e.rules.Outgoing(current, actor)
	if len(edges) == 0 && e.opts.WidenOnEmpty {
		edges = e.rules.Outgoing(current, "")
	}
	if len(edges) == 0 {
		e.opts.Metrics.RecordPrediction(time.Since(start))
		return []PredictionDetail{}, nil
	}

	warm := e.overlay.WarmupComplete()
	details := make([]PredictionDetail, 0, len(edges))
	var total float64
	for _, edge := range edges {
		dynamic := e.overlay.WeightAt(edge.From, edge.To, edge.Actor, at)
		score := e.opts.Scorer(edge.Weight, dynamic)
		var count int
		if entry, ok := e.overlay.Entry(edge.From, edge.To, edge.Actor); ok {
			count = entry.UpdateCount
		}
		details = append(details, PredictionDetail{
			Prediction: Prediction{
				NodeID:        edge.To,
				BaseWeight:    edge.Weight,
				DynamicWeight: dynamic,
				Score:         score,
			},
			ObservationCount: count,
			WarmupComplete:   warm,
		})
		total += score
	}

	for i := range details {
		if total > 0 {
			details[i].Confidence = details[i].Score / total
		} else {
			details[i].Confidence = 1.0 / float64(len(details))
		}
	}

	// Declaration order is preserved for equal scores.
	sort.SliceStable(details, func(i, j int) bool {
		return details[i].Score > details[j].Score
	})

	if pc.Count > 0 && len(details) > pc.Count {
		details = details[:pc.Count]
	}
	e.opts.Metrics.RecordPrediction(time.Since(start))
	return details, nil
}

// OnTransition registers a callback invoked synchronously, in
// registration order, after each committed transition. The returned
// function unregisters the callback.
func (e *Engine) OnTransition(fn func(Event)) (func(), error) {
	if fn == nil {
		return nil, ErrInvalidInput
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.destroyed {
		return nil, ErrDestroyed
	}
	id := e.nextSubID
	e.nextSubID++
	e.subscribers[id] = fn
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.subscribers, id)
	}, nil
}

// subscriberList snapshots callbacks in registration order. Caller
// holds e.mu.
func (e *Engine) subscriberList() []func(Event) {
	if len(e.subscribers) == 0 {
		return nil
	}
	ids := make([]int, 0, len(e.subscribers))
	for id := range e.subscribers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]func(Event), 0, len(ids))
	for _, id := range ids {
		out = append(out, e.subscribers[id])
	}
	return out
}

// notify runs callbacks outside the engine lock.
func (e *Engine) notify(subs []func(Event), ev Event) {
	for _, fn := range subs {
		fn(ev)
	}
}

// Destroy tears the engine down. The overlay is destroyed, sessions and
// subscribers are dropped, and every subsequent call (including a second
// Destroy) fails with ErrDestroyed.
func (e *Engine) Destroy() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.destroyed {
		return ErrDestroyed
	}
	e.destroyed = true
	e.overlay.Destroy()
	e.sessions = nil
	e.activeByActor = nil
	e.subscribers = nil
	return nil
}

// rejectReason maps a record failure to a metrics label.
func rejectReason(err error) string {
	switch {
	case errors.Is(err, weights.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, graph.ErrNodeNotFound):
		return "node_not_found"
	case errors.Is(err, ErrSessionNotFound):
		return "session_not_found"
	case errors.Is(err, ErrSessionExpired):
		return "session_expired"
	case errors.Is(err, ErrDestroyed):
		return "destroyed"
	default:
		return "other"
	}
}
