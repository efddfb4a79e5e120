// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package weights implements the adaptive weight overlay: a dynamic,
// decaying weight per (edge, actor), validated against the rule graph on
// every update.
package weights

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/nextstep/graph"
)

// ColdStartPolicy selects weight behavior before any observations exist.
type ColdStartPolicy string

const (
	// ColdStartDeriveFromRule derives a missing entry's weight from the
	// static edge weight on read.
	ColdStartDeriveFromRule ColdStartPolicy = "derive_from_rule_weight"

	// ColdStartPreload seeds entries from historical records at
	// construction; a missing entry afterwards means zero observations.
	ColdStartPreload ColdStartPolicy = "preload_from_history"
)

// Entry is the learned weight state for one (edge, actor) triple.
//
// Entries are created lazily on first observation and never exist for
// triples absent from the rule graph.
type Entry struct {
	// Weight is the stored dynamic weight, clamped to the configured floor.
	Weight float64 `json:"weight"`

	// LastUpdate is when the entry was last written.
	LastUpdate time.Time `json:"last_update_time"`

	// UpdateCount is how many observations have been recorded.
	UpdateCount int `json:"update_count"`
}

// SeedRecord preloads one entry from historical data.
type SeedRecord struct {
	From        string      `json:"from"`
	To          string      `json:"to"`
	Actor       graph.Actor `json:"actor"`
	Weight      float64     `json:"weight"`
	LastUpdate  time.Time   `json:"last_update_time"`
	UpdateCount int         `json:"update_count"`
}

// Config configures an Overlay.
type Config struct {
	// Decay selects and parameterizes the decay model.
	// Default: DefaultDecayConfig()
	Decay DecayConfig

	// WarmupThreshold is the total update count after which predictions
	// are considered reliable.
	// Default: 10
	WarmupThreshold int

	// MinWeight is the floor no stored or derived weight falls below.
	// Must be >= 0.
	// Default: 0
	MinWeight float64

	// ColdStart selects behavior for triples without observations.
	// Default: ColdStartDeriveFromRule
	ColdStart ColdStartPolicy

	// DeriveScale multiplies the static edge weight when deriving a
	// cold-start value. Ignored under ColdStartPreload.
	// Default: 1.0
	DeriveScale float64

	// Seeds are applied at construction under ColdStartPreload.
	Seeds []SeedRecord
}

// DefaultConfig returns production-ready overlay defaults.
func DefaultConfig() Config {
	return Config{
		Decay:           DefaultDecayConfig(),
		WarmupThreshold: 10,
		MinWeight:       0,
		ColdStart:       ColdStartDeriveFromRule,
		DeriveScale:     1.0,
	}
}

// Validate checks that the configuration is valid.
func (c Config) Validate() error {
	if err := c.Decay.Validate(); err != nil {
		return err
	}
	if c.WarmupThreshold < 0 {
		return fmt.Errorf("%w: WarmupThreshold must be >= 0", ErrInvalidConfig)
	}
	if c.MinWeight < 0 {
		return fmt.Errorf("%w: MinWeight must be >= 0", ErrInvalidConfig)
	}
	switch c.ColdStart {
	case ColdStartDeriveFromRule, ColdStartPreload:
	default:
		return fmt.Errorf("%w: unknown cold-start policy %q", ErrInvalidConfig, c.ColdStart)
	}
	if c.DeriveScale < 0 {
		return fmt.Errorf("%w: DeriveScale must be >= 0", ErrInvalidConfig)
	}
	return nil
}

// Overlay holds the dynamic weight per (edge, actor), validated against
// the rule graph on every update.
//
// # Description
//
// Invariant: the overlay never holds an entry for a (from, to, actor)
// triple absent from the rule graph. Half-life decay is applied lazily on
// reads relative to elapsed wall-clock time, so weights fall over time
// even without new events; reads never mutate stored state, which keeps
// snapshot export/import exact.
//
// # Thread Safety
//
// Reads are guarded, but the design assumes a single logical writer
// driving all updates. Concurrent writers require external coordination.
type Overlay struct {
	mu sync.RWMutex

	modelID   string
	rules     *graph.RuleGraph
	config    Config
	entries   map[graph.EdgeKey]*Entry
	updates   int
	destroyed bool
}

// New creates an Overlay bound to a rule graph.
//
// # Description
//
// Validates the configuration and, under ColdStartPreload, seeds entries
// from Config.Seeds. Seed records referencing triples absent from the
// rule graph are rejected.
//
// # Inputs
//
//   - rules: The rule graph the overlay validates against. Must not be nil.
//   - config: Overlay configuration. Empty Decay/ColdStart/DeriveScale
//     fields take their defaults; start from DefaultConfig() and adjust.
//
// # Outputs
//
//   - *Overlay: Ready-to-use overlay.
//   - error: Non-nil on invalid configuration or rejected seeds.
func New(rules *graph.RuleGraph, config Config) (*Overlay, error) {
	if rules == nil {
		return nil, fmt.Errorf("%w: rule graph must not be nil", ErrInvalidConfig)
	}
	if config.Decay.Algorithm == "" {
		config.Decay = DefaultDecayConfig()
	}
	if config.ColdStart == "" {
		config.ColdStart = ColdStartDeriveFromRule
	}
	if config.DeriveScale == 0 {
		config.DeriveScale = 1.0
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	o := &Overlay{
		modelID: uuid.NewString(),
		rules:   rules,
		config:  config,
		entries: make(map[graph.EdgeKey]*Entry),
	}

	if config.ColdStart == ColdStartPreload && len(config.Seeds) > 0 {
		if err := o.Preload(config.Seeds); err != nil {
			return nil, err
		}
	}

	return o, nil
}

// ModelID returns the overlay's stable identifier, used in snapshots.
func (o *Overlay) ModelID() string {
	return o.modelID
}

// Config returns a copy of the overlay configuration.
func (o *Overlay) Config() Config {
	return o.config
}

// RecordUpdate records one observed transition at the given timestamp.
//
// # Description
//
// Rejects the update with ErrInvalidTransition if the (from, to, actor)
// triple is not declared in the rule graph. Otherwise creates or updates
// the entry per the decay model and clamps the result to the floor.
//
// # Inputs
//
//   - from, to: Edge endpoints.
//   - actor: Transition initiator category.
//   - ts: Observation time. Zero means time.Now().
//
// # Outputs
//
//   - error: ErrInvalidTransition, ErrDestroyed, or nil.
func (o *Overlay) RecordUpdate(from, to string, actor graph.Actor, ts time.Time) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.destroyed {
		return ErrDestroyed
	}

	key := graph.EdgeKey{From: from, To: to, Actor: actor}
	if !o.rules.HasEdge(from, to, actor) {
		return NewTransitionError(key)
	}
	if ts.IsZero() {
		ts = time.Now()
	}

	entry, ok := o.entries[key]
	if !ok {
		entry = &Entry{Weight: o.initialWeight(from, to, actor)}
		o.entries[key] = entry
	}

	entry.Weight = o.clamp(o.config.Decay.updated(entry.Weight, entry.LastUpdate, ts))
	entry.LastUpdate = ts
	entry.UpdateCount++
	o.updates++
	return nil
}

// initialWeight is the starting weight for a freshly created entry.
// Under the derive policy the first observation builds on the scaled
// static weight; under preload it starts from the floor.
func (o *Overlay) initialWeight(from, to string, actor graph.Actor) float64 {
	if o.config.ColdStart == ColdStartDeriveFromRule {
		if e, ok := o.rules.Edge(from, to, actor); ok {
			return o.clamp(e.Weight * o.config.DeriveScale)
		}
	}
	return o.config.MinWeight
}

// Weight returns the current dynamic weight for a triple, applying lazy
// decay relative to time.Now(). See WeightAt.
func (o *Overlay) Weight(from, to string, actor graph.Actor) float64 {
	return o.WeightAt(from, to, actor, time.Now())
}

// WeightAt returns the dynamic weight for a triple as of a given time.
//
// # Description
//
// If an entry exists, its stored weight is lazily decayed from its last
// update to now (half-life model only) and clamped to the floor. If no
// entry exists, the cold-start policy decides the fallback:
// derive-from-rule returns the scaled static edge weight; preload returns
// the floor, since absence after construction means zero observations.
// A triple absent from the rule graph always returns 0.
func (o *Overlay) WeightAt(from, to string, actor graph.Actor, now time.Time) float64 {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.destroyed {
		return 0
	}

	key := graph.EdgeKey{From: from, To: to, Actor: actor}
	if entry, ok := o.entries[key]; ok {
		return o.clamp(o.config.Decay.decayed(entry.Weight, entry.LastUpdate, now))
	}

	if !o.rules.HasEdge(from, to, actor) {
		return 0
	}
	if o.config.ColdStart == ColdStartDeriveFromRule {
		if e, ok := o.rules.Edge(from, to, actor); ok {
			return o.clamp(e.Weight * o.config.DeriveScale)
		}
	}
	return o.config.MinWeight
}

// Entry returns a copy of the stored entry for a triple, if any.
func (o *Overlay) Entry(from, to string, actor graph.Actor) (Entry, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	entry, ok := o.entries[graph.EdgeKey{From: from, To: to, Actor: actor}]
	if !ok {
		return Entry{}, false
	}
	return *entry, true
}

// WarmupComplete reports whether the running total of updates has reached
// the warm-up threshold.
func (o *Overlay) WarmupComplete() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.updates >= o.config.WarmupThreshold
}

// TotalUpdates returns the running total of recorded updates.
func (o *Overlay) TotalUpdates() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.updates
}

// EntryCount returns the number of stored entries.
func (o *Overlay) EntryCount() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.entries)
}

// Preload seeds entries from historical records.
//
// # Description
//
// Each record must reference a declared (from, to, actor) triple; the
// first offending record aborts the whole preload with no entries
// applied. Seed weights are clamped to the floor. The running update
// total is advanced by each record's UpdateCount so warm-up reflects
// history.
func (o *Overlay) Preload(records []SeedRecord) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.destroyed {
		return ErrDestroyed
	}

	for _, r := range records {
		if !o.rules.HasEdge(r.From, r.To, r.Actor) {
			return NewTransitionError(graph.EdgeKey{From: r.From, To: r.To, Actor: r.Actor})
		}
	}

	for _, r := range records {
		key := graph.EdgeKey{From: r.From, To: r.To, Actor: r.Actor}
		o.entries[key] = &Entry{
			Weight:      o.clamp(r.Weight),
			LastUpdate:  r.LastUpdate,
			UpdateCount: r.UpdateCount,
		}
		o.updates += r.UpdateCount
	}
	return nil
}

// Clear removes all entries and resets the update total.
func (o *Overlay) Clear() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.destroyed {
		return
	}
	o.entries = make(map[graph.EdgeKey]*Entry)
	o.updates = 0
}

// Destroy releases the overlay's state. Idempotent.
//
// Subsequent RecordUpdate/Preload calls return ErrDestroyed; reads return
// zero values.
func (o *Overlay) Destroy() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.entries = nil
	o.destroyed = true
}

// clamp bounds a weight to the configured floor. MinWeight is validated
// to be >= 0, so the result is never negative.
func (o *Overlay) clamp(w float64) float64 {
	if w < o.config.MinWeight {
		return o.config.MinWeight
	}
	return w
}
