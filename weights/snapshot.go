// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package weights

import (
	"fmt"
	"sort"
	"time"

	"github.com/AleutianAI/nextstep/graph"
)

// SnapshotVersion is the current snapshot format version.
const SnapshotVersion = 1

// Snapshot is the versioned serialization of an overlay: all entries plus
// the decay configuration and warm-up counters. It is the only persisted
// wire artifact in the core.
type Snapshot struct {
	// ModelID identifies the overlay the snapshot was taken from.
	ModelID string `json:"modelId" yaml:"modelId"`

	// Version is the snapshot format version.
	Version int `json:"version" yaml:"version"`

	// TransitionCount is the running total of recorded updates.
	TransitionCount int `json:"transitionCount" yaml:"transitionCount"`

	// WarmupThreshold is the configured warm-up threshold.
	WarmupThreshold int `json:"warmupThreshold" yaml:"warmupThreshold"`

	// DecayConfig is the decay model in effect at export time.
	DecayConfig SnapshotDecay `json:"decayConfig" yaml:"decayConfig"`

	// Weights are the entries, sorted by (from, to, actor) so export is
	// deterministic.
	Weights []SnapshotWeight `json:"weights" yaml:"weights"`
}

// SnapshotDecay is the wire form of the decay configuration.
type SnapshotDecay struct {
	Algorithm  DecayAlgorithm `json:"algorithm" yaml:"algorithm"`
	Factor     float64        `json:"decayFactor,omitempty" yaml:"decayFactor,omitempty"`
	HalfLifeMs int64          `json:"halfLifeMs,omitempty" yaml:"halfLifeMs,omitempty"`
}

// SnapshotWeight is the wire form of one entry. LastUpdateTime is Unix
// nanoseconds: lazy decay is computed from this instant, so any loss of
// precision here would change WeightAt results after a round trip.
type SnapshotWeight struct {
	From           string      `json:"from" yaml:"from"`
	To             string      `json:"to" yaml:"to"`
	Actor          graph.Actor `json:"actor" yaml:"actor"`
	Weight         float64     `json:"weight" yaml:"weight"`
	LastUpdateTime int64       `json:"lastUpdateTime" yaml:"lastUpdateTime"`
	UpdateCount    int         `json:"updateCount" yaml:"updateCount"`
}

// ExportSnapshot serializes the overlay's entries and configuration.
//
// # Description
//
// Entries are emitted sorted by (from, to, actor), so two exports of the
// same state are byte-identical after encoding. Stored weights are
// exported raw, without applying lazy decay: together with the last
// update time this makes a re-import reproduce identical WeightAt results
// for every entry present at export time.
func (o *Overlay) ExportSnapshot() (*Snapshot, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.destroyed {
		return nil, ErrDestroyed
	}

	snap := &Snapshot{
		ModelID:         o.modelID,
		Version:         SnapshotVersion,
		TransitionCount: o.updates,
		WarmupThreshold: o.config.WarmupThreshold,
		DecayConfig: SnapshotDecay{
			Algorithm: o.config.Decay.Algorithm,
		},
		Weights: make([]SnapshotWeight, 0, len(o.entries)),
	}
	switch o.config.Decay.Algorithm {
	case DecayEMA:
		snap.DecayConfig.Factor = o.config.Decay.Factor
	case DecayHalfLife:
		snap.DecayConfig.HalfLifeMs = o.config.Decay.HalfLife.Milliseconds()
	}

	for key, entry := range o.entries {
		snap.Weights = append(snap.Weights, SnapshotWeight{
			From:           key.From,
			To:             key.To,
			Actor:          key.Actor,
			Weight:         entry.Weight,
			LastUpdateTime: entry.LastUpdate.UnixNano(),
			UpdateCount:    entry.UpdateCount,
		})
	}
	sort.Slice(snap.Weights, func(i, j int) bool {
		a, b := snap.Weights[i], snap.Weights[j]
		if a.From != b.From {
			return a.From < b.From
		}
		if a.To != b.To {
			return a.To < b.To
		}
		return a.Actor < b.Actor
	})

	return snap, nil
}

// ImportSnapshot replaces the overlay's entries and counters with the
// snapshot's contents.
//
// # Description
//
// The snapshot version must be supported and every entry must reference a
// triple declared in the rule graph; a mismatch aborts the import with no
// partial effects. The decay configuration and warm-up threshold are
// taken from the snapshot so imported weights keep decaying the way they
// were recorded.
func (o *Overlay) ImportSnapshot(snap *Snapshot) error {
	if snap == nil {
		return fmt.Errorf("%w: nil snapshot", ErrInvalidConfig)
	}
	if snap.Version != SnapshotVersion {
		return fmt.Errorf("%w: got %d, want %d", ErrSnapshotVersion, snap.Version, SnapshotVersion)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.destroyed {
		return ErrDestroyed
	}

	for _, w := range snap.Weights {
		if !o.rules.HasEdge(w.From, w.To, w.Actor) {
			return fmt.Errorf("%w: %s", ErrSnapshotMismatch,
				graph.EdgeKey{From: w.From, To: w.To, Actor: w.Actor})
		}
	}

	decay := DecayConfig{Algorithm: snap.DecayConfig.Algorithm}
	switch snap.DecayConfig.Algorithm {
	case DecayEMA:
		decay.Factor = snap.DecayConfig.Factor
	case DecayHalfLife:
		decay.HalfLife = time.Duration(snap.DecayConfig.HalfLifeMs) * time.Millisecond
	}
	if err := decay.Validate(); err != nil {
		return err
	}

	entries := make(map[graph.EdgeKey]*Entry, len(snap.Weights))
	for _, w := range snap.Weights {
		key := graph.EdgeKey{From: w.From, To: w.To, Actor: w.Actor}
		entries[key] = &Entry{
			Weight:      w.Weight,
			LastUpdate:  time.Unix(0, w.LastUpdateTime),
			UpdateCount: w.UpdateCount,
		}
	}

	o.modelID = snap.ModelID
	o.config.Decay = decay
	o.config.WarmupThreshold = snap.WarmupThreshold
	o.entries = entries
	o.updates = snap.TransitionCount
	return nil
}
