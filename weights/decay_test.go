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
	"math"
	"testing"
	"time"

	"github.com/AleutianAI/nextstep/graph"
)

func TestHalfLifeDecay(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cfg := DefaultConfig()
	cfg.Decay = DecayConfig{Algorithm: DecayHalfLife, HalfLife: 10 * time.Minute}
	cfg.ColdStart = ColdStartPreload // start entries from zero, not the static weight

	t.Run("one elapsed half-life halves the weight", func(t *testing.T) {
		o := newTestOverlay(t, cfg)
		if err := o.RecordUpdate("a", "b", graph.ActorUser, start); err != nil {
			t.Fatalf("RecordUpdate failed: %v", err)
		}

		recorded := o.WeightAt("a", "b", graph.ActorUser, start)
		decayed := o.WeightAt("a", "b", graph.ActorUser, start.Add(10*time.Minute))
		if math.Abs(decayed-recorded/2) > 1e-9 {
			t.Errorf("after one half-life weight = %g, want %g", decayed, recorded/2)
		}
	})

	t.Run("reads do not mutate stored state", func(t *testing.T) {
		o := newTestOverlay(t, cfg)
		if err := o.RecordUpdate("a", "b", graph.ActorUser, start); err != nil {
			t.Fatalf("RecordUpdate failed: %v", err)
		}

		later := start.Add(30 * time.Minute)
		first := o.WeightAt("a", "b", graph.ActorUser, later)
		second := o.WeightAt("a", "b", graph.ActorUser, later)
		if first != second {
			t.Errorf("repeated reads at the same instant differ: %g vs %g", first, second)
		}
		entry, _ := o.Entry("a", "b", graph.ActorUser)
		if !entry.LastUpdate.Equal(start) {
			t.Errorf("read advanced LastUpdate to %v", entry.LastUpdate)
		}
	})

	t.Run("decay is applied on update relative to elapsed time", func(t *testing.T) {
		o := newTestOverlay(t, cfg)
		if err := o.RecordUpdate("a", "b", graph.ActorUser, start); err != nil {
			t.Fatalf("RecordUpdate failed: %v", err)
		}
		// After one half-life the old unit observation is worth 0.5; the
		// new observation adds 1.0.
		if err := o.RecordUpdate("a", "b", graph.ActorUser, start.Add(10*time.Minute)); err != nil {
			t.Fatalf("RecordUpdate failed: %v", err)
		}

		got := o.WeightAt("a", "b", graph.ActorUser, start.Add(10*time.Minute))
		if math.Abs(got-1.5) > 1e-9 {
			t.Errorf("weight = %g, want 1.5", got)
		}
	})
}

func TestEMADecayIsTimeIndependent(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cfg := DefaultConfig()
	cfg.Decay = DecayConfig{Algorithm: DecayEMA, Factor: 0.9}
	cfg.ColdStart = ColdStartPreload
	o := newTestOverlay(t, cfg)

	if err := o.RecordUpdate("a", "b", graph.ActorUser, start); err != nil {
		t.Fatalf("RecordUpdate failed: %v", err)
	}

	now := o.WeightAt("a", "b", graph.ActorUser, start)
	muchLater := o.WeightAt("a", "b", graph.ActorUser, start.Add(24*time.Hour))
	if now != muchLater {
		t.Errorf("EMA weight changed over wall-clock time: %g vs %g", now, muchLater)
	}
}
