// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ===== Metrics =====

func TestNewMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}

	m.RecordTransition("user", 5*time.Millisecond)
	m.RejectTransition("invalid_transition")
	m.RecordPrediction(2 * time.Millisecond)
	m.RecordAnalysis("hot_loops")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	if len(families) == 0 {
		t.Fatal("expected registered metric families")
	}
	seen := make(map[string]bool)
	for _, f := range families {
		seen[f.GetName()] = true
	}
	for _, name := range []string{
		"nextstep_transitions_recorded_total",
		"nextstep_transitions_rejected_total",
		"nextstep_predictions_total",
		"nextstep_pattern_analyses_total",
	} {
		if !seen[name] {
			t.Errorf("metric %s not registered (have %v)", name, seen)
		}
	}
}

func TestNilMetricsSafe(t *testing.T) {
	var m *Metrics
	m.RecordTransition("user", time.Millisecond)
	m.RejectTransition("other")
	m.RecordPrediction(time.Millisecond)
	m.RecordAnalysis("summary")
}

// ===== Logging helpers =====

func TestLoggerWithTrace(t *testing.T) {
	t.Run("no span returns base logger", func(t *testing.T) {
		base := slog.Default()
		if got := LoggerWithTrace(context.Background(), base); got != base {
			t.Error("expected the base logger unchanged without a span")
		}
	})

	t.Run("nil logger falls back to default", func(t *testing.T) {
		if got := LoggerWithTrace(context.Background(), nil); got == nil {
			t.Error("expected a non-nil logger")
		}
	})
}

func TestLoggerWithSession(t *testing.T) {
	base := slog.Default()
	if got := LoggerWithSession(context.Background(), base, ""); got != base {
		t.Error("empty session ID should not wrap the logger")
	}
	if got := LoggerWithSession(context.Background(), base, "s1"); got == base {
		t.Error("session ID should produce a child logger")
	}
}
