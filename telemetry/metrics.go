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
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the prediction core.
//
// # Description
//
// All collectors are registered on construction. A nil *Metrics is safe
// to use everywhere: every method no-ops, so callers never need to guard
// the disabled case.
type Metrics struct {
	transitionsRecorded *prometheus.CounterVec
	transitionsRejected *prometheus.CounterVec
	predictions         prometheus.Counter
	recordDuration      prometheus.Histogram
	predictDuration     prometheus.Histogram
	analyses            *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors.
//
// Inputs:
//
//	reg - Registerer to attach collectors to. Nil uses the default registry.
//
// Outputs:
//
//	*Metrics - Registered collectors.
//	error - Non-nil if a collector is already registered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		transitionsRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nextstep",
			Name:      "transitions_recorded_total",
			Help:      "Transitions accepted and recorded, by actor.",
		}, []string{"actor"}),
		transitionsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nextstep",
			Name:      "transitions_rejected_total",
			Help:      "Transitions rejected, by reason.",
		}, []string{"reason"}),
		predictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nextstep",
			Name:      "predictions_total",
			Help:      "Prediction calls served.",
		}),
		recordDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "nextstep",
			Name:      "record_duration_seconds",
			Help:      "Latency of transition recording.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 8),
		}),
		predictDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "nextstep",
			Name:      "predict_duration_seconds",
			Help:      "Latency of prediction calls.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 8),
		}),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nextstep",
			Name:      "pattern_analyses_total",
			Help:      "Pattern analysis runs, by kind.",
		}, []string{"kind"}),
	}

	collectors := []prometheus.Collector{
		m.transitionsRecorded,
		m.transitionsRejected,
		m.predictions,
		m.recordDuration,
		m.predictDuration,
		m.analyses,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RecordTransition counts an accepted transition for an actor.
func (m *Metrics) RecordTransition(actor string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.transitionsRecorded.WithLabelValues(actor).Inc()
	m.recordDuration.Observe(elapsed.Seconds())
}

// RejectTransition counts a rejected transition by reason.
func (m *Metrics) RejectTransition(reason string) {
	if m == nil {
		return
	}
	m.transitionsRejected.WithLabelValues(reason).Inc()
}

// RecordPrediction counts a served prediction call.
func (m *Metrics) RecordPrediction(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.predictions.Inc()
	m.predictDuration.Observe(elapsed.Seconds())
}

// RecordAnalysis counts a pattern analysis run by kind.
func (m *Metrics) RecordAnalysis(kind string) {
	if m == nil {
		return
	}
	m.analyses.WithLabelValues(kind).Inc()
}
