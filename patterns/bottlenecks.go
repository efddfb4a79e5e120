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
	"math"
	"sort"
	"time"
)

// congestionEpsilon floors the outgoing traffic so sinks and idle exits
// do not divide by zero.
const congestionEpsilon = 1e-9

// Bottlenecks returns nodes where recorded traffic accumulates faster
// than it drains.
//
// # Description
//
// Incoming and outgoing traffic are the sums of the overlay's dynamic
// weights over a node's in- and out-edges across all actors; congestion
// is their ratio with the denominator floored at a small epsilon. A node
// is reported when its incoming traffic exceeds the traffic threshold
// and congestion exceeds the congestion threshold. Without an overlay
// there is no traffic and nothing is reported. When a chain source is
// present, the mean dwell time between a node's arrival and its next
// departure is attached, and dwell beyond the delay threshold escalates
// severity.
func (a *Analyzer) Bottlenecks(ctx context.Context) ([]Bottleneck, error) {
	if ctx == nil {
		return nil, ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dwell := a.meanDwell()
	now := time.Now()

	var found []Bottleneck
	for _, node := range a.rules.Nodes() {
		inEdges := a.rules.Incoming(node, "")
		outEdges := a.rules.Outgoing(node, "")

		var in, out float64
		for _, e := range inEdges {
			in += a.dynamicWeight(e, now)
		}
		for _, e := range outEdges {
			out += a.dynamicWeight(e, now)
		}
		if in <= a.opts.TrafficThreshold {
			continue
		}
		congestion := in / math.Max(out, congestionEpsilon)
		if congestion <= a.opts.CongestionThreshold {
			continue
		}

		b := Bottleneck{
			Node:       node,
			InDegree:   len(inEdges),
			OutDegree:  len(outEdges),
			InTraffic:  in,
			OutTraffic: out,
			Congestion: congestion,
			AvgDwell:   dwell[node],
			Severity:   SeverityInfo,
		}
		if congestion > 2*a.opts.CongestionThreshold {
			b.Severity = SeverityWarning
		}
		if a.opts.DelayThreshold > 0 && b.AvgDwell > a.opts.DelayThreshold {
			b.Severity = escalate(b.Severity)
		}
		found = append(found, b)
	}

	sort.Slice(found, func(i, j int) bool {
		if found[i].Congestion != found[j].Congestion {
			return found[i].Congestion > found[j].Congestion
		}
		return found[i].Node < found[j].Node
	})
	a.opts.Metrics.RecordAnalysis("bottlenecks")
	return found, nil
}

// meanDwell computes the average observed time spent at each node:
// the gap between an event arriving at the node and the next event
// leaving it within the same session. Returns nil without history.
func (a *Analyzer) meanDwell() map[string]time.Duration {
	if a.chains == nil {
		return nil
	}
	events, err := a.events("")
	if err != nil || len(events) == 0 {
		return nil
	}

	type lastArrival struct {
		node string
		at   time.Time
	}
	arrivals := make(map[string]lastArrival)
	totals := make(map[string]time.Duration)
	counts := make(map[string]int)

	for _, ev := range events {
		if prev, ok := arrivals[ev.SessionID]; ok && prev.node == ev.From {
			totals[ev.From] += ev.Timestamp.Sub(prev.at)
			counts[ev.From]++
		}
		arrivals[ev.SessionID] = lastArrival{node: ev.To, at: ev.Timestamp}
	}

	dwell := make(map[string]time.Duration, len(totals))
	for node, total := range totals {
		dwell[node] = total / time.Duration(counts[node])
	}
	return dwell
}

// escalate bumps a severity one grade.
func escalate(s Severity) Severity {
	switch s {
	case SeverityInfo:
		return SeverityWarning
	default:
		return SeverityError
	}
}
