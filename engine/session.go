// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/nextstep/graph"
)

// EndReason records why a session stopped accepting events.
type EndReason string

const (
	// EndCompleted marks a session closed by its owner after finishing.
	EndCompleted EndReason = "completed"

	// EndAbandoned marks a session closed without reaching a terminal node.
	EndAbandoned EndReason = "abandoned"

	// EndSuperseded marks a session closed because a newer session for the
	// same actor was started.
	EndSuperseded EndReason = "superseded"

	// EndTimeout marks a session closed by inactivity.
	EndTimeout EndReason = "timeout"
)

// TruncateStrategy selects how an over-length chain is shortened.
type TruncateStrategy string

const (
	// TruncateOldest drops events from the front until the chain fits.
	TruncateOldest TruncateStrategy = "oldest_first"

	// TruncateWindow keeps only the newest half of the chain.
	TruncateWindow TruncateStrategy = "sliding_window"
)

// Session is an immutable snapshot of one recording session.
type Session struct {
	// ID uniquely identifies the session.
	ID string `json:"id"`

	// Actor is the initiator category the session records for.
	Actor graph.Actor `json:"actor"`

	// StartedAt is the session creation time.
	StartedAt time.Time `json:"started_at"`

	// LastActivity is the timestamp of the most recent event, or
	// StartedAt when the chain is empty.
	LastActivity time.Time `json:"last_activity"`

	// EndedAt is the close time. Zero while the session is active.
	EndedAt time.Time `json:"ended_at,omitzero"`

	// EndReason is set once the session is closed.
	EndReason EndReason `json:"end_reason,omitempty"`

	// EventCount is the current chain length after truncation.
	EventCount int `json:"event_count"`
}

// Active reports whether the session still accepts events.
func (s Session) Active() bool {
	return s.EndedAt.IsZero()
}

// sessionState is the mutable record behind a Session snapshot. All
// access is guarded by the owning Engine's mutex.
type sessionState struct {
	id           string
	actor        graph.Actor
	startedAt    time.Time
	lastActivity time.Time
	endedAt      time.Time
	endReason    EndReason
	chain        []Event
}

func (s *sessionState) active() bool {
	return s.endedAt.IsZero()
}

func (s *sessionState) snapshot() Session {
	return Session{
		ID:           s.id,
		Actor:        s.actor,
		StartedAt:    s.startedAt,
		LastActivity: s.lastActivity,
		EndedAt:      s.endedAt,
		EndReason:    s.endReason,
		EventCount:   len(s.chain),
	}
}

// append adds ev to the chain, nudging the timestamp forward when it
// would violate strict ordering, then truncates per the strategy.
func (s *sessionState) append(ev Event, maxLen int, strategy TruncateStrategy) Event {
	if n := len(s.chain); n > 0 && !ev.Timestamp.After(s.chain[n-1].Timestamp) {
		ev.Timestamp = s.chain[n-1].Timestamp.Add(time.Nanosecond)
	}
	s.chain = append(s.chain, ev)
	s.lastActivity = ev.Timestamp
	if maxLen > 0 && len(s.chain) > maxLen {
		s.truncate(retainTarget(maxLen, strategy))
	}
	return ev
}

// truncate keeps only the newest target events and returns the number
// dropped.
func (s *sessionState) truncate(target int) int {
	if target <= 0 || len(s.chain) <= target {
		return 0
	}
	dropped := len(s.chain) - target
	s.chain = append(s.chain[:0], s.chain[dropped:]...)
	return dropped
}

// retainTarget maps a truncation strategy to the chain length it retains.
// Sliding-window keeps the newest half of the maximum so repeated appends
// do not truncate on every event.
func retainTarget(maxLen int, strategy TruncateStrategy) int {
	if strategy != TruncateWindow {
		return maxLen
	}
	keep := maxLen / 2
	if keep < 1 {
		keep = 1
	}
	return keep
}

// StartSession opens a new recording session for actor. An empty id is
// replaced with a generated UUID. Starting with an id that already
// exists fails with ErrDuplicateActiveSession whether the prior session
// is active or ended: ended sessions retain their chains for queries,
// and ResumeSession is the way to reactivate one. When single-active
// enforcement is on, an existing active session for the same actor is
// closed with EndSuperseded first.
//
// # Thread Safety
//
// Safe for concurrent use.
func (e *Engine) StartSession(id string, actor graph.Actor) (Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.destroyed {
		return Session{}, ErrDestroyed
	}
	if !e.rules.HasActor(actor) {
		return Session{}, graph.ErrUnknownActor
	}
	if id == "" {
		id = uuid.NewString()
	}
	if _, ok := e.sessions[id]; ok {
		return Session{}, NewSessionError(id, ErrDuplicateActiveSession)
	}
	if e.opts.EnforceSingleActive {
		if activeID, ok := e.activeByActor[actor]; ok {
			if prev, ok := e.sessions[activeID]; ok && prev.active() {
				e.closeSessionLocked(prev, EndSuperseded, time.Now())
			}
		}
	}

	now := time.Now()
	state := &sessionState{
		id:           id,
		actor:        actor,
		startedAt:    now,
		lastActivity: now,
	}
	e.sessions[id] = state
	e.activeByActor[actor] = id
	return state.snapshot(), nil
}

// EndSession closes the session with the given reason. Ending an already
// closed session fails with ErrSessionExpired.
func (e *Engine) EndSession(id string, reason EndReason) (Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.destroyed {
		return Session{}, ErrDestroyed
	}
	state, ok := e.sessions[id]
	if !ok {
		return Session{}, NewSessionError(id, ErrSessionNotFound)
	}
	if !state.active() {
		return Session{}, NewSessionError(id, ErrSessionExpired)
	}
	if reason == "" {
		reason = EndCompleted
	}
	e.closeSessionLocked(state, reason, time.Now())
	return state.snapshot(), nil
}

// ResumeSession reopens a closed session when its end time is within the
// configured resume window. Resuming an active session is a no-op that
// returns the current snapshot.
func (e *Engine) ResumeSession(id string) (Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.destroyed {
		return Session{}, ErrDestroyed
	}
	state, ok := e.sessions[id]
	if !ok {
		return Session{}, NewSessionError(id, ErrSessionNotFound)
	}
	if state.active() {
		return state.snapshot(), nil
	}
	if time.Since(state.endedAt) > e.opts.SessionResumeWindow {
		return Session{}, NewSessionError(id, ErrSessionExpired)
	}

	if e.opts.EnforceSingleActive {
		if activeID, ok := e.activeByActor[state.actor]; ok && activeID != id {
			if prev, ok := e.sessions[activeID]; ok && prev.active() {
				e.closeSessionLocked(prev, EndSuperseded, time.Now())
			}
		}
	}
	state.endedAt = time.Time{}
	state.endReason = ""
	state.lastActivity = time.Now()
	e.activeByActor[state.actor] = id
	return state.snapshot(), nil
}

// GetSession returns a snapshot of the session.
func (e *Engine) GetSession(id string) (Session, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.destroyed {
		return Session{}, ErrDestroyed
	}
	state, ok := e.sessions[id]
	if !ok {
		return Session{}, NewSessionError(id, ErrSessionNotFound)
	}
	return state.snapshot(), nil
}

// Sessions returns snapshots of every known session, active and closed,
// ordered by start time.
func (e *Engine) Sessions() ([]Session, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.destroyed {
		return nil, ErrDestroyed
	}
	out := make([]Session, 0, len(e.sessions))
	for _, state := range e.sessions {
		out = append(out, state.snapshot())
	}
	sortSessions(out)
	return out, nil
}

// ChainQuery narrows a SessionChain read.
type ChainQuery struct {
	// Limit caps the number of returned events, newest kept. Zero means
	// no cap.
	Limit int

	// Since excludes events at or before this time when non-zero.
	Since time.Time
}

// SessionChain returns the merged, strictly time-ordered event chain of
// every session belonging to actor, filtered by the query.
func (e *Engine) SessionChain(actor graph.Actor, q ChainQuery) ([]Event, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.destroyed {
		return nil, ErrDestroyed
	}
	if !e.rules.HasActor(actor) {
		return nil, graph.ErrUnknownActor
	}

	var events []Event
	for _, state := range e.sessions {
		if state.actor != actor {
			continue
		}
		for _, ev := range state.chain {
			if !q.Since.IsZero() && !ev.Timestamp.After(q.Since) {
				continue
			}
			events = append(events, ev)
		}
	}
	sortEvents(events)
	if q.Limit > 0 && len(events) > q.Limit {
		events = events[len(events)-q.Limit:]
	}
	return events, nil
}

// Chain returns the event chain of a single session.
func (e *Engine) Chain(sessionID string) ([]Event, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.destroyed {
		return nil, ErrDestroyed
	}
	state, ok := e.sessions[sessionID]
	if !ok {
		return nil, NewSessionError(sessionID, ErrSessionNotFound)
	}
	out := make([]Event, len(state.chain))
	copy(out, state.chain)
	return out, nil
}

// TruncateChain shortens a session's chain on demand using the given
// strategy against the configured maximum length. Works on active and
// ended sessions alike.
//
// # Inputs
//
//   - sessionID: the session whose chain to bound.
//   - strategy: TruncateOldest trims to the maximum, TruncateWindow to
//     the newest half of the maximum.
//
// # Outputs
//
//   - int: events removed from the chain. Zero when already within bounds
//     or when no maximum is configured.
//   - error: ErrSessionNotFound for an unknown id, ErrDestroyed after Destroy.
func (e *Engine) TruncateChain(sessionID string, strategy TruncateStrategy) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.destroyed {
		return 0, ErrDestroyed
	}
	state, ok := e.sessions[sessionID]
	if !ok {
		return 0, NewSessionError(sessionID, ErrSessionNotFound)
	}
	if e.opts.MaxChainLength <= 0 {
		return 0, nil
	}
	return state.truncate(retainTarget(e.opts.MaxChainLength, strategy)), nil
}

// ExpireIdleSessions closes every active session whose last activity is
// older than maxIdle, with reason EndTimeout. It returns the closed
// session IDs.
func (e *Engine) ExpireIdleSessions(maxIdle time.Duration) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.destroyed {
		return nil, ErrDestroyed
	}
	now := time.Now()
	var closed []string
	for id, state := range e.sessions {
		if state.active() && now.Sub(state.lastActivity) > maxIdle {
			e.closeSessionLocked(state, EndTimeout, now)
			closed = append(closed, id)
		}
	}
	return closed, nil
}

// closeSessionLocked ends the session and clears the actor's active
// pointer when it points at this session. Caller holds e.mu.
func (e *Engine) closeSessionLocked(state *sessionState, reason EndReason, at time.Time) {
	state.endedAt = at
	state.endReason = reason
	if e.activeByActor[state.actor] == state.id {
		delete(e.activeByActor, state.actor)
	}
}

func sortSessions(sessions []Session) {
	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].StartedAt.Equal(sessions[j].StartedAt) {
			return sessions[i].StartedAt.Before(sessions[j].StartedAt)
		}
		return sessions[i].ID < sessions[j].ID
	})
}

func sortEvents(events []Event) {
	sort.Slice(events, func(i, j int) bool {
		if !events[i].Timestamp.Equal(events[j].Timestamp) {
			return events[i].Timestamp.Before(events[j].Timestamp)
		}
		if events[i].SessionID != events[j].SessionID {
			return events[i].SessionID < events[j].SessionID
		}
		return events[i].From < events[j].From
	})
}
