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
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AleutianAI/nextstep/graph"
)

// ===== Lifecycle =====

func TestStartSession(t *testing.T) {
	t.Run("generates id when empty", func(t *testing.T) {
		e := createTestEngine(t)
		sess, err := e.StartSession("", graph.ActorUser)
		if err != nil {
			t.Fatalf("StartSession() error = %v", err)
		}
		if sess.ID == "" {
			t.Error("expected generated session ID")
		}
		if !sess.Active() {
			t.Error("new session should be active")
		}
	})

	t.Run("duplicate active id rejected", func(t *testing.T) {
		e := createTestEngine(t, WithSingleActiveSession(false))
		if _, err := e.StartSession("s1", graph.ActorUser); err != nil {
			t.Fatalf("StartSession() error = %v", err)
		}
		_, err := e.StartSession("s1", graph.ActorUser)
		if !errors.Is(err, ErrDuplicateActiveSession) {
			t.Errorf("error = %v, want ErrDuplicateActiveSession", err)
		}
	})

	t.Run("ended id rejected and its chain retained", func(t *testing.T) {
		ctx := context.Background()
		e := createTestEngine(t)
		sess, _ := e.StartSession("s1", graph.ActorUser)
		_, _ = e.RecordTransition(ctx, "start", "browse", TransitionContext{
			Actor: graph.ActorUser, SessionID: sess.ID,
		})
		_, _ = e.EndSession(sess.ID, EndCompleted)

		_, err := e.StartSession("s1", graph.ActorUser)
		if !errors.Is(err, ErrDuplicateActiveSession) {
			t.Errorf("error = %v, want ErrDuplicateActiveSession", err)
		}
		chain, _ := e.Chain(sess.ID)
		if len(chain) != 1 {
			t.Errorf("chain length = %d, want 1", len(chain))
		}
	})

	t.Run("supersedes previous active session", func(t *testing.T) {
		e := createTestEngine(t)
		first, _ := e.StartSession("s1", graph.ActorUser)
		second, err := e.StartSession("s2", graph.ActorUser)
		if err != nil {
			t.Fatalf("StartSession() error = %v", err)
		}
		prev, err := e.GetSession(first.ID)
		if err != nil {
			t.Fatalf("GetSession() error = %v", err)
		}
		if prev.Active() {
			t.Error("first session should be closed")
		}
		if prev.EndReason != EndSuperseded {
			t.Errorf("EndReason = %q, want %q", prev.EndReason, EndSuperseded)
		}
		if !second.Active() {
			t.Error("second session should be active")
		}
	})

	t.Run("single active off allows parallel sessions", func(t *testing.T) {
		e := createTestEngine(t, WithSingleActiveSession(false))
		_, _ = e.StartSession("s1", graph.ActorUser)
		_, err := e.StartSession("s2", graph.ActorUser)
		if err != nil {
			t.Fatalf("StartSession() error = %v", err)
		}
		first, _ := e.GetSession("s1")
		if !first.Active() {
			t.Error("first session should stay active")
		}
	})

	t.Run("unknown actor rejected", func(t *testing.T) {
		e := createTestEngine(t)
		if _, err := e.StartSession("", graph.Actor("robot")); !errors.Is(err, graph.ErrUnknownActor) {
			t.Errorf("error = %v, want ErrUnknownActor", err)
		}
	})

	t.Run("different actors do not supersede each other", func(t *testing.T) {
		e := createTestEngine(t)
		_, _ = e.StartSession("u1", graph.ActorUser)
		_, _ = e.StartSession("sys1", graph.ActorSystem)
		user, _ := e.GetSession("u1")
		if !user.Active() {
			t.Error("user session should stay active")
		}
	})
}

func TestEndSession(t *testing.T) {
	e := createTestEngine(t)

	t.Run("close with reason", func(t *testing.T) {
		sess, _ := e.StartSession("s1", graph.ActorUser)
		closed, err := e.EndSession(sess.ID, EndAbandoned)
		if err != nil {
			t.Fatalf("EndSession() error = %v", err)
		}
		if closed.Active() {
			t.Error("session should be closed")
		}
		if closed.EndReason != EndAbandoned {
			t.Errorf("EndReason = %q, want %q", closed.EndReason, EndAbandoned)
		}
	})

	t.Run("empty reason defaults to completed", func(t *testing.T) {
		sess, _ := e.StartSession("s2", graph.ActorUser)
		closed, _ := e.EndSession(sess.ID, "")
		if closed.EndReason != EndCompleted {
			t.Errorf("EndReason = %q, want %q", closed.EndReason, EndCompleted)
		}
	})

	t.Run("already closed fails", func(t *testing.T) {
		if _, err := e.EndSession("s1", EndCompleted); !errors.Is(err, ErrSessionExpired) {
			t.Errorf("error = %v, want ErrSessionExpired", err)
		}
	})

	t.Run("unknown session fails", func(t *testing.T) {
		if _, err := e.EndSession("ghost", EndCompleted); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("error = %v, want ErrSessionNotFound", err)
		}
	})
}

func TestResumeSession(t *testing.T) {
	t.Run("within window reopens", func(t *testing.T) {
		e := createTestEngine(t)
		sess, _ := e.StartSession("s1", graph.ActorUser)
		_, _ = e.EndSession(sess.ID, EndAbandoned)
		resumed, err := e.ResumeSession(sess.ID)
		if err != nil {
			t.Fatalf("ResumeSession() error = %v", err)
		}
		if !resumed.Active() {
			t.Error("resumed session should be active")
		}
		if resumed.EndReason != "" {
			t.Errorf("EndReason = %q, want empty", resumed.EndReason)
		}
	})

	t.Run("outside window expires", func(t *testing.T) {
		e := createTestEngine(t, WithSessionResumeWindow(0))
		sess, _ := e.StartSession("s1", graph.ActorUser)
		_, _ = e.EndSession(sess.ID, EndAbandoned)
		time.Sleep(time.Millisecond)
		if _, err := e.ResumeSession(sess.ID); !errors.Is(err, ErrSessionExpired) {
			t.Errorf("error = %v, want ErrSessionExpired", err)
		}
	})

	t.Run("active session is a no-op", func(t *testing.T) {
		e := createTestEngine(t)
		sess, _ := e.StartSession("s1", graph.ActorUser)
		resumed, err := e.ResumeSession(sess.ID)
		if err != nil {
			t.Fatalf("ResumeSession() error = %v", err)
		}
		if !resumed.Active() {
			t.Error("session should stay active")
		}
	})

	t.Run("resume supersedes the replacement session", func(t *testing.T) {
		e := createTestEngine(t)
		first, _ := e.StartSession("s1", graph.ActorUser)
		_, _ = e.EndSession(first.ID, EndAbandoned)
		second, _ := e.StartSession("s2", graph.ActorUser)
		if _, err := e.ResumeSession(first.ID); err != nil {
			t.Fatalf("ResumeSession() error = %v", err)
		}
		repl, _ := e.GetSession(second.ID)
		if repl.Active() {
			t.Error("replacement session should be superseded")
		}
	})

	t.Run("unknown session fails", func(t *testing.T) {
		e := createTestEngine(t)
		if _, err := e.ResumeSession("ghost"); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("error = %v, want ErrSessionNotFound", err)
		}
	})
}

// ===== Chains =====

func TestChainOrdering(t *testing.T) {
	ctx := context.Background()
	e := createTestEngine(t)
	sess, _ := e.StartSession("s1", graph.ActorUser)

	// Record with an identical explicit timestamp; strict ordering nudges
	// the second event forward.
	ts := time.Now()
	_, _ = e.RecordTransition(ctx, "start", "browse", TransitionContext{
		Actor: graph.ActorUser, SessionID: sess.ID, Timestamp: ts,
	})
	_, _ = e.RecordTransition(ctx, "browse", "cart", TransitionContext{
		Actor: graph.ActorUser, SessionID: sess.ID, Timestamp: ts,
	})

	chain, err := e.Chain(sess.ID)
	if err != nil {
		t.Fatalf("Chain() error = %v", err)
	}
	if len(chain) != 2 {
		t.Fatalf("chain length = %d, want 2", len(chain))
	}
	if !chain[1].Timestamp.After(chain[0].Timestamp) {
		t.Errorf("timestamps not strictly increasing: %v, %v", chain[0].Timestamp, chain[1].Timestamp)
	}
}

func TestChainTruncation(t *testing.T) {
	ctx := context.Background()

	t.Run("oldest first keeps the newest max", func(t *testing.T) {
		e := createTestEngine(t, WithMaxChainLength(3, TruncateOldest), WithValidation(false))
		sess, _ := e.StartSession("s1", graph.ActorUser)
		for i := 0; i < 5; i++ {
			_, _ = e.RecordTransition(ctx, "start", "browse", TransitionContext{
				Actor: graph.ActorUser, SessionID: sess.ID,
			})
		}
		chain, _ := e.Chain(sess.ID)
		if len(chain) != 3 {
			t.Errorf("chain length = %d, want 3", len(chain))
		}
	})

	t.Run("sliding window keeps the newest half", func(t *testing.T) {
		e := createTestEngine(t, WithMaxChainLength(4, TruncateWindow), WithValidation(false))
		sess, _ := e.StartSession("s1", graph.ActorUser)
		for i := 0; i < 5; i++ {
			_, _ = e.RecordTransition(ctx, "start", "browse", TransitionContext{
				Actor: graph.ActorUser, SessionID: sess.ID,
			})
		}
		chain, _ := e.Chain(sess.ID)
		if len(chain) != 2 {
			t.Errorf("chain length = %d, want 2", len(chain))
		}
	})

	t.Run("explicit truncate trims to the window target", func(t *testing.T) {
		e := createTestEngine(t, WithMaxChainLength(4, TruncateOldest), WithValidation(false))
		sess, _ := e.StartSession("s1", graph.ActorUser)
		for i := 0; i < 3; i++ {
			_, _ = e.RecordTransition(ctx, "start", "browse", TransitionContext{
				Actor: graph.ActorUser, SessionID: sess.ID,
			})
		}

		dropped, err := e.TruncateChain(sess.ID, TruncateOldest)
		if err != nil {
			t.Fatalf("TruncateChain() error = %v", err)
		}
		if dropped != 0 {
			t.Errorf("oldest-first within bounds dropped %d, want 0", dropped)
		}

		dropped, err = e.TruncateChain(sess.ID, TruncateWindow)
		if err != nil {
			t.Fatalf("TruncateChain() error = %v", err)
		}
		if dropped != 1 {
			t.Errorf("sliding window dropped %d, want 1", dropped)
		}
		chain, _ := e.Chain(sess.ID)
		if len(chain) != 2 {
			t.Errorf("chain length after truncate = %d, want 2", len(chain))
		}
	})

	t.Run("explicit truncate on unknown session", func(t *testing.T) {
		e := createTestEngine(t)
		if _, err := e.TruncateChain("missing", TruncateOldest); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("TruncateChain() error = %v, want ErrSessionNotFound", err)
		}
	})
}

func TestSessionChain(t *testing.T) {
	ctx := context.Background()
	e := createTestEngine(t, WithSingleActiveSession(false))

	s1, _ := e.StartSession("s1", graph.ActorUser)
	s2, _ := e.StartSession("s2", graph.ActorUser)
	sys, _ := e.StartSession("sys", graph.ActorSystem)

	base := time.Now()
	_, _ = e.RecordTransition(ctx, "start", "browse", TransitionContext{
		Actor: graph.ActorUser, SessionID: s1.ID, Timestamp: base,
	})
	_, _ = e.RecordTransition(ctx, "start", "search", TransitionContext{
		Actor: graph.ActorUser, SessionID: s2.ID, Timestamp: base.Add(time.Second),
	})
	_, _ = e.RecordTransition(ctx, "browse", "cart", TransitionContext{
		Actor: graph.ActorUser, SessionID: s1.ID, Timestamp: base.Add(2 * time.Second),
	})
	_, _ = e.RecordTransition(ctx, "cart", "done", TransitionContext{
		Actor: graph.ActorSystem, SessionID: sys.ID, Timestamp: base.Add(3 * time.Second),
	})

	t.Run("merged across sessions in time order", func(t *testing.T) {
		events, err := e.SessionChain(graph.ActorUser, ChainQuery{})
		if err != nil {
			t.Fatalf("SessionChain() error = %v", err)
		}
		if len(events) != 3 {
			t.Fatalf("len(events) = %d, want 3", len(events))
		}
		want := []string{"browse", "search", "cart"}
		for i, ev := range events {
			if ev.To != want[i] {
				t.Errorf("events[%d].To = %q, want %q", i, ev.To, want[i])
			}
		}
	})

	t.Run("other actors excluded", func(t *testing.T) {
		events, _ := e.SessionChain(graph.ActorSystem, ChainQuery{})
		if len(events) != 1 || events[0].To != "done" {
			t.Errorf("events = %+v, want single done", events)
		}
	})

	t.Run("limit keeps newest", func(t *testing.T) {
		events, _ := e.SessionChain(graph.ActorUser, ChainQuery{Limit: 1})
		if len(events) != 1 || events[0].To != "cart" {
			t.Errorf("events = %+v, want single cart", events)
		}
	})

	t.Run("since filters older events", func(t *testing.T) {
		events, _ := e.SessionChain(graph.ActorUser, ChainQuery{Since: base.Add(time.Second)})
		if len(events) != 1 || events[0].To != "cart" {
			t.Errorf("events = %+v, want single cart", events)
		}
	})

	t.Run("unknown actor rejected", func(t *testing.T) {
		if _, err := e.SessionChain(graph.Actor("robot"), ChainQuery{}); !errors.Is(err, graph.ErrUnknownActor) {
			t.Errorf("error = %v, want ErrUnknownActor", err)
		}
	})
}

// ===== Expiry =====

func TestExpireIdleSessions(t *testing.T) {
	e := createTestEngine(t, WithSingleActiveSession(false))
	_, _ = e.StartSession("s1", graph.ActorUser)
	time.Sleep(2 * time.Millisecond)
	_, _ = e.StartSession("s2", graph.ActorUser)

	closed, err := e.ExpireIdleSessions(time.Millisecond)
	if err != nil {
		t.Fatalf("ExpireIdleSessions() error = %v", err)
	}
	if len(closed) != 1 || closed[0] != "s1" {
		t.Errorf("closed = %v, want [s1]", closed)
	}
	sess, _ := e.GetSession("s1")
	if sess.EndReason != EndTimeout {
		t.Errorf("EndReason = %q, want %q", sess.EndReason, EndTimeout)
	}
}

func TestSessions(t *testing.T) {
	e := createTestEngine(t, WithSingleActiveSession(false))
	_, _ = e.StartSession("b", graph.ActorUser)
	_, _ = e.StartSession("a", graph.ActorUser)

	sessions, err := e.Sessions()
	if err != nil {
		t.Fatalf("Sessions() error = %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("len(sessions) = %d, want 2", len(sessions))
	}
}
