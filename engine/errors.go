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
	"errors"
	"fmt"
)

// Sentinel errors for the engine package.
var (
	// ErrSessionNotFound is returned when a referenced session does not
	// exist or is not active.
	ErrSessionNotFound = errors.New("session not found or not active")

	// ErrSessionExpired is returned when resuming a session outside the
	// configured resume window.
	ErrSessionExpired = errors.New("session expired")

	// ErrDuplicateActiveSession is returned when starting a session with
	// an ID that already exists, active or ended. Ended sessions keep
	// their IDs so their chains stay queryable; use ResumeSession to
	// bring one back.
	ErrDuplicateActiveSession = errors.New("duplicate active session")

	// ErrDestroyed is returned by any operation after Destroy().
	ErrDestroyed = errors.New("engine has been destroyed")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)

// SessionError wraps an error with the session that caused it.
type SessionError struct {
	SessionID string
	Err       error
}

// Error returns the error message.
func (e *SessionError) Error() string {
	return fmt.Sprintf("session %q: %v", e.SessionID, e.Err)
}

// Unwrap returns the underlying error.
func (e *SessionError) Unwrap() error {
	return e.Err
}

// NewSessionError creates a SessionError.
func NewSessionError(sessionID string, err error) *SessionError {
	return &SessionError{SessionID: sessionID, Err: err}
}

// NodeError wraps an error with the node that caused it.
type NodeError struct {
	NodeID string
	Err    error
}

// Error returns the error message.
func (e *NodeError) Error() string {
	return fmt.Sprintf("node %q: %v", e.NodeID, e.Err)
}

// Unwrap returns the underlying error.
func (e *NodeError) Unwrap() error {
	return e.Err
}

// NewNodeError creates a NodeError.
func NewNodeError(nodeID string, err error) *NodeError {
	return &NodeError{NodeID: nodeID, Err: err}
}
