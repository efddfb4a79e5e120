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
	"errors"
	"fmt"

	"github.com/AleutianAI/nextstep/graph"
)

// Sentinel errors for the weights package.
var (
	// ErrInvalidTransition is returned when an update references an edge
	// absent from the rule graph for the given actor. This is the
	// mechanism that guarantees predictions cannot violate rules: the
	// overlay never holds an entry for an undeclared triple.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrInvalidConfig is returned when overlay configuration is invalid.
	ErrInvalidConfig = errors.New("invalid overlay configuration")

	// ErrDestroyed is returned when an overlay is used after Destroy().
	ErrDestroyed = errors.New("overlay has been destroyed")

	// ErrSnapshotVersion is returned when importing a snapshot with an
	// unsupported version.
	ErrSnapshotVersion = errors.New("unsupported snapshot version")

	// ErrSnapshotMismatch is returned when a snapshot entry references an
	// edge absent from the rule graph.
	ErrSnapshotMismatch = errors.New("snapshot entry not in rule graph")
)

// TransitionError wraps ErrInvalidTransition with the offending edge key.
type TransitionError struct {
	Key graph.EdgeKey
}

// Error returns the error message.
func (e *TransitionError) Error() string {
	return fmt.Sprintf("%v: %s", ErrInvalidTransition, e.Key)
}

// Unwrap lets errors.Is match ErrInvalidTransition.
func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// NewTransitionError creates a TransitionError for an edge key.
func NewTransitionError(key graph.EdgeKey) *TransitionError {
	return &TransitionError{Key: key}
}
