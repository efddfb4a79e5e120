// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"errors"
	"fmt"
)

// Sentinel errors for the graph package.
var (
	// ErrNodeNotFound is returned when a referenced node doesn't exist.
	ErrNodeNotFound = errors.New("node not found")

	// ErrEdgeNotFound is returned when no edge matches a lookup.
	ErrEdgeNotFound = errors.New("edge not found")

	// ErrProcedureNotFound is returned when a referenced procedure doesn't exist.
	ErrProcedureNotFound = errors.New("procedure not found")

	// ErrDuplicateEdge is returned when a Definition declares the same
	// (from, to, actor) triple twice. Duplicates are rejected rather than
	// overwritten so construction stays deterministic.
	ErrDuplicateEdge = errors.New("duplicate edge definition")

	// ErrValidationFailed is returned when construction-time validation
	// finds a structural problem.
	ErrValidationFailed = errors.New("graph validation failed")

	// ErrUnknownActor is returned when an edge names an actor outside the
	// configured valid set.
	ErrUnknownActor = errors.New("unknown actor")
)

// ValidationError aggregates the structural problems found while
// constructing a RuleGraph with validation enabled.
type ValidationError struct {
	Problems []string
}

// Error returns a one-line summary followed by each problem.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %d problem(s): %v", ErrValidationFailed, len(e.Problems), e.Problems)
}

// Unwrap lets errors.Is match ErrValidationFailed.
func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// EdgeError wraps an error with the edge key that caused it.
type EdgeError struct {
	Key EdgeKey
	Err error
}

// Error returns the error message.
func (e *EdgeError) Error() string {
	return fmt.Sprintf("edge %s: %v", e.Key, e.Err)
}

// Unwrap returns the underlying error.
func (e *EdgeError) Unwrap() error {
	return e.Err
}

// NewEdgeError creates an EdgeError.
func NewEdgeError(key EdgeKey, err error) *EdgeError {
	return &EdgeError{Key: key, Err: err}
}
