// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation for identifiers that cross
// the construction boundary.
//
// Node, procedure, and session identifiers end up in log lines, snapshot
// files, and composite map keys. Validating their shape up front turns
// scattered is-this-a-valid-id predicate checks into one explicit schema
// step with a tagged failure.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// identifierPattern matches workflow identifiers.
// Allows: letters, digits, underscore, hyphen, dot; must start with a
// letter or digit. Max length: 128 characters.
var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._\-]{0,127}$`)

// ValidateIdentifier validates a node, procedure, or session identifier.
//
// Valid identifiers:
//   - 1-128 characters
//   - Letters, digits, underscore, hyphen, dot
//   - First character is a letter or digit
//
// Returns an error if the identifier is invalid.
//
// Example:
//
//	if err := validation.ValidateIdentifier(nodeID); err != nil {
//	    return fmt.Errorf("invalid node id: %w", err)
//	}
func ValidateIdentifier(id string) error {
	if id == "" {
		return fmt.Errorf("identifier cannot be empty")
	}

	if !identifierPattern.MatchString(id) {
		return fmt.Errorf("invalid identifier format: %q (must be 1-128 chars of letters, digits, '.', '_', '-', starting with a letter or digit)", id)
	}

	return nil
}

// ValidateIdentifiers validates multiple identifiers.
// Returns an error listing all invalid identifiers if any fail validation.
func ValidateIdentifiers(ids []string) error {
	var invalid []string
	for _, id := range ids {
		if err := ValidateIdentifier(id); err != nil {
			invalid = append(invalid, id)
		}
	}

	if len(invalid) > 0 {
		return fmt.Errorf("invalid identifiers: %s", strings.Join(invalid, ", "))
	}

	return nil
}
