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

import "testing"

func TestCheckGuardSyntax(t *testing.T) {
	tests := []struct {
		name    string
		guard   string
		wantErr bool
	}{
		{"simple comparison", "user_age >= 18", false},
		{"dotted path", "cart.total > 0", false},
		{"boolean combination", "a == 1 && (b != 2 || c < 3)", false},
		{"negation", "!expired", false},
		{"string literal", `role == "admin"`, false},
		{"single quoted literal", "role == 'admin'", false},
		{"negative number", "balance > -10", false},
		{"bare identifier", "enabled", false},
		{"empty", "", true},
		{"whitespace only", "   ", true},
		{"unbalanced open", "(a > 1", true},
		{"unbalanced close", "a > 1)", true},
		{"trailing operator", "a >", true},
		{"leading binary operator", "&& a", true},
		{"adjacent operands", "a b", true},
		{"adjacent operators", "a > > b", true},
		{"unterminated string", `x == "abc`, true},
		{"illegal character", "a > 1; drop", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckGuardSyntax(tt.guard)
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckGuardSyntax(%q) error = %v, wantErr %v", tt.guard, err, tt.wantErr)
			}
		})
	}
}
