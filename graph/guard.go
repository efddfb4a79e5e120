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
	"strings"
	"unicode"
)

// ErrMalformedGuard is returned when guard text fails the syntax check.
var ErrMalformedGuard = errors.New("malformed guard expression")

// guardOperators are the comparison and boolean operators accepted in
// guard text, longest first so the scanner matches greedily.
var guardOperators = []string{"&&", "||", "==", "!=", ">=", "<=", ">", "<", "!"}

// CheckGuardSyntax verifies that guard text is a well-formed boolean
// expression over identifiers, literals, and comparison operators.
//
// # Description
//
// Guards gate nothing at runtime; they are carried as declarative metadata
// and only their syntax is enforced at construction. The accepted grammar
// is deliberately small: identifiers (dotted paths allowed), number and
// quoted string literals, comparison and boolean operators, and balanced
// parentheses. Two adjacent operands or two adjacent binary operators are
// rejected.
//
// # Inputs
//
//   - guard: The guard text. Must be non-empty.
//
// # Outputs
//
//   - error: Non-nil wrapping ErrMalformedGuard with the offending detail.
func CheckGuardSyntax(guard string) error {
	trimmed := strings.TrimSpace(guard)
	if trimmed == "" {
		return fmt.Errorf("%w: empty expression", ErrMalformedGuard)
	}

	tokens, err := tokenizeGuard(trimmed)
	if err != nil {
		return err
	}

	depth := 0
	// expectOperand flips between operand and operator positions.
	expectOperand := true
	for _, tok := range tokens {
		switch tok.kind {
		case guardTokenOpen:
			if !expectOperand {
				return fmt.Errorf("%w: unexpected %q", ErrMalformedGuard, tok.text)
			}
			depth++
		case guardTokenClose:
			if expectOperand {
				return fmt.Errorf("%w: unexpected %q", ErrMalformedGuard, tok.text)
			}
			depth--
			if depth < 0 {
				return fmt.Errorf("%w: unbalanced parentheses", ErrMalformedGuard)
			}
		case guardTokenOperand:
			if !expectOperand {
				return fmt.Errorf("%w: adjacent operands near %q", ErrMalformedGuard, tok.text)
			}
			expectOperand = false
		case guardTokenNot:
			if !expectOperand {
				return fmt.Errorf("%w: unexpected %q", ErrMalformedGuard, tok.text)
			}
		case guardTokenBinaryOp:
			if expectOperand {
				return fmt.Errorf("%w: unexpected operator %q", ErrMalformedGuard, tok.text)
			}
			expectOperand = true
		}
	}
	if depth != 0 {
		return fmt.Errorf("%w: unbalanced parentheses", ErrMalformedGuard)
	}
	if expectOperand {
		return fmt.Errorf("%w: trailing operator", ErrMalformedGuard)
	}
	return nil
}

type guardTokenKind int

const (
	guardTokenOperand guardTokenKind = iota
	guardTokenBinaryOp
	guardTokenNot
	guardTokenOpen
	guardTokenClose
)

type guardToken struct {
	kind guardTokenKind
	text string
}

// tokenizeGuard splits guard text into tokens or fails on an illegal rune.
func tokenizeGuard(s string) ([]guardToken, error) {
	var tokens []guardToken
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '(':
			tokens = append(tokens, guardToken{kind: guardTokenOpen, text: "("})
			i++
		case c == ')':
			tokens = append(tokens, guardToken{kind: guardTokenClose, text: ")"})
			i++
		case c == '\'' || c == '"':
			end := strings.IndexByte(s[i+1:], c)
			if end < 0 {
				return nil, fmt.Errorf("%w: unterminated string literal", ErrMalformedGuard)
			}
			tokens = append(tokens, guardToken{kind: guardTokenOperand, text: s[i : i+end+2]})
			i += end + 2
		default:
			if op, ok := matchOperator(s[i:]); ok {
				kind := guardTokenBinaryOp
				if op == "!" {
					kind = guardTokenNot
				}
				tokens = append(tokens, guardToken{kind: kind, text: op})
				i += len(op)
				continue
			}
			start := i
			for i < len(s) && isOperandRune(rune(s[i])) {
				i++
			}
			if i == start {
				return nil, fmt.Errorf("%w: illegal character %q", ErrMalformedGuard, string(s[i]))
			}
			tokens = append(tokens, guardToken{kind: guardTokenOperand, text: s[start:i]})
		}
	}
	return tokens, nil
}

// matchOperator matches the longest operator at the start of s.
func matchOperator(s string) (string, bool) {
	for _, op := range guardOperators {
		if strings.HasPrefix(s, op) {
			return op, true
		}
	}
	return "", false
}

// isOperandRune accepts identifier and literal runes: letters, digits,
// underscore, dot (dotted paths, decimals), and hyphen (negative numbers).
func isOperandRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.' || r == '-'
}
