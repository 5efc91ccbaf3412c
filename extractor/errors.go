/*
Copyright 2026 Northstar Authors
SPDX-License-Identifier: Apache-2.0
*/

package extractor

import (
	"errors"
	"fmt"
)

// ErrNoJSON indicates the response contained no JSON object at all, even
// after fence stripping and regex fallback.
var ErrNoJSON = errors.New("no JSON object found in response")

// RefusalError indicates the model declined to produce a proposal instead of
// answering. It takes precedence over all parse errors: refusal text is never
// reported as malformed JSON.
type RefusalError struct {
	// Phrase is the refusal phrase that triggered detection, empty when the
	// response was rejected for being too short.
	Phrase string
	// Snippet is a truncated prefix of the offending response.
	Snippet string
}

func (e *RefusalError) Error() string {
	if e.Phrase != "" {
		return fmt.Sprintf("model refused to answer (matched %q): %q", e.Phrase, e.Snippet)
	}
	return fmt.Sprintf("response too short to be a proposal: %q", e.Snippet)
}

// RepairError indicates a JSON candidate was located but could not be parsed
// even after every repair pass. Err is the final parse failure.
type RepairError struct {
	Snippet string
	Err     error
}

func (e *RepairError) Error() string {
	return fmt.Sprintf("unrepairable JSON in response: %v (candidate: %q)", e.Err, e.Snippet)
}

func (e *RepairError) Unwrap() error { return e.Err }

const snippetLen = 120

// snippet truncates s for inclusion in error messages.
func snippet(s string) string {
	if len(s) <= snippetLen {
		return s
	}
	return s[:snippetLen] + "..."
}
