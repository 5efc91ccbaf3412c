/*
Copyright 2026 Northstar Authors
SPDX-License-Identifier: Apache-2.0
*/

/*
Package extractor recovers structured proposal fields from raw LLM text.

Model responses rarely arrive as clean JSON: they come wrapped in markdown
fences, preceded by prose, with code payloads whose newlines and quotes were
never escaped, or as outright refusals. This package turns that raw text into
a *Fields value or a typed error describing why it could not.

# Extraction pipeline

Extract applies the following stages in order:

 1. Refusal detection. Text that does not start with "{" and either contains
    a known refusal phrase or is shorter than a minimum length is rejected
    with *RefusalError before any parsing is attempted.
 2. Markdown fence stripping (```json ... ``` or bare ``` blocks).
 3. Brace-matched scanning: a small state machine walks the text tracking
    string and escape state, so braces inside string values never confuse
    the object boundary.
 4. Regex fallback (non-greedy, then greedy) when the scanner finds nothing,
    accepted only if the candidate mentions a recognizable field name.
 5. Repair: if the candidate fails to parse, the update_block value is
    re-escaped in place (raw newlines, tabs, quotes and backslashes), and as
    a last resort control characters are stripped from the whole candidate.

# Usage

	fields, err := extractor.Extract(resp)
	if err != nil {
		var refusal *extractor.RefusalError
		switch {
		case errors.As(err, &refusal):
			// the model declined; surface refusal.Phrase
		case errors.Is(err, extractor.ErrNoJSON):
			// free text with no object at all
		default:
			// *RepairError: JSON present but unrecoverable
		}
	}

Extract is idempotent on its own output: marshaling a *Fields and feeding the
bytes back yields an equal value. All functions are safe for concurrent use.
*/
package extractor
