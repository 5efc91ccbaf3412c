/*
Copyright 2026 Northstar Authors
SPDX-License-Identifier: Apache-2.0
*/

package extractor

import (
	"regexp"
	"strings"
)

// scanState tracks where the scanner is relative to JSON string literals, so
// braces inside string values do not affect depth counting.
type scanState int

const (
	stateOutside scanState = iota
	stateInString
	stateEscaped
)

// scanObject locates the first balanced JSON object in s. It walks forward
// from the first "{" tracking brace depth, honoring string literals and
// backslash escapes, and returns the substring whose depth returns to zero.
func scanObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	state := stateOutside
	for i := start; i < len(s); i++ {
		c := s[i]
		switch state {
		case stateEscaped:
			state = stateInString
		case stateInString:
			switch c {
			case '\\':
				state = stateEscaped
			case '"':
				state = stateOutside
			}
		default:
			switch c {
			case '"':
				state = stateInString
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
	}
	return "", false
}

var (
	lazyObjectRE   = regexp.MustCompile(`(?s)\{.*?\}`)
	greedyObjectRE = regexp.MustCompile(`(?s)\{.*\}`)
)

// recognizableKeys gate the regex fallback: an arbitrary braced substring is
// only accepted as a candidate if it mentions a proposal field.
var recognizableKeys = []string{
	`"proposal_id"`,
	`"idea_summary"`,
	`"update_block"`,
	`"technical_plan"`,
}

// fallbackObject is used when brace matching fails, typically on truncated
// output. It tries a non-greedy match first, then a greedy one, accepting a
// candidate only if it contains a recognizable key.
func fallbackObject(s string) (string, bool) {
	for _, re := range []*regexp.Regexp{lazyObjectRE, greedyObjectRE} {
		if m := re.FindString(s); m != "" && hasRecognizableKey(m) {
			return m, true
		}
	}
	return "", false
}

func hasRecognizableKey(candidate string) bool {
	for _, key := range recognizableKeys {
		if strings.Contains(candidate, key) {
			return true
		}
	}
	return false
}
