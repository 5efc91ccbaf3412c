/*
Copyright 2026 Northstar Authors
SPDX-License-Identifier: Apache-2.0
*/

package extractor

import (
	"regexp"
	"strings"
)

// updateBlockOpenRE finds the opening quote of the update_block value.
var updateBlockOpenRE = regexp.MustCompile(`"update_block"\s*:\s*"`)

// maxRepairVariants caps how many closing-quote positions are tried.
const maxRepairVariants = 16

// repairUpdateBlock builds repaired variants of a candidate whose
// update_block value contains raw, unescaped source code. Every quote
// followed (modulo whitespace) by "," or "}" is a plausible end of the
// value; for each one, the text in between is re-escaped. The caller tries
// the variants in order and keeps the first that parses. Earliest positions
// come first: closing the string too early yields a syntax error and falls
// through to the next variant, while closing too late can swallow the
// fields that follow into the value and still parse.
func repairUpdateBlock(candidate string) []string {
	loc := updateBlockOpenRE.FindStringIndex(candidate)
	if loc == nil {
		return nil
	}
	valueStart := loc[1]

	var variants []string
	for _, end := range closingQuotes(candidate, valueStart) {
		rawValue := candidate[valueStart:end]
		escaped := escapeJSONString(rawValue)
		if escaped == rawValue {
			continue
		}
		variants = append(variants, candidate[:valueStart]+escaped+candidate[end:])
		if len(variants) == maxRepairVariants {
			break
		}
	}
	return variants
}

// closingQuotes returns, in ascending order, every index at or after start
// holding a quote whose next non-whitespace character is a comma or closing
// brace.
func closingQuotes(s string, start int) []int {
	var ends []int
	for i := start; i < len(s); i++ {
		if s[i] != '"' {
			continue
		}
		j := i + 1
		for j < len(s) && (s[j] == ' ' || s[j] == '\t' || s[j] == '\n' || s[j] == '\r') {
			j++
		}
		if j < len(s) && (s[j] == ',' || s[j] == '}') {
			ends = append(ends, i)
		}
	}
	return ends
}

var jsonStringEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

func escapeJSONString(s string) string {
	return jsonStringEscaper.Replace(s)
}

// stripControlChars removes control characters from the candidate as a last
// resort. Escape sequences introduced by the re-escape pass are ordinary
// printable characters and survive untouched.
func stripControlChars(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 {
			return -1
		}
		return r
	}, s)
}
