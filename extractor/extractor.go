/*
Copyright 2026 Northstar Authors
SPDX-License-Identifier: Apache-2.0
*/

package extractor

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Impact estimates the effect of a proposal on a single metric.
type Impact struct {
	Metric   string  `json:"metric"`
	DeltaPct float64 `json:"delta_pct"`
}

// PlanStep is one entry of a proposal's ordered technical plan. The file of
// the first step determines the execution target.
type PlanStep struct {
	File   string `json:"file"`
	Action string `json:"action"`
}

// Fields holds the structured proposal content recovered from a model
// response. Marshaling a Fields value and extracting the result yields an
// equal value.
type Fields struct {
	ProposalID     string     `json:"proposal_id,omitempty"`
	IdeaSummary    string     `json:"idea_summary,omitempty"`
	Rationale      string     `json:"rationale,omitempty"`
	Category       string     `json:"category,omitempty"`
	ExpectedImpact *Impact    `json:"expected_impact,omitempty"`
	TechnicalPlan  []PlanStep `json:"technical_plan,omitempty"`
	UpdateBlock    string     `json:"update_block,omitempty"`
	Confidence     float64    `json:"confidence"`
}

const (
	// minResponseLength is the shortest non-JSON response that is still
	// considered worth parsing rather than classified as a refusal.
	minResponseLength = 20

	// defaultConfidence is assumed when the model omits the field.
	defaultConfidence = 0.5
)

// refusalPhrases are matched case-insensitively against responses that do not
// start with "{". Kept lowercase.
var refusalPhrases = []string{
	"i can't assist",
	"i cannot assist",
	"i can't help",
	"i cannot help",
	"i'm sorry",
	"i am sorry",
	"i apologize",
	"i won't be able",
	"unable to",
	"as an ai",
}

// Extract recovers proposal fields from raw model text. It returns
// *RefusalError when the model declined, ErrNoJSON when no object could be
// located, and *RepairError when an object was located but could not be
// parsed even after repair.
func Extract(raw string) (*Fields, error) {
	text := strings.TrimSpace(raw)

	// Refusal detection runs before any parsing: malformed refusal prose
	// must never be reported as broken JSON.
	if !strings.HasPrefix(text, "{") {
		if phrase, ok := matchRefusal(text); ok {
			return nil, &RefusalError{Phrase: phrase, Snippet: snippet(text)}
		}
		if len(text) < minResponseLength {
			return nil, &RefusalError{Snippet: snippet(text)}
		}
	}

	body := stripFence(text)

	candidate, ok := scanObject(body)
	if !ok {
		candidate, ok = fallbackObject(body)
		if !ok {
			return nil, ErrNoJSON
		}
	}

	fields, err := decode(candidate)
	if err == nil {
		return fields, nil
	}

	// Repair pass: the update_block value is the usual culprit, carrying
	// raw source code with unescaped quotes and newlines.
	variants := append([]string{candidate}, repairUpdateBlock(candidate)...)
	for _, v := range variants[1:] {
		if fields, rerr := decode(v); rerr == nil {
			return fields, nil
		}
	}
	for _, v := range variants {
		if stripped := stripControlChars(v); stripped != v {
			if fields, rerr := decode(stripped); rerr == nil {
				return fields, nil
			}
		}
	}

	return nil, &RepairError{Snippet: snippet(candidate), Err: err}
}

// matchRefusal reports the first refusal phrase found in text.
func matchRefusal(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lower, phrase) {
			return phrase, true
		}
	}
	return "", false
}

// stripFence removes a single leading/trailing markdown code fence if
// present, returning the trimmed inner text.
func stripFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		// The fence may follow introductory prose.
		if start := strings.Index(text, "```"); start >= 0 {
			inner := stripFence(strings.TrimSpace(text[start:]))
			if inner != "" {
				return inner
			}
		}
		return text
	}
	rest := text[3:]
	// Drop an optional language tag on the fence line.
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		tag := strings.TrimSpace(rest[:nl])
		if tag == "" || isFenceTag(tag) {
			rest = rest[nl+1:]
		}
	}
	if end := strings.Index(rest, "```"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

func isFenceTag(tag string) bool {
	for _, r := range tag {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			continue
		}
		return false
	}
	return true
}

// wireFields is the permissive decode target: update_block may be a string
// or an array of lines, confidence may be absent.
type wireFields struct {
	ProposalID     string          `json:"proposal_id"`
	IdeaSummary    string          `json:"idea_summary"`
	Rationale      string          `json:"rationale"`
	Category       string          `json:"category"`
	ExpectedImpact *Impact         `json:"expected_impact"`
	TechnicalPlan  []PlanStep      `json:"technical_plan"`
	UpdateBlock    json.RawMessage `json:"update_block"`
	Confidence     *float64        `json:"confidence"`
}

// decode parses a JSON candidate and normalizes it into Fields.
func decode(candidate string) (*Fields, error) {
	var wire wireFields
	if err := json.Unmarshal([]byte(candidate), &wire); err != nil {
		return nil, err
	}

	block, err := normalizeUpdateBlock(wire.UpdateBlock)
	if err != nil {
		return nil, err
	}

	fields := &Fields{
		ProposalID:     wire.ProposalID,
		IdeaSummary:    wire.IdeaSummary,
		Rationale:      wire.Rationale,
		Category:       wire.Category,
		ExpectedImpact: wire.ExpectedImpact,
		TechnicalPlan:  wire.TechnicalPlan,
		UpdateBlock:    stripDiffHeaders(block),
		Confidence:     defaultConfidence,
	}
	if wire.Confidence != nil {
		fields.Confidence = *wire.Confidence
	}

	if fields.ProposalID == "" && fields.IdeaSummary == "" {
		return nil, fmt.Errorf("object is missing both proposal_id and idea_summary")
	}
	return fields, nil
}

// normalizeUpdateBlock accepts a string, an array of line strings (joined
// with newlines), or an absent value.
func normalizeUpdateBlock(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var lines []string
	if err := json.Unmarshal(raw, &lines); err == nil {
		return strings.Join(lines, "\n"), nil
	}
	return "", fmt.Errorf("update_block is neither a string nor an array of strings")
}

// stripDiffHeaders drops unified-diff header lines from an update block. The
// merge service consumes a plain Fast-Apply block, not a patch.
func stripDiffHeaders(block string) string {
	if block == "" {
		return block
	}
	lines := strings.Split(block, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if isDiffHeader(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

func isDiffHeader(line string) bool {
	trimmed := strings.TrimRight(line, " \t")
	switch {
	case strings.HasPrefix(trimmed, "diff --git "):
		return true
	case strings.HasPrefix(trimmed, "index ") && strings.Contains(trimmed, ".."):
		return true
	case strings.HasPrefix(trimmed, "--- a/"),
		strings.HasPrefix(trimmed, "+++ b/"),
		trimmed == "--- /dev/null",
		trimmed == "+++ /dev/null":
		return true
	case strings.HasPrefix(trimmed, "@@ ") && strings.Contains(trimmed[3:], "@@"):
		return true
	}
	return false
}
