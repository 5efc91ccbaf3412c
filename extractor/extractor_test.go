/*
Copyright 2026 Northstar Authors
SPDX-License-Identifier: Apache-2.0
*/

package extractor

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  *Fields
	}{{
		name:  "plain JSON object",
		input: `{"proposal_id": "p-1", "idea_summary": "tighten cache TTL", "confidence": 0.9}`,
		want: &Fields{
			ProposalID:  "p-1",
			IdeaSummary: "tighten cache TTL",
			Confidence:  0.9,
		},
	}, {
		name: "json fence with language tag",
		input: "Here is the proposal:\n```json\n" +
			`{"idea_summary": "add retry budget", "category": "reliability"}` +
			"\n```\nLet me know if you need anything else.",
		want: &Fields{
			IdeaSummary: "add retry budget",
			Category:    "reliability",
			Confidence:  defaultConfidence,
		},
	}, {
		name: "bare fence",
		input: "```\n" +
			`{"idea_summary": "rename the flag"}` +
			"\n```",
		want: &Fields{
			IdeaSummary: "rename the flag",
			Confidence:  defaultConfidence,
		},
	}, {
		name: "object embedded in prose with trailing brace",
		input: `I analyzed the repo and here is my suggestion: ` +
			`{"idea_summary": "inline the hot path", "confidence": 0.7} ` +
			`(the struct {X int} stays untouched)`,
		want: &Fields{
			IdeaSummary: "inline the hot path",
			Confidence:  0.7,
		},
	}, {
		name: "braces inside string values",
		input: `{"idea_summary": "wrap main() in func() { defer f() }", "confidence": 1}`,
		want: &Fields{
			IdeaSummary: "wrap main() in func() { defer f() }",
			Confidence:  1,
		},
	}, {
		name: "update_block as array of lines",
		input: `{"idea_summary": "bump contrast", "update_block": ["+ color: #000;", "  border: none;"]}`,
		want: &Fields{
			IdeaSummary: "bump contrast",
			UpdateBlock: "+ color: #000;\n  border: none;",
			Confidence:  defaultConfidence,
		},
	}, {
		name: "diff headers stripped from update_block",
		input: `{"idea_summary": "bump contrast", "update_block": ` +
			`"diff --git a/app.css b/app.css\nindex 1a2b3c4..5d6e7f8 100644\n--- a/app.css\n+++ b/app.css\n@@ -1,2 +1,2 @@\n+ color: #000;\n  border: none;"}`,
		want: &Fields{
			IdeaSummary: "bump contrast",
			UpdateBlock: "+ color: #000;\n  border: none;",
			Confidence:  defaultConfidence,
		},
	}, {
		name: "expected impact and technical plan",
		input: `{
			"proposal_id": "p-2",
			"idea_summary": "debounce search input",
			"rationale": "cuts request volume",
			"expected_impact": {"metric": "requests_per_session", "delta_pct": -40},
			"technical_plan": [{"file": "web/search.js", "action": "add debounce wrapper"}],
			"confidence": 0.8
		}`,
		want: &Fields{
			ProposalID:     "p-2",
			IdeaSummary:    "debounce search input",
			Rationale:      "cuts request volume",
			ExpectedImpact: &Impact{Metric: "requests_per_session", DeltaPct: -40},
			TechnicalPlan:  []PlanStep{{File: "web/search.js", Action: "add debounce wrapper"}},
			Confidence:     0.8,
		},
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Extract(tt.input)
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExtractRefusal(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantPhrase string
	}{{
		name:       "direct refusal",
		input:      "I'm sorry, but I can't assist with modifying that repository.",
		wantPhrase: "i can't assist",
	}, {
		name:       "refusal containing braces",
		input:      "I apologize, but I am unable to produce the {json} you asked for {here}.",
		wantPhrase: "i apologize",
	}, {
		name:  "too short to be a proposal",
		input: "No.",
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Extract(tt.input)
			var refusal *RefusalError
			if !errors.As(err, &refusal) {
				t.Fatalf("Extract() error = %v, want *RefusalError", err)
			}
			if refusal.Phrase != tt.wantPhrase {
				t.Errorf("RefusalError.Phrase = %q, want %q", refusal.Phrase, tt.wantPhrase)
			}
		})
	}
}

func TestExtractRefusalPrecedence(t *testing.T) {
	// A refusal must never be classified as broken or missing JSON, even
	// when the prose happens to contain brace characters.
	input := "I'm sorry, I cannot help with that request. Config objects look like {key: value} but I will not produce one."
	_, err := Extract(input)
	var refusal *RefusalError
	if !errors.As(err, &refusal) {
		t.Fatalf("Extract() error = %v, want *RefusalError", err)
	}
	if errors.Is(err, ErrNoJSON) {
		t.Error("refusal was classified as ErrNoJSON")
	}
}

func TestExtractLeadingBraceSkipsRefusalCheck(t *testing.T) {
	// A response that opens with "{" is JSON regardless of what its string
	// values say.
	got, err := Extract(`{"idea_summary": "i'm sorry is a common prefix we should strip", "confidence": 0.6}`)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got.Confidence != 0.6 {
		t.Errorf("Confidence = %v, want 0.6", got.Confidence)
	}
}

func TestExtractNoJSON(t *testing.T) {
	_, err := Extract("Thanks for the context! This repository looks healthy overall and I have no further remarks.")
	if !errors.Is(err, ErrNoJSON) {
		t.Fatalf("Extract() error = %v, want ErrNoJSON", err)
	}
}

func TestExtractEscapeRepair(t *testing.T) {
	rawCode := "function focus() {\n  el.setAttribute(\"aria-live\", \"polite\");\n}"
	input := `{"idea_summary": "announce updates", "update_block": "` + rawCode + `"}`

	got, err := Extract(input)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got.UpdateBlock != rawCode {
		t.Errorf("UpdateBlock = %q, want %q", got.UpdateBlock, rawCode)
	}
}

func TestExtractEscapeRepairValueNotLast(t *testing.T) {
	rawCode := "+ margin: 0;\n  padding: \"4px\";"
	input := `{"idea_summary": "tidy spacing", "update_block": "` + rawCode + `", "category": "style"}`

	got, err := Extract(input)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got.UpdateBlock != rawCode {
		t.Errorf("UpdateBlock = %q, want %q", got.UpdateBlock, rawCode)
	}
	if got.Category != "style" {
		t.Errorf("Category = %q, want %q", got.Category, "style")
	}
}

func TestExtractUnrepairable(t *testing.T) {
	_, err := Extract(`{"idea_summary": "broken", "technical_plan": [{"file": }`)
	var repair *RepairError
	if !errors.As(err, &repair) {
		t.Fatalf("Extract() error = %v, want *RepairError", err)
	}
	if repair.Err == nil {
		t.Error("RepairError.Err is nil, want the final parse error")
	}
}

func TestExtractMissingRequiredKeys(t *testing.T) {
	// Parseable JSON that names neither proposal_id nor idea_summary is not
	// a proposal.
	if _, err := Extract(`{"status": "ok", "confidence": 0.4}`); err == nil {
		t.Fatal("Extract() succeeded on an object with no proposal fields")
	}
}

func TestExtractRoundTrip(t *testing.T) {
	orig := &Fields{
		ProposalID:     "20260115123000-abcd1234",
		IdeaSummary:    "increase button contrast",
		Rationale:      "fails WCAG AA",
		Category:       "accessibility",
		ExpectedImpact: &Impact{Metric: "contrast_ratio", DeltaPct: 55},
		TechnicalPlan:  []PlanStep{{File: "web/app.css", Action: "darken primary button"}},
		UpdateBlock:    "+ color: #111;\n  border: none;",
		Confidence:     0.85,
	}

	data, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	got, err := Extract(string(data))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if diff := cmp.Diff(orig, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
