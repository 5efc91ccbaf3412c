/*
Copyright 2026 Northstar Authors
SPDX-License-Identifier: Apache-2.0
*/

package proposer

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are Northstar, an engineering assistant that proposes small, concrete
code improvements. Respond with a single JSON object and nothing else, using
this shape:

{
  "idea_summary": "one sentence naming the change",
  "rationale": "why the change is worth making",
  "category": "one of: performance, accessibility, reliability, style, security",
  "expected_impact": {"metric": "what improves", "delta_pct": 0.0},
  "technical_plan": [{"file": "path/to/file", "action": "what to do there"}],
  "update_block": "the change in Fast-Apply format: changed lines prefixed with + or -, unchanged context lines kept verbatim",
  "confidence": 0.0
}

The first technical_plan entry names the file the change is applied to.
Keep the update_block minimal: only the lines that change plus enough
context to locate them.`

func userPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Repository: %s\n\nObjective: %s\n", req.RepoFullName, req.Objective)
	if req.CodeContext != "" {
		fmt.Fprintf(&b, "\nRelevant code:\n\n%s\n", req.CodeContext)
	}
	return b.String()
}
