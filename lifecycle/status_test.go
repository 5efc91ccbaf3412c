/*
Copyright 2026 Northstar Authors
SPDX-License-Identifier: Apache-2.0
*/

package lifecycle

import (
	"testing"

	"northstar.dev/northstar/extractor"
)

func TestProposalStatusCanTransition(t *testing.T) {
	tests := []struct {
		from ProposalStatus
		to   ProposalStatus
		want bool
	}{
		{ProposalPending, ProposalApproved, true},
		{ProposalPending, ProposalRejected, true},
		{ProposalApproved, ProposalExecuting, true},
		{ProposalExecuting, ProposalCompleted, true},
		{ProposalExecuting, ProposalFailed, true},

		// No skipping ahead.
		{ProposalPending, ProposalExecuting, false},
		{ProposalPending, ProposalCompleted, false},
		{ProposalApproved, ProposalCompleted, false},

		// Monotonic: no path back.
		{ProposalApproved, ProposalPending, false},
		{ProposalRejected, ProposalPending, false},
		{ProposalCompleted, ProposalExecuting, false},
		{ProposalFailed, ProposalPending, false},

		// Self transitions are not transitions.
		{ProposalPending, ProposalPending, false},
		{ProposalExecuting, ProposalExecuting, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.want {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestProposalStatusTerminal(t *testing.T) {
	for status, terminal := range map[ProposalStatus]bool{
		ProposalPending:   false,
		ProposalApproved:  false,
		ProposalExecuting: false,
		ProposalRejected:  true,
		ProposalCompleted: true,
		ProposalFailed:    true,
	} {
		if got := status.Terminal(); got != terminal {
			t.Errorf("%s.Terminal() = %v, want %v", status, got, terminal)
		}
	}
	if ProposalStatus("bogus").Terminal() {
		t.Error("unknown status reported as terminal")
	}
}

func TestExperimentStatusCanTransition(t *testing.T) {
	tests := []struct {
		from ExperimentStatus
		to   ExperimentStatus
		want bool
	}{
		{ExperimentRunning, ExperimentCompleted, true},
		{ExperimentRunning, ExperimentFailed, true},
		{ExperimentCompleted, ExperimentFailed, false},
		{ExperimentFailed, ExperimentRunning, false},
		{ExperimentCompleted, ExperimentRunning, false},
		{ExperimentRunning, ExperimentRunning, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.want {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestNewProposalID(t *testing.T) {
	a := NewProposalID("octo/widgets")
	b := NewProposalID("octo/widgets")
	if a == b {
		t.Errorf("two IDs for the same repo collided: %q", a)
	}
	// 14-digit timestamp, dash, 8 hex chars.
	if len(a) != 14+1+8 {
		t.Errorf("NewProposalID() = %q, want 23 characters", a)
	}
}

func TestProposalTargetFile(t *testing.T) {
	p := &Proposal{}
	if got := p.TargetFile(); got != "" {
		t.Errorf("TargetFile() on empty plan = %q, want empty", got)
	}

	p.TechnicalPlan = []extractor.PlanStep{
		{File: "web/app.css", Action: "darken button"},
		{File: "web/other.css", Action: "ignore"},
	}
	if got := p.TargetFile(); got != "web/app.css" {
		t.Errorf("TargetFile() = %q, want %q", got, "web/app.css")
	}
}
