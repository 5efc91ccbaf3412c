/*
Copyright 2026 Northstar Authors
SPDX-License-Identifier: Apache-2.0
*/

package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"northstar.dev/northstar/extractor"
	"northstar.dev/northstar/lifecycle"
)

// testStore connects to the database named by NORTHSTAR_TEST_DATABASE_URL
// and skips the test when it is unset.
func testStore(t *testing.T) *Store {
	t.Helper()

	url := os.Getenv("NORTHSTAR_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("NORTHSTAR_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	store, err := Open(ctx, url)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(store.Close)

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return store
}

func testProposal(id string) *lifecycle.Proposal {
	return &lifecycle.Proposal{
		Fields: extractor.Fields{
			ProposalID:     id,
			IdeaSummary:    "increase button contrast",
			Rationale:      "fails WCAG AA",
			Category:       "accessibility",
			ExpectedImpact: &extractor.Impact{Metric: "contrast_ratio", DeltaPct: 55},
			TechnicalPlan:  []extractor.PlanStep{{File: "web/app.css", Action: "darken button"}},
			UpdateBlock:    "+ color: #111;\n  border: none;",
			Confidence:     0.85,
		},
		RepoID:    "octo/widgets",
		Status:    lifecycle.ProposalPending,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestProposalRoundTrip(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	want := testProposal(lifecycle.NewProposalID("octo/widgets"))
	if err := store.CreateProposal(ctx, want); err != nil {
		t.Fatalf("CreateProposal: %v", err)
	}

	got, err := store.GetProposal(ctx, want.ProposalID)
	if err != nil {
		t.Fatalf("GetProposal: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("proposal mismatch (-want +got):\n%s", diff)
	}

	if _, err := store.GetProposal(ctx, "missing"); !errors.Is(err, lifecycle.ErrNotFound) {
		t.Errorf("GetProposal(missing) error = %v, want ErrNotFound", err)
	}
}

func TestProposalStatusTransitions(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	p := testProposal(lifecycle.NewProposalID("octo/widgets"))
	if err := store.CreateProposal(ctx, p); err != nil {
		t.Fatalf("CreateProposal: %v", err)
	}

	// pending -> executing skips approval and must be rejected.
	err := store.UpdateProposalStatus(ctx, p.ProposalID, lifecycle.ProposalExecuting)
	var invalid *lifecycle.InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("illegal transition error = %v, want *InvalidTransitionError", err)
	}

	for _, status := range []lifecycle.ProposalStatus{
		lifecycle.ProposalApproved,
		lifecycle.ProposalExecuting,
		lifecycle.ProposalCompleted,
	} {
		if err := store.UpdateProposalStatus(ctx, p.ProposalID, status); err != nil {
			t.Fatalf("UpdateProposalStatus(%s): %v", status, err)
		}
	}

	got, err := store.GetProposal(ctx, p.ProposalID)
	if err != nil {
		t.Fatalf("GetProposal: %v", err)
	}
	if got.Status != lifecycle.ProposalCompleted {
		t.Errorf("status = %q, want completed", got.Status)
	}
}

func TestExperimentLifecycle(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	exp := &lifecycle.Experiment{
		ID:          lifecycle.NewExperimentID(),
		ProposalID:  lifecycle.NewProposalID("octo/widgets"),
		Instruction: "increase button contrast",
		UpdateBlock: "+ color: #111;",
		Status:      lifecycle.ExperimentRunning,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := store.CreateExperiment(ctx, exp); err != nil {
		t.Fatalf("CreateExperiment: %v", err)
	}

	exp.Status = lifecycle.ExperimentCompleted
	exp.PRURL = "https://github.com/octo/widgets/pull/7"
	exp.Branch = "northstar/increase-button-contrast"
	exp.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)
	if err := store.UpdateExperiment(ctx, exp); err != nil {
		t.Fatalf("UpdateExperiment: %v", err)
	}

	got, err := store.GetExperiment(ctx, exp.ID)
	if err != nil {
		t.Fatalf("GetExperiment: %v", err)
	}
	if diff := cmp.Diff(exp, got); diff != "" {
		t.Errorf("experiment mismatch (-want +got):\n%s", diff)
	}

	// Completed is terminal.
	exp.Status = lifecycle.ExperimentRunning
	err = store.UpdateExperiment(ctx, exp)
	var invalid *lifecycle.InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Errorf("reopening a completed experiment: error = %v, want *InvalidTransitionError", err)
	}
}

func TestActivateRepositoryIsExclusive(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	user := fmt.Sprintf("user-%d", time.Now().UnixNano())
	for _, name := range []string{user + "/alpha", user + "/beta"} {
		if err := store.UpsertRepository(ctx, &lifecycle.Repository{
			FullName:      name,
			DefaultBranch: "main",
			BaseBranch:    "main",
			UserID:        user,
		}); err != nil {
			t.Fatalf("UpsertRepository(%s): %v", name, err)
		}
	}

	if err := store.ActivateRepository(ctx, user, user+"/alpha"); err != nil {
		t.Fatalf("ActivateRepository: %v", err)
	}
	if err := store.ActivateRepository(ctx, user, user+"/beta"); err != nil {
		t.Fatalf("ActivateRepository: %v", err)
	}

	alpha, err := store.GetRepository(ctx, user+"/alpha")
	if err != nil {
		t.Fatalf("GetRepository: %v", err)
	}
	beta, err := store.GetRepository(ctx, user+"/beta")
	if err != nil {
		t.Fatalf("GetRepository: %v", err)
	}
	if alpha.IsActive {
		t.Error("alpha is still active after beta was activated")
	}
	if !beta.IsActive {
		t.Error("beta is not active")
	}

	if err := store.ActivateRepository(ctx, user, user+"/missing"); !errors.Is(err, lifecycle.ErrNotFound) {
		t.Errorf("ActivateRepository(missing) error = %v, want ErrNotFound", err)
	}
}
