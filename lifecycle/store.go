/*
Copyright 2026 Northstar Authors
SPDX-License-Identifier: Apache-2.0
*/

package lifecycle

import (
	"context"
	"errors"
)

// ErrNotFound indicates the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store persists lifecycle records. Implementations enforce the status
// machines: updates that would perform an illegal transition fail with
// *InvalidTransitionError.
type Store interface {
	// CreateProposal inserts a new proposal. The proposal ID must be set.
	CreateProposal(ctx context.Context, p *Proposal) error
	// GetProposal fetches a proposal by ID.
	GetProposal(ctx context.Context, id string) (*Proposal, error)
	// ListProposals returns proposals for a repository, newest first,
	// optionally filtered by status (empty status means all).
	ListProposals(ctx context.Context, repoID string, status ProposalStatus) ([]*Proposal, error)
	// UpdateProposalStatus transitions a proposal to the given status.
	UpdateProposalStatus(ctx context.Context, id string, status ProposalStatus) error

	// CreateExperiment inserts a new experiment record.
	CreateExperiment(ctx context.Context, e *Experiment) error
	// GetExperiment fetches an experiment by ID.
	GetExperiment(ctx context.Context, id string) (*Experiment, error)
	// UpdateExperiment writes back an experiment's mutable fields (status,
	// pr_url, branch, failure reason).
	UpdateExperiment(ctx context.Context, e *Experiment) error

	// GetRepository fetches a repository by owner/name.
	GetRepository(ctx context.Context, fullName string) (*Repository, error)
	// UpsertRepository inserts or updates a repository record.
	UpsertRepository(ctx context.Context, r *Repository) error
	// ActivateRepository marks the named repository active and, in the same
	// transaction, deactivates every other repository owned by the user.
	ActivateRepository(ctx context.Context, userID, fullName string) error
}
