/*
Copyright 2026 Northstar Authors
SPDX-License-Identifier: Apache-2.0
*/

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"northstar.dev/northstar/extractor"
	"northstar.dev/northstar/lifecycle"
)

// CreateProposal inserts a proposal row. The proposal ID must be set.
func (s *Store) CreateProposal(ctx context.Context, p *lifecycle.Proposal) error {
	if p.ProposalID == "" {
		return errors.New("proposal ID cannot be set empty")
	}
	if !p.Status.Valid() {
		return fmt.Errorf("invalid proposal status %q", p.Status)
	}

	plan, err := json.Marshal(p.TechnicalPlan)
	if err != nil {
		return fmt.Errorf("encoding technical plan: %w", err)
	}

	var impactMetric *string
	var impactDelta *float64
	if p.ExpectedImpact != nil {
		impactMetric = &p.ExpectedImpact.Metric
		impactDelta = &p.ExpectedImpact.DeltaPct
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO proposals (
			proposal_id, repo_id, oauth_session_id, idea_summary, rationale,
			category, impact_metric, impact_delta_pct, technical_plan,
			update_block, confidence, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		p.ProposalID, p.RepoID, p.OAuthSessionID, p.IdeaSummary, p.Rationale,
		p.Category, impactMetric, impactDelta, plan,
		p.UpdateBlock, p.Confidence, p.Status, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting proposal %s: %w", p.ProposalID, err)
	}
	return nil
}

const proposalColumns = `
	proposal_id, repo_id, oauth_session_id, idea_summary, rationale,
	category, impact_metric, impact_delta_pct, technical_plan,
	update_block, confidence, status, created_at`

// GetProposal fetches one proposal by ID.
func (s *Store) GetProposal(ctx context.Context, id string) (*lifecycle.Proposal, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+proposalColumns+` FROM proposals WHERE proposal_id = $1`, id)

	p, err := scanProposal(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("proposal %s: %w", id, lifecycle.ErrNotFound)
		}
		return nil, fmt.Errorf("fetching proposal %s: %w", id, err)
	}
	return p, nil
}

// ListProposals returns a repository's proposals newest first, optionally
// filtered by status.
func (s *Store) ListProposals(ctx context.Context, repoID string, status lifecycle.ProposalStatus) ([]*lifecycle.Proposal, error) {
	query := `SELECT ` + proposalColumns + ` FROM proposals WHERE repo_id = $1`
	args := []any{repoID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing proposals for %s: %w", repoID, err)
	}
	defer rows.Close()

	var proposals []*lifecycle.Proposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning proposal: %w", err)
		}
		proposals = append(proposals, p)
	}
	return proposals, rows.Err()
}

// UpdateProposalStatus transitions a proposal, validating the move against
// the current status under a row lock.
func (s *Store) UpdateProposalStatus(ctx context.Context, id string, status lifecycle.ProposalStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid proposal status %q", status)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var current lifecycle.ProposalStatus
	err = tx.QueryRow(ctx,
		`SELECT status FROM proposals WHERE proposal_id = $1 FOR UPDATE`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("proposal %s: %w", id, lifecycle.ErrNotFound)
		}
		return fmt.Errorf("locking proposal %s: %w", id, err)
	}

	if !current.CanTransition(status) {
		return &lifecycle.InvalidTransitionError{
			Kind: "proposal", From: string(current), To: string(status),
		}
	}

	if _, err := tx.Exec(ctx,
		`UPDATE proposals SET status = $2 WHERE proposal_id = $1`, id, status); err != nil {
		return fmt.Errorf("updating proposal %s: %w", id, err)
	}
	return tx.Commit(ctx)
}

func scanProposal(row pgx.Row) (*lifecycle.Proposal, error) {
	var (
		p            lifecycle.Proposal
		impactMetric *string
		impactDelta  *float64
		plan         []byte
	)
	if err := row.Scan(
		&p.ProposalID, &p.RepoID, &p.OAuthSessionID, &p.IdeaSummary, &p.Rationale,
		&p.Category, &impactMetric, &impactDelta, &plan,
		&p.UpdateBlock, &p.Confidence, &p.Status, &p.CreatedAt,
	); err != nil {
		return nil, err
	}

	if impactMetric != nil {
		p.ExpectedImpact = &extractor.Impact{Metric: *impactMetric}
		if impactDelta != nil {
			p.ExpectedImpact.DeltaPct = *impactDelta
		}
	}
	if len(plan) > 0 {
		if err := json.Unmarshal(plan, &p.TechnicalPlan); err != nil {
			return nil, fmt.Errorf("decoding technical plan: %w", err)
		}
	}
	return &p, nil
}
