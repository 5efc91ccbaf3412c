/*
Copyright 2026 Northstar Authors
SPDX-License-Identifier: Apache-2.0
*/

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"northstar.dev/northstar/lifecycle"
)

// CreateExperiment inserts an experiment row.
func (s *Store) CreateExperiment(ctx context.Context, e *lifecycle.Experiment) error {
	if e.ID == "" {
		return errors.New("experiment ID cannot be empty")
	}
	if !e.Status.Valid() {
		return fmt.Errorf("invalid experiment status %q", e.Status)
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO experiments (
			id, proposal_id, instruction, update_block, pr_url, branch,
			failure_reason, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.ID, e.ProposalID, e.Instruction, e.UpdateBlock, e.PRURL, e.Branch,
		e.FailureReason, e.Status, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting experiment %s: %w", e.ID, err)
	}
	return nil
}

// GetExperiment fetches one experiment by ID.
func (s *Store) GetExperiment(ctx context.Context, id string) (*lifecycle.Experiment, error) {
	var e lifecycle.Experiment
	err := s.pool.QueryRow(ctx, `
		SELECT id, proposal_id, instruction, update_block, pr_url, branch,
		       failure_reason, status, created_at, updated_at
		FROM experiments WHERE id = $1`, id).Scan(
		&e.ID, &e.ProposalID, &e.Instruction, &e.UpdateBlock, &e.PRURL, &e.Branch,
		&e.FailureReason, &e.Status, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("experiment %s: %w", id, lifecycle.ErrNotFound)
		}
		return nil, fmt.Errorf("fetching experiment %s: %w", id, err)
	}
	return &e, nil
}

// UpdateExperiment writes back the mutable fields, validating any status
// change against the state machine under a row lock.
func (s *Store) UpdateExperiment(ctx context.Context, e *lifecycle.Experiment) error {
	if !e.Status.Valid() {
		return fmt.Errorf("invalid experiment status %q", e.Status)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var current lifecycle.ExperimentStatus
	err = tx.QueryRow(ctx,
		`SELECT status FROM experiments WHERE id = $1 FOR UPDATE`, e.ID).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("experiment %s: %w", e.ID, lifecycle.ErrNotFound)
		}
		return fmt.Errorf("locking experiment %s: %w", e.ID, err)
	}

	if current != e.Status && !current.CanTransition(e.Status) {
		return &lifecycle.InvalidTransitionError{
			Kind: "experiment", From: string(current), To: string(e.Status),
		}
	}

	if _, err := tx.Exec(ctx, `
		UPDATE experiments
		SET pr_url = $2, branch = $3, failure_reason = $4, status = $5, updated_at = $6
		WHERE id = $1`,
		e.ID, e.PRURL, e.Branch, e.FailureReason, e.Status, e.UpdatedAt,
	); err != nil {
		return fmt.Errorf("updating experiment %s: %w", e.ID, err)
	}
	return tx.Commit(ctx)
}
