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

// GetRepository fetches a repository by owner/name.
func (s *Store) GetRepository(ctx context.Context, fullName string) (*lifecycle.Repository, error) {
	var r lifecycle.Repository
	err := s.pool.QueryRow(ctx, `
		SELECT repo_fullname, default_branch, base_branch, is_active, user_id
		FROM repositories WHERE repo_fullname = $1`, fullName).Scan(
		&r.FullName, &r.DefaultBranch, &r.BaseBranch, &r.IsActive, &r.UserID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("repository %s: %w", fullName, lifecycle.ErrNotFound)
		}
		return nil, fmt.Errorf("fetching repository %s: %w", fullName, err)
	}
	return &r, nil
}

// UpsertRepository inserts or updates a repository record.
func (s *Store) UpsertRepository(ctx context.Context, r *lifecycle.Repository) error {
	if r.FullName == "" {
		return errors.New("repository name cannot be empty")
	}
	if r.UserID == "" {
		return errors.New("repository user cannot be empty")
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO repositories (repo_fullname, default_branch, base_branch, is_active, user_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (repo_fullname) DO UPDATE SET
			default_branch = EXCLUDED.default_branch,
			base_branch    = EXCLUDED.base_branch,
			is_active      = EXCLUDED.is_active,
			user_id        = EXCLUDED.user_id`,
		r.FullName, r.DefaultBranch, r.BaseBranch, r.IsActive, r.UserID,
	)
	if err != nil {
		return fmt.Errorf("upserting repository %s: %w", r.FullName, err)
	}
	return nil
}

// ActivateRepository marks one repository active and deactivates every other
// repository owned by the same user in a single transaction.
func (s *Store) ActivateRepository(ctx context.Context, userID, fullName string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `
		UPDATE repositories SET is_active = FALSE
		WHERE user_id = $1 AND repo_fullname <> $2`, userID, fullName); err != nil {
		return fmt.Errorf("deactivating repositories for %s: %w", userID, err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE repositories SET is_active = TRUE
		WHERE user_id = $1 AND repo_fullname = $2`, userID, fullName)
	if err != nil {
		return fmt.Errorf("activating repository %s: %w", fullName, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repository %s for user %s: %w", fullName, userID, lifecycle.ErrNotFound)
	}
	return tx.Commit(ctx)
}
