/*
Copyright 2026 Northstar Authors
SPDX-License-Identifier: Apache-2.0
*/

package postgres

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"northstar.dev/northstar/lifecycle"
)

//go:embed schema.sql
var schema string

// Store implements lifecycle.Store on a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

var _ lifecycle.Store = (*Store)(nil)

// Open connects to databaseURL and verifies the connection.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &Store{pool: pool}, nil
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Migrate applies the schema. It is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}
