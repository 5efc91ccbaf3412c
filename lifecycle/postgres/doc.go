/*
Copyright 2026 Northstar Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package postgres implements lifecycle.Store on PostgreSQL via pgx. Status
// transitions are validated inside row-locking transactions, and repository
// activation flips the exclusive-active flag atomically per user.
package postgres
