/*
Copyright 2026 Northstar Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package prmanager opens pull requests idempotently: an open PR for the
// same head and base is returned instead of creating a duplicate, so a
// repeated execution attempt converges on one PR. Provider failures are
// classified into the credential, missing-repo, bad-refs, and upstream
// buckets the orchestrator reports on.
package prmanager
