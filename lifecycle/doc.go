/*
Copyright 2026 Northstar Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package lifecycle defines the Proposal, Experiment, and Repository records
// and the status machines that govern them. Proposals move pending →
// approved|rejected and approved → executing → completed|failed; Experiments
// move running → completed|failed. Transitions are monotonic: there is no
// path back to an earlier status.
//
// Persistence is consumed through the narrow Store interface; package
// postgres provides the production implementation.
package lifecycle
