/*
Copyright 2026 Northstar Authors
SPDX-License-Identifier: Apache-2.0
*/

package lifecycle

import "fmt"

// ProposalStatus tracks a proposal from creation through execution.
type ProposalStatus string

const (
	ProposalPending   ProposalStatus = "pending"
	ProposalApproved  ProposalStatus = "approved"
	ProposalRejected  ProposalStatus = "rejected"
	ProposalExecuting ProposalStatus = "executing"
	ProposalCompleted ProposalStatus = "completed"
	ProposalFailed    ProposalStatus = "failed"
)

// proposalTransitions is the full transition relation. Absent statuses
// (rejected, completed, failed) are terminal.
var proposalTransitions = map[ProposalStatus][]ProposalStatus{
	ProposalPending:   {ProposalApproved, ProposalRejected},
	ProposalApproved:  {ProposalExecuting},
	ProposalExecuting: {ProposalCompleted, ProposalFailed},
}

// Valid reports whether s is a known proposal status.
func (s ProposalStatus) Valid() bool {
	switch s {
	case ProposalPending, ProposalApproved, ProposalRejected,
		ProposalExecuting, ProposalCompleted, ProposalFailed:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible from s.
func (s ProposalStatus) Terminal() bool {
	return s.Valid() && len(proposalTransitions[s]) == 0
}

// CanTransition reports whether moving from s to next is legal.
func (s ProposalStatus) CanTransition(next ProposalStatus) bool {
	for _, allowed := range proposalTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ExperimentStatus tracks one execution attempt.
type ExperimentStatus string

const (
	ExperimentRunning   ExperimentStatus = "running"
	ExperimentCompleted ExperimentStatus = "completed"
	ExperimentFailed    ExperimentStatus = "failed"
)

// Valid reports whether s is a known experiment status.
func (s ExperimentStatus) Valid() bool {
	switch s {
	case ExperimentRunning, ExperimentCompleted, ExperimentFailed:
		return true
	}
	return false
}

// CanTransition reports whether moving from s to next is legal. Running is
// the only non-terminal experiment status.
func (s ExperimentStatus) CanTransition(next ExperimentStatus) bool {
	return s == ExperimentRunning &&
		(next == ExperimentCompleted || next == ExperimentFailed)
}

// InvalidTransitionError reports an illegal status transition.
type InvalidTransitionError struct {
	Kind string // "proposal" or "experiment"
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("illegal %s status transition %s -> %s", e.Kind, e.From, e.To)
}
