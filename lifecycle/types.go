/*
Copyright 2026 Northstar Authors
SPDX-License-Identifier: Apache-2.0
*/

package lifecycle

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/google/uuid"

	"northstar.dev/northstar/extractor"
)

// Proposal is a candidate code change minted from extracted model output.
// The embedded extractor fields carry the proposal content; ProposalID is
// the record's unique key.
type Proposal struct {
	extractor.Fields

	RepoID         string
	OAuthSessionID string
	Status         ProposalStatus
	CreatedAt      time.Time
}

// TargetFile returns the file the proposal executes against: the file of the
// first technical-plan step, or empty when the plan is empty.
func (p *Proposal) TargetFile() string {
	if len(p.TechnicalPlan) == 0 {
		return ""
	}
	return p.TechnicalPlan[0].File
}

// Experiment is one execution attempt of an approved Proposal. It is created
// with StatusRunning before any git or PR side effect, so a crash
// mid-pipeline leaves an auditable failed record rather than a silent gap.
type Experiment struct {
	ID          string
	ProposalID  string
	Instruction string
	// UpdateBlock is a copy of the proposal's block; it may be edited
	// between approval and execution.
	UpdateBlock string
	// PRURL is set exactly when the run reached a pull request.
	PRURL string
	// Branch is set once a branch was allocated, even on later failure.
	Branch string
	// FailureReason records why a failed run failed.
	FailureReason string
	Status        ExperimentStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Repository is a connected source repository. At most one repository per
// user is active at a time.
type Repository struct {
	FullName      string // owner/name
	DefaultBranch string
	BaseBranch    string
	IsActive      bool
	UserID        string
}

// NewProposalID mints a unique proposal ID from the current time and a short
// hash of the repository name plus a random nonce. The timestamp keeps IDs
// sortable; the hash keeps retries against the same repository from
// colliding.
func NewProposalID(repoFullName string) string {
	var nonce [8]byte
	rand.Read(nonce[:]) //nolint:errcheck // never fails per crypto/rand docs

	sum := sha256.Sum256(append([]byte(repoFullName), nonce[:]...))
	return fmt.Sprintf("%s-%x", time.Now().UTC().Format("20060102150405"), sum[:4])
}

// NewExperimentID mints a unique experiment ID.
func NewExperimentID() string {
	return uuid.NewString()
}
