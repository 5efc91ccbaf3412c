/*
Copyright 2026 Northstar Authors
SPDX-License-Identifier: Apache-2.0
*/

package prmanager

import (
	"errors"
	"fmt"
)

// ErrUnauthorized indicates the token was rejected (401) or lacks permission
// (403).
var ErrUnauthorized = errors.New("github rejected the credentials")

// RepoNotFoundError indicates the repository does not exist or the token
// cannot see it.
type RepoNotFoundError struct {
	Owner string
	Repo  string
}

func (e *RepoNotFoundError) Error() string {
	return fmt.Sprintf("repository %s/%s not found", e.Owner, e.Repo)
}

// InvalidRefsError indicates the head/base pair cannot form a pull request:
// identical refs, a missing branch, or a PR that already exists in a state
// the provider refuses to duplicate.
type InvalidRefsError struct {
	Head   string
	Base   string
	Reason string
}

func (e *InvalidRefsError) Error() string {
	return fmt.Sprintf("invalid refs head=%q base=%q: %s", e.Head, e.Base, e.Reason)
}

// UpstreamError wraps any other provider failure.
type UpstreamError struct {
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("github returned status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("github request failed: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
