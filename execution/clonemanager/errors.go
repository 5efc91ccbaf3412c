/*
Copyright 2026 Northstar Authors
SPDX-License-Identifier: Apache-2.0
*/

package clonemanager

import (
	"errors"
	"fmt"
)

// ErrNoChanges indicates the working tree was clean at commit time: the
// proposed edit produced content identical to what is already committed.
var ErrNoChanges = errors.New("working tree has no changes to commit")

// ErrAllocationExhausted indicates no free branch name was found within the
// probe limit.
var ErrAllocationExhausted = errors.New("branch name allocation exhausted")

// BaseBranchMissingError indicates the configured base branch does not exist
// in the remote repository. This is a configuration problem, not a transient
// failure.
type BaseBranchMissingError struct {
	Repo   string
	Branch string
}

func (e *BaseBranchMissingError) Error() string {
	return fmt.Sprintf("base branch %q does not exist in %s", e.Branch, e.Repo)
}
