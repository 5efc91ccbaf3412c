/*
Copyright 2026 Northstar Authors
SPDX-License-Identifier: Apache-2.0
*/

package execution

import "errors"

// ErrNoChangeDetected indicates the merge gateway returned text identical to
// the target file's current contents. The experiment fails without any
// commit, push, or PR call.
var ErrNoChangeDetected = errors.New("merge produced no change to the target file")

// ErrTargetFileMissing indicates the proposal's target file does not exist
// in the repository at the base branch.
var ErrTargetFileMissing = errors.New("target file does not exist at the base branch")
