/*
Copyright 2026 Northstar Authors
SPDX-License-Identifier: Apache-2.0
*/

/*
Package execution runs an approved code change end to end: merge the update
block into the target file via the merge gateway, allocate a branch in an
isolated clone, commit and push, and open a pull request.

The Orchestrator creates the Experiment record with status running before
any side effect, so a crash mid-pipeline leaves an auditable failed record.
Every failure path writes the experiment back as failed with a reason;
success records the PR URL and branch. A merge result identical to the
original file short-circuits as ErrNoChangeDetected without touching git or
the PR provider. When PR creation fails after a successful push, the branch
is intentionally left in place so the pushed work remains inspectable.
*/
package execution
