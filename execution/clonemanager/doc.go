/*
Copyright 2026 Northstar Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package clonemanager provides isolated git workspaces for executing code
// changes. Each Workspace is a fresh clone in a private temp directory that
// lives for exactly one execution: allocate a collision-free branch, edit
// files, commit and push, Close. Branch probing is not distributed-lock
// protected; a concurrent execution racing the probe surfaces as a push
// rejection, which CommitAndPush absorbs by re-probing a new name once.
package clonemanager
