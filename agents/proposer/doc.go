/*
Copyright 2026 Northstar Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package proposer asks Claude for an improvement proposal against a
// repository and mints a pending lifecycle.Proposal from the response. The
// raw model text goes through the extractor, so refusals and malformed
// output surface as the extractor's typed errors rather than as broken
// proposals.
package proposer
