/*
Copyright 2026 Northstar Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package fastapply calls the Morph Fast-Apply service to merge a proposed
// update block into a file's current contents. The service speaks the
// OpenAI chat-completions protocol; the merged file comes back as the
// assistant message. Requests are single-shot with a 30 second default
// timeout and no SDK-level retries, so the caller owns the retry policy.
package fastapply
