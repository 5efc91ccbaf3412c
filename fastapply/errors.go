/*
Copyright 2026 Northstar Authors
SPDX-License-Identifier: Apache-2.0
*/

package fastapply

import (
	"errors"
	"fmt"
)

// ErrEmptyResult indicates the merge service answered 2xx but returned no
// merged text. An empty merge is never accepted as "no change"; callers that
// want no-op detection compare the merged text against the original.
var ErrEmptyResult = errors.New("merge service returned an empty result")

// ServiceError carries the upstream status and body of a failed merge call.
type ServiceError struct {
	StatusCode int
	Body       string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("merge service returned status %d: %s", e.StatusCode, e.Body)
}
