/*
Copyright 2026 Northstar Authors
SPDX-License-Identifier: Apache-2.0
*/

package execution

import "strings"

// maxSlugLen keeps branch names readable; the allocator's -vN suffix comes
// on top of this.
const maxSlugLen = 48

// slugify turns an instruction into a branch-name fragment: lowercase,
// alphanumeric runs joined by single dashes.
func slugify(instruction string) string {
	var b strings.Builder
	dash := true // suppress a leading dash
	for _, r := range strings.ToLower(instruction) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimRight(b.String(), "-")
	if len(slug) > maxSlugLen {
		slug = strings.TrimRight(slug[:maxSlugLen], "-")
	}
	if slug == "" {
		slug = "change"
	}
	return slug
}
