package access

import (
	pstrings "ekyc/pkg/platform/strings"
)

// ParseFields splits a comma-separated field list, trimming each entry and
// dropping empty and repeated names.
func ParseFields(requested string) []string {
	return pstrings.SplitList(requested)
}

// Project returns the requested attributes that are present in attributes.
// Requested names that are absent are omitted, never null-filled. The result
// is a fresh map; attributes is not modified.
func Project(attributes map[string]any, requested string) map[string]any {
	out := make(map[string]any)
	for _, field := range ParseFields(requested) {
		if v, ok := attributes[field]; ok {
			out[field] = v
		}
	}
	return out
}
