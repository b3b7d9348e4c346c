// Package perm implements permission tag parsing and evaluation. Tags are
// persisted as a JSON array of strings; evaluation grants access when the
// user holds every required tag, with "admin" acting as a wildcard.
package perm

import "encoding/json"

// Admin is the wildcard tag. Holders pass every permission check.
const Admin = "admin"

// Editor grants project management access.
const Editor = "editor"

// Parse decodes a stored permission column into a tag set. Legacy rows may
// hold NULL, an empty string, or malformed JSON; all of those decode to an
// empty set rather than an error so that a bad row can never lock a user
// out of public resources.
func Parse(raw string) []string {
	if raw == "" {
		return []string{}
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return []string{}
	}
	if tags == nil {
		return []string{}
	}
	out := tags[:0]
	for _, t := range tags {
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Encode serializes a tag set for storage. A nil set encodes as "[]".
func Encode(tags []string) string {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// Allowed reports whether a user holding userTags may access a resource
// requiring all of requiredTags. An empty requirement means the resource is
// public. The admin tag satisfies any requirement.
func Allowed(userTags, requiredTags []string) bool {
	if len(requiredTags) == 0 {
		return true
	}
	held := make(map[string]bool, len(userTags))
	for _, t := range userTags {
		held[t] = true
	}
	if held[Admin] {
		return true
	}
	for _, t := range requiredTags {
		if !held[t] {
			return false
		}
	}
	return true
}

// IsAdmin reports whether the tag set includes the admin wildcard.
func IsAdmin(tags []string) bool {
	for _, t := range tags {
		if t == Admin {
			return true
		}
	}
	return false
}

// CanEdit reports whether the tag set grants project management access.
func CanEdit(tags []string) bool {
	for _, t := range tags {
		if t == Editor || t == Admin {
			return true
		}
	}
	return false
}
