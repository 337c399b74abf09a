package service

import (
	"strings"
	"unicode/utf8"
)

const (
	maxTitleLen   = 255
	maxCommentLen = 500
	maxTags       = 10
)

func validateTitle(title string) []FieldError {
	switch {
	case title == "":
		return []FieldError{{Field: "title", Message: "must not be empty"}}
	case utf8.RuneCountInString(title) > maxTitleLen:
		return []FieldError{{Field: "title", Message: "must be at most 255 characters"}}
	case strings.ContainsAny(title, "|#<>[]{}"):
		return []FieldError{{Field: "title", Message: "contains a forbidden character"}}
	}
	return nil
}

func isValidSHA1(s string) bool {
	if s == "" {
		return true
	}
	if len(s) > 40 {
		return false
	}
	for _, r := range s {
		if !('0' <= r && r <= '9' || 'a' <= r && r <= 'z') {
			return false
		}
	}
	return true
}

// normalizeTags trims, drops empties and removes duplicates, keeping order.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
