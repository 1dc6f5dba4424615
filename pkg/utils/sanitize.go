package utils

import (
	"regexp"
	"strings"
)

var invalidNameChars = regexp.MustCompile(`[^\p{L}\p{N}._-]`) // Anything outside letters, digits, dot, underscore, dash
var consecutiveUnderscores = regexp.MustCompile(`_+`)
const maxNameLength = 64

// SanitizeName cleans a string so it can be used as a file or key-prefix component
// (badger collection directories, JSONL file stems).
func SanitizeName(name string) string {
	sanitized := invalidNameChars.ReplaceAllString(strings.TrimSpace(name), "_")
	sanitized = consecutiveUnderscores.ReplaceAllString(sanitized, "_")
	sanitized = strings.Trim(sanitized, "_.")

	if len(sanitized) > maxNameLength {
		sanitized = strings.Trim(sanitized[:maxNameLength], "_.")
	}

	if sanitized == "" {
		sanitized = "untitled"
	}
	return sanitized
}
