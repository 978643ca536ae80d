package textutil

import (
	"crypto/sha256"
	"encoding/hex"
	"unicode/utf8"
)

// LeadingIndent returns the run of spaces and tabs at the start of line.
func LeadingIndent(line string) string {
	for i := 0; i < len(line); i++ {
		if line[i] != ' ' && line[i] != '\t' {
			return line[:i]
		}
	}
	return line
}

// Hash computes a SHA-256 hex hash of a string.
func Hash(s string) string {
	return HashBytes([]byte(s))
}

// HashBytes computes a SHA-256 hex hash of raw file content.
func HashBytes(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}

// Truncate shortens a string to maxLen runes, appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen]) + "..."
}
