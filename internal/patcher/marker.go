package patcher

import (
	"path/filepath"
	"regexp"
	"strings"
)

// markers maps file extensions to the line-comment marker used for
// synthesized lines. Anything not listed falls back to "#".
var markers = map[string]string{
	".py":    "#",
	".cpp":   "//",
	".h":     "//",
	".ts":    "//",
	".js":    "//",
	".c":     "//",
	".cc":    "//",
	".hpp":   "//",
	".go":    "//",
	".java":  "//",
	".rs":    "//",
	".jsx":   "//",
	".tsx":   "//",
	".cs":    "//",
	".swift": "//",
	".kt":    "//",
}

const defaultMarker = "#"

// CommentMarker returns the marker for new comment lines in filePath.
func CommentMarker(filePath string) string {
	if m, ok := markers[strings.ToLower(filepath.Ext(filePath))]; ok {
		return m
	}
	return defaultMarker
}

// rewriteRule rewrites the comment body of an existing line. Group 1 is the
// prefix, group 2 the body, group 3 the trailing whitespace.
type rewriteRule struct {
	name    string
	pattern *regexp.Regexp
}

var (
	slashRule  = rewriteRule{"slash", regexp.MustCompile(`^(\s*//\s*)(.*?)(\s*)$`)}
	hashRule   = rewriteRule{"hash", regexp.MustCompile(`^(\s*#\s*)(.*?)(\s*)$`)}
	inlineRule = rewriteRule{"inline", regexp.MustCompile(`^(.*?\S.*?(?://|#)\s*)(.*?)(\s*)$`)}
)

// lineRules serve the single-line save path; multiLineRules also rewrite
// comments trailing code.
var (
	lineRules      = []rewriteRule{slashRule, hashRule}
	multiLineRules = []rewriteRule{slashRule, hashRule, inlineRule}
)

// rewrite applies the first matching rule, keeping prefix and trailing
// whitespace around text.
func rewrite(line, text string, rules []rewriteRule) (string, bool) {
	for _, r := range rules {
		m := r.pattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		return m[1] + text + m[3], true
	}
	return line, false
}

// Rewritable reports whether the multi-line save path, given line, would
// replace exactly body and nothing else. A comment that fails this check
// cannot be edited in place without damaging the rest of the line.
func Rewritable(line, body string) bool {
	for _, r := range multiLineRules {
		if m := r.pattern.FindStringSubmatch(line); m != nil {
			return m[2] == body
		}
	}
	return false
}
