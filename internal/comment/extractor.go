package comment

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
)

// maxLineSize bounds a single scanned line.
const maxLineSize = 1024 * 1024

type dialectPattern struct {
	dialect Dialect
	pattern *regexp.Regexp
}

// dialects are tried on every line in this order. They are not mutually
// exclusive: a `#` inside a `//` comment matches both.
var dialects = []dialectPattern{
	{DialectSlash, regexp.MustCompile(`//(.*)$`)},
	{DialectHash, regexp.MustCompile(`#(.*)$`)},
	{DialectBlock, regexp.MustCompile(`/\*(.*?)\*/`)},
}

// inlineMarkers are checked by IsInlineComment.
var inlineMarkers = []string{"//", "#", "/*"}

// Extractor finds comments in source files by lexical line matching.
type Extractor struct{}

func NewExtractor() *Extractor { return &Extractor{} }

// ExtractComments returns every comment match on every line. A file that
// cannot be read yields an empty result and a logged warning.
func (e *Extractor) ExtractComments(filePath string) []Token {
	return e.extractFile(filePath, e.ScanAll)
}

// ExtractCommentsWithContext returns at most one match per dialect per line,
// carrying the full source line for later rewriting.
func (e *Extractor) ExtractCommentsWithContext(filePath string) []Token {
	return e.extractFile(filePath, e.ScanFirst)
}

// ExtractGroupedComments returns the comments of a file folded into groups
// of consecutive lines, in file order.
func (e *Extractor) ExtractGroupedComments(filePath string) []Group {
	return GroupTokens(e.ExtractCommentsWithContext(filePath))
}

func (e *Extractor) extractFile(filePath string, scan func(io.Reader) ([]Token, error)) []Token {
	file, err := os.Open(filePath)
	if err != nil {
		log.Warn().Err(err).Str("file", filePath).Msg("Could not open file")
		return []Token{}
	}
	defer file.Close()

	tokens, err := scan(file)
	if err != nil {
		log.Warn().Err(err).Str("file", filePath).Msg("Could not read file")
		return []Token{}
	}
	return tokens
}

// ScanAll is ExtractComments over a reader.
func (e *Extractor) ScanAll(r io.Reader) ([]Token, error) {
	return scanLines(r, -1)
}

// ScanFirst is ExtractCommentsWithContext over a reader.
func (e *Extractor) ScanFirst(r io.Reader) ([]Token, error) {
	return scanLines(r, 1)
}

// scanLines applies every dialect to every line, keeping up to limit
// matches per dialect (-1 for all).
func scanLines(r io.Reader, limit int) ([]Token, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	tokens := []Token{}
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		var inline bool
		inlineChecked := false

		for _, d := range dialects {
			for _, m := range d.pattern.FindAllStringSubmatch(line, limit) {
				text := strings.TrimSpace(m[1])
				if text == "" {
					continue
				}
				if !inlineChecked {
					inline = IsInlineComment(line)
					inlineChecked = true
				}
				tokens = append(tokens, Token{
					Line:     lineNum,
					Text:     text,
					FullLine: line,
					Inline:   inline,
					Dialect:  d.dialect,
				})
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan lines: %w", err)
	}
	return tokens, nil
}

// IsInlineComment reports whether any comment marker on the line is
// preceded by non-whitespace content.
func IsInlineComment(fullLine string) bool {
	for _, marker := range inlineMarkers {
		idx := strings.Index(fullLine, marker)
		if idx > 0 && strings.TrimSpace(fullLine[:idx]) != "" {
			return true
		}
	}
	return false
}

// GroupTokens folds tokens into groups. A token joins the current group only
// when its line directly follows the previous token's line.
func GroupTokens(tokens []Token) []Group {
	groups := []Group{}
	if len(tokens) == 0 {
		return groups
	}

	var current Group
	current.add(tokens[0])
	prev := tokens[0].Line

	for _, t := range tokens[1:] {
		if t.Line != prev+1 {
			groups = append(groups, current)
			current = Group{}
		}
		current.add(t)
		prev = t.Line
	}
	return append(groups, current)
}
