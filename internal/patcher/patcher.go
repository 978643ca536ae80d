// Package patcher writes edited comment text back into source files while
// leaving every other line untouched.
package patcher

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"

	"comment-editor/internal/atomicfile"
	"comment-editor/internal/position"
	"comment-editor/internal/textutil"
)

var (
	// ErrOpen is returned when the source file cannot be read.
	ErrOpen = errors.New("open file")
	// ErrMultiLine is returned by SaveComments for text that spans lines.
	ErrMultiLine = errors.New("comment text spans several lines")
)

// LineEdit replaces the comment body on one original line.
type LineEdit struct {
	Line int
	Text string
}

// Edit places text at a position descriptor. Text may hold several lines
// separated by "\n".
type Edit struct {
	Pos  position.Descriptor
	Text string
}

// Patcher applies edits to files. It keeps no state between calls.
type Patcher struct {
	opts atomicfile.Options
}

func NewPatcher(opts atomicfile.Options) *Patcher {
	return &Patcher{opts: opts}
}

// SaveComments rewrites the comment body of each edited line that starts
// with a `//` or `#` comment. Lines that match neither pass through
// unchanged, as do lines without an edit. The first edit for a line wins.
// Text holding a line break is rejected before the file is touched; use
// SaveCommentsWithMultiLine to add lines.
func (p *Patcher) SaveComments(filePath string, edits []LineEdit) error {
	byLine := make(map[int]string, len(edits))
	for _, e := range edits {
		if strings.ContainsAny(e.Text, "\r\n") {
			return fmt.Errorf("line %d: %w", e.Line, ErrMultiLine)
		}
		if _, seen := byLine[e.Line]; !seen {
			byLine[e.Line] = e.Text
		}
	}

	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrOpen, filePath, err)
	}
	defer file.Close()

	var sb strings.Builder
	reader := bufio.NewReader(file)
	lineNum := 0
	terminator := "\n"
	rewritten := 0

	for {
		raw, readErr := reader.ReadString('\n')
		if raw != "" {
			lineNum++
			line, eol := splitTerminator(raw)
			if lineNum == 1 && eol != "" {
				terminator = eol
			}
			if eol == "" {
				eol = terminator
			}
			if text, ok := byLine[lineNum]; ok {
				if out, matched := rewrite(line, text, lineRules); matched {
					line = out
					rewritten++
				} else {
					log.Debug().Str("file", filePath).Int("line", lineNum).Msg("No comment to rewrite")
				}
			}
			sb.WriteString(line)
			sb.WriteString(eol)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return fmt.Errorf("read %s: %w", filePath, readErr)
		}
	}
	file.Close()

	if err := p.write(filePath, []byte(sb.String())); err != nil {
		return err
	}
	log.Info().Str("file", filePath).Int("edits", len(edits)).Int("rewritten", rewritten).Msg("Saved comments")
	return nil
}

// SaveCommentsWithMultiLine applies replacements and insertions to filePath
// as described by Plan and writes the result back.
func (p *Patcher) SaveCommentsWithMultiLine(filePath string, edits []Edit) error {
	lines, eol, err := ReadLines(filePath)
	if err != nil {
		return err
	}

	out := Plan(lines, filePath, edits)
	if err := p.write(filePath, joinLines(out, eol)); err != nil {
		return err
	}
	log.Info().Str("file", filePath).Int("edits", len(edits)).Int("lines", len(out)).Msg("Saved comments")
	return nil
}

// Preview returns the lines SaveCommentsWithMultiLine would write.
func (p *Patcher) Preview(filePath string, edits []Edit) ([]string, error) {
	lines, _, err := ReadLines(filePath)
	if err != nil {
		return nil, err
	}
	return Plan(lines, filePath, edits), nil
}

func (p *Patcher) write(filePath string, data []byte) error {
	if err := atomicfile.WriteFile(filePath, data, p.opts); err != nil {
		return fmt.Errorf("save %s: %w", filePath, err)
	}
	return nil
}

// expansion records lines added after original line `line` by a multi-line
// replacement.
type expansion struct {
	line  int
	added int
}

type expansions []expansion

// before counts lines added by expansions strictly above line.
func (e expansions) before(line int) int {
	n := 0
	for _, x := range e {
		if x.line < line {
			n += x.added
		}
	}
	return n
}

// through counts lines added by expansions at or above line.
func (e expansions) through(line int) int {
	n := 0
	for _, x := range e {
		if x.line <= line {
			n += x.added
		}
	}
	return n
}

// Plan computes the new content of a file from its original lines. The
// input slice is not modified.
//
// Replacements run first in ascending line order, then insertions in
// (anchor, offset) order. An insertion lands at index
// anchor + offset + k, where k counts the insertions already placed after
// smaller anchors, so several insertions after one anchor stay in offset
// order. The input order of edits does not affect the result.
//
// Lines added by multi-line replacements shift everything below them, so
// once a replacement expands, later edits no longer land at the bare
// line-1 and anchor+offset+k indices. A replacement of line L moves to
// L-1 plus the lines added above L, and an insertion anchored at A moves
// by the lines added at or above A. Descriptors therefore always refer to
// original line numbers.
func Plan(lines []string, filePath string, edits []Edit) []string {
	out := slices.Clone(lines)
	marker := CommentMarker(filePath)

	var replacements, insertions []Edit
	for _, e := range edits {
		if e.Pos.IsInsert() {
			insertions = append(insertions, e)
		} else {
			replacements = append(replacements, e)
		}
	}
	byPosition := func(a, b Edit) int { return position.Compare(a.Pos, b.Pos) }
	slices.SortStableFunc(replacements, byPosition)
	slices.SortStableFunc(insertions, byPosition)

	var grown expansions
	for _, r := range replacements {
		if r.Pos.Line < 1 {
			log.Warn().Str("file", filePath).Int("line", r.Pos.Line).Msg("Skipping replacement before first line")
			continue
		}
		idx := r.Pos.Line - 1 + grown.before(r.Pos.Line)
		rendered := renderReplacement(out, idx, r.Text, marker)
		out = place(out, idx, rendered)
		if added := len(rendered) - 1; added > 0 {
			grown = append(grown, expansion{line: r.Pos.Line, added: added})
		}
	}

	anchorStart := 0
	for i, ins := range insertions {
		if i > 0 && ins.Pos.Line != insertions[i-1].Pos.Line {
			anchorStart = i
		}
		target := ins.Pos.Line + ins.Pos.Offset + anchorStart + grown.through(ins.Pos.Line)
		target = max(0, min(target, len(out)))
		out = slices.Insert(out, target, marker+" "+ins.Text)
	}

	return out
}

// renderReplacement produces the lines that replace index idx. The result
// has one element unless text spans several lines.
func renderReplacement(lines []string, idx int, text, marker string) []string {
	current := ""
	inRange := idx < len(lines)
	if inRange {
		current = lines[idx]
	}
	indent := textutil.LeadingIndent(current)

	if !strings.Contains(text, "\n") {
		if inRange {
			if out, ok := rewrite(current, text, multiLineRules); ok {
				return []string{out}
			}
		}
		return []string{indent + marker + " " + text}
	}

	segments := strings.Split(text, "\n")
	rendered := make([]string, len(segments))
	for i, seg := range segments {
		if seg == "" {
			rendered[i] = indent + marker
		} else {
			rendered[i] = indent + marker + " " + seg
		}
	}
	return rendered
}

// place writes rendered at idx, inserting any extra lines after it. Past
// the end, the slice is padded with empty lines and rendered is appended.
func place(lines []string, idx int, rendered []string) []string {
	if idx < len(lines) {
		lines[idx] = rendered[0]
		return slices.Insert(lines, idx+1, rendered[1:]...)
	}
	for len(lines) < idx {
		lines = append(lines, "")
	}
	return append(lines, rendered...)
}
