// Package session holds the comment groups of one open file and turns
// edited group text into an edit plan.
package session

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"

	"comment-editor/internal/comment"
	"comment-editor/internal/patcher"
	"comment-editor/internal/position"
)

var (
	// ErrNoGroup is returned for a group index the session does not hold.
	ErrNoGroup = errors.New("no such comment group")
	// ErrNotEditable is returned when an edit changes a comment that cannot
	// be rewritten in place: a block comment, or a marker that is not the
	// first one on its line.
	ErrNotEditable = errors.New("comment cannot be edited in place")
)

// Session is the state of one open file. Groups are replaced wholesale on
// Reload and never edited in place.
type Session struct {
	path      string
	extractor *comment.Extractor
	patcher   *patcher.Patcher
	groups    []comment.Group
}

// Open extracts the groups of path.
func Open(path string, p *patcher.Patcher) (*Session, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	s := &Session{
		path:      path,
		extractor: comment.NewExtractor(),
		patcher:   p,
	}
	s.Reload()
	return s, nil
}

func (s *Session) Path() string { return s.path }

// Groups returns the groups as extracted at the last Reload.
func (s *Session) Groups() []comment.Group { return s.groups }

// Reload re-extracts the file's groups.
func (s *Session) Reload() {
	s.groups = s.extractor.ExtractGroupedComments(s.path)
	log.Debug().Str("file", s.path).Int("groups", len(s.groups)).Msg("Loaded comment groups")
}

// Plan maps edited group text, keyed by group index, to edits. Line j of
// the new text replaces original line j when it differs; lines past the
// group's end are inserted after its last line; original lines left
// without a counterpart are replaced with empty text. Changing a line that
// holds a block comment, or a later marker on a line with several, fails
// with ErrNotEditable and no edits.
func (s *Session) Plan(edited map[int]string) ([]patcher.Edit, error) {
	indices := make([]int, 0, len(edited))
	for idx := range edited {
		indices = append(indices, idx)
	}
	slices.Sort(indices)

	var edits []patcher.Edit
	for _, idx := range indices {
		if idx < 0 || idx >= len(s.groups) {
			return nil, fmt.Errorf("%w: %d of %d", ErrNoGroup, idx, len(s.groups))
		}
		group, err := planGroup(s.groups[idx], edited[idx])
		if err != nil {
			return nil, fmt.Errorf("group %d: %w", idx, err)
		}
		edits = append(edits, group...)
	}
	return edits, nil
}

func planGroup(g comment.Group, text string) ([]patcher.Edit, error) {
	lines := strings.Split(text, "\n")
	n := g.Len()

	var edits []patcher.Edit
	replace := func(j int, body string) error {
		if !editable(g, j) {
			return fmt.Errorf("%w: line %d holds a %s comment", ErrNotEditable, g.LineNumbers[j], g.Dialects[j])
		}
		edits = append(edits, patcher.Edit{Pos: position.ReplaceLine(g.LineNumbers[j]), Text: body})
		return nil
	}

	for j, line := range lines {
		switch {
		case j >= n:
			edits = append(edits, patcher.Edit{Pos: position.InsertAt(g.LastLine(), j-n), Text: line})
		case line != g.Comments[j]:
			if err := replace(j, line); err != nil {
				return nil, err
			}
		}
	}
	for j := len(lines); j < n; j++ {
		if err := replace(j, ""); err != nil {
			return nil, err
		}
	}
	return edits, nil
}

// editable reports whether line j of g is the comment the patcher rewrites
// on its line.
func editable(g comment.Group, j int) bool {
	return g.Dialects[j] != comment.DialectBlock && patcher.Rewritable(g.FullLines[j], g.Comments[j])
}

// Save applies the edited group text to the file and reloads the groups.
// It returns the plan that was applied; an empty plan writes nothing.
func (s *Session) Save(edited map[int]string) ([]patcher.Edit, error) {
	edits, err := s.Plan(edited)
	if err != nil {
		return nil, err
	}
	if len(edits) == 0 {
		log.Info().Str("file", s.path).Msg("No changes to save")
		return edits, nil
	}
	if err := s.patcher.SaveCommentsWithMultiLine(s.path, edits); err != nil {
		return nil, err
	}
	s.Reload()
	return edits, nil
}
