// Package planfile reads and writes edit plans as JSON.
//
// A plan is an array of objects in one of three forms:
//
//	{"line": 5, "text": "replacement"}
//	{"after": 5, "offset": 0, "text": "inserted"}
//	{"code": -5001, "text": "inserted"}
//
// The last form carries the signed integer position code.
package planfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"comment-editor/internal/patcher"
	"comment-editor/internal/position"
)

// ErrInvalid is returned for an entry that names no position or more than one.
var ErrInvalid = errors.New("invalid plan entry")

type entry struct {
	Line   *int   `json:"line,omitempty"`
	After  *int   `json:"after,omitempty"`
	Offset int    `json:"offset,omitempty"`
	Code   *int   `json:"code,omitempty"`
	Text   string `json:"text"`
}

func (e entry) edit() (patcher.Edit, error) {
	set := 0
	for _, p := range []*int{e.Line, e.After, e.Code} {
		if p != nil {
			set++
		}
	}
	if set != 1 {
		return patcher.Edit{}, fmt.Errorf("%w: need exactly one of line, after, code", ErrInvalid)
	}

	switch {
	case e.Line != nil:
		if *e.Line < 1 {
			return patcher.Edit{}, fmt.Errorf("%w: line %d", ErrInvalid, *e.Line)
		}
		return patcher.Edit{Pos: position.ReplaceLine(*e.Line), Text: e.Text}, nil
	case e.After != nil:
		if *e.After < 0 || e.Offset < 0 || e.Offset > position.MaxOffset {
			return patcher.Edit{}, fmt.Errorf("%w: after %d offset %d", ErrInvalid, *e.After, e.Offset)
		}
		return patcher.Edit{Pos: position.InsertAt(*e.After, e.Offset), Text: e.Text}, nil
	default:
		pos, err := position.Decode(*e.Code)
		if err != nil {
			return patcher.Edit{}, fmt.Errorf("%w: %w", ErrInvalid, err)
		}
		return patcher.Edit{Pos: pos, Text: e.Text}, nil
	}
}

// Read decodes a plan.
func Read(r io.Reader) ([]patcher.Edit, error) {
	var entries []entry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}

	edits := make([]patcher.Edit, 0, len(entries))
	for i, e := range entries {
		edit, err := e.edit()
		if err != nil {
			return nil, fmt.Errorf("plan entry %d: %w", i, err)
		}
		edits = append(edits, edit)
	}
	return edits, nil
}

// Load reads the plan stored at path.
func Load(path string) ([]patcher.Edit, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open plan: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Write encodes edits in the line/after form.
func Write(w io.Writer, edits []patcher.Edit) error {
	entries := make([]entry, 0, len(edits))
	for _, e := range edits {
		line := e.Pos.Line
		if e.Pos.IsInsert() {
			entries = append(entries, entry{After: &line, Offset: e.Pos.Offset, Text: e.Text})
		} else {
			entries = append(entries, entry{Line: &line, Text: e.Text})
		}
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	return nil
}
