package planfile

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"comment-editor/internal/patcher"
	"comment-editor/internal/position"
)

func TestRead(t *testing.T) {
	in := `[
		{"line": 5, "text": "new"},
		{"after": 5, "offset": 1, "text": "second"},
		{"after": 5, "text": "first"},
		{"code": -7001, "text": "legacy"},
		{"code": 3, "text": "<b>"}
	]`
	got, err := Read(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	want := []patcher.Edit{
		{Pos: position.ReplaceLine(5), Text: "new"},
		{Pos: position.InsertAt(5, 1), Text: "second"},
		{Pos: position.InsertAt(5, 0), Text: "first"},
		{Pos: position.InsertAt(7, 0), Text: "legacy"},
		{Pos: position.ReplaceLine(3), Text: "<b>"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Read() mismatch (-want +got):\n%s", diff)
	}
}

func TestReadInvalid(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"no position", `[{"text": "x"}]`},
		{"two positions", `[{"line": 1, "after": 1, "text": "x"}]`},
		{"zero code", `[{"code": 0, "text": "x"}]`},
		{"line zero", `[{"line": 0, "text": "x"}]`},
		{"offset too large", `[{"after": 1, "offset": 999, "text": "x"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Read(strings.NewReader(tt.in)); !errors.Is(err, ErrInvalid) {
				t.Errorf("err = %v, want ErrInvalid", err)
			}
		})
	}

	if _, err := Read(strings.NewReader("{")); err == nil || errors.Is(err, ErrInvalid) {
		t.Errorf("malformed JSON err = %v", err)
	}
}

func TestWriteThenLoad(t *testing.T) {
	edits := []patcher.Edit{
		{Pos: position.ReplaceLine(2), Text: "a <b> & c"},
		{Pos: position.InsertAt(4, 0), Text: "d"},
		{Pos: position.InsertAt(4, 2), Text: ""},
	}
	var buf bytes.Buffer
	if err := Write(&buf, edits); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "a <b> & c") {
		t.Errorf("HTML was escaped:\n%s", buf.String())
	}

	path := filepath.Join(t.TempDir(), "plan.json")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(edits, got); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}
