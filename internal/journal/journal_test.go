package journal

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"comment-editor/internal/patcher"
	"comment-editor/internal/position"
	"comment-editor/internal/textutil"
)

func TestJSONFile(t *testing.T) {
	s, err := NewJSONFile(filepath.Join(t.TempDir(), "journal.json"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	testStore(t, s)
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(t.Context(), filepath.Join(t.TempDir(), "sub", "journal.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	testStore(t, s)
}

func TestPostgresStore(t *testing.T) {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		t.Skip("DATABASE_URL is not set")
	}

	ctx := context.Background()
	s, err := NewPostgresStore(ctx, databaseURL)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	// Clean up the table before running the test.
	if _, err := s.pool.Exec(ctx, "DELETE FROM comment_journal"); err != nil {
		t.Fatal(err)
	}
	testStore(t, s)
}

func testStore(t *testing.T, s Store) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	entries := []Entry{
		{ID: uuid.New(), Path: "a.py", AppliedAt: base, Edits: []EditRecord{{Code: 3, Text: "x"}}, BeforeHash: "b1", AfterHash: "a1"},
		{ID: uuid.New(), Path: "b.cpp", AppliedAt: base.Add(time.Minute), Edits: []EditRecord{{Code: -5001, Text: "y"}}, BeforeHash: "b2", AfterHash: "a2"},
		{ID: uuid.New(), Path: "a.py", AppliedAt: base.Add(2 * time.Minute), Edits: []EditRecord{{Code: 4, Text: ""}}, BeforeHash: "b3", AfterHash: "a3"},
	}
	for _, e := range entries {
		if err := s.Record(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.List(ctx, "", 0)
	if err != nil {
		t.Fatal(err)
	}
	want := []Entry{entries[2], entries[1], entries[0]}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("List(all) mismatch (-want +got):\n%s", diff)
	}

	got, err = s.List(ctx, "a.py", 1)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]Entry{entries[2]}, got); diff != "" {
		t.Errorf("List(a.py, 1) mismatch (-want +got):\n%s", diff)
	}

	got, err = s.List(ctx, "none.go", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("List(none.go) returned %d entries", len(got))
	}
}

func TestJSONFileReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.json")
	s, err := NewJSONFile(path)
	if err != nil {
		t.Fatal(err)
	}
	e := NewEntry("x.py", nil, []byte("a"), []byte("b"))
	if err := s.Record(t.Context(), e); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewJSONFile(path)
	if err != nil {
		t.Fatal(err)
	}
	got, err := reopened.List(t.Context(), "x.py", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != e.ID {
		t.Errorf("reopened journal = %+v", got)
	}
}

func TestJSONFileCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.json")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewJSONFile(path); err == nil {
		t.Error("expected error for corrupt journal")
	}
}

func TestNewEntry(t *testing.T) {
	edits := []patcher.Edit{
		{Pos: position.ReplaceLine(2), Text: "a"},
		{Pos: position.InsertAt(5, 1), Text: "b"},
	}
	e := NewEntry("f.py", edits, []byte("before"), []byte("after"))

	want := []EditRecord{{Code: 2, Text: "a"}, {Code: -5002, Text: "b"}}
	if diff := cmp.Diff(want, e.Edits); diff != "" {
		t.Errorf("Edits mismatch (-want +got):\n%s", diff)
	}
	if e.BeforeHash != textutil.Hash("before") || e.AfterHash != textutil.Hash("after") {
		t.Errorf("hashes = %s, %s", e.BeforeHash, e.AfterHash)
	}
	if e.ID == uuid.Nil {
		t.Error("ID not set")
	}
}

func TestOpen(t *testing.T) {
	ctx := t.Context()
	dir := t.TempDir()

	tests := []struct {
		dsn  string
		want string
	}{
		{"", "journal.Discard"},
		{filepath.Join(dir, "history.json"), "*journal.JSONFile"},
		{filepath.Join(dir, "history.db"), "*journal.SQLiteStore"},
		{"sqlite:" + filepath.Join(dir, "other.sqlite"), "*journal.SQLiteStore"},
	}
	for _, tt := range tests {
		s, err := Open(ctx, tt.dsn)
		if err != nil {
			t.Fatalf("Open(%q): %v", tt.dsn, err)
		}
		if got := typeName(s); got != tt.want {
			t.Errorf("Open(%q) = %s, want %s", tt.dsn, got, tt.want)
		}
		s.Close()
	}
}

func typeName(s Store) string {
	switch s.(type) {
	case Discard:
		return "journal.Discard"
	case *JSONFile:
		return "*journal.JSONFile"
	case *SQLiteStore:
		return "*journal.SQLiteStore"
	case *PostgresStore:
		return "*journal.PostgresStore"
	default:
		return "unknown"
	}
}
