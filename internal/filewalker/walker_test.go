package filewalker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestWalk(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{
		"main.go":              "// main\npackage main\n",
		"lib/util.PY":          "# util\n",
		"lib/notes.txt":        "# not scanned\n",
		".git/hooks/pre.py":    "# hidden\n",
		"web/.cache/app.js":    "// hidden\n",
		"web/app.js":           "// app\n",
		"web/vendor/x/deep.ts": "// deep\n",
	}
	for name, content := range files {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	w := NewWalker([]string{".go", ".py", ".js", ".ts"})
	entries, err := w.Walk(root)
	if err != nil {
		t.Fatal(err)
	}

	var got []string
	for _, e := range entries {
		rel, err := filepath.Rel(root, e.Path)
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, filepath.ToSlash(rel)+" "+e.Ext+" "+e.Marker)
	}
	want := []string{
		"lib/util.PY .py #",
		"main.go .go //",
		"web/app.js .js //",
		"web/vendor/x/deep.ts .ts //",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Walk() mismatch (-want +got):\n%s", diff)
	}

	groups := w.ExtractFile(entries[1])
	if len(groups) != 1 || groups[0].Text() != "main" {
		t.Errorf("ExtractFile(main.go) = %+v", groups)
	}
}

func TestWalkNotDirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "a.py")
	if err := os.WriteFile(file, []byte("# a\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewWalker([]string{".py"}).Walk(file); err == nil {
		t.Error("expected error for a file root")
	}
}
