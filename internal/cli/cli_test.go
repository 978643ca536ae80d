package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"comment-editor/internal/patcher"
	"comment-editor/internal/session"
)

// workspace moves the test into an empty directory with journaling to a
// JSON file and returns the directory.
func workspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("COMMENT_EDITOR_JOURNAL", filepath.Join(dir, "journal.json"))
	t.Setenv("COMMENT_EDITOR_LOG_LEVEL", "error")
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestExtractJSON(t *testing.T) {
	dir := workspace(t)
	file := filepath.Join(dir, "m.py")
	writeFile(t, file, "# a\n# b\nx = 1\n# c\n")

	out, err := run(t, "extract", file, "--format", "json")
	if err != nil {
		t.Fatal(err)
	}

	var got []struct {
		Path   string `json:"path"`
		Groups []struct {
			Lines []int  `json:"lines"`
			Text  string `json:"text"`
		} `json:"groups"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(got) != 1 || len(got[0].Groups) != 2 {
		t.Fatalf("unexpected output: %s", out)
	}
	if diff := cmp.Diff([]int{1, 2}, got[0].Groups[0].Lines); diff != "" {
		t.Errorf("first group lines (-want +got):\n%s", diff)
	}
	if got[0].Groups[1].Text != "c" {
		t.Errorf("second group text = %q", got[0].Groups[1].Text)
	}
}

func TestExtractFlatTSV(t *testing.T) {
	dir := workspace(t)
	file := filepath.Join(dir, "a.js")
	writeFile(t, file, "let a = 1; // one\n")

	out, err := run(t, "extract", "--flat", "--format", "tsv", file)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "\t1\tslash\ttrue\tone\n") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestExtractErrors(t *testing.T) {
	dir := workspace(t)
	if _, err := run(t, "extract", filepath.Join(dir, "missing.py")); err == nil {
		t.Error("expected error for missing file")
	}
	file := filepath.Join(dir, "a.py")
	writeFile(t, file, "# a\n")
	if _, err := run(t, "extract", "--format", "xml", file); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestApplyAndHistory(t *testing.T) {
	dir := workspace(t)
	file := filepath.Join(dir, "main.cpp")
	writeFile(t, file, "// header\nint main() {\n  return 0;\n}\n")
	plan := filepath.Join(dir, "plan.json")
	writeFile(t, plan, `[{"line": 1, "text": "new header"}, {"after": 3, "text": "done"}, {"code": -3002, "text": "really"}]`)

	out, err := run(t, "apply", "--dry-run", file, plan)
	if err != nil {
		t.Fatal(err)
	}
	want := "// new header\nint main() {\n  return 0;\n// done\n// really\n}\n"
	if out != want {
		t.Errorf("dry run (-want +got):\n%s", cmp.Diff(want, out))
	}
	if readFile(t, file) != "// header\nint main() {\n  return 0;\n}\n" {
		t.Error("dry run wrote the file")
	}

	if _, err := run(t, "apply", file, plan); err != nil {
		t.Fatal(err)
	}
	if got := readFile(t, file); got != want {
		t.Errorf("applied (-want +got):\n%s", cmp.Diff(want, got))
	}

	out, err = run(t, "history", "--format", "json", file)
	if err != nil {
		t.Fatal(err)
	}
	var entries []struct {
		Path  string `json:"path"`
		Edits []struct {
			Code int    `json:"code"`
			Text string `json:"text"`
		} `json:"edits"`
	}
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(entries) != 1 || len(entries[0].Edits) != 3 {
		t.Fatalf("unexpected history: %s", out)
	}
	if entries[0].Edits[1].Code != -3001 {
		t.Errorf("second edit code = %d, want -3001", entries[0].Edits[1].Code)
	}
}

func TestEdit(t *testing.T) {
	dir := workspace(t)
	file := filepath.Join(dir, "e.py")
	writeFile(t, file, "def f():\n    # one\n    # two\n    return 1\n")

	out, err := run(t, "edit", "--dry-run", file, "0", `one\nTWO\nthree`)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"line": 3`) || !strings.Contains(out, `"after": 3`) {
		t.Errorf("unexpected plan:\n%s", out)
	}

	if _, err := run(t, "edit", file, "0", `one\nTWO\nthree`); err != nil {
		t.Fatal(err)
	}
	want := "def f():\n    # one\n    # TWO\n# three\n    return 1\n"
	if got := readFile(t, file); got != want {
		t.Errorf("content (-want +got):\n%s", cmp.Diff(want, got))
	}

	if _, err := run(t, "edit", file, "7", "x"); err == nil {
		t.Error("expected error for unknown group")
	}
}

func TestSet(t *testing.T) {
	dir := workspace(t)
	file := filepath.Join(dir, "s.sh")
	writeFile(t, file, "#!/bin/sh\n  # old  \necho hi\n")

	if _, err := run(t, "set", file, "2", "new"); err != nil {
		t.Fatal(err)
	}
	if got, want := readFile(t, file), "#!/bin/sh\n  # new  \necho hi\n"; got != want {
		t.Errorf("content = %q, want %q", got, want)
	}
	if _, err := run(t, "set", file, "zero", "x"); err == nil {
		t.Error("expected error for bad line number")
	}
}

func TestSetRejectsLineBreaks(t *testing.T) {
	dir := workspace(t)
	file := filepath.Join(dir, "s.py")
	writeFile(t, file, "# old\nx = 1\n")

	_, err := run(t, "set", file, "1", `first\nrm -rf stuff`)
	if !errors.Is(err, patcher.ErrMultiLine) {
		t.Errorf("err = %v, want ErrMultiLine", err)
	}
	if got := readFile(t, file); got != "# old\nx = 1\n" {
		t.Errorf("file was changed: %q", got)
	}
}

func TestEditRejectsBlockComment(t *testing.T) {
	dir := workspace(t)
	file := filepath.Join(dir, "b.cpp")
	src := "int x = 1; /* note */\nreturn x;\n"
	writeFile(t, file, src)

	_, err := run(t, "edit", file, "0", "better note")
	if !errors.Is(err, session.ErrNotEditable) {
		t.Errorf("err = %v, want ErrNotEditable", err)
	}
	if got := readFile(t, file); got != src {
		t.Errorf("file was changed: %q", got)
	}
}

func TestScan(t *testing.T) {
	dir := workspace(t)
	writeFile(t, filepath.Join(dir, "src", "a.go"), "// a\npackage a\n")
	writeFile(t, filepath.Join(dir, "src", "b.py"), "x = 1\n")
	writeFile(t, filepath.Join(dir, "src", ".hidden", "c.py"), "# c\n")

	out, err := run(t, "scan", "--format", "tsv", filepath.Join(dir, "src"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want header plus one row:\n%s", len(lines), out)
	}
	if !strings.HasSuffix(lines[1], "a.go\t0\t1\tfalse\ta") {
		t.Errorf("row = %q", lines[1])
	}
}

func TestHistoryDisabled(t *testing.T) {
	workspace(t)
	t.Setenv("COMMENT_EDITOR_JOURNAL", "")
	if _, err := run(t, "history"); err == nil {
		t.Error("expected error when journaling is disabled")
	}
}

func TestUnescape(t *testing.T) {
	tests := map[string]string{
		`a\nb`:  "a\nb",
		`a\tb`:  "a\tb",
		`a\\nb`: `a\nb`,
		`plain`: "plain",
	}
	for in, want := range tests {
		if got := unescape(in); got != want {
			t.Errorf("unescape(%q) = %q, want %q", in, got, want)
		}
	}
}
