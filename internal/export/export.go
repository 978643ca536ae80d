// Package export renders extracted comments and journal history as JSON,
// TSV or a terminal table.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"comment-editor/internal/comment"
	"comment-editor/internal/journal"
	"comment-editor/internal/position"
	"comment-editor/internal/textutil"
)

// Format selects an output rendering.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatTSV   Format = "tsv"
)

// maxCellWidth bounds comment text in table cells.
const maxCellWidth = 72

// ParseFormat validates a --format value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatTable, FormatJSON, FormatTSV:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q (want table, json or tsv)", s)
	}
}

// FileGroups pairs a file with its extracted groups.
type FileGroups struct {
	Path   string
	Groups []comment.Group
}

type groupJSON struct {
	Index    int      `json:"index"`
	Lines    []int    `json:"lines"`
	Comments []string `json:"comments"`
	Inline   []bool   `json:"inline"`
	Text     string   `json:"text"`
}

type fileJSON struct {
	Path   string      `json:"path"`
	Groups []groupJSON `json:"groups"`
}

type tokenJSON struct {
	Line    int    `json:"line"`
	Text    string `json:"text"`
	Inline  bool   `json:"inline"`
	Dialect string `json:"dialect"`
}

// WriteGroups renders the groups of one or more files.
func WriteGroups(w io.Writer, format Format, files []FileGroups) error {
	switch format {
	case FormatJSON:
		out := make([]fileJSON, 0, len(files))
		for _, f := range files {
			groups := make([]groupJSON, 0, len(f.Groups))
			for i, g := range f.Groups {
				groups = append(groups, groupJSON{
					Index:    i,
					Lines:    g.LineNumbers,
					Comments: g.Comments,
					Inline:   g.Inline,
					Text:     g.Text(),
				})
			}
			out = append(out, fileJSON{Path: f.Path, Groups: groups})
		}
		return writeJSON(w, out)

	case FormatTSV:
		fmt.Fprintln(w, "file\tgroup\tline\tinline\tcomment")
		for _, f := range files {
			for i, g := range f.Groups {
				for j, line := range g.LineNumbers {
					fmt.Fprintf(w, "%s\t%d\t%d\t%t\t%s\n", escapeTSV(f.Path), i, line, g.Inline[j], escapeTSV(g.Comments[j]))
				}
			}
		}
		return nil

	default:
		tw := table.NewWriter()
		tw.SetOutputMirror(w)
		tw.AppendHeader(table.Row{"FILE", "GROUP", "LINE", "INLINE", "COMMENT"})
		for _, f := range files {
			for i, g := range f.Groups {
				for j, line := range g.LineNumbers {
					tw.AppendRow(table.Row{f.Path, i, line, formatBool(g.Inline[j]), textutil.Truncate(g.Comments[j], maxCellWidth)})
				}
				tw.AppendSeparator()
			}
		}
		tw.SetColumnConfigs([]table.ColumnConfig{
			{Number: 1, Align: text.AlignLeft},
			{Number: 2, Align: text.AlignRight},
			{Number: 3, Align: text.AlignRight},
			{Number: 4, Align: text.AlignCenter},
			{Number: 5, Align: text.AlignLeft},
		})
		tw.SetStyle(table.StyleLight)
		tw.Render()
		return nil
	}
}

// WriteTokens renders the ungrouped comments of one file.
func WriteTokens(w io.Writer, format Format, path string, tokens []comment.Token) error {
	switch format {
	case FormatJSON:
		out := make([]tokenJSON, 0, len(tokens))
		for _, t := range tokens {
			out = append(out, tokenJSON{Line: t.Line, Text: t.Text, Inline: t.Inline, Dialect: t.Dialect.String()})
		}
		return writeJSON(w, out)

	case FormatTSV:
		fmt.Fprintln(w, "file\tline\tdialect\tinline\tcomment")
		for _, t := range tokens {
			fmt.Fprintf(w, "%s\t%d\t%s\t%t\t%s\n", escapeTSV(path), t.Line, t.Dialect, t.Inline, escapeTSV(t.Text))
		}
		return nil

	default:
		tw := table.NewWriter()
		tw.SetOutputMirror(w)
		tw.AppendHeader(table.Row{"LINE", "DIALECT", "INLINE", "COMMENT"})
		for _, t := range tokens {
			tw.AppendRow(table.Row{t.Line, t.Dialect.String(), formatBool(t.Inline), textutil.Truncate(t.Text, maxCellWidth)})
		}
		tw.SetTitle(path)
		tw.SetStyle(table.StyleLight)
		tw.Render()
		return nil
	}
}

// WriteHistory renders journal entries.
func WriteHistory(w io.Writer, format Format, entries []journal.Entry) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, entries)

	case FormatTSV:
		fmt.Fprintln(w, "id\tapplied_at\tfile\tedits\tbefore_hash\tafter_hash")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
				e.ID, e.AppliedAt.Format(time.RFC3339), escapeTSV(e.Path), len(e.Edits), e.BeforeHash, e.AfterHash)
		}
		return nil

	default:
		tw := table.NewWriter()
		tw.SetOutputMirror(w)
		tw.AppendHeader(table.Row{"APPLIED", "FILE", "EDITS", "CHANGES", "ID"})
		for _, e := range entries {
			tw.AppendRow(table.Row{
				e.AppliedAt.Local().Format(time.DateTime),
				e.Path,
				len(e.Edits),
				textutil.Truncate(describeEdits(e.Edits), maxCellWidth),
				e.ID.String()[:8],
			})
		}
		tw.SetStyle(table.StyleLight)
		tw.Render()
		return nil
	}
}

// describeEdits summarises edit positions, e.g. "line 3, after line 5 +0".
func describeEdits(records []journal.EditRecord) string {
	parts := make([]string, 0, len(records))
	for _, r := range records {
		pos, err := position.Decode(r.Code)
		if err != nil {
			parts = append(parts, strconv.Itoa(r.Code))
			continue
		}
		parts = append(parts, pos.String())
	}
	return strings.Join(parts, ", ")
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	return nil
}

// escapeTSV replaces tabs and newlines in a string for TSV safety.
func escapeTSV(s string) string {
	s = strings.ReplaceAll(s, "\t", "\\t")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "\\r")
	return s
}

func formatBool(b bool) string {
	if b {
		return "yes"
	}
	return ""
}
