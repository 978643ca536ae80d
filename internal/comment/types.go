package comment

import "strings"

// Dialect identifies which comment syntax produced a token.
type Dialect int

const (
	// DialectSlash is a C++-style `//` line comment.
	DialectSlash Dialect = iota
	// DialectHash is a shell/Python-style `#` line comment.
	DialectHash
	// DialectBlock is a `/* ... */` comment opened and closed on one line.
	DialectBlock
)

// Marker returns the opening marker of the dialect.
func (d Dialect) Marker() string {
	switch d {
	case DialectSlash:
		return "//"
	case DialectHash:
		return "#"
	default:
		return "/*"
	}
}

func (d Dialect) String() string {
	switch d {
	case DialectSlash:
		return "slash"
	case DialectHash:
		return "hash"
	default:
		return "block"
	}
}

// Token is one comment occurrence on one line.
type Token struct {
	// Line is the 1-based line number in the source file.
	Line int
	// Text is the trimmed comment body without its marker.
	Text string
	// FullLine is the raw source line the comment was found on.
	FullLine string
	// Inline is true when code precedes the comment marker.
	Inline  bool
	Dialect Dialect
}

// Group is a run of comment tokens on consecutive lines. The five slices
// are parallel and always have the same length.
type Group struct {
	LineNumbers []int
	Comments    []string
	FullLines   []string
	Inline      []bool
	Dialects    []Dialect
}

// Len returns the number of lines in the group.
func (g Group) Len() int { return len(g.LineNumbers) }

// FirstLine returns the first original line number of the group.
func (g Group) FirstLine() int { return g.LineNumbers[0] }

// LastLine returns the last original line number of the group. New lines
// appended to a group are anchored after it.
func (g Group) LastLine() int { return g.LineNumbers[len(g.LineNumbers)-1] }

// Text returns the group's comments joined by newlines, the form a caller edits.
func (g Group) Text() string { return strings.Join(g.Comments, "\n") }

// Valid reports whether the parallel slices agree in length and the line
// numbers are consecutive.
func (g Group) Valid() bool {
	n := len(g.LineNumbers)
	if n == 0 || len(g.Comments) != n || len(g.FullLines) != n || len(g.Inline) != n || len(g.Dialects) != n {
		return false
	}
	for i := 1; i < n; i++ {
		if g.LineNumbers[i] != g.LineNumbers[i-1]+1 {
			return false
		}
	}
	return true
}

func (g *Group) add(t Token) {
	g.LineNumbers = append(g.LineNumbers, t.Line)
	g.Comments = append(g.Comments, t.Text)
	g.FullLines = append(g.FullLines, t.FullLine)
	g.Inline = append(g.Inline, t.Inline)
	g.Dialects = append(g.Dialects, t.Dialect)
}
