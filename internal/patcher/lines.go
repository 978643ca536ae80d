package patcher

import (
	"fmt"
	"os"
	"strings"
)

// splitTerminator separates a raw line from its "\n" or "\r\n" ending.
func splitTerminator(raw string) (string, string) {
	switch {
	case strings.HasSuffix(raw, "\r\n"):
		return raw[:len(raw)-2], "\r\n"
	case strings.HasSuffix(raw, "\n"):
		return raw[:len(raw)-1], "\n"
	default:
		return raw, ""
	}
}

// splitLines breaks content into lines without terminators. The returned
// terminator is the first line's, or "\n" when it has none.
func splitLines(content string) ([]string, string) {
	eol := "\n"
	lines := []string{}
	for content != "" {
		i := strings.IndexByte(content, '\n')
		if i < 0 {
			lines = append(lines, content)
			break
		}
		line, lineEOL := splitTerminator(content[:i+1])
		if len(lines) == 0 {
			eol = lineEOL
		}
		lines = append(lines, line)
		content = content[i+1:]
	}
	return lines, eol
}

// joinLines writes every line followed by eol.
func joinLines(lines []string, eol string) []byte {
	var sb strings.Builder
	for _, line := range lines {
		sb.WriteString(line)
		sb.WriteString(eol)
	}
	return []byte(sb.String())
}

// ReadLines loads filePath as lines plus the terminator used to write it back.
func ReadLines(filePath string) ([]string, string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, "", fmt.Errorf("%w %s: %w", ErrOpen, filePath, err)
	}
	lines, eol := splitLines(string(data))
	return lines, eol, nil
}
