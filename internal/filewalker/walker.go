package filewalker

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"comment-editor/internal/comment"
	"comment-editor/internal/patcher"
)

// Walker traverses directories and extracts comments from supported files.
type Walker struct {
	extensions map[string]bool
	extractor  *comment.Extractor
}

// NewWalker creates a Walker accepting the given extensions (".py", ".go", ...).
func NewWalker(extensions []string) *Walker {
	exts := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		exts[strings.ToLower(ext)] = true
	}
	return &Walker{
		extensions: exts,
		extractor:  comment.NewExtractor(),
	}
}

// FileEntry represents a discovered file ready for processing.
type FileEntry struct {
	Path   string
	Ext    string
	Marker string
}

// Supports reports whether path has an accepted extension.
func (w *Walker) Supports(path string) bool {
	return w.extensions[strings.ToLower(filepath.Ext(path))]
}

// Walk discovers all supported files under the given root directory.
// Directories whose names start with a dot are skipped.
func (w *Walker) Walk(root string) ([]FileEntry, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root path: %w", err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root is not a directory: %s", root)
	}

	var entries []FileEntry

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Error walking path")
			return nil
		}

		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() || !w.Supports(path) {
			return nil
		}

		entries = append(entries, FileEntry{
			Path:   path,
			Ext:    strings.ToLower(filepath.Ext(path)),
			Marker: patcher.CommentMarker(path),
		})
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}

	log.Info().Int("count", len(entries)).Str("root", root).Msg("Discovered files")
	return entries, nil
}

// ExtractFile returns the comment groups of a discovered file.
func (w *Walker) ExtractFile(entry FileEntry) []comment.Group {
	return w.extractor.ExtractGroupedComments(entry.Path)
}
