package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"comment-editor/internal/atomicfile"
)

// JSONFile keeps the journal in a single JSON document rewritten on every
// Record.
type JSONFile struct {
	mu   sync.Mutex
	path string
}

type jsonJournal struct {
	Entries []Entry `json:"entries"`
}

// NewJSONFile opens the journal at path, creating it when missing.
func NewJSONFile(path string) (*JSONFile, error) {
	s := &JSONFile{path: path}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := s.save(jsonJournal{Entries: []Entry{}}); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}
	if _, err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *JSONFile) load() (jsonJournal, error) {
	var j jsonJournal
	data, err := os.ReadFile(s.path)
	if err != nil {
		return j, fmt.Errorf("read journal: %w", err)
	}
	if err := json.Unmarshal(data, &j); err != nil {
		return j, fmt.Errorf("decode journal %s: %w", s.path, err)
	}
	return j, nil
}

func (s *JSONFile) save(j jsonJournal) error {
	data, err := json.MarshalIndent(j, "", "  ")
	if err != nil {
		return fmt.Errorf("encode journal: %w", err)
	}
	return atomicfile.WriteFile(s.path, append(data, '\n'), atomicfile.Options{})
}

// Record appends e to the file.
func (s *JSONFile) Record(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, err := s.load()
	if err != nil {
		return err
	}
	j.Entries = append(j.Entries, e)
	return s.save(j)
}

// List returns matching entries newest first.
func (s *JSONFile) List(_ context.Context, path string, limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, err := s.load()
	if err != nil {
		return nil, err
	}

	out := []Entry{}
	for i := len(j.Entries) - 1; i >= 0; i-- {
		e := j.Entries[i]
		if path != "" && e.Path != path {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Close closes the file store.
func (s *JSONFile) Close() error { return nil }
