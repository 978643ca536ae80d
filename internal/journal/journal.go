// Package journal records applied edit plans so a file's comment history
// can be reviewed later. Entries are stored in a JSON file, SQLite or
// PostgreSQL depending on the DSN.
package journal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"comment-editor/internal/patcher"
	"comment-editor/internal/textutil"
)

// EditRecord is one edit in its integer-code form.
type EditRecord struct {
	Code int    `json:"code"`
	Text string `json:"text"`
}

// Entry describes one successful save.
type Entry struct {
	ID         uuid.UUID    `json:"id"`
	Path       string       `json:"path"`
	AppliedAt  time.Time    `json:"applied_at"`
	Edits      []EditRecord `json:"edits"`
	BeforeHash string       `json:"before_hash"`
	AfterHash  string       `json:"after_hash"`
}

// NewEntry builds an entry for edits applied to path, hashing the content
// before and after the save.
func NewEntry(path string, edits []patcher.Edit, before, after []byte) Entry {
	records := make([]EditRecord, 0, len(edits))
	for _, e := range edits {
		records = append(records, EditRecord{Code: e.Pos.Code(), Text: e.Text})
	}
	return Entry{
		ID:         uuid.New(),
		Path:       path,
		AppliedAt:  time.Now().UTC(),
		Edits:      records,
		BeforeHash: textutil.HashBytes(before),
		AfterHash:  textutil.HashBytes(after),
	}
}

// Store is an append-only history of entries.
type Store interface {
	// Record appends an entry.
	Record(ctx context.Context, e Entry) error
	// List returns entries newest first. An empty path matches every file;
	// limit <= 0 returns all entries.
	List(ctx context.Context, path string, limit int) ([]Entry, error)
	// Close releases the store's resources.
	Close() error
}

// Open picks a backend from dsn: postgres:// or postgresql:// URLs use
// PostgreSQL, a "sqlite:" prefix or ".db" suffix uses SQLite, anything
// else is a JSON file path. An empty dsn disables journaling.
func Open(ctx context.Context, dsn string) (Store, error) {
	var (
		s   Store
		err error
	)
	switch {
	case dsn == "":
		return Discard{}, nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		s, err = NewPostgresStore(ctx, dsn)
	case strings.HasPrefix(dsn, "sqlite:"):
		s, err = NewSQLiteStore(ctx, strings.TrimPrefix(dsn, "sqlite:"))
	case strings.HasSuffix(dsn, ".db"):
		s, err = NewSQLiteStore(ctx, dsn)
	default:
		s, err = NewJSONFile(dsn)
	}
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return s, nil
}

// Discard is the Store used when journaling is disabled.
type Discard struct{}

func (Discard) Record(context.Context, Entry) error                { return nil }
func (Discard) List(context.Context, string, int) ([]Entry, error) { return []Entry{}, nil }
func (Discard) Close() error                                       { return nil }
