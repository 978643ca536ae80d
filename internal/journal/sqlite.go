package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps the journal in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at path.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create journal directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite journal: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect sqlite journal: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS journal (
			id TEXT PRIMARY KEY,
			path TEXT NOT NULL,
			applied_at INTEGER NOT NULL,
			edits TEXT NOT NULL,
			before_hash TEXT NOT NULL,
			after_hash TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS journal_path ON journal (path, applied_at);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create journal table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Record inserts e.
func (s *SQLiteStore) Record(ctx context.Context, e Entry) error {
	edits, err := json.Marshal(e.Edits)
	if err != nil {
		return fmt.Errorf("encode edits: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO journal (id, path, applied_at, edits, before_hash, after_hash)
		VALUES (?, ?, ?, ?, ?, ?);
	`, e.ID.String(), e.Path, e.AppliedAt.UnixNano(), string(edits), e.BeforeHash, e.AfterHash); err != nil {
		return fmt.Errorf("insert journal entry: %w", err)
	}
	return nil
}

// List returns matching entries newest first.
func (s *SQLiteStore) List(ctx context.Context, path string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, path, applied_at, edits, before_hash, after_hash
		FROM journal
		WHERE ? = '' OR path = ?
		ORDER BY applied_at DESC, rowid DESC
		LIMIT ?;
	`, path, path, limit)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			id, edits string
			appliedAt int64
			e         Entry
		)
		if err := rows.Scan(&id, &e.Path, &appliedAt, &edits, &e.BeforeHash, &e.AfterHash); err != nil {
			return nil, fmt.Errorf("scan journal row: %w", err)
		}
		if e.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse journal id %q: %w", id, err)
		}
		if err := json.Unmarshal([]byte(edits), &e.Edits); err != nil {
			return nil, fmt.Errorf("decode edits of %s: %w", id, err)
		}
		e.AppliedAt = time.Unix(0, appliedAt).UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal rows: %w", err)
	}
	return entries, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
