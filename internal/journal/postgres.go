package journal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps the journal in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to databaseURL and creates the journal table.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS comment_journal (
			id UUID PRIMARY KEY,
			path TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL,
			edits JSONB NOT NULL,
			before_hash TEXT NOT NULL,
			after_hash TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS comment_journal_path ON comment_journal (path, applied_at);
	`); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create journal table: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Record inserts e.
func (s *PostgresStore) Record(ctx context.Context, e Entry) error {
	edits, err := json.Marshal(e.Edits)
	if err != nil {
		return fmt.Errorf("encode edits: %w", err)
	}
	if _, err := s.pool.Exec(ctx, `
		INSERT INTO comment_journal (id, path, applied_at, edits, before_hash, after_hash)
		VALUES ($1::uuid, $2, $3, $4, $5, $6);
	`, e.ID.String(), e.Path, e.AppliedAt, edits, e.BeforeHash, e.AfterHash); err != nil {
		return fmt.Errorf("insert journal entry: %w", err)
	}
	return nil
}

// List returns matching entries newest first.
func (s *PostgresStore) List(ctx context.Context, path string, limit int) ([]Entry, error) {
	var lim *int
	if limit > 0 {
		lim = &limit
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, path, applied_at, edits, before_hash, after_hash
		FROM comment_journal
		WHERE $1 = '' OR path = $1
		ORDER BY applied_at DESC
		LIMIT $2;
	`, path, lim)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			id    string
			edits []byte
			e     Entry
		)
		if err := rows.Scan(&id, &e.Path, &e.AppliedAt, &edits, &e.BeforeHash, &e.AfterHash); err != nil {
			return nil, fmt.Errorf("scan journal row: %w", err)
		}
		if e.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse journal id %q: %w", id, err)
		}
		if err := json.Unmarshal(edits, &e.Edits); err != nil {
			return nil, fmt.Errorf("decode edits of %s: %w", id, err)
		}
		e.AppliedAt = e.AppliedAt.UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal rows: %w", err)
	}
	return entries, nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
