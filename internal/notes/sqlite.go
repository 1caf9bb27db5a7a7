package notes

import (
	"context"
	"database/sql"
	"fmt"
	"maps"
	"sync"
	"time"

	"spt3g-viewer/internal/domain"
)

// SQLite keeps notes in memory and upserts edited rows on Flush. Rows that
// failed to flush stay pending and are retried on the next Flush.
type SQLite struct {
	db *sql.DB

	mu      sync.Mutex
	notes   map[string]string
	pending map[string]struct{}
}

var _ domain.NotesRepository = (*SQLite)(nil)

// OpenSQLite loads every stored note from db. The notes table must exist;
// see db.OpenMigrated.
func OpenSQLite(ctx context.Context, db *sql.DB) (*SQLite, error) {
	rows, err := db.QueryContext(ctx, "SELECT source_name, body FROM notes")
	if err != nil {
		return nil, fmt.Errorf("load notes: %w", err)
	}
	defer rows.Close()

	s := &SQLite{
		db:      db,
		notes:   make(map[string]string),
		pending: make(map[string]struct{}),
	}
	for rows.Next() {
		var name, body string
		if err := rows.Scan(&name, &body); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		s.notes[name] = body
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load notes: %w", err)
	}
	return s, nil
}

func (s *SQLite) Get(source string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.notes[source]
	return text, ok
}

func (s *SQLite) Set(source, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes[source] = text
	s.pending[source] = struct{}{}
}

func (s *SQLite) All() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.notes)
}

// Flush writes all pending rows in one transaction.
func (s *SQLite) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO notes (source_name, body, updated_at)
VALUES (?, ?, ?)
ON CONFLICT(source_name) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for name := range s.pending {
		if _, err := stmt.ExecContext(ctx, name, s.notes[name], now); err != nil {
			return fmt.Errorf("upsert note %q: %w", name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	clear(s.pending)
	return nil
}
