package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/leapstack-labs/sqlsnip/internal/dag"
	"github.com/leapstack-labs/sqlsnip/internal/snippet"
)

// SQLiteStore persists snippets in SQLite.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite state store instance.
func NewSQLiteStore(logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &SQLiteStore{logger: logger}
}

// NewWithDB wraps an existing connection. The schema is not migrated.
func NewWithDB(db *sql.DB, logger *slog.Logger) *SQLiteStore {
	s := NewSQLiteStore(logger)
	s.db = db
	return s
}

// Open opens the database at path and migrates it.
// Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	dsn := ":memory:?_pragma=foreign_keys(1)"
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return fmt.Errorf("failed to create state directory: %w", err)
			}
		}
		dsn = fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// every connection to :memory: is a separate database
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s.db = db
	s.path = path
	if err := s.Migrate(); err != nil {
		_ = db.Close()
		s.db = nil
		return err
	}

	s.logger.Debug("state database opened", "path", path)
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveSnippet inserts or replaces a snippet and its dependency list.
func (s *SQLiteStore) SaveSnippet(ctx context.Context, f snippet.Fragment) error {
	if s.db == nil {
		return ErrNotOpened
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO snippets (name, body, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		f.Name, f.Body, now, now); err != nil {
		return fmt.Errorf("failed to save snippet: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM snippet_dependencies WHERE name = ?`, f.Name); err != nil {
		return fmt.Errorf("failed to delete existing dependencies: %w", err)
	}
	for i, dep := range f.Dependencies {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO snippet_dependencies (name, position, depends_on) VALUES (?, ?, ?)`,
			f.Name, i, dep); err != nil {
			return fmt.Errorf("failed to insert dependency: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snippet: %w", err)
	}
	return nil
}

// GetSnippet returns one persisted snippet.
func (s *SQLiteStore) GetSnippet(ctx context.Context, name string) (*Snippet, error) {
	if s.db == nil {
		return nil, ErrNotOpened
	}

	sn := &Snippet{}
	err := s.db.QueryRowContext(ctx,
		`SELECT name, body, created_at, updated_at FROM snippets WHERE name = ?`, name,
	).Scan(&sn.Name, &sn.Body, &sn.CreatedAt, &sn.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSnippetNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snippet: %w", err)
	}

	deps, err := s.dependencies(ctx)
	if err != nil {
		return nil, err
	}
	sn.Dependencies = deps[name]
	return sn, nil
}

// ListSnippets returns every persisted snippet in insertion order.
func (s *SQLiteStore) ListSnippets(ctx context.Context) ([]*Snippet, error) {
	if s.db == nil {
		return nil, ErrNotOpened
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT name, body, created_at, updated_at FROM snippets ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to list snippets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var snippets []*Snippet
	for rows.Next() {
		sn := &Snippet{}
		if err := rows.Scan(&sn.Name, &sn.Body, &sn.CreatedAt, &sn.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan snippet: %w", err)
		}
		snippets = append(snippets, sn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list snippets: %w", err)
	}

	deps, err := s.dependencies(ctx)
	if err != nil {
		return nil, err
	}
	for _, sn := range snippets {
		sn.Dependencies = deps[sn.Name]
	}
	return snippets, nil
}

// dependencies returns every dependency list keyed by snippet name.
func (s *SQLiteStore) dependencies(ctx context.Context) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, depends_on FROM snippet_dependencies ORDER BY name, position`)
	if err != nil {
		return nil, fmt.Errorf("failed to list dependencies: %w", err)
	}
	defer func() { _ = rows.Close() }()

	deps := make(map[string][]string)
	for rows.Next() {
		var name, dependsOn string
		if err := rows.Scan(&name, &dependsOn); err != nil {
			return nil, fmt.Errorf("failed to scan dependency: %w", err)
		}
		deps[name] = append(deps[name], dependsOn)
	}
	return deps, rows.Err()
}

// DeleteSnippets removes the named snippets. Unknown names are ignored.
func (s *SQLiteStore) DeleteSnippets(ctx context.Context, names ...string) error {
	if s.db == nil {
		return ErrNotOpened
	}
	if len(names) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(names)), ",")
	args := make([]any, len(names))
	for i, n := range names {
		args[i] = n
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM snippet_dependencies WHERE name IN (`+placeholders+`)`, args...); err != nil {
		return fmt.Errorf("failed to delete dependencies: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM snippets WHERE name IN (`+placeholders+`)`, args...); err != nil {
		return fmt.Errorf("failed to delete snippets: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}

// LoadInto stores every persisted snippet into store, dependencies first.
func (s *SQLiteStore) LoadInto(ctx context.Context, store *snippet.Store) ([]string, error) {
	snippets, err := s.ListSnippets(ctx)
	if err != nil {
		return nil, err
	}
	fragments := make([]snippet.Fragment, len(snippets))
	for i, sn := range snippets {
		fragments[i] = sn.Fragment
	}
	return dag.SaveAll(store, fragments)
}

// Save persists the named snippet from store.
func (s *SQLiteStore) Save(ctx context.Context, store *snippet.Store, name string) error {
	f, err := store.Get(name)
	if err != nil {
		return err
	}
	return s.SaveSnippet(ctx, *f)
}

// Remove deletes the named snippets.
func (s *SQLiteStore) Remove(ctx context.Context, names ...string) error {
	return s.DeleteSnippets(ctx, names...)
}
