// Package sqlite provides the SQLite adapter, built on the pure-Go
// modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"log/slog"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/leapstack-labs/sqlsnip/pkg/adapter"
)

func init() {
	adapter.Register("sqlite", func(logger *slog.Logger) adapter.Adapter { return New(logger) }, "sqlite3")
}

// Adapter implements adapter.Adapter for SQLite.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new SQLite adapter instance.
func New(logger *slog.Logger) *Adapter {
	return &Adapter{BaseSQLAdapter: adapter.NewBase(logger)}
}

// DialectName returns the SQL dialect for this adapter.
func (a *Adapter) DialectName() string {
	return "sqlite"
}

// Connect opens the database file at cfg.Path, or an in-memory database
// when the path is empty or ":memory:".
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	a.Logger.Debug("connecting to sqlite", slog.String("path", path))
	if err := a.Open(ctx, "sqlite", path, cfg); err != nil {
		return err
	}
	// every connection to :memory: is a separate database
	if path == ":memory:" {
		a.DB.SetMaxOpenConns(1)
	}
	return nil
}

var _ adapter.Adapter = (*Adapter)(nil)
