// Package adapter is the contract between sqlsnip and the databases it
// runs composed queries against.
//
// Concrete adapters live in pkg/adapters/ subdirectories and register
// themselves in init functions. Import them with a blank identifier:
//
//	import _ "github.com/leapstack-labs/sqlsnip/pkg/adapters/duckdb"
package adapter

import (
	"context"
	"database/sql"
)

// Config holds the configuration for connecting to a database.
type Config struct {
	// Type selects the adapter ("duckdb", "postgres", "sqlite").
	Type string

	// Path is the file path for file-based databases.
	// Empty or ":memory:" opens an in-memory database.
	Path string

	Host     string
	Port     int
	Database string
	Username string
	Password string

	// Schema is the default schema to use.
	Schema string

	// Options are flat driver options (e.g. sslmode).
	Options map[string]string

	// Params holds adapter-specific structured settings, decoded by each
	// adapter with mapstructure.
	Params map[string]any
}

// Rows wraps sql.Rows.
type Rows struct {
	*sql.Rows
}

// Adapter is implemented by every database backend.
type Adapter interface {
	// Connect establishes a connection using cfg.
	Connect(ctx context.Context, cfg Config) error

	// Close releases the connection.
	Close() error

	// Exec executes a statement that returns no rows.
	Exec(ctx context.Context, sql string) error

	// Query executes a statement that returns rows. The caller closes them.
	Query(ctx context.Context, sql string) (*Rows, error)

	// DialectName names the dialect used to pick identifier quoting.
	DialectName() string
}
