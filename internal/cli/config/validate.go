package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/sqlsnip/pkg/adapter"
	"github.com/leapstack-labs/sqlsnip/pkg/dialect"
)

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendFiles, BackendSQLite, BackendNone:
	default:
		return fmt.Errorf("unknown backend %q (want %s, %s or %s)", c.Backend, BackendFiles, BackendSQLite, BackendNone)
	}
	if c.Backend == BackendFiles && c.SnippetsDir == "" {
		return fmt.Errorf("snippets_dir is required for the %s backend", BackendFiles)
	}
	if c.Backend == BackendSQLite && c.StatePath == "" {
		return fmt.Errorf("state_path is required for the %s backend", BackendSQLite)
	}
	if c.RowLimit < 0 {
		return fmt.Errorf("row_limit must not be negative")
	}
	if c.QueryTimeout < 0 {
		return fmt.Errorf("query_timeout must not be negative")
	}
	if c.Dialect != "" {
		if _, err := dialect.Lookup(c.Dialect); err != nil {
			return err
		}
	}
	if c.Target != nil {
		if err := c.Target.Validate(); err != nil {
			return fmt.Errorf("invalid target configuration: %w", err)
		}
	}
	return nil
}

// Validate checks that the target names a registered adapter.
func (t *TargetConfig) Validate() error {
	if t.Type == "" {
		return fmt.Errorf("target type is required")
	}
	if !adapter.IsRegistered(t.Type) {
		return &adapter.UnknownAdapterError{Type: t.Type, Available: adapter.ListAdapters()}
	}
	return nil
}

// ApplyTargetDefaults normalises the type and fills the default schema of
// its dialect. A target with only a database path gets a type inferred
// from the file extension.
func ApplyTargetDefaults(t *TargetConfig) {
	if t == nil {
		return
	}
	if t.Type == "" && t.Database != "" {
		t.Type = inferType(t.Database)
	}
	if canonical, ok := adapter.Canonical(t.Type); ok {
		t.Type = canonical
	} else {
		t.Type = strings.ToLower(t.Type)
	}
	if t.Schema == "" {
		if d, ok := dialect.Get(t.Type); ok {
			t.Schema = d.DefaultSchema
		}
	}
}

func inferType(database string) string {
	switch strings.ToLower(filepath.Ext(database)) {
	case ".duckdb", ".ddb":
		return "duckdb"
	default:
		return "sqlite"
	}
}

// AdapterConfig converts the target to an adapter configuration.
func (t *TargetConfig) AdapterConfig() adapter.Config {
	return adapter.Config{
		Type:     t.Type,
		Path:     t.Database,
		Database: t.Database,
		Host:     t.Host,
		Port:     t.Port,
		Username: t.User,
		Password: t.Password,
		Schema:   t.Schema,
		Options:  t.Options,
		Params:   t.Params,
	}
}
