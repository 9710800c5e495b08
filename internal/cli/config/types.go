// Package config loads sqlsnip configuration.
//
// Values are layered, lowest to highest: built-in defaults, sqlsnip.yaml,
// SQLSNIP_* environment variables, then command-line flags. A named
// environment from the environments map can override the target and the
// snippet locations.
package config

import "time"

// Persistence backends.
const (
	BackendFiles  = "files"
	BackendSQLite = "sqlite"
	BackendNone   = "none"
)

// Default configuration values.
const (
	DefaultSnippetsDir = "snippets"
	DefaultStateFile   = ".sqlsnip/state.db"
	DefaultBackend     = BackendFiles
	DefaultOutput      = "auto" // TTY=text, non-TTY=markdown
	DefaultRowLimit    = 1000
)

// ConfigFileNames are searched, in order, in the project root.
var ConfigFileNames = []string{"sqlsnip.yaml", "sqlsnip.yml"}

// Config holds all CLI configuration options.
type Config struct {
	SnippetsDir  string               `koanf:"snippets_dir"`
	StatePath    string               `koanf:"state_path"`
	Backend      string               `koanf:"backend"`
	Dialect      string               `koanf:"dialect"`
	Environment  string               `koanf:"environment"`
	Verbose      bool                 `koanf:"verbose"`
	OutputFormat string               `koanf:"output"`
	RowLimit     int                  `koanf:"row_limit"`
	Watch        bool                 `koanf:"watch"`
	QueryTimeout time.Duration        `koanf:"query_timeout"`
	Target       *TargetConfig        `koanf:"target"`
	Environments map[string]EnvConfig `koanf:"environments"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
}

// TargetConfig describes the database queries run against.
type TargetConfig struct {
	Type     string            `koanf:"type"`
	Database string            `koanf:"database"`
	Host     string            `koanf:"host"`
	Port     int               `koanf:"port"`
	User     string            `koanf:"user"`
	Password string            `koanf:"password"`
	Schema   string            `koanf:"schema"`
	Options  map[string]string `koanf:"options"`
	Params   map[string]any    `koanf:"params"`
}

// EnvConfig holds environment-specific overrides.
type EnvConfig struct {
	SnippetsDir string        `koanf:"snippets_dir"`
	StatePath   string        `koanf:"state_path"`
	Backend     string        `koanf:"backend"`
	Target      *TargetConfig `koanf:"target"`
}

// DialectName returns the dialect used to render queries: the explicit
// dialect setting, else the target type.
func (c *Config) DialectName() string {
	if c.Dialect != "" {
		return c.Dialect
	}
	if c.Target != nil {
		return c.Target.Type
	}
	return ""
}
