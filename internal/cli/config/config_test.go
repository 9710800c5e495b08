package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/leapstack-labs/sqlsnip/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/sqlsnip/pkg/adapters/sqlite"
)

// projectDir creates a temp project with the given sqlsnip.yaml content
// (none when empty) and makes it the working directory.
func projectDir(t *testing.T, yaml string) string {
	t.Helper()
	dir := t.TempDir()
	if yaml != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "sqlsnip.yaml"), []byte(yaml), 0o644))
	}
	t.Chdir(dir)
	t.Cleanup(ResetConfig)
	return dir
}

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("snippets-dir", "", "")
	fs.String("state", "", "")
	fs.String("backend", "", "")
	fs.String("database", "", "")
	fs.String("dialect", "", "")
	fs.String("output", "", "")
	fs.Int("row-limit", 0, "")
	fs.Bool("verbose", false, "")
	return fs
}

func TestLoadConfig_Defaults(t *testing.T) {
	dir := projectDir(t, "")

	cfg, err := LoadConfig("", "", nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, DefaultSnippetsDir), cfg.SnippetsDir)
	assert.Equal(t, filepath.Join(dir, DefaultStateFile), cfg.StatePath)
	assert.Equal(t, BackendFiles, cfg.Backend)
	assert.Equal(t, DefaultOutput, cfg.OutputFormat)
	assert.Equal(t, DefaultRowLimit, cfg.RowLimit)
	assert.Nil(t, cfg.Target)
	assert.Empty(t, cfg.DialectName())
	assert.Empty(t, GetConfigFileUsed())
	assert.Same(t, cfg, GetCurrentConfig())
}

func TestLoadConfig_File(t *testing.T) {
	dir := projectDir(t, `
snippets_dir: sql/snippets
backend: sqlite
row_limit: 50
query_timeout: 30s
target:
  type: postgres
  host: localhost
  port: 5432
  database: analytics
  options:
    sslmode: require
`)

	cfg, err := LoadConfig("", "", nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "sqlsnip.yaml"), GetConfigFileUsed())
	assert.Equal(t, filepath.Join(dir, "sql", "snippets"), cfg.SnippetsDir)
	assert.Equal(t, BackendSQLite, cfg.Backend)
	assert.Equal(t, 50, cfg.RowLimit)
	assert.Equal(t, 30*time.Second, cfg.QueryTimeout)
	require.NotNil(t, cfg.Target)
	assert.Equal(t, "postgres", cfg.Target.Type)
	assert.Equal(t, 5432, cfg.Target.Port)
	assert.Equal(t, "public", cfg.Target.Schema)
	assert.Equal(t, "require", cfg.Target.Options["sslmode"])
	assert.Equal(t, "postgres", cfg.DialectName())
}

func TestLoadConfig_FoundUpward(t *testing.T) {
	dir := projectDir(t, "backend: none\n")
	nested := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	t.Chdir(nested)

	cfg, err := LoadConfig("", "", nil)
	require.NoError(t, err)
	assert.Equal(t, BackendNone, cfg.Backend)
	assert.Equal(t, filepath.Join(dir, DefaultSnippetsDir), cfg.SnippetsDir)
}

func TestLoadConfig_Precedence(t *testing.T) {
	dir := projectDir(t, "backend: sqlite\nrow_limit: 10\ndialect: duckdb\n")
	t.Setenv("SQLSNIP_ROW_LIMIT", "20")
	t.Setenv("SQLSNIP_DIALECT", "bigquery")

	flags := testFlags()
	require.NoError(t, flags.Parse([]string{"--row-limit", "30", "--snippets-dir", "mine"}))

	cfg, err := LoadConfig("", "", flags)
	require.NoError(t, err)

	assert.Equal(t, BackendSQLite, cfg.Backend, "file value kept")
	assert.Equal(t, "bigquery", cfg.Dialect, "env overrides file")
	assert.Equal(t, 30, cfg.RowLimit, "flag overrides env")
	assert.Equal(t, filepath.Join(dir, "mine"), cfg.SnippetsDir)
}

func TestLoadConfig_EnvTarget(t *testing.T) {
	projectDir(t, "")
	t.Setenv("SQLSNIP_TARGET_TYPE", "postgres")
	t.Setenv("SQLSNIP_TARGET_HOST", "db.internal")
	t.Setenv("PGPASS_FOR_TEST", "s3cret")
	t.Setenv("SQLSNIP_TARGET_PASSWORD", "${PGPASS_FOR_TEST}")

	cfg, err := LoadConfig("", "", nil)
	require.NoError(t, err)
	require.NotNil(t, cfg.Target)
	assert.Equal(t, "db.internal", cfg.Target.Host)
	assert.Equal(t, "s3cret", cfg.Target.Password)
}

func TestLoadConfig_DatabaseFlagInfersType(t *testing.T) {
	dir := projectDir(t, "")
	flags := testFlags()
	require.NoError(t, flags.Parse([]string{"--database", "local.db"}))

	cfg, err := LoadConfig("", "", flags)
	require.NoError(t, err)
	require.NotNil(t, cfg.Target)
	assert.Equal(t, "sqlite", cfg.Target.Type)
	assert.Equal(t, filepath.Join(dir, "local.db"), cfg.Target.Database)
	assert.Equal(t, "sqlite", cfg.DialectName())
}

func TestLoadConfig_Environment(t *testing.T) {
	projectDir(t, `
target:
  type: sqlite
  database: dev.db
environments:
  prod:
    backend: sqlite
    target:
      type: postgres
      host: prod.internal
`)

	cfg, err := LoadConfig("", "prod", nil)
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, cfg.Backend)
	assert.Equal(t, "postgres", cfg.Target.Type)
	assert.Equal(t, "prod.internal", cfg.Target.Host)

	_, err = LoadConfig("", "staging", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `environment "staging" is not defined`)
}

func TestLoadConfig_ExplicitFile(t *testing.T) {
	projectDir(t, "")
	other := t.TempDir()
	path := filepath.Join(other, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("snippets_dir: s\n"), 0o644))

	cfg, err := LoadConfig(path, "", nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(other, "s"), cfg.SnippetsDir)

	_, err = LoadConfig(filepath.Join(other, "missing.yaml"), "", nil)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		errSubstr string
	}{
		{
			name: "valid files backend",
			cfg:  Config{Backend: BackendFiles, SnippetsDir: "s"},
		},
		{
			name:      "unknown backend",
			cfg:       Config{Backend: "s3"},
			errSubstr: `unknown backend "s3"`,
		},
		{
			name:      "files backend needs dir",
			cfg:       Config{Backend: BackendFiles},
			errSubstr: "snippets_dir is required",
		},
		{
			name:      "sqlite backend needs path",
			cfg:       Config{Backend: BackendSQLite},
			errSubstr: "state_path is required",
		},
		{
			name:      "negative limit",
			cfg:       Config{Backend: BackendNone, RowLimit: -1},
			errSubstr: "row_limit must not be negative",
		},
		{
			name:      "unknown dialect",
			cfg:       Config{Backend: BackendNone, Dialect: "cobol"},
			errSubstr: "cobol",
		},
		{
			name:      "unknown adapter",
			cfg:       Config{Backend: BackendNone, Target: &TargetConfig{Type: "oracle"}},
			errSubstr: "unknown adapter type",
		},
		{
			name:      "empty target type",
			cfg:       Config{Backend: BackendNone, Target: &TargetConfig{}},
			errSubstr: "target type is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.errSubstr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestApplyTargetDefaults(t *testing.T) {
	tests := []struct {
		name       string
		target     TargetConfig
		wantType   string
		wantSchema string
	}{
		{"postgres schema", TargetConfig{Type: "Postgres"}, "postgres", "public"},
		{"alias canonicalised", TargetConfig{Type: "postgresql"}, "postgres", "public"},
		{"duckdb from extension", TargetConfig{Database: "warehouse.duckdb"}, "duckdb", "main"},
		{"sqlite from extension", TargetConfig{Database: "app.db"}, "sqlite", "main"},
		{"schema kept", TargetConfig{Type: "postgres", Schema: "analytics"}, "postgres", "analytics"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := tt.target
			ApplyTargetDefaults(&target)
			assert.Equal(t, tt.wantType, target.Type)
			assert.Equal(t, tt.wantSchema, target.Schema)
		})
	}
}

func TestMergeTargetConfig(t *testing.T) {
	base := &TargetConfig{Type: "sqlite", Database: "a.db", Options: map[string]string{"x": "1"}}
	override := &TargetConfig{Database: "b.db", Options: map[string]string{"y": "2"}}

	merged := MergeTargetConfig(base, override)
	assert.Equal(t, "sqlite", merged.Type)
	assert.Equal(t, "b.db", merged.Database)
	assert.Equal(t, map[string]string{"x": "1", "y": "2"}, merged.Options)
	assert.Equal(t, "a.db", base.Database, "base untouched")

	assert.Same(t, override, MergeTargetConfig(nil, override))
	assert.Same(t, base, MergeTargetConfig(base, nil))
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "snippets_dir", envKey("SQLSNIP_SNIPPETS_DIR"))
	assert.Equal(t, "target.host", envKey("SQLSNIP_TARGET_HOST"))
}
