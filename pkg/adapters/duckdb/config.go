package duckdb

// Params holds DuckDB-specific configuration, decoded from
// adapter.Config.Params with mapstructure.
type Params struct {
	// Extensions to install and load (e.g. "httpfs", "json").
	Extensions []string `mapstructure:"extensions"`

	// Settings applied with SET at connect time (e.g. memory_limit, threads).
	Settings map[string]string `mapstructure:"settings"`
}
