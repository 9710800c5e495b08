package dialect

// Backtick support follows each engine's tokenizer: MySQL-family, SQLite,
// BigQuery, ClickHouse and the Spark/Hive family accept `name`; the rest
// only accept double quotes (or brackets, for SQL Server).
func init() {
	for _, d := range []*Dialect{
		{Name: "duckdb", DefaultSchema: "main"},
		{Name: "postgres", Aliases: []string{"postgresql", "pgx"}, DefaultSchema: "public"},
		{Name: "redshift", DefaultSchema: "public"},
		{Name: "snowflake", DefaultSchema: "PUBLIC"},
		{Name: "trino", Aliases: []string{"presto"}},
		{Name: "oracle"},
		{Name: "mssql", Aliases: []string{"sqlserver", "tsql"}, DefaultSchema: "dbo"},
		{Name: "sqlite", Aliases: []string{"sqlite3"}, BacktickIdentifiers: true, DefaultSchema: "main"},
		{Name: "mysql", BacktickIdentifiers: true},
		{Name: "mariadb", BacktickIdentifiers: true},
		{Name: "bigquery", BacktickIdentifiers: true},
		{Name: "clickhouse", BacktickIdentifiers: true, DefaultSchema: "default"},
		{Name: "databricks", Aliases: []string{"spark", "hive"}, BacktickIdentifiers: true, DefaultSchema: "default"},
	} {
		Register(d)
	}
}
