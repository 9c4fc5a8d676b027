package storage

import (
	"fmt"
	"strings"
)

// Dialect carries the driver name and the parameterized catalog queries of one engine.
type Dialect struct {
	Name   string
	Driver string

	tablesQuery  string
	tablesArgs   []any
	columnsQuery string
	// columnsArgs builds the bind arguments for columnsQuery.
	columnsArgs func(table string) []any
}

var (
	Postgres = Dialect{
		Name:   "postgres",
		Driver: "pgx",
		tablesQuery: `SELECT table_name FROM information_schema.tables
WHERE table_schema = $1 AND table_type = 'BASE TABLE'
ORDER BY table_name`,
		tablesArgs: []any{"public"},
		columnsQuery: `SELECT column_name FROM information_schema.columns
WHERE table_schema = $1 AND table_name = $2
ORDER BY ordinal_position`,
		columnsArgs: func(table string) []any { return []any{"public", table} },
	}

	DuckDB = Dialect{
		Name:   "duckdb",
		Driver: "duckdb",
		tablesQuery: `SELECT table_name FROM information_schema.tables
WHERE table_schema = ? AND table_type = 'BASE TABLE'
ORDER BY table_name`,
		tablesArgs: []any{"main"},
		columnsQuery: `SELECT column_name FROM information_schema.columns
WHERE table_schema = ? AND table_name = ?
ORDER BY ordinal_position`,
		columnsArgs: func(table string) []any { return []any{"main", table} },
	}

	SQLite = Dialect{
		Name:   "sqlite",
		Driver: "sqlite",
		tablesQuery: `SELECT name FROM sqlite_master
WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
ORDER BY name`,
		columnsQuery: `SELECT name FROM pragma_table_info(?) ORDER BY cid`,
		columnsArgs:  func(table string) []any { return []any{table} },
	}
)

// ParseDSN picks the dialect from the URL scheme and returns the DSN the driver expects.
func ParseDSN(dsn string) (Dialect, string, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return Dialect{}, "", fmt.Errorf("database url is required")
	}

	scheme, rest, ok := strings.Cut(dsn, "://")
	if !ok {
		if strings.HasPrefix(dsn, "file:") {
			return SQLite, dsn, nil
		}
		return Dialect{}, "", fmt.Errorf("database url %q has no scheme", dsn)
	}

	switch strings.ToLower(scheme) {
	case "postgres", "postgresql":
		return Postgres, dsn, nil
	case "duckdb":
		// An empty path opens an in-memory database.
		return DuckDB, rest, nil
	case "sqlite", "sqlite3":
		return SQLite, rest, nil
	default:
		return Dialect{}, "", fmt.Errorf("unsupported database scheme %q", scheme)
	}
}
