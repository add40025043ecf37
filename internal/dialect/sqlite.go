package dialect

import (
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite targets SQLite files, mostly used in local development and tests.
type SQLite struct{}

func (SQLite) Name() string       { return "sqlite" }
func (SQLite) DriverName() string { return "sqlite3" }

func (SQLite) ValidateDSN(dsn string) error {
	if strings.TrimSpace(dsn) == "" {
		return fmt.Errorf("empty sqlite dsn")
	}
	return nil
}

func (SQLite) QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (SQLite) Placeholder(int) string { return "?" }

func (SQLite) LimitClause(limit int) string { return fmt.Sprintf("LIMIT %d", limit) }

// DefaultSchema is empty: a SQLite database file has a single namespace.
func (SQLite) DefaultSchema() string { return "" }

func (SQLite) TableExistsQuery(_, table string) (string, []any) {
	return `SELECT EXISTS (
SELECT 1 FROM sqlite_master WHERE type='table' AND name=?)`, []any{table}
}

func (SQLite) TablesQuery(string) (string, []any) {
	return `
SELECT name
FROM sqlite_master
WHERE type='table' AND name NOT LIKE 'sqlite_%'
ORDER BY name`, nil
}

// ColumnsQuery joins sqlite_master with the pragma_table_info table-valued
// function so a single query covers every user table, mirroring the
// information_schema shape of the other engines.
func (SQLite) ColumnsQuery(string) (string, []any) {
	return `
SELECT m.name, p.name, p.type,
	CASE WHEN p."notnull" = 0 THEN 'YES' ELSE 'NO' END,
	p.dflt_value
FROM sqlite_master m
JOIN pragma_table_info(m.name) p
WHERE m.type='table' AND m.name NOT LIKE 'sqlite_%'
ORDER BY m.name, p.name`, nil
}

func (d SQLite) HistoryTableDDL(table string) string {
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	migration_id text PRIMARY KEY,
	description text NOT NULL,
	checksum text NOT NULL,
	applied_at timestamp NOT NULL,
	duration_ms integer NOT NULL,
	rolled_back_at timestamp
)`, d.QuoteIdent(table))
}
