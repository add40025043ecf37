// Package dialect isolates provider-specific SQL so the routing, migration
// and introspection logic can be written once. Each supported engine ships a
// Dialect; everything else in the subsystem is engine-agnostic.
package dialect

import (
	"fmt"
	"strings"
)

// Dialect is the injected per-engine capability: identifier quoting,
// placeholder style, pagination, existence checks and catalog queries.
type Dialect interface {
	// Name is the provider name as it appears in configuration.
	Name() string
	// DriverName is the database/sql driver to open connections with.
	DriverName() string
	// ValidateDSN rejects malformed connection strings before any dial.
	ValidateDSN(dsn string) error
	// QuoteIdent quotes a table or column identifier.
	QuoteIdent(name string) string
	// Placeholder renders the 1-based n-th bind parameter.
	Placeholder(n int) string
	// LimitClause renders a row-limit suffix for a query.
	LimitClause(limit int) string
	// DefaultSchema is the catalog schema introspection uses when the
	// configuration does not name one.
	DefaultSchema() string
	// TableExistsQuery returns an EXISTS-style query (plus bind args) that
	// yields one boolean row telling whether the table is present.
	TableExistsQuery(schema, table string) (string, []any)
	// TablesQuery returns a query (plus bind args) listing user table names,
	// excluding system and internal tables.
	TablesQuery(schema string) (string, []any)
	// ColumnsQuery returns a query (plus bind args) listing
	// (table, column, data type, is_nullable YES/NO, default) rows for every
	// user table.
	ColumnsQuery(schema string) (string, []any)
	// HistoryTableDDL returns the CREATE TABLE statement for the per-shard
	// migration bookkeeping table.
	HistoryTableDDL(table string) string
}

// ForProvider returns the dialect for a configured provider name.
func ForProvider(provider string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "postgres":
		return Postgres{}, nil
	case "mysql":
		return MySQL{}, nil
	case "sqlite":
		return SQLite{}, nil
	default:
		return nil, fmt.Errorf("unsupported provider %s", provider)
	}
}

// SplitStatements breaks a multi-statement script into single statements,
// honoring quoted strings, to avoid driver differences around
// multi-statement execution.
func SplitStatements(sqlText string) []string {
	var (
		out      []string
		current  strings.Builder
		inSingle bool
		inDouble bool
	)

	flush := func() {
		stmt := strings.TrimSpace(current.String())
		if stmt != "" {
			out = append(out, stmt)
		}
		current.Reset()
	}

	for _, r := range sqlText {
		switch r {
		case '\'':
			if !inDouble {
				inSingle = !inSingle
			}
		case '"':
			if !inSingle {
				inDouble = !inDouble
			}
		case ';':
			if !inSingle && !inDouble {
				flush()
				continue
			}
		}
		current.WriteRune(r)
	}
	flush()
	return out
}
