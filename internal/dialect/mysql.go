package dialect

import (
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// MySQL targets MySQL and MariaDB through go-sql-driver.
type MySQL struct{}

func (MySQL) Name() string       { return "mysql" }
func (MySQL) DriverName() string { return "mysql" }

// ValidateDSN parses the DSN eagerly to produce actionable errors before the
// first dial.
func (MySQL) ValidateDSN(dsn string) error {
	if _, err := mysql.ParseDSN(dsn); err != nil {
		return fmt.Errorf("invalid mysql dsn: %w", err)
	}
	return nil
}

func (MySQL) QuoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (MySQL) Placeholder(int) string { return "?" }

func (MySQL) LimitClause(limit int) string { return fmt.Sprintf("LIMIT %d", limit) }

// DefaultSchema is empty: MySQL scopes the catalog to the schema named in the
// DSN, resolved with DATABASE() at query time.
func (MySQL) DefaultSchema() string { return "" }

func (MySQL) TableExistsQuery(schema, table string) (string, []any) {
	if schema == "" {
		return `SELECT EXISTS (
SELECT 1 FROM information_schema.tables
WHERE table_schema=DATABASE() AND table_name=? AND table_type='BASE TABLE')`, []any{table}
	}
	return `SELECT EXISTS (
SELECT 1 FROM information_schema.tables
WHERE table_schema=? AND table_name=? AND table_type='BASE TABLE')`, []any{schema, table}
}

func (MySQL) TablesQuery(schema string) (string, []any) {
	if schema == "" {
		return `
SELECT table_name
FROM information_schema.tables
WHERE table_schema=DATABASE() AND table_type='BASE TABLE'
ORDER BY table_name`, nil
	}
	return `
SELECT table_name
FROM information_schema.tables
WHERE table_schema=? AND table_type='BASE TABLE'
ORDER BY table_name`, []any{schema}
}

func (MySQL) ColumnsQuery(schema string) (string, []any) {
	if schema == "" {
		return `
SELECT table_name, column_name, column_type, is_nullable, column_default
FROM information_schema.columns
WHERE table_schema=DATABASE()
ORDER BY table_name, column_name`, nil
	}
	return `
SELECT table_name, column_name, column_type, is_nullable, column_default
FROM information_schema.columns
WHERE table_schema=?
ORDER BY table_name, column_name`, []any{schema}
}

func (d MySQL) HistoryTableDDL(table string) string {
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	migration_id varchar(255) PRIMARY KEY,
	description varchar(255) NOT NULL,
	checksum varchar(128) NOT NULL,
	applied_at datetime(6) NOT NULL,
	duration_ms bigint NOT NULL,
	rolled_back_at datetime(6) NULL
) ENGINE=InnoDB`, d.QuoteIdent(table))
}
