package dialect

import (
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Postgres targets PostgreSQL through the pgx stdlib driver.
type Postgres struct{}

func (Postgres) Name() string       { return "postgres" }
func (Postgres) DriverName() string { return "pgx" }

func (Postgres) ValidateDSN(dsn string) error {
	if strings.TrimSpace(dsn) == "" {
		return fmt.Errorf("empty postgres dsn")
	}
	return nil
}

func (Postgres) QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (Postgres) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }

func (Postgres) LimitClause(limit int) string { return fmt.Sprintf("LIMIT %d", limit) }

func (Postgres) DefaultSchema() string { return "public" }

func (Postgres) TableExistsQuery(schema, table string) (string, []any) {
	return `SELECT EXISTS (
SELECT 1 FROM information_schema.tables
WHERE table_schema=$1 AND table_name=$2 AND table_type='BASE TABLE')`, []any{schema, table}
}

func (Postgres) TablesQuery(schema string) (string, []any) {
	return `
SELECT table_name
FROM information_schema.tables
WHERE table_schema=$1 AND table_type='BASE TABLE'
ORDER BY table_name`, []any{schema}
}

func (Postgres) ColumnsQuery(schema string) (string, []any) {
	return `
SELECT table_name, column_name, data_type, is_nullable, column_default
FROM information_schema.columns
WHERE table_schema=$1
ORDER BY table_name, column_name`, []any{schema}
}

func (d Postgres) HistoryTableDDL(table string) string {
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	migration_id varchar(255) PRIMARY KEY,
	description varchar(255) NOT NULL,
	checksum varchar(128) NOT NULL,
	applied_at timestamptz NOT NULL,
	duration_ms bigint NOT NULL,
	rolled_back_at timestamptz
)`, d.QuoteIdent(table))
}
