package schema

import (
	"database/sql"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func col(name, dataType string, nullable bool, def string) ColumnSchema {
	c := ColumnSchema{Name: name, DataType: dataType, IsNullable: nullable}
	if def != "" {
		c.DefaultValue = sql.NullString{String: def, Valid: true}
	}
	return c
}

func snapshot(shardID string, tables ...TableSchema) ShardSchema {
	return ShardSchema{ShardID: shardID, Tables: tables}
}

func TestCompareIdenticalSchemas(t *testing.T) {
	a := snapshot("s0", TableSchema{Name: "accounts", Columns: []ColumnSchema{col("id", "bigint", false, "")}})
	b := snapshot("s1", TableSchema{Name: "accounts", Columns: []ColumnSchema{col("id", "bigint", false, "")}})

	d := Compare(a, b, true)
	require.False(t, d.HasChanges())
	require.Equal(t, "schemas match", Describe(d))
}

func TestCompareTableLevel(t *testing.T) {
	a := snapshot("s0",
		TableSchema{Name: "accounts"},
		TableSchema{Name: "orders"},
	)
	b := snapshot("s1",
		TableSchema{Name: "accounts"},
		TableSchema{Name: "payments"},
	)

	d := Compare(a, b, false)
	require.Equal(t, []string{"orders"}, d.TablesOnlyInShard)
	require.Equal(t, []string{"payments"}, d.TablesOnlyInBaseline)
	require.Empty(t, d.Tables, "column diffs not requested")
}

func TestCompareSymmetry(t *testing.T) {
	a := snapshot("s0", TableSchema{Name: "accounts"}, TableSchema{Name: "orders"})
	b := snapshot("s1", TableSchema{Name: "accounts"}, TableSchema{Name: "payments"})

	ab := Compare(a, b, false)
	ba := Compare(b, a, false)

	require.Empty(t, cmp.Diff(ab.TablesOnlyInShard, ba.TablesOnlyInBaseline))
	require.Empty(t, cmp.Diff(ab.TablesOnlyInBaseline, ba.TablesOnlyInShard))
}

func TestCompareColumnLevel(t *testing.T) {
	a := snapshot("s0", TableSchema{Name: "accounts", Columns: []ColumnSchema{
		col("email", "text", true, ""),
		col("id", "bigint", false, ""),
		col("status", "varchar(16)", false, "'new'"),
	}})
	b := snapshot("s1", TableSchema{Name: "accounts", Columns: []ColumnSchema{
		col("id", "bigint", false, ""),
		col("legacy_flag", "boolean", false, "false"),
		col("status", "varchar(32)", true, "'fresh'"),
	}})

	d := Compare(a, b, true)
	require.True(t, d.HasChanges())

	td, ok := d.Tables["accounts"]
	require.True(t, ok)
	require.Equal(t, []string{"email"}, td.ColumnsOnlyInShard)
	require.Equal(t, []string{"legacy_flag"}, td.ColumnsOnlyInBaseline)
	require.Len(t, td.Changed, 1)
	require.Equal(t, "status", td.Changed[0].Name)

	out := Describe(d)
	require.Contains(t, out, "email")
	require.Contains(t, out, "legacy_flag")
	require.Contains(t, out, "status")
}

func TestCompareIgnoresCaseAndDefaultWhitespace(t *testing.T) {
	a := snapshot("s0", TableSchema{Name: "t", Columns: []ColumnSchema{col("c", "BIGINT", false, " 0 ")}})
	b := snapshot("s1", TableSchema{Name: "t", Columns: []ColumnSchema{col("c", "bigint", false, "0")}})

	d := Compare(a, b, true)
	require.False(t, d.HasChanges())
}

func TestCompareDistinguishesMissingAndEmptyDefault(t *testing.T) {
	a := snapshot("s0", TableSchema{Name: "t", Columns: []ColumnSchema{
		{Name: "c", DataType: "text", IsNullable: true},
	}})
	b := snapshot("s1", TableSchema{Name: "t", Columns: []ColumnSchema{
		{Name: "c", DataType: "text", IsNullable: true, DefaultValue: sql.NullString{String: "", Valid: true}},
	}})

	d := Compare(a, b, true)
	require.True(t, d.HasChanges())
	require.Len(t, d.Tables["t"].Changed, 1)
	require.Equal(t, "c", d.Tables["t"].Changed[0].Name)

	// Whitespace normalization applies within declared defaults, not across
	// the declared/undeclared boundary.
	b.Tables[0].Columns[0].DefaultValue = sql.NullString{String: " ", Valid: true}
	d = Compare(a, b, true)
	require.True(t, d.HasChanges())
}

func TestCompareNullabilityMismatch(t *testing.T) {
	a := snapshot("s0", TableSchema{Name: "t", Columns: []ColumnSchema{col("c", "text", true, "")}})
	b := snapshot("s1", TableSchema{Name: "t", Columns: []ColumnSchema{col("c", "text", false, "")}})

	d := Compare(a, b, true)
	require.Len(t, d.Tables["t"].Changed, 1)
}
