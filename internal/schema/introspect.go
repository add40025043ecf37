// Package schema reads live schema metadata from shards and diffs snapshots.
// Introspection is the only part that touches a connection; Compare is a pure
// function over previously captured snapshots.
package schema

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"shardhub/internal/conn"
	"shardhub/internal/dialect"
)

// ColumnSchema describes one column of a user table.
type ColumnSchema struct {
	Name         string
	DataType     string
	IsNullable   bool
	DefaultValue sql.NullString
}

// TableSchema describes one user table; Columns are sorted by name.
type TableSchema struct {
	Name    string
	Columns []ColumnSchema
}

// ShardSchema is a point-in-time snapshot of one shard's user tables, sorted
// by table name. Snapshots are produced fresh on every call and never cached:
// the live schema can drift between calls.
type ShardSchema struct {
	ShardID    string
	Tables     []TableSchema
	SnapshotAt time.Time
}

// Table returns the named table of the snapshot, if present.
func (s ShardSchema) Table(name string) (TableSchema, bool) {
	i := sort.Search(len(s.Tables), func(i int) bool { return s.Tables[i].Name >= name })
	if i < len(s.Tables) && s.Tables[i].Name == name {
		return s.Tables[i], true
	}
	return TableSchema{}, false
}

// TableNames returns the snapshot's table names in order.
func (s ShardSchema) TableNames() []string {
	out := make([]string, len(s.Tables))
	for i, t := range s.Tables {
		out[i] = t.Name
	}
	return out
}

// ShardConnector yields a primary connection for a shard.
type ShardConnector interface {
	Connection(ctx context.Context, shardID string) (*conn.Conn, error)
}

// Introspector reads catalog metadata from shards through the injected
// dialect.
type Introspector struct {
	conns ShardConnector
	d     dialect.Dialect
	// schemaName overrides the dialect's default catalog schema when set.
	schemaName string
	now        func() time.Time
}

func NewIntrospector(conns ShardConnector, d dialect.Dialect, schemaName string) *Introspector {
	return &Introspector{
		conns:      conns,
		d:          d,
		schemaName: schemaName,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (in *Introspector) schema() string {
	if in.schemaName != "" {
		return in.schemaName
	}
	return in.d.DefaultSchema()
}

// Snapshot lists the shard's user tables and, when includeColumns is set,
// their columns. Tables and columns come back lexicographically sorted so
// diffs are stable.
func (in *Introspector) Snapshot(ctx context.Context, shardID string, includeColumns bool) (ShardSchema, error) {
	snapshot := ShardSchema{ShardID: shardID, SnapshotAt: in.now()}

	c, err := in.conns.Connection(ctx, shardID)
	if err != nil {
		return snapshot, err
	}
	defer c.Close()

	tables := map[string][]ColumnSchema{}

	query, args := in.d.TablesQuery(in.schema())
	rows, err := c.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return snapshot, fmt.Errorf("list tables on shard %s: %w", shardID, err)
	}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return snapshot, err
		}
		tables[name] = nil
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return snapshot, err
	}
	rows.Close()

	if includeColumns {
		query, args := in.d.ColumnsQuery(in.schema())
		colRows, err := c.DB.QueryContext(ctx, query, args...)
		if err != nil {
			return snapshot, fmt.Errorf("list columns on shard %s: %w", shardID, err)
		}
		for colRows.Next() {
			var tbl, col, dataType, nullable string
			var def sql.NullString
			if err := colRows.Scan(&tbl, &col, &dataType, &nullable, &def); err != nil {
				colRows.Close()
				return snapshot, err
			}
			if _, ok := tables[tbl]; !ok {
				continue
			}
			tables[tbl] = append(tables[tbl], ColumnSchema{
				Name:         col,
				DataType:     dataType,
				IsNullable:   strings.EqualFold(nullable, "YES"),
				DefaultValue: def,
			})
		}
		if err := colRows.Err(); err != nil {
			colRows.Close()
			return snapshot, err
		}
		colRows.Close()
	}

	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		cols := tables[name]
		sort.Slice(cols, func(i, j int) bool { return cols[i].Name < cols[j].Name })
		snapshot.Tables = append(snapshot.Tables, TableSchema{Name: name, Columns: cols})
	}
	return snapshot, nil
}
