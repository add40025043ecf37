package schema

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Diff describes how a shard's schema deviates from a baseline shard's.
type Diff struct {
	ShardID    string
	BaselineID string
	// Table-level symmetric difference.
	TablesOnlyInShard    []string
	TablesOnlyInBaseline []string
	// Per common table column differences, keyed by table name. Only tables
	// with actual differences appear.
	Tables map[string]TableDiff
}

// TableDiff captures column-level differences for one table present on both
// sides.
type TableDiff struct {
	ColumnsOnlyInShard    []string
	ColumnsOnlyInBaseline []string
	Changed               []ColumnChange
}

// ColumnChange marks a column present on both sides with differing type,
// nullability or default.
type ColumnChange struct {
	Name     string
	Shard    ColumnSchema
	Baseline ColumnSchema
}

// HasChanges reports whether the diff contains meaningful differences.
func (d Diff) HasChanges() bool {
	return len(d.TablesOnlyInShard) > 0 || len(d.TablesOnlyInBaseline) > 0 || len(d.Tables) > 0
}

// Compare diffs two previously captured snapshots without touching either
// shard. Table lists mirror each other when the arguments are swapped.
func Compare(shard, baseline ShardSchema, includeColumnDiffs bool) Diff {
	d := Diff{
		ShardID:    shard.ShardID,
		BaselineID: baseline.ShardID,
		Tables:     map[string]TableDiff{},
	}

	d.TablesOnlyInShard = difference(shard.TableNames(), baseline.TableNames())
	d.TablesOnlyInBaseline = difference(baseline.TableNames(), shard.TableNames())

	if !includeColumnDiffs {
		return d
	}

	for _, table := range shard.Tables {
		baseTable, ok := baseline.Table(table.Name)
		if !ok {
			continue
		}
		td := TableDiff{
			ColumnsOnlyInShard:    difference(columnNames(table), columnNames(baseTable)),
			ColumnsOnlyInBaseline: difference(columnNames(baseTable), columnNames(table)),
		}
		for _, col := range table.Columns {
			baseCol, ok := findColumn(baseTable, col.Name)
			if !ok {
				continue
			}
			if !columnsEqual(col, baseCol) {
				td.Changed = append(td.Changed, ColumnChange{Name: col.Name, Shard: col, Baseline: baseCol})
			}
		}
		if len(td.ColumnsOnlyInShard) > 0 || len(td.ColumnsOnlyInBaseline) > 0 || len(td.Changed) > 0 {
			d.Tables[table.Name] = td
		}
	}
	return d
}

// ComparisonError identifies which side of a comparison failed to introspect.
type ComparisonError struct {
	Side    string // "shard" or "baseline"
	ShardID string
	Err     error
}

func (e *ComparisonError) Error() string {
	return fmt.Sprintf("schema comparison: introspect %s side (%s): %v", e.Side, e.ShardID, e.Err)
}

func (e *ComparisonError) Unwrap() error { return e.Err }

// Comparer introspects two shards and diffs the results.
type Comparer struct {
	introspector *Introspector
}

func NewComparer(in *Introspector) *Comparer {
	return &Comparer{introspector: in}
}

// CompareShards snapshots both shards concurrently and diffs them. An
// introspection failure names the failing side; cancellation propagates
// unwrapped.
func (c *Comparer) CompareShards(ctx context.Context, shardID, baselineID string, includeColumnDiffs bool) (Diff, error) {
	var shardSchema, baselineSchema ShardSchema

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := c.introspector.Snapshot(gctx, shardID, includeColumnDiffs)
		if err != nil {
			return sideError(gctx, "shard", shardID, err)
		}
		shardSchema = s
		return nil
	})
	g.Go(func() error {
		s, err := c.introspector.Snapshot(gctx, baselineID, includeColumnDiffs)
		if err != nil {
			return sideError(gctx, "baseline", baselineID, err)
		}
		baselineSchema = s
		return nil
	})
	if err := g.Wait(); err != nil {
		return Diff{}, err
	}
	return Compare(shardSchema, baselineSchema, includeColumnDiffs), nil
}

func sideError(ctx context.Context, side, shardID string, err error) error {
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return err
	}
	return &ComparisonError{Side: side, ShardID: shardID, Err: err}
}

// Describe renders a human-readable summary of a diff.
func Describe(d Diff) string {
	if !d.HasChanges() {
		return "schemas match"
	}

	var lines []string
	if len(d.TablesOnlyInShard) > 0 {
		lines = append(lines, fmt.Sprintf("Tables only on %s: %s", d.ShardID, strings.Join(d.TablesOnlyInShard, ", ")))
	}
	if len(d.TablesOnlyInBaseline) > 0 {
		lines = append(lines, fmt.Sprintf("Tables only on %s: %s", d.BaselineID, strings.Join(d.TablesOnlyInBaseline, ", ")))
	}

	names := make([]string, 0, len(d.Tables))
	for name := range d.Tables {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		td := d.Tables[name]
		if len(td.ColumnsOnlyInShard) > 0 {
			lines = append(lines, fmt.Sprintf("Table %s: columns only on %s: %s", name, d.ShardID, strings.Join(td.ColumnsOnlyInShard, ", ")))
		}
		if len(td.ColumnsOnlyInBaseline) > 0 {
			lines = append(lines, fmt.Sprintf("Table %s: columns only on %s: %s", name, d.BaselineID, strings.Join(td.ColumnsOnlyInBaseline, ", ")))
		}
		for _, ch := range td.Changed {
			lines = append(lines, fmt.Sprintf("Table %s column %s differs (%s: %s NULL:%v DEFAULT:%s | %s: %s NULL:%v DEFAULT:%s)",
				name, ch.Name,
				d.ShardID, ch.Shard.DataType, ch.Shard.IsNullable, normalizeDefault(ch.Shard.DefaultValue.String),
				d.BaselineID, ch.Baseline.DataType, ch.Baseline.IsNullable, normalizeDefault(ch.Baseline.DefaultValue.String)))
		}
	}
	return strings.Join(lines, "\n")
}

func columnsEqual(a, b ColumnSchema) bool {
	if !strings.EqualFold(a.DataType, b.DataType) || a.IsNullable != b.IsNullable {
		return false
	}
	// "no default" and "empty-string default" are different declarations.
	if a.DefaultValue.Valid != b.DefaultValue.Valid {
		return false
	}
	return !a.DefaultValue.Valid ||
		normalizeDefault(a.DefaultValue.String) == normalizeDefault(b.DefaultValue.String)
}

func normalizeDefault(val string) string {
	return strings.TrimSpace(val)
}

func columnNames(t TableSchema) []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

func findColumn(t TableSchema, name string) (ColumnSchema, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnSchema{}, false
}

func difference(a, b []string) []string {
	set := make(map[string]struct{}, len(b))
	for _, v := range b {
		set[v] = struct{}{}
	}
	var out []string
	for _, v := range a {
		if _, ok := set[v]; !ok {
			out = append(out, v)
		}
	}
	return out
}
