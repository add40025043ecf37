package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"shardhub/internal/conn"
	"shardhub/internal/dialect"
)

var (
	// ErrChecksumMismatch means an already-applied script's body no longer
	// matches the checksum recorded in history.
	ErrChecksumMismatch = errors.New("migration checksum mismatch")
	// ErrNotApplied means a rollback was requested for a migration with no
	// un-rolled-back history row on that shard.
	ErrNotApplied = errors.New("migration was never applied on this shard")
)

// MigrationError carries the shard and migration a DDL or bookkeeping failure
// belongs to. Op is "apply" or "rollback".
type MigrationError struct {
	Op          string
	ShardID     string
	MigrationID string
	Err         error
}

func (e *MigrationError) Error() string {
	if e.MigrationID == "" {
		return fmt.Sprintf("%s on shard %s: %v", e.Op, e.ShardID, e.Err)
	}
	return fmt.Sprintf("%s migration %s on shard %s: %v", e.Op, e.MigrationID, e.ShardID, e.Err)
}

func (e *MigrationError) Unwrap() error { return e.Err }

// HistoryEntry is one persisted row of a shard's migration bookkeeping table.
// Rows are appended on apply and never deleted; rollback only stamps
// RolledBackAt.
type HistoryEntry struct {
	MigrationID  string
	Description  string
	Checksum     string
	AppliedAt    time.Time
	DurationMs   int64
	RolledBackAt sql.NullTime
}

// ShardConnector yields a primary connection for a shard. Migrations never
// run against replicas.
type ShardConnector interface {
	Connection(ctx context.Context, shardID string) (*conn.Conn, error)
}

// Clock supplies timestamps for history rows; swapped out in tests.
type Clock func() time.Time

// Logger is the slice of slog the executor uses.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Options tunes an Executor.
type Options struct {
	// Table is the per-shard bookkeeping table name. Empty means
	// "shard_migrations".
	Table  string
	Clock  Clock
	Logger Logger
}

// Executor runs DDL against individual shards and records every transition in
// the per-shard history table, which it treats as the single source of truth
// for "has this migration run here".
type Executor struct {
	conns  ShardConnector
	d      dialect.Dialect
	table  string
	now    Clock
	logger Logger
}

const DefaultHistoryTable = "shard_migrations"

func NewExecutor(conns ShardConnector, d dialect.Dialect, opts Options) *Executor {
	if opts.Table == "" {
		opts.Table = DefaultHistoryTable
	}
	if opts.Clock == nil {
		opts.Clock = func() time.Time { return time.Now().UTC() }
	}
	if opts.Logger == nil {
		opts.Logger = nopLogger{}
	}
	return &Executor{
		conns:  conns,
		d:      d,
		table:  opts.Table,
		now:    opts.Clock,
		logger: opts.Logger,
	}
}

// withShard runs fn against a freshly opened primary connection to the shard.
func (e *Executor) withShard(ctx context.Context, shardID string, fn func(db *sql.DB) error) error {
	c, err := e.conns.Connection(ctx, shardID)
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(c.DB)
}

// EnsureHistoryTable creates the shard's bookkeeping table when missing.
// Safe to call unconditionally before any other operation.
func (e *Executor) EnsureHistoryTable(ctx context.Context, shardID string) error {
	return e.withShard(ctx, shardID, func(db *sql.DB) error {
		return e.ensureTable(ctx, db, shardID)
	})
}

func (e *Executor) ensureTable(ctx context.Context, db *sql.DB, shardID string) error {
	query, args := e.d.TableExistsQuery(e.d.DefaultSchema(), e.table)
	var exists bool
	if err := db.QueryRowContext(ctx, query, args...).Scan(&exists); err != nil {
		return e.wrap(ctx, "apply", shardID, "", fmt.Errorf("check history table: %w", err))
	}
	if exists {
		return nil
	}
	if _, err := db.ExecContext(ctx, e.d.HistoryTableDDL(e.table)); err != nil {
		return e.wrap(ctx, "apply", shardID, "", fmt.Errorf("create history table: %w", err))
	}
	return nil
}

// Applied returns the ids of migrations applied and not rolled back on the
// shard, in original apply order.
func (e *Executor) Applied(ctx context.Context, shardID string) ([]string, error) {
	var ids []string
	err := e.withShard(ctx, shardID, func(db *sql.DB) error {
		query := fmt.Sprintf(
			`SELECT migration_id FROM %s WHERE rolled_back_at IS NULL ORDER BY applied_at, migration_id`,
			e.d.QuoteIdent(e.table))
		rows, err := db.QueryContext(ctx, query)
		if err != nil {
			return e.wrap(ctx, "apply", shardID, "", err)
		}
		defer rows.Close()
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return e.wrap(ctx, "apply", shardID, "", err)
			}
			ids = append(ids, id)
		}
		return rows.Err()
	})
	return ids, err
}

// History returns the newest entries of the shard's bookkeeping table,
// rollbacks included.
func (e *Executor) History(ctx context.Context, shardID string, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []HistoryEntry
	err := e.withShard(ctx, shardID, func(db *sql.DB) error {
		query := fmt.Sprintf(
			`SELECT migration_id, description, checksum, applied_at, duration_ms, rolled_back_at
FROM %s ORDER BY applied_at DESC, migration_id DESC %s`,
			e.d.QuoteIdent(e.table), e.d.LimitClause(limit))
		rows, err := db.QueryContext(ctx, query)
		if err != nil {
			return e.wrap(ctx, "apply", shardID, "", err)
		}
		defer rows.Close()
		for rows.Next() {
			var h HistoryEntry
			if err := rows.Scan(&h.MigrationID, &h.Description, &h.Checksum, &h.AppliedAt, &h.DurationMs, &h.RolledBackAt); err != nil {
				return e.wrap(ctx, "apply", shardID, "", err)
			}
			out = append(out, h)
		}
		return rows.Err()
	})
	return out, err
}

// RecordApplied writes one history row for a script whose DDL has already
// executed successfully against the shard.
func (e *Executor) RecordApplied(ctx context.Context, shardID string, script Script, duration time.Duration) error {
	return e.withShard(ctx, shardID, func(db *sql.DB) error {
		return e.insertEntry(ctx, db, shardID, script, duration.Milliseconds())
	})
}

// insertEntry records a successful application. migration_id is the table's
// primary key, so re-applying a rolled-back script reactivates its existing
// row (fresh applied_at/checksum/duration, rolled_back_at cleared) rather
// than inserting a duplicate.
func (e *Executor) insertEntry(ctx context.Context, db *sql.DB, shardID string, script Script, durationMs int64) error {
	update := fmt.Sprintf(
		`UPDATE %s SET description=%s, checksum=%s, applied_at=%s, duration_ms=%s, rolled_back_at=NULL WHERE migration_id=%s AND rolled_back_at IS NOT NULL`,
		e.d.QuoteIdent(e.table),
		e.d.Placeholder(1), e.d.Placeholder(2), e.d.Placeholder(3), e.d.Placeholder(4), e.d.Placeholder(5))
	res, err := db.ExecContext(ctx, update, script.Description, script.Checksum, e.now(), durationMs, script.ID)
	if err != nil {
		return e.wrap(ctx, "apply", shardID, script.ID, fmt.Errorf("record applied: %w", err))
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}

	insert := fmt.Sprintf(
		`INSERT INTO %s (migration_id, description, checksum, applied_at, duration_ms) VALUES (%s, %s, %s, %s, %s)`,
		e.d.QuoteIdent(e.table),
		e.d.Placeholder(1), e.d.Placeholder(2), e.d.Placeholder(3), e.d.Placeholder(4), e.d.Placeholder(5))
	_, err = db.ExecContext(ctx, insert, script.ID, script.Description, script.Checksum, e.now(), durationMs)
	if err != nil {
		return e.wrap(ctx, "apply", shardID, script.ID, fmt.Errorf("record applied: %w", err))
	}
	return nil
}

// RecordRolledBack stamps RolledBackAt on the matching un-rolled-back row.
// It reports whether a row was actually updated, so callers can detect a
// rollback requested for a migration that never ran here.
func (e *Executor) RecordRolledBack(ctx context.Context, shardID, migrationID string) (bool, error) {
	var matched bool
	err := e.withShard(ctx, shardID, func(db *sql.DB) error {
		var err error
		matched, err = e.stampRolledBack(ctx, db, shardID, migrationID)
		return err
	})
	return matched, err
}

func (e *Executor) stampRolledBack(ctx context.Context, db *sql.DB, shardID, migrationID string) (bool, error) {
	query := fmt.Sprintf(
		`UPDATE %s SET rolled_back_at=%s WHERE migration_id=%s AND rolled_back_at IS NULL`,
		e.d.QuoteIdent(e.table), e.d.Placeholder(1), e.d.Placeholder(2))
	res, err := db.ExecContext(ctx, query, e.now(), migrationID)
	if err != nil {
		return false, e.wrap(ctx, "rollback", shardID, migrationID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, e.wrap(ctx, "rollback", shardID, migrationID, err)
	}
	return n > 0, nil
}

// SeedHistorical stamps a freshly created shard as already migrated: for each
// script with no history row it inserts one with duration 0, without ever
// executing the script's DDL. Returns how many rows were inserted.
func (e *Executor) SeedHistorical(ctx context.Context, shardID string, scripts []Script) (int, error) {
	seeded := 0
	err := e.withShard(ctx, shardID, func(db *sql.DB) error {
		if err := e.ensureTable(ctx, db, shardID); err != nil {
			return err
		}
		existsQuery := fmt.Sprintf(
			`SELECT EXISTS (SELECT 1 FROM %s WHERE migration_id=%s)`,
			e.d.QuoteIdent(e.table), e.d.Placeholder(1))
		for _, script := range scripts {
			var exists bool
			if err := db.QueryRowContext(ctx, existsQuery, script.ID).Scan(&exists); err != nil {
				return e.wrap(ctx, "apply", shardID, script.ID, err)
			}
			if exists {
				continue
			}
			if err := e.insertEntry(ctx, db, shardID, script, 0); err != nil {
				return err
			}
			seeded++
		}
		return nil
	})
	if err == nil && seeded > 0 {
		e.logger.Info("seeded migration history", "shard", shardID, "rows", seeded)
	}
	return seeded, err
}

// ExecuteSQL runs a raw script against the shard's primary, statement by
// statement. Primitive for higher-level migration tooling; it records
// nothing.
func (e *Executor) ExecuteSQL(ctx context.Context, shardID, sqlText string) error {
	return e.withShard(ctx, shardID, func(db *sql.DB) error {
		return e.execStatements(ctx, db, shardID, "", sqlText)
	})
}

func (e *Executor) execStatements(ctx context.Context, db *sql.DB, shardID, migrationID, sqlText string) error {
	for _, stmt := range dialect.SplitStatements(sqlText) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return e.wrap(ctx, "apply", shardID, migrationID, err)
		}
	}
	return nil
}

// Apply brings one shard up to date: it sorts the scripts by ID, skips the
// ones already applied (verifying their checksums have not drifted), executes
// the rest in order and records each success. A script whose DDL fails leaves
// no history row. Returns the ids applied by this call.
func (e *Executor) Apply(ctx context.Context, shardID string, scripts []Script) ([]string, error) {
	ordered := append([]Script(nil), scripts...)
	SortScripts(ordered)

	var applied []string
	err := e.withShard(ctx, shardID, func(db *sql.DB) error {
		if err := e.ensureTable(ctx, db, shardID); err != nil {
			return err
		}

		checksums := map[string]string{}
		query := fmt.Sprintf(
			`SELECT migration_id, checksum FROM %s WHERE rolled_back_at IS NULL`,
			e.d.QuoteIdent(e.table))
		rows, err := db.QueryContext(ctx, query)
		if err != nil {
			return e.wrap(ctx, "apply", shardID, "", err)
		}
		for rows.Next() {
			var id, sum string
			if err := rows.Scan(&id, &sum); err != nil {
				rows.Close()
				return e.wrap(ctx, "apply", shardID, "", err)
			}
			checksums[id] = sum
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return e.wrap(ctx, "apply", shardID, "", err)
		}
		rows.Close()

		for _, script := range ordered {
			if sum, ok := checksums[script.ID]; ok {
				if sum != script.Checksum {
					return &MigrationError{Op: "apply", ShardID: shardID, MigrationID: script.ID, Err: ErrChecksumMismatch}
				}
				continue
			}
			start := e.now()
			if err := e.execStatements(ctx, db, shardID, script.ID, script.SQL); err != nil {
				return err
			}
			if err := e.insertEntry(ctx, db, shardID, script, e.now().Sub(start).Milliseconds()); err != nil {
				return err
			}
			applied = append(applied, script.ID)
			e.logger.Info("migration applied", "shard", shardID, "migration", script.ID)
		}
		return nil
	})
	return applied, err
}

// Rollback executes a stored rollback script (when given) and stamps the
// history row. A missing history row surfaces as ErrNotApplied.
func (e *Executor) Rollback(ctx context.Context, shardID, migrationID, rollbackSQL string) error {
	err := e.withShard(ctx, shardID, func(db *sql.DB) error {
		if rollbackSQL != "" {
			for _, stmt := range dialect.SplitStatements(rollbackSQL) {
				if _, err := db.ExecContext(ctx, stmt); err != nil {
					return e.wrap(ctx, "rollback", shardID, migrationID, err)
				}
			}
		}
		matched, err := e.stampRolledBack(ctx, db, shardID, migrationID)
		if err != nil {
			return err
		}
		if !matched {
			return &MigrationError{Op: "rollback", ShardID: shardID, MigrationID: migrationID, Err: ErrNotApplied}
		}
		return nil
	})
	if err == nil {
		e.logger.Info("migration rolled back", "shard", shardID, "migration", migrationID)
	}
	return err
}

// wrap attaches shard/migration identity to a failure, leaving cancellation
// untouched so callers can tell the two apart.
func (e *Executor) wrap(ctx context.Context, op, shardID, migrationID string, err error) error {
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return err
	}
	return &MigrationError{Op: op, ShardID: shardID, MigrationID: migrationID, Err: err}
}
