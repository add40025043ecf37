// Package conn produces live connections to shard primaries and replicas.
// Factories open (not merely construct) connections; a returned Conn is owned
// by the caller and must be closed when the logical operation finishes.
package conn

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"shardhub/internal/dialect"
)

// Conn is an open connection to one shard endpoint.
type Conn struct {
	ShardID  string
	Endpoint string
	Replica  bool
	DB       *sql.DB
}

func (c *Conn) Close() error { return c.DB.Close() }

// OpenError wraps an I/O failure while opening a shard connection. It is
// retryable by the caller.
type OpenError struct {
	ShardID  string
	Endpoint string
	Err      error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("open connection to shard %s (%s): %v", e.ShardID, e.Endpoint, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

// Opener dials one endpoint. The production implementation sits on
// database/sql; tests substitute fakes.
type Opener interface {
	Open(ctx context.Context, shardID, endpoint string, replica bool) (*Conn, error)
}

// SQLOpener opens database/sql handles via the configured dialect's driver
// and verifies them with a ping, so a successful Open means a live endpoint.
type SQLOpener struct {
	Dialect      dialect.Dialect
	MaxOpenConns int
	MaxIdleTime  time.Duration
}

func NewSQLOpener(d dialect.Dialect) *SQLOpener {
	return &SQLOpener{Dialect: d, MaxOpenConns: 5, MaxIdleTime: 5 * time.Minute}
}

func (o *SQLOpener) Open(ctx context.Context, shardID, endpoint string, replica bool) (*Conn, error) {
	if err := o.Dialect.ValidateDSN(endpoint); err != nil {
		return nil, err
	}
	db, err := sql.Open(o.Dialect.DriverName(), endpoint)
	if err != nil {
		return nil, err
	}
	db.SetConnMaxIdleTime(o.MaxIdleTime)
	db.SetMaxOpenConns(o.MaxOpenConns)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Conn{ShardID: shardID, Endpoint: endpoint, Replica: replica, DB: db}, nil
}

// Logger is the slice of slog the factories use.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
