// Package postgres wraps pgx connection pool used by repositories.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rookgm/bundlehub/internal/models"
	"github.com/rookgm/bundlehub/internal/resilient"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB is database connection pool with retrying reads
type DB struct {
	pool    *pgxpool.Pool
	dsn     string
	backoff func(attempt int) time.Duration
}

// Option configures DB
type Option func(*DB)

// WithBackoff sets delay between retries of failed reads
func WithBackoff(backoff func(attempt int) time.Duration) Option {
	return func(db *DB) {
		db.backoff = backoff
	}
}

// New creates connection pool and checks connection
func New(ctx context.Context, dsn string, opts ...Option) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	db := &DB{
		pool:    pool,
		dsn:     dsn,
		backoff: resilient.ExponentialBackoff,
	}
	for _, opt := range opts {
		opt(db)
	}

	if err := db.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return db, nil
}

// Migrate applies embedded migrations
func (db *DB) Migrate() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, db.dsn)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Close closes all connections
func (db *DB) Close() {
	db.pool.Close()
}

// QueryRow executes query that returns one row
func (db *DB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return db.pool.QueryRow(ctx, sql, args...)
}

// Query executes query that returns rows
func (db *DB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return db.pool.Query(ctx, sql, args...)
}

// Exec executes query without returning rows
func (db *DB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return db.pool.Exec(ctx, sql, args...)
}

// WithTx runs fn in transaction, commits if fn returns nil
func (db *DB) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return pgx.BeginFunc(ctx, db.pool, fn)
}

// Read runs read operation using retry policy for ordinary operations.
// Connectivity errors left after retries are reported as models.ErrStorageUnavailable.
func (db *DB) Read(ctx context.Context, op func(ctx context.Context) error) error {
	return Classify(resilient.Run(ctx, db.policy(resilient.DefaultAttempts), op))
}

// Ping checks database using lightweight probe policy
func (db *DB) Ping(ctx context.Context) error {
	return Classify(resilient.Run(ctx, db.policy(resilient.ProbeAttempts), db.pool.Ping))
}

// Reconnect drops pooled connections and checks that new one can be opened
func (db *DB) Reconnect(ctx context.Context) error {
	db.pool.Reset()
	return db.pool.Ping(ctx)
}

func (db *DB) policy(attempts int) resilient.Policy {
	return resilient.Policy{
		Attempts:     attempts,
		Backoff:      db.backoff,
		Retryable:    IsConnectivityError,
		Disconnected: IsConnectionDropped,
		Reconnect:    db.Reconnect,
	}
}

// ErrorCode returns postgres error code
func (db *DB) ErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// Classify marks connectivity errors with models.ErrStorageUnavailable
func Classify(err error) error {
	if err == nil || errors.Is(err, models.ErrStorageUnavailable) {
		return err
	}
	if IsConnectivityError(err) {
		return fmt.Errorf("%w: %w", models.ErrStorageUnavailable, err)
	}
	return err
}

var droppedSignatures = []string{
	"conn closed",
	"connection reset",
	"server closed the connection",
	"broken pipe",
	"unexpected eof",
}

var connectivitySignatures = append([]string{
	"connection refused",
	"failed to connect",
	"no such host",
	"closed pool",
	"i/o timeout",
}, droppedSignatures...)

// IsConnectionDropped reports whether server dropped established connection
func IsConnectionDropped(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// admin_shutdown, crash_shutdown
		return pgErr.Code == "57P01" || pgErr.Code == "57P02"
	}

	return containsAny(err.Error(), droppedSignatures)
}

// IsConnectivityError reports whether err is caused by unreachable database
func IsConnectivityError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if IsConnectionDropped(err) {
		return true
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// class 08 — connection exception, 57P03 — cannot connect now
		return strings.HasPrefix(pgErr.Code, "08") || pgErr.Code == "57P03"
	}

	if pgconn.Timeout(err) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return containsAny(err.Error(), connectivitySignatures)
}

func containsAny(msg string, subs []string) bool {
	msg = strings.ToLower(msg)
	for _, s := range subs {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
