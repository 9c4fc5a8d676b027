// Package storage is the database collaborator: one shared connection, a liveness ping
// before every statement and a bounded reconnect loop for transient failures.
package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/marcboeker/go-duckdb/v2"
	_ "modernc.org/sqlite"

	"github.com/Chative-querybot/server/internal/agent/model"
	errx "github.com/Chative-querybot/server/internal/core/error"
	"github.com/Chative-querybot/server/internal/metrics"
	logx "github.com/Chative-querybot/server/pkg/logger"
)

// ErrUnavailable is returned once every attempt failed on a transient error.
var ErrUnavailable = errors.New("storage unavailable")

// Opener opens a fresh handle. It is called lazily and after every dropped connection.
type Opener func(ctx context.Context) (*sql.DB, error)

type Executor struct {
	mu   sync.Mutex
	db   *sql.DB
	open Opener

	dialect     Dialect
	maxAttempts int
	retryDelay  time.Duration
	pingTimeout time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

// Open parses the DSN, connects and returns an executor bound to the matching dialect.
func Open(ctx context.Context, cfg Config) (*Executor, error) {
	cfg = cfg.withDefaults()
	dialect, driverDSN, err := ParseDSN(cfg.URL)
	if err != nil {
		return nil, err
	}

	opener := func(ctx context.Context) (*sql.DB, error) {
		db, err := sql.Open(dialect.Driver, driverDSN)
		if err != nil {
			return nil, fmt.Errorf("open %s db: %w", dialect.Name, err)
		}
		if cfg.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		return db, nil
	}

	e := NewExecutor(nil, dialect, opener, cfg)
	if _, err := e.conn(ctx); err != nil {
		return nil, fmt.Errorf("connect %s: %w", logx.MaskDSN(cfg.URL), err)
	}
	logx.Info().Str("dialect", dialect.Name).Str("dsn", logx.MaskDSN(cfg.URL)).Msg("Database connection established")
	return e, nil
}

// NewExecutor wraps an existing handle. db may be nil when open is set.
func NewExecutor(db *sql.DB, dialect Dialect, open Opener, cfg Config) *Executor {
	cfg = cfg.withDefaults()
	return &Executor{
		db:          db,
		open:        open,
		dialect:     dialect,
		maxAttempts: cfg.MaxAttempts,
		retryDelay:  cfg.RetryDelay,
		pingTimeout: cfg.PingTimeout,
		sleep:       sleepContext,
	}
}

func (e *Executor) Dialect() Dialect { return e.dialect }

// ExecuteQuery runs a statement. SELECT and WITH produce a row set, anything else an
// affected-row count.
func (e *Executor) ExecuteQuery(ctx context.Context, query string, args ...any) (*model.ExecResult, error) {
	kind := "affected"
	if returnsRows(query) {
		kind = "rows"
	}

	var result *model.ExecResult
	err := e.withRetry(ctx, func(db *sql.DB) error {
		var err error
		if kind == "rows" {
			result, err = queryRows(ctx, db, query, args...)
		} else {
			result, err = execStatement(ctx, db, query, args...)
		}
		return err
	})
	if err != nil {
		metrics.ObserveStorageQuery(kind, "error")
		if errors.Is(err, ErrUnavailable) {
			return nil, errx.Storage(err, "database unavailable")
		}
		return nil, errx.Execution(err, "statement failed")
	}
	metrics.ObserveStorageQuery(kind, "ok")
	return result, nil
}

// ListTables returns the user tables of the dialect's default schema.
func (e *Executor) ListTables(ctx context.Context) ([]string, error) {
	return e.queryStrings(ctx, e.dialect.tablesQuery, e.dialect.tablesArgs...)
}

// ListColumns returns the columns of table in ordinal order. The name is a bind argument.
func (e *Executor) ListColumns(ctx context.Context, table string) ([]string, error) {
	return e.queryStrings(ctx, e.dialect.columnsQuery, e.dialect.columnsArgs(table)...)
}

func (e *Executor) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	var out []string
	err := e.withRetry(ctx, func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = out[:0]
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				return err
			}
			out = append(out, name)
		}
		return rows.Err()
	})
	if err != nil {
		metrics.ObserveStorageQuery("catalog", "error")
		return nil, errx.SchemaLookup(err, "catalog lookup failed")
	}
	metrics.ObserveStorageQuery("catalog", "ok")
	return out, nil
}

func (e *Executor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.db == nil {
		return nil
	}
	err := e.db.Close()
	e.db = nil
	return err
}

func (e *Executor) withRetry(ctx context.Context, fn func(db *sql.DB) error) error {
	var lastErr error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		db, err := e.conn(ctx)
		if err == nil {
			err = fn(db)
			if err == nil {
				return nil
			}
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !isTransient(err) {
			return err
		}

		lastErr = err
		e.invalidate(db)
		logx.Warn().Err(err).Int("attempt", attempt).Int("max_attempts", e.maxAttempts).Msg("Transient database failure")

		if attempt < e.maxAttempts {
			metrics.IncStorageRetry()
			if err := e.sleep(ctx, e.retryDelay); err != nil {
				return err
			}
		}
	}
	return fmt.Errorf("%w after %d attempts: %v", ErrUnavailable, e.maxAttempts, lastErr)
}

// conn returns a live handle, opening one when needed.
func (e *Executor) conn(ctx context.Context) (*sql.DB, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.db == nil {
		if e.open == nil {
			return nil, &connError{err: errors.New("no database handle")}
		}
		db, err := e.open(ctx)
		if err != nil {
			return nil, &connError{err: err}
		}
		e.db = db
	}

	pingCtx, cancel := context.WithTimeout(ctx, e.pingTimeout)
	defer cancel()
	if err := e.db.PingContext(pingCtx); err != nil {
		return e.db, &connError{err: err}
	}
	return e.db, nil
}

// invalidate drops db so the next attempt reopens. Without an opener the handle is kept.
func (e *Executor) invalidate(db *sql.DB) {
	if db == nil || e.open == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.db == db {
		_ = e.db.Close()
		e.db = nil
	}
}

type connError struct{ err error }

func (c *connError) Error() string { return "connection: " + c.err.Error() }
func (c *connError) Unwrap() error { return c.err }

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var ce *connError
	if errors.As(err, &ce) {
		return true
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return pgconn.SafeToRetry(err)
}

func returnsRows(query string) bool {
	q := strings.TrimLeft(query, " \t\r\n(")
	end := strings.IndexFunc(q, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '('
	})
	if end >= 0 {
		q = q[:end]
	}
	switch strings.ToUpper(q) {
	case "SELECT", "WITH":
		return true
	}
	return false
}

func queryRows(ctx context.Context, db *sql.DB, query string, args ...any) (*model.ExecResult, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := &model.ExecResult{Kind: model.ResultRows, Columns: columns}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		result.Rows = append(result.Rows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func execStatement(ctx context.Context, db *sql.DB, query string, args ...any) (*model.ExecResult, error) {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		// Some drivers cannot report a count; treat as zero.
		n = 0
	}
	return &model.ExecResult{Kind: model.ResultAffected, RowsAffected: n}, nil
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
