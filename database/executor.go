// Package database runs detector statements against PostgreSQL through
// lib/pq. Every statement executes inside a read-only transaction.
package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"log/slog"
	"net"
	"net/url"
	"time"

	"github.com/lib/pq"

	"github.com/CAPITALETECH-MA/AI-agent/detector"
	"github.com/CAPITALETECH-MA/AI-agent/errs"
)

const suggestCheckService = "check that the database service is running and DATABASE_URL is correct"

// Options configure the connection pool.
type Options struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Executor implements detector.QueryExecutor over a *sql.DB.
type Executor struct {
	db *sql.DB
}

// New wraps an open pool. The caller keeps ownership of db.
func New(db *sql.DB) *Executor {
	return &Executor{db: db}
}

// Open creates a pool for opts.URL and pings it before returning.
func Open(ctx context.Context, opts Options) (*Executor, error) {
	if opts.URL == "" {
		return nil, errs.New(errs.KindConnectionFailed, "database URL is not configured").
			WithSuggestion("set DATABASE_URL to a postgres:// connection string")
	}

	db, err := sql.Open("postgres", opts.URL)
	if err != nil {
		return nil, errs.Wrap(errs.KindConnectionFailed, "failed to open database connection", err).
			WithSuggestion(suggestCheckService)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	e := New(db)
	if err := e.Ping(ctx); err != nil {
		db.Close()
		return nil, err
	}

	slog.Info("database connection ready", "url", redact(opts.URL))
	return e, nil
}

// DB returns the underlying pool.
func (e *Executor) DB() *sql.DB {
	return e.db
}

// Ping verifies the database is reachable.
func (e *Executor) Ping(ctx context.Context) error {
	if err := e.db.PingContext(ctx); err != nil {
		return mapError("failed to ping database", err)
	}
	return nil
}

// Close closes the pool.
func (e *Executor) Close() error {
	return e.db.Close()
}

// Query runs stmt in a read-only transaction that is always rolled back.
func (e *Executor) Query(ctx context.Context, stmt detector.Statement) ([]map[string]any, error) {
	tx, err := e.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, mapError("failed to begin read-only transaction", err)
	}
	defer tx.Rollback()

	slog.Debug("executing statement", "sql", stmt.SQL, "args", len(stmt.Args))

	rows, err := tx.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, mapError("query failed", err)
	}

	result, err := scanRows(rows)
	if err != nil {
		return nil, mapError("failed to read query results", err)
	}
	return result, nil
}

// scanRows reads every row into a map keyed by column name and closes rows.
// The returned slice is non-nil.
func scanRows(rows *sql.Rows) ([]map[string]any, error) {
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := make([]map[string]any, 0)
	for rows.Next() {
		dest := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range dest {
			ptrs[i] = &dest[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = dest[i]
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// mapError classifies driver failures into error kinds.
func mapError(msg string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.KindTimeout, msg, err).WithSuggestion(suggestCheckService)
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return errs.Wrap(errs.KindConnectionFailed, msg, err).WithSuggestion(suggestCheckService)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		details := map[string]any{"sqlstate": string(pqErr.Code)}
		switch {
		case pqErr.Code.Class() == "08", pqErr.Code == "57P01", pqErr.Code == "57P03":
			return errs.Wrap(errs.KindConnectionFailed, msg, err).
				WithSuggestion(suggestCheckService).
				WithDetails(details)
		case pqErr.Code == "57014":
			return errs.Wrap(errs.KindTimeout, msg, err).WithDetails(details)
		default:
			return errs.Wrap(errs.KindQueryFailed, msg, err).WithDetails(details)
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return errs.Wrap(errs.KindConnectionFailed, msg, err).WithSuggestion(suggestCheckService)
	}

	return errs.Wrap(errs.KindQueryFailed, msg, err)
}

func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "<dsn>"
	}
	return u.Redacted()
}
