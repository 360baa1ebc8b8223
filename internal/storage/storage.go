// Package storage is the read side of the relational store. Every backend exposes the
// same Adapter so the loader can run unchanged against MySQL, Postgres, ClickHouse or
// SQLite, in bulk or streaming mode.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrDataUnavailable is returned when the store cannot complete a query
// (connection loss, timeout, cancelled context).
var ErrDataUnavailable = errors.New("data unavailable")

// Dialect identifies the SQL flavour of a backend.
type Dialect string

const (
	DialectMySQL      Dialect = "mysql"
	DialectPostgres   Dialect = "postgres"
	DialectClickHouse Dialect = "clickhouse"
	DialectSQLite     Dialect = "sqlite"
)

// Rows is the row cursor shared by all backends.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// Adapter executes parameterized queries. Queries are always written with `?`
// placeholders; backends that need another syntax rebind them.
type Adapter interface {
	// Query runs a query and returns a cursor over the full result.
	Query(ctx context.Context, query string, args ...any) (Rows, error)
	// Stream runs a query and hands the result to fn in chunks of at most chunkSize
	// rows. fn must consume the rows it is given; it must not close them.
	Stream(ctx context.Context, query string, chunkSize int, fn func(Rows) error, args ...any) error
	Ping(ctx context.Context) error
	Dialect() Dialect
	Close() error
}

// Open connects to the backend named by driver.
func Open(ctx context.Context, driver, dsn string) (Adapter, error) {
	var (
		a   Adapter
		err error
	)
	switch Dialect(driver) {
	case DialectMySQL:
		a, err = OpenSQL(DialectMySQL, dsn)
	case DialectSQLite:
		a, err = OpenSQL(DialectSQLite, dsn)
	case DialectPostgres:
		a, err = OpenPostgres(ctx, dsn)
	case DialectClickHouse:
		a, err = OpenClickHouse(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %q", driver)
	}
	if err != nil {
		return nil, err
	}

	if err := a.Ping(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrDataUnavailable) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrDataUnavailable, err)
}

// chunkRows yields at most limit rows of the wrapped cursor.
type chunkRows struct {
	Rows
	limit int
	n     int
	done  bool
}

func (c *chunkRows) Next() bool {
	if c.n >= c.limit {
		return false
	}
	if !c.Rows.Next() {
		c.done = true
		return false
	}
	c.n++
	return true
}

// Close is a no-op; the owner of the underlying cursor closes it.
func (c *chunkRows) Close() error { return nil }

// streamCursor splits an already streaming cursor into chunks.
func streamCursor(ctx context.Context, rows Rows, chunkSize int, fn func(Rows) error) error {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	for {
		if err := ctx.Err(); err != nil {
			return unavailable("stream", err)
		}
		chunk := &chunkRows{Rows: rows, limit: chunkSize}
		if err := fn(chunk); err != nil {
			return err
		}
		// drain whatever fn left unread so the next chunk starts at a boundary
		for chunk.Next() {
		}
		if chunk.done {
			break
		}
	}
	return unavailable("stream", rows.Err())
}
