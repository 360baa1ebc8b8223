package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

// SQLAdapter serves MySQL and SQLite through database/sql. The MySQL driver reads
// result sets off the wire row by row, so Stream never buffers more than a chunk.
type SQLAdapter struct {
	db      *sql.DB
	dialect Dialect
}

// OpenSQL opens a database/sql backed adapter.
func OpenSQL(dialect Dialect, dsn string) (*SQLAdapter, error) {
	var driverName string
	switch dialect {
	case DialectMySQL:
		driverName = "mysql"
	case DialectSQLite:
		driverName = "sqlite"
	default:
		return nil, fmt.Errorf("dialect %q is not served by database/sql", dialect)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driverName, err)
	}
	return &SQLAdapter{db: db, dialect: dialect}, nil
}

// NewSQLAdapter wraps an existing handle.
func NewSQLAdapter(db *sql.DB, dialect Dialect) *SQLAdapter {
	return &SQLAdapter{db: db, dialect: dialect}
}

// DB exposes the underlying handle.
func (a *SQLAdapter) DB() *sql.DB { return a.db }

func (a *SQLAdapter) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("query", err)
	}
	return rows, nil
}

func (a *SQLAdapter) Stream(ctx context.Context, query string, chunkSize int, fn func(Rows) error, args ...any) error {
	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return unavailable("query", err)
	}
	defer rows.Close()

	return streamCursor(ctx, rows, chunkSize, fn)
}

func (a *SQLAdapter) Ping(ctx context.Context) error {
	return unavailable("ping", a.db.PingContext(ctx))
}

func (a *SQLAdapter) Dialect() Dialect { return a.dialect }

func (a *SQLAdapter) Close() error { return a.db.Close() }
