package storage

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgPool is the part of pgxpool.Pool the adapter needs.
type PgPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

var cursorSeq atomic.Uint64

// PostgresAdapter streams through server-side cursors: each chunk is one
// `FETCH n` round trip inside a read-only transaction.
type PostgresAdapter struct {
	pool  PgPool
	close func()
}

// OpenPostgres connects a pgx pool.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresAdapter, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return &PostgresAdapter{pool: pool, close: pool.Close}, nil
}

// NewPostgresAdapter wraps an existing pool.
func NewPostgresAdapter(pool PgPool) *PostgresAdapter {
	return &PostgresAdapter{pool: pool}
}

func (a *PostgresAdapter) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := a.pool.Query(ctx, Rebind(DialectPostgres, query), args...)
	if err != nil {
		return nil, unavailable("query", err)
	}
	return &pgxRows{Rows: rows}, nil
}

func (a *PostgresAdapter) Stream(ctx context.Context, query string, chunkSize int, fn func(Rows) error, args ...any) error {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	tx, err := a.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return unavailable("begin", err)
	}
	defer tx.Rollback(ctx)

	cursor := "statsagg_cur_" + strconv.FormatUint(cursorSeq.Add(1), 10)
	declare := "DECLARE " + cursor + " NO SCROLL CURSOR FOR " + Rebind(DialectPostgres, query)
	if _, err := tx.Exec(ctx, declare, args...); err != nil {
		return unavailable("declare cursor", err)
	}

	fetch := fmt.Sprintf("FETCH %d FROM %s", chunkSize, cursor)
	for {
		rows, err := tx.Query(ctx, fetch)
		if err != nil {
			return unavailable("fetch", err)
		}
		chunk := &pgxRows{Rows: rows}
		if err := fn(chunk); err != nil {
			rows.Close()
			return err
		}
		for chunk.Next() {
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return unavailable("fetch", err)
		}
		if chunk.n < chunkSize {
			break
		}
	}

	if _, err := tx.Exec(ctx, "CLOSE "+cursor); err != nil {
		return unavailable("close cursor", err)
	}
	return nil
}

func (a *PostgresAdapter) Ping(ctx context.Context) error {
	return unavailable("ping", a.pool.Ping(ctx))
}

func (a *PostgresAdapter) Dialect() Dialect { return DialectPostgres }

func (a *PostgresAdapter) Close() error {
	if a.close != nil {
		a.close()
	}
	return nil
}

type pgxRows struct {
	pgx.Rows
	n int
}

func (r *pgxRows) Next() bool {
	if r.Rows.Next() {
		r.n++
		return true
	}
	return false
}

func (r *pgxRows) Close() error {
	r.Rows.Close()
	return nil
}

// Rebind rewrites `?` placeholders for dialects that number them.
// Question marks inside single-quoted literals are left alone.
func Rebind(dialect Dialect, query string) string {
	if dialect != DialectPostgres {
		return query
	}

	var (
		b       strings.Builder
		n       int
		inQuote bool
	)
	b.Grow(len(query) + 8)
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			b.WriteByte(c)
		case c == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
