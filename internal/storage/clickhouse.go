package storage

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// ClickHouseAdapter reads from a ClickHouse mirror of the ranked tables.
// ClickHouse streams result blocks, so chunking happens client side.
type ClickHouseAdapter struct {
	conn driver.Conn
}

// OpenClickHouse connects using a clickhouse:// DSN.
func OpenClickHouse(dsn string) (*ClickHouseAdapter, error) {
	opts, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse clickhouse dsn: %w", err)
	}
	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}
	return &ClickHouseAdapter{conn: conn}, nil
}

// NewClickHouseAdapter wraps an existing connection.
func NewClickHouseAdapter(conn driver.Conn) *ClickHouseAdapter {
	return &ClickHouseAdapter{conn: conn}
}

func (a *ClickHouseAdapter) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := a.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, unavailable("query", err)
	}
	return rows, nil
}

func (a *ClickHouseAdapter) Stream(ctx context.Context, query string, chunkSize int, fn func(Rows) error, args ...any) error {
	rows, err := a.conn.Query(ctx, query, args...)
	if err != nil {
		return unavailable("query", err)
	}
	defer rows.Close()

	return streamCursor(ctx, rows, chunkSize, fn)
}

func (a *ClickHouseAdapter) Ping(ctx context.Context) error {
	return unavailable("ping", a.conn.Ping(ctx))
}

func (a *ClickHouseAdapter) Dialect() Dialect { return DialectClickHouse }

func (a *ClickHouseAdapter) Close() error { return a.conn.Close() }
