package storage

import (
	"context"
	"fmt"
)

// DefaultChunkSize matches the batch size the loader uses in production.
const DefaultChunkSize = 100_000

// ScanFunc converts the current row into a value.
type ScanFunc[T any] func(Rows) (T, error)

// FetchAll materialises the whole result set in one round trip.
func FetchAll[T any](ctx context.Context, a Adapter, scan ScanFunc[T], query string, args ...any) ([]T, error) {
	rows, err := a.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("read rows", err)
	}
	return out, nil
}

// StreamChunks scans the result in chunks of at most chunkSize values and hands each
// chunk to handle. The chunk slice is reused; handle must not retain it.
func StreamChunks[T any](ctx context.Context, a Adapter, chunkSize int, scan ScanFunc[T], handle func([]T) error, query string, args ...any) error {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	buf := make([]T, 0, min(chunkSize, 4096))

	return a.Stream(ctx, query, chunkSize, func(rows Rows) error {
		buf = buf[:0]
		for rows.Next() {
			v, err := scan(rows)
			if err != nil {
				return fmt.Errorf("scan row: %w", err)
			}
			buf = append(buf, v)
		}
		if len(buf) == 0 {
			return nil
		}
		return handle(buf)
	}, args...)
}
