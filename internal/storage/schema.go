package storage

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
)

// Schema is the table layout the loader reads from.
//
//go:embed schema.sql
var Schema string

// ApplySchema creates the contract tables on a SQL backend. It is meant for local
// SQLite stores and tests; production schemas are managed elsewhere.
func ApplySchema(ctx context.Context, a *SQLAdapter) error {
	for _, stmt := range strings.Split(Schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" || isComment(stmt) {
			continue
		}
		if _, err := a.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

func isComment(stmt string) bool {
	for _, line := range strings.Split(stmt, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "--") {
			return false
		}
	}
	return true
}
