package storage

import (
	_ "embed"
	"context"
	"fmt"
)

//go:embed schema.sql
var schemaSQL string

// Migrate applies the full schema. It is idempotent (every statement is
// IF NOT EXISTS) so it is safe to call on every process boot, the way the
// coordinator bootstraps its own tables rather than shipping a separate
// migration tool.
func Migrate(ctx context.Context, db *DB) error {
	if _, err := db.Pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Bootstrap opens a short-lived connection to dsn, applies Migrate, and
// closes it. Both cmd/api and cmd/worker call this before doing anything
// else, so either process terminates non-zero on a DB bootstrap failure
// instead of limping along against an unmigrated schema.
func Bootstrap(ctx context.Context, dsn string) error {
	db, err := NewDB(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect for migration: %w", err)
	}
	defer db.Close()
	return Migrate(ctx, db)
}
