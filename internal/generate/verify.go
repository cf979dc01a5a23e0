package generate

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// VerifySQL applies a generated migration script to an in-memory SQLite
// database, proving the DDL actually executes. Used by doctor's deep check
// and by the migration generator's tests.
func VerifySQL(ctx context.Context, ddl string) error {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return fmt.Errorf("open in-memory database: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("apply migration: %w", err)
	}
	return nil
}
