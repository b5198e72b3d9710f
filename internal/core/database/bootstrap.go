package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"time"
)

//go:embed scripts/initdb.sql
var bootstrapFS embed.FS

// EnsureBootstrapped creates the schema on first connection. The meta
// table doubles as the bootstrap marker; re-running the script is safe
// (everything is IF NOT EXISTS) but skipped for startup speed. embedDim
// sets the width of the embedding column; it must match the embedding
// model configured alongside it.
func EnsureBootstrapped(ctx context.Context, db *sql.DB, embedDim int) error {
	ctxBoot, cancel := context.WithTimeout(ctx, 3*time.Minute)
	defer cancel()

	var exists bool
	err := db.QueryRowContext(ctxBoot, `
		SELECT EXISTS (
		  SELECT 1 FROM information_schema.tables
		  WHERE table_name = 'medshield_meta'
		)`).
		Scan(&exists)
	if err != nil {
		return fmt.Errorf("meta table check failed: %w", err)
	}
	if exists {
		return nil
	}

	script, err := bootstrapFS.ReadFile("scripts/initdb.sql")
	if err != nil {
		return fmt.Errorf("read bootstrap script: %w", err)
	}
	sqlText := string(script)
	if embedDim > 0 {
		sqlText = strings.ReplaceAll(sqlText, "vector(768)", fmt.Sprintf("vector(%d)", embedDim))
	}
	if _, err := db.ExecContext(ctxBoot, sqlText); err != nil {
		return fmt.Errorf("run bootstrap script: %w", err)
	}
	return nil
}
