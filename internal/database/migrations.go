package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"auth-failover/pkg/logger"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// RunMigrations applies the embedded migrations for dialect
func RunMigrations(ctx context.Context, db *sql.DB, dialect Dialect, log *logger.Logger) error {
	var dir string
	switch dialect {
	case DialectSQLite:
		dir = "migrations/sqlite"
	case DialectPostgres:
		dir = "migrations/postgres"
	default:
		return fmt.Errorf("no migrations for dialect %q", dialect)
	}

	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(log.Logger)
	if err := goose.SetDialect(string(dialect)); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, dir); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}
