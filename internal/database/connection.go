package database

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"auth-failover/pkg/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Dialect names the SQL flavour of a connection. Values double as goose dialect names.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite3"
	DialectPostgres Dialect = "postgres"
)

// NewConnection opens and pings the database selected by cfg.Database.
func NewConnection(cfg *config.Config) (*sql.DB, Dialect, error) {
	var driverName string
	var dialect Dialect

	switch cfg.Database.Type {
	case "postgres":
		dialect = DialectPostgres
		driverName = "postgres"
		if cfg.Database.Driver == "pgx" {
			driverName = "pgx"
		}
	case "sqlite":
		dialect = DialectSQLite
		driverName = "sqlite3"
	default:
		return nil, "", fmt.Errorf("unsupported database type: %s", cfg.Database.Type)
	}

	db, err := sql.Open(driverName, cfg.GetDatabaseDSN())
	if err != nil {
		return nil, "", fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, "", fmt.Errorf("failed to ping database: %w", err)
	}

	if cfg.Database.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	}
	if cfg.Database.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	}
	db.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	return db, dialect, nil
}

// Rebind rewrites ? placeholders into the positional form the dialect expects.
func Rebind(dialect Dialect, query string) string {
	if dialect != DialectPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
