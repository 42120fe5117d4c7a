// Package migrate applies embedded SQL migrations on startup.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/and161185/playqueue/migrations"
)

// Dialect names a supported SQL backend.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// goose keeps its base FS and dialect in package globals.
var mu sync.Mutex

func (d Dialect) params() (driver, gooseDialect string, err error) {
	switch d {
	case Postgres:
		return "pgx", "postgres", nil
	case SQLite:
		return "sqlite3", "sqlite3", nil
	}
	return "", "", fmt.Errorf("migrate: unknown dialect %q", d)
}

// Up opens dsn with the dialect's driver and runs all pending migrations.
func Up(ctx context.Context, d Dialect, dsn string) error {
	driver, _, err := d.params()
	if err != nil {
		return err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	return UpDB(ctx, db, d)
}

// UpDB runs all pending migrations on an already opened database.
func UpDB(ctx context.Context, db *sql.DB, d Dialect) error {
	_, gd, err := d.params()
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()

	goose.SetBaseFS(migrations.FS)
	defer goose.SetBaseFS(nil)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(gd); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, string(d))
}
