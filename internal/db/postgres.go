package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
)

//go:embed migrations/postgres/*.sql
var postgresMigrations embed.FS

// OpenPostgres connects to dsn, verifies the connection and applies pending migrations.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach postgres: %w", err)
	}
	if err := MigratePostgres(dsn); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// MigratePostgres applies the embedded migrations to the database at dsn.
func MigratePostgres(dsn string) error {
	src, err := iofs.New(postgresMigrations, "migrations/postgres")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return fmt.Errorf("migration init failed: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	version, dirty, _ := m.Version()
	slog.Debug("postgres migrations applied", "version", version, "dirty", dirty)
	return nil
}
