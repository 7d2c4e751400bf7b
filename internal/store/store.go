// Package store persists case snapshots. Backends: one JSON file per case,
// SQLite, or Postgres.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hpungsan/triage/internal/cases"
	"github.com/hpungsan/triage/internal/config"
	"github.com/hpungsan/triage/internal/db"
	"github.com/hpungsan/triage/internal/errors"
)

// Repository stores and reads cases.
type Repository interface {
	// SaveCase writes the current snapshot of c. Later saves of the same case replace earlier ones.
	SaveCase(ctx context.Context, c *cases.Case, sessionID string) error

	// ListCases returns summaries newest first. limit <= 0 returns all.
	ListCases(ctx context.Context, limit int) ([]cases.Summary, error)

	// GetCase returns the latest snapshot of a case, or NOT_FOUND.
	GetCase(ctx context.Context, caseID string) (*cases.Record, error)

	Close() error
}

// Open returns the repository selected by cfg.Backend. baseDir resolves a relative data_dir.
func Open(ctx context.Context, cfg *config.Config, baseDir string) (Repository, error) {
	switch cfg.Backend {
	case config.BackendJSON, "":
		return NewFileRepository(cfg.ResolveDataDir(baseDir))
	case config.BackendSQLite:
		database, err := db.Init(cfg.ResolveDataDir(baseDir))
		if err != nil {
			return nil, errors.NewStorage("open sqlite", err)
		}
		db.ConfigurePool(database, cfg)
		return NewSQLRepository(database, db.SQLite), nil
	case config.BackendPostgres:
		database, err := db.OpenPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, errors.NewStorage("open postgres", err)
		}
		db.ConfigurePool(database, cfg)
		return NewSQLRepository(database, db.Postgres), nil
	default:
		return nil, errors.NewInvalidRequest(fmt.Sprintf("unknown backend %q", cfg.Backend))
	}
}

// SQLRepository stores cases in a SQL database.
type SQLRepository struct {
	db      *sql.DB
	dialect db.Dialect
	now     func() time.Time
}

// NewSQLRepository wraps an initialized database.
func NewSQLRepository(database *sql.DB, d db.Dialect) *SQLRepository {
	return &SQLRepository{db: database, dialect: d, now: time.Now}
}

// SaveCase implements Repository.
func (r *SQLRepository) SaveCase(ctx context.Context, c *cases.Case, sessionID string) error {
	rec := c.Snapshot(sessionID, r.now())
	return db.UpsertCase(ctx, r.db, r.dialect, &rec)
}

// ListCases implements Repository.
func (r *SQLRepository) ListCases(ctx context.Context, limit int) ([]cases.Summary, error) {
	return db.ListCases(ctx, r.db, r.dialect, limit)
}

// GetCase implements Repository.
func (r *SQLRepository) GetCase(ctx context.Context, caseID string) (*cases.Record, error) {
	return db.GetCase(ctx, r.db, r.dialect, caseID)
}

// Close closes the database.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}
