// Package postgres implements the store.Store interface backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/alfredjeanlab/buildproc/internal/model"
	"github.com/alfredjeanlab/buildproc/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore implements store.Store backed by a PostgreSQL database.
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// Compile-time check that PostgresStore implements store.Store.
var _ store.Store = (*PostgresStore)(nil)

// New opens a connection to the PostgreSQL database at the given URL,
// configures the connection pool, and runs any pending migrations.
func New(databaseURL string, logger *slog.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return NewWithDB(db, logger), nil
}

// NewWithDB wraps an already-migrated database handle.
func NewWithDB(db *sql.DB, logger *slog.Logger) *PostgresStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{db: db, logger: logger}
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Load returns the stored build when it satisfies required. A document that
// no longer decodes is deleted and reported as a miss.
func (s *PostgresStore) Load(ctx context.Context, id string, required model.ModelSet) (*model.Build, bool, error) {
	b, err := queryLoadBuild(ctx, s.db, id)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err == errCorruptDocument {
		s.logger.Warn("removing unreadable stored build", "build_id", id)
		if delErr := queryDeleteBuild(ctx, s.db, id); delErr != nil {
			s.logger.Warn("removing stored build failed", "build_id", id, "err", delErr)
		}
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load build %s: %w", id, err)
	}
	if !b.Satisfies(required) {
		return nil, false, nil
	}
	return b, true, nil
}

func (s *PostgresStore) Save(ctx context.Context, b *model.Build) error {
	if err := queryUpsertBuild(ctx, s.db, b); err != nil {
		return fmt.Errorf("save build %s: %w", b.ID, err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	return queryDeleteBuild(ctx, s.db, id)
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	return queryCountBuilds(ctx, s.db)
}

func (s *PostgresStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	return queryPruneBuilds(ctx, s.db, before)
}
