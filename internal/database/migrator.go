package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
)

// Migrator applies file-based schema migrations against the curated papers
// store. It borrows a database/sql handle from the pgx pool for the
// lifetime of the migrator and must be closed to return it.
type Migrator struct {
	migrate *migrate.Migrate
	sqlDB   *sql.DB
	logger  zerolog.Logger
}

// NewMigrator builds a migrator over the given pool and migrations
// directory. The directory must exist; a missing directory is an error here
// rather than a silent no-op at Up time.
func NewMigrator(db *DB, dir string, logger zerolog.Logger) (*Migrator, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	if db.pool == nil {
		return nil, fmt.Errorf("database pool not initialized")
	}
	if dir == "" {
		return nil, fmt.Errorf("migrations path is required")
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("migrations path validation failed: %w", err)
	}

	sqlDB := stdlib.OpenDBFromPool(db.pool)

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{
		MigrationsTable: "schema_migrations",
	})
	if err != nil {
		return nil, fmt.Errorf("create postgres driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+dir, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}

	return &Migrator{
		migrate: m,
		sqlDB:   sqlDB,
		logger:  logger.With().Str("component", "migrator").Logger(),
	}, nil
}

// Up applies every pending migration. Being already up to date is not an
// error.
func (m *Migrator) Up() error {
	if err := m.migrate.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.logger.Info().Msg("schema already up to date")
			return nil
		}
		return fmt.Errorf("apply migrations: %w", err)
	}
	m.logger.Info().Msg("schema migrations applied")
	return nil
}

// Down rolls back every applied migration.
func (m *Migrator) Down() error {
	if err := m.migrate.Down(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.logger.Info().Msg("nothing to roll back")
			return nil
		}
		return fmt.Errorf("roll back migrations: %w", err)
	}
	m.logger.Info().Msg("schema migrations rolled back")
	return nil
}

// Steps applies n migrations, negative n rolling back. Running off either
// end of the migration list is tolerated.
func (m *Migrator) Steps(n int) error {
	if err := m.migrate.Steps(n); err != nil {
		// migrate reports os.ErrNotExist when stepping past the last file.
		if errors.Is(err, migrate.ErrNoChange) || errors.Is(err, os.ErrNotExist) {
			m.logger.Info().Int("steps", n).Msg("no further migrations")
			return nil
		}
		return fmt.Errorf("apply migration steps: %w", err)
	}
	return nil
}

// Version reports the current schema version and whether it is dirty.
func (m *Migrator) Version() (uint, bool, error) {
	return m.migrate.Version()
}

// Force pins the recorded schema version without running any migration.
// Used to recover after a partially applied migration left the version
// dirty.
func (m *Migrator) Force(version int) error {
	m.logger.Warn().Int("version", version).Msg("forcing schema version")
	return m.migrate.Force(version)
}

// Close releases the migration source and the borrowed sql.DB handle.
func (m *Migrator) Close() error {
	sourceErr, dbErr := m.migrate.Close()
	if m.sqlDB != nil {
		if err := m.sqlDB.Close(); err != nil && dbErr == nil {
			dbErr = err
		}
	}
	switch {
	case sourceErr != nil && dbErr != nil:
		return fmt.Errorf("close migrator: source: %v, database: %w", sourceErr, dbErr)
	case sourceErr != nil:
		return fmt.Errorf("close migration source: %w", sourceErr)
	case dbErr != nil:
		return fmt.Errorf("close migration database handle: %w", dbErr)
	}
	return nil
}
