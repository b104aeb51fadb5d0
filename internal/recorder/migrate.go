package recorder

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"freeswim-tracker/internal/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrateUp brings the schema to the latest version. No change is not an
// error.
func migrateUp(db *sql.DB, log logger.Logger) error {
	m, err := newMigrate(db, log)
	if err != nil {
		return err
	}
	// Closing m would close db as well.

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// schemaVersion returns the applied migration version, 0 when none.
func schemaVersion(db *sql.DB) (uint, bool, error) {
	m, err := newMigrate(db, nil)
	if err != nil {
		return 0, false, err
	}
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func newMigrate(db *sql.DB, log logger.Logger) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	if log != nil {
		m.Log = &migrateLogger{log: log}
	}
	return m, nil
}

// migrateLogger implements migrate.Logger.
type migrateLogger struct {
	log logger.Logger
}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	l.log.Debug("Migrate", fmt.Sprintf(format, v...), nil)
}

func (l *migrateLogger) Verbose() bool {
	return false
}
