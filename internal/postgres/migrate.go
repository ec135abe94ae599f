package postgres

import (
	"errors"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/settlehq/settle/internal/logger"
)

// Migrate applies every pending migration found at source, e.g. file://migrations/postgres
func (db *DB) Migrate(source string) error {
	m, err := db.newMigrator(source)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			db.logger.Infow("database schema is up to date", "source", source)
			return nil
		}
		return err
	}

	version, dirty, _ := m.Version()
	db.logger.Infow("applied database migrations",
		"source", source,
		"version", version,
		"dirty", dirty,
	)
	return nil
}

// MigrateDown rolls back the given number of migration steps
func (db *DB) MigrateDown(source string, steps int) error {
	m, err := db.newMigrator(source)
	if err != nil {
		return err
	}
	if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func (db *DB) newMigrator(source string) (*migrate.Migrate, error) {
	driver, err := migratepg.WithInstance(db.DB.DB, &migratepg.Config{})
	if err != nil {
		return nil, err
	}
	m, err := migrate.NewWithDatabaseInstance(source, "postgres", driver)
	if err != nil {
		return nil, err
	}
	m.Log = &migrationLogger{logger: db.logger}
	return m, nil
}

type migrationLogger struct {
	logger *logger.Logger
}

func (l *migrationLogger) Printf(format string, v ...interface{}) {
	l.logger.Debugf(format, v...)
}

func (l *migrationLogger) Verbose() bool {
	return false
}
