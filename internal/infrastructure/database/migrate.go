package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"

	"github.com/davidleathers/p2p-trade-desk-backend/migrations"
)

// Migrator applies the embedded schema migrations
type Migrator struct {
	m      *migrate.Migrate
	logger *zap.Logger
}

// NewMigrator wraps db with golang-migrate over the embedded migration files
func NewMigrator(db *sql.DB, logger *zap.Logger) (*Migrator, error) {
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}

	return &Migrator{m: m, logger: logger}, nil
}

// Up applies pending migrations. steps <= 0 applies all of them.
func (mg *Migrator) Up(steps int) error {
	var err error
	if steps > 0 {
		err = mg.m.Steps(steps)
	} else {
		err = mg.m.Up()
	}
	return mg.done("up", err)
}

// Down reverts migrations. steps <= 0 reverts all of them.
func (mg *Migrator) Down(steps int) error {
	var err error
	if steps > 0 {
		err = mg.m.Steps(-steps)
	} else {
		err = mg.m.Down()
	}
	return mg.done("down", err)
}

// Version returns the applied version; zero means no migration has run
func (mg *Migrator) Version() (uint, bool, error) {
	v, dirty, err := mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

func (mg *Migrator) done(direction string, err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		mg.logger.Info("no migrations to apply", zap.String("direction", direction))
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate %s failed: %w", direction, err)
	}

	v, dirty, _ := mg.Version()
	mg.logger.Info("migrations applied",
		zap.String("direction", direction),
		zap.Uint("version", v),
		zap.Bool("dirty", dirty))
	return nil
}

// Close releases the migration source and driver connection
func (mg *Migrator) Close() error {
	srcErr, dbErr := mg.m.Close()
	if srcErr != nil {
		return srcErr
	}
	return dbErr
}
