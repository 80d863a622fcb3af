package storage

import (
	"context"
	"database/sql"
	"embed"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/pkg/errors"
)

//go:embed migrations
var migrationsFS embed.FS

func runMigrations(ctx context.Context, conn *sql.DB, d dialect) error {
	src, err := iofs.New(migrationsFS, "migrations/"+d.name)
	if err != nil {
		return errors.Wrap(err, "create iofs source")
	}

	drv, release, err := d.migrationDriver(ctx, conn)
	if err != nil {
		return errors.Wrap(err, "create migration driver")
	}
	defer release()

	m, err := migrate.NewWithInstance("iofs", src, d.name, drv)
	if err != nil {
		return errors.Wrap(err, "create migrate instance")
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, "run migrations")
	}
	return nil
}
