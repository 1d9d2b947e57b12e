package postgres

import (
	"errors"

	"github.com/aussiebroadwan/iamcore/internal/auth/store/drivers/postgres/migrations"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/samber/oops"
)

// ApplyMigrations brings the schema up to date from the embedded migration
// files. It opens its own connection from the store's URL.
func (s *Store) ApplyMigrations() error {
	if s.url == "" {
		return oops.Code("MIGRATION_INIT_FAILED").Errorf("postgres store has no database url")
	}

	src, err := iofs.New(migrations.Migrations, ".")
	if err != nil {
		return oops.Code("MIGRATION_SOURCE_FAILED").Wrap(err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, migrateURL(s.url))
	if err != nil {
		_ = src.Close()
		return oops.Code("MIGRATION_INIT_FAILED").Wrap(err)
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return oops.Code("MIGRATION_UP_FAILED").Wrap(err)
	}
	return nil
}
