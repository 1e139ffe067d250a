package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	contractdomain "github.com/smallbiznis/royalty/internal/contract/domain"
	ledgerdomain "github.com/smallbiznis/royalty/internal/ledger/domain"
	ownershipdomain "github.com/smallbiznis/royalty/internal/ownership/domain"
	salesdomain "github.com/smallbiznis/royalty/internal/sales/domain"
	statementdomain "github.com/smallbiznis/royalty/internal/statement/domain"
	"gorm.io/gorm"
)

// Models lists every persisted type in dependency order.
func Models() []any {
	return []any{
		&contractdomain.RoyaltyContract{},
		&contractdomain.RoyaltyTier{},
		&ledgerdomain.LedgerEntry{},
		&salesdomain.SaleRow{},
		&salesdomain.ReturnRow{},
		&ownershipdomain.TitleAuthor{},
		&statementdomain.Statement{},
	}
}

// RunMigrations applies the embedded postgres migrations.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Closing the migrator would close the shared *sql.DB.

	return nil
}

// Apply migrates conn. Postgres uses the versioned SQL files; the other
// dialects are development targets and fall back to AutoMigrate.
func Apply(conn *gorm.DB) error {
	if conn.Dialector.Name() != "postgres" {
		if err := conn.AutoMigrate(Models()...); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return RunMigrations(sqlDB)
}
