package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
)

// dbProvider exposes the underlying sql.DB of a storage implementation
type dbProvider interface {
	database() *sql.DB
}

// runMigrations executes pending file-based migrations against the storage
func runMigrations(store Storage, cfg *Config, logger *zap.Logger) error {
	provider, ok := store.(dbProvider)
	if !ok {
		return fmt.Errorf("storage does not expose a database connection")
	}

	if _, err := os.Stat(cfg.MigrationsPath); err != nil {
		return fmt.Errorf("migrations path %s does not exist: %w", cfg.MigrationsPath, err)
	}

	var (
		driver database.Driver
		err    error
		name   string
	)

	db := provider.database()

	switch cfg.Driver {
	case "sqlite":
		driver, err = sqlite3.WithInstance(db, &sqlite3.Config{})
		name = "sqlite3"
	case "mysql":
		driver, err = mysql.WithInstance(db, &mysql.Config{})
		name = "mysql"
	case "postgres":
		driver, err = postgres.WithInstance(db, &postgres.Config{})
		name = "postgres"
	default:
		return fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	if err != nil {
		return fmt.Errorf("failed to create %s migration driver: %w", cfg.Driver, err)
	}

	instance, err := migrate.NewWithDatabaseInstance("file://"+cfg.MigrationsPath, name, driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator instance: %w", err)
	}

	logger.Info("Starting migrations...")
	if err := instance.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Error("Migration failed", zap.Error(err))
		return fmt.Errorf("migration failed: %w", err)
	}

	logger.Info("Migrations completed successfully")
	return nil
}
