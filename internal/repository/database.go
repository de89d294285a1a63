package repository

import (
	"fmt"
	"log"
	"strings"

	"qrverify/internal/config"
	"qrverify/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func InitDB(cfg config.Config) (*gorm.DB, error) {
	var dialer gorm.Dialector
	isSQLite := false
	switch {
	case strings.HasPrefix(cfg.DatabaseURL, "postgres"):
		dialer = postgres.Open(cfg.DatabaseURL)
	case strings.HasPrefix(cfg.DatabaseURL, "mysql://"):
		dialer = mysql.Open(strings.TrimPrefix(cfg.DatabaseURL, "mysql://"))
	case strings.HasPrefix(cfg.DatabaseURL, "sqlite"):
		dialer = sqlite.Open(strings.TrimPrefix(cfg.DatabaseURL, "sqlite://"))
		isSQLite = true
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.DatabaseURL)
	}

	db, err := gorm.Open(dialer, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get connection pool: %w", err)
	}
	switch {
	case isSQLite:
		// SQLite allows a single writer; an in-memory database also only
		// exists inside its one connection.
		sqlDB.SetMaxOpenConns(1)
	case cfg.DBMaxOpenConns > 0:
		sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.DBMaxOpenConns)
	}

	return db, nil
}

// Migrate brings the schema up to date. Postgres uses the versioned SQL
// migrations; other drivers fall back to gorm's AutoMigrate.
func Migrate(db *gorm.DB, databaseURL string, sourcePath string) error {
	if strings.HasPrefix(databaseURL, "postgres") {
		return RunMigrations(databaseURL, sourcePath)
	}
	return AutoMigrate(db)
}

func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.QRCode{}, &models.AccessLog{}); err != nil {
		return fmt.Errorf("failed to auto-migrate: %w", err)
	}
	return nil
}

func RunMigrations(databaseURL string, sourcePath string) error {
	if sourcePath == "" {
		sourcePath = "file://migration"
	}
	m, err := migrate.New(
		sourcePath,
		databaseURL,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run up migrations: %w", err)
	}

	log.Println("Database migrations ran successfully")
	return nil
}
