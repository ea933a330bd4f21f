package db

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/quarterhill/stratus/internal/config"
	"github.com/quarterhill/stratus/internal/logging"
	"github.com/quarterhill/stratus/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open creates (or opens) the single SQLite store file and runs migrations.
// Migrations are additive only: new nullable columns may appear, existing
// rows are never rewritten.
func Open(cfg *config.Config, logger logging.Logger) (*gorm.DB, error) {
	// Route SQL logs through our structured logger so they are not plain text
	var gormLevel gormlogger.LogLevel
	switch strings.ToLower(logging.GetLevel()) {
	case "debug":
		gormLevel = gormlogger.Info // log SQL traces at debug level
	case "error", "fatal":
		gormLevel = gormlogger.Error
	default:
		gormLevel = gormlogger.Warn
	}
	gormLogger := newGormLogger(logger, gormLevel)

	if dir := filepath.Dir(cfg.DBPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	logger.Info("db open", "driver", "sqlite", "path", cfg.DBPath)

	gdb, err := gorm.Open(sqlite.Open(cfg.DBPath), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, err
	}
	if err := gdb.Exec("PRAGMA journal_mode = WAL").Error; err != nil {
		return nil, err
	}
	if err := Migrate(gdb); err != nil {
		return nil, err
	}
	return gdb, nil
}

// Migrate runs the additive schema migration for all inventory tables.
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&models.Subscription{},
		&models.StorageAccount{},
		&models.Container{},
		&models.StorageAccountSecurity{},
		&models.WasabiAccount{},
		&models.WasabiBucket{},
		&models.AWSAccount{},
		&models.AWSBucket{},
		&models.EFSFileSystem{},
		&models.PricingSnapshot{},
		&models.IPAlias{},
		&models.Setting{},
	)
}

// Close flushes and closes the underlying SQLite handle.
func Close(gdb *gorm.DB) error {
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
