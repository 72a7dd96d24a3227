// database.go - Handles database connection and setup

package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"patient-registry/auth"
	"patient-registry/config"
	"patient-registry/models"
	"patient-registry/store"
)

// Open connects using the configured driver and runs migrations.
func Open(cfg *config.Config, logger zerolog.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "postgres":
		dialector = postgres.Open(cfg.DatabaseURL)
	default:
		dialector = sqliteDialector(cfg.DBPath)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true, // unique violations surface as gorm.ErrDuplicatedKey
		Logger: gormlogger.New(
			log.New(logger.With().Str("component", "gorm").Logger(), "", 0),
			gormlogger.Config{SlowThreshold: 200 * time.Millisecond, LogLevel: gormlogger.Warn, IgnoreRecordNotFoundError: true},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.DBDriver, err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates the users and patients tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.User{}, &models.Patient{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// EnsureAdmin creates the bootstrap admin account when no admin exists yet.
// It reports whether an account was created.
func EnsureAdmin(ctx context.Context, users *store.Users, username, password string) (bool, error) {
	count, err := users.CountAdmins(ctx)
	if err != nil {
		return false, fmt.Errorf("count admins: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return false, err
	}
	admin := &models.User{Username: username, PasswordHash: hash, Role: models.RoleAdmin}
	if err := users.Create(ctx, admin); err != nil {
		return false, fmt.Errorf("create admin %q: %w", username, err)
	}
	return true, nil
}
