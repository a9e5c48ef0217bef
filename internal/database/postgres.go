package database

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/alenapavlenkko/expireassist/internal/models"
	"github.com/alenapavlenkko/expireassist/pkg/utils"
)

// Options tunes NewPostgres.
type Options struct {
	Attempts int    // connection attempts before giving up
	LogLevel string // silent, error, warn, info
}

// NewPostgres connects to PostgreSQL, retrying with exponential backoff
// capped at 10s between attempts.
func NewPostgres(dsn string, opts Options) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	if opts.Attempts <= 0 {
		opts.Attempts = 15
	}

	utils.Log.Info("Attempting to connect to database...")

	for i := 1; i <= opts.Attempts; i++ {
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger: logger.Default.LogMode(ParseLogLevel(opts.LogLevel)),
		})

		if err == nil {
			sqlDB, dbErr := db.DB()
			if dbErr == nil {
				if err = sqlDB.Ping(); err == nil {
					utils.Log.Info("Database connected", zap.Int("attempt", i))
					return db, nil
				}
			} else {
				err = dbErr
			}
		}

		utils.Log.Warn("Database connection attempt failed", zap.Int("attempt", i), zap.Error(err))

		if i == opts.Attempts {
			break
		}
		time.Sleep(backoff(i))
	}

	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", opts.Attempts, err)
}

// backoff: 1, 2, 4, 8, 10, 10... seconds
func backoff(attempt int) time.Duration {
	if attempt > 5 {
		return 10 * time.Second
	}
	wait := time.Duration(1<<uint(attempt-1)) * time.Second
	if wait > 10*time.Second {
		wait = 10 * time.Second
	}
	return wait
}

// ParseLogLevel maps a config string to a gorm log level. Unknown values
// fall back to warn.
func ParseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

// AutoMigrateTables creates or updates tables for the given models.
func AutoMigrateTables(db *gorm.DB, models ...interface{}) error {
	utils.Log.Info("Running database migrations...")

	for _, model := range models {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	utils.Log.Info("Database migrations completed")
	return nil
}

// AllModels lists every table of the application in dependency order.
func AllModels() []interface{} {
	return []interface{}{
		&models.Item{},
		&models.InventoryRow{},
		&models.Meal{},
		&models.MealItem{},
		&models.Recommendation{},
	}
}
