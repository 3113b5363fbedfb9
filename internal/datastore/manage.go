package datastore

import (
	"time"

	"gorm.io/gorm"

	"github.com/echolens-ai/echolens/internal/errors"
	"github.com/echolens-ai/echolens/internal/logger"
)

// performAutoMigration creates or updates the tables of all models.
func performAutoMigration(db *gorm.DB, dbType string) error {
	start := time.Now()
	migrationLogger := GetLogger().With(logger.String("db_type", dbType))
	migrationLogger.Debug("Starting database migration")

	if err := db.AutoMigrate(&Transcription{}, &SoundAlert{}, &ChatMessage{}, &UserPreferences{}); err != nil {
		return errors.New(err).
			Component(ComponentDatastore).
			Category(errors.CategoryDatabase).
			Context("operation", "auto_migrate").
			Context("db_type", dbType).
			Build()
	}

	migrationLogger.Info("Database migration completed", logger.Duration("duration", time.Since(start)))
	return nil
}

// closeDB closes the connection pool behind db.
func closeDB(db *gorm.DB, dbType string) error {
	if db == nil {
		return ErrNotInitialized
	}
	sqlDB, err := db.DB()
	if err != nil {
		return dbError(err, "close", dbType)
	}
	if err := sqlDB.Close(); err != nil {
		return dbError(err, "close", dbType)
	}
	GetLogger().Info("Database connection closed", logger.String("db_type", dbType))
	return nil
}
