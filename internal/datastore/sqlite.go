package datastore

import (
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/echolens-ai/echolens/internal/conf"
	"github.com/echolens-ai/echolens/internal/errors"
	"github.com/echolens-ai/echolens/internal/logger"
)

// SQLiteStore implements Interface for SQLite.
type SQLiteStore struct {
	DataStore
	Settings *conf.Settings
}

// Open opens the database file, creating its directory when needed, and
// migrates the schema. The path ":memory:" opens a private in-memory database.
func (store *SQLiteStore) Open() error {
	path := store.Settings.Output.SQLite.Path
	if path == "" {
		return errors.Newf("sqlite path is empty").
			Component(ComponentDatastore).
			Category(errors.CategoryConfiguration).
			Build()
	}

	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return errors.New(fmt.Errorf("create database directory: %w", err)).
					Component(ComponentDatastore).
					Category(errors.CategoryFileIO).
					Context("path", dir).
					Build()
			}
		}
		path += "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: createGormLogger("sqlite")})
	if err != nil {
		return dbError(err, "open", "sqlite")
	}

	// sqlite serializes writers, and an in-memory database only exists on one connection
	sqlDB, err := db.DB()
	if err != nil {
		return dbError(err, "open", "sqlite")
	}
	sqlDB.SetMaxOpenConns(1)

	store.DB = db
	GetLogger().Info("SQLite database opened", logger.String("path", store.Settings.Output.SQLite.Path))
	return performAutoMigration(db, "sqlite")
}

// Close closes the database connection.
func (store *SQLiteStore) Close() error {
	return closeDB(store.DB, "sqlite")
}
