package database

import (
	"fmt"

	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/stowagehq/stowage/backend/internal/accounts"
	"github.com/stowagehq/stowage/backend/internal/conversations"
	"github.com/stowagehq/stowage/backend/internal/listings"
	"github.com/stowagehq/stowage/backend/internal/orders"
	"github.com/stowagehq/stowage/backend/internal/reviews"
)

// OpenSQLite establishes a SQLite connection and performs schema migrations.
func OpenSQLite(path string, logger *zap.Logger) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&accounts.Account{},
		&listings.Listing{},
		&listings.ContainerListing{},
		&listings.Interest{},
		&conversations.Conversation{},
		&conversations.Message{},
		&orders.Order{},
		&reviews.Review{},
		&migrationRecord{},
	); err != nil {
		return nil, err
	}

	if err := applyMigrations(db, logger); err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Info("database initialized", zap.String("path", path))
	}

	return db, nil
}
