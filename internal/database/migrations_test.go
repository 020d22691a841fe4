package database

import (
	"fmt"
	"strings"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/stowagehq/stowage/backend/internal/accounts"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&accounts.Account{}, &migrationRecord{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	return db
}

func TestApplyMigrationsNormalizesHandles(t *testing.T) {
	db := openTestDB(t)

	legacy := accounts.Account{ID: "acc-1", Handle: "  MixedCase ", Email: "a@example.com"}
	clean := accounts.Account{ID: "acc-2", Handle: "tidy", Email: "b@example.com"}
	if err := db.Create(&legacy).Error; err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if err := db.Create(&clean).Error; err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	if err := applyMigrations(db, nil); err != nil {
		t.Fatalf("migrations failed: %v", err)
	}

	var repaired accounts.Account
	if err := db.Where("id = ?", "acc-1").Take(&repaired).Error; err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if repaired.Handle != "mixedcase" {
		t.Fatalf("handle not normalized: %q", repaired.Handle)
	}
}

func TestApplyMigrationsIsIdempotent(t *testing.T) {
	db := openTestDB(t)

	if err := applyMigrations(db, nil); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if err := applyMigrations(db, nil); err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	var count int64
	if err := db.Model(&migrationRecord{}).
		Where("name = ?", migrationNormalizeAccountHandles).
		Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("migration recorded %d times", count)
	}
}
