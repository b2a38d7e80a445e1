package services

import (
	"testing"

	"patrimoine/database"
	"patrimoine/models"
	"patrimoine/utils"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB opens an in-memory database with the field cipher installed
// and the schema migrated.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	fc, err := utils.NewFieldCipher("test-secret", "test-salt")
	if err != nil {
		t.Fatalf("cipher init: %v", err)
	}
	models.UseCipher(fc)
	t.Cleanup(func() { models.UseCipher(nil) })

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// A second connection would get its own empty in-memory database.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	auth := NewAuthService(db, []byte("jwt-test-key"), 0)
	user, err := auth.Register(username, username+"@example.org", "Passw0rd!")
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return user
}

// createTestAccount creates a bank and one account for the user and returns
// the account id.
func createTestAccount(t *testing.T, db *gorm.DB, ownerID string) string {
	t.Helper()
	bank, err := NewBankService(db).Create(ownerID, "Banque Test", "")
	if err != nil {
		t.Fatalf("create bank: %v", err)
	}
	account, err := NewAccountService(db).Create(ownerID, bank.ID, "courant", "Compte courant")
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	return account.ID
}
