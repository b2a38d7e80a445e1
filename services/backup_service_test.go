package services

import (
	"errors"
	"os"
	"strings"
	"testing"

	"patrimoine/models"
	"patrimoine/utils"
)

func TestBackupCreateAndRestore(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "claire")
	accountID := createTestAccount(t, db, owner.ID)
	assets := NewAssetService(db)
	assets.Create(owner.ID, simpleAsset(accountID, "ETF Monde", 1000,
		map[string]float64{"actions": 100}))

	backups, err := NewBackupService(db, t.TempDir(), "master-secret", nil)
	if err != nil {
		t.Fatalf("backup service: %v", err)
	}

	path, err := backups.Create()
	if err != nil {
		t.Fatalf("create backup: %v", err)
	}
	if !strings.HasSuffix(path, ".json.gz.enc") {
		t.Errorf("unexpected backup name: %s", path)
	}
	if _, err := os.Stat(path + ".hmac"); err != nil {
		t.Error("checksum file missing")
	}

	// Wipe everything, then restore.
	for _, table := range []string{"history", "assets", "accounts", "banks", "users"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			t.Fatalf("clear %s: %v", table, err)
		}
	}
	if err := backups.Restore(path); err != nil {
		t.Fatalf("restore: %v", err)
	}

	restored, err := assets.List(owner.ID)
	if err != nil {
		t.Fatalf("list after restore: %v", err)
	}
	if len(restored) != 1 || string(restored[0].Name) != "ETF Monde" {
		t.Errorf("asset did not survive the roundtrip: %+v", restored)
	}

	var userCount int64
	db.Model(&models.User{}).Count(&userCount)
	if userCount != 1 {
		t.Errorf("expected 1 restored user, got %d", userCount)
	}

	// The restored account must still be able to log in.
	auth := NewAuthService(db, []byte("jwt-test-key"), 0)
	if _, err := auth.Authenticate("claire", "Passw0rd!"); err != nil {
		t.Errorf("restored user cannot authenticate: %v", err)
	}
}

func TestBackupRestore_TamperDetected(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "claire")
	accountID := createTestAccount(t, db, owner.ID)
	NewAssetService(db).Create(owner.ID, simpleAsset(accountID, "ETF", 1000,
		map[string]float64{"actions": 100}))

	backups, _ := NewBackupService(db, t.TempDir(), "master-secret", nil)
	path, err := backups.Create()
	if err != nil {
		t.Fatalf("create backup: %v", err)
	}

	data, _ := os.ReadFile(path)
	data[len(data)-1] ^= 1
	os.WriteFile(path, data, 0o600)

	err = backups.Restore(path)
	if !errors.Is(err, utils.ErrDataCorruption) {
		t.Errorf("tampered backup: expected ErrDataCorruption, got %v", err)
	}
}

func TestBackupRestore_WrongSecret(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "claire")
	accountID := createTestAccount(t, db, owner.ID)
	NewAssetService(db).Create(owner.ID, simpleAsset(accountID, "ETF", 1000,
		map[string]float64{"actions": 100}))

	dir := t.TempDir()
	writer, _ := NewBackupService(db, dir, "master-secret", nil)
	path, err := writer.Create()
	if err != nil {
		t.Fatalf("create backup: %v", err)
	}

	reader, _ := NewBackupService(db, dir, "different-secret", nil)
	if err := reader.Restore(path); !errors.Is(err, utils.ErrDataCorruption) {
		t.Errorf("wrong secret: expected ErrDataCorruption, got %v", err)
	}
}

func TestBackupList_NewestFirst(t *testing.T) {
	db := setupTestDB(t)
	createTestUser(t, db, "claire")

	dir := t.TempDir()
	backups, _ := NewBackupService(db, dir, "master-secret", nil)

	// Fabricate two stamped files; List orders by name, newest first.
	os.WriteFile(dir+"/backup_20250101_000000.json.gz.enc", []byte("x"), 0o600)
	os.WriteFile(dir+"/backup_20260101_000000.json.gz.enc", []byte("x"), 0o600)

	list, err := backups.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 backups, got %d", len(list))
	}
	if !strings.Contains(list[0], "2026") {
		t.Errorf("newest backup must come first: %v", list)
	}
}
