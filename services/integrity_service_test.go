package services

import (
	"errors"
	"testing"

	"patrimoine/models"
	"patrimoine/utils"
)

func TestIntegrityVerify_CleanDatabase(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "claire")
	accountID := createTestAccount(t, db, owner.ID)
	NewAssetService(db).Create(owner.ID, simpleAsset(accountID, "ETF", 1000,
		map[string]float64{"actions": 100}))

	if err := NewIntegrityService(db, nil).Verify(); err != nil {
		t.Errorf("clean database must verify: %v", err)
	}
}

func TestIntegrityVerify_EmptyDatabase(t *testing.T) {
	db := setupTestDB(t)

	if err := NewIntegrityService(db, nil).Verify(); err != nil {
		t.Errorf("empty database must verify: %v", err)
	}
}

func TestIntegrityVerify_DetectsCorruption(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "claire")
	accountID := createTestAccount(t, db, owner.ID)
	asset, err := NewAssetService(db).Create(owner.ID, simpleAsset(accountID, "ETF", 1000,
		map[string]float64{"actions": 100}))
	if err != nil {
		t.Fatalf("create asset: %v", err)
	}

	// Overwrite the ciphertext behind the ORM's back.
	if err := db.Exec("UPDATE assets SET name = ? WHERE id = ?", "ruined-token", asset.ID).Error; err != nil {
		t.Fatalf("corrupt row: %v", err)
	}

	err = NewIntegrityService(db, nil).Verify()
	if err == nil {
		t.Fatal("corrupted row must fail verification")
	}
	if !errors.Is(err, utils.ErrDataCorruption) {
		t.Errorf("expected ErrDataCorruption, got %v", err)
	}
}

func TestIntegrityFullScan(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "claire")
	accountID := createTestAccount(t, db, owner.ID)
	assets := NewAssetService(db)

	good, _ := assets.Create(owner.ID, simpleAsset(accountID, "ETF", 1000,
		map[string]float64{"actions": 100}))
	bad, _ := assets.Create(owner.ID, simpleAsset(accountID, "Livret", 500,
		map[string]float64{"cash": 100}))

	if err := db.Exec("UPDATE assets SET notes = ? WHERE id = ?", "ruined-token", bad.ID).Error; err != nil {
		t.Fatalf("corrupt row: %v", err)
	}

	report, err := NewIntegrityService(db, nil).FullScan()
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if report.Passed {
		t.Error("scan with a corrupted row must not pass")
	}
	if report.Corrupted != 1 {
		t.Errorf("expected 1 corrupted row, got %d", report.Corrupted)
	}
	if len(report.Items) != 1 || report.Items[0].ID != bad.ID {
		t.Errorf("report must name the corrupted asset: %+v", report.Items)
	}
	for _, item := range report.Items {
		if item.ID == good.ID {
			t.Error("intact row flagged as corrupted")
		}
	}
}

func TestIntegrityFullScan_WrongKey(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "claire")
	accountID := createTestAccount(t, db, owner.ID)
	NewAssetService(db).Create(owner.ID, simpleAsset(accountID, "ETF", 1000,
		map[string]float64{"actions": 100}))

	// Swap the key: everything written so far becomes unreadable.
	other, _ := utils.NewFieldCipher("rotated-secret", "test-salt")
	models.UseCipher(other)

	report, err := NewIntegrityService(db, nil).FullScan()
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if report.Passed || report.Corrupted == 0 {
		t.Error("scan under a wrong key must report corruption")
	}
}
