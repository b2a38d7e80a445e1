package services

import (
	"errors"
	"testing"

	"patrimoine/models"
	"patrimoine/utils"
)

func TestRotateReencryptsAllRows(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "nadia")
	accountID := createTestAccount(t, db, owner.ID)

	assets := NewAssetService(db)
	created, err := assets.Create(owner.ID, simpleAsset(accountID, "ETF Monde", 1000, map[string]float64{"actions": 100}))
	if err != nil {
		t.Fatalf("create asset: %v", err)
	}
	if _, err := NewHistoryService(db, assets).RecordSnapshot(owner.ID); err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	current, err := utils.NewFieldCipher("test-secret", "test-salt")
	if err != nil {
		t.Fatalf("current cipher: %v", err)
	}
	next, err := utils.NewFieldCipher("test-secret", "rotated-salt")
	if err != nil {
		t.Fatalf("next cipher: %v", err)
	}

	count, err := NewRotationService(db).Rotate(current, next)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	// user + bank + account + asset + history point
	if count != 5 {
		t.Errorf("expected 5 rewritten rows, got %d", count)
	}

	// The new cipher stays installed and reads the data back intact.
	got, err := assets.Get(owner.ID, created.ID)
	if err != nil {
		t.Fatalf("get after rotation: %v", err)
	}
	if string(got.Name) != "ETF Monde" {
		t.Errorf("asset name after rotation: %q", got.Name)
	}
	if err := NewIntegrityService(db, nil).Verify(); err != nil {
		t.Errorf("integrity after rotation: %v", err)
	}

	// The old key must no longer decrypt anything.
	models.UseCipher(current)
	if _, err := assets.Get(owner.ID, created.ID); !errors.Is(err, utils.ErrDataCorruption) {
		t.Errorf("old key must yield the corruption signal, got %v", err)
	}
	models.UseCipher(next)
}

func TestRotateRefusesCorruptedRows(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "marc")
	accountID := createTestAccount(t, db, owner.ID)
	if _, err := NewAssetService(db).Create(owner.ID, simpleAsset(accountID, "Livret", 500, map[string]float64{"fonds_euro": 100})); err != nil {
		t.Fatalf("create asset: %v", err)
	}
	if err := db.Exec("UPDATE assets SET name = 'ruined-token'").Error; err != nil {
		t.Fatalf("corrupt row: %v", err)
	}

	current, _ := utils.NewFieldCipher("test-secret", "test-salt")
	next, _ := utils.NewFieldCipher("test-secret", "rotated-salt")

	if _, err := NewRotationService(db).Rotate(current, next); !errors.Is(err, utils.ErrDataCorruption) {
		t.Fatalf("rotation over corrupted data must abort, got %v", err)
	}

	// Nothing was rewritten: the undamaged user row still reads under the
	// original key.
	models.UseCipher(current)
	var user models.User
	if err := db.First(&user, "id = ?", owner.ID).Error; err != nil {
		t.Errorf("user row must still decrypt with the original key: %v", err)
	}
}
