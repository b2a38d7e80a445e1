package services

import (
	"fmt"

	"patrimoine/models"
	"patrimoine/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RotationService rewrites every encrypted row under a new key. Rows are
// loaded while the current cipher is installed, so their plaintext is held
// in memory, then persisted again with the next cipher. A row that fails to
// decrypt aborts the rotation before anything is written.
type RotationService struct {
	db *gorm.DB
}

func NewRotationService(db *gorm.DB) *RotationService {
	return &RotationService{db: db}
}

// Rotate re-encrypts the whole dataset from current to next and returns the
// number of rewritten rows. On success next stays installed as the process
// cipher; on failure current is restored.
func (s *RotationService) Rotate(current, next *utils.FieldCipher) (int, error) {
	models.UseCipher(current)

	var users []models.User
	if err := s.db.Find(&users).Error; err != nil {
		return 0, fmt.Errorf("load users: %w", err)
	}
	var banks []models.Bank
	if err := s.db.Find(&banks).Error; err != nil {
		return 0, fmt.Errorf("load banks: %w", err)
	}
	var accounts []models.Account
	if err := s.db.Find(&accounts).Error; err != nil {
		return 0, fmt.Errorf("load accounts: %w", err)
	}
	var assets []models.Asset
	if err := s.db.Find(&assets).Error; err != nil {
		return 0, fmt.Errorf("load assets: %w", err)
	}
	var history []models.HistoryPoint
	if err := s.db.Find(&history).Error; err != nil {
		return 0, fmt.Errorf("load history: %w", err)
	}

	models.UseCipher(next)

	count := 0
	err := s.db.Transaction(func(tx *gorm.DB) error {
		// Associations stay untouched: each row rewrites its own columns.
		save := func(record interface{}, kind, id string) error {
			if err := tx.Omit(clause.Associations).Save(record).Error; err != nil {
				return fmt.Errorf("rewrite %s %s: %w", kind, id, err)
			}
			count++
			return nil
		}
		for i := range users {
			if err := save(&users[i], "user", users[i].ID); err != nil {
				return err
			}
		}
		for i := range banks {
			if err := save(&banks[i], "bank", banks[i].ID); err != nil {
				return err
			}
		}
		for i := range accounts {
			if err := save(&accounts[i], "account", accounts[i].ID); err != nil {
				return err
			}
		}
		for i := range assets {
			if err := save(&assets[i], "asset", assets[i].ID); err != nil {
				return err
			}
		}
		for i := range history {
			if err := save(&history[i], "history point", history[i].ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		models.UseCipher(current)
		return 0, err
	}

	utils.LogInfo("encryption rotated: %d rows rewritten", count)
	return count, nil
}
