package services

import (
	"errors"
	"fmt"

	"patrimoine/models"
	"patrimoine/utils"

	"gorm.io/gorm"
)

// BankService manages banks scoped to their owner.
type BankService struct {
	db *gorm.DB
}

func NewBankService(db *gorm.DB) *BankService {
	return &BankService{db: db}
}

func (s *BankService) Create(ownerID, name, notes string) (*models.Bank, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: bank name is required", ErrValidation)
	}
	bank := &models.Bank{
		OwnerID: ownerID,
		Name:    models.EncryptedString(name),
		Notes:   models.EncryptedString(notes),
	}
	if err := s.db.Create(bank).Error; err != nil {
		return nil, fmt.Errorf("create bank: %w", err)
	}
	utils.GetMetrics().RecordDomainOperation("bank")
	return bank, nil
}

func (s *BankService) List(ownerID string) ([]models.Bank, error) {
	var banks []models.Bank
	if err := s.db.Preload("Accounts").Where("owner_id = ?", ownerID).Find(&banks).Error; err != nil {
		return nil, fmt.Errorf("list banks: %w", err)
	}
	return banks, nil
}

func (s *BankService) Get(ownerID, id string) (*models.Bank, error) {
	var bank models.Bank
	err := s.db.Preload("Accounts").Where("id = ? AND owner_id = ?", id, ownerID).First(&bank).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: bank %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("get bank: %w", err)
	}
	return &bank, nil
}

func (s *BankService) Update(ownerID, id, name, notes string) (*models.Bank, error) {
	bank, err := s.Get(ownerID, id)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("%w: bank name is required", ErrValidation)
	}
	bank.Name = models.EncryptedString(name)
	bank.Notes = models.EncryptedString(notes)
	if err := s.db.Save(bank).Error; err != nil {
		return nil, fmt.Errorf("update bank: %w", err)
	}
	utils.GetMetrics().RecordDomainOperation("bank")
	return bank, nil
}

// Delete removes a bank; its accounts and their assets go with it through
// the cascade constraints.
func (s *BankService) Delete(ownerID, id string) error {
	res := s.db.Where("id = ? AND owner_id = ?", id, ownerID).Delete(&models.Bank{})
	if res.Error != nil {
		return fmt.Errorf("delete bank: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: bank %s", ErrNotFound, id)
	}
	utils.GetMetrics().RecordDomainOperation("bank")
	return nil
}
