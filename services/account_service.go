package services

import (
	"errors"
	"fmt"
	"slices"

	"patrimoine/models"
	"patrimoine/utils"

	"gorm.io/gorm"
)

// AccountService manages accounts; every operation checks that the account's
// bank belongs to the caller.
type AccountService struct {
	db *gorm.DB
}

func NewAccountService(db *gorm.DB) *AccountService {
	return &AccountService{db: db}
}

func (s *AccountService) Create(ownerID, bankID, accountType, label string) (*models.Account, error) {
	if !slices.Contains(models.AccountTypes, accountType) {
		return nil, fmt.Errorf("%w: unknown account type %q", ErrValidation, accountType)
	}
	if label == "" {
		return nil, fmt.Errorf("%w: account label is required", ErrValidation)
	}

	var bank models.Bank
	if err := s.db.Where("id = ? AND owner_id = ?", bankID, ownerID).First(&bank).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: bank %s", ErrNotFound, bankID)
		}
		return nil, fmt.Errorf("check bank: %w", err)
	}

	account := &models.Account{
		BankID: bankID,
		Type:   accountType,
		Label:  models.EncryptedString(label),
	}
	if err := s.db.Create(account).Error; err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	utils.GetMetrics().RecordDomainOperation("account")
	return account, nil
}

func (s *AccountService) List(ownerID, bankID string) ([]models.Account, error) {
	q := s.db.Joins("JOIN banks ON banks.id = accounts.bank_id").
		Where("banks.owner_id = ?", ownerID)
	if bankID != "" {
		q = q.Where("accounts.bank_id = ?", bankID)
	}
	var accounts []models.Account
	if err := q.Find(&accounts).Error; err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

func (s *AccountService) Get(ownerID, id string) (*models.Account, error) {
	var account models.Account
	err := s.db.Joins("JOIN banks ON banks.id = accounts.bank_id").
		Where("accounts.id = ? AND banks.owner_id = ?", id, ownerID).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: account %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &account, nil
}

func (s *AccountService) Update(ownerID, id, accountType, label string) (*models.Account, error) {
	account, err := s.Get(ownerID, id)
	if err != nil {
		return nil, err
	}
	if accountType != "" {
		if !slices.Contains(models.AccountTypes, accountType) {
			return nil, fmt.Errorf("%w: unknown account type %q", ErrValidation, accountType)
		}
		account.Type = accountType
	}
	if label != "" {
		account.Label = models.EncryptedString(label)
	}
	if err := s.db.Save(account).Error; err != nil {
		return nil, fmt.Errorf("update account: %w", err)
	}
	utils.GetMetrics().RecordDomainOperation("account")
	return account, nil
}

func (s *AccountService) Delete(ownerID, id string) error {
	if _, err := s.Get(ownerID, id); err != nil {
		return err
	}
	if err := s.db.Delete(&models.Account{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	utils.GetMetrics().RecordDomainOperation("account")
	return nil
}
