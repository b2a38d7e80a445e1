package models

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AccountTypes are the supported account kinds.
var AccountTypes = []string{"courant", "livret", "pea", "titre", "assurance_vie", "autre"}

type Account struct {
	ID     string          `gorm:"primaryKey;size:36" json:"id"`
	BankID string          `gorm:"column:bank_id;size:36;index;not null" json:"bankId"`
	Type   string          `gorm:"column:type;size:32;not null" json:"type"`
	Label  EncryptedString `gorm:"column:label;type:text;not null" json:"label"`

	Bank   Bank    `gorm:"foreignKey:BankID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
	Assets []Asset `gorm:"foreignKey:AccountID" json:"assets,omitempty"`
}

func (Account) TableName() string {
	return "accounts"
}

func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.BankID == "" {
		return errors.New("account requires a bank")
	}
	if a.Label == "" {
		return errors.New("account label is required")
	}
	return nil
}
