package models

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Bank struct {
	ID      string          `gorm:"primaryKey;size:36" json:"id"`
	OwnerID string          `gorm:"column:owner_id;size:36;index;not null" json:"ownerId"`
	Name    EncryptedString `gorm:"column:name;type:text;not null" json:"name"`
	Notes   EncryptedString `gorm:"column:notes;type:text" json:"notes"`

	Owner    User      `gorm:"foreignKey:OwnerID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
	Accounts []Account `gorm:"foreignKey:BankID" json:"accounts,omitempty"`
}

func (Bank) TableName() string {
	return "banks"
}

func (b *Bank) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.Name == "" {
		return errors.New("bank name is required")
	}
	return nil
}
