package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID           string          `gorm:"primaryKey;size:36" json:"id"`
	Username     string          `gorm:"column:username;uniqueIndex;not null;size:64" json:"username"`
	Email        EncryptedString `gorm:"column:email;type:text" json:"email"`
	PasswordHash string          `gorm:"column:password_hash;not null;size:100" json:"-"`
	IsActive     bool            `gorm:"column:is_active;default:true" json:"isActive"`
	CreatedAt    time.Time       `gorm:"column:created_at;default:CURRENT_TIMESTAMP" json:"createdAt"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if len(u.Username) < 3 || len(u.Username) > 64 {
		return errors.New("username must be between 3 and 64 characters")
	}
	if u.PasswordHash == "" {
		return errors.New("password hash is required")
	}
	return nil
}
