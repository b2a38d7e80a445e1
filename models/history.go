package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// HistoryPoint is a dated snapshot of the portfolio: the per-asset EUR
// valuations (encrypted) and the plain total used for charting.
type HistoryPoint struct {
	ID     string       `gorm:"primaryKey;size:36" json:"id"`
	UserID string       `gorm:"column:user_id;size:36;index;not null" json:"userId"`
	Date   string       `gorm:"column:date;size:10;index;not null" json:"date"` // YYYY-MM-DD
	Assets EncryptedMap `gorm:"column:assets;type:text" json:"assets"`
	Total  float64      `gorm:"column:total" json:"total"`

	User User `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
}

func (HistoryPoint) TableName() string {
	return "history"
}

func (h *HistoryPoint) BeforeCreate(tx *gorm.DB) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	return nil
}
