package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductTypes are the supported legal wrappers for an asset.
var ProductTypes = []string{
	"etf", "sicav", "action", "obligation", "scpi", "reits",
	"fonds_euro", "crypto", "metal", "cash", "immo_direct", "autre",
}

// Asset is a financial holding. Names, notes and the allocation maps are
// encrypted; the numeric valuation columns stay plain because aggregate
// queries need them.
type Asset struct {
	ID          string          `gorm:"primaryKey;size:36" json:"id"`
	OwnerID     string          `gorm:"column:owner_id;size:36;index;not null" json:"ownerId"`
	AccountID   string          `gorm:"column:account_id;size:36;index;not null" json:"accountId"`
	Name        EncryptedString `gorm:"column:name;type:text;not null" json:"name"`
	ProductType string          `gorm:"column:product_type;size:32" json:"productType"`
	Category    string          `gorm:"column:category;size:32" json:"category"`

	Allocation    EncryptedMap    `gorm:"column:allocation;type:text" json:"allocation"`
	GeoAllocation EncryptedGeoMap `gorm:"column:geo_allocation;type:text" json:"geoAllocation"`
	Components    EncryptedMap    `gorm:"column:components;type:text" json:"components,omitempty"`

	CurrentValue float64 `gorm:"column:current_value" json:"currentValue"`
	CostBasis    float64 `gorm:"column:cost_basis" json:"costBasis"`
	Currency     string  `gorm:"column:currency;size:8;default:EUR" json:"currency"`
	ExchangeRate float64 `gorm:"column:exchange_rate;default:1.0" json:"exchangeRate"`
	ValueEUR     float64 `gorm:"column:value_eur" json:"valueEur"`

	ISIN   string  `gorm:"column:isin;size:12" json:"isin,omitempty"`
	Ounces float64 `gorm:"column:ounces" json:"ounces,omitempty"`

	Notes EncryptedString `gorm:"column:notes;type:text" json:"notes,omitempty"`
	Todo  EncryptedString `gorm:"column:todo;type:text" json:"todo,omitempty"`

	LastPriceSync *time.Time `gorm:"column:last_price_sync" json:"lastPriceSync,omitempty"`
	LastRateSync  *time.Time `gorm:"column:last_rate_sync" json:"lastRateSync,omitempty"`
	SyncError     string     `gorm:"column:sync_error" json:"syncError,omitempty"`

	UpdatedAt time.Time `gorm:"column:updated_at" json:"updatedAt"`
	CreatedAt time.Time `gorm:"column:created_at" json:"createdAt"`

	Owner   User    `gorm:"foreignKey:OwnerID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
	Account Account `gorm:"foreignKey:AccountID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Asset) TableName() string {
	return "assets"
}

func (a *Asset) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Name == "" {
		return errors.New("asset name is required")
	}
	if a.AccountID == "" {
		return errors.New("asset requires an account")
	}
	if a.Currency == "" {
		a.Currency = "EUR"
	}
	if a.ExchangeRate == 0 {
		a.ExchangeRate = 1.0
	}
	return nil
}

// IsComposite reports whether the asset is built from other assets.
func (a *Asset) IsComposite() bool {
	return len(a.Components) > 0
}

// EURValue returns the valuation in EUR, falling back to the raw value for
// assets that have never been synced.
func (a *Asset) EURValue() float64 {
	if a.Currency == "EUR" || a.ValueEUR == 0 && a.ExchangeRate == 1.0 {
		return a.CurrentValue
	}
	if a.ValueEUR != 0 {
		return a.ValueEUR
	}
	return a.CurrentValue
}
