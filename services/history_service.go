package services

import (
	"errors"
	"fmt"
	"time"

	"patrimoine/models"
	"patrimoine/utils"

	"gorm.io/gorm"
)

// HistoryService records dated valuation snapshots of a portfolio.
type HistoryService struct {
	db     *gorm.DB
	assets *AssetService
}

func NewHistoryService(db *gorm.DB, assets *AssetService) *HistoryService {
	return &HistoryService{db: db, assets: assets}
}

// RecordSnapshot stores today's per-asset valuations and total. A second
// snapshot on the same day replaces the first.
func (h *HistoryService) RecordSnapshot(ownerID string) (*models.HistoryPoint, error) {
	assets, err := h.assets.List(ownerID)
	if err != nil {
		return nil, err
	}
	if len(assets) == 0 {
		return nil, fmt.Errorf("%w: no assets to snapshot", ErrValidation)
	}

	valuations := make(map[string]float64, len(assets))
	for i := range assets {
		valuations[assets[i].ID] = assets[i].EURValue()
	}

	today := time.Now().Format("2006-01-02")
	point := &models.HistoryPoint{
		UserID: ownerID,
		Date:   today,
		Assets: models.EncryptedMap(valuations),
		Total:  utils.TotalValue(valuations),
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND date = ?", ownerID, today).
			Delete(&models.HistoryPoint{}).Error; err != nil {
			return err
		}
		return tx.Create(point).Error
	})
	if err != nil {
		return nil, fmt.Errorf("record snapshot: %w", err)
	}
	utils.GetMetrics().RecordDomainOperation("snapshot")
	return point, nil
}

// List returns snapshots in chronological order.
func (h *HistoryService) List(ownerID string) ([]models.HistoryPoint, error) {
	var points []models.HistoryPoint
	if err := h.db.Where("user_id = ?", ownerID).Order("date ASC").Find(&points).Error; err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return points, nil
}

// Latest returns the most recent snapshot.
func (h *HistoryService) Latest(ownerID string) (*models.HistoryPoint, error) {
	var point models.HistoryPoint
	err := h.db.Where("user_id = ?", ownerID).Order("date DESC").First(&point).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: no snapshots", ErrNotFound)
		}
		return nil, fmt.Errorf("latest snapshot: %w", err)
	}
	return &point, nil
}
