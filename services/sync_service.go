package services

import (
	"fmt"

	"patrimoine/utils"
)

// SyncService refreshes each asset's EUR valuation from the current
// exchange rates.
type SyncService struct {
	assets   *AssetService
	currency *CurrencyService
}

func NewSyncService(assets *AssetService, currency *CurrencyService) *SyncService {
	return &SyncService{assets: assets, currency: currency}
}

// SyncResult summarizes one refresh run.
type SyncResult struct {
	Synced int      `json:"synced"`
	Failed int      `json:"failed"`
	Errors []string `json:"errors,omitempty"`
}

// SyncOwner recomputes value_eur and exchange_rate for every asset of the
// owner. Failures are recorded per asset (sync_error) and do not stop the
// run.
func (s *SyncService) SyncOwner(ownerID string) (*SyncResult, error) {
	assets, err := s.assets.List(ownerID)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{}
	for i := range assets {
		asset := &assets[i]

		valueEUR, rate, convErr := s.currency.ConvertToEUR(asset.CurrentValue, asset.Currency)
		if convErr == nil {
			asset.ValueEUR = valueEUR
		} else {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", asset.ID, convErr))
		}
		if err := s.assets.MarkSynced(asset, rate, convErr); err != nil {
			return nil, err
		}
		if convErr == nil {
			result.Synced++
		}
	}

	utils.GetMetrics().RecordDomainOperation("sync")
	return result, nil
}
