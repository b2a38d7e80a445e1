package services

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"patrimoine/models"
	"patrimoine/utils"

	"gorm.io/gorm"
)

// AssetInput carries the mutable fields of an asset as submitted by the API.
type AssetInput struct {
	AccountID     string
	Name          string
	ProductType   string
	Category      string
	Allocation    map[string]float64
	GeoAllocation map[string]map[string]float64
	Components    map[string]float64
	CurrentValue  float64
	CostBasis     float64
	Currency      string
	ISIN          string
	Ounces        float64
	Notes         string
	Todo          string
}

// AssetService manages assets: CRUD, allocation normalization and the
// composite-asset rules.
type AssetService struct {
	db *gorm.DB
}

func NewAssetService(db *gorm.DB) *AssetService {
	return &AssetService{db: db}
}

func (s *AssetService) Create(ownerID string, in AssetInput) (*models.Asset, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("%w: asset name is required", ErrValidation)
	}
	if in.ProductType != "" && !slices.Contains(models.ProductTypes, in.ProductType) {
		return nil, fmt.Errorf("%w: unknown product type %q", ErrValidation, in.ProductType)
	}
	if err := s.checkAccountOwnership(ownerID, in.AccountID); err != nil {
		return nil, err
	}

	alloc, geo, err := s.normalizedMaps(in)
	if err != nil {
		return nil, err
	}

	asset := &models.Asset{
		OwnerID:       ownerID,
		AccountID:     in.AccountID,
		Name:          models.EncryptedString(in.Name),
		ProductType:   in.ProductType,
		Category:      in.Category,
		Allocation:    alloc,
		GeoAllocation: geo,
		CurrentValue:  in.CurrentValue,
		CostBasis:     in.CostBasis,
		Currency:      in.Currency,
		ISIN:          in.ISIN,
		Ounces:        in.Ounces,
		Notes:         models.EncryptedString(in.Notes),
		Todo:          models.EncryptedString(in.Todo),
	}
	if asset.Currency == "" {
		asset.Currency = "EUR"
	}
	if asset.Currency == "EUR" {
		asset.ValueEUR = asset.CurrentValue
	}

	if len(in.Components) > 0 {
		if err := s.checkComponents(ownerID, "", in.Components); err != nil {
			return nil, err
		}
		asset.Components = in.Components
	}

	if err := s.db.Create(asset).Error; err != nil {
		return nil, fmt.Errorf("create asset: %w", err)
	}
	utils.GetMetrics().RecordDomainOperation("asset")
	return asset, nil
}

func (s *AssetService) List(ownerID string) ([]models.Asset, error) {
	var assets []models.Asset
	if err := s.db.Where("owner_id = ?", ownerID).Find(&assets).Error; err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	return assets, nil
}

func (s *AssetService) Get(ownerID, id string) (*models.Asset, error) {
	var asset models.Asset
	err := s.db.Where("id = ? AND owner_id = ?", id, ownerID).First(&asset).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: asset %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("get asset: %w", err)
	}
	return &asset, nil
}

func (s *AssetService) Update(ownerID, id string, in AssetInput) (*models.Asset, error) {
	asset, err := s.Get(ownerID, id)
	if err != nil {
		return nil, err
	}

	if in.Name != "" {
		asset.Name = models.EncryptedString(in.Name)
	}
	if in.AccountID != "" && in.AccountID != asset.AccountID {
		if err := s.checkAccountOwnership(ownerID, in.AccountID); err != nil {
			return nil, err
		}
		asset.AccountID = in.AccountID
	}
	if in.ProductType != "" {
		if !slices.Contains(models.ProductTypes, in.ProductType) {
			return nil, fmt.Errorf("%w: unknown product type %q", ErrValidation, in.ProductType)
		}
		asset.ProductType = in.ProductType
	}
	if in.Category != "" {
		asset.Category = in.Category
	}
	if in.Allocation != nil {
		alloc, geo, err := s.normalizedMaps(in)
		if err != nil {
			return nil, err
		}
		asset.Allocation = alloc
		asset.GeoAllocation = geo
	}
	if in.Components != nil {
		if err := s.checkComponents(ownerID, id, in.Components); err != nil {
			return nil, err
		}
		asset.Components = in.Components
	}
	if in.Currency != "" {
		asset.Currency = in.Currency
	}
	asset.CurrentValue = in.CurrentValue
	asset.CostBasis = in.CostBasis
	asset.ISIN = in.ISIN
	asset.Ounces = in.Ounces
	asset.Notes = models.EncryptedString(in.Notes)
	asset.Todo = models.EncryptedString(in.Todo)
	if asset.Currency == "EUR" {
		asset.ValueEUR = asset.CurrentValue
		asset.ExchangeRate = 1.0
	}

	if err := s.db.Save(asset).Error; err != nil {
		return nil, fmt.Errorf("update asset: %w", err)
	}
	utils.GetMetrics().RecordDomainOperation("asset")
	return asset, nil
}

// Delete refuses to remove an asset that other assets use as a component.
func (s *AssetService) Delete(ownerID, id string) error {
	asset, err := s.Get(ownerID, id)
	if err != nil {
		return err
	}

	used, err := s.isUsedAsComponent(ownerID, id)
	if err != nil {
		return err
	}
	if used {
		return fmt.Errorf("%w: asset is referenced as a component", ErrValidation)
	}

	if err := s.db.Delete(asset).Error; err != nil {
		return fmt.Errorf("delete asset: %w", err)
	}
	utils.GetMetrics().RecordDomainOperation("asset")
	return nil
}

// EffectiveAllocation resolves an asset's allocation, expanding composite
// assets through their components.
func (s *AssetService) EffectiveAllocation(ownerID, id string) (map[string]float64, error) {
	assets, err := s.List(ownerID)
	if err != nil {
		return nil, err
	}
	byID := indexAssets(assets)
	asset, ok := byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: asset %s", ErrNotFound, id)
	}
	return effectiveAllocation(byID, asset, map[string]bool{}), nil
}

// EffectiveGeoAllocation resolves the per-category regional split, expanding
// composites. With category != "" only that split is returned.
func (s *AssetService) EffectiveGeoAllocation(ownerID, id, category string) (map[string]map[string]float64, error) {
	assets, err := s.List(ownerID)
	if err != nil {
		return nil, err
	}
	byID := indexAssets(assets)
	asset, ok := byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: asset %s", ErrNotFound, id)
	}
	geo := effectiveGeoAllocation(byID, asset, map[string]bool{})
	if category == "" {
		return geo, nil
	}
	if split, ok := geo[category]; ok {
		return map[string]map[string]float64{category: split}, nil
	}
	return map[string]map[string]float64{}, nil
}

// Summary aggregates one owner's portfolio: total EUR value plus category
// and geographic breakdowns over effective allocations.
type Summary struct {
	Total      float64            `json:"total"`
	ByCategory map[string]float64 `json:"byCategory"`
	ByZone     map[string]float64 `json:"byZone"`
	AssetCount int                `json:"assetCount"`
}

func (s *AssetService) Summarize(ownerID string) (*Summary, error) {
	assets, err := s.List(ownerID)
	if err != nil {
		return nil, err
	}
	byID := indexAssets(assets)

	valuations := make(map[string]float64, len(assets))
	allocations := make(map[string]map[string]float64, len(assets))
	geos := make(map[string]map[string]map[string]float64, len(assets))
	for i := range assets {
		a := &assets[i]
		valuations[a.ID] = a.EURValue()
		allocations[a.ID] = effectiveAllocation(byID, a, map[string]bool{})
		geos[a.ID] = effectiveGeoAllocation(byID, a, map[string]bool{})
	}

	return &Summary{
		Total:      utils.TotalValue(valuations),
		ByCategory: utils.BreakdownByCategory(valuations, allocations),
		ByZone:     utils.BreakdownByZone(valuations, allocations, geos),
		AssetCount: len(assets),
	}, nil
}

func (s *AssetService) normalizedMaps(in AssetInput) (models.EncryptedMap, models.EncryptedGeoMap, error) {
	alloc, ok := utils.NormalizeAllocation(in.Allocation)
	if !ok {
		return nil, nil, fmt.Errorf("%w: allocation must contain a non-zero percentage", ErrValidation)
	}
	geo := utils.NormalizeGeoAllocation(in.GeoAllocation, alloc)
	return models.EncryptedMap(alloc), models.EncryptedGeoMap(geo), nil
}

func (s *AssetService) checkAccountOwnership(ownerID, accountID string) error {
	if accountID == "" {
		return fmt.Errorf("%w: asset requires an account", ErrValidation)
	}
	var count int64
	err := s.db.Model(&models.Account{}).
		Joins("JOIN banks ON banks.id = accounts.bank_id").
		Where("accounts.id = ? AND banks.owner_id = ?", accountID, ownerID).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("check account: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("%w: account %s", ErrNotFound, accountID)
	}
	return nil
}

// checkComponents validates component references: they must exist, belong to
// the same owner and not introduce a cycle.
func (s *AssetService) checkComponents(ownerID, assetID string, components map[string]float64) error {
	assets, err := s.List(ownerID)
	if err != nil {
		return err
	}
	graph := make(map[string][]string, len(assets))
	known := make(map[string]bool, len(assets))
	for i := range assets {
		known[assets[i].ID] = true
		for childID := range assets[i].Components {
			graph[assets[i].ID] = append(graph[assets[i].ID], childID)
		}
	}

	for childID := range components {
		if !known[childID] {
			return fmt.Errorf("%w: component %s", ErrNotFound, childID)
		}
		if assetID != "" && utils.HasCircularReference(graph, assetID, childID) {
			return fmt.Errorf("%w: component %s would create a cycle", ErrValidation, childID)
		}
	}
	return nil
}

func (s *AssetService) isUsedAsComponent(ownerID, id string) (bool, error) {
	assets, err := s.List(ownerID)
	if err != nil {
		return false, err
	}
	for i := range assets {
		if _, ok := assets[i].Components[id]; ok {
			return true, nil
		}
	}
	return false, nil
}

func indexAssets(assets []models.Asset) map[string]*models.Asset {
	byID := make(map[string]*models.Asset, len(assets))
	for i := range assets {
		byID[assets[i].ID] = &assets[i]
	}
	return byID
}

// effectiveAllocation expands composites: a composite's allocation is the
// component allocations weighted by component share.
func effectiveAllocation(byID map[string]*models.Asset, asset *models.Asset, seen map[string]bool) map[string]float64 {
	if seen[asset.ID] {
		return map[string]float64{}
	}
	seen[asset.ID] = true

	if !asset.IsComposite() {
		out := make(map[string]float64, len(asset.Allocation))
		for cat, pct := range asset.Allocation {
			out[cat] = pct
		}
		return out
	}

	out := make(map[string]float64)
	for childID, share := range asset.Components {
		child, ok := byID[childID]
		if !ok {
			continue
		}
		for cat, pct := range effectiveAllocation(byID, child, seen) {
			out[cat] += pct * share / 100
		}
	}
	if normalized, ok := utils.NormalizeAllocation(out); ok {
		return normalized
	}
	return out
}

func effectiveGeoAllocation(byID map[string]*models.Asset, asset *models.Asset, seen map[string]bool) map[string]map[string]float64 {
	if seen[asset.ID] {
		return map[string]map[string]float64{}
	}
	seen[asset.ID] = true

	if !asset.IsComposite() {
		out := make(map[string]map[string]float64, len(asset.GeoAllocation))
		for cat, split := range asset.GeoAllocation {
			inner := make(map[string]float64, len(split))
			for zone, pct := range split {
				inner[zone] = pct
			}
			out[cat] = inner
		}
		return out
	}

	weighted := make(map[string]map[string]float64)
	for childID, share := range asset.Components {
		child, ok := byID[childID]
		if !ok {
			continue
		}
		childAlloc := effectiveAllocation(byID, child, map[string]bool{})
		childGeo := effectiveGeoAllocation(byID, child, seen)
		for cat, split := range childGeo {
			if weighted[cat] == nil {
				weighted[cat] = make(map[string]float64)
			}
			catWeight := childAlloc[cat] * share / 100
			for zone, pct := range split {
				weighted[cat][zone] += pct * catWeight / 100
			}
		}
	}
	out := make(map[string]map[string]float64, len(weighted))
	for cat, split := range weighted {
		if normalized, ok := utils.NormalizeAllocation(split); ok {
			out[cat] = normalized
		}
	}
	return out
}

// MarkSynced stores the outcome of a price/rate refresh.
func (s *AssetService) MarkSynced(asset *models.Asset, rate float64, syncErr error) error {
	now := time.Now()
	asset.LastRateSync = &now
	if syncErr != nil {
		asset.SyncError = syncErr.Error()
	} else {
		asset.SyncError = ""
		asset.ExchangeRate = rate
		asset.LastPriceSync = &now
	}
	if err := s.db.Save(asset).Error; err != nil {
		return fmt.Errorf("save sync state: %w", err)
	}
	return nil
}
