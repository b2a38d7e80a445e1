package controllers

import (
	"net/http"

	"patrimoine/services"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type AssetController struct {
	assets   *services.AssetService
	syncer   *services.SyncService
	validate *validator.Validate
}

type AssetRequest struct {
	AccountID     string                        `json:"accountId" validate:"required,uuid4"`
	Name          string                        `json:"name" validate:"required,min=1,max=200"`
	ProductType   string                        `json:"productType" validate:"required,oneof=etf sicav action obligation scpi reits fonds_euro crypto metal cash immo_direct autre"`
	Category      string                        `json:"category" validate:"omitempty,oneof=actions obligations immobilier crypto metaux cash autre"`
	Allocation    map[string]float64            `json:"allocation"`
	GeoAllocation map[string]map[string]float64 `json:"geoAllocation"`
	Components    map[string]float64            `json:"components"`
	CurrentValue  float64                       `json:"currentValue" validate:"gte=0"`
	CostBasis     float64                       `json:"costBasis" validate:"gte=0"`
	Currency      string                        `json:"currency" validate:"omitempty,len=3"`
	ISIN          string                        `json:"isin" validate:"omitempty,len=12"`
	Ounces        float64                       `json:"ounces" validate:"gte=0"`
	Notes         string                        `json:"notes" validate:"max=5000"`
	Todo          string                        `json:"todo" validate:"max=2000"`
}

func NewAssetController(assets *services.AssetService, syncer *services.SyncService) *AssetController {
	return &AssetController{
		assets:   assets,
		syncer:   syncer,
		validate: newValidator(),
	}
}

func (ctl *AssetController) bind(c *gin.Context) (*services.AssetInput, bool) {
	var req AssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return nil, false
	}
	if err := validateRequest(ctl.validate, req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	return &services.AssetInput{
		AccountID:     req.AccountID,
		Name:          req.Name,
		ProductType:   req.ProductType,
		Category:      req.Category,
		Allocation:    req.Allocation,
		GeoAllocation: req.GeoAllocation,
		Components:    req.Components,
		CurrentValue:  req.CurrentValue,
		CostBasis:     req.CostBasis,
		Currency:      req.Currency,
		ISIN:          req.ISIN,
		Ounces:        req.Ounces,
		Notes:         req.Notes,
		Todo:          req.Todo,
	}, true
}

func (ctl *AssetController) Create(c *gin.Context) {
	in, ok := ctl.bind(c)
	if !ok {
		return
	}
	asset, err := ctl.assets.Create(userID(c), *in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, asset)
}

func (ctl *AssetController) List(c *gin.Context) {
	assets, err := ctl.assets.List(userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, assets)
}

func (ctl *AssetController) Get(c *gin.Context) {
	asset, err := ctl.assets.Get(userID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, asset)
}

func (ctl *AssetController) Update(c *gin.Context) {
	in, ok := ctl.bind(c)
	if !ok {
		return
	}
	asset, err := ctl.assets.Update(userID(c), c.Param("id"), *in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, asset)
}

func (ctl *AssetController) Delete(c *gin.Context) {
	if err := ctl.assets.Delete(userID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Actif supprimé"})
}

// Allocation returns the asset's effective category allocation, composites
// expanded through their components.
func (ctl *AssetController) Allocation(c *gin.Context) {
	alloc, err := ctl.assets.EffectiveAllocation(userID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, alloc)
}

func (ctl *AssetController) GeoAllocation(c *gin.Context) {
	geo, err := ctl.assets.EffectiveGeoAllocation(userID(c), c.Param("id"), c.Query("category"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, geo)
}

// Summary aggregates the whole portfolio by category and geographic zone.
func (ctl *AssetController) Summary(c *gin.Context) {
	summary, err := ctl.assets.Summarize(userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Sync refreshes exchange rates and EUR values for every asset of the user.
func (ctl *AssetController) Sync(c *gin.Context) {
	result, err := ctl.syncer.SyncOwner(userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (ctl *AssetController) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/assets", ctl.Create)
	rg.GET("/assets", ctl.List)
	rg.GET("/assets/summary", ctl.Summary)
	rg.POST("/assets/sync", ctl.Sync)
	rg.GET("/assets/:id", ctl.Get)
	rg.PUT("/assets/:id", ctl.Update)
	rg.DELETE("/assets/:id", ctl.Delete)
	rg.GET("/assets/:id/allocation", ctl.Allocation)
	rg.GET("/assets/:id/geo-allocation", ctl.GeoAllocation)
}
