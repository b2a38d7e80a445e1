package controllers

import (
	"net/http"

	"patrimoine/services"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type BankController struct {
	banks    *services.BankService
	validate *validator.Validate
}

type BankRequest struct {
	Name  string `json:"name" validate:"required,min=1,max=100"`
	Notes string `json:"notes" validate:"max=2000"`
}

func NewBankController(banks *services.BankService) *BankController {
	return &BankController{
		banks:    banks,
		validate: newValidator(),
	}
}

func (ctl *BankController) Create(c *gin.Context) {
	var req BankRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if err := validateRequest(ctl.validate, req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	bank, err := ctl.banks.Create(userID(c), req.Name, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, bank)
}

func (ctl *BankController) List(c *gin.Context) {
	banks, err := ctl.banks.List(userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, banks)
}

func (ctl *BankController) Get(c *gin.Context) {
	bank, err := ctl.banks.Get(userID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bank)
}

func (ctl *BankController) Update(c *gin.Context) {
	var req BankRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if err := validateRequest(ctl.validate, req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	bank, err := ctl.banks.Update(userID(c), c.Param("id"), req.Name, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bank)
}

func (ctl *BankController) Delete(c *gin.Context) {
	if err := ctl.banks.Delete(userID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Banque supprimée"})
}

func (ctl *BankController) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/banks", ctl.Create)
	rg.GET("/banks", ctl.List)
	rg.GET("/banks/:id", ctl.Get)
	rg.PUT("/banks/:id", ctl.Update)
	rg.DELETE("/banks/:id", ctl.Delete)
}
