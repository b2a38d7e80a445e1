package controllers

import (
	"net/http"

	"patrimoine/services"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type AccountController struct {
	accounts *services.AccountService
	validate *validator.Validate
}

type AccountRequest struct {
	BankID string `json:"bankId" validate:"required,uuid4"`
	Type   string `json:"type" validate:"required,oneof=courant livret pea titre assurance_vie autre"`
	Label  string `json:"label" validate:"required,min=1,max=100"`
}

type AccountUpdateRequest struct {
	Type  string `json:"type" validate:"required,oneof=courant livret pea titre assurance_vie autre"`
	Label string `json:"label" validate:"required,min=1,max=100"`
}

func NewAccountController(accounts *services.AccountService) *AccountController {
	return &AccountController{
		accounts: accounts,
		validate: newValidator(),
	}
}

func (ctl *AccountController) Create(c *gin.Context) {
	var req AccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if err := validateRequest(ctl.validate, req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	account, err := ctl.accounts.Create(userID(c), req.BankID, req.Type, req.Label)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, account)
}

// List returns the user's accounts, optionally filtered by bank through the
// bankId query parameter.
func (ctl *AccountController) List(c *gin.Context) {
	accounts, err := ctl.accounts.List(userID(c), c.Query("bankId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, accounts)
}

func (ctl *AccountController) Get(c *gin.Context) {
	account, err := ctl.accounts.Get(userID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

func (ctl *AccountController) Update(c *gin.Context) {
	var req AccountUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if err := validateRequest(ctl.validate, req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	account, err := ctl.accounts.Update(userID(c), c.Param("id"), req.Type, req.Label)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

func (ctl *AccountController) Delete(c *gin.Context) {
	if err := ctl.accounts.Delete(userID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Compte supprimé"})
}

func (ctl *AccountController) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/accounts", ctl.Create)
	rg.GET("/accounts", ctl.List)
	rg.GET("/accounts/:id", ctl.Get)
	rg.PUT("/accounts/:id", ctl.Update)
	rg.DELETE("/accounts/:id", ctl.Delete)
}
