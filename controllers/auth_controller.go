package controllers

import (
	"net/http"

	"patrimoine/services"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type AuthController struct {
	auth     *services.AuthService
	validate *validator.Validate
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,password"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	Token string   `json:"token"`
	User  UserView `json:"user"`
}

type UserView struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func NewAuthController(auth *services.AuthService) *AuthController {
	return &AuthController{
		auth:     auth,
		validate: newValidator(),
	}
}

// Register creates an account and returns a token for it.
func (ctl *AuthController) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if err := validateRequest(ctl.validate, req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := ctl.auth.Register(req.Username, req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := ctl.auth.GenerateToken(user)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, AuthResponse{
		Token: token,
		User: UserView{
			ID:       user.ID,
			Username: user.Username,
			Email:    string(user.Email),
		},
	})
}

// Login authenticates credentials and returns a fresh token.
func (ctl *AuthController) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if err := validateRequest(ctl.validate, req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := ctl.auth.Authenticate(req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := ctl.auth.GenerateToken(user)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, AuthResponse{
		Token: token,
		User: UserView{
			ID:       user.ID,
			Username: user.Username,
			Email:    string(user.Email),
		},
	})
}

// Me returns the authenticated user's profile.
func (ctl *AuthController) Me(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	c.JSON(http.StatusOK, UserView{
		ID:       user.ID,
		Username: user.Username,
		Email:    string(user.Email),
	})
}

func (ctl *AuthController) RegisterRoutes(public, private *gin.RouterGroup) {
	public.POST("/auth/register", ctl.Register)
	public.POST("/auth/login", ctl.Login)
	private.GET("/auth/me", ctl.Me)
}
