package controllers

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"patrimoine/models"
	"patrimoine/services"
	"patrimoine/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// newValidator builds the shared validator with the custom password rule:
// at least one digit, one upper, one lower and one special character.
func newValidator() *validator.Validate {
	validate := validator.New()

	validate.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		password := fl.Field().String()
		hasNumber := regexp.MustCompile(`[0-9]`).MatchString(password)
		hasUpper := regexp.MustCompile(`[A-Z]`).MatchString(password)
		hasLower := regexp.MustCompile(`[a-z]`).MatchString(password)
		hasSpecial := regexp.MustCompile(`[!@#$%^&*]`).MatchString(password)

		return hasNumber && hasUpper && hasLower && hasSpecial
	})

	return validate
}

// validateRequest turns validator tags into readable messages.
func validateRequest(validate *validator.Validate, dto interface{}) error {
	if err := validate.Struct(dto); err != nil {
		validationErrors := err.(validator.ValidationErrors)
		var errorMessages []string
		for _, e := range validationErrors {
			switch e.Tag() {
			case "required":
				errorMessages = append(errorMessages, "le champ "+e.Field()+" est obligatoire")
			case "min":
				errorMessages = append(errorMessages, "le champ "+e.Field()+" est trop court (min "+e.Param()+")")
			case "max":
				errorMessages = append(errorMessages, "le champ "+e.Field()+" est trop long (max "+e.Param()+")")
			case "email":
				errorMessages = append(errorMessages, "le champ "+e.Field()+" doit être un email valide")
			case "oneof":
				errorMessages = append(errorMessages, "le champ "+e.Field()+" doit être parmi: "+e.Param())
			case "password":
				errorMessages = append(errorMessages, "le mot de passe doit contenir une majuscule, une minuscule, un chiffre et un caractère spécial")
			default:
				errorMessages = append(errorMessages, "le champ "+e.Field()+" est invalide")
			}
		}
		return errors.New(strings.Join(errorMessages, "; "))
	}
	return nil
}

// respondError maps service errors to HTTP status codes.
func respondError(c *gin.Context, err error) {
	metrics := utils.GetMetrics()
	switch {
	case errors.Is(err, services.ErrNotFound):
		metrics.RecordError("not_found")
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrForbidden):
		metrics.RecordError("forbidden")
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrValidation):
		metrics.RecordError("validation")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrConflict):
		metrics.RecordError("conflict")
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, utils.ErrDataCorruption):
		metrics.RecordError("corruption")
		utils.LogError("corrupted data hit by request %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "data integrity error"})
	default:
		metrics.RecordError("internal")
		utils.LogError("request %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// currentUser returns the user loaded by the auth middleware.
func currentUser(c *gin.Context) *models.User {
	v, ok := c.Get("currentUser")
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

// userID returns the authenticated user's id.
func userID(c *gin.Context) string {
	return c.GetString("userID")
}
