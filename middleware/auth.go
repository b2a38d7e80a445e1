package middleware

import (
	"net/http"
	"strings"

	"patrimoine/database"
	"patrimoine/services"

	"github.com/gin-gonic/gin"
)

// Auth validates the bearer token and loads the authenticated user into the
// gin context under "currentUser" and "userID". The token is read from the
// Authorization header, with a token query parameter as fallback for
// download links.
func Auth(db *database.Database, jwtKey []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.GetHeader("Authorization")
		if strings.HasPrefix(tokenString, "Bearer ") {
			tokenString = strings.TrimPrefix(tokenString, "Bearer ")
		}
		if tokenString == "" {
			tokenString = c.Query("token")
		}
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header is required",
			})
			c.Abort()
			return
		}

		claims, err := services.ParseToken(jwtKey, tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid token",
			})
			c.Abort()
			return
		}

		user, err := db.GetUserByID(claims.UserID)
		if err != nil || !user.IsActive {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid token",
			})
			c.Abort()
			return
		}

		c.Set("currentUser", user)
		c.Set("userID", user.ID)

		c.Next()
	}
}

// UserID returns the authenticated user's id set by Auth.
func UserID(c *gin.Context) string {
	return c.GetString("userID")
}
