package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/luxeride/booking-backend/pkg/jwt"
)

// AdminContextKey is the key used to store admin information in Gin context
const AdminContextKey = "admin"

// AdminContext represents the authenticated admin's information
type AdminContext struct {
	AdminID uuid.UUID `json:"admin_id"`
	Email   string    `json:"email"`
}

// AuthMiddleware creates a middleware that validates admin JWT tokens
func AuthMiddleware(jwtService *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Authorization header is required",
			})
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Invalid authorization header format. Expected: Bearer <token>",
			})
			c.Abort()
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Token cannot be empty",
			})
			c.Abort()
			return
		}

		claims, err := jwtService.ValidateAccessToken(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Invalid or expired token",
			})
			c.Abort()
			return
		}

		c.Set(AdminContextKey, &AdminContext{
			AdminID: claims.AdminID,
			Email:   claims.Email,
		})
		c.Next()
	}
}

// GetAdminContext retrieves the authenticated admin from the Gin context
func GetAdminContext(c *gin.Context) (*AdminContext, bool) {
	value, exists := c.Get(AdminContextKey)
	if !exists {
		return nil, false
	}
	admin, ok := value.(*AdminContext)
	return admin, ok
}
