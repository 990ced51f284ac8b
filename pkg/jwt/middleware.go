package jwt

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware validates the bearer token and stores the owner id in the
// request context under "ownerId".
func AuthMiddleware(service *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(401, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := service.ValidateToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(401, gin.H{"error": err.Error()})
			return
		}

		c.Set("claims", claims)
		c.Set("ownerId", claims.OwnerID)
		c.Next()
	}
}

// OwnerID extracts the authenticated owner from the request context.
func OwnerID(c *gin.Context) (uint, bool) {
	v, exists := c.Get("ownerId")
	if !exists {
		return 0, false
	}
	ownerID, ok := v.(uint)
	return ownerID, ok
}
