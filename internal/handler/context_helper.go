package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/classpulse/attendance-core/internal/middleware"
	"github.com/classpulse/attendance-core/internal/models"
)

// currentClaims extracts the verified JWT claims placed by the middleware.
func currentClaims(c *gin.Context) (*models.JWTClaims, bool) {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*models.JWTClaims)
	return claims, ok
}
