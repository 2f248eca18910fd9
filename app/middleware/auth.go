package middleware

import (
	"net/http"
	"strings"

	"github.com/lloredia/pulsecheckpoint-runtime/internal/apperr"
	"github.com/lloredia/pulsecheckpoint-runtime/pkg/config"
	"github.com/lloredia/pulsecheckpoint-runtime/pkg/logger"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware simple bearer token authentication middleware
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		expectedAPIKey := config.GlobalConfig.Server.APIKey

		// Skip authentication if API key is not configured
		if expectedAPIKey == "" {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		token := strings.TrimPrefix(authHeader, "Bearer ")

		if authHeader == "" {
			logger.WarnCtx(c.Request.Context(), "unauthenticated request, missing Authorization header")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"code":    apperr.CodeUnauthenticated,
				"message": "missing credentials",
			})
			return
		}

		if token != expectedAPIKey {
			logger.WarnCtx(c.Request.Context(), "request rejected, invalid API key")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"code":    apperr.CodePermissionDenied,
				"message": "invalid credentials",
			})
			return
		}

		c.Next()
	}
}
