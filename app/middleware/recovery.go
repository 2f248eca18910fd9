package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/lloredia/pulsecheckpoint-runtime/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Recovery middleware catches panic and converts it to standard error response
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				stack := debug.Stack()

				logger.ErrorCtx(c.Request.Context(),
					"panic recovered: %v\nstack:\n%s",
					err,
					string(stack),
				)

				if gin.Mode() == gin.DebugMode {
					c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
						"success": false,
						"code":    "INTERNAL",
						"message": "Internal Server Error",
						"stack":   string(stack),
					})
					return
				}
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"code":    "INTERNAL",
					"message": "Internal Server Error",
				})
			}
		}()

		c.Next()
	}
}
