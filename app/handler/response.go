package handler

import (
	"net/http"

	"github.com/lloredia/pulsecheckpoint-runtime/internal/apperr"

	"github.com/gin-gonic/gin"
)

// Response is the envelope every endpoint returns
type Response struct {
	Success bool        `json:"success"`
	Code    apperr.Code `json:"code"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// httpStatusOf maps wire codes to HTTP statuses
func httpStatusOf(code apperr.Code) int {
	switch code {
	case apperr.CodeOK:
		return http.StatusOK
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodeAlreadyExists:
		return http.StatusConflict
	case apperr.CodeInvalidArgument:
		return http.StatusBadRequest
	case apperr.CodePermissionDenied:
		return http.StatusForbidden
	case apperr.CodeUnauthenticated:
		return http.StatusUnauthorized
	case apperr.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeOK writes a success envelope
func writeOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Code:    apperr.CodeOK,
		Data:    data,
	})
}

// writeCreated writes a success envelope with 201
func writeCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Success: true,
		Code:    apperr.CodeOK,
		Data:    data,
	})
}

// writeError maps an error to the envelope and HTTP status
func writeError(c *gin.Context, err error) {
	code := apperr.CodeOf(err)
	c.JSON(httpStatusOf(code), Response{
		Success: false,
		Code:    code,
		Message: err.Error(),
	})
}
