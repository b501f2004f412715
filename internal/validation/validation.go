// Package validation provides input validation middleware for the CartGuard API.
package validation

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// MaxRequestSize is the maximum request body size (64KB). Scan and session
// payloads are tiny; anything larger is not a legitimate request.
const MaxRequestSize = 64 << 10

// RequestSizeMiddleware limits request body size
func RequestSizeMiddleware(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}

// SanitizeString removes dangerous characters and limits length
func SanitizeString(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	s = strings.ReplaceAll(s, "\x00", "")
	return s
}

// FieldError represents a single field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// RespondInvalid writes a 400 with field-level detail.
func RespondInvalid(c *gin.Context, errs ...FieldError) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "validation_failed",
		"message": "One or more fields are invalid",
		"fields":  errs,
	})
}
