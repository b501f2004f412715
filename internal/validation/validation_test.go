package validation

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"  hello  ", 100, "hello"},
		{"abcdef", 3, "abc"},
		{"nul\x00byte", 100, "nulbyte"},
		{"", 10, ""},
	}
	for _, tt := range tests {
		if got := SanitizeString(tt.in, tt.maxLen); got != tt.want {
			t.Errorf("SanitizeString(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
		}
	}
}

func TestRequestSizeMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RequestSizeMiddleware(16))
	r.POST("/", func(c *gin.Context) {
		var body [64]byte
		if _, err := c.Request.Body.Read(body[:]); err != nil && err.Error() != "EOF" {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusOK)
	})

	// Small body passes
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/", bytes.NewReader([]byte("tiny"))))
	if w.Code != http.StatusOK {
		t.Errorf("small body status = %d", w.Code)
	}

	// Oversized body is cut off by MaxBytesReader
	w = httptest.NewRecorder()
	big := strings.Repeat("x", 1024)
	r.ServeHTTP(w, httptest.NewRequest("POST", "/", strings.NewReader(big)))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("oversized body status = %d, want 413", w.Code)
	}
}

func TestRespondInvalid(t *testing.T) {
	r := gin.New()
	r.POST("/", func(c *gin.Context) {
		RespondInvalid(c, FieldError{Field: "cartValue", Message: "must be positive"})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/", nil))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "cartValue") {
		t.Error("field detail missing from response")
	}
}
