// Package journey serves funnel analytics derived from recorded scans.
package journey

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cartguard/cartguard/internal/logging"
	"github.com/cartguard/cartguard/internal/scan"
)

// Handler provides the HTTP endpoint for journey analytics.
type Handler struct {
	store scan.Store
}

// NewHandler creates a journey handler over the scan audit store.
func NewHandler(store scan.Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes sets up journey routes on the (gated) router group.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/journey/funnel", h.Funnel)
}

// Funnel handles GET /v1/journey/funnel: per-stage scan counts, mean risk,
// and bot counts, in checkout order.
func (h *Handler) Funnel(c *gin.Context) {
	stats, err := h.store.StageSummary(c.Request.Context())
	if err != nil {
		logging.L(c.Request.Context()).Error("failed to summarize funnel", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to compute funnel summary",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"stages": stats})
}
