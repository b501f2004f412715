package forecast

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cartguard/cartguard/internal/metrics"
	"github.com/cartguard/cartguard/internal/traces"
)

// MaxHorizonDays bounds the forecast horizon a client may request.
const MaxHorizonDays = 90

// Handler provides the HTTP endpoint for abandonment forecasts.
type Handler struct {
	adapter     *Adapter
	defaultDays int
}

// NewHandler creates a forecast handler with the configured default horizon.
func NewHandler(adapter *Adapter, defaultDays int) *Handler {
	return &Handler{adapter: adapter, defaultDays: defaultDays}
}

// RegisterRoutes sets up forecast routes on the (gated) router group.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/forecast", h.Forecast)
}

// Forecast handles GET /v1/forecast?days=N
func (h *Handler) Forecast(c *gin.Context) {
	days := h.defaultDays
	if v := c.Query("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > MaxHorizonDays {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_days",
				"message": "days must be an integer in [1,90]",
			})
			return
		}
		days = n
	}

	ctx, span := traces.StartSpan(c.Request.Context(), "forecast", traces.HorizonDays(days))
	result, err := h.adapter.Forecast(ctx, days)
	span.End()

	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			metrics.ForecastRequestsTotal.WithLabelValues("unavailable").Inc()
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error":   "forecast_unavailable",
				"message": "No forecast model is loaded",
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": err.Error(),
		})
		return
	}

	metrics.ForecastRequestsTotal.WithLabelValues("ok").Inc()
	c.JSON(http.StatusOK, result)
}
