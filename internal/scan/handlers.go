package scan

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cartguard/cartguard/internal/features"
	"github.com/cartguard/cartguard/internal/logging"
	"github.com/cartguard/cartguard/internal/metrics"
	"github.com/cartguard/cartguard/internal/traces"
)

// OfferIssuer turns a recovery action into a redeemable offer code.
// Implementations must degrade internally and never fail the scan.
type OfferIssuer interface {
	Issue(ctx context.Context, action Action, riskPct int) string
}

// EventEmitter receives completed scans for real-time streaming.
type EventEmitter interface {
	ScanCompleted(rec *Record, offerCode string)
}

// Handler provides the HTTP endpoints for the scan pipeline.
type Handler struct {
	scorer *Scorer
	store  Store
	offers OfferIssuer
	events EventEmitter
}

// NewHandler creates a scan handler.
func NewHandler(scorer *Scorer, store Store) *Handler {
	return &Handler{scorer: scorer, store: store}
}

// WithOffers attaches an offer issuer for discount/free-shipping actions.
func (h *Handler) WithOffers(o OfferIssuer) *Handler {
	h.offers = o
	return h
}

// WithEvents attaches a real-time event emitter.
func (h *Handler) WithEvents(e EventEmitter) *Handler {
	h.events = e
	return h
}

// RegisterRoutes sets up scan routes on the (gated) router group.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/scan", h.Scan)
	r.GET("/scans", h.ListScans)
}

// ScanRequest is the inference input supplied on each scan action.
type ScanRequest struct {
	ItemCount    int     `json:"itemCount" binding:"required"`
	CartValue    float64 `json:"cartValue" binding:"required"`
	DwellMinutes float64 `json:"dwellMinutes" binding:"required"`
	Platform     string  `json:"platform" binding:"required"`
	FunnelStage  string  `json:"funnelStage" binding:"required"`
}

// ScanResponse is the inference output consumed by the presentation layer.
type ScanResponse struct {
	ID          string     `json:"id"`
	RiskPct     int        `json:"riskPct"`
	IsBot       bool       `json:"isBot"`
	Source      Source     `json:"source"`
	Action      Action     `json:"action"`
	Hesitation  Hesitation `json:"hesitation"`
	OfferCode   string     `json:"offerCode,omitempty"`
	EvaluatedAt time.Time  `json:"evaluatedAt"`
}

// Scan handles POST /v1/scan
func (h *Handler) Scan(c *gin.Context) {
	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	platform, err := features.ParsePlatform(req.Platform)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_platform",
			"message": "platform must be 'desktop' or 'mobile'",
		})
		return
	}
	stage, err := features.ParseStage(req.FunnelStage)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_funnel_stage",
			"message": "funnelStage must be one of cart, shipping, payment, review",
		})
		return
	}

	f := features.SessionFeatures{
		ItemCount:    req.ItemCount,
		CartValue:    req.CartValue,
		DwellMinutes: req.DwellMinutes,
		Platform:     platform,
		FunnelStage:  stage,
	}
	if err := f.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_features",
			"message": err.Error(),
		})
		return
	}

	ctx, span := traces.StartSpan(c.Request.Context(), "scan.score",
		traces.FunnelStage(string(stage)),
	)
	assessment := h.scorer.Score(ctx, f)
	decision := Decide(assessment)
	span.SetAttributes(
		traces.RiskPct(assessment.RiskPct),
		traces.Source(string(assessment.Source)),
	)
	span.End()

	metrics.RecoveryActionsTotal.WithLabelValues(string(decision.Action)).Inc()

	var offerCode string
	if h.offers != nil {
		offerCode = h.offers.Issue(ctx, decision.Action, assessment.RiskPct)
	}

	rec := &Record{Assessment: *assessment, Features: f, Decision: decision}
	h.scorer.RecordScan(rec)

	if h.events != nil {
		h.events.ScanCompleted(rec, offerCode)
	}

	logging.L(ctx).Info("session scanned",
		"scan_id", assessment.ID,
		"risk_pct", assessment.RiskPct,
		"source", assessment.Source,
		"is_bot", assessment.IsBot,
		"action", decision.Action,
	)

	c.JSON(http.StatusOK, ScanResponse{
		ID:          assessment.ID,
		RiskPct:     assessment.RiskPct,
		IsBot:       assessment.IsBot,
		Source:      assessment.Source,
		Action:      decision.Action,
		Hesitation:  decision.Hesitation,
		OfferCode:   offerCode,
		EvaluatedAt: assessment.EvaluatedAt,
	})
}

// ListScans handles GET /v1/scans
func (h *Handler) ListScans(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_limit",
				"message": "limit must be an integer in [1,500]",
			})
			return
		}
		limit = n
	}

	recs, err := h.store.ListRecent(c.Request.Context(), limit)
	if err != nil {
		logging.L(c.Request.Context()).Error("failed to list scans", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to list scans",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"scans": recs,
		"count": len(recs),
	})
}
