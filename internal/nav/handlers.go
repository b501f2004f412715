package nav

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cartguard/cartguard/internal/logging"
	"github.com/cartguard/cartguard/internal/metrics"
)

// Handler provides the HTTP endpoints for session navigation.
type Handler struct {
	manager *Manager
}

// NewHandler creates a navigation handler.
func NewHandler(manager *Manager) *Handler {
	return &Handler{manager: manager}
}

// RegisterRoutes sets up session routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/sessions", h.CreateSession)
	r.POST("/sessions/initialize", h.Initialize)
	r.POST("/sessions/authorize", h.Authorize)
	r.POST("/sessions/logout", h.Logout)
	r.GET("/sessions/current", h.Current)
}

// CreateSession handles POST /v1/sessions
func (h *Handler) CreateSession(c *gin.Context) {
	token, sess := h.manager.Create()
	c.JSON(http.StatusCreated, gin.H{
		"token":     token,
		"sessionId": sess.ID,
		"state":     sess.State,
		"expiresAt": sess.ExpiresAt,
	})
}

// Initialize handles POST /v1/sessions/initialize (landing → login)
func (h *Handler) Initialize(c *gin.Context) {
	sess, err := h.manager.Initialize(c.GetHeader("Authorization"))
	if err != nil {
		respondTransitionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": sess.State})
}

// AuthorizeRequest carries the credential pair for the login gate.
type AuthorizeRequest struct {
	AdminID   string `json:"adminId" binding:"required"`
	AccessKey string `json:"accessKey" binding:"required"`
}

// Authorize handles POST /v1/sessions/authorize (login → dashboard)
func (h *Handler) Authorize(c *gin.Context) {
	var req AuthorizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "adminId and accessKey are required",
		})
		return
	}

	sess, err := h.manager.Authorize(c.GetHeader("Authorization"), req.AdminID, req.AccessKey)
	if err != nil {
		if errors.Is(err, ErrAuthenticationRejected) {
			// Visible, non-fatal rejection; session stays on login
			metrics.AuthFailuresTotal.Inc()
			logging.L(c.Request.Context()).Warn("dashboard authorization rejected",
				"admin_id", req.AdminID,
				"client_ip", c.ClientIP(),
			)
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "access_denied",
				"message": "Access denied",
				"state":   sess.State,
			})
			return
		}
		respondTransitionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"state": sess.State})
}

// Logout handles POST /v1/sessions/logout (dashboard → landing)
func (h *Handler) Logout(c *gin.Context) {
	sess, err := h.manager.Logout(c.GetHeader("Authorization"))
	if err != nil {
		respondTransitionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": sess.State})
}

// Current handles GET /v1/sessions/current
func (h *Handler) Current(c *gin.Context) {
	sess := SessionFrom(c)
	if sess == nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "Session token required",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"sessionId": sess.ID,
		"state":     sess.State,
		"expiresAt": sess.ExpiresAt,
	})
}

func respondTransitionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNoSession), errors.Is(err, ErrInvalidSession):
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "Valid session token required",
		})
	case errors.Is(err, ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "invalid_transition",
			"message": "Action not allowed from the current page",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "An unexpected error occurred",
		})
	}
}
