package nav

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ContextKeySession is the gin context key for the resolved session.
const ContextKeySession = "navSession"

// Middleware resolves the session token from the request, if present.
func Middleware(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("Authorization")
		if token == "" {
			token = c.Query("token") // WebSocket clients can't set headers
		}

		if token != "" {
			if sess, err := m.Get(token); err == nil {
				c.Set(ContextKeySession, sess)
			}
		}
		c.Next()
	}
}

// RequireDashboard rejects requests whose session is not an authenticated
// dashboard session. This is the sole gate in front of the scan and
// forecast endpoints.
func RequireDashboard() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := SessionFrom(c)
		if sess == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Session token required. Include 'Authorization: Bearer cg_...' header.",
			})
			return
		}
		if sess.State.Page != PageDashboard || !sess.State.Authenticated {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "forbidden",
				"message": "Dashboard access requires an authorized session.",
			})
			return
		}
		c.Next()
	}
}

// SessionFrom returns the resolved session from the gin context, or nil.
func SessionFrom(c *gin.Context) *Session {
	v, ok := c.Get(ContextKeySession)
	if !ok {
		return nil
	}
	sess, ok := v.(*Session)
	if !ok {
		return nil
	}
	return sess
}
