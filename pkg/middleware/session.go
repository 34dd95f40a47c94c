package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/safar/safar/backend/go-services/internal/models"
	"github.com/safar/safar/backend/go-services/internal/sessions"
)

// Context keys set by RequireSession.
const (
	UserIDKey  = "userID"
	UserKey    = "user"
	SessionKey = "session"
)

// SessionSource reports the active session. Satisfied by *sessions.Reconciler.
type SessionSource interface {
	Current() sessions.Session
}

// RequireSession rejects requests with 401 unless a demo or real session is
// active, and exposes the active user id to later handlers.
func RequireSession(src SessionSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := src.Current()
		if !s.Active() || s.UserID() == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "no active session"})
			return
		}
		c.Set(SessionKey, s)
		c.Set(UserKey, s.User)
		c.Set(UserIDKey, s.UserID())
		c.Next()
	}
}

// UserID returns the id set by RequireSession, or "".
func UserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

// CurrentUser returns the user set by RequireSession, or nil.
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(UserKey); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}

// limitKey prefers the session user so clients behind one NAT are limited separately.
func limitKey(c *gin.Context) string {
	if id := UserID(c); id != "" {
		return "user:" + id
	}
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}
