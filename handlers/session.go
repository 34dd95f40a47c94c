package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/safar/safar/backend/go-services/internal/auth"
	"github.com/safar/safar/backend/go-services/internal/sessions"
	"github.com/safar/safar/backend/go-services/pkg/logger"
)

// SignInProvider is the part of the auth provider the HTTP surface drives
// directly. Satisfied by *auth.LocalProvider.
type SignInProvider interface {
	SignInWithIDToken(ctx context.Context, raw string) (*auth.Session, error)
	Refresh(ctx context.Context) (*auth.Session, error)
}

type SessionHandler struct {
	rec      *sessions.Reconciler
	provider SignInProvider
}

func NewSessionHandler(rec *sessions.Reconciler, p SignInProvider) *SessionHandler {
	return &SessionHandler{rec: rec, provider: p}
}

// Register routes under rg (normally /api/v1).
func (h *SessionHandler) Register(rg *gin.RouterGroup) {
	s := rg.Group("/session")
	s.GET("", h.Get)
	s.POST("/check", h.Check)
	s.POST("/demo", h.StartDemo)
	s.POST("/refresh", h.Refresh)
	s.POST("/signout", h.SignOut)

	a := rg.Group("/auth")
	a.POST("/signin", h.SignIn)
	a.POST("/refresh", h.RefreshToken)
}

func (h *SessionHandler) body() gin.H {
	return sessionBody(h.rec.State(), h.rec.Loading(), h.rec.Current())
}

func sessionBody(st sessions.State, loading bool, s sessions.Session) gin.H {
	return gin.H{
		"state":   st.String(),
		"loading": loading,
		"kind":    s.Kind.String(),
		"isDemo":  s.IsDemo(),
		"user":    s.User,
	}
}

func (h *SessionHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, h.body())
}

func (h *SessionHandler) Check(c *gin.Context) {
	h.rec.CheckSession(c.Request.Context())
	c.JSON(http.StatusOK, h.body())
}

func (h *SessionHandler) StartDemo(c *gin.Context) {
	if _, err := h.rec.StartDemoSession(c.Request.Context()); err != nil {
		logger.Errorf("start demo session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not start demo session"})
		return
	}
	c.JSON(http.StatusCreated, h.body())
}

func (h *SessionHandler) Refresh(c *gin.Context) {
	h.rec.RefreshCurrentSession(c.Request.Context())
	c.JSON(http.StatusOK, h.body())
}

// SignOut always ends the local session; a provider failure is reported
// alongside the resulting state.
func (h *SessionHandler) SignOut(c *gin.Context) {
	if err := h.rec.SignOut(c.Request.Context()); err != nil {
		logger.Warnf("sign out: %v", err)
		b := h.body()
		b["warning"] = "remote sign-out failed"
		c.JSON(http.StatusOK, b)
		return
	}
	c.JSON(http.StatusOK, h.body())
}

type signInRequest struct {
	IDToken string `json:"id_token" binding:"required"`
}

func (h *SessionHandler) SignIn(c *gin.Context) {
	if h.provider == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "sign-in not configured"})
		return
	}
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id_token is required"})
		return
	}
	if _, err := h.provider.SignInWithIDToken(c.Request.Context(), req.IDToken); err != nil {
		logger.Warnf("sign in rejected: %v", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid id token"})
		return
	}
	// the provider's SIGNED_IN event has been applied by now, unless demo mode holds
	c.JSON(http.StatusOK, h.body())
}

func (h *SessionHandler) RefreshToken(c *gin.Context) {
	if h.provider == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "sign-in not configured"})
		return
	}
	s, err := h.provider.Refresh(c.Request.Context())
	if errors.Is(err, auth.ErrNoSession) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no session to refresh"})
		return
	}
	if err != nil {
		logger.Errorf("refresh session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "refresh failed"})
		return
	}
	b := h.body()
	b["expires_at"] = s.ExpiresAt
	c.JSON(http.StatusOK, b)
}
