package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/safar/safar/backend/go-services/internal/models"
	"github.com/safar/safar/backend/go-services/internal/sessions"
)

type staticSource struct{ s sessions.Session }

func (f staticSource) Current() sessions.Session { return f.s }

func TestRequireSession_NoSession(t *testing.T) {
	r := gin.New()
	r.GET("/p", RequireSession(staticSource{}), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/p", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), "no active session")
}

func TestRequireSession_ExposesUser(t *testing.T) {
	u := &models.User{ID: "demo-user-1", Email: models.DemoUserEmail, IsDemo: true}
	src := staticSource{s: sessions.Session{Kind: sessions.KindDemo, User: u}}

	var gotID string
	var gotUser *models.User
	r := gin.New()
	r.GET("/p", RequireSession(src), func(c *gin.Context) {
		gotID = UserID(c)
		gotUser = CurrentUser(c)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/p", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "demo-user-1", gotID)
	require.Same(t, u, gotUser)
}

func TestHelpersWithoutSession(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	require.Empty(t, UserID(c))
	require.Nil(t, CurrentUser(c))
	require.Contains(t, limitKey(c), "ip:")
}
