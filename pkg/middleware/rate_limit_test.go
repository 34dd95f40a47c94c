package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/safar/safar/backend/go-services/pkg/metrics"
)

func init() { gin.SetMode(gin.TestMode) }

func serve(r *gin.Engine, path string) int {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w.Code
}

func TestRateLimitMiddleware_AllowsUnderLimit(t *testing.T) {
	before := testutil.ToFloat64(metrics.RateLimitAllowed.WithLabelValues("memory"))
	r := gin.New()
	r.Use(RateLimitMiddleware(10, 2))
	r.GET("/ok", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	require.Equal(t, http.StatusOK, serve(r, "/ok"))
	require.Equal(t, http.StatusOK, serve(r, "/ok"))
	require.Equal(t, before+2, testutil.ToFloat64(metrics.RateLimitAllowed.WithLabelValues("memory")))
}

func TestRateLimitMiddleware_BlocksWhenExceeded(t *testing.T) {
	r := gin.New()
	r.Use(RateLimitMiddleware(0.5, 1))
	r.GET("/limited", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	require.Equal(t, http.StatusOK, serve(r, "/limited"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/limited", nil))
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Equal(t, "1", w.Header().Get("Retry-After"))

	// one token refills after 2s at 0.5 rps
	time.Sleep(2100 * time.Millisecond)
	require.Equal(t, http.StatusOK, serve(r, "/limited"))
}

func TestRateLimitMiddleware_KeysBySessionUser(t *testing.T) {
	user := "user-123"
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(UserIDKey, user)
		c.Next()
	})
	r.Use(RateLimitMiddleware(0.01, 1))
	r.GET("/u", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	require.Equal(t, http.StatusOK, serve(r, "/u"))
	require.Equal(t, http.StatusTooManyRequests, serve(r, "/u"))

	// same IP, different user: separate bucket
	user = "user-456"
	require.Equal(t, http.StatusOK, serve(r, "/u"))
}

func TestRateLimitMiddleware_InstancesAreIndependent(t *testing.T) {
	a := gin.New()
	a.Use(RateLimitMiddleware(0.01, 1))
	a.GET("/x", func(c *gin.Context) { c.Status(200) })
	b := gin.New()
	b.Use(RateLimitMiddleware(0.01, 1))
	b.GET("/x", func(c *gin.Context) { c.Status(200) })

	require.Equal(t, http.StatusOK, serve(a, "/x"))
	require.Equal(t, http.StatusOK, serve(b, "/x"))
}
