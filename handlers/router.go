package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/safar/safar/backend/go-services/internal/blog"
	"github.com/safar/safar/backend/go-services/internal/sessions"
	"github.com/safar/safar/backend/go-services/internal/trips"
	"github.com/safar/safar/backend/go-services/internal/userstore"
	"github.com/safar/safar/backend/go-services/pkg/middleware"
)

// Deps are the services the HTTP surface is built from. Provider and
// RateLimit may be nil.
type Deps struct {
	Reconciler *sessions.Reconciler
	Store      *userstore.Store
	Trips      *trips.Service
	Blog       *blog.Service
	Provider   SignInProvider
	RateLimit  gin.HandlerFunc
	StartTime  time.Time
}

// NewRouter wires every route onto a fresh gin engine.
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(cors(), gin.Logger(), gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})
	r.GET("/ready", readiness(d))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	RegisterSwagger(r)

	api := r.Group("/api/v1")
	NewSessionHandler(d.Reconciler, d.Provider).Register(api)

	protected := api.Group("", middleware.RequireSession(d.Reconciler))
	// after RequireSession so limits apply per user
	if d.RateLimit != nil {
		protected.Use(d.RateLimit)
	}
	NewDataHandler(d.Store).Register(protected)
	NewTripsHandler(d.Trips).Register(protected)
	NewBlogHandler(d.Blog).Register(protected)
	return r
}

// readiness reports 503 until the reconciler has settled on a session.
func readiness(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		loading := d.Reconciler.Loading()
		deps := map[string]bool{
			"store":   d.Store != nil,
			"session": !loading,
			"signin":  d.Provider != nil,
		}
		body := gin.H{"deps": deps, "uptime": time.Since(d.StartTime).String()}
		if loading || d.Store == nil {
			body["status"] = "not_ready"
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
		body["status"] = "ready"
		c.JSON(http.StatusOK, body)
	}
}

// cors is a permissive policy for the local web client.
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		h.Set("Access-Control-Expose-Headers", "Content-Length")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}
