package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/safar/safar/backend/go-services/handlers"
	"github.com/safar/safar/backend/go-services/internal/auth"
	"github.com/safar/safar/backend/go-services/internal/blog"
	"github.com/safar/safar/backend/go-services/internal/config"
	"github.com/safar/safar/backend/go-services/internal/kv"
	"github.com/safar/safar/backend/go-services/internal/oidc"
	"github.com/safar/safar/backend/go-services/internal/sessions"
	"github.com/safar/safar/backend/go-services/internal/trips"
	"github.com/safar/safar/backend/go-services/internal/userstore"
	"github.com/safar/safar/backend/go-services/pkg/logger"
	"github.com/safar/safar/backend/go-services/pkg/metrics"
	"github.com/safar/safar/backend/go-services/pkg/middleware"
)

var startTime = time.Now()

func main() {
	// LOG_LEVEL: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Init(cfg.Log.Level)
	logger.Infof("config loaded: backend=%s oidc=%v jwt_secret_set=%v rate_limit=%v",
		cfg.Store.Backend, cfg.OIDC.Issuer != "", cfg.JWT.Secret != "", cfg.RateLimit.Enabled)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, closeBackend, err := kv.Open(ctx, cfg)
	if err != nil {
		logger.Fatalf("failed to open store: %v", err)
	}
	defer closeBackend()

	store := userstore.New(backend)

	verifier, err := buildVerifier(ctx, cfg)
	if err != nil {
		logger.Warnf("sign-in disabled: %v", err)
	}
	var provider *auth.LocalProvider
	var signIn handlers.SignInProvider
	if verifier != nil {
		provider = auth.NewLocalProvider(backend, verifier, auth.WithSessionTTL(cfg.JWT.SessionTTL))
		signIn = provider
	} else {
		// still able to read and clear a session persisted by an earlier run
		provider = auth.NewLocalProvider(backend, nil, auth.WithSessionTTL(cfg.JWT.SessionTTL))
	}

	rec := sessions.NewReconciler(backend, store, provider)
	s := rec.Start(ctx)
	defer rec.Close()
	logger.Infof("session reconciled: state=%s user=%q", rec.State(), s.UserID())

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)

	rl, closeLimiter := rateLimiter(ctx, cfg)
	defer closeLimiter()

	r := handlers.NewRouter(handlers.Deps{
		Reconciler: rec,
		Store:      store,
		Trips:      trips.NewService(store),
		Blog:       blog.NewService(store),
		Provider:   signIn,
		RateLimit:  rl,
		StartTime:  startTime,
	})

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("graceful shutdown failed: %v", err)
	}
}

// buildVerifier prefers a discovery-enabled issuer and falls back to a
// shared-secret verifier for local development.
func buildVerifier(ctx context.Context, cfg *config.Config) (oidc.TokenVerifier, error) {
	if cfg.OIDC.Issuer != "" && cfg.OIDC.ClientID != "" {
		v, err := oidc.NewVerifier(ctx, cfg.OIDC.Issuer, cfg.OIDC.ClientID)
		if err == nil {
			logger.Infof("verifying ID tokens against %s", cfg.OIDC.Issuer)
			return v, nil
		}
		logger.Warnf("failed to initialize OIDC verifier: %v", err)
	}
	if cfg.JWT.Secret != "" {
		v, err := oidc.NewHMACVerifier(cfg.JWT.Secret, cfg.JWT.Issuer)
		if err != nil {
			return nil, err
		}
		logger.Infof("verifying HS256 ID tokens issued by %q", cfg.JWT.Issuer)
		return v, nil
	}
	return nil, errors.New("neither OIDC_ISSUER/OIDC_CLIENT_ID nor JWT_SECRET is set")
}

// rateLimiter returns nil when limiting is disabled.
func rateLimiter(ctx context.Context, cfg *config.Config) (gin.HandlerFunc, func()) {
	if !cfg.RateLimit.Enabled {
		return nil, func() {}
	}
	if cfg.RateLimit.UseRedis {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr(), Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		err := client.Ping(ctx).Err()
		if err == nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			logger.Infof("rate limiter: redis at %s", cfg.Redis.Addr())
			return middleware.RedisRateLimitMiddleware(client, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win), func() { _ = client.Close() }
		}
		logger.Warnf("rate limiter: redis unavailable (%v), using in-memory buckets", err)
		_ = client.Close()
	}
	return middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst), func() {}
}
