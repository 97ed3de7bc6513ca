package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	googleauth "docviewer-backend/internal/auth"
	"docviewer-backend/internal/documents"
	"docviewer-backend/internal/impersonation"
	"docviewer-backend/internal/services/health"
	"docviewer-backend/internal/shared/config"
	"docviewer-backend/internal/shared/metrics"
	"docviewer-backend/internal/shared/server/middleware"
	"docviewer-backend/internal/shared/server/respond"
)

const uploadRateGroup = "UPLOAD"

// RouterDeps carries the handlers and middleware dependencies of the API.
type RouterDeps struct {
	Config        config.Config
	Verifier      middleware.TokenVerifier
	Users         middleware.UserLoader
	Documents     *documents.Handler
	Impersonation *impersonation.Handler
	GoogleAuth    *googleauth.GoogleService
	Health        *health.Service
	Metrics       *metrics.Collector
	Gatherer      prometheus.Gatherer
	RateLimiter   *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env != "test" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware())
	}
	r.Use(middleware.Auth(deps.Verifier, deps.Users, "/api/health", "/api/auth/", "/metrics"))

	if deps.Gatherer != nil {
		r.GET("/metrics", metrics.Handler(deps.Gatherer))
	}

	api := r.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		if deps.Health == nil {
			respond.JSON(c, http.StatusOK, gin.H{"ok": true})
			return
		}
		status := deps.Health.Status(c.Request.Context())
		code := http.StatusOK
		if !status.OK {
			code = http.StatusServiceUnavailable
		}
		respond.JSON(c, code, status)
	})

	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(api)
	}
	registerMeRoutes(api)
	if deps.Impersonation != nil {
		deps.Impersonation.RegisterRoutes(api)
	}
	if deps.Documents != nil {
		uploadLimit := middleware.RateLimit(middleware.RateLimitConfig{
			Rules:        map[string]middleware.RateLimitRule{uploadRateGroup: middleware.PerMinute(deps.Config.UploadRatePerMinute)},
			DefaultGroup: uploadRateGroup,
			Limiter:      deps.RateLimiter,
		})
		deps.Documents.RegisterRoutes(api, uploadLimit)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
