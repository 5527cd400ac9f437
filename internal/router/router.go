package router

import (
	"github.com/gin-gonic/gin"

	"github.com/medifast/claims-api/internal/handler/analytics"
	"github.com/medifast/claims-api/internal/handler/audit"
	"github.com/medifast/claims-api/internal/handler/auth"
	"github.com/medifast/claims-api/internal/handler/claim"
	"github.com/medifast/claims-api/internal/handler/health"
	"github.com/medifast/claims-api/internal/handler/notification"
	"github.com/medifast/claims-api/internal/handler/prometheus"
	"github.com/medifast/claims-api/internal/middleware"
)

// Handlers collects the route surfaces the router mounts.
type Handlers struct {
	Auth          *auth.Handler
	Claims        *claim.Handler
	Notifications *notification.Handler
	Analytics     *analytics.Handler
	Audit         *audit.Handler
	Health        *health.Handler
	Prometheus    *prometheus.Handler
}

type Config struct {
	RateLimit middleware.RateLimiterConfig
	CORS      middleware.CORSConfig
	Security  middleware.SecurityConfig
	SizeLimit middleware.SizeLimitConfig
}

type Router struct {
	engine   *gin.Engine
	authn    *middleware.AuthMiddleware
	handlers Handlers
}

func New(authn *middleware.AuthMiddleware, handlers Handlers, config Config) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	// RequestID runs before Logger so every log line carries the ID.
	engine.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		handlers.Prometheus.Middleware(),
		middleware.SecurityHeaders(config.Security),
		middleware.CORS(config.CORS),
		middleware.SizeLimit(config.SizeLimit),
		middleware.ErrorHandler(),
	)

	limiter := middleware.NewRateLimiter(config.RateLimit)
	engine.Use(limiter.RateLimit())

	return &Router{
		engine:   engine,
		authn:    authn,
		handlers: handlers,
	}
}

// Setup mounts all routes. The scrape endpoint sits outside /api/v1 so
// Prometheus does not pass through the versioned API middleware.
func (r *Router) Setup() {
	r.engine.GET("/metrics", r.handlers.Prometheus.Handler())

	api := r.engine.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})

	r.handlers.Health.RegisterRoutes(api)
	r.handlers.Auth.RegisterRoutes(api, r.authn)

	protected := api.Group("")
	protected.Use(r.authn.Authenticate())

	r.handlers.Claims.RegisterRoutes(protected, r.authn)
	r.handlers.Notifications.RegisterRoutes(protected)
	r.handlers.Analytics.RegisterRoutes(protected, r.authn)
	r.handlers.Audit.RegisterRoutes(protected, r.authn)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
