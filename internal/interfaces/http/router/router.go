// Package router 提供 HTTP 路由配置
package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hakawati-story-api/internal/config"
	"hakawati-story-api/internal/infrastructure/identity"
	"hakawati-story-api/internal/infrastructure/persistence/redis"
	"hakawati-story-api/internal/interfaces/http/handler"
	"hakawati-story-api/internal/interfaces/http/middleware"
)

// Handlers 路由所需的处理器集合
type Handlers struct {
	Health  *handler.HealthHandler
	Story   *handler.StoryHandler
	Profile *handler.ProfileHandler
	Admin   *handler.AdminHandler
}

// Router HTTP 路由器
type Router struct {
	engine   *gin.Engine
	cfg      *config.Config
	handlers Handlers
	verifier identity.Verifier
	limiter  middleware.RateLimiter
}

// New 创建新的路由器；limiter 为空时不限流
func New(cfg *config.Config, handlers Handlers, verifier identity.Verifier, limiter middleware.RateLimiter) *Router {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := &Router{
		engine:   gin.New(),
		cfg:      cfg,
		handlers: handlers,
		verifier: verifier,
		limiter:  limiter,
	}

	r.setupMiddleware()
	r.setupRoutes()

	return r
}

// Engine 返回 Gin Engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func (r *Router) setupMiddleware() {
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.RequestID())

	r.engine.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: r.cfg.Security.CORS.AllowedOrigins,
		AllowedMethods: r.cfg.Security.CORS.AllowedMethods,
		AllowedHeaders: r.cfg.Security.CORS.AllowedHeaders,
	}))

	if r.cfg.Observability.Tracing.Enabled {
		r.engine.Use(middleware.Trace(r.cfg.App.Name))
		r.engine.Use(middleware.TraceContext())
	}

	if r.cfg.Observability.Metrics.Enabled {
		r.engine.Use(middleware.Metrics())
	}
}

func (r *Router) setupRoutes() {
	r.engine.GET("/health", r.handlers.Health.Health)
	r.engine.GET("/ready", r.handlers.Health.Ready)
	r.engine.GET("/live", r.handlers.Health.Live)

	if r.cfg.Observability.Metrics.Enabled {
		r.engine.GET(r.metricsPath(), gin.WrapH(promhttp.Handler()))
	}

	skip := append([]string{}, middleware.DefaultSkipPaths...)
	skip = append(skip, r.metricsPath(), "/v1/stories/presets")

	v1 := r.engine.Group("/v1")
	v1.Use(middleware.Auth(middleware.AuthConfig{
		Verifier:  r.verifier,
		SkipPaths: skip,
		Enabled:   true,
	}))
	v1.Use(middleware.RateLimit(middleware.RateLimitConfig{
		Enabled: r.cfg.Security.RateLimit.Enabled,
		Limit:   r.cfg.Security.RateLimit.RequestsPerMinute,
		Window:  time.Minute,
		Key: func(c *gin.Context) string {
			return redis.BuildRateLimitKey(middleware.SubjectKey(c), "v1")
		},
	}, r.limiter))

	generationLimit := middleware.RateLimit(middleware.RateLimitConfig{
		Enabled: r.cfg.Security.RateLimit.Enabled,
		Limit:   r.cfg.Security.RateLimit.GenerationsPerHour,
		Window:  time.Hour,
		Key: func(c *gin.Context) string {
			return redis.BuildGenerationLimitKey(middleware.GetUserIDFromGin(c))
		},
	}, r.limiter)

	RegisterV1Routes(v1, r.handlers, generationLimit)
}

func (r *Router) metricsPath() string {
	if r.cfg.Observability.Metrics.Path == "" {
		return "/metrics"
	}
	return r.cfg.Observability.Metrics.Path
}
