package server

import (
	"fmt"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sirosfoundation/go-echo-server/internal/api"
	"github.com/sirosfoundation/go-echo-server/internal/router"
	"github.com/sirosfoundation/go-echo-server/pkg/config"
	"github.com/sirosfoundation/go-echo-server/pkg/middleware"
)

// NewRouter creates the gin engine serving table. limiter may be nil.
func NewRouter(cfg *config.Config, table *router.Table, limiter *middleware.RateLimiter, logger *zap.Logger) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Logger(logger.Named("http")))

	if cfg.CORS.Enabled() {
		engine.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     cfg.CORS.AllowedMethods,
			AllowHeaders:     cfg.CORS.AllowedHeaders,
			ExposeHeaders:    cfg.CORS.ExposedHeaders,
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           time.Duration(cfg.CORS.MaxAge) * time.Second,
		}))
	}

	if limiter != nil {
		engine.Use(middleware.RateLimitMiddleware(limiter, logger))
	}

	table.Register(engine)
	return engine
}

// NewFromConfig assembles handlers, route table, router and lifecycle
func NewFromConfig(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	handlers := api.NewHandlers(cfg, logger)
	table, err := handlers.NewTable()
	if err != nil {
		return nil, fmt.Errorf("failed to build route table: %w", err)
	}

	for _, r := range table.Routes() {
		logger.Debug("Route registered",
			zap.String("method", r.Method),
			zap.String("pattern", r.Pattern))
	}

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(middleware.RateLimitConfig{
			RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
			BurstSize:         cfg.RateLimit.BurstSize,
			Enabled:           true,
		}, logger)
	}

	srv := New(cfg.Server, NewRouter(cfg, table, limiter, logger), logger)
	if limiter != nil {
		srv.OnStop(limiter.Stop)
	}
	return srv, nil
}
