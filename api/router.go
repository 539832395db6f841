package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pagelens/api/handler"
	"github.com/use-agent/pagelens/api/middleware"
	"github.com/use-agent/pagelens/bulk"
	"github.com/use-agent/pagelens/cache"
	"github.com/use-agent/pagelens/config"
	"github.com/use-agent/pagelens/runner"
)

// Deps are the services the router exposes.
type Deps struct {
	Runner *runner.Runner
	Bulk   *bulk.Service
	Cache  *cache.Cache

	// Capabilities reports which optional dependencies are enabled.
	Capabilities map[string]bool
	StartTime    time.Time
}

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health stays outside auth so monitoring probes always work. ctx bounds
// the rate limiter's background eviction.
func NewRouter(ctx context.Context, cfg *config.Config, d Deps) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	reg := d.Runner.Registry()
	disabled := cfg.Tools.Disabled
	bulkOpts := handler.BulkOptions{Disabled: disabled, MaxURLs: cfg.Bulk.MaxURLs, MaxBytes: cfg.Bulk.MaxCSVBytes}

	v1 := r.Group("/api/v1")

	// Health: no auth required.
	v1.GET("/health", handler.Health(reg, d.Capabilities, d.StartTime))

	// Protected group: auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(ctx, cfg.RateLimit))

	// Tools
	protected.GET("/tools", handler.ListTools(reg, disabled))
	protected.GET("/tools/:id", handler.GetTool(reg, disabled))
	protected.POST("/tools/:id/run", handler.RunTool(d.Runner, disabled, d.Cache))

	// Bulk
	protected.POST("/bulk", handler.PostBulk(d.Bulk, reg, bulkOpts))
	protected.POST("/bulk/csv", handler.BulkCSV(d.Bulk.Runner, reg, bulkOpts))
	protected.GET("/bulk/:id", handler.GetBulk(d.Bulk.Store))
	protected.DELETE("/bulk/:id", handler.CancelBulk(d.Bulk.Store))

	return r
}
