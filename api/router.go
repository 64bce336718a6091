package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/use-agent/stayscan/api/handler"
	"github.com/use-agent/stayscan/api/middleware"
	"github.com/use-agent/stayscan/config"
	"github.com/use-agent/stayscan/jobs"
	"github.com/use-agent/stayscan/scraper"
	"github.com/use-agent/stayscan/validator"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger → Metrics
//	API:     Auth (if enabled) → RateLimit
//
// Health and metrics stay outside auth so monitoring probes always work.
// br may be nil when the browser is disabled.
func NewRouter(cfg *config.Config, orch *jobs.Orchestrator, rep *jobs.Reporter, v *validator.Validator, br *scraper.Browser, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())
	r.Use(middleware.Metrics())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")

	// Health: no auth required.
	v1.GET("/health", handler.Health(br, orch, rep, cfg.Engine.FetchMode, startTime))

	// Protected group: auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	protected.POST("/scrape", handler.Scrape(orch))
	protected.GET("/jobs/:id", handler.GetJob(rep))
	protected.POST("/validate", handler.Validate(v))

	return r
}
