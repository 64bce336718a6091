package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/stayscan/jobs"
	"github.com/use-agent/stayscan/models"
	"github.com/use-agent/stayscan/scraper"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// Health returns a handler for GET /api/v1/health.
//
// Reports pool utilisation and degrades status when > 80% of tabs are
// active or the job store cannot be read. br is nil when no browser runs.
func Health(br *scraper.Browser, orch *jobs.Orchestrator, rep *jobs.Reporter, fetchMode string, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := "healthy"
		resp := models.HealthResponse{
			Uptime:    time.Since(startTime).Round(time.Second).String(),
			FetchMode: fetchMode,
			Version:   Version,
		}

		if br != nil {
			stats := br.Stats()
			resp.PoolStats = &stats
			if stats.MaxPages > 0 && stats.ActivePages > int(float64(stats.MaxPages)*0.8) {
				status = "degraded"
			}
		}

		active, err := rep.ActiveCount(c.Request.Context())
		if err != nil {
			slog.Warn("health: job store unavailable", "error", err)
			status = "degraded"
		}
		resp.Jobs = models.JobStats{Active: active, Workers: orch.Workers()}
		resp.Status = status

		c.JSON(http.StatusOK, resp)
	}
}
