package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/stayscan/jobs"
	"github.com/use-agent/stayscan/models"
)

// GetJob returns a handler for GET /api/v1/jobs/:id.
func GetJob(rep *jobs.Reporter) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, err := rep.Status(c.Request.Context(), c.Param("id"))
		if errors.Is(err, jobs.ErrJobNotFound) {
			respondError(c, models.NewScrapeError(models.ErrCodeNotFound, "job not found", err))
			return
		}
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.JobResponse{Success: true, Job: &snap})
	}
}
