package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/stayscan/jobs"
	"github.com/use-agent/stayscan/models"
)

// Scrape returns a handler for POST /api/v1/scrape.
//
// It never waits for the scrape: a valid URL yields 202 with the id of a
// new or already active job, an invalid one yields 400 with the
// validation outcome and no job.
func Scrape(orch *jobs.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		// ── 1. Parse request ────────────────────────────────────────
		var req models.ScrapeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, models.NewScrapeError(models.ErrCodeInvalidInput, err.Error(), err))
			return
		}

		// ── 2. Validate + create or join a job ──────────────────────
		out, err := orch.Submit(c.Request.Context(), req.URL)
		if errors.Is(err, jobs.ErrInvalidURL) {
			c.JSON(http.StatusBadRequest, models.SubmitResponse{
				Success:    false,
				Validation: out.Validation,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: firstOr(out.Validation.Errors, "invalid listing URL"),
				},
			})
			return
		}
		if err != nil {
			slog.Error("submit failed", "url", req.URL, "error", err)
			respondError(c, err)
			return
		}

		// ── 3. Respond ──────────────────────────────────────────────
		c.JSON(http.StatusAccepted, models.SubmitResponse{
			Success:    true,
			JobID:      out.Job.ID,
			Created:    out.Created,
			Status:     out.Job.Status,
			Validation: out.Validation,
		})
	}
}

func firstOr(s []string, fallback string) string {
	if len(s) > 0 {
		return s[0]
	}
	return fallback
}
