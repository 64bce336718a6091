package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/stayscan/models"
	"github.com/use-agent/stayscan/validator"
)

// Validate returns a handler for POST /api/v1/validate. It reports how a
// URL would be cleaned without creating a job.
func Validate(v *validator.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ValidateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, models.NewScrapeError(models.ErrCodeInvalidInput, err.Error(), err))
			return
		}
		c.JSON(http.StatusOK, v.Validate(req.URL))
	}
}
