// Package jobs runs scrape jobs: it owns the job lifecycle, retries with
// capped exponential backoff, and answers status queries.
package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/use-agent/stayscan/models"
)

// ErrJobNotFound is returned for an unknown job id.
var ErrJobNotFound = errors.New("jobs: job not found")

// Store persists jobs and the one-active-job-per-URL index.
// Implementations return copies; mutating a returned job has no effect
// on the store.
type Store interface {
	// CreateIfAbsent stores job unless an active job already exists for
	// job.ListingURL. It returns the stored or existing job and whether
	// job was created. The check and the insert are atomic.
	CreateIfAbsent(ctx context.Context, job *models.ScrapeJob) (*models.ScrapeJob, bool, error)

	// Get returns a copy of the job or ErrJobNotFound.
	Get(ctx context.Context, id string) (*models.ScrapeJob, error)

	// Update applies fn to the job atomically and stores the result. If fn
	// returns an error nothing is written and the error is returned. A job
	// that becomes terminal releases its URL from the active index.
	Update(ctx context.Context, id string, fn func(*models.ScrapeJob) error) (*models.ScrapeJob, error)

	// ListActive returns every queued, running or retrying job.
	ListActive(ctx context.Context) ([]*models.ScrapeJob, error)

	// DeleteFinishedBefore removes terminal jobs that finished before t and
	// returns how many were removed.
	DeleteFinishedBefore(ctx context.Context, t time.Time) (int, error)
}
