package jobs

import (
	"context"

	"github.com/use-agent/stayscan/models"
)

// Reporter answers status queries. It never hands out live job records.
type Reporter struct {
	store Store
}

// NewReporter creates a Reporter reading from store.
func NewReporter(store Store) *Reporter {
	return &Reporter{store: store}
}

// Status returns a snapshot of job id, or ErrJobNotFound.
func (r *Reporter) Status(ctx context.Context, id string) (models.JobSnapshot, error) {
	job, err := r.store.Get(ctx, id)
	if err != nil {
		return models.JobSnapshot{}, err
	}
	return Snapshot(job), nil
}

// ActiveCount returns the number of jobs not yet finished.
func (r *Reporter) ActiveCount(ctx context.Context) (int, error) {
	active, err := r.store.ListActive(ctx)
	if err != nil {
		return 0, err
	}
	return len(active), nil
}

// Snapshot copies job and derives CanRetryLater: true while the job is
// retrying, or when it failed for a transient reason and a later
// submission may succeed.
func Snapshot(job *models.ScrapeJob) models.JobSnapshot {
	c := job.Clone()
	return models.JobSnapshot{
		ScrapeJob: *c,
		CanRetryLater: c.Status == models.JobRetrying ||
			(c.Status == models.JobFailed && c.FailureKind == models.FailureTransient),
	}
}
