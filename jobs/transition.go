package jobs

import (
	"errors"
	"time"

	"github.com/use-agent/stayscan/models"
)

// errNotRunnable is returned when a queued attempt finds its job already
// running or finished, e.g. a duplicate queue entry after recovery.
var errNotRunnable = errors.New("jobs: job is not runnable")

// errNotRunning is returned when an attempt result arrives for a job that
// is no longer running.
var errNotRunning = errors.New("jobs: job is not running")

type eventKind int

const (
	evStart eventKind = iota
	evSuccess
	evFailure
)

// event is one input to the job state machine.
type event struct {
	kind   eventKind
	result *models.ExtractionResult
	err    error
}

// defaultMaxDelay caps Backoff when Max is unset.
const defaultMaxDelay = time.Hour

// Backoff computes retry delays: Base × 2^attempt, capped at Max.
// A zero Max means defaultMaxDelay, or Base if that is larger.
type Backoff struct {
	Base time.Duration
	Max  time.Duration
}

// Delay returns the wait before the next attempt, given the number of
// attempts made so far.
func (b Backoff) Delay(attempt int) time.Duration {
	if b.Base <= 0 {
		return 0
	}
	limit := b.Max
	if limit <= 0 {
		limit = max(defaultMaxDelay, b.Base)
	}
	d := b.Base
	for i := 0; i < attempt && d < limit; i++ {
		d *= 2
	}
	return min(d, limit)
}

// transition applies ev to job. It is the only code that changes a job's
// status, and it runs inside Store.Update so each change is atomic.
func transition(job *models.ScrapeJob, ev event, backoff Backoff, now time.Time) error {
	switch ev.kind {
	case evStart:
		if job.Status != models.JobQueued && job.Status != models.JobRetrying {
			return errNotRunnable
		}
		job.Status = models.JobRunning
		job.Attempt++
		job.NextRetryAt = nil

	case evSuccess:
		if job.Status != models.JobRunning {
			return errNotRunning
		}
		job.Status = models.JobSucceeded
		job.Result = ev.result
		job.LastError = ""
		job.ErrorCode = ""
		job.FailureKind = models.FailureNone
		job.FinishedAt = &now

	case evFailure:
		if job.Status != models.JobRunning {
			return errNotRunning
		}
		kind := Classify(ev.err)
		job.LastError = ev.err.Error()
		job.ErrorCode = ErrorCode(ev.err)
		job.FailureKind = kind
		job.Result = nil
		if kind == models.FailureTransient && job.Attempt < job.MaxAttempts {
			next := now.Add(backoff.Delay(job.Attempt))
			job.Status = models.JobRetrying
			job.NextRetryAt = &next
		} else {
			job.Status = models.JobFailed
			job.FinishedAt = &now
		}
	}
	job.UpdatedAt = now
	return nil
}
