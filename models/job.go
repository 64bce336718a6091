package models

import "time"

// JobStatus is the lifecycle state of a ScrapeJob.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
	JobRetrying  JobStatus = "retrying"
)

// Terminal reports whether no further transitions can happen.
func (s JobStatus) Terminal() bool {
	return s == JobSucceeded || s == JobFailed
}

// FailureKind classifies why an attempt failed.
type FailureKind string

const (
	FailureNone      FailureKind = ""
	FailureTransient FailureKind = "transient"
	FailurePermanent FailureKind = "permanent"
)

// ScrapeJob is one unit of work: scrape a single listing URL.
type ScrapeJob struct {
	ID         string    `json:"id"`
	ListingURL string    `json:"listing_url"`
	Status     JobStatus `json:"status"`

	// Attempt is the number of attempts started so far.
	Attempt     int `json:"attempt"`
	MaxAttempts int `json:"max_attempts"`

	LastError   string      `json:"last_error,omitempty"`
	ErrorCode   string      `json:"error_code,omitempty"`
	FailureKind FailureKind `json:"failure_kind,omitempty"`

	// NextRetryAt is set only while Status is retrying.
	NextRetryAt *time.Time `json:"next_retry_at,omitempty"`

	// Result is set only when Status is succeeded.
	Result *ExtractionResult `json:"result,omitempty"`

	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Clone returns a copy that shares no mutable state with j.
// The result is immutable, so its pointer is shared.
func (j *ScrapeJob) Clone() *ScrapeJob {
	if j == nil {
		return nil
	}
	c := *j
	if j.NextRetryAt != nil {
		t := *j.NextRetryAt
		c.NextRetryAt = &t
	}
	if j.FinishedAt != nil {
		t := *j.FinishedAt
		c.FinishedAt = &t
	}
	return &c
}

// JobSnapshot is a read-only view of a job for status queries.
type JobSnapshot struct {
	ScrapeJob

	// CanRetryLater is true when the job is retrying, or failed for a
	// transient reason and may succeed if resubmitted.
	CanRetryLater bool `json:"can_retry_later"`
}
