package jobs

import (
	"context"
	"errors"

	"github.com/use-agent/stayscan/engine"
	"github.com/use-agent/stayscan/extract"
	"github.com/use-agent/stayscan/models"
)

var (
	// ErrInvalidURL is returned by Submit when the URL fails validation.
	ErrInvalidURL = errors.New("jobs: invalid listing URL")

	// errEmptyResult marks a page that parsed but yielded no photos.
	errEmptyResult = models.NewScrapeError(models.ErrCodeEmptyResult, "no photos found on listing page", nil)

	// errInterrupted marks an attempt cut off by a process restart.
	errInterrupted = errors.New("attempt interrupted")
)

// Classify decides whether a failed attempt may be retried. Anything it
// does not recognise is transient.
func Classify(err error) models.FailureKind {
	if err == nil {
		return models.FailureNone
	}
	if errors.Is(err, ErrInvalidURL) || errors.Is(err, extract.ErrMergeInvariant) {
		return models.FailurePermanent
	}

	var fe *engine.FetchError
	if errors.As(err, &fe) {
		if fe.Kind == models.FailureNone {
			return models.FailureTransient
		}
		return fe.Kind
	}

	var se *models.ScrapeError
	if errors.As(err, &se) {
		switch se.Code {
		case models.ErrCodeInvalidInput, models.ErrCodeNotFound, models.ErrCodeFetchPermanent, models.ErrCodeMergeInvariant:
			return models.FailurePermanent
		}
		return models.FailureTransient
	}

	// Timeouts, empty pages and interruptions all land here.
	return models.FailureTransient
}

// ErrorCode maps a failed attempt to the code reported on the job.
func ErrorCode(err error) string {
	var fe *engine.FetchError
	isFetch := errors.As(err, &fe)
	if isFetch && fe.Timeout() {
		return models.ErrCodeTimeout
	}

	var se *models.ScrapeError
	if errors.As(err, &se) {
		return se.Code
	}

	switch {
	case isFetch && fe.Permanent():
		return models.ErrCodeFetchPermanent
	case isFetch:
		return models.ErrCodeFetchTransient
	case errors.Is(err, ErrInvalidURL):
		return models.ErrCodeInvalidInput
	case errors.Is(err, extract.ErrMergeInvariant):
		return models.ErrCodeMergeInvariant
	case errors.Is(err, context.DeadlineExceeded):
		return models.ErrCodeTimeout
	}
	return models.ErrCodeInternal
}
