package engine

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/use-agent/stayscan/models"
)

// FetchError describes why a page could not be retrieved. Kind decides
// whether a later attempt may succeed.
type FetchError struct {
	Engine     string
	Kind       models.FailureKind
	StatusCode int
	Reason     string
	Err        error
}

func (e *FetchError) Error() string {
	msg := e.Reason
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.StatusCode)
	}
	if e.Engine != "" {
		msg = e.Engine + ": " + msg
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Permanent reports whether retrying cannot help.
func (e *FetchError) Permanent() bool {
	return e.Kind == models.FailurePermanent
}

// Timeout reports whether the fetch ran out of time.
func (e *FetchError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}

// Transient returns a FetchError that a later attempt may not hit.
func Transient(engine, reason string, err error) *FetchError {
	return &FetchError{Engine: engine, Kind: models.FailureTransient, Reason: reason, Err: err}
}

// Permanent returns a FetchError that will recur on every attempt.
func Permanent(engine, reason string, err error) *FetchError {
	return &FetchError{Engine: engine, Kind: models.FailurePermanent, Reason: reason, Err: err}
}

// StatusKind classifies an HTTP status of the listing page.
// It returns FailureNone for success codes.
func StatusKind(code int) models.FailureKind {
	switch {
	case code == 0, code >= 200 && code < 300:
		return models.FailureNone
	case code == 403, code == 408, code == 425, code == 429:
		// 403 is how the platform answers suspected automation.
		return models.FailureTransient
	case code >= 400 && code < 500:
		return models.FailurePermanent
	default:
		return models.FailureTransient
	}
}

// IsPermanent reports whether err is a permanent FetchError.
func IsPermanent(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Permanent()
}
