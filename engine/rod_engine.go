package engine

import (
	"context"
	"errors"

	"github.com/use-agent/stayscan/models"
)

// BrowserFetchFunc renders a listing page in a real browser. It is injected
// from main to avoid an import cycle (engine/ -> scraper/).
type BrowserFetchFunc func(ctx context.Context, req *FetchRequest) (*FetchResult, error)

// RodEngine is a browser-backed engine. The stealth variant always asks for
// the stealth patches and is raced last.
type RodEngine struct {
	fetchFunc    BrowserFetchFunc
	forceStealth bool
	name         string
}

// NewRodEngine creates a RodEngine around fetchFunc.
func NewRodEngine(fetchFunc BrowserFetchFunc, forceStealth bool) *RodEngine {
	name := "browser"
	if forceStealth {
		name = "browser-stealth"
	}
	return &RodEngine{
		fetchFunc:    fetchFunc,
		forceStealth: forceStealth,
		name:         name,
	}
}

func (e *RodEngine) Name() string { return e.name }

func (e *RodEngine) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	if e.fetchFunc == nil {
		return nil, Permanent(e.name, "browser not configured", nil)
	}

	// Clone the request so we don't mutate the caller's copy.
	r := *req
	if e.forceStealth {
		r.Stealth = true
	}

	result, err := e.fetchFunc(ctx, &r)
	if err != nil {
		var fe *FetchError
		if errors.As(err, &fe) {
			fe.Engine = e.name
			return nil, fe
		}
		return nil, Transient(e.name, "browser fetch failed", err)
	}

	result.EngineName = e.name
	if kind := StatusKind(result.StatusCode); kind != models.FailureNone {
		return nil, &FetchError{Engine: e.name, Kind: kind, StatusCode: result.StatusCode, Reason: "listing page returned an error status"}
	}
	if err := CheckPage(req.URL, result); err != nil {
		return nil, err
	}
	return result, nil
}
