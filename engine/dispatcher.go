package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"
)

// Dispatcher coordinates multi-engine racing with staged escalation.
// It starts the fastest engine first and progressively escalates to heavier
// engines if earlier ones fail or time out. A permanent failure from any
// engine ends the race, since no other engine can fetch a listing that is
// gone.
//
// Dispatcher is itself an Engine, so the job layer does not care whether it
// talks to one engine or a race.
type Dispatcher struct {
	engines          []Engine
	escalationDelays []time.Duration
	memory           *DomainMemory
}

// NewDispatcher creates a Dispatcher with the given engines and escalation delays.
// engines[i] starts after escalationDelays[i] from the race beginning.
// The first delay should be 0 (immediate start). memory may be nil.
func NewDispatcher(engines []Engine, escalationDelays []time.Duration, memory *DomainMemory) *Dispatcher {
	// Ensure we have at least as many delays as engines.
	delays := make([]time.Duration, len(engines))
	copy(delays, escalationDelays)
	return &Dispatcher{
		engines:          engines,
		escalationDelays: delays,
		memory:           memory,
	}
}

func (d *Dispatcher) Name() string { return "auto" }

// Fetch runs the multi-engine race for the given request and returns the
// first successful result. If all engines fail, it returns the most
// informative error: a permanent one if any engine saw one, else the last.
func (d *Dispatcher) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	if len(d.engines) == 0 {
		return nil, Permanent(d.Name(), "no engines configured", nil)
	}
	host := extractHost(req.URL)

	if d.memory != nil {
		if remembered := d.memory.Get(host); remembered != "" {
			if eng := d.engine(remembered); eng != nil {
				slog.Debug("domain memory hit", "host", host, "engine", remembered)
				result, err := eng.Fetch(ctx, req)
				if err == nil {
					return result, nil
				}
				if IsPermanent(err) || ctx.Err() != nil {
					return nil, err
				}
				slog.Info("domain memory miss (engine failed), running full race",
					"host", host, "engine", remembered, "error", err)
				d.memory.Delete(host)
			}
		}
	}

	return d.race(ctx, req, host)
}

func (d *Dispatcher) engine(name string) Engine {
	for _, eng := range d.engines {
		if eng.Name() == name {
			return eng
		}
	}
	return nil
}

// race runs all engines with staged delays and returns the first success.
func (d *Dispatcher) race(ctx context.Context, req *FetchRequest, host string) (*FetchResult, error) {
	type raceResult struct {
		result *FetchResult
		err    error
	}

	raceCtx, raceCancel := context.WithCancel(ctx)
	defer raceCancel()

	results := make(chan raceResult, len(d.engines))
	var wg sync.WaitGroup

	for i, eng := range d.engines {
		delay := d.escalationDelays[i]
		wg.Add(1)
		go func(e Engine, delay time.Duration) {
			defer wg.Done()

			if delay > 0 {
				timer := time.NewTimer(delay)
				defer timer.Stop()
				select {
				case <-raceCtx.Done():
					return
				case <-timer.C:
				}
			}

			// Check if another engine already won.
			select {
			case <-raceCtx.Done():
				return
			default:
			}

			slog.Debug("engine starting", "engine", e.Name(), "url", req.URL)
			result, err := e.Fetch(raceCtx, req)
			if err != nil {
				slog.Debug("engine failed", "engine", e.Name(), "url", req.URL, "error", err)
			}
			results <- raceResult{result: result, err: err}
		}(eng, delay)
	}

	// Close results channel when all goroutines finish.
	go func() {
		wg.Wait()
		close(results)
	}()

	var lastErr error
	for rr := range results {
		if rr.err != nil {
			if IsPermanent(rr.err) {
				raceCancel()
				slog.Info("engine reported permanent failure, ending race", "url", req.URL, "error", rr.err)
				return nil, rr.err
			}
			// Engines cancelled by the race itself say nothing about the page.
			if lastErr == nil || !errors.Is(rr.err, context.Canceled) {
				lastErr = rr.err
			}
			continue
		}
		// First success wins, cancel all other engines.
		raceCancel()
		slog.Info("engine won race", "engine", rr.result.EngineName, "url", req.URL)
		if d.memory != nil {
			d.memory.Set(host, rr.result.EngineName)
		}
		return rr.result, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, Transient(d.Name(), "fetch cancelled", err)
	}
	if lastErr == nil {
		lastErr = Transient(d.Name(), fmt.Sprintf("all engines failed for %s", req.URL), nil)
	}
	return nil, lastErr
}

// extractHost parses the hostname from a URL string.
func extractHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Hostname()
}
