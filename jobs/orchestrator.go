package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/use-agent/stayscan/config"
	"github.com/use-agent/stayscan/engine"
	"github.com/use-agent/stayscan/extract"
	"github.com/use-agent/stayscan/metrics"
	"github.com/use-agent/stayscan/models"
	"github.com/use-agent/stayscan/validator"
)

// storeTimeout bounds store calls made outside a request context.
const storeTimeout = 5 * time.Second

// sweepInterval is how often finished jobs past retention are removed.
const sweepInterval = 10 * time.Minute

// Notifier is told about every job that reaches a terminal status.
type Notifier interface {
	Notify(ctx context.Context, snap models.JobSnapshot)
}

// SubmitOutcome reports what Submit did with a URL.
type SubmitOutcome struct {
	Validation models.ValidationOutcome
	// Job is nil when validation failed.
	Job *models.ScrapeJob
	// Created is false when an active job for the URL already existed.
	Created bool
}

// Orchestrator owns the job lifecycle. It is the only writer of job state:
// every change goes through transition inside Store.Update.
type Orchestrator struct {
	cfg       config.JobsConfig
	store     Store
	validator *validator.Validator
	fetcher   engine.Engine
	extractor *extract.Extractor
	limiter   *rate.Limiter
	backoff   Backoff
	notifier  Notifier
	now       func() time.Time

	queue chan string

	timersMu sync.Mutex
	timers   map[string]*time.Timer

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewOrchestrator wires an Orchestrator. Call Start before jobs can run.
func NewOrchestrator(cfg config.JobsConfig, store Store, v *validator.Validator, fetcher engine.Engine, extractor *extract.Extractor) *Orchestrator {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	var limiter *rate.Limiter
	if cfg.FetchRPS > 0 {
		burst := cfg.FetchBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.FetchRPS), burst)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		cfg:       cfg,
		store:     store,
		validator: v,
		fetcher:   fetcher,
		extractor: extractor,
		limiter:   limiter,
		backoff:   Backoff{Base: cfg.BaseDelay, Max: cfg.MaxDelay},
		now:       time.Now,
		queue:     make(chan string, 256),
		timers:    make(map[string]*time.Timer),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// SetNotifier registers a Notifier for terminal jobs.
func (o *Orchestrator) SetNotifier(n Notifier) {
	o.notifier = n
}

// Workers returns the size of the worker pool.
func (o *Orchestrator) Workers() int { return o.cfg.Workers }

// Submit validates rawURL and creates a job for its canonical form, unless
// an active job for that URL exists, in which case that job is returned.
// An invalid URL yields ErrInvalidURL and no job.
func (o *Orchestrator) Submit(ctx context.Context, rawURL string) (SubmitOutcome, error) {
	out := SubmitOutcome{Validation: o.validator.Validate(rawURL)}
	if !out.Validation.IsValid {
		return out, ErrInvalidURL
	}

	now := o.now()
	job := &models.ScrapeJob{
		ID:          uuid.NewString(),
		ListingURL:  out.Validation.CleanedURL,
		Status:      models.JobQueued,
		MaxAttempts: o.cfg.MaxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	stored, created, err := o.store.CreateIfAbsent(ctx, job)
	if err != nil {
		return out, fmt.Errorf("jobs: submit: %w", err)
	}
	out.Job, out.Created = stored, created

	metrics.JobsSubmitted.WithLabelValues(strconv.FormatBool(created)).Inc()
	if created {
		metrics.ActiveJobs.Inc()
		slog.Info("job created", "job_id", stored.ID, "url", stored.ListingURL)
		o.enqueue(stored.ID)
	} else {
		slog.Debug("joined active job", "job_id", stored.ID, "url", stored.ListingURL)
	}
	return out, nil
}

// Start launches the worker pool and resumes jobs left unfinished by a
// previous process: queued jobs are enqueued, retrying jobs rescheduled,
// and running jobs count as an interrupted attempt.
func (o *Orchestrator) Start(ctx context.Context) error {
	var err error
	o.startOnce.Do(func() {
		err = o.recover(ctx)
		for i := 0; i < o.cfg.Workers; i++ {
			o.wg.Add(1)
			go o.worker()
		}
		if o.cfg.Retention > 0 {
			o.wg.Add(1)
			go o.sweepLoop()
		}
		slog.Info("job orchestrator started", "workers", o.cfg.Workers, "max_attempts", o.cfg.MaxAttempts)
	})
	return err
}

// Stop cancels scheduled retries, lets in-flight attempts finish and waits
// for the workers to exit, or for ctx to expire. A job whose attempt is
// still running when ctx expires stays running and is resumed by the next
// Start.
func (o *Orchestrator) Stop(ctx context.Context) error {
	o.stopOnce.Do(func() {
		o.cancel()
		o.timersMu.Lock()
		for id, t := range o.timers {
			t.Stop()
			delete(o.timers, id)
		}
		o.timersMu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) recover(ctx context.Context) error {
	active, err := o.store.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("jobs: recover: %w", err)
	}
	metrics.ActiveJobs.Set(float64(len(active)))
	for _, job := range active {
		switch job.Status {
		case models.JobQueued:
			o.enqueue(job.ID)
		case models.JobRetrying:
			at := o.now()
			if job.NextRetryAt != nil {
				at = *job.NextRetryAt
			}
			o.schedule(job.ID, at)
		case models.JobRunning:
			slog.Warn("resuming interrupted attempt", "job_id", job.ID, "attempt", job.Attempt)
			o.finish(job.ID, nil, errInterrupted)
		}
	}
	if len(active) > 0 {
		slog.Info("recovered unfinished jobs", "count", len(active))
	}
	return nil
}

func (o *Orchestrator) enqueue(id string) {
	select {
	case o.queue <- id:
		return
	case <-o.ctx.Done():
		return
	default:
	}
	// Queue is full: hand off without blocking the caller.
	go func() {
		select {
		case o.queue <- id:
		case <-o.ctx.Done():
		}
	}()
}

func (o *Orchestrator) schedule(id string, at time.Time) {
	delay := at.Sub(o.now())
	if delay <= 0 {
		o.enqueue(id)
		return
	}
	o.timersMu.Lock()
	defer o.timersMu.Unlock()
	if o.ctx.Err() != nil {
		return
	}
	if old, ok := o.timers[id]; ok {
		old.Stop()
	}
	o.timers[id] = time.AfterFunc(delay, func() {
		o.timersMu.Lock()
		delete(o.timers, id)
		o.timersMu.Unlock()
		o.enqueue(id)
	})
}

func (o *Orchestrator) worker() {
	defer o.wg.Done()
	for {
		select {
		case <-o.ctx.Done():
			return
		case id := <-o.queue:
			o.run(id)
		}
	}
}

// run performs one attempt of job id.
func (o *Orchestrator) run(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	job, err := o.store.Update(ctx, id, func(j *models.ScrapeJob) error {
		return transition(j, event{kind: evStart}, o.backoff, o.now())
	})
	cancel()
	if errors.Is(err, errNotRunnable) || errors.Is(err, ErrJobNotFound) {
		slog.Debug("skipping stale queue entry", "job_id", id, "error", err)
		return
	}
	if err != nil {
		slog.Error("failed to start attempt", "job_id", id, "error", err)
		return
	}

	slog.Info("attempt started", "job_id", id, "url", job.ListingURL, "attempt", job.Attempt, "max_attempts", job.MaxAttempts)
	start := time.Now()
	result, attemptErr := o.attempt(job)
	metrics.AttemptDurationSeconds.Observe(time.Since(start).Seconds())

	o.finish(id, result, attemptErr)
}

// attempt fetches and extracts one listing under the attempt timeout.
// Stop does not cancel it: an attempt that has started runs to completion.
func (o *Orchestrator) attempt(job *models.ScrapeJob) (*models.ExtractionResult, error) {
	ctx := context.Background()
	if o.cfg.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.AttemptTimeout)
		defer cancel()
	}

	if o.limiter != nil {
		if err := o.limiter.Wait(ctx); err != nil {
			return nil, engine.Transient("limiter", "waiting for a fetch slot", err)
		}
	}

	// No per-request timeout: each engine applies its own, and ctx bounds the whole attempt.
	page, err := o.fetcher.Fetch(ctx, &engine.FetchRequest{URL: job.ListingURL})
	if err != nil {
		return nil, err
	}

	result, err := o.extractor.Run(&extract.RawContent{
		URL:        job.ListingURL,
		FinalURL:   page.FinalURL,
		HTML:       page.HTML,
		StatusCode: page.StatusCode,
		Engine:     page.EngineName,
		FetchedAt:  o.now(),
	})
	if err != nil {
		return nil, err
	}
	if o.cfg.RetryEmptyResults && len(result.Photos) == 0 {
		return nil, errEmptyResult
	}
	return result, nil
}

// finish records the outcome of the running attempt of job id.
func (o *Orchestrator) finish(id string, result *models.ExtractionResult, attemptErr error) {
	ev := event{kind: evSuccess, result: result}
	if attemptErr != nil {
		ev = event{kind: evFailure, err: attemptErr}
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	job, err := o.store.Update(ctx, id, func(j *models.ScrapeJob) error {
		return transition(j, ev, o.backoff, o.now())
	})
	if err != nil {
		slog.Error("failed to record attempt outcome", "job_id", id, "error", err)
		return
	}

	switch job.Status {
	case models.JobSucceeded:
		metrics.AttemptsTotal.WithLabelValues("succeeded").Inc()
		metrics.PhotosExtracted.Observe(float64(len(job.Result.Photos)))
		slog.Info("job succeeded", "job_id", id, "attempt", job.Attempt, "photos", len(job.Result.Photos))
	case models.JobRetrying:
		metrics.AttemptsTotal.WithLabelValues(string(job.FailureKind)).Inc()
		slog.Warn("attempt failed, retrying", "job_id", id, "attempt", job.Attempt,
			"next_retry_at", *job.NextRetryAt, "error", attemptErr)
		o.schedule(id, *job.NextRetryAt)
	case models.JobFailed:
		metrics.AttemptsTotal.WithLabelValues(string(job.FailureKind)).Inc()
		if errors.Is(attemptErr, extract.ErrMergeInvariant) {
			slog.Error("merge invariant violated", "job_id", id, "url", job.ListingURL, "error", attemptErr)
		}
		slog.Warn("job failed", "job_id", id, "attempt", job.Attempt,
			"failure_kind", job.FailureKind, "error", attemptErr)
	}

	if job.Status.Terminal() {
		metrics.ActiveJobs.Dec()
		metrics.JobsFinished.WithLabelValues(string(job.Status), string(job.FailureKind)).Inc()
		if o.notifier != nil {
			o.notifier.Notify(ctx, Snapshot(job))
		}
	}
}

// sweepLoop removes finished jobs past retention.
func (o *Orchestrator) sweepLoop() {
	defer o.wg.Done()
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-o.ctx.Done():
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			n, err := o.store.DeleteFinishedBefore(ctx, o.now().Add(-o.cfg.Retention))
			cancel()
			if err != nil {
				slog.Warn("job sweep failed", "error", err)
			} else if n > 0 {
				slog.Info("swept finished jobs", "count", n)
			}
		}
	}
}
