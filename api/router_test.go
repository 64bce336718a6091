package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/stayscan/cleaner"
	"github.com/use-agent/stayscan/config"
	"github.com/use-agent/stayscan/engine"
	"github.com/use-agent/stayscan/extract"
	"github.com/use-agent/stayscan/jobs"
	"github.com/use-agent/stayscan/models"
	"github.com/use-agent/stayscan/validator"
)

const testKey = "test-key"

// gatedEngine serves the listing fixture once release is closed.
type gatedEngine struct {
	html    string
	release chan struct{}
}

func (e *gatedEngine) Name() string { return "gated" }

func (e *gatedEngine) Fetch(ctx context.Context, req *engine.FetchRequest) (*engine.FetchResult, error) {
	select {
	case <-e.release:
	case <-ctx.Done():
		return nil, engine.Transient(e.Name(), "fetch cancelled", ctx.Err())
	}
	return &engine.FetchResult{HTML: e.html, StatusCode: 200, FinalURL: req.URL, EngineName: e.Name()}, nil
}

type testServer struct {
	router *gin.Engine
	gate   *gatedEngine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	html, err := os.ReadFile("../extract/testdata/listing.html")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}

	cfg := &config.Config{
		Server:    config.ServerConfig{Mode: gin.TestMode},
		Auth:      config.AuthConfig{Enabled: true, APIKeys: []string{testKey}},
		RateLimit: config.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
		Engine:    config.EngineConfig{FetchMode: "fixture"},
		Jobs: config.JobsConfig{
			MaxAttempts:    3,
			BaseDelay:      time.Millisecond,
			MaxDelay:       5 * time.Millisecond,
			Workers:        2,
			AttemptTimeout: 5 * time.Second,
		},
	}

	gate := &gatedEngine{html: string(html), release: make(chan struct{})}
	store := jobs.NewMemoryStore()
	v := validator.Default()
	orch := jobs.NewOrchestrator(cfg.Jobs, store, v, gate, extract.NewExtractor("", cleaner.NewCleaner()))
	if err := orch.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		select {
		case <-gate.release:
		default:
			close(gate.release)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		orch.Stop(ctx)
	})

	return &testServer{
		router: NewRouter(cfg, orch, jobs.NewReporter(store), v, nil, time.Now()),
		gate:   gate,
	}
}

func (s *testServer) do(t *testing.T, method, path, body string, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if authed {
		req.Header.Set("X-API-Key", testKey)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("invalid JSON %q: %v", w.Body.String(), err)
	}
	return v
}

func TestScrape_AcceptsAndJoinsActiveJob(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/scrape", `{"url":"https://www.airbnb.com/rooms/12345?utm_source=mail"}`, true)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", w.Code, w.Body.String())
	}
	first := decode[models.SubmitResponse](t, w)
	if !first.Success || !first.Created || first.JobID == "" {
		t.Fatalf("first submit = %+v", first)
	}
	if first.Validation.CleanedURL != "https://www.airbnb.com/rooms/12345" {
		t.Errorf("CleanedURL = %q", first.Validation.CleanedURL)
	}

	w = s.do(t, http.MethodPost, "/api/v1/scrape", `{"url":"https://www.airbnb.com/rooms/12345"}`, true)
	second := decode[models.SubmitResponse](t, w)
	if second.Created {
		t.Error("second submit created a new job while the first is active")
	}
	if second.JobID != first.JobID {
		t.Errorf("JobID = %q, want %q", second.JobID, first.JobID)
	}
}

func TestScrape_RejectsInvalidURL(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{"other host", `{"url":"https://www.example.com/rooms/1"}`, models.ErrCodeInvalidInput},
		{"search page", `{"url":"https://www.airbnb.com/s/Paris/homes"}`, models.ErrCodeInvalidInput},
		{"missing url", `{}`, models.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/api/v1/scrape", tt.body, true)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
			resp := decode[models.SubmitResponse](t, w)
			if resp.Success || resp.JobID != "" {
				t.Errorf("invalid URL produced a job: %+v", resp)
			}
			if resp.Validation.IsValid || len(resp.Validation.Errors) == 0 {
				t.Errorf("Validation = %+v, want errors", resp.Validation)
			}
			if resp.Error == nil || resp.Error.Code != tt.wantCode {
				t.Errorf("Error = %+v, want code %s", resp.Error, tt.wantCode)
			}
		})
	}
}

func TestScrape_MalformedBody(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodPost, "/api/v1/scrape", `{"url":`, true)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	resp := decode[models.ErrorResponse](t, w)
	if resp.Error == nil || resp.Error.Code != models.ErrCodeInvalidInput {
		t.Errorf("Error = %+v", resp.Error)
	}
}

func TestGetJob_ReportsResult(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/scrape", `{"url":"https://www.airbnb.com/rooms/12345"}`, true)
	id := decode[models.SubmitResponse](t, w).JobID

	w = s.do(t, http.MethodGet, "/api/v1/jobs/"+id, "", true)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if job := decode[models.JobResponse](t, w).Job; job == nil || job.Status.Terminal() {
		t.Fatalf("job finished before the fetch was released: %+v", job)
	}

	close(s.gate.release)

	deadline := time.Now().Add(5 * time.Second)
	var job *models.JobSnapshot
	for time.Now().Before(deadline) {
		w = s.do(t, http.MethodGet, "/api/v1/jobs/"+id, "", true)
		job = decode[models.JobResponse](t, w).Job
		if job != nil && job.Status.Terminal() {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if job == nil || job.Status != models.JobSucceeded {
		t.Fatalf("job = %+v, want succeeded", job)
	}
	if job.Result == nil || len(job.Result.Photos) == 0 {
		t.Errorf("Result = %+v, want photos", job.Result)
	}
	if job.CanRetryLater {
		t.Error("CanRetryLater = true for a succeeded job")
	}
}

func TestGetJob_NotFound(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/api/v1/jobs/does-not-exist", "", true)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	resp := decode[models.ErrorResponse](t, w)
	if resp.Error == nil || resp.Error.Code != models.ErrCodeNotFound {
		t.Errorf("Error = %+v", resp.Error)
	}
}

func TestValidate(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodPost, "/api/v1/validate", `{"url":"http://WWW.airbnb.com/rooms/777/#photos"}`, true)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	out := decode[models.ValidationOutcome](t, w)
	if !out.IsValid || out.CleanedURL != "https://www.airbnb.com/rooms/777" {
		t.Errorf("outcome = %+v", out)
	}
	if len(out.Warnings) == 0 {
		t.Error("expected warnings for the rewritten URL")
	}
}

func TestAuth(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		header string
		value  string
		want   int
	}{
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong key", "X-API-Key", "nope", http.StatusUnauthorized},
		{"x-api-key", "X-API-Key", testKey, http.StatusOK},
		{"bearer", "Authorization", "Bearer " + testKey, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/validate", bytes.NewBufferString(`{"url":"https://www.airbnb.com/rooms/1"}`))
			req.Header.Set("Content-Type", "application/json")
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			w := httptest.NewRecorder()
			s.router.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestHealth_NoAuth(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/api/v1/health", "", false)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	h := decode[models.HealthResponse](t, w)
	if h.Status != "healthy" {
		t.Errorf("Status = %q, want healthy", h.Status)
	}
	if h.FetchMode != "fixture" || h.Jobs.Workers != 2 {
		t.Errorf("health = %+v", h)
	}
	if h.PoolStats != nil {
		t.Errorf("PoolStats = %+v, want nil without a browser", h.PoolStats)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodGet, "/api/v1/health", "", false)

	w := s.do(t, http.MethodGet, "/metrics", "", false)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "stayscan_requests_total") {
		t.Error("request counter missing from /metrics output")
	}
}
