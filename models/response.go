package models

// SubmitResponse is the response for POST /api/v1/scrape.
type SubmitResponse struct {
	// Success is false when the URL failed validation and no job exists.
	Success bool `json:"success"`

	// JobID identifies the job tracking this listing. Empty when Success is false.
	JobID string `json:"job_id,omitempty"`

	// Created is false when an active job for the same listing was reused.
	Created bool `json:"created"`

	// Status is the job status at submission time.
	Status JobStatus `json:"status,omitempty"`

	Validation ValidationOutcome `json:"validation"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// JobResponse is the response for GET /api/v1/jobs/:id.
type JobResponse struct {
	Success bool         `json:"success"`
	Job     *JobSnapshot `json:"job,omitempty"`
	Error   *ErrorDetail `json:"error,omitempty"`
}

// ErrorResponse is the body of any failed API call.
type ErrorResponse struct {
	Success bool         `json:"success"`
	Error   *ErrorDetail `json:"error"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status    string     `json:"status"` // "healthy" or "degraded"
	Uptime    string     `json:"uptime"`
	FetchMode string     `json:"fetch_mode"`
	PoolStats *PoolStats `json:"pool_stats,omitempty"`
	Jobs      JobStats   `json:"jobs"`
	Version   string     `json:"version"`
}

// PoolStats reports the state of the browser page pool.
type PoolStats struct {
	MaxPages    int `json:"max_pages"`
	ActivePages int `json:"active_pages"`
	BrowserPID  int `json:"browser_pid"`
}

// JobStats reports orchestrator load.
type JobStats struct {
	Active  int `json:"active"`
	Workers int `json:"workers"`
}
