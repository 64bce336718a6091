package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/use-agent/stayscan/models"
)

// pollInterval is how often scrape_listing checks job status.
const pollInterval = 2 * time.Second

func main() {
	apiURL := os.Getenv("STAYSCAN_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("STAYSCAN_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "STAYSCAN_API_KEY is required")
		os.Exit(1)
	}

	c := &client{
		http:   &http.Client{Timeout: 30 * time.Second},
		apiURL: strings.TrimRight(apiURL, "/"),
		apiKey: apiKey,
	}

	s := server.NewMCPServer(
		"stayscan",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	submitTool := mcp.NewTool("submit_listing",
		mcp.WithDescription("Queue a vacation-rental listing page for scraping and return the job id. Submitting a listing that is already being scraped returns the existing job."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The listing URL, e.g. https://www.airbnb.com/rooms/12345"),
		),
	)
	s.AddTool(submitTool, handleSubmit(c))

	statusTool := mcp.NewTool("get_scrape_status",
		mcp.WithDescription("Get the status of a scrape job, including photos and listing details once it has succeeded."),
		mcp.WithString("job_id",
			mcp.Required(),
			mcp.Description("The job id returned by submit_listing"),
		),
	)
	s.AddTool(statusTool, handleStatus(c))

	scrapeTool := mcp.NewTool("scrape_listing",
		mcp.WithDescription("Scrape a listing and wait for the result: photos, title, description, amenities, rooms, location and specifications."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The listing URL"),
		),
		mcp.WithNumber("wait_seconds",
			mcp.Description("How long to wait for the job to finish (default: 120)"),
		),
	)
	s.AddTool(scrapeTool, handleScrape(c))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// client talks to the stayscan HTTP API.
type client struct {
	http   *http.Client
	apiURL string
	apiKey string
}

func (c *client) do(ctx context.Context, method, path string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parse response (HTTP %d): %w", resp.StatusCode, err)
	}
	return nil
}

func (c *client) submit(ctx context.Context, url string) (*models.SubmitResponse, error) {
	var resp models.SubmitResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/scrape", models.ScrapeRequest{URL: url}, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return &resp, fmt.Errorf("%s", describeError(resp.Error, resp.Validation.Errors))
	}
	return &resp, nil
}

func (c *client) status(ctx context.Context, id string) (*models.JobSnapshot, error) {
	var resp models.JobResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/jobs/"+id, nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success || resp.Job == nil {
		return nil, fmt.Errorf("%s", describeError(resp.Error, nil))
	}
	return resp.Job, nil
}

// waitTerminal polls job id until it succeeds or fails, or ctx expires.
func (c *client) waitTerminal(ctx context.Context, id string) (*models.JobSnapshot, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		snap, err := c.status(ctx, id)
		if err != nil {
			return nil, err
		}
		if snap.Status.Terminal() {
			return snap, nil
		}
		select {
		case <-ctx.Done():
			return snap, ctx.Err()
		case <-ticker.C:
		}
	}
}

func handleSubmit(c *client) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}
		resp, err := c.submit(ctx, url)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "Job: %s\nStatus: %s\nURL: %s\n", resp.JobID, resp.Status, resp.Validation.CleanedURL)
		if !resp.Created {
			sb.WriteString("Joined an existing job for this listing.\n")
		}
		for _, w := range resp.Validation.Warnings {
			fmt.Fprintf(&sb, "Warning: %s\n", w)
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func handleStatus(c *client) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("job_id")
		if err != nil {
			return mcp.NewToolResultError("job_id is required"), nil
		}
		snap, err := c.status(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(formatSnapshot(snap)), nil
	}
}

func handleScrape(c *client) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}
		wait := time.Duration(request.GetFloat("wait_seconds", 120)) * time.Second

		resp, err := c.submit(ctx, url)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		waitCtx, cancel := context.WithTimeout(ctx, wait)
		defer cancel()
		snap, err := c.waitTerminal(waitCtx, resp.JobID)
		if err != nil {
			msg := fmt.Sprintf("job %s did not finish: %v", resp.JobID, err)
			if snap != nil {
				msg += "\n\n" + formatSnapshot(snap)
			}
			return mcp.NewToolResultError(msg), nil
		}
		if snap.Status == models.JobFailed {
			return mcp.NewToolResultError(formatSnapshot(snap)), nil
		}
		return mcp.NewToolResultText(formatSnapshot(snap)), nil
	}
}

// formatSnapshot renders a job as plain text for the model.
func formatSnapshot(s *models.JobSnapshot) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Job: %s\nStatus: %s\nAttempt: %d/%d\nURL: %s\n",
		s.ID, s.Status, s.Attempt, s.MaxAttempts, s.ListingURL)

	switch s.Status {
	case models.JobFailed, models.JobRetrying:
		fmt.Fprintf(&sb, "Last error (%s): %s\n", s.FailureKind, s.LastError)
		if s.NextRetryAt != nil {
			fmt.Fprintf(&sb, "Next retry: %s\n", s.NextRetryAt.Format(time.RFC3339))
		}
		fmt.Fprintf(&sb, "Can retry later: %t\n", s.CanRetryLater)
	}

	r := s.Result
	if r == nil {
		return sb.String()
	}

	fmt.Fprintf(&sb, "\nTitle: %s\n", r.Title)
	if r.Description != "" {
		fmt.Fprintf(&sb, "\n%s\n", r.Description)
	}

	fmt.Fprintf(&sb, "\n---\nPhotos (%d):\n", len(r.Photos))
	for _, p := range r.Photos {
		fmt.Fprintf(&sb, "- %s\n", p)
	}

	specs := r.Specifications
	if specs.MaxGuests > 0 || specs.Bedrooms > 0 {
		fmt.Fprintf(&sb, "\n---\n%s: %d guests, %d bedrooms, %d beds, %g baths\n",
			specs.PropertyType, specs.MaxGuests, specs.Bedrooms, specs.Beds, specs.Bathrooms)
	}
	if r.Location.Display != "" {
		fmt.Fprintf(&sb, "Location: %s\n", r.Location.Display)
	}

	if len(r.Amenities) > 0 {
		fmt.Fprintf(&sb, "\n---\nAmenities (%d):\n", len(r.Amenities))
		for _, a := range r.Amenities {
			fmt.Fprintf(&sb, "- %s\n", a.Name)
		}
	}
	return sb.String()
}

func describeError(e *models.ErrorDetail, validation []string) string {
	if len(validation) > 0 {
		return "invalid listing URL: " + strings.Join(validation, "; ")
	}
	if e != nil {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return "request failed"
}
