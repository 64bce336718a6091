package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/use-agent/stayscan/models"
)

// CLI flags
var (
	apiURL  = flag.String("api-url", "http://localhost:8080", "stayscan API base URL")
	apiKey  = flag.String("api-key", "", "API key for authenticated requests")
	runs    = flag.Int("runs", 3, "Number of runs per URL for averaging")
	wait    = flag.Duration("wait", 3*time.Minute, "Maximum time to wait for one job")
	output  = flag.String("output", "benchmark-results.json", "JSON output file path")
	urlFile = flag.String("urls", "", "File with one listing URL per line (default: built-in set)")
)

// Built-in listings covering the page shapes the extractor handles.
var defaultURLs = []string{
	"https://www.airbnb.com/rooms/12345678",
	"https://www.airbnb.co.uk/rooms/23456789",
	"https://www.airbnb.com/rooms/plus/34567890",
}

// --- Benchmark result types ---

type runResult struct {
	Run              int            `json:"run"`
	JobID            string         `json:"job_id"`
	Status           string         `json:"status"`
	TotalMs          int64          `json:"total_ms"`
	ProcessingMs     int64          `json:"processing_ms"`
	Attempts         int            `json:"attempts"`
	Photos           int            `json:"photos"`
	CountPerStrategy map[string]int `json:"count_per_strategy,omitempty"`
	HasTitle         bool           `json:"has_title"`
	Success          bool           `json:"success"`
	Error            string         `json:"error,omitempty"`
}

type urlAverages struct {
	TotalMs  float64 `json:"total_ms"`
	Attempts float64 `json:"attempts"`
	Photos   float64 `json:"photos"`
}

type urlResult struct {
	URL      string       `json:"url"`
	Runs     []runResult  `json:"runs"`
	Averages *urlAverages `json:"averages,omitempty"`
}

type benchmarkReport struct {
	Timestamp  string      `json:"timestamp"`
	APIURL     string      `json:"api_url"`
	RunsPerURL int         `json:"runs_per_url"`
	Results    []urlResult `json:"results"`
}

var client = &http.Client{Timeout: 30 * time.Second}

func main() {
	flag.Parse()

	urls, err := loadURLs(*urlFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading URL list: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("=== stayscan Benchmark Suite ===")
	fmt.Printf("API URL:   %s\n", *apiURL)
	fmt.Printf("Listings:  %d\n", len(urls))
	fmt.Printf("Runs/URL:  %d\n", *runs)
	fmt.Printf("Output:    %s\n", *output)
	fmt.Println()

	// Quick connectivity check.
	if err := checkAPI(*apiURL); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot reach API at %s: %v\n", *apiURL, err)
		fmt.Fprintf(os.Stderr, "Make sure stayscan is running\n")
		os.Exit(1)
	}

	report := benchmarkReport{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		APIURL:     *apiURL,
		RunsPerURL: *runs,
	}

	for _, u := range urls {
		fmt.Printf("Benchmarking %s ...\n", u)
		ur := urlResult{URL: u}

		for i := 1; i <= *runs; i++ {
			fmt.Printf("  Run %d/%d ... ", i, *runs)
			rr := benchmarkURL(u, i)
			if rr.Success {
				fmt.Printf("OK  %dms  %d photos  %d attempt(s)\n", rr.TotalMs, rr.Photos, rr.Attempts)
			} else {
				fmt.Printf("FAILED: %s\n", rr.Error)
			}
			ur.Runs = append(ur.Runs, rr)
		}

		ur.Averages = computeAverages(ur.Runs)
		report.Results = append(report.Results, ur)
		fmt.Println()
	}

	// Print summary table.
	printTable(report.Results)

	// Write JSON report.
	if err := writeJSON(*output, report); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing JSON output: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nDetailed results written to %s\n", *output)
}

func loadURLs(path string) ([]string, error) {
	if path == "" {
		return defaultURLs, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var urls []string
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" && !strings.HasPrefix(line, "#") {
			urls = append(urls, line)
		}
	}
	return urls, nil
}

func checkAPI(baseURL string) error {
	resp, err := client.Get(baseURL + "/api/v1/health")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// benchmarkURL submits one listing and polls its job until it finishes.
// Runs of the same URL are sequential, so each one creates a fresh job.
func benchmarkURL(url string, run int) runResult {
	rr := runResult{Run: run}
	start := time.Now()

	var sub models.SubmitResponse
	if err := call(http.MethodPost, "/api/v1/scrape", models.ScrapeRequest{URL: url}, &sub); err != nil {
		rr.Error = err.Error()
		return rr
	}
	if !sub.Success {
		rr.Error = "rejected: " + strings.Join(sub.Validation.Errors, "; ")
		return rr
	}
	rr.JobID = sub.JobID

	deadline := start.Add(*wait)
	for {
		var jr models.JobResponse
		if err := call(http.MethodGet, "/api/v1/jobs/"+sub.JobID, nil, &jr); err != nil {
			rr.Error = err.Error()
			return rr
		}
		if jr.Job == nil {
			rr.Error = "job disappeared"
			return rr
		}

		job := jr.Job
		rr.Status = string(job.Status)
		rr.Attempts = job.Attempt
		if job.Status.Terminal() {
			rr.TotalMs = time.Since(start).Milliseconds()
			if job.Status == models.JobFailed {
				rr.Error = fmt.Sprintf("%s: %s", job.FailureKind, job.LastError)
				return rr
			}
			if r := job.Result; r != nil {
				rr.Photos = len(r.Photos)
				rr.ProcessingMs = r.ProcessingTimeMs
				rr.CountPerStrategy = r.Stats.CountPerStrategy
				rr.HasTitle = r.Title != ""
			}
			rr.Success = true
			return rr
		}
		if time.Now().After(deadline) {
			rr.Error = fmt.Sprintf("still %s after %s", job.Status, *wait)
			return rr
		}
		time.Sleep(time.Second)
	}
}

func call(method, path string, payload, out any) error {
	var body *bytes.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal error: %v", err)
		}
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, *apiURL+path, body)
	if err != nil {
		return fmt.Errorf("request error: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if *apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+*apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode error (HTTP %d): %v", resp.StatusCode, err)
	}
	return nil
}

func computeAverages(runs []runResult) *urlAverages {
	var successCount int
	var avg urlAverages

	for _, r := range runs {
		if !r.Success {
			continue
		}
		successCount++
		avg.TotalMs += float64(r.TotalMs)
		avg.Attempts += float64(r.Attempts)
		avg.Photos += float64(r.Photos)
	}

	if successCount == 0 {
		return nil
	}

	n := float64(successCount)
	avg.TotalMs /= n
	avg.Attempts /= n
	avg.Photos /= n
	return &avg
}

func printTable(results []urlResult) {
	fmt.Println(strings.Repeat("─", 85))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "URL\tAvg Latency\tAvg Attempts\tAvg Photos\tSucceeded\n")
	fmt.Fprintf(w, "───\t───────────\t────────────\t──────────\t─────────\n")

	for _, r := range results {
		if r.Averages == nil {
			fmt.Fprintf(w, "%s\tFAILED\t-\t-\t0/%d\n", truncateURL(r.URL, 45), len(r.Runs))
			continue
		}
		fmt.Fprintf(w, "%s\t%dms\t%.1f\t%.1f\t%d/%d\n",
			truncateURL(r.URL, 45),
			int64(r.Averages.TotalMs),
			r.Averages.Attempts,
			r.Averages.Photos,
			succeeded(r.Runs), len(r.Runs),
		)
	}

	w.Flush()
	fmt.Println(strings.Repeat("─", 85))
}

func succeeded(runs []runResult) int {
	n := 0
	for _, r := range runs {
		if r.Success {
			n++
		}
	}
	return n
}

func truncateURL(u string, max int) string {
	if len(u) <= max {
		return u
	}
	return u[:max-3] + "..."
}

func writeJSON(path string, report benchmarkReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
