package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Scraper   ScraperConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Log       LogConfig
	Engine    EngineConfig
	Jobs      JobsConfig
	Store     StoreConfig
	Webhook   WebhookConfig
	Listing   ListingConfig
}

// EngineConfig controls how listing pages are fetched.
type EngineConfig struct {
	// FetchMode selects the fetcher: "auto", "http", "browser" or "fixture".
	FetchMode string // default: "auto"

	// EscalationDelays is the staged start delay for each engine tier in auto mode.
	EscalationDelays []time.Duration // default: [0s, 3s, 8s]

	// HTTPTimeout is the deadline for the pure HTTP engine.
	HTTPTimeout time.Duration // default: 10s

	// DomainMemoryTTL is how long a winning engine is remembered per host.
	DomainMemoryTTL time.Duration // default: 6h

	// FixtureDir holds saved listing pages served by the fixture fetcher.
	FixtureDir string
}

// JobsConfig controls the scrape job orchestrator.
type JobsConfig struct {
	// MaxAttempts is the total number of attempts per job, including the first.
	MaxAttempts int // default: 3

	// BaseDelay is the first retry delay; later retries double it.
	BaseDelay time.Duration // default: 2s

	// MaxDelay caps the retry delay.
	MaxDelay time.Duration // default: 60s

	// Workers is the number of concurrent scrape attempts.
	Workers int // default: 4

	// AttemptTimeout bounds a single fetch-and-extract attempt.
	AttemptTimeout time.Duration // default: 45s

	// FetchRPS limits outbound listing fetches per second.
	FetchRPS float64 // default: 1

	// FetchBurst is the burst allowance for outbound fetches.
	FetchBurst int // default: 2

	// RetryEmptyResults treats a page with zero photos as a transient failure.
	RetryEmptyResults bool // default: false

	// Retention is how long finished jobs are kept.
	Retention time.Duration // default: 24h
}

// StoreConfig selects the job store backend.
type StoreConfig struct {
	// Backend is "memory" or "redis".
	Backend string // default: "memory"

	// RedisURL is used when Backend is "redis".
	RedisURL string // default: "redis://localhost:6379/0"

	// KeyPrefix namespaces job keys in Redis.
	KeyPrefix string // default: "stayscan"
}

// WebhookConfig controls job completion callbacks.
type WebhookConfig struct {
	// URL receives scrape.succeeded and scrape.failed events. Empty disables.
	URL string

	// Secret signs payloads with HMAC-SHA256.
	Secret string
}

// ListingConfig describes the listing platform.
type ListingConfig struct {
	// HostPattern is the regular expression a listing host must match.
	HostPattern string

	// BaseURL resolves root-relative image paths.
	BaseURL string // default: "https://www.airbnb.com"
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Enabled launches Chromium at startup. Required for "auto" and "browser" fetch modes.
	Enabled bool // default: true

	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// MaxPages is the page pool capacity (max concurrent tabs).
	MaxPages int // default: 4

	// DefaultProxy is the default proxy URL for all requests.
	DefaultProxy string

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string
}

// ScraperConfig controls browser page behavior.
type ScraperConfig struct {
	// NavigationTimeout is the max time for page.Navigate alone.
	NavigationTimeout time.Duration // default: 20s

	// ScrollPasses is how many viewport scrolls trigger lazy-loaded photos.
	ScrollPasses int // default: 6

	// BlockedResourceTypes lists resource types to block.
	// Images are not blocked: lazy loaders only swap in real URLs once requested.
	// default: ["Stylesheet", "Font", "Media"]
	BlockedResourceTypes []string
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: true

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 5

	// Burst is the maximum burst size per API key.
	Burst int // default: 10
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// DefaultHostPattern matches airbnb.com and its regional domains.
const DefaultHostPattern = `^(www\.|[a-z]{2}\.)?airbnb\.(com|[a-z]{2}|co\.[a-z]{2}|com\.[a-z]{2})$`

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("STAYSCAN_HOST", "0.0.0.0"),
			Port: envIntOr("STAYSCAN_PORT", 8080),
			Mode: envOr("STAYSCAN_MODE", "release"),
		},
		Browser: BrowserConfig{
			Enabled:      envBoolOr("STAYSCAN_BROWSER", true),
			Headless:     envBoolOr("STAYSCAN_HEADLESS", true),
			MaxPages:     envIntOr("STAYSCAN_MAX_PAGES", 4),
			DefaultProxy: os.Getenv("STAYSCAN_PROXY"),
			NoSandbox:    envBoolOr("STAYSCAN_NO_SANDBOX", false),
			BrowserBin:   os.Getenv("STAYSCAN_BROWSER_BIN"),
		},
		Scraper: ScraperConfig{
			NavigationTimeout: envDurationOr("STAYSCAN_NAV_TIMEOUT", 20*time.Second),
			ScrollPasses:      envIntOr("STAYSCAN_SCROLL_PASSES", 6),
			BlockedResourceTypes: envSliceOr("STAYSCAN_BLOCKED_RESOURCES", []string{
				"Stylesheet", "Font", "Media",
			}),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("STAYSCAN_AUTH_ENABLED", true),
			APIKeys: envSliceOr("STAYSCAN_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("STAYSCAN_RATE_RPS", 5.0),
			Burst:             envIntOr("STAYSCAN_RATE_BURST", 10),
		},
		Log: LogConfig{
			Level:  envOr("STAYSCAN_LOG_LEVEL", "info"),
			Format: envOr("STAYSCAN_LOG_FORMAT", "json"),
		},
		Engine: EngineConfig{
			FetchMode:        envOr("STAYSCAN_FETCH_MODE", "auto"),
			EscalationDelays: envDurationSliceOr("STAYSCAN_ESCALATION_DELAYS", []time.Duration{0, 3 * time.Second, 8 * time.Second}),
			HTTPTimeout:      envDurationOr("STAYSCAN_HTTP_TIMEOUT", 10*time.Second),
			DomainMemoryTTL:  envDurationOr("STAYSCAN_DOMAIN_MEMORY_TTL", 6*time.Hour),
			FixtureDir:       os.Getenv("STAYSCAN_FIXTURE_DIR"),
		},
		Jobs: JobsConfig{
			MaxAttempts:       envIntOr("STAYSCAN_MAX_ATTEMPTS", 3),
			BaseDelay:         envDurationOr("STAYSCAN_RETRY_BASE_DELAY", 2*time.Second),
			MaxDelay:          envDurationOr("STAYSCAN_RETRY_MAX_DELAY", 60*time.Second),
			Workers:           envIntOr("STAYSCAN_WORKERS", 4),
			AttemptTimeout:    envDurationOr("STAYSCAN_ATTEMPT_TIMEOUT", 45*time.Second),
			FetchRPS:          envFloatOr("STAYSCAN_FETCH_RPS", 1.0),
			FetchBurst:        envIntOr("STAYSCAN_FETCH_BURST", 2),
			RetryEmptyResults: envBoolOr("STAYSCAN_RETRY_EMPTY", false),
			Retention:         envDurationOr("STAYSCAN_JOB_RETENTION", 24*time.Hour),
		},
		Store: StoreConfig{
			Backend:   envOr("STAYSCAN_STORE", "memory"),
			RedisURL:  envOr("STAYSCAN_REDIS_URL", "redis://localhost:6379/0"),
			KeyPrefix: envOr("STAYSCAN_REDIS_PREFIX", "stayscan"),
		},
		Webhook: WebhookConfig{
			URL:    os.Getenv("STAYSCAN_WEBHOOK_URL"),
			Secret: os.Getenv("STAYSCAN_WEBHOOK_SECRET"),
		},
		Listing: ListingConfig{
			HostPattern: envOr("STAYSCAN_HOST_PATTERN", DefaultHostPattern),
			BaseURL:     envOr("STAYSCAN_BASE_URL", "https://www.airbnb.com"),
		},
	}
}

func envDurationSliceOr(key string, fallback []time.Duration) []time.Duration {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]time.Duration, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				if d, err := time.ParseDuration(trimmed); err == nil {
					result = append(result, d)
				}
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
