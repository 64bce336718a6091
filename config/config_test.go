package config

import (
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.Engine.FetchMode != "auto" {
		t.Errorf("FetchMode = %q, want auto", cfg.Engine.FetchMode)
	}
	if cfg.Jobs.MaxAttempts != 3 || cfg.Jobs.BaseDelay != 2*time.Second || cfg.Jobs.MaxDelay != time.Minute {
		t.Errorf("Jobs = %+v", cfg.Jobs)
	}
	if cfg.Store.Backend != "memory" {
		t.Errorf("Store.Backend = %q, want memory", cfg.Store.Backend)
	}
	if cfg.Listing.HostPattern != DefaultHostPattern {
		t.Errorf("HostPattern = %q", cfg.Listing.HostPattern)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("STAYSCAN_MAX_ATTEMPTS", "5")
	t.Setenv("STAYSCAN_RETRY_BASE_DELAY", "250ms")
	t.Setenv("STAYSCAN_RETRY_EMPTY", "true")
	t.Setenv("STAYSCAN_API_KEYS", " a, b ,,c")
	t.Setenv("STAYSCAN_ESCALATION_DELAYS", "0s,1s,bogus,4s")
	t.Setenv("STAYSCAN_WORKERS", "not-a-number")

	cfg := Load()
	if cfg.Jobs.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d, want 5", cfg.Jobs.MaxAttempts)
	}
	if cfg.Jobs.BaseDelay != 250*time.Millisecond {
		t.Errorf("BaseDelay = %v, want 250ms", cfg.Jobs.BaseDelay)
	}
	if !cfg.Jobs.RetryEmptyResults {
		t.Error("RetryEmptyResults = false, want true")
	}
	if want := []string{"a", "b", "c"}; !reflect.DeepEqual(cfg.Auth.APIKeys, want) {
		t.Errorf("APIKeys = %v, want %v", cfg.Auth.APIKeys, want)
	}
	if want := []time.Duration{0, time.Second, 4 * time.Second}; !reflect.DeepEqual(cfg.Engine.EscalationDelays, want) {
		t.Errorf("EscalationDelays = %v, want %v", cfg.Engine.EscalationDelays, want)
	}
	if cfg.Jobs.Workers != 4 {
		t.Errorf("Workers = %d, want fallback 4", cfg.Jobs.Workers)
	}
}
