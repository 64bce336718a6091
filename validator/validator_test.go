package validator

import (
	"strings"
	"testing"
)

func TestValidateRejects(t *testing.T) {
	v := Default()
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"empty", "", "URL is required"},
		{"whitespace only", "   \t", "URL is required"},
		{"not a url", "not-a-url", "absolute"},
		{"relative path", "/rooms/123", "absolute"},
		{"ftp scheme", "ftp://www.airbnb.com/rooms/123", "unsupported scheme"},
		{"other host", "https://www.example.com/rooms/123", "not a supported listing site"},
		{"lookalike host", "https://airbnb.com.evil.io/rooms/123", "not a supported listing site"},
		{"search page", "https://www.airbnb.com/s/Paris/homes", "does not identify a single listing"},
		{"home page", "https://www.airbnb.com/", "does not identify a single listing"},
		{"credentials", "https://user:pw@www.airbnb.com/rooms/1", "credentials"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := v.Validate(tt.input)
			if out.IsValid {
				t.Fatalf("Validate(%q) IsValid = true, want false", tt.input)
			}
			if out.CleanedURL != "" {
				t.Errorf("CleanedURL = %q, want empty", out.CleanedURL)
			}
			if len(out.Errors) == 0 {
				t.Fatal("expected at least one error")
			}
			if !strings.Contains(out.Errors[0], tt.wantErr) {
				t.Errorf("Errors[0] = %q, want it to contain %q", out.Errors[0], tt.wantErr)
			}
		})
	}
}

func TestValidateNotAURLHasSingleError(t *testing.T) {
	out := Default().Validate("not-a-url")
	if len(out.Errors) != 1 {
		t.Errorf("len(Errors) = %d, want 1: %v", len(out.Errors), out.Errors)
	}
}

func TestValidateCleans(t *testing.T) {
	v := Default()
	tests := []struct {
		name         string
		input        string
		wantURL      string
		wantWarnings int
	}{
		{
			name:    "already canonical",
			input:   "https://www.airbnb.com/rooms/12345",
			wantURL: "https://www.airbnb.com/rooms/12345",
		},
		{
			name:         "tracking and fragment",
			input:        "https://www.airbnb.com/rooms/12345?utm_source=x&adults=2&source_impression_id=p3#photos",
			wantURL:      "https://www.airbnb.com/rooms/12345?adults=2",
			wantWarnings: 3,
		},
		{
			name:         "uppercase host and trailing slash",
			input:        "https://WWW.Airbnb.COM/rooms/12345/",
			wantURL:      "https://www.airbnb.com/rooms/12345",
			wantWarnings: 2,
		},
		{
			name:         "http upgraded",
			input:        "http://airbnb.co.uk/rooms/plus/987",
			wantURL:      "https://airbnb.co.uk/rooms/plus/987",
			wantWarnings: 1,
		},
		{
			name:         "regional subdomain with spaces",
			input:        "  https://fr.airbnb.com/h/cozy-loft ",
			wantURL:      "https://fr.airbnb.com/h/cozy-loft",
			wantWarnings: 1,
		},
		{
			name:    "keeps meaningful params in order",
			input:   "https://www.airbnb.com/rooms/1?check_in=2026-01-02&check_out=2026-01-05",
			wantURL: "https://www.airbnb.com/rooms/1?check_in=2026-01-02&check_out=2026-01-05",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := v.Validate(tt.input)
			if !out.IsValid {
				t.Fatalf("Validate(%q) invalid: %v", tt.input, out.Errors)
			}
			if out.CleanedURL != tt.wantURL {
				t.Errorf("CleanedURL = %q, want %q", out.CleanedURL, tt.wantURL)
			}
			if len(out.Warnings) != tt.wantWarnings {
				t.Errorf("len(Warnings) = %d, want %d: %v", len(out.Warnings), tt.wantWarnings, out.Warnings)
			}
		})
	}
}

func TestValidateIdempotent(t *testing.T) {
	v := Default()
	inputs := []string{
		"https://www.airbnb.com/rooms/12345?utm_campaign=a&adults=2#x",
		"http://WWW.AIRBNB.COM/rooms/12345/",
		"https://www.airbnb.com:443/rooms/12345?",
		"https://www.airbnb.de/rooms/55?fbclid=abc",
	}
	for _, in := range inputs {
		first := v.Validate(in)
		if !first.IsValid {
			t.Fatalf("Validate(%q) invalid: %v", in, first.Errors)
		}
		second := v.Validate(first.CleanedURL)
		if !second.IsValid {
			t.Errorf("re-validate %q invalid: %v", first.CleanedURL, second.Errors)
		}
		if second.CleanedURL != first.CleanedURL {
			t.Errorf("re-validate changed URL: %q -> %q", first.CleanedURL, second.CleanedURL)
		}
		if len(second.Warnings) != 0 {
			t.Errorf("re-validate %q produced warnings: %v", first.CleanedURL, second.Warnings)
		}
	}
}

func TestNewRejectsBadPattern(t *testing.T) {
	if _, err := New("("); err == nil {
		t.Error("expected error for invalid pattern")
	}
}

func TestIsListingPath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/rooms/12345", true},
		{"/rooms/12345/", true},
		{"/rooms/plus/987", true},
		{"/luxury/listing/55", true},
		{"/h/cozy-cabin", true},
		{"/", false},
		{"/s/Asheville/homes", false},
		{"/rooms/abc", false},
		{"/login", false},
	}
	for _, tt := range tests {
		if got := IsListingPath(tt.path); got != tt.want {
			t.Errorf("IsListingPath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
