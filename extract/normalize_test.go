package extract

import "testing"

func TestNormalizeImageURL(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		base string
		want string
	}{
		{"absolute", "https://a0.muscache.com/im/a.jpg", "", "https://a0.muscache.com/im/a.jpg"},
		{"quoted with spaces", `  "https://a0.muscache.com/im/a.jpg"  `, "", "https://a0.muscache.com/im/a.jpg"},
		{"single quoted", `'https://a0.muscache.com/im/a.jpg'`, "", "https://a0.muscache.com/im/a.jpg"},
		{"protocol relative", "//a0.muscache.com/im/a.jpg", "", "https://a0.muscache.com/im/a.jpg"},
		{"root relative default base", "/im/a.jpg", "", "https://www.airbnb.com/im/a.jpg"},
		{"root relative custom base", "/im/a.jpg", "https://www.airbnb.co.uk/rooms/1", "https://www.airbnb.co.uk/im/a.jpg"},
		{"path relative", "a.jpg", "", "https://www.airbnb.com/a.jpg"},
		{"html entity", "https://x.com/a.jpg?w=1&amp;h=2", "", "https://x.com/a.jpg?w=1&h=2"},
		{"json slash escape", `https:\/\/x.com\/a.jpg`, "", "https://x.com/a.jpg"},
		{"unicode slash escape", `https:\u002F\u002Fx.com\u002Fa.jpg`, "", "https://x.com/a.jpg"},
		{"unicode ampersand escape", `https://x.com/a.jpg?w=1\u0026h=2`, "", "https://x.com/a.jpg?w=1&h=2"},
		{"data uri untouched", "data:image/gif;base64,R0lG", "", "data:image/gif;base64,R0lG"},
		{"empty", "   ", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeImageURL(tt.raw, tt.base); got != tt.want {
				t.Errorf("NormalizeImageURL(%q, %q) = %q, want %q", tt.raw, tt.base, got, tt.want)
			}
		})
	}
}

func TestIsValidImageURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://a0.muscache.com/im/pictures/abc.jpeg?im_w=720", true},
		{"https://a0.muscache.com/im/pictures/abc.JPG", true},
		{"http://x.com/a.png", true},
		{"https://x.com/a.webp", true},
		{"https://x.com/a.avif", true},
		{"https://x.com/a.gif", true},
		{"https://x.com/a.jpg#frag", true},
		{"https://a0.muscache.com/favicon.png", false},
		{"https://a0.muscache.com/airbnb/static/spinner.gif", false},
		{"https://x.com/1x1.gif", false},
		{"https://x.com/tracking/pixel.png", false},
		{"https://x.com/brand/logo-white.png", false},
		{"https://x.com/img/placeholder.jpg", false},
		{"https://x.com/photo.svg", false},
		{"https://x.com/photo", false},
		{"ftp://x.com/a.jpg", false},
		{"data:image/png;base64,iVBOR.png", false},
		{"/relative/a.jpg", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsValidImageURL(tt.url); got != tt.want {
			t.Errorf("IsValidImageURL(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestFingerprint(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://X.com/A.jpg?w=200", "https://x.com/a.jpg"},
		{"https://x.com/a.jpg#top", "https://x.com/a.jpg"},
		{"https://x.com/a.jpg", "https://x.com/a.jpg"},
	}
	for _, tt := range tests {
		if got := Fingerprint(tt.url); got != tt.want {
			t.Errorf("Fingerprint(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
	if Fingerprint("https://x.com/a.jpg?w=1") != Fingerprint("https://x.com/A.JPG?w=2") {
		t.Error("query and case variants should share a fingerprint")
	}
}
