package guard

import (
	"errors"
	"net"
	"strings"
	"testing"
)

func TestURL(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		{"https://example.com/pricing", false},
		{"http://example.com/docs", false},
		{"ftp://evil.com/data", true},      // bad scheme
		{"javascript:alert(1)", true},      // bad scheme
		{"file:///etc/passwd", true},       // bad scheme
		{"http://127.0.0.1/admin", true},   // loopback
		{"http://10.0.0.1/internal", true}, // private
		{"http://192.168.1.1/api", true},   // private
		{"http://[::1]/app", true},         // IPv6 loopback
		{"http://172.16.0.1/secret", true}, // private
	}
	for _, tt := range tests {
		err := URL(tt.url, false)
		if (err != nil) != tt.wantErr {
			t.Errorf("URL(%q, false) error=%v, wantErr=%v", tt.url, err, tt.wantErr)
		}
	}
}

func TestURL_AllowPrivate(t *testing.T) {
	for _, u := range []string{
		"http://127.0.0.1:8080/app",
		"http://localhost:3000/",
		"http://192.168.1.20/dashboard",
	} {
		if err := URL(u, true); err != nil {
			t.Errorf("URL(%q, true) error=%v, want nil", u, err)
		}
	}
	// Scheme checks still apply with private hosts allowed.
	if err := URL("file:///etc/passwd", true); !errors.Is(err, ErrUnsafeScheme) {
		t.Fatalf("URL(file, true) error=%v, want ErrUnsafeScheme", err)
	}
}

func TestPath(t *testing.T) {
	tests := []struct {
		base, input string
		wantErr     bool
	}{
		{"/tmp/shots", "page.png", false},
		{"/tmp/shots", "run1/page.png", false},
		{"/tmp/shots", "../etc/passwd", true},
		{"/tmp/shots", "a/../b", true},
		{"/tmp/shots", "a/../../outside", true},
		{"/tmp/shots", "report_2024-01.md", false},
	}
	for _, tt := range tests {
		_, err := Path(tt.base, tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("Path(%q, %q) error=%v, wantErr=%v", tt.base, tt.input, err, tt.wantErr)
		}
	}
}

func TestMarkerClass(t *testing.T) {
	for _, s := range []string{"hl", "audit-markers", "pass_2", "Overlay-1"} {
		if err := MarkerClass(s); err != nil {
			t.Errorf("MarkerClass(%q) error=%v, want nil", s, err)
		}
	}
	bad := []string{
		"",
		"9lives",            // leading digit
		"has space",         // whitespace
		"a.b",               // selector metacharacter
		"x') || alert(1)",   // script injection attempt
		"div>span",          // combinator
		strings.Repeat("a", 129),
	}
	for _, s := range bad {
		if err := MarkerClass(s); !errors.Is(err, ErrMarkerClass) {
			t.Errorf("MarkerClass(%q) error=%v, want ErrMarkerClass", s, err)
		}
	}
}

func TestIsPrivateIP(t *testing.T) {
	tests := []struct {
		ip      string
		private bool
	}{
		{"127.0.0.1", true},
		{"10.0.0.1", true},
		{"172.16.0.1", true},
		{"192.168.0.1", true},
		{"169.254.1.1", true},
		{"8.8.8.8", false},
		{"1.1.1.1", false},
		{"::1", true},
	}
	for _, tt := range tests {
		ip := net.ParseIP(tt.ip)
		if ip == nil {
			t.Fatalf("failed to parse IP %q", tt.ip)
		}
		if got := isPrivateIP(ip); got != tt.private {
			t.Errorf("isPrivateIP(%s) = %v, want %v", tt.ip, got, tt.private)
		}
	}
}
