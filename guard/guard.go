// Package guard validates the inputs domlens forwards to browsers, HTTP
// fetches, selectors, and the filesystem: navigation URLs, marker classes,
// and output paths. Everything here sees caller- or agent-supplied data.
package guard

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"path/filepath"
	"strings"
)

// ErrPathTraversal is returned when a user-supplied path escapes its base.
var ErrPathTraversal = errors.New("guard: path traversal detected")

// ErrPrivateHost is returned when a URL targets a private or loopback
// address and private hosts are not allowed.
var ErrPrivateHost = errors.New("guard: URL targets a private or loopback address")

// ErrUnsafeScheme is returned when a URL uses a non-HTTP(S) scheme.
var ErrUnsafeScheme = errors.New("guard: only http and https schemes are allowed")

// ErrMarkerClass is returned for marker classes that cannot be embedded in
// a selector or script safely.
var ErrMarkerClass = errors.New("guard: invalid marker class")

// URL checks that rawURL uses http/https and has a hostname. With
// allowPrivate false it additionally rejects URLs resolving to private or
// loopback addresses; inspection of local dev servers needs it true.
// DNS resolution is performed to catch internal hostnames.
func URL(rawURL string, allowPrivate bool) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("guard: invalid URL: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return ErrUnsafeScheme
	}
	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("guard: URL has no host")
	}
	if allowPrivate {
		return nil
	}

	if ip := net.ParseIP(host); ip != nil {
		if isPrivateIP(ip) {
			return ErrPrivateHost
		}
		return nil
	}

	addrs, err := net.LookupHost(host)
	if err != nil {
		// DNS failure: let it through, the connection attempt will fail
		// with a clearer error if the host really is unreachable.
		return nil
	}
	for _, a := range addrs {
		if ip := net.ParseIP(a); ip != nil && isPrivateIP(ip) {
			return ErrPrivateHost
		}
	}
	return nil
}

// Path validates that joining base and userInput does not escape base.
// Returns the cleaned absolute path or ErrPathTraversal.
func Path(base, userInput string) (string, error) {
	if strings.Contains(userInput, "..") {
		return "", ErrPathTraversal
	}
	cleaned := filepath.Join(base, filepath.Clean("/"+userInput))
	if !strings.HasPrefix(cleaned, filepath.Clean(base)+string(filepath.Separator)) &&
		cleaned != filepath.Clean(base) {
		return "", ErrPathTraversal
	}
	return cleaned, nil
}

// MarkerClass checks that a marker class is a plain CSS class name: it is
// concatenated into "div.<class>" selectors and evaluated scripts, so
// anything beyond identifier characters is rejected.
func MarkerClass(s string) error {
	if s == "" {
		return fmt.Errorf("%w: empty", ErrMarkerClass)
	}
	if len(s) > 128 {
		return fmt.Errorf("%w: too long (max 128)", ErrMarkerClass)
	}
	if s[0] >= '0' && s[0] <= '9' {
		return fmt.Errorf("%w: %q starts with a digit", ErrMarkerClass, s)
	}
	for _, r := range s {
		if !isClassChar(r) {
			return fmt.Errorf("%w: character %q in %q", ErrMarkerClass, r, s)
		}
	}
	return nil
}

func isClassChar(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') || r == '_' || r == '-'
}

func isPrivateIP(ip net.IP) bool {
	if ip.IsLoopback() {
		return true
	}
	if ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return true
	}
	privateRanges := []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"fc00::/7",
		"169.254.0.0/16",
		"::1/128",
	}
	for _, pr := range privateRanges {
		_, cidr, err := net.ParseCIDR(pr)
		if err != nil {
			continue
		}
		if cidr.Contains(ip) {
			return true
		}
	}
	return false
}
