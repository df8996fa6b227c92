package livedom

import "net/url"

// resolveSameOrigin resolves an iframe src against the page base and
// reports whether the result shares its origin (scheme + host + port).
func resolveSameOrigin(base *url.URL, src string) (string, bool) {
	ref, err := url.Parse(src)
	if err != nil {
		return "", false
	}
	resolved := base.ResolveReference(ref)
	if resolved.Scheme != base.Scheme || resolved.Host != base.Host {
		return "", false
	}
	return resolved.String(), true
}
