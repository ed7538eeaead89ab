package sso

import "strings"

// defaultRedirectPath is where a login lands when the requested return path
// fails hygiene or the allow-list.
const defaultRedirectPath = "/wp-admin/"

// PathSanitizer turns a token-supplied return path into a safe same-site
// redirect target. The sanitizer never rejects a login; an unusable path
// just falls back to the default landing page.
type PathSanitizer struct{}

// Sanitize applies hygiene first, then the allow-list.
//
// Hygiene refuses anything that is not rooted at "/" or that starts with
// "//" (a protocol-relative URL, which browsers resolve off-site). With an
// empty allow-list any path passing hygiene is accepted; otherwise the path
// must exactly match an entry or live under one treated as a directory
// prefix.
func (PathSanitizer) Sanitize(requested string, allowed []string) string {
	p := strings.TrimSpace(requested)
	if p == "" || !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") {
		return defaultRedirectPath
	}
	if len(allowed) == 0 {
		return p
	}
	for _, entry := range allowed {
		if p == entry {
			return p
		}
		prefix := strings.TrimRight(entry, "/") + "/"
		if strings.HasPrefix(p, prefix) {
			return p
		}
	}
	return defaultRedirectPath
}
