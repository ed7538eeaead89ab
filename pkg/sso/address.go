package sso

import (
	"net"
	"net/http"
	"strings"
)

// ClientAddressResolver determines the originating client address for rate
// limiting. Forwarding headers are consulted in trust order: the CDN header
// first, then the first hop of X-Forwarded-For, then the socket address.
// The result is sanitized to IP-address characters so header garbage can
// never smuggle arbitrary bytes into store keys or logs.
type ClientAddressResolver struct{}

// Resolve returns the best-effort client IP for r. It always returns a
// non-empty string; "unknown" stands in when nothing usable is present so
// rate limiting still has a bucket to count against.
func (ClientAddressResolver) Resolve(r *http.Request) string {
	if ip := sanitizeAddress(r.Header.Get("CF-Connecting-IP")); ip != "" {
		return ip
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := sanitizeAddress(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if ip := sanitizeAddress(host); ip != "" {
		return ip
	}
	return "unknown"
}

// sanitizeAddress keeps only characters that can appear in an IPv4 or IPv6
// address.
func sanitizeAddress(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9',
			c >= 'a' && c <= 'f',
			c >= 'A' && c <= 'F',
			c == '.' || c == ':':
			b.WriteRune(c)
		}
	}
	return b.String()
}
