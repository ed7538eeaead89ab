package sso

import "strings"

// Settings is the effective bridge configuration for a single request.
// It is the merge of operator-pinned static values and the mutable stored
// settings document, resolved once per request so a mid-flight settings
// change can never mix two configurations inside one login attempt.
type Settings struct {
	// Enabled gates the whole feature.
	Enabled bool

	// AppBaseURL is the base URL of the identity application that mints
	// tokens, used for server-to-server redemption.
	AppBaseURL string

	// SiteID is this installation's identifier as known to the identity
	// application. Tokens must carry it in their sid claim.
	SiteID string

	// Issuer and Audience are the exact values tokens must carry in iss
	// and aud.
	Issuer   string
	Audience string

	// SecretActive is the current HMAC signing secret. SecretPrevious, when
	// non-empty, is accepted as a fallback during rotation windows.
	SecretActive   string
	SecretPrevious string

	// AllowedRedirectPaths restricts post-login redirect targets. Empty
	// means any same-site path that survives hygiene checks.
	AllowedRedirectPaths []string

	// RequireManage requires the resolved user to hold the manage
	// capability in addition to baseline read.
	RequireManage bool

	// RequireRedemption turns on server-to-server token redemption against
	// the identity application before a token is honored.
	RequireRedemption bool

	// RedemptionAPIKey, when non-empty, is sent on redemption calls.
	RedemptionAPIKey string

	// RateLimitMax is the failed-attempt count at which a client address
	// locks out. RateLimitWindowSecs is the sliding lockout window.
	RateLimitMax        int
	RateLimitWindowSecs int

	// PenalizeIneligible counts eligibility failures against the rate
	// limit. Off by default, since scanners probing the endpoint with bad
	// methods would otherwise lock out shared NAT addresses.
	PenalizeIneligible bool
}

// Secrets returns the verification secrets in trial order, active first.
// Empty secrets are dropped.
func (s Settings) Secrets() []string {
	var out []string
	if s.SecretActive != "" {
		out = append(out, s.SecretActive)
	}
	if s.SecretPrevious != "" {
		out = append(out, s.SecretPrevious)
	}
	return out
}

// HasSecrets reports whether at least one verification secret is configured.
func (s Settings) HasSecrets() bool {
	return s.SecretActive != "" || s.SecretPrevious != ""
}

const (
	defaultRateLimitMax    = 5
	defaultRateLimitWindow = 300
	minRateLimitWindow     = 60
)

// Normalize clamps rate-limit values to sane defaults. A window below the
// minimum is treated as unset rather than honored, so a typo in stored
// settings can not reduce lockout to a trivially short window.
func (s Settings) Normalize() Settings {
	if s.RateLimitMax < 1 {
		s.RateLimitMax = defaultRateLimitMax
	}
	if s.RateLimitWindowSecs < minRateLimitWindow {
		s.RateLimitWindowSecs = defaultRateLimitWindow
	}
	return s
}

// ParseRedirectPaths splits a newline-delimited allow-list (the shape the
// admin settings screen stores) into clean entries. Blank lines, duplicates
// and entries that could escape the site (not rooted at "/", or
// protocol-relative "//") are dropped.
func ParseRedirectPaths(raw string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		p := strings.TrimSpace(line)
		if p == "" || !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// Claims is the decoded token payload. iat and exp are unix seconds; a zero
// value means the claim was absent.
type Claims struct {
	Issuer     string `json:"iss"`
	Audience   string `json:"aud"`
	SiteID     string `json:"sid"`
	Subject    string `json:"sub"`
	TokenID    string `json:"jti"`
	IssuedAt   int64  `json:"iat"`
	ExpiresAt  int64  `json:"exp"`
	ReturnPath string `json:"rp"`
}

// Capability is a coarse local permission.
type Capability string

const (
	// CapabilityRead is the baseline capability every signing-in user must
	// hold.
	CapabilityRead Capability = "read"
	// CapabilityManage marks administrative users. Required when
	// Settings.RequireManage is set.
	CapabilityManage Capability = "manage"
)

// LocalUser is a user record resolved from the local identity store.
type LocalUser struct {
	ID           int64
	Email        string
	Username     string
	Capabilities []Capability
}

// HasCapability reports whether the user holds the named capability.
func (u *LocalUser) HasCapability(c Capability) bool {
	for _, have := range u.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}
