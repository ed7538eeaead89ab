package sso

import (
	"net"
	"strings"
	"time"
)

// clockSkew is the tolerance applied to iat and exp comparisons so modest
// clock drift between the identity application and this service does not
// bounce fresh tokens.
const clockSkew = 60 * time.Second

// ClaimsValidator checks decoded claims against the effective settings.
// It runs strictly after the token's jti has been burned.
type ClaimsValidator struct{}

// Validate returns nil when the claims are acceptable, otherwise the first
// applicable rejection. Checks run in a fixed order: temporal sanity,
// issuer, audience, site binding, then host binding. All value comparisons
// against configured strings are constant-time.
func (ClaimsValidator) Validate(c *Claims, settings Settings, requestHost string, now time.Time) *Rejection {
	if c.IssuedAt <= 0 || c.ExpiresAt <= 0 {
		return rejectWith(RejectInvalidClaims, "token is missing issued-at or expiry")
	}
	if time.Unix(c.IssuedAt, 0).After(now.Add(clockSkew)) {
		return rejectWith(RejectInvalidClaims, "token issued in the future")
	}
	if time.Unix(c.ExpiresAt, 0).Before(now.Add(-clockSkew)) {
		return reject(RejectExpired)
	}

	if settings.Issuer != "" && !secureCompare(c.Issuer, settings.Issuer) {
		return reject(RejectInvalidIssuer)
	}
	if settings.Audience != "" && !secureCompare(c.Audience, settings.Audience) {
		return reject(RejectInvalidAudience)
	}
	if settings.SiteID != "" && !secureCompare(c.SiteID, settings.SiteID) {
		return reject(RejectInvalidSiteID)
	}

	// A dotted audience names a hostname, binding the token to the exact
	// host it was minted for. Undotted audiences are opaque identifiers and
	// skip the check.
	aud := strings.ToLower(strings.TrimSpace(c.Audience))
	if strings.Contains(aud, ".") {
		host := strings.ToLower(stripPort(requestHost))
		if !secureCompare(aud, host) {
			return reject(RejectHostMismatch)
		}
	}
	return nil
}

func stripPort(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}
