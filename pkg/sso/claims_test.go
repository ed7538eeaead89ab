package sso

import (
	"testing"
	"time"
)

func validClaims(now time.Time) *Claims {
	return &Claims{
		Issuer:    testIssuer,
		Audience:  testAudience,
		SiteID:    testSiteID,
		Subject:   "alice@example.com",
		TokenID:   "jti-1",
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(5 * time.Minute).Unix(),
	}
}

func TestValidateAcceptsFreshClaims(t *testing.T) {
	var cv ClaimsValidator
	now := time.Now()

	if rej := cv.Validate(validClaims(now), testSettings(), testAudience, now); rej != nil {
		t.Fatalf("Validate rejected fresh claims: %v", rej)
	}
}

func TestValidateTemporalClaims(t *testing.T) {
	var cv ClaimsValidator
	now := time.Now()

	tests := []struct {
		name   string
		mutate func(*Claims)
		want   RejectCode
	}{
		{"missing iat", func(c *Claims) { c.IssuedAt = 0 }, RejectInvalidClaims},
		{"missing exp", func(c *Claims) { c.ExpiresAt = 0 }, RejectInvalidClaims},
		{"negative exp", func(c *Claims) { c.ExpiresAt = -1 }, RejectInvalidClaims},
		{"iat beyond skew", func(c *Claims) { c.IssuedAt = now.Add(61 * time.Second).Unix() }, RejectInvalidClaims},
		{"expired beyond skew", func(c *Claims) { c.ExpiresAt = now.Add(-61 * time.Second).Unix() }, RejectExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validClaims(now)
			tt.mutate(c)
			rej := cv.Validate(c, testSettings(), testAudience, now)
			if rej == nil {
				t.Fatal("Expected rejection")
			}
			if rej.Code != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, rej.Code)
			}
		})
	}
}

func TestValidateSkewTolerance(t *testing.T) {
	var cv ClaimsValidator
	now := time.Now()

	c := validClaims(now)
	c.IssuedAt = now.Add(59 * time.Second).Unix()
	if rej := cv.Validate(c, testSettings(), testAudience, now); rej != nil {
		t.Errorf("Expected iat within skew to be accepted, got %v", rej)
	}

	c = validClaims(now)
	c.ExpiresAt = now.Add(-59 * time.Second).Unix()
	if rej := cv.Validate(c, testSettings(), testAudience, now); rej != nil {
		t.Errorf("Expected exp within skew to be accepted, got %v", rej)
	}
}

func TestValidateBindingClaims(t *testing.T) {
	var cv ClaimsValidator
	now := time.Now()

	tests := []struct {
		name   string
		mutate func(*Claims)
		want   RejectCode
	}{
		{"wrong issuer", func(c *Claims) { c.Issuer = "https://evil.example.com" }, RejectInvalidIssuer},
		{"wrong audience", func(c *Claims) { c.Audience = "other.example.com" }, RejectInvalidAudience},
		{"wrong site", func(c *Claims) { c.SiteID = "site-999" }, RejectInvalidSiteID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validClaims(now)
			tt.mutate(c)
			rej := cv.Validate(c, testSettings(), testAudience, now)
			if rej == nil {
				t.Fatal("Expected rejection")
			}
			if rej.Code != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, rej.Code)
			}
		})
	}
}

func TestValidateHostBinding(t *testing.T) {
	var cv ClaimsValidator
	now := time.Now()

	// Dotted audience binds to the request host.
	rej := cv.Validate(validClaims(now), testSettings(), "attacker.example.net", now)
	if rej == nil || rej.Code != RejectHostMismatch {
		t.Fatalf("Expected host_mismatch, got %v", rej)
	}

	// Host comparison ignores case and port.
	if rej := cv.Validate(validClaims(now), testSettings(), "Blog.Example.Com:8443", now); rej != nil {
		t.Errorf("Expected case and port to be ignored, got %v", rej)
	}

	// An undotted audience is an opaque identifier; no host binding.
	settings := testSettings()
	settings.Audience = "opaque-aud"
	c := validClaims(now)
	c.Audience = "opaque-aud"
	if rej := cv.Validate(c, settings, "anything.example.net", now); rej != nil {
		t.Errorf("Expected undotted audience to skip host binding, got %v", rej)
	}
}

func TestValidateUnconfiguredValuesSkipChecks(t *testing.T) {
	var cv ClaimsValidator
	now := time.Now()

	settings := testSettings()
	settings.Issuer = ""
	settings.SiteID = ""

	c := validClaims(now)
	c.Issuer = "whoever"
	c.SiteID = "wherever"
	if rej := cv.Validate(c, settings, testAudience, now); rej != nil {
		t.Errorf("Expected unset issuer and site checks to be skipped, got %v", rej)
	}
}
