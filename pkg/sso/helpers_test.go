package sso

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/platinummonkey/ssobridge/pkg/cache"
	"github.com/platinummonkey/ssobridge/pkg/observability"
)

const (
	testSecret   = "test-active-secret"
	testPrevious = "test-previous-secret"
	testSiteID   = "site-123"
	testIssuer   = "https://idp.example.com"
	testAudience = "blog.example.com"
)

func testLogger() *observability.Logger {
	return observability.NewLogger(observability.ErrorLevel, io.Discard)
}

func testMetrics() *observability.Metrics {
	return observability.NewMetrics(prometheus.NewRegistry())
}

// setupStore starts a miniredis and returns a connected cache client.
func setupStore(t *testing.T) (*cache.Client, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client, err := cache.New(cache.Config{URL: "redis://" + mr.Addr()})
	if err != nil {
		t.Fatalf("Failed to create cache client: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	return client, mr
}

func testSettings() Settings {
	return Settings{
		Enabled:             true,
		SiteID:              testSiteID,
		Issuer:              testIssuer,
		Audience:            testAudience,
		SecretActive:        testSecret,
		SecretPrevious:      testPrevious,
		RateLimitMax:        5,
		RateLimitWindowSecs: 300,
	}.Normalize()
}

// testClaims returns a fresh, fully-populated claim set that validates
// against testSettings when the request host is testAudience.
func testClaims() map[string]interface{} {
	now := time.Now().Unix()
	return map[string]interface{}{
		"iss": testIssuer,
		"aud": testAudience,
		"sid": testSiteID,
		"sub": "alice@example.com",
		"jti": "jti-" + time.Now().Format("150405.000000000"),
		"iat": now,
		"exp": now + 300,
	}
}

func encodeSegment(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

// signToken builds a signed token over the given claims.
func signToken(t *testing.T, secret string, claims map[string]interface{}) string {
	t.Helper()
	return signTokenWithHeader(t, secret, map[string]interface{}{"alg": "HS256", "typ": "JWT"}, claims)
}

func signTokenWithHeader(t *testing.T, secret string, header, claims map[string]interface{}) string {
	t.Helper()

	headerJSON, err := json.Marshal(header)
	if err != nil {
		t.Fatalf("Failed to marshal header: %v", err)
	}
	claimsJSON, err := json.Marshal(claims)
	if err != nil {
		t.Fatalf("Failed to marshal claims: %v", err)
	}

	signingInput := encodeSegment(headerJSON) + "." + encodeSegment(claimsJSON)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signingInput))
	return signingInput + "." + encodeSegment(mac.Sum(nil))
}
