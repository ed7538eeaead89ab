package sso

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/platinummonkey/ssobridge/pkg/cache"
	"github.com/platinummonkey/ssobridge/pkg/observability"
)

const rateLimitKeyPrefix = "sso:ratelimit:"

// RateLimiter counts failed login attempts per client address in the TTL
// store. Each failure resets the window, so a locked-out address stays
// locked while it keeps hammering.
//
// The limiter fails open: if the store is unreachable, login attempts are
// not refused on rate-limit grounds. Token verification still stands
// between an attacker and a session, and the replay guard failing closed
// already refuses logins during a full store outage.
type RateLimiter struct {
	store   *cache.Client
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewRateLimiter builds a limiter backed by store.
func NewRateLimiter(store *cache.Client, logger *observability.Logger, metrics *observability.Metrics) *RateLimiter {
	return &RateLimiter{
		store:   store,
		logger:  logger.Named("ratelimit"),
		metrics: metrics,
	}
}

// IsLocked reports whether clientIP has reached the failure threshold.
func (rl *RateLimiter) IsLocked(ctx context.Context, clientIP string, max int) bool {
	count, err := rl.store.GetInt(ctx, rateLimitKey(clientIP))
	if err != nil {
		rl.metrics.CacheErrorsTotal.WithLabelValues("ratelimit").Inc()
		rl.logger.WithError(err).Warn("rate limit lookup failed, allowing request")
		return false
	}
	return count >= int64(max)
}

// RecordFailure increments the failure counter for clientIP and resets its
// expiry window.
func (rl *RateLimiter) RecordFailure(ctx context.Context, clientIP string, windowSecs int) {
	window := time.Duration(windowSecs) * time.Second
	count, err := rl.store.IncrWithTTL(ctx, rateLimitKey(clientIP), window)
	if err != nil {
		rl.metrics.CacheErrorsTotal.WithLabelValues("ratelimit").Inc()
		rl.logger.WithError(err).Warn("rate limit increment failed")
		return
	}
	if count == 1 {
		rl.logger.WithField("client_ip", clientIP).Debug("started rate limit window")
	}
}

// rateLimitKey hashes the client address into the store key. Addresses come
// from request headers, so they are attacker-influenced bytes until hashed.
func rateLimitKey(clientIP string) string {
	sum := sha256.Sum256([]byte(clientIP))
	return rateLimitKeyPrefix + hex.EncodeToString(sum[:])
}
