package sso

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/platinummonkey/ssobridge/pkg/cache"
	"github.com/platinummonkey/ssobridge/pkg/observability"
)

const (
	replayKeyPrefix = "sso:nonce:"

	// replayGrace extends the burn record past the token's own expiry so a
	// token can not be replayed inside the clock-skew window where expiry
	// checks would still accept it.
	replayGrace = 60 * time.Second

	// replayDefaultTTL covers tokens whose exp claim is missing or
	// unusable. Such tokens are rejected later anyway, but their jti is
	// still burned.
	replayDefaultTTL = 10 * time.Minute
)

// ReplayGuard enforces single use of token identifiers. Burning is atomic:
// a single set-if-absent round trip both checks and records the jti, so two
// racing requests presenting the same token can never both pass.
//
// Unlike the rate limiter, the guard fails closed. If the store is
// unreachable the login is refused, because accepting a token without a
// burn record would make every token infinitely replayable for the
// duration of the outage.
type ReplayGuard struct {
	store   *cache.Client
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewReplayGuard builds a guard backed by store.
func NewReplayGuard(store *cache.Client, logger *observability.Logger, metrics *observability.Metrics) *ReplayGuard {
	return &ReplayGuard{
		store:   store,
		logger:  logger.Named("replay"),
		metrics: metrics,
	}
}

// CheckAndBurn records the jti as used and reports whether this was its
// first use. The burn record lives until the token itself would be dead to
// every clock in the fleet.
func (g *ReplayGuard) CheckAndBurn(ctx context.Context, siteID, jti string, exp int64) (bool, error) {
	ttl := replayDefaultTTL
	if exp > 0 {
		remaining := time.Until(time.Unix(exp, 0)) + replayGrace
		if remaining < time.Second {
			remaining = time.Second
		}
		ttl = remaining
	}

	key := replayKey(siteID, jti)
	first, err := g.store.SetNX(ctx, key, "1", ttl)
	if err != nil {
		g.metrics.CacheErrorsTotal.WithLabelValues("replay").Inc()
		return false, fmt.Errorf("burn token id: %w", err)
	}
	if first {
		g.metrics.ReplayBurnsTotal.Inc()
	} else {
		g.metrics.ReplayRejectsTotal.Inc()
		g.logger.WithField("site_id", siteID).Warn("token replay detected")
	}
	return first, nil
}

// replayKey hashes the site and token identifiers into the store key, so a
// hostile jti can not collide with or enumerate other key namespaces.
func replayKey(siteID, jti string) string {
	sum := sha256.Sum256([]byte(siteID + ":" + jti))
	return replayKeyPrefix + hex.EncodeToString(sum[:])
}
