package sso

import (
	"context"
	"strings"
	"time"

	"github.com/platinummonkey/ssobridge/pkg/observability"
)

// Accept is the successful outcome of a login attempt.
type Accept struct {
	User         *LocalUser
	Claims       *Claims
	RedirectPath string
}

// Authenticator drives the login state machine. Every attempt walks the
// same fixed sequence of checks; the first failing check terminates the
// attempt with a typed Rejection and there is exactly one accept path at
// the end.
type Authenticator struct {
	settings  *SettingsResolver
	gate      RequestGate
	limiter   *RateLimiter
	verifier  TokenVerifier
	replay    *ReplayGuard
	claims    ClaimsValidator
	redeemer  *RedemptionClient
	identity  IdentityResolver
	sanitizer PathSanitizer
	logger    *observability.Logger
	metrics   *observability.Metrics
	now       func() time.Time
}

// NewAuthenticator wires the pipeline together.
func NewAuthenticator(
	settings *SettingsResolver,
	limiter *RateLimiter,
	replay *ReplayGuard,
	redeemer *RedemptionClient,
	identity IdentityResolver,
	logger *observability.Logger,
	metrics *observability.Metrics,
) *Authenticator {
	return &Authenticator{
		settings: settings,
		limiter:  limiter,
		replay:   replay,
		redeemer: redeemer,
		identity: identity,
		logger:   logger.Named("login"),
		metrics:  metrics,
		now:      time.Now,
	}
}

// Authenticate runs the full pipeline for req. It returns exactly one of:
// an Accept, a Rejection, or an error for infrastructure failures that are
// neither the client's fault nor safely ignorable.
func (a *Authenticator) Authenticate(ctx context.Context, req *AuthRequest) (*Accept, *Rejection, error) {
	settings, err := a.settings.Resolve(ctx)
	if err != nil {
		return nil, nil, err
	}

	if rej := a.gate.Check(req); rej != nil {
		// Eligibility failures normally do not count against the rate
		// limit; scanners probing with wrong methods would otherwise lock
		// out whole NAT ranges.
		return nil, a.fail(ctx, req, settings, rej, settings.PenalizeIneligible), nil
	}

	if !settings.Enabled {
		return nil, a.fail(ctx, req, settings, reject(RejectDisabled), true), nil
	}

	if a.limiter.IsLocked(ctx, req.ClientIP, settings.RateLimitMax) {
		a.metrics.RateLimitLockoutsTotal.Inc()
		return nil, a.fail(ctx, req, settings, reject(RejectRateLimited), true), nil
	}

	token := req.Token()
	if token == "" {
		return nil, a.fail(ctx, req, settings, reject(RejectMissingToken), true), nil
	}

	if !settings.HasSecrets() {
		return nil, a.fail(ctx, req, settings, reject(RejectNotConfigured), true), nil
	}

	verifyStart := a.now()
	claims, secretIndex, rej := a.verifier.Verify(token, settings.Secrets())
	a.metrics.TokenVerifyDuration.Observe(time.Since(verifyStart).Seconds())
	if rej != nil {
		return nil, a.fail(ctx, req, settings, rej, true), nil
	}
	if secretIndex > 0 {
		a.logger.Debug("token verified with previous secret")
	}

	// Burn the jti the moment the signature holds. Every later check can
	// fail, but the token is already dead for a second attempt.
	jti := strings.TrimSpace(claims.TokenID)
	if jti == "" {
		return nil, a.fail(ctx, req, settings, reject(RejectInvalidJTI), true), nil
	}
	first, err := a.replay.CheckAndBurn(ctx, settings.SiteID, jti, claims.ExpiresAt)
	if err != nil {
		return nil, nil, err
	}
	if !first {
		return nil, a.fail(ctx, req, settings, reject(RejectReplay), true), nil
	}

	if rej := a.claims.Validate(claims, settings, req.Host, a.now()); rej != nil {
		return nil, a.fail(ctx, req, settings, rej, true), nil
	}

	if settings.RequireRedemption {
		if rej := a.redeemer.Redeem(ctx, token, settings); rej != nil {
			return nil, a.fail(ctx, req, settings, rej, true), nil
		}
	}

	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return nil, a.fail(ctx, req, settings, reject(RejectInvalidSubject), true), nil
	}

	user, err := a.identity.ResolveByEmail(ctx, subject)
	if err == ErrUserNotFound {
		return nil, a.fail(ctx, req, settings, reject(RejectNoUser), true), nil
	}
	if err != nil {
		return nil, nil, err
	}

	if !user.HasCapability(CapabilityRead) {
		return nil, a.fail(ctx, req, settings, reject(RejectForbidden), true), nil
	}
	if settings.RequireManage && !user.HasCapability(CapabilityManage) {
		return nil, a.fail(ctx, req, settings, reject(RejectForbidden), true), nil
	}

	redirect := a.sanitizer.Sanitize(claims.ReturnPath, settings.AllowedRedirectPaths)

	a.metrics.ObserveLoginAccept()
	a.logger.WithFields(map[string]interface{}{
		"user_id":   user.ID,
		"client_ip": req.ClientIP,
	}).Info("login accepted")

	return &Accept{User: user, Claims: claims, RedirectPath: redirect}, nil, nil
}

// fail records the rejection against the client's rate-limit bucket when
// penalize is set, emits metrics and logs, and returns the rejection
// unchanged. Logs carry the code and client address only; never token or
// claim material.
func (a *Authenticator) fail(ctx context.Context, req *AuthRequest, settings Settings, rej *Rejection, penalize bool) *Rejection {
	if penalize {
		a.limiter.RecordFailure(ctx, req.ClientIP, settings.RateLimitWindowSecs)
	}
	a.metrics.ObserveLoginReject(string(rej.Code))
	a.logger.WithFields(map[string]interface{}{
		"code":      string(rej.Code),
		"client_ip": req.ClientIP,
	}).Warn("login rejected")
	return rej
}
