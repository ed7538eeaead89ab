package sso

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/ssobridge/pkg/observability"
)

const (
	redeemPath    = "/api/wp-sso/redeem"
	redeemTimeout = 3 * time.Second
)

// RedemptionClient performs server-to-server token redemption against the
// identity application. Redemption is a second, online opinion: even a
// well-signed token is refused unless the application that minted it still
// vouches for it.
type RedemptionClient struct {
	httpClient *http.Client
	logger     *observability.Logger
	metrics    *observability.Metrics
}

// NewRedemptionClient builds a redemption client with a short request
// timeout. A slow identity application must degrade logins, not hang them.
func NewRedemptionClient(logger *observability.Logger, metrics *observability.Metrics) *RedemptionClient {
	return &RedemptionClient{
		httpClient: &http.Client{
			Timeout:   redeemTimeout,
			Transport: otelhttp.NewTransport(nil),
		},
		logger:  logger.Named("redeem"),
		metrics: metrics,
	}
}

type redeemRequest struct {
	Token string `json:"token"`
}

// Redeem posts the token to the identity application and returns nil only
// on an exact HTTP 200. Every other outcome, including transport failure
// and missing configuration, is a redeem_failed rejection; the internal
// reason is logged and counted but never exposed to the client.
func (rc *RedemptionClient) Redeem(ctx context.Context, token string, settings Settings) *Rejection {
	start := time.Now()
	result, err := rc.redeem(ctx, token, settings)
	rc.metrics.RedemptionRequestDuration.Observe(time.Since(start).Seconds())
	rc.metrics.RedemptionRequestsTotal.WithLabelValues(result).Inc()
	if err != nil {
		rc.logger.WithError(err).WithField("result", result).Warn("token redemption refused")
		return reject(RejectRedeemFailed)
	}
	return nil
}

func (rc *RedemptionClient) redeem(ctx context.Context, token string, settings Settings) (string, error) {
	base := strings.TrimRight(settings.AppBaseURL, "/")
	if base == "" {
		return "not_configured", fmt.Errorf("redemption required but app base URL is not configured")
	}

	body, err := json.Marshal(redeemRequest{Token: token})
	if err != nil {
		return "request_failed", fmt.Errorf("encode redemption request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+redeemPath, bytes.NewReader(body))
	if err != nil {
		return "request_failed", fmt.Errorf("build redemption request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if settings.RedemptionAPIKey != "" {
		req.Header.Set("X-API-Key", settings.RedemptionAPIKey)
	}

	resp, err := rc.httpClient.Do(req)
	if err != nil {
		return "request_failed", fmt.Errorf("redemption request: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode != http.StatusOK {
		return "rejected", fmt.Errorf("redemption returned status %d", resp.StatusCode)
	}
	return "redeemed", nil
}
