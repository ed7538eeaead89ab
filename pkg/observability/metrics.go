package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Login pipeline metrics
	LoginAttemptsTotal        *prometheus.CounterVec
	LoginRejectsTotal         *prometheus.CounterVec
	TokenVerifyDuration       prometheus.Histogram
	ReplayBurnsTotal          prometheus.Counter
	ReplayRejectsTotal        prometheus.Counter
	RateLimitLockoutsTotal    prometheus.Counter
	RedemptionRequestsTotal   *prometheus.CounterVec
	RedemptionRequestDuration prometheus.Histogram

	// Session metrics
	SessionsCreatedTotal prometheus.Counter
	SessionsActive       prometheus.Gauge

	// Cache metrics
	CacheErrorsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ssobridge_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ssobridge_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		LoginAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ssobridge_login_attempts_total",
				Help: "Total SSO login attempts by outcome (accepted or rejected)",
			},
			[]string{"outcome"},
		),
		LoginRejectsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ssobridge_login_rejects_total",
				Help: "Total rejected SSO login attempts by reject code",
			},
			[]string{"code"},
		),
		TokenVerifyDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ssobridge_token_verify_duration_seconds",
				Help:    "Token signature verification duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.00001, 10, 6),
			},
		),
		ReplayBurnsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ssobridge_replay_burns_total",
				Help: "Total token identifiers burned in the replay store",
			},
		),
		ReplayRejectsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ssobridge_replay_rejects_total",
				Help: "Total login attempts rejected as token replays",
			},
		),
		RateLimitLockoutsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ssobridge_rate_limit_lockouts_total",
				Help: "Total login attempts rejected due to an active rate-limit lockout",
			},
		),
		RedemptionRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ssobridge_redemption_requests_total",
				Help: "Total outbound token redemption calls by result",
			},
			[]string{"result"},
		),
		RedemptionRequestDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ssobridge_redemption_request_duration_seconds",
				Help:    "Outbound token redemption call duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		SessionsCreatedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ssobridge_sessions_created_total",
				Help: "Total authenticated sessions created",
			},
		),
		SessionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "ssobridge_sessions_active",
				Help: "Approximate number of active sessions",
			},
		),
		CacheErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ssobridge_cache_errors_total",
				Help: "Total TTL store errors by component",
			},
			[]string{"component"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.LoginAttemptsTotal,
		m.LoginRejectsTotal,
		m.TokenVerifyDuration,
		m.ReplayBurnsTotal,
		m.ReplayRejectsTotal,
		m.RateLimitLockoutsTotal,
		m.RedemptionRequestsTotal,
		m.RedemptionRequestDuration,
		m.SessionsCreatedTotal,
		m.SessionsActive,
		m.CacheErrorsTotal,
	)

	return m
}

// ObserveLoginAccept records an accepted login.
func (m *Metrics) ObserveLoginAccept() {
	m.LoginAttemptsTotal.WithLabelValues("accepted").Inc()
}

// ObserveLoginReject records a rejected login with its reject code.
func (m *Metrics) ObserveLoginReject(code string) {
	m.LoginAttemptsTotal.WithLabelValues("rejected").Inc()
	m.LoginRejectsTotal.WithLabelValues(code).Inc()
}

// Handler returns the Prometheus scrape handler for the registry.
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// HTTPMetricsMiddleware records request counts and durations.
func (m *Metrics) HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		m.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(rw.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the status code
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
