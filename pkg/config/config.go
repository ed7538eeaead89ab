package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/platinummonkey/ssobridge/pkg/cache"
	"github.com/platinummonkey/ssobridge/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Cache         cache.Config
	Database      DatabaseConfig
	SSO           SSOConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// DatabaseConfig holds the identity database configuration
type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
}

// SSOConfig is the static layer of the SSO settings. Every non-zero field
// here wins over the corresponding field from the mutable settings store.
type SSOConfig struct {
	Enabled              bool
	AppBaseURL           string
	SiteID               string
	Issuer               string
	Audience             string
	SecretActive         string
	SecretPrevious       string
	AllowedRedirectPaths string // newline-delimited path prefixes
	RequireManage        bool
	RequireRedemption    bool
	RedemptionAPIKey     string
	RateLimitMax         int
	RateLimitWindowSecs  int
	PenalizeIneligible   bool

	// SettingsFile is the optional mutable settings store (JSON, hot-reloaded).
	SettingsFile string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Cache:         loadCacheConfig(),
		Database:      loadDatabaseConfig(),
		SSO:           loadSSOConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("SSOBRIDGE_HOST", "0.0.0.0"),
		Port:            getEnv("SSOBRIDGE_PORT", "8080"),
		ReadTimeout:     getEnvDuration("SSOBRIDGE_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("SSOBRIDGE_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("SSOBRIDGE_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("SSOBRIDGE_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("SSOBRIDGE_HEALTH_PORT", "9090"),
	}
}

func loadCacheConfig() cache.Config {
	cfg := cache.DefaultConfig()

	if redisURL := getEnv("SSOBRIDGE_REDIS_URL", ""); redisURL != "" {
		cfg.URL = redisURL
	}
	if redisPassword := getEnv("SSOBRIDGE_REDIS_PASSWORD", ""); redisPassword != "" {
		cfg.Password = redisPassword
	}
	if redisDB := getEnvInt("SSOBRIDGE_REDIS_DB", -1); redisDB >= 0 {
		cfg.DB = redisDB
	}
	if maxRetries := getEnvInt("SSOBRIDGE_REDIS_MAX_RETRIES", 0); maxRetries > 0 {
		cfg.MaxRetries = maxRetries
	}
	if poolSize := getEnvInt("SSOBRIDGE_REDIS_POOL_SIZE", 0); poolSize > 0 {
		cfg.PoolSize = poolSize
	}

	return cfg
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		URL:          getEnv("SSOBRIDGE_POSTGRES_URL", "postgres://localhost/ssobridge?sslmode=disable"),
		MaxOpenConns: getEnvInt("SSOBRIDGE_POSTGRES_MAX_CONNS", 10),
		MaxIdleConns: getEnvInt("SSOBRIDGE_POSTGRES_IDLE_CONNS", 5),
	}
}

func loadSSOConfig() SSOConfig {
	return SSOConfig{
		Enabled:              getEnvBool("SSOBRIDGE_SSO_ENABLED", false),
		AppBaseURL:           getEnv("SSOBRIDGE_SSO_APP_BASE_URL", ""),
		SiteID:               getEnv("SSOBRIDGE_SSO_SITE_ID", ""),
		Issuer:               getEnv("SSOBRIDGE_SSO_ISSUER", ""),
		Audience:             getEnv("SSOBRIDGE_SSO_AUDIENCE", ""),
		SecretActive:         getEnv("SSOBRIDGE_SSO_SECRET_ACTIVE", ""),
		SecretPrevious:       getEnv("SSOBRIDGE_SSO_SECRET_PREVIOUS", ""),
		AllowedRedirectPaths: getEnv("SSOBRIDGE_SSO_ALLOWED_REDIRECT_PATHS", ""),
		RequireManage:        getEnvBool("SSOBRIDGE_SSO_REQUIRE_MANAGE", false),
		RequireRedemption:    getEnvBool("SSOBRIDGE_SSO_REQUIRE_REDEMPTION", false),
		RedemptionAPIKey:     getEnv("SSOBRIDGE_SSO_REDEMPTION_API_KEY", ""),
		RateLimitMax:         getEnvInt("SSOBRIDGE_SSO_RATE_LIMIT_MAX", 0),
		RateLimitWindowSecs:  getEnvInt("SSOBRIDGE_SSO_RATE_LIMIT_WINDOW", 0),
		PenalizeIneligible:   getEnvBool("SSOBRIDGE_SSO_PENALIZE_INELIGIBLE", false),
		SettingsFile:         getEnv("SSOBRIDGE_SSO_SETTINGS_FILE", ""),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           parseLogLevel(getEnv("SSOBRIDGE_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("SSOBRIDGE_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("SSOBRIDGE_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("SSOBRIDGE_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("SSOBRIDGE_OTEL_SERVICE_NAME", "ssobridge"),
		OTelServiceVersion: getEnv("SSOBRIDGE_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("SSOBRIDGE_OTEL_INSECURE", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Cache.URL == "" {
		return fmt.Errorf("redis URL is required")
	}
	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}

	if c.SSO.RateLimitMax < 0 {
		return fmt.Errorf("rate limit max must not be negative")
	}
	if c.SSO.RateLimitWindowSecs != 0 && c.SSO.RateLimitWindowSecs < 60 {
		return fmt.Errorf("rate limit window must be at least 60 seconds")
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
