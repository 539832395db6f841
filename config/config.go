package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Log       LogConfig
	Fetcher   FetcherConfig
	Bulk      BulkConfig
	Whois     WhoisConfig
	Tools     ToolsConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: false

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 10

	// Burst is the maximum burst size per API key.
	Burst int // default: 20
}

// CacheConfig controls the opt-in tool result cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached results.
	MaxEntries int // default: 1000

	// TTL is the hard upper bound on how long an entry lives.
	TTL time.Duration // default: 10m
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// FetcherConfig controls outbound page retrieval.
type FetcherConfig struct {
	// Timeout bounds a single page fetch, redirects included.
	Timeout time.Duration // default: 10s

	// ProbeTimeout bounds derived-resource and link checks.
	ProbeTimeout time.Duration // default: 5s

	// MaxBodyBytes caps how much of a response body is read.
	MaxBodyBytes int64 // default: 10 MiB

	// MaxRedirects is the number of hops followed before giving up.
	MaxRedirects int // default: 10

	// UserAgent overrides the browser User-Agent header.
	UserAgent string

	// TLSFingerprint selects the TLS ClientHello: "go" or "chrome".
	TLSFingerprint string // default: "go"
}

// BulkConfig controls multi-URL runs.
type BulkConfig struct {
	// Workers is the worker pool size, clamped to 1..10.
	Workers int // default: 5

	// MaxURLs caps the number of URLs accepted per job.
	MaxURLs int // default: 500

	// MaxCSVBytes caps the size of an uploaded CSV sheet.
	MaxCSVBytes int64 // default: 10 MiB

	// HostRPS paces requests to a single host.
	HostRPS float64 // default: 2

	// JobTTL is how long finished jobs stay queryable.
	JobTTL time.Duration // default: 1h

	// WebhookSecret signs completion notifications. Empty disables signing.
	WebhookSecret string
}

// WhoisConfig controls the WHOIS capability used by the domain age tool.
type WhoisConfig struct {
	Enabled bool          // default: true
	Timeout time.Duration // default: 10s
}

// ToolsConfig controls which registered tools are exposed.
type ToolsConfig struct {
	// Disabled hides tools from listings and runs. The registry itself is
	// never modified.
	Disabled []string
}

// Load reads configuration from environment variables with sane defaults.
// A .env file in the working directory is loaded first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Host: envOr("PAGELENS_HOST", "0.0.0.0"),
			Port: envIntOr("PAGELENS_PORT", 8080),
			Mode: envOr("PAGELENS_GIN_MODE", "release"),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("PAGELENS_AUTH_ENABLED", false),
			APIKeys: envSliceOr("PAGELENS_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("PAGELENS_RATE_LIMIT_RPS", 10),
			Burst:             envIntOr("PAGELENS_RATE_LIMIT_BURST", 20),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("PAGELENS_CACHE_MAX_ENTRIES", 1000),
			TTL:        envDurationOr("PAGELENS_CACHE_TTL", 10*time.Minute),
		},
		Log: LogConfig{
			Level:  envOr("PAGELENS_LOG_LEVEL", "info"),
			Format: envOr("PAGELENS_LOG_FORMAT", "json"),
		},
		Fetcher: FetcherConfig{
			Timeout:        envDurationOr("PAGELENS_FETCH_TIMEOUT", 10*time.Second),
			ProbeTimeout:   envDurationOr("PAGELENS_PROBE_TIMEOUT", 5*time.Second),
			MaxBodyBytes:   int64(envIntOr("PAGELENS_MAX_BODY_BYTES", 10<<20)),
			MaxRedirects:   envIntOr("PAGELENS_MAX_REDIRECTS", 10),
			UserAgent:      os.Getenv("PAGELENS_USER_AGENT"),
			TLSFingerprint: envOr("PAGELENS_TLS_FINGERPRINT", "go"),
		},
		Bulk: BulkConfig{
			Workers:       clamp(envIntOr("PAGELENS_BULK_WORKERS", 5), 1, 10),
			MaxURLs:       envIntOr("PAGELENS_BULK_MAX_URLS", 500),
			MaxCSVBytes:   int64(envIntOr("PAGELENS_BULK_MAX_CSV_BYTES", 10<<20)),
			HostRPS:       envFloatOr("PAGELENS_BULK_HOST_RPS", 2),
			JobTTL:        envDurationOr("PAGELENS_BULK_JOB_TTL", time.Hour),
			WebhookSecret: os.Getenv("PAGELENS_WEBHOOK_SECRET"),
		},
		Whois: WhoisConfig{
			Enabled: envBoolOr("PAGELENS_WHOIS_ENABLED", true),
			Timeout: envDurationOr("PAGELENS_WHOIS_TIMEOUT", 10*time.Second),
		},
		Tools: ToolsConfig{
			Disabled: envSliceOr("PAGELENS_DISABLED_TOOLS", nil),
		},
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
