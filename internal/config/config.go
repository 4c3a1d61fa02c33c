// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, database paths, webhook authentication,
// rate limiting, notification delivery, no-show escalation, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-booking-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// WebhookConfig defines inbound webhook authentication and replay protection.
type WebhookConfig struct {
	Secret      string        // shared secret for HMAC signature verification
	VerifyToken string        // token echoed during provider subscription handshake
	EventTTL    time.Duration // how long a provider event id is remembered for dedup
}

// RateLimitConfig defines the per-phone multi-window limits and the
// process-local edge limiter. Window durations are configurable so operators
// can tune them without a rebuild.
type RateLimitConfig struct {
	MinuteLimit  int64         // ceiling for the minute window
	HourLimit    int64         // ceiling for the hour window
	DayLimit     int64         // ceiling for the day window
	MinuteWindow time.Duration // natural expiry of the minute window
	HourWindow   time.Duration // natural expiry of the hour window
	DayWindow    time.Duration // natural expiry of the day window
	Cooldown     time.Duration // extra block applied after an hour-ceiling breach

	EdgeRPS   float64 // process-local token bucket: tokens per second (>= 0)
	EdgeBurst int     // process-local token bucket: bucket size (>= 1)
}

// NotifyConfig defines outbound notification channels and fallback policy.
type NotifyConfig struct {
	WhatsAppAPIURL string        // primary channel endpoint
	WhatsAppToken  string        // primary channel bearer token
	SMSAPIURL      string        // secondary channel endpoint
	SMSToken       string        // secondary channel bearer token
	SMSEnabled     bool          // global switch for the secondary channel
	SMSMode        string        // "fallback" (default) or "always"
	SendTimeout    time.Duration // per-attempt HTTP timeout
}

// NoShowConfig defines the no-show escalation policy.
type NoShowConfig struct {
	BlockThreshold int           // consecutive no-shows before the customer is blocked
	Grace          time.Duration // how long past start time before an appointment counts as overdue
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging
	LogLevel    string // debug|info|warn|error|fatal|panic
	LogPretty   bool   // pretty console logs in dev
	APIBasePath string // base path for API routes

	// App
	DBPath string // SQLite path

	// Protection core
	Webhook   WebhookConfig
	RateLimit RateLimitConfig
	Notify    NotifyConfig
	NoShow    NoShowConfig

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging
		LogLevel:    strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:   getbool("LOG_PRETTY", false),
		APIBasePath: normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// App
		DBPath: getenv("DB_PATH", "app.db"),

		// Webhook authentication / replay protection
		Webhook: WebhookConfig{
			Secret:      getenv("WEBHOOK_SECRET", ""),
			VerifyToken: getenv("WEBHOOK_VERIFY_TOKEN", ""),
			EventTTL:    getdur("WEBHOOK_EVENT_TTL", 24*time.Hour),
		},

		// Rate limiting
		RateLimit: RateLimitConfig{
			MinuteLimit:  int64(getint("RATE_MINUTE_LIMIT", 60)),
			HourLimit:    int64(getint("RATE_HOUR_LIMIT", 300)),
			DayLimit:     int64(getint("RATE_DAY_LIMIT", 1000)),
			MinuteWindow: getdur("RATE_MINUTE_WINDOW", time.Minute),
			HourWindow:   getdur("RATE_HOUR_WINDOW", time.Hour),
			DayWindow:    getdur("RATE_DAY_WINDOW", 24*time.Hour),
			Cooldown:     getdur("RATE_COOLDOWN", 30*time.Minute),
			EdgeRPS:      getfloat("RATE_EDGE_RPS", 25.0),
			EdgeBurst:    getint("RATE_EDGE_BURST", 50),
		},

		// Notifications
		Notify: NotifyConfig{
			WhatsAppAPIURL: getenv("WHATSAPP_API_URL", ""),
			WhatsAppToken:  getenv("WHATSAPP_TOKEN", ""),
			SMSAPIURL:      getenv("SMS_API_URL", ""),
			SMSToken:       getenv("SMS_TOKEN", ""),
			SMSEnabled:     getbool("SMS_ENABLED", false),
			SMSMode:        strings.ToLower(getenv("SMS_FALLBACK_MODE", "fallback")),
			SendTimeout:    getdur("NOTIFY_SEND_TIMEOUT", 10*time.Second),
		},

		// No-show escalation
		NoShow: NoShowConfig{
			BlockThreshold: getint("NOSHOW_BLOCK_THRESHOLD", 3),
			Grace:          getdur("NOSHOW_GRACE", 30*time.Minute),
		},

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-booking-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	switch cfg.Notify.SMSMode {
	case "fallback", "always":
	default:
		cfg.Notify.SMSMode = "fallback"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if cfg.Webhook.EventTTL <= 0 {
		return cfg, errors.New("WEBHOOK_EVENT_TTL must be > 0")
	}
	if cfg.RateLimit.MinuteLimit < 1 || cfg.RateLimit.HourLimit < 1 || cfg.RateLimit.DayLimit < 1 {
		return cfg, errors.New("rate limits must be >= 1")
	}
	if cfg.RateLimit.MinuteWindow <= 0 || cfg.RateLimit.HourWindow <= 0 || cfg.RateLimit.DayWindow <= 0 {
		return cfg, errors.New("rate windows must be positive durations")
	}
	if cfg.RateLimit.Cooldown <= 0 {
		return cfg, errors.New("RATE_COOLDOWN must be > 0")
	}
	if cfg.RateLimit.EdgeRPS < 0 {
		return cfg, errors.New("RATE_EDGE_RPS must be >= 0")
	}
	if cfg.RateLimit.EdgeBurst < 1 {
		return cfg, errors.New("RATE_EDGE_BURST must be >= 1")
	}
	if cfg.Notify.SendTimeout <= 0 {
		return cfg, errors.New("NOTIFY_SEND_TIMEOUT must be > 0")
	}
	if cfg.NoShow.BlockThreshold < 1 {
		return cfg, errors.New("NOSHOW_BLOCK_THRESHOLD must be >= 1")
	}
	if cfg.NoShow.Grace < 0 {
		return cfg, errors.New("NOSHOW_GRACE must be >= 0")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
