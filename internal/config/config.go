// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, database paths, routing thresholds, the
// generative backend, rate limiting, and observability.
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
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "assistant-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// GenConfig defines the generative backend connection.
type GenConfig struct {
	BaseURL string        // GEN_BASE_URL (e.g. "http://localhost:11434")
	Model   string        // GEN_MODEL, default model when an assistant sets none
	Timeout time.Duration // GEN_TIMEOUT for the whole streamed call
}

// RoutingConfig holds the answer-routing knobs.
type RoutingConfig struct {
	ScoreThreshold     float64 // SCORE_THRESHOLD, fast-path confidence in [0,1]
	MinMatchedKeywords int     // MIN_MATCHED_KEYWORDS, relevance floor
	SnippetMaxRunes    int     // SNIPPET_MAX, extracted snippet window
	MaxMessageRunes    int     // MAX_MESSAGE_RUNES, inbound message guard
	CacheMaxRunes      int     // CACHE_MAX_RESPONSE_RUNES, cacheable ceiling
	DefaultLanguage    string  // DEFAULT_LANGUAGE: en|ru|es
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s; must exceed GEN_TIMEOUT margins for streaming
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging
	LogLevel    string // debug|info|warn|error|fatal|panic
	LogPretty   bool   // pretty console logs in dev
	APIBasePath string // base path for admin API routes

	// App
	DBPath  string // SQLite path
	Routing RoutingConfig
	Gen     GenConfig

	// Sliding-window defaults applied when an assistant config is unset.
	RateDefaultMax    int           // RATE_DEFAULT_MAX
	RateDefaultWindow time.Duration // RATE_DEFAULT_WINDOW

	// Edge rate limiting (token bucket, per client, before routing)
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

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
		WriteTimeout:      getdur("WRITE_TIMEOUT", 5*time.Minute),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging
		LogLevel:    strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:   getbool("LOG_PRETTY", false),
		APIBasePath: normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// App
		DBPath: getenv("DB_PATH", "app.db"),
		Routing: RoutingConfig{
			ScoreThreshold:     getfloat("SCORE_THRESHOLD", 0.8),
			MinMatchedKeywords: getint("MIN_MATCHED_KEYWORDS", 2),
			SnippetMaxRunes:    getint("SNIPPET_MAX", 600),
			MaxMessageRunes:    getint("MAX_MESSAGE_RUNES", 4000),
			CacheMaxRunes:      getint("CACHE_MAX_RESPONSE_RUNES", 4000),
			DefaultLanguage:    strings.ToLower(getenv("DEFAULT_LANGUAGE", "en")),
		},
		Gen: GenConfig{
			BaseURL: getenv("GEN_BASE_URL", "http://localhost:11434"),
			Model:   getenv("GEN_MODEL", "llama3.2"),
			Timeout: getdur("GEN_TIMEOUT", 300*time.Second),
		},

		// Sliding-window defaults
		RateDefaultMax:    getint("RATE_DEFAULT_MAX", 20),
		RateDefaultWindow: getdur("RATE_DEFAULT_WINDOW", time.Minute),

		// Edge rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

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
			ServiceName: getenv("OTEL_SERVICE_NAME", "assistant-backend"),
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
	if cfg.Routing.ScoreThreshold < 0 || cfg.Routing.ScoreThreshold > 1 {
		return cfg, errors.New("SCORE_THRESHOLD must be between 0 and 1")
	}
	if cfg.Routing.MinMatchedKeywords < 1 {
		return cfg, errors.New("MIN_MATCHED_KEYWORDS must be >= 1")
	}
	if cfg.Routing.SnippetMaxRunes <= 0 {
		return cfg, errors.New("SNIPPET_MAX must be > 0")
	}
	if cfg.Routing.CacheMaxRunes <= 0 {
		return cfg, errors.New("CACHE_MAX_RESPONSE_RUNES must be > 0")
	}
	switch cfg.Routing.DefaultLanguage {
	case "en", "ru", "es":
	default:
		return cfg, errors.New("DEFAULT_LANGUAGE must be one of: en, ru, es")
	}
	if strings.TrimSpace(cfg.Gen.BaseURL) == "" {
		return cfg, errors.New("GEN_BASE_URL must not be empty")
	}
	if cfg.Gen.Timeout <= 0 {
		return cfg, errors.New("GEN_TIMEOUT must be > 0")
	}
	if cfg.RateDefaultMax < 1 {
		return cfg, errors.New("RATE_DEFAULT_MAX must be >= 1")
	}
	if cfg.RateDefaultWindow <= 0 {
		return cfg, errors.New("RATE_DEFAULT_WINDOW must be > 0")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
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
