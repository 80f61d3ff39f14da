// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, database paths, rate limiting, image
// sanitization, the generative backend, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tbourn/go-prompt-backend/internal/sysutil"
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
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-prompt-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// RateConfig defines admission control for the generation endpoints.
//
// Window/Max drive the fixed-window limiter (at most Max requests per client
// within any window). SlowdownAfter/SlowdownRPS drive the throttling stage
// that delays - rather than rejects - clients bursting past SlowdownAfter
// requests, serving them at SlowdownRPS from then on.
type RateConfig struct {
	Window        time.Duration // RATE_WINDOW, e.g. 60s
	Max           int           // RATE_MAX, requests per window per client
	SlowdownAfter int           // SLOWDOWN_AFTER, burst served at full speed
	SlowdownRPS   float64       // SLOWDOWN_RPS, sustained rate once throttled
}

// ImageConfig defines upload limits and sanitization behavior.
type ImageConfig struct {
	MaxBytes    int64 // IMAGE_MAX_BYTES, upload ceiling (default 5 MiB)
	MaxDim      int   // IMAGE_MAX_DIM, longest output side in px
	JPEGQuality int   // IMAGE_JPEG_QUALITY, re-encode quality [1..100]
	Strict      bool  // IMAGE_SANITIZE_STRICT: fail request on sanitize error
}

// GeminiConfig defines access to the generative backend.
type GeminiConfig struct {
	APIKey  string        // GEMINI_API_KEY (required in production)
	BaseURL string        // GEMINI_BASE_URL
	Model   string        // GEMINI_MODEL
	Timeout time.Duration // GEMINI_TIMEOUT, deadline for a single attempt
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 60s (covers a full backend call)
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / routing
	LogLevel    string // debug|info|warn|error|fatal|panic
	LogPretty   bool   // pretty console logs in dev
	APIBasePath string // base path for API routes

	// App
	DBPath       string        // SQLite path
	TextMaxRunes int           // TEXT_MAX_RUNES, prompt text cap
	CacheTTL     time.Duration // CACHE_TTL, regeneration snapshot lifetime

	// Admission control
	Rate RateConfig

	// Image uploads
	Image ImageConfig

	// Generative backend
	Gemini GeminiConfig

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
		WriteTimeout:      getdur("WRITE_TIMEOUT", 60*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / routing
		LogLevel:    strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:   getbool("LOG_PRETTY", false),
		APIBasePath: normalizeBasePath(getenv("API_BASE_PATH", "/")),

		// App
		DBPath:       getenv("DB_PATH", "app.db"),
		TextMaxRunes: getint("TEXT_MAX_RUNES", 2000),
		CacheTTL:     getdur("CACHE_TTL", time.Hour),

		// Admission control
		Rate: RateConfig{
			Window:        getdur("RATE_WINDOW", time.Minute),
			Max:           getint("RATE_MAX", 10),
			SlowdownAfter: getint("SLOWDOWN_AFTER", 5),
			SlowdownRPS:   getfloat("SLOWDOWN_RPS", 2.0),
		},

		// Image uploads
		Image: ImageConfig{
			MaxBytes:    getint64("IMAGE_MAX_BYTES", 5<<20),
			MaxDim:      getint("IMAGE_MAX_DIM", 1024),
			JPEGQuality: getint("IMAGE_JPEG_QUALITY", 80),
			Strict:      getbool("IMAGE_SANITIZE_STRICT", true),
		},

		// Generative backend
		Gemini: GeminiConfig{
			// GOOGLE_API_KEY is the conventional variable for Google SDKs;
			// accept it as a fallback.
			APIKey:  sysutil.FirstNonEmpty(os.Getenv("GEMINI_API_KEY"), os.Getenv("GOOGLE_API_KEY")),
			BaseURL: strings.TrimRight(getenv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"), "/"),
			Model:   getenv("GEMINI_MODEL", "gemini-2.0-flash-exp"),
			Timeout: getdur("GEMINI_TIMEOUT", 45*time.Second),
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
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-prompt-backend"),
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
	if cfg.TextMaxRunes <= 0 {
		return cfg, errors.New("TEXT_MAX_RUNES must be > 0")
	}
	if cfg.CacheTTL <= 0 {
		return cfg, errors.New("CACHE_TTL must be > 0")
	}
	if cfg.Rate.Window <= 0 {
		return cfg, errors.New("RATE_WINDOW must be > 0")
	}
	if cfg.Rate.Max < 1 {
		return cfg, errors.New("RATE_MAX must be >= 1")
	}
	if cfg.Rate.SlowdownAfter < 1 {
		return cfg, errors.New("SLOWDOWN_AFTER must be >= 1")
	}
	if cfg.Rate.SlowdownRPS <= 0 {
		return cfg, errors.New("SLOWDOWN_RPS must be > 0")
	}
	if cfg.Image.MaxBytes <= 0 {
		return cfg, errors.New("IMAGE_MAX_BYTES must be > 0")
	}
	if cfg.Image.MaxDim < 1 {
		return cfg, errors.New("IMAGE_MAX_DIM must be >= 1")
	}
	if cfg.Image.JPEGQuality < 1 || cfg.Image.JPEGQuality > 100 {
		return cfg, errors.New("IMAGE_JPEG_QUALITY must be in [1,100]")
	}
	if cfg.Gemini.Timeout <= 0 {
		return cfg, errors.New("GEMINI_TIMEOUT must be > 0")
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

func getint64(k string, def int64) int64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
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
