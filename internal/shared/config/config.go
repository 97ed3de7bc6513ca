package config

import (
	"log"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration.
type Config struct {
	Port                string        `envconfig:"PORT" default:"8080"`
	Env                 string        `envconfig:"ENV" default:"dev"`
	DatabaseURL         string        `envconfig:"DATABASE_URL"`
	AutoMigrate         bool          `envconfig:"AUTO_MIGRATE" default:"false"`
	CORSAllowOrigin     []string      `envconfig:"CORS_ALLOW_ORIGINS" default:"http://localhost:3000"`
	GoogleClientID      string        `envconfig:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret  string        `envconfig:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL   string        `envconfig:"GOOGLE_REDIRECT_URL"`
	UIRedirectURL       string        `envconfig:"UI_REDIRECT_URL"`
	JWTSecret           string        `envconfig:"JWT_SECRET"`
	AllowedEmailDomains []string      `envconfig:"ALLOWED_EMAIL_DOMAINS" default:"nutrient.io,pspdfkit.com"`
	RenderingAPIKey     string        `envconfig:"RENDERING_API_KEY"`
	RenderingBaseURL    string        `envconfig:"RENDERING_BASE_URL" default:"https://api.nutrient.io/viewer/documents"`
	RenderingSessionURL string        `envconfig:"RENDERING_SESSIONS_URL" default:"https://api.nutrient.io/viewer/sessions"`
	RenderingViewerURL  string        `envconfig:"RENDERING_VIEWER_URL" default:"https://viewer.nutrient.io"`
	RenderingTimeout    time.Duration `envconfig:"RENDERING_TIMEOUT" default:"30s"`
	UploadRatePerMinute float64       `envconfig:"UPLOAD_RATE_PER_MINUTE" default:"30"`
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		log.Printf("config: %v; falling back to defaults where possible", err)
	}

	cfg.Env = normalizeEnv(cfg.Env)
	cfg.CORSAllowOrigin = trimAll(cfg.CORSAllowOrigin)
	cfg.AllowedEmailDomains = normalizeDomains(cfg.AllowedEmailDomains)
	if cfg.RenderingTimeout <= 0 {
		cfg.RenderingTimeout = 30 * time.Second
	}

	if cfg.Env == "production" {
		if cfg.DatabaseURL == "" {
			log.Printf("DATABASE_URL is required in production")
		}
		if cfg.RenderingAPIKey == "" {
			log.Printf("RENDERING_API_KEY is required in production")
		}
	}

	return cfg
}

// IsDevLike reports whether the environment tolerates in-memory fallbacks.
func (c Config) IsDevLike() bool {
	switch c.Env {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func trimAll(in []string) []string {
	var out []string
	for _, p := range in {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeDomains(in []string) []string {
	out := trimAll(in)
	for i := range out {
		out[i] = strings.ToLower(strings.TrimPrefix(out[i], "@"))
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "test":
		return "test"
	default:
		return "dev"
	}
}
