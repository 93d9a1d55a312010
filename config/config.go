package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"storefront-backend/logger"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port      string `envconfig:"PORT" default:"8080"`
	AppEnv    string `envconfig:"APP_ENV" default:"development"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	JWTSecret string `envconfig:"JWT_SECRET"`

	// DocumentStore is "firestore" or "memory".
	DocumentStore string `envconfig:"DOCUMENT_STORE" default:"firestore"`
	// IdentityCache is "database" or "redis".
	IdentityCache  string `envconfig:"IDENTITY_CACHE" default:"database"`
	DatabaseDriver string `envconfig:"DATABASE_DRIVER" default:"postgres"`
	DatabaseURL    string `envconfig:"DATABASE_URL"`
	RedisURL       string `envconfig:"REDIS_URL"`

	GoogleCredentials     string `envconfig:"GOOGLE_APPLICATION_CREDENTIALS"`
	FirebaseProjectID     string `envconfig:"FIREBASE_PROJECT_ID"`
	FirebaseStorageBucket string `envconfig:"FIREBASE_STORAGE_BUCKET"`

	FrontendURL string `envconfig:"FRONTEND_URL"`
	AdminURL    string `envconfig:"ADMIN_URL"`

	AdminEmail    string `envconfig:"ADMIN_EMAIL"`
	AdminPassword string `envconfig:"ADMIN_PASSWORD"`

	// SessionRequestsPerMinute limits POST /api/session per client IP.
	SessionRequestsPerMinute int  `envconfig:"SESSION_REQUESTS_PER_MINUTE" default:"10"`
	SecureCookies            bool `envconfig:"SECURE_COOKIES" default:"false"`

	ContactInbox   string `envconfig:"CONTACT_INBOX"`
	EmailProvider  string `envconfig:"EMAIL_PROVIDER" default:"smtp"`
	SendGridAPIKey string `envconfig:"SENDGRID_API_KEY"`
	SMTPHost       string `envconfig:"SMTP_HOST"`
	SMTPPort       string `envconfig:"SMTP_PORT"`
	SMTPUsername   string `envconfig:"SMTP_USERNAME"`
	SMTPPassword   string `envconfig:"SMTP_PASSWORD"`
	SMTPFrom       string `envconfig:"SMTP_FROM"`
}

func LoadEnv() error {
	// Try to load .env file if it exists (for local development)
	// In production, environment variables are set directly
	_ = godotenv.Load()
	return nil
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.DocumentStore = strings.ToLower(cfg.DocumentStore)
	cfg.IdentityCache = strings.ToLower(cfg.IdentityCache)
	cfg.EmailProvider = strings.ToLower(cfg.EmailProvider)
	return &cfg, nil
}

// ValidateEnv checks that critical settings are present.
// Returns an error if any critical variable is missing.
func ValidateEnv(cfg *Config, log *logger.Logger) error {
	var missing []string

	// Critical variables - application cannot function without these
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	// Admin accounts always live in the database.
	if cfg.DatabaseDriver == "postgres" && cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	switch cfg.IdentityCache {
	case "database":
	case "redis":
		if cfg.RedisURL == "" {
			missing = append(missing, "REDIS_URL")
		}
	default:
		return fmt.Errorf("IDENTITY_CACHE must be database or redis, got %q", cfg.IdentityCache)
	}
	if cfg.DocumentStore != "firestore" && cfg.DocumentStore != "memory" {
		return fmt.Errorf("DOCUMENT_STORE must be firestore or memory, got %q", cfg.DocumentStore)
	}

	if len(missing) > 0 {
		return fmt.Errorf("critical environment variables not set: %v", missing)
	}

	// Non-critical variables - log warnings but don't fail
	ctx := context.Background()
	if cfg.FirebaseStorageBucket == "" {
		log.Warn(ctx, "FIREBASE_STORAGE_BUCKET not set - product uploads will fail")
	}
	if cfg.GoogleCredentials == "" && cfg.DocumentStore == "firestore" {
		log.Warn(ctx, "GOOGLE_APPLICATION_CREDENTIALS not set - using default Google credentials")
	}
	if cfg.FrontendURL == "" {
		log.Warn(ctx, "FRONTEND_URL not set - CORS may not work correctly")
	}
	if cfg.ContactInbox == "" {
		log.Warn(ctx, "CONTACT_INBOX not set - contact messages will not be forwarded")
	}
	switch cfg.EmailProvider {
	case "sendgrid":
		if cfg.SendGridAPIKey == "" {
			log.Warn(ctx, "SENDGRID_API_KEY not set - email notifications will not work")
		}
	default:
		if cfg.SMTPHost == "" || cfg.SMTPPort == "" || cfg.SMTPFrom == "" {
			log.Warn(ctx, "SMTP_HOST, SMTP_PORT or SMTP_FROM not set - email notifications will not work")
		}
	}

	return nil
}

func GetEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// CORSOrigins lists the browser origins allowed to call the API.
func (c *Config) CORSOrigins() []string {
	var origins []string
	for _, o := range []string{c.FrontendURL, c.AdminURL} {
		if o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
