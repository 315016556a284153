// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/gurkanbulca/streamline/internal/database"
	"github.com/gurkanbulca/streamline/internal/service"
)

// Auth modes
const (
	AuthModeHMAC = "hmac"
	AuthModeJWKS = "jwks"
)

const defaultAccessSecret = "dev-access-secret-change-in-production"

type Config struct {
	Server     ServerConfig
	Log        LogConfig
	Database   DatabaseConfig
	Auth       AuthConfig
	Upload     UploadConfig
	Validation service.ValidationConfig
}

type ServerConfig struct {
	GRPCPort         string
	HTTPPort         string
	Environment      string
	EnableReflection bool
	AutoMigrate      bool
	ShutdownTimeout  time.Duration
}

type LogConfig struct {
	Level  slog.Level
	Format string
}

type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	DSN      string
}

type AuthConfig struct {
	Mode                string
	AccessSecret        string
	AccessTokenDuration time.Duration
	Issuer              string
	JWKSURL             string
	JWKSRefreshInterval time.Duration
	Leeway              time.Duration
}

type UploadConfig struct {
	Dir           string
	PublicPrefix  string
	MaxProofBytes int64
	ServeStatic   bool
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	level, err := parseLogLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}

	defaults := service.DefaultValidationConfig()

	return &Config{
		Server: ServerConfig{
			GRPCPort:         getEnv("GRPC_PORT", "50051"),
			HTTPPort:         getEnv("HTTP_PORT", "8080"),
			Environment:      getEnv("ENVIRONMENT", "development"),
			EnableReflection: getEnvAsBool("GRPC_ENABLE_REFLECTION", false),
			AutoMigrate:      getEnvAsBool("AUTO_MIGRATE", true),
			ShutdownTimeout:  getEnvAsDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Log: LogConfig{
			Level:  level,
			Format: strings.ToLower(getEnv("LOG_FORMAT", "json")),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "streamline"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
			DSN:      getEnv("DB_DSN", ""),
		},
		Auth: AuthConfig{
			Mode:                strings.ToLower(getEnv("AUTH_MODE", AuthModeHMAC)),
			AccessSecret:        getEnv("JWT_ACCESS_SECRET", getEnv("JWT_SECRET", defaultAccessSecret)),
			AccessTokenDuration: getEnvAsDuration("JWT_ACCESS_TOKEN_DURATION", 15*time.Minute),
			Issuer:              getEnv("JWT_ISSUER", ""),
			JWKSURL:             getEnv("AUTH_JWKS_URL", ""),
			JWKSRefreshInterval: getEnvAsDuration("AUTH_JWKS_REFRESH_INTERVAL", time.Hour),
			Leeway:              getEnvAsDuration("AUTH_JWT_LEEWAY", 30*time.Second),
		},
		Upload: UploadConfig{
			Dir:           getEnv("UPLOAD_DIR", "./uploads"),
			PublicPrefix:  getEnv("UPLOAD_PUBLIC_PREFIX", "/uploads"),
			MaxProofBytes: getEnvAsInt64("UPLOAD_MAX_PROOF_BYTES", service.DefaultMaxProofBytes),
			ServeStatic:   getEnvAsBool("UPLOAD_SERVE_STATIC", true),
		},
		Validation: service.ValidationConfig{
			MaxTitleLength:       getEnvAsInt("VALIDATION_MAX_TITLE_LENGTH", defaults.MaxTitleLength),
			MaxDescriptionLength: getEnvAsInt("VALIDATION_MAX_DESCRIPTION_LENGTH", defaults.MaxDescriptionLength),
			MaxNotesLength:       getEnvAsInt("VALIDATION_MAX_NOTES_LENGTH", defaults.MaxNotesLength),
			MaxFeedbackLength:    getEnvAsInt("VALIDATION_MAX_FEEDBACK_LENGTH", defaults.MaxFeedbackLength),
			MaxUserIDLength:      defaults.MaxUserIDLength,
		},
	}, nil
}

// ValidateConfig rejects inconsistent settings.
func (c *Config) ValidateConfig() error {
	var errs []error

	if _, err := database.Dialect(c.Database.Driver); err != nil {
		errs = append(errs, err)
	}

	switch c.Auth.Mode {
	case AuthModeHMAC:
		if c.Auth.AccessSecret == "" {
			errs = append(errs, errors.New("JWT_ACCESS_SECRET is required when AUTH_MODE=hmac"))
		}
		if c.IsProduction() && c.Auth.AccessSecret == defaultAccessSecret {
			errs = append(errs, errors.New("JWT_ACCESS_SECRET must be changed in production"))
		}
	case AuthModeJWKS:
		if c.Auth.JWKSURL == "" {
			errs = append(errs, errors.New("AUTH_JWKS_URL is required when AUTH_MODE=jwks"))
		}
	default:
		errs = append(errs, fmt.Errorf("AUTH_MODE must be %q or %q, got %q", AuthModeHMAC, AuthModeJWKS, c.Auth.Mode))
	}

	if c.Log.Format != "json" && c.Log.Format != "text" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.Log.Format))
	}
	if c.Upload.Dir == "" {
		errs = append(errs, errors.New("UPLOAD_DIR is required"))
	}
	if !strings.HasPrefix(c.Upload.PublicPrefix, "/") {
		errs = append(errs, errors.New("UPLOAD_PUBLIC_PREFIX must start with /"))
	}
	if c.Upload.MaxProofBytes <= 0 {
		errs = append(errs, errors.New("UPLOAD_MAX_PROOF_BYTES must be positive"))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("SHUTDOWN_TIMEOUT must be positive"))
	}

	v := c.Validation
	if v.MaxTitleLength <= 0 || v.MaxDescriptionLength < 0 || v.MaxNotesLength < 0 || v.MaxFeedbackLength < 0 {
		errs = append(errs, errors.New("validation limits must not be negative and the title limit must be positive"))
	}

	return errors.Join(errs...)
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// ToDatabaseConfig converts to the database package configuration.
func (c *Config) ToDatabaseConfig() database.Config {
	return database.Config{
		Driver:   c.Database.Driver,
		Host:     c.Database.Host,
		Port:     c.Database.Port,
		User:     c.Database.User,
		Password: c.Database.Password,
		DBName:   c.Database.DBName,
		SSLMode:  c.Database.SSLMode,
		DSN:      c.Database.DSN,
	}
}

// NewLogger builds the process logger and installs it as slog's default.
func NewLogger(cfg LogConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.Level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	// Try parsing as duration string (e.g., "15m", "24h")
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}

	return defaultValue
}

func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q: must be debug, info, warn or error", level)
	}
}
