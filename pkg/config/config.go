// Package config provides environment-based configuration for the wizard
// service. The simulator core itself takes no environment input; these
// knobs belong to the surrounding shell.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the wizard service.
type Config struct {
	// Server configuration
	APIHost string
	APIPort int

	// DatabaseDSN enables run-history persistence. Empty means the
	// in-memory store is used and history does not survive restarts.
	DatabaseDSN string

	// Authentication. An empty JWTSecret disables authentication.
	JWTSecret         string
	JWTExpiry         time.Duration
	AdminPasswordHash string

	// CORSOrigins are the allowed browser origins for the SPA.
	CORSOrigins []string

	// Graceful shutdown timeout
	ShutdownTimeout time.Duration

	// Build simulator configuration
	Build BuildConfig

	// AI holds the generative analysis/report backend settings.
	AI AIConfig

	// Secrets holds age keys for keystore passphrase encryption.
	Secrets SecretsConfig
}

// BuildConfig holds the simulator knobs.
type BuildConfig struct {
	// TickInterval is the cadence of the step sequencer.
	TickInterval time.Duration
	// WarnThreshold is the random-draw threshold above which a warning
	// entry is injected (0.8 means ~20% of ticks warn).
	WarnThreshold float64
	// ReportTail is how many trailing log messages feed the report.
	ReportTail int
}

// AIConfig holds the generative-text backend settings. Without an API key
// the offline heuristic backend is used.
type AIConfig struct {
	Endpoint string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// SecretsConfig holds age encryption keys.
type SecretsConfig struct {
	AgePublicKey  string
	AgePrivateKey string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		APIHost:           getEnv("API_HOST", "0.0.0.0"),
		APIPort:           getIntEnv("API_PORT", 8080),
		DatabaseDSN:       getEnv("DATABASE_URL", ""),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		JWTExpiry:         getDurationEnv("JWT_EXPIRY", 24*time.Hour),
		AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
		CORSOrigins:       getListEnv("CORS_ORIGINS", []string{"*"}),
		ShutdownTimeout:   getDurationEnv("SHUTDOWN_TIMEOUT", 30*time.Second),
		Build: BuildConfig{
			TickInterval:  getDurationEnv("BUILD_TICK_INTERVAL", 800*time.Millisecond),
			WarnThreshold: getFloatEnv("BUILD_WARN_THRESHOLD", 0.8),
			ReportTail:    getIntEnv("BUILD_REPORT_TAIL", 20),
		},
		AI: AIConfig{
			Endpoint: getEnv("AI_ENDPOINT", ""),
			APIKey:   getEnv("AI_API_KEY", ""),
			Model:    getEnv("AI_MODEL", ""),
			Timeout:  getDurationEnv("AI_TIMEOUT", 30*time.Second),
		},
		Secrets: SecretsConfig{
			AgePublicKey:  getEnv("AGE_PUBLIC_KEY", ""),
			AgePrivateKey: getEnv("AGE_PRIVATE_KEY", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks configuration consistency.
func (c *Config) Validate() error {
	if c.APIPort <= 0 || c.APIPort > 65535 {
		return fmt.Errorf("API_PORT must be in 1..65535")
	}
	if c.Build.TickInterval <= 0 {
		return fmt.Errorf("BUILD_TICK_INTERVAL must be positive")
	}
	if c.Build.WarnThreshold < 0 || c.Build.WarnThreshold > 1 {
		return fmt.Errorf("BUILD_WARN_THRESHOLD must be in [0,1]")
	}
	if c.Build.ReportTail <= 0 {
		return fmt.Errorf("BUILD_REPORT_TAIL must be positive")
	}
	if c.JWTSecret != "" {
		if len(c.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 characters")
		}
		if c.AdminPasswordHash == "" {
			return fmt.Errorf("ADMIN_PASSWORD_HASH is required when JWT_SECRET is set")
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
