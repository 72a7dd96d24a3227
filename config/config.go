// config.go - Handles configuration for the project

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"patient-registry/auth"
)

// Development defaults; Validate refuses to run without real values elsewhere.
const (
	devSessionSecret = "dev-session-secret-change-me"
	devAdminPassword = "admin123"
)

type Config struct { // Config holds all configuration values
	Env           string        `mapstructure:"ENV"`            // development or production
	Port          string        `mapstructure:"PORT"`           // HTTP listen port
	DBDriver      string        `mapstructure:"DB_DRIVER"`      // sqlite or postgres
	DBPath        string        `mapstructure:"DB_PATH"`        // SQLite file path
	DatabaseURL   string        `mapstructure:"DATABASE_URL"`   // Postgres DSN
	SessionSecret string        `mapstructure:"SESSION_SECRET"` // HMAC key for session and flash cookies
	SessionTTL    time.Duration `mapstructure:"SESSION_TTL"`    // Session lifetime
	CookieSecure  bool          `mapstructure:"COOKIE_SECURE"`  // Mark cookies Secure (HTTPS only)
	CreateAdmin   bool          `mapstructure:"CREATE_ADMIN"`   // Seed an admin when none exists
	AdminUsername string        `mapstructure:"ADMIN_USERNAME"` // Seeded admin's username
	AdminPassword string        `mapstructure:"ADMIN_PASSWORD"` // Seeded admin's password
	MQTTBroker    string        `mapstructure:"MQTT_BROKER"`    // Empty disables registry events
	MQTTTopic     string        `mapstructure:"MQTT_TOPIC"`     // Topic registry events go to
	MQTTClientID  string        `mapstructure:"MQTT_CLIENT_ID"` // MQTT client ID prefix
	CORSOrigins   []string      `mapstructure:"CORS_ORIGINS"`   // Allowed cross-origin callers
	LogLevel      string        `mapstructure:"LOG_LEVEL"`      // zerolog level name
}

var keys = []string{
	"ENV", "PORT", "DB_DRIVER", "DB_PATH", "DATABASE_URL", "SESSION_SECRET", "SESSION_TTL",
	"COOKIE_SECURE", "CREATE_ADMIN", "ADMIN_USERNAME", "ADMIN_PASSWORD", "MQTT_BROKER",
	"MQTT_TOPIC", "MQTT_CLIENT_ID", "CORS_ORIGINS", "LOG_LEVEL",
}

// Load reads config from a .env file (if present) and the environment,
// falling back to defaults, then validates it.
func Load() (*Config, error) {
	_ = godotenv.Load() // A missing .env file is fine

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("ENV", "development")
	v.SetDefault("PORT", "8080")
	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DB_PATH", "registry.db")
	v.SetDefault("SESSION_TTL", "12h")
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("CREATE_ADMIN", true)
	v.SetDefault("ADMIN_USERNAME", "admin")
	v.SetDefault("MQTT_TOPIC", "registry/patients")
	v.SetDefault("MQTT_CLIENT_ID", "patient-registry")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("LOG_LEVEL", "info")

	for _, key := range keys { // Bind explicitly so Unmarshal sees env-only keys
		_ = v.BindEnv(key)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))

	if cfg.IsDev() {
		if cfg.SessionSecret == "" {
			cfg.SessionSecret = devSessionSecret
		}
		if cfg.AdminPassword == "" {
			cfg.AdminPassword = devAdminPassword
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "sqlite":
		if c.DBPath == "" {
			return fmt.Errorf("DB_PATH is required for the sqlite driver")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("DB_DRIVER must be \"sqlite\" or \"postgres\", got %q", c.DBDriver)
	}
	if c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required when ENV=%q", c.Env)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	if c.CreateAdmin && (c.AdminUsername == "" || c.AdminPassword == "") {
		return fmt.Errorf("ADMIN_USERNAME and ADMIN_PASSWORD are required when CREATE_ADMIN is set")
	}
	if len(c.AdminPassword) > auth.MaxPasswordBytes { // bcrypt limit
		return fmt.Errorf("ADMIN_PASSWORD must be at most %d bytes", auth.MaxPasswordBytes)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
