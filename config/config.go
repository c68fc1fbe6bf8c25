package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Session storage backends understood by the session package.
const (
	SessionBackendMemory   = "memory"
	SessionBackendRedis    = "redis"
	SessionBackendDatabase = "database"
	SessionBackendCookie   = "cookie"
)

// Config holds the application's configuration values.
type Config struct {
	AppName  string `mapstructure:"APPNAME" json:"appname"`
	AppEnv   string `mapstructure:"APPENV" json:"appenv"`
	AppPort  uint16 `mapstructure:"APPPORT" json:"appport"`
	GinMode  string `mapstructure:"GINMODE" json:"ginmode"`
	LogLevel string `mapstructure:"LOG_LEVEL" json:"log_level"`

	// DBDriver is one of postgres, mysql or sqlite.
	DBDriver string `mapstructure:"DB_DRIVER" json:"db_driver"`
	// DatabaseURL is the user-scoped (row level security enforced) connection.
	DatabaseURL string `mapstructure:"DATABASE_URL" json:"-"`
	// DatabaseServiceURL is the privileged connection that bypasses row level
	// security. It is only ever used server side.
	DatabaseServiceURL string `mapstructure:"DATABASE_SERVICE_URL" json:"-"`

	RedisAddr string `mapstructure:"REDIS_ADDR" json:"redis_addr"`
	RedisPass string `mapstructure:"REDIS_PASS" json:"-"`
	RedisDB   int    `mapstructure:"REDIS_DB" json:"redis_db"`

	SessionBackend string `mapstructure:"SESSION_BACKEND" json:"session_backend"`
	SessionSecret  string `mapstructure:"SESSION_SECRET" json:"-"`
	CookieSecure   bool   `mapstructure:"COOKIE_SECURE" json:"cookie_secure"`

	CORSOrigins   []string      `mapstructure:"CORS_ORIGINS" json:"cors_origins"`
	DefaultLocale string        `mapstructure:"DEFAULT_LOCALE" json:"default_locale"`
	GeoIPDBPath   string        `mapstructure:"GEOIP_DB_PATH" json:"geoip_db_path"`
	RateLimit     int           `mapstructure:"RATE_LIMIT" json:"rate_limit"`
	RateWindow    time.Duration `mapstructure:"RATE_WINDOW" json:"rate_window"`
}

var configKeys = []string{
	"APPNAME", "APPENV", "APPPORT", "GINMODE", "LOG_LEVEL",
	"DB_DRIVER", "DATABASE_URL", "DATABASE_SERVICE_URL",
	"REDIS_ADDR", "REDIS_PASS", "REDIS_DB",
	"SESSION_BACKEND", "SESSION_SECRET", "COOKIE_SECURE",
	"CORS_ORIGINS", "DEFAULT_LOCALE", "GEOIP_DB_PATH", "RATE_LIMIT", "RATE_WINDOW",
}

// LoadConfig loads environment variables (optionally from a .env file) and
// returns a validated Config.
func LoadConfig() (*Config, error) {
	// A missing .env file is fine; the process environment still applies.
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("APPNAME", "CML Tracker")
	v.SetDefault("APPENV", "development")
	v.SetDefault("APPPORT", 3000)
	v.SetDefault("GINMODE", "debug")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("SESSION_BACKEND", SessionBackendDatabase)
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("DEFAULT_LOCALE", "th")
	v.SetDefault("RATE_LIMIT", 5)
	v.SetDefault("RATE_WINDOW", "15m")

	for _, key := range configKeys {
		_ = v.BindEnv(key)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// CORS_ORIGINS arrives as a comma separated string from the environment.
	if origins := v.GetString("CORS_ORIGINS"); origins != "" {
		cfg.CORSOrigins = splitAndTrim(origins)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration once at startup and fills derived defaults.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("DB_DRIVER must be postgres, mysql or sqlite, got %q", c.DBDriver)
	}

	if c.DatabaseURL == "" && !c.IsTest() {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DatabaseServiceURL == "" {
		if c.IsProduction() {
			return fmt.Errorf("DATABASE_SERVICE_URL is required in production")
		}
		c.DatabaseServiceURL = c.DatabaseURL
	}

	switch c.SessionBackend {
	case SessionBackendMemory, SessionBackendRedis, SessionBackendDatabase:
	case SessionBackendCookie:
		if len(c.SessionSecret) < 32 {
			return fmt.Errorf("SESSION_SECRET must be at least 32 characters for the cookie session backend")
		}
	default:
		return fmt.Errorf("SESSION_BACKEND must be memory, redis, database or cookie, got %q", c.SessionBackend)
	}

	if c.DefaultLocale != "th" && c.DefaultLocale != "en" {
		return fmt.Errorf("DEFAULT_LOCALE must be th or en, got %q", c.DefaultLocale)
	}
	if c.AppPort == 0 {
		return fmt.Errorf("APPPORT must be a valid port")
	}
	return nil
}

// IsTest reports whether the app runs under tests.
func (c *Config) IsTest() bool {
	return c.AppEnv == "test"
}

// IsProduction reports whether the app runs in production.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
