// Package config provides application configuration loaded from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	App      AppConfig
	Log      LogConfig
	Redis    RedisConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string
	ReadTimeout  int // seconds
	WriteTimeout int // seconds
	IdleTimeout  int // seconds
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Driver is "postgres" or "sqlite".
	Driver string
	// DSN overrides the discrete fields when set (DATABASE_DSN).
	DSN      string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	// Path is the sqlite database file.
	Path    string
	Debug   bool
	Retries int
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Dev        bool
	Migrations bool
	Seed       bool
	// MigrationsDir is the golang-migrate file source directory.
	MigrationsDir string
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string
	Format string // "json" or "console"
}

// RedisConfig enables the distributed invoice lock when URL is set.
type RedisConfig struct {
	URL        string
	LockTTL    time.Duration
	LockPrefix string
}

// ConnString returns the connection string for the configured driver.
func (d DatabaseConfig) ConnString() string {
	if d.Driver == "sqlite" {
		if d.DSN != "" {
			return d.DSN
		}
		return d.Path
	}
	if d.DSN != "" {
		return d.DSN
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// URL returns the PostgreSQL connection URL built from the discrete DB_* settings,
// or DSN when it already is a URL. Key=value DSNs are converted by db.MigrationURL.
func (d DatabaseConfig) URL() string {
	if strings.HasPrefix(d.DSN, "postgres://") || strings.HasPrefix(d.DSN, "postgresql://") {
		return d.DSN
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// Load reads configuration from environment variables.
// It uses sensible defaults for local development.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getEnvInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvInt("SERVER_WRITE_TIMEOUT", 15),
			IdleTimeout:  getEnvInt("SERVER_IDLE_TIMEOUT", 60),
		},
		Database: DatabaseConfig{
			Driver:   strings.ToLower(getEnv("DB_DRIVER", "postgres")),
			DSN:      strings.Trim(strings.TrimSpace(os.Getenv("DATABASE_DSN")), "\"'"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "invoices"),
			Password: getEnv("DB_PASSWORD", "invoices123"),
			DBName:   getEnv("DB_NAME", "invoices"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			Path:     getEnv("DB_PATH", "invoicing.db"),
			Debug:    getEnvBool("DB_DEBUG", false),
			Retries:  getEnvInt("DB_RETRIES", 10),
		},
		App: AppConfig{
			Dev:           getEnvBool("DEV", true),
			Migrations:    getEnvBool("MIGRATIONS", false),
			Seed:          getEnvBool("DB_SEED", false),
			MigrationsDir: getEnv("MIGRATIONS_DIR", "migrations"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Redis: RedisConfig{
			URL:        os.Getenv("REDIS_URL"),
			LockTTL:    getEnvDuration("LOCK_TTL", 30*time.Second),
			LockPrefix: getEnv("LOCK_PREFIX", "invoicing:lock:"),
		},
	}
}

// Validate reports configuration that cannot work.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (want postgres or sqlite)", c.Database.Driver)
	}
	if c.App.Migrations && c.Database.Driver != "postgres" {
		return fmt.Errorf("MIGRATIONS requires DB_DRIVER=postgres")
	}
	if c.Redis.LockTTL <= 0 {
		return fmt.Errorf("LOCK_TTL must be positive")
	}
	return nil
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the integer value of an environment variable or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

// getEnvBool returns the boolean value of an environment variable or a default.
// Accepts "1", "true", "yes" as true; everything else is false.
func getEnvBool(key string, defaultValue bool) bool {
	value := strings.ToLower(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value == "1" || value == "true" || value == "yes"
}

// getEnvDuration accepts Go durations ("30s") or plain seconds ("30").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if i, err := strconv.Atoi(value); err == nil {
		return time.Duration(i) * time.Second
	}
	return defaultValue
}
