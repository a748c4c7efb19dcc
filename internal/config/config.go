package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig `yaml:"server"`

	// Database configuration
	Database DatabaseConfig `yaml:"database"`

	// Social card rendering configuration
	SocialCard SocialCardConfig `yaml:"social_card"`

	// Upstream asset fetch configuration
	Fetch FetchConfig `yaml:"fetch"`

	// Optional shared cache
	Redis RedisConfig `yaml:"redis"`

	// Logging configuration
	Log LogConfig `yaml:"log"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	PublicBaseURL   string        `yaml:"public_base_url"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver       string        `yaml:"driver"` // "postgres" or "sqlite"
	Host         string        `yaml:"host"`
	Port         string        `yaml:"port"`
	User         string        `yaml:"user"`
	Password     string        `yaml:"password"`
	Name         string        `yaml:"name"`
	SSLMode      string        `yaml:"sslmode"`
	SQLitePath   string        `yaml:"sqlite_path"`
	MaxOpenConns int           `yaml:"max_open_conns"`
	MaxIdleConns int           `yaml:"max_idle_conns"`
	MaxLifetime  time.Duration `yaml:"max_lifetime"`
	AutoMigrate  bool          `yaml:"auto_migrate"`
}

// SocialCardConfig holds card rendering settings
type SocialCardConfig struct {
	LogoURL        string        `yaml:"logo_url"`
	FontRegularURL string        `yaml:"font_regular_url"`
	FontItalicURL  string        `yaml:"font_italic_url"`
	CacheTTL       time.Duration `yaml:"cache_ttl"`
	CacheMax       int           `yaml:"cache_max"`
	AssetCacheTTL  time.Duration `yaml:"asset_cache_ttl"`
	AssetCacheMax  int           `yaml:"asset_cache_max"`
}

// FetchConfig holds upstream asset fetch settings
type FetchConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	MaxAttempts  int           `yaml:"max_attempts"`
	RetryDelay   time.Duration `yaml:"retry_delay"`
	MaxBytes     int64         `yaml:"max_bytes"`
	HostInterval time.Duration `yaml:"host_interval"` // 0 disables per-host limiting
	UserAgent    string        `yaml:"user_agent"`
}

// RedisConfig holds the optional second-tier cache settings
type RedisConfig struct {
	URL string `yaml:"url"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "pretty"
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:       "postgres",
			Host:         "localhost",
			Port:         "5432",
			User:         "postgres",
			Password:     "postgres",
			Name:         "newsroom",
			SSLMode:      "disable",
			SQLitePath:   "./data/newsroom.db",
			MaxOpenConns: 25,
			MaxIdleConns: 5,
			MaxLifetime:  5 * time.Minute,
			AutoMigrate:  true,
		},
		SocialCard: SocialCardConfig{
			CacheTTL:      6 * time.Hour,
			CacheMax:      150,
			AssetCacheTTL: 6 * time.Hour,
			AssetCacheMax: 250,
		},
		Fetch: FetchConfig{
			Timeout:     20 * time.Second,
			MaxAttempts: 4,
			RetryDelay:  350 * time.Millisecond,
			MaxBytes:    15 * 1024 * 1024, // 15MB
			UserAgent:   "Mozilla/5.0 (compatible; newsroom-api/1.0)",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads configuration from defaults, an optional YAML file named by
// CONFIG_FILE, a .env file and finally environment variables.
func Load() (*Config, error) {
	// A missing .env is fine
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.ReadTimeout = getDurationEnv("SERVER_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getDurationEnv("SERVER_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.ShutdownTimeout = getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)
	c.Server.PublicBaseURL = getEnv("PUBLIC_BASE_URL", c.Server.PublicBaseURL)

	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnv("DB_PORT", c.Database.Port)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.Name = getEnv("DB_NAME", c.Database.Name)
	c.Database.SSLMode = getEnv("DB_SSLMODE", c.Database.SSLMode)
	c.Database.SQLitePath = getEnv("SQLITE_PATH", c.Database.SQLitePath)
	c.Database.MaxOpenConns = getIntEnv("DB_MAX_OPEN_CONNS", c.Database.MaxOpenConns)
	c.Database.MaxIdleConns = getIntEnv("DB_MAX_IDLE_CONNS", c.Database.MaxIdleConns)
	c.Database.MaxLifetime = getDurationEnv("DB_MAX_LIFETIME", c.Database.MaxLifetime)
	c.Database.AutoMigrate = getBoolEnv("MIGRATIONS_AUTO", c.Database.AutoMigrate)

	c.SocialCard.LogoURL = getEnv("BRAND_LOGO_URL", c.SocialCard.LogoURL)
	c.SocialCard.FontRegularURL = getEnv("FONT_REGULAR_URL", c.SocialCard.FontRegularURL)
	c.SocialCard.FontItalicURL = getEnv("FONT_ITALIC_URL", c.SocialCard.FontItalicURL)
	c.SocialCard.CacheTTL = getDurationEnv("CARD_CACHE_TTL", c.SocialCard.CacheTTL)
	c.SocialCard.CacheMax = getIntEnv("CARD_CACHE_MAX", c.SocialCard.CacheMax)
	c.SocialCard.AssetCacheTTL = getDurationEnv("ASSET_CACHE_TTL", c.SocialCard.AssetCacheTTL)
	c.SocialCard.AssetCacheMax = getIntEnv("ASSET_CACHE_MAX", c.SocialCard.AssetCacheMax)

	c.Fetch.Timeout = getDurationEnv("FETCH_TIMEOUT", c.Fetch.Timeout)
	c.Fetch.MaxAttempts = getIntEnv("FETCH_MAX_ATTEMPTS", c.Fetch.MaxAttempts)
	c.Fetch.RetryDelay = getDurationEnv("FETCH_RETRY_DELAY", c.Fetch.RetryDelay)
	c.Fetch.MaxBytes = getInt64Env("FETCH_MAX_BYTES", c.Fetch.MaxBytes)
	c.Fetch.HostInterval = getDurationEnv("FETCH_HOST_INTERVAL", c.Fetch.HostInterval)
	c.Fetch.UserAgent = getEnv("FETCH_USER_AGENT", c.Fetch.UserAgent)

	c.Redis.URL = getEnv("REDIS_URL", c.Redis.URL)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("DB_HOST is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("DB_NAME is required")
		}
	case "sqlite":
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required")
		}
	default:
		return fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.Database.Driver)
	}
	if c.SocialCard.CacheMax <= 0 || c.SocialCard.AssetCacheMax <= 0 {
		return fmt.Errorf("card cache sizes must be positive")
	}
	if c.SocialCard.CacheTTL <= 0 || c.SocialCard.AssetCacheTTL <= 0 {
		return fmt.Errorf("card cache TTLs must be positive")
	}
	if c.Fetch.MaxAttempts < 1 {
		return fmt.Errorf("FETCH_MAX_ATTEMPTS must be at least 1")
	}
	return nil
}

// GetDSN returns the connection string for the configured driver
func (c *DatabaseConfig) GetDSN() string {
	if c.Driver == "sqlite" {
		return c.SQLitePath
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
