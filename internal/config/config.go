package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Store backends.
const (
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `json:"server" toml:"server"`
	Catalog   CatalogConfig   `json:"catalog" toml:"catalog"`
	Store     StoreConfig     `json:"store" toml:"store"`
	Tracing   TracingConfig   `json:"tracing" toml:"tracing"`
	Log       LogConfig       `json:"log" toml:"log"`
	Carousel  CarouselConfig  `json:"carousel" toml:"carousel"`
	Features  map[string]bool `json:"features" toml:"features"`
	Security  SecurityConfig  `json:"security" toml:"security"`
	RateLimit RateLimitConfig `json:"rate_limit" toml:"rate_limit"`
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port      string `json:"port" toml:"port"`
	Host      string `json:"host" toml:"host"`
	EnableTLS bool   `json:"enable_tls" toml:"enable_tls"`
	CertFile  string `json:"cert_file" toml:"cert_file"`
	KeyFile   string `json:"key_file" toml:"key_file"`
	// Public base URL used when building share links
	BaseURL string `json:"base_url" toml:"base_url"`
}

// CatalogConfig tells the loader where the card catalog lives.
type CatalogConfig struct {
	// Local path, http(s):// URL or s3://bucket/key
	Source   string `json:"source" toml:"source"`
	S3Region string `json:"s3_region" toml:"s3_region"`
}

// StoreConfig selects and configures the key-value backend.
type StoreConfig struct {
	Backend       string `json:"backend" toml:"backend"`
	Path          string `json:"path" toml:"path"`
	RedisAddr     string `json:"redis_addr" toml:"redis_addr"`
	RedisPassword string `json:"redis_password" toml:"redis_password"`
	RedisDB       int    `json:"redis_db" toml:"redis_db"`
	RedisPrefix   string `json:"redis_prefix" toml:"redis_prefix"`
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool    `json:"enabled" toml:"enabled"`
	Endpoint    string  `json:"endpoint" toml:"endpoint"`
	Environment string  `json:"environment" toml:"environment"`
	SampleRatio float64 `json:"sample_ratio" toml:"sample_ratio"`
}

// LogConfig holds structured logging settings.
type LogConfig struct {
	Level  string `json:"level" toml:"level"`
	Format string `json:"format" toml:"format"` // text or json
}

// CarouselConfig holds carousel settings.
type CarouselConfig struct {
	IntervalMS int `json:"interval_ms" toml:"interval_ms"`
	ViewCache  int `json:"view_cache_size" toml:"view_cache_size"`
}

// Interval returns the auto-advance period.
func (c CarouselConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMS) * time.Millisecond
}

// SecurityConfig holds security-related configuration.
type SecurityConfig struct {
	// Max request body size in bytes (default: 1MB)
	MaxRequestBodySize int64 `json:"max_request_body_size" toml:"max_request_body_size"`
	// Allowed CORS origins (comma-separated)
	AllowedOrigins string `json:"allowed_origins" toml:"allowed_origins"`
}

// Origins splits AllowedOrigins into a list.
func (s SecurityConfig) Origins() []string {
	var out []string
	for _, o := range strings.Split(s.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	Enabled bool `json:"enabled" toml:"enabled"`
	Rate    int  `json:"rate" toml:"rate"`
	Window  int  `json:"window" toml:"window"` // in seconds
}

// LoadConfig loads configuration from environment variables and/or a config
// file. Environment variables take precedence over config file values.
func LoadConfig(configFile string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:      getEnv("SERVER_PORT", "8080"),
			Host:      getEnv("SERVER_HOST", ""),
			EnableTLS: getEnvBool("SERVER_ENABLE_TLS", false),
			CertFile:  getEnv("SERVER_CERT_FILE", ""),
			KeyFile:   getEnv("SERVER_KEY_FILE", ""),
			BaseURL:   getEnv("SERVER_BASE_URL", "http://localhost:8080/offers"),
		},
		Catalog: CatalogConfig{
			Source:   getEnv("CATALOG_SOURCE", "./cards.json"),
			S3Region: getEnv("CATALOG_S3_REGION", ""),
		},
		Store: StoreConfig{
			Backend:       getEnv("STORE_BACKEND", StoreSQLite),
			Path:          getEnv("STORE_PATH", "./card_offers.db"),
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("REDIS_DB", 0),
			RedisPrefix:   getEnv("REDIS_PREFIX", "card-offers:"),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvBool("TRACING_ENABLED", false),
			Endpoint:    getEnv("TRACING_ENDPOINT", "http://localhost:14268/api/traces"),
			Environment: getEnv("ENVIRONMENT", "development"),
			SampleRatio: getEnvFloat("TRACING_SAMPLE_RATIO", 1),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		Carousel: CarouselConfig{
			IntervalMS: getEnvInt("CAROUSEL_INTERVAL_MS", 3000),
			ViewCache:  getEnvInt("VIEW_CACHE_SIZE", 64),
		},
		Features: map[string]bool{},
		Security: SecurityConfig{
			MaxRequestBodySize: getEnvInt64("MAX_REQUEST_BODY_SIZE", 1<<20),
			AllowedOrigins:     getEnv("ALLOWED_ORIGINS", "*"),
		},
		RateLimit: RateLimitConfig{
			Enabled: getEnvBool("RATE_LIMIT_ENABLED", true),
			Rate:    getEnvInt("RATE_LIMIT_RATE", 100),
			Window:  getEnvInt("RATE_LIMIT_WINDOW", 60),
		},
	}

	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	overrideFromEnv(cfg)

	return cfg, nil
}

// loadFromFile loads configuration from a TOML file when the extension says
// so, and from JSON otherwise.
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return toml.Unmarshal(data, cfg)
	default:
		return json.Unmarshal(data, cfg)
	}
}

// overrideFromEnv re-applies environment variables that are set, so they win
// over the config file.
func overrideFromEnv(cfg *Config) {
	setString(&cfg.Server.Port, "SERVER_PORT")
	setString(&cfg.Server.Host, "SERVER_HOST")
	setBool(&cfg.Server.EnableTLS, "SERVER_ENABLE_TLS")
	setString(&cfg.Server.CertFile, "SERVER_CERT_FILE")
	setString(&cfg.Server.KeyFile, "SERVER_KEY_FILE")
	setString(&cfg.Server.BaseURL, "SERVER_BASE_URL")

	setString(&cfg.Catalog.Source, "CATALOG_SOURCE")
	setString(&cfg.Catalog.S3Region, "CATALOG_S3_REGION")

	setString(&cfg.Store.Backend, "STORE_BACKEND")
	setString(&cfg.Store.Path, "STORE_PATH")
	setString(&cfg.Store.RedisAddr, "REDIS_ADDR")
	setString(&cfg.Store.RedisPassword, "REDIS_PASSWORD")
	setInt(&cfg.Store.RedisDB, "REDIS_DB")
	setString(&cfg.Store.RedisPrefix, "REDIS_PREFIX")

	setBool(&cfg.Tracing.Enabled, "TRACING_ENABLED")
	setString(&cfg.Tracing.Endpoint, "TRACING_ENDPOINT")
	setString(&cfg.Tracing.Environment, "ENVIRONMENT")
	if v := os.Getenv("TRACING_SAMPLE_RATIO"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Tracing.SampleRatio = f
		}
	}

	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.Format, "LOG_FORMAT")

	setInt(&cfg.Carousel.IntervalMS, "CAROUSEL_INTERVAL_MS")
	setInt(&cfg.Carousel.ViewCache, "VIEW_CACHE_SIZE")

	// FEATURES=carousel=false,view_cache=true
	if v := os.Getenv("FEATURES"); v != "" {
		if cfg.Features == nil {
			cfg.Features = map[string]bool{}
		}
		for _, pair := range strings.Split(v, ",") {
			name, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
			if !ok || name == "" {
				continue
			}
			cfg.Features[name] = value == "true" || value == "1"
		}
	}

	if maxBodySize := os.Getenv("MAX_REQUEST_BODY_SIZE"); maxBodySize != "" {
		if size, err := strconv.ParseInt(maxBodySize, 10, 64); err == nil {
			cfg.Security.MaxRequestBodySize = size
		}
	}
	setString(&cfg.Security.AllowedOrigins, "ALLOWED_ORIGINS")

	setBool(&cfg.RateLimit.Enabled, "RATE_LIMIT_ENABLED")
	setInt(&cfg.RateLimit.Rate, "RATE_LIMIT_RATE")
	setInt(&cfg.RateLimit.Window, "RATE_LIMIT_WINDOW")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = strings.ToLower(v) == "true" || v == "1"
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			*dst = i
		}
	}
}

// getEnv gets an environment variable or returns the default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable or returns the default value.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable or returns the default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

// getEnvInt64 gets an int64 environment variable or returns the default value.
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// Validate validates the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.EnableTLS && (c.Server.CertFile == "" || c.Server.KeyFile == "") {
		return fmt.Errorf("cert file and key file are required when TLS is enabled")
	}
	if c.Catalog.Source == "" {
		return fmt.Errorf("catalog source is required")
	}

	switch c.Store.Backend {
	case StoreSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("store path is required for the sqlite backend")
		}
	case StoreRedis:
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("redis address is required for the redis backend")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}

	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return fmt.Errorf("tracing endpoint is required when tracing is enabled")
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("tracing sample ratio must be between 0 and 1")
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log format must be text or json")
	}

	if c.Carousel.IntervalMS <= 0 {
		return fmt.Errorf("carousel interval must be positive")
	}
	if c.Carousel.ViewCache <= 0 {
		return fmt.Errorf("view cache size must be positive")
	}
	if c.Security.MaxRequestBodySize <= 0 {
		return fmt.Errorf("max request body size must be positive")
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.Rate <= 0 {
			return fmt.Errorf("rate limit rate must be positive")
		}
		if c.RateLimit.Window <= 0 {
			return fmt.Errorf("rate limit window must be positive")
		}
	}
	return nil
}
