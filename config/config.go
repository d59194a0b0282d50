// Package config loads CARPAS configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment represents the application environment.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// Config holds all application configuration.
type Config struct {
	// Application
	App AppConfig

	// Database
	Database DatabaseConfig

	// Redis cache
	Cache CacheConfig

	// HTTP API
	HTTP HTTPConfig

	// Analytics thresholds
	Analytics AnalyticsConfig

	// Observability
	Observability ObservabilityConfig
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string
	Environment Environment
	Debug       bool
	Version     string

	// Graceful shutdown timeout
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds storage settings. A postgres:// URL selects the
// PostgreSQL backend; anything else is treated as a SQLite path.
type DatabaseConfig struct {
	URL string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	// Timeout for the initial ping
	ConnectTimeout time.Duration
}

// CacheConfig holds Redis settings for the analytics cache.
type CacheConfig struct {
	Host     string
	Port     int
	Password string
	DB       int

	// Pool settings
	PoolSize     int
	MinIdleConns int

	// Timeouts
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Enabled turns the cache on. The system is fully functional
	// without Redis; analytics reads just skip the cache.
	Enabled bool
}

// HTTPConfig holds REST API settings.
type HTTPConfig struct {
	Host string
	Port int

	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration

	// Rate limiting
	RateLimitPerMinute int

	// CORS
	EnableCORS     bool
	AllowedOrigins []string

	// API keys protecting write endpoints (empty = open)
	APIKeyHeader string
	APIKeys      []string
}

// AnalyticsConfig holds at-risk detection thresholds.
type AnalyticsConfig struct {
	// AttendanceThreshold - attendance below this percent is flagged.
	AttendanceThreshold float64

	// MarksThreshold - overall marks below this percent are flagged.
	MarksThreshold float64
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	// Logging
	LogLevel  string // debug, info, warn, error
	LogFormat string // json, text
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		App:           loadAppConfig(),
		Database:      loadDatabaseConfig(),
		Cache:         loadCacheConfig(),
		HTTP:          loadHTTPConfig(),
		Analytics:     loadAnalyticsConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func loadAppConfig() AppConfig {
	env := Environment(getEnv("CARPAS_ENV", "development"))

	return AppConfig{
		Name:            getEnv("CARPAS_APP_NAME", "carpas"),
		Environment:     env,
		Debug:           env == EnvDevelopment || getEnvBool("CARPAS_DEBUG", false),
		Version:         getEnv("CARPAS_VERSION", "0.1.0"),
		ShutdownTimeout: getEnvDuration("CARPAS_SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

func loadDatabaseConfig() DatabaseConfig {
	url := getEnv("CARPAS_DATABASE_URL", "")
	if url == "" {
		// Try to build a PostgreSQL URL from individual components
		host := getEnv("CARPAS_DB_HOST", "")
		port := getEnv("CARPAS_DB_PORT", "5432")
		user := getEnv("CARPAS_DB_USER", "")
		pass := getEnv("CARPAS_DB_PASSWORD", "")
		name := getEnv("CARPAS_DB_NAME", "carpas")
		sslmode := getEnv("CARPAS_DB_SSLMODE", "require")

		if host != "" && user != "" {
			url = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
				user, pass, host, port, name, sslmode)
		}
	}
	if url == "" {
		// Local single-file SQLite database
		url = "carpas.db"
	}

	return DatabaseConfig{
		URL:             url,
		MaxOpenConns:    getEnvInt("CARPAS_DB_MAX_OPEN_CONNS", 10),
		MaxIdleConns:    getEnvInt("CARPAS_DB_MAX_IDLE_CONNS", 2),
		ConnMaxLifetime: getEnvDuration("CARPAS_DB_CONN_MAX_LIFETIME", time.Hour),
		ConnMaxIdleTime: getEnvDuration("CARPAS_DB_CONN_MAX_IDLE_TIME", 30*time.Minute),
		ConnectTimeout:  getEnvDuration("CARPAS_DB_CONNECT_TIMEOUT", 10*time.Second),
	}
}

func loadCacheConfig() CacheConfig {
	return CacheConfig{
		Host:         getEnv("CARPAS_REDIS_HOST", "localhost"),
		Port:         getEnvInt("CARPAS_REDIS_PORT", 6379),
		Password:     getEnv("CARPAS_REDIS_PASSWORD", ""),
		DB:           getEnvInt("CARPAS_REDIS_DB", 0),
		PoolSize:     getEnvInt("CARPAS_REDIS_POOL_SIZE", 10),
		MinIdleConns: getEnvInt("CARPAS_REDIS_MIN_IDLE_CONNS", 2),
		DialTimeout:  getEnvDuration("CARPAS_REDIS_DIAL_TIMEOUT", 5*time.Second),
		ReadTimeout:  getEnvDuration("CARPAS_REDIS_READ_TIMEOUT", 3*time.Second),
		WriteTimeout: getEnvDuration("CARPAS_REDIS_WRITE_TIMEOUT", 3*time.Second),
		Enabled:      getEnvBool("CARPAS_CACHE_ENABLED", false),
	}
}

func loadHTTPConfig() HTTPConfig {
	return HTTPConfig{
		Host:               getEnv("CARPAS_HTTP_HOST", "0.0.0.0"),
		Port:               getEnvInt("CARPAS_HTTP_PORT", 8080),
		ReadTimeout:        getEnvDuration("CARPAS_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:       getEnvDuration("CARPAS_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:        getEnvDuration("CARPAS_HTTP_IDLE_TIMEOUT", 60*time.Second),
		RequestTimeout:     getEnvDuration("CARPAS_HTTP_REQUEST_TIMEOUT", 10*time.Second),
		RateLimitPerMinute: getEnvInt("CARPAS_HTTP_RATE_LIMIT", 100),
		EnableCORS:         getEnvBool("CARPAS_HTTP_CORS", true),
		AllowedOrigins:     getEnvSlice("CARPAS_HTTP_ALLOWED_ORIGINS", []string{"*"}),
		APIKeyHeader:       getEnv("CARPAS_HTTP_API_KEY_HEADER", "X-API-Key"),
		APIKeys:            getEnvSlice("CARPAS_HTTP_API_KEYS", nil),
	}
}

func loadAnalyticsConfig() AnalyticsConfig {
	return AnalyticsConfig{
		AttendanceThreshold: getEnvFloat("CARPAS_ATTENDANCE_THRESHOLD", 75.0),
		MarksThreshold:      getEnvFloat("CARPAS_MARKS_THRESHOLD", 40.0),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:  getEnv("CARPAS_LOG_LEVEL", "info"),
		LogFormat: getEnv("CARPAS_LOG_FORMAT", "json"),
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []string

	if c.Database.URL == "" {
		errs = append(errs, "CARPAS_DATABASE_URL must not be empty")
	}

	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, "CARPAS_HTTP_PORT must be 1-65535")
	}

	if c.Analytics.AttendanceThreshold < 0 || c.Analytics.AttendanceThreshold > 100 {
		errs = append(errs, "CARPAS_ATTENDANCE_THRESHOLD must be 0-100")
	}

	if c.Analytics.MarksThreshold < 0 || c.Analytics.MarksThreshold > 100 {
		errs = append(errs, "CARPAS_MARKS_THRESHOLD must be 0-100")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == EnvDevelopment
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.App.Environment == EnvProduction
}

// --- Helper functions for environment variable parsing ---

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvFloat(key string, defaultVal float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}

func getEnvSlice(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}

	parts := strings.Split(val, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		result = append(result, p)
	}
	return result
}
