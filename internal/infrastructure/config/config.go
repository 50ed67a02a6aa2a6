package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server configuration
	Environment string
	Port        int
	GRPCPort    int
	MetricsPort int

	// Database configuration
	DatabaseDriver  string // postgres or sqlite
	DatabaseURL     string
	AutoMigrate     bool
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	// Authentication
	SupabaseURL       string
	SupabaseJWTSecret string

	// Ordering locks
	RedisURL              string
	LockTTL               time.Duration
	LockWait              time.Duration
	RestorePositionPolicy string // keep or append

	// Object storage
	S3Endpoint     string
	S3AccessKey    string
	S3SecretKey    string
	S3Bucket       string
	S3UseSSL       bool
	S3PublicURL    string
	MaxUploadBytes int64

	// Search
	MeiliURL    string
	MeiliAPIKey string

	// TLS Configuration
	TLSEnabled  bool
	TLSCertFile string
	TLSKeyFile  string

	// Observability
	JaegerEndpoint string
	LogLevel       string
	LogFormat      string // json or console

	// Graceful Shutdown
	ShutdownTimeout time.Duration

	// Feature Flags
	EnableTracing    bool
	EnableReflection bool

	// Timeouts
	RequestTimeout  time.Duration
	DatabaseTimeout time.Duration
}

func Load() (*Config, error) {
	// Load .env file if exists (for local development)
	_ = godotenv.Load()

	cfg := &Config{
		// Server
		Environment: getEnv("ENVIRONMENT", "development"),
		Port:        getEnvAsInt("PORT", 8080),
		GRPCPort:    getEnvAsInt("GRPC_PORT", 9091),
		MetricsPort: getEnvAsInt("METRICS_PORT", 9090),

		// Database
		DatabaseDriver:  strings.ToLower(getEnv("DATABASE_DRIVER", "postgres")),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		AutoMigrate:     getEnvAsBool("AUTO_MIGRATE", true),
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 1*time.Minute),

		// Auth
		SupabaseURL:       getEnv("SUPABASE_URL", ""),
		SupabaseJWTSecret: getEnv("SUPABASE_JWT_SECRET", ""),

		// Ordering
		RedisURL:              getEnv("REDIS_URL", ""),
		LockTTL:               getEnvAsDuration("LOCK_TTL", 30*time.Second),
		LockWait:              getEnvAsDuration("LOCK_WAIT", 10*time.Second),
		RestorePositionPolicy: strings.ToLower(getEnv("RESTORE_POSITION_POLICY", "keep")),

		// Storage
		S3Endpoint:     getEnv("S3_ENDPOINT", ""),
		S3AccessKey:    getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:    getEnv("S3_SECRET_KEY", ""),
		S3Bucket:       getEnv("S3_BUCKET", "notely"),
		S3UseSSL:       getEnvAsBool("S3_USE_SSL", true),
		S3PublicURL:    getEnv("S3_PUBLIC_URL", ""),
		MaxUploadBytes: int64(getEnvAsInt("MAX_UPLOAD_BYTES", 10<<20)),

		// Search
		MeiliURL:    getEnv("MEILI_URL", ""),
		MeiliAPIKey: getEnv("MEILI_API_KEY", ""),

		// TLS
		TLSEnabled:  getEnvAsBool("TLS_ENABLED", false),
		TLSCertFile: getEnv("TLS_CERT_FILE", "/etc/tls/tls.crt"),
		TLSKeyFile:  getEnv("TLS_KEY_FILE", "/etc/tls/tls.key"),

		// Observability
		JaegerEndpoint: getEnv("JAEGER_ENDPOINT", "localhost:4317"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),

		// Graceful Shutdown
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		// Feature Flags
		EnableTracing:    getEnvAsBool("ENABLE_TRACING", false),
		EnableReflection: getEnvAsBool("ENABLE_REFLECTION", false),

		// Timeouts
		RequestTimeout:  getEnvAsDuration("REQUEST_TIMEOUT", 30*time.Second),
		DatabaseTimeout: getEnvAsDuration("DATABASE_TIMEOUT", 5*time.Second),
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	// Database URL is required
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DatabaseDriver != "postgres" && c.DatabaseDriver != "sqlite" {
		return fmt.Errorf("invalid database driver: %s (valid: postgres, sqlite)", c.DatabaseDriver)
	}

	// Every request is authenticated against the Supabase secret
	if c.SupabaseJWTSecret == "" {
		return fmt.Errorf("SUPABASE_JWT_SECRET is required")
	}

	// TLS files must exist if TLS is enabled
	if c.TLSEnabled {
		if c.TLSCertFile == "" || c.TLSKeyFile == "" {
			return fmt.Errorf("TLS_CERT_FILE and TLS_KEY_FILE are required when TLS is enabled")
		}
		if _, err := os.Stat(c.TLSCertFile); os.IsNotExist(err) {
			return fmt.Errorf("TLS certificate file not found: %s", c.TLSCertFile)
		}
		if _, err := os.Stat(c.TLSKeyFile); os.IsNotExist(err) {
			return fmt.Errorf("TLS key file not found: %s", c.TLSKeyFile)
		}
	}

	// Port validation
	for name, port := range map[string]int{"port": c.Port, "grpc port": c.GRPCPort, "metrics port": c.MetricsPort} {
		if port < 1 || port > 65535 {
			return fmt.Errorf("invalid %s: %d", name, port)
		}
	}
	if c.Port == c.GRPCPort || c.Port == c.MetricsPort || c.GRPCPort == c.MetricsPort {
		return fmt.Errorf("PORT, GRPC_PORT and METRICS_PORT must differ")
	}

	// Connection pool validation
	if c.MaxOpenConns < c.MaxIdleConns {
		return fmt.Errorf("max_open_conns (%d) must be >= max_idle_conns (%d)",
			c.MaxOpenConns, c.MaxIdleConns)
	}

	if c.RestorePositionPolicy != "keep" && c.RestorePositionPolicy != "append" {
		return fmt.Errorf("invalid restore position policy: %s (valid: keep, append)", c.RestorePositionPolicy)
	}

	if c.LockTTL <= 0 || c.LockWait <= 0 {
		return fmt.Errorf("LOCK_TTL and LOCK_WAIT must be positive")
	}

	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("invalid max upload size: %d", c.MaxUploadBytes)
	}

	if c.S3Endpoint != "" && (c.S3AccessKey == "" || c.S3SecretKey == "" || c.S3Bucket == "") {
		return fmt.Errorf("S3_ACCESS_KEY, S3_SECRET_KEY and S3_BUCKET are required when S3_ENDPOINT is set")
	}

	// Log level validation
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.LogLevel)
	}

	// Log format validation
	if c.LogFormat != "json" && c.LogFormat != "console" {
		return fmt.Errorf("invalid log format: %s (valid: json, console)", c.LogFormat)
	}

	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

type DatabaseConfig struct {
	Driver          string
	URL             string
	AutoMigrate     bool
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	Timeout         time.Duration
}

func (c *Config) GetDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:          c.DatabaseDriver,
		URL:             c.DatabaseURL,
		AutoMigrate:     c.AutoMigrate,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
		ConnMaxIdleTime: c.ConnMaxIdleTime,
		Timeout:         c.DatabaseTimeout,
	}
}

type ServerConfig struct {
	Port            int
	GRPCPort        int
	MetricsPort     int
	TLSEnabled      bool
	TLSCertFile     string
	TLSKeyFile      string
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration
}

func (c *Config) GetServerConfig() ServerConfig {
	return ServerConfig{
		Port:            c.Port,
		GRPCPort:        c.GRPCPort,
		MetricsPort:     c.MetricsPort,
		TLSEnabled:      c.TLSEnabled,
		TLSCertFile:     c.TLSCertFile,
		TLSKeyFile:      c.TLSKeyFile,
		ShutdownTimeout: c.ShutdownTimeout,
		RequestTimeout:  c.RequestTimeout,
	}
}

type StorageConfig struct {
	Endpoint       string
	AccessKey      string
	SecretKey      string
	Bucket         string
	UseSSL         bool
	PublicURL      string
	MaxUploadBytes int64
}

func (c *Config) GetStorageConfig() StorageConfig {
	return StorageConfig{
		Endpoint:       c.S3Endpoint,
		AccessKey:      c.S3AccessKey,
		SecretKey:      c.S3SecretKey,
		Bucket:         c.S3Bucket,
		UseSSL:         c.S3UseSSL,
		PublicURL:      c.S3PublicURL,
		MaxUploadBytes: c.MaxUploadBytes,
	}
}

type ObservabilityConfig struct {
	EnableTracing  bool
	JaegerEndpoint string
	LogLevel       string
	LogFormat      string
}

func (c *Config) GetObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		EnableTracing:  c.EnableTracing,
		JaegerEndpoint: c.JaegerEndpoint,
		LogLevel:       c.LogLevel,
		LogFormat:      c.LogFormat,
	}
}
