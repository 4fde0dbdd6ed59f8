package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// NATS configuration
	NATS NATSConfig

	// Storage configuration
	Storage StorageConfig

	// Downloader configuration
	Downloader DownloaderConfig

	// Providers configuration
	Providers ProvidersConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Environment  string
	ServiceName  string
	LogLevel     string
	ShutdownTime time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// DSN returns the postgres connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// NATSConfig holds NATS configuration
type NATSConfig struct {
	Enabled       bool
	URL           string
	ClientID      string
	MaxReconnect  int
	ReconnectWait time.Duration
}

// StorageConfig holds content storage configuration
type StorageConfig struct {
	Type      string // local or s3
	LocalPath string
	S3Bucket  string
	S3Prefix  string
	S3Region  string
}

// DownloaderConfig holds download backend configuration
type DownloaderConfig struct {
	Type       string // discriminant tag, currently only sabnzbd
	URL        string
	APIKey     string
	AddingType string // PAYLOAD or REFERENCE
	Timeout    time.Duration
}

// ProvidersConfig holds metadata provider configuration
type ProvidersConfig struct {
	TMDBBaseURL   string
	TMDBAPIKey    string
	TVMazeBaseURL string
	Timeout       time.Duration
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Environment:  getEnv("ENVIRONMENT", "development"),
			ServiceName:  serviceName,
			LogLevel:     getEnv("LOG_LEVEL", "info"),
			ShutdownTime: getEnvAsDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnvAsInt("DB_PORT", 5432),
			User:         getEnv("DB_USER", "spyglass"),
			Password:     getEnv("DB_PASSWORD", "spyglass"),
			Database:     getEnv("DB_NAME", "spyglass"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getEnvAsDuration("DB_MAX_LIFETIME", 5*time.Minute),
		},
		NATS: NATSConfig{
			Enabled:       getEnvAsBool("NATS_ENABLED", false),
			URL:           getEnv("NATS_URL", "nats://localhost:4222"),
			ClientID:      getEnv("NATS_CLIENT_ID", serviceName),
			MaxReconnect:  getEnvAsInt("NATS_MAX_RECONNECT", 10),
			ReconnectWait: getEnvAsDuration("NATS_RECONNECT_WAIT", 2*time.Second),
		},
		Storage: StorageConfig{
			Type:      getEnv("STORAGE_TYPE", "local"),
			LocalPath: getEnv("STORAGE_LOCAL_PATH", "./data/nzbs"),
			S3Bucket:  getEnv("STORAGE_S3_BUCKET", ""),
			S3Prefix:  getEnv("STORAGE_S3_PREFIX", "nzbs"),
			S3Region:  getEnv("STORAGE_S3_REGION", "us-east-1"),
		},
		Downloader: DownloaderConfig{
			Type:       getEnv("DOWNLOADER_TYPE", "sabnzbd"),
			URL:        getEnv("DOWNLOADER_URL", "http://localhost:8080/sabnzbd"),
			APIKey:     getEnv("DOWNLOADER_API_KEY", ""),
			AddingType: getEnv("DOWNLOADER_ADDING_TYPE", "REFERENCE"),
			Timeout:    getEnvAsDuration("DOWNLOADER_TIMEOUT", 30*time.Second),
		},
		Providers: ProvidersConfig{
			TMDBBaseURL:   getEnv("TMDB_BASE_URL", ""),
			TMDBAPIKey:    getEnv("TMDB_API_KEY", ""),
			TVMazeBaseURL: getEnv("TVMAZE_BASE_URL", ""),
			Timeout:       getEnvAsDuration("PROVIDER_TIMEOUT", 10*time.Second),
		},
	}

	if cfg.Downloader.Type != "sabnzbd" {
		return nil, fmt.Errorf("unsupported downloader type %q", cfg.Downloader.Type)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
