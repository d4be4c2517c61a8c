package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all configuration for the application
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Logging       LoggingConfig
	Distribution  DistributionConfig
	Bank          BankConfig
	ESign         ESignConfig
	Storage       StorageConfig
	Notifications NotificationConfig
	Lock          LockConfig
	Secrets       SecretsConfig
	Scheduler     SchedulerConfig
	CORS          CORSConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port string
	Host string
	Addr string // Combined host:port for convenience
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Path string
}

// LoggingConfig controls the logrus level and output format ("json" or "text").
type LoggingConfig struct {
	Level  string
	Format string
}

// DistributionConfig holds the engine defaults applied when an SPV or a
// distribution request leaves a value unset.
type DistributionConfig struct {
	DefaultTDSRate   decimal.Decimal
	DefaultFaceValue decimal.Decimal
}

// BankConfig holds the bank-payment collaborator settings.
type BankConfig struct {
	BaseURL   string
	APIKey    string
	RateLimit float64 // requests per second
	Timeout   time.Duration
}

// ESignConfig holds the e-sign collaborator settings.
type ESignConfig struct {
	BaseURL       string
	APIKey        string
	WebhookSecret string
	Timeout       time.Duration
}

// StorageConfig holds the S3-compatible document store settings.
// An empty Bucket selects the local in-memory store.
type StorageConfig struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PresignTTL      time.Duration
}

// NotificationConfig holds the RabbitMQ settings. An empty URL logs
// notifications instead of publishing them.
type NotificationConfig struct {
	RabbitMQURL string
	Queue       string
}

// LockConfig holds the batch lock settings. An empty RedisAddr selects the
// in-process locker.
type LockConfig struct {
	RedisAddr     string
	RedisPassword string
	BatchTTL      time.Duration
}

// SecretsConfig holds the fernet key used for bank account numbers at rest.
type SecretsConfig struct {
	BankDataKey string
}

// SchedulerConfig holds cron specs for periodic jobs.
type SchedulerConfig struct {
	SigningExpirySweep string
}

// CORSConfig holds CORS-specific configuration
type CORSConfig struct {
	AllowedOrigins []string
}

// Load reads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	tdsRate, err := decimal.NewFromString(getEnv("DEFAULT_TDS_RATE", "20"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_TDS_RATE: %w", err)
	}
	faceValue, err := decimal.NewFromString(getEnv("DEFAULT_FACE_VALUE", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_FACE_VALUE: %w", err)
	}
	if !faceValue.IsPositive() {
		return nil, fmt.Errorf("DEFAULT_FACE_VALUE must be positive")
	}

	rateLimit, err := strconv.ParseFloat(getEnv("BANK_RATE_LIMIT", "5"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid BANK_RATE_LIMIT: %w", err)
	}

	bankTimeout, err := getDuration("BANK_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	esignTimeout, err := getDuration("ESIGN_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}
	presignTTL, err := getDuration("S3_PRESIGN_TTL", "72h")
	if err != nil {
		return nil, err
	}
	lockTTL, err := getDuration("BATCH_LOCK_TTL", "5m")
	if err != nil {
		return nil, err
	}

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "5001"),
			Host: getEnv("SERVER_HOST", "localhost"),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/spv_engine.db"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Distribution: DistributionConfig{
			DefaultTDSRate:   tdsRate,
			DefaultFaceValue: faceValue,
		},
		Bank: BankConfig{
			BaseURL:   getEnv("BANK_API_URL", "http://localhost:8081"),
			APIKey:    os.Getenv("BANK_API_KEY"),
			RateLimit: rateLimit,
			Timeout:   bankTimeout,
		},
		ESign: ESignConfig{
			BaseURL:       getEnv("ESIGN_API_URL", "http://localhost:8082"),
			APIKey:        os.Getenv("ESIGN_API_KEY"),
			WebhookSecret: os.Getenv("ESIGN_WEBHOOK_SECRET"),
			Timeout:       esignTimeout,
		},
		Storage: StorageConfig{
			Bucket:          os.Getenv("S3_BUCKET"),
			Region:          getEnv("S3_REGION", "ap-south-1"),
			Endpoint:        os.Getenv("S3_ENDPOINT"),
			AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
			PresignTTL:      presignTTL,
		},
		Notifications: NotificationConfig{
			RabbitMQURL: os.Getenv("RABBITMQ_URL"),
			Queue:       getEnv("NOTIFY_QUEUE", "investor_notifications"),
		},
		Lock: LockConfig{
			RedisAddr:     os.Getenv("REDIS_ADDR"),
			RedisPassword: os.Getenv("REDIS_PASSWORD"),
			BatchTTL:      lockTTL,
		},
		Secrets: SecretsConfig{
			BankDataKey: os.Getenv("BANK_DATA_KEY"),
		},
		Scheduler: SchedulerConfig{
			SigningExpirySweep: getEnv("SIGNING_EXPIRY_SWEEP", "@every 15m"),
		},
		CORS: CORSConfig{
			AllowedOrigins: getList("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost"),
		},
	}

	// Combine host and port
	config.Server.Addr = fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port)

	return config, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getDuration(key, defaultValue string) (time.Duration, error) {
	d, err := time.ParseDuration(getEnv(key, defaultValue))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

// getList splits a comma-separated variable, dropping empty items.
func getList(key, defaultValue string) []string {
	var out []string
	for _, v := range strings.Split(getEnv(key, defaultValue), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
