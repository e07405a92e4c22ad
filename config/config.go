package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	HTTP     ServerConfig
	MySQL    MySQLConfig
	Log      LogConfig
	Gateways GatewaysConfig
	SMS      SMSConfig
	Jobs     JobsConfig
}

type AppConfig struct {
	ServiceName string
	APIKey      string
}

type ServerConfig struct {
	Host string
	Port string
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type LogConfig struct {
	Level string
}

// GatewaysConfig holds environment-level gateway settings: provider base URLs
// and where providers should deliver callbacks. Tenant credentials live in
// the gateway_settings table, not here.
type GatewaysConfig struct {
	PublicBaseURL       string
	DarajaBaseURL       string
	DarajaHTTPTimeout   time.Duration
	PaystackBaseURL     string
	PaystackHTTPTimeout time.Duration
}

type SMSConfig struct {
	Provider    string
	Username    string
	APIKey      string
	SenderID    string
	BaseURL     string
	HTTPTimeout time.Duration
}

type JobsConfig struct {
	ExpireVouchersInterval time.Duration
	BatchSize              int32
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	return &Config{
		App: AppConfig{
			ServiceName: getEnv("APP_SERVICE_NAME", "vouchers-service"),
			APIKey:      getEnv("APP_API_KEY", ""),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		MySQL: MySQLConfig{
			DSN:             mysqlDSN,
			MaxOpenConns:    getIntEnv("MYSQL_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("MYSQL_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getMinutesEnv("MYSQL_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Gateways: GatewaysConfig{
			PublicBaseURL:       getEnv("GATEWAYS_PUBLIC_BASE_URL", ""),
			DarajaBaseURL:       getEnv("DARAJA_BASE_URL", "https://api.safaricom.co.ke"),
			DarajaHTTPTimeout:   getSecondsEnv("DARAJA_HTTP_TIMEOUT_SECONDS", 30*time.Second),
			PaystackBaseURL:     getEnv("PAYSTACK_BASE_URL", "https://api.paystack.co"),
			PaystackHTTPTimeout: getSecondsEnv("PAYSTACK_HTTP_TIMEOUT_SECONDS", 30*time.Second),
		},
		SMS: SMSConfig{
			Provider:    getEnv("SMS_PROVIDER", "none"),
			Username:    getEnv("SMS_USERNAME", ""),
			APIKey:      getEnv("SMS_API_KEY", ""),
			SenderID:    getEnv("SMS_SENDER_ID", ""),
			BaseURL:     getEnv("SMS_BASE_URL", ""),
			HTTPTimeout: getSecondsEnv("SMS_HTTP_TIMEOUT_SECONDS", 15*time.Second),
		},
		Jobs: JobsConfig{
			ExpireVouchersInterval: getMinutesEnv("JOBS_EXPIRE_VOUCHERS_INTERVAL_MINUTES", 10*time.Minute),
			BatchSize:              int32(getIntEnv("JOBS_BATCH_SIZE", 500)),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}
