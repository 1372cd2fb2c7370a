package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App          AppConfig
	Database     DatabaseConfig
	SMTP         SMTPConfig
	Payment      PaymentConfig
	Notification NotificationConfig
	Scheduler    SchedulerConfig
	Telemetry    TelemetryConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	JwtSecret          string
}

type DatabaseConfig struct {
	Connection string
}

type SMTPConfig struct {
	Host       string
	Port       int
	Email      string
	Password   string
	SenderName string
}

type PaymentConfig struct {
	Provider          string // "paystack" or "midtrans"
	Currency          string
	CallbackURL       string
	PaystackSecretKey string
	PaystackBaseURL   string
	MidtransServerKey string
	MidtransIsProd    bool
	HTTPTimeout       time.Duration
	WebhookDedupTTL   time.Duration
}

type NotificationConfig struct {
	Mode        string // "sync" or "queue"
	Topic       string
	LogFilePath string
}

type SchedulerConfig struct {
	Enabled            bool
	ReminderInterval   time.Duration
	ExpirationInterval time.Duration
	ReminderDays       int
	LockTTL            time.Duration
}

type TelemetryConfig struct {
	OtelEnabled  bool
	OtelEndpoint string
	ServiceName  string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			JwtSecret:          getEnv("JWT_SECRET", ""),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		SMTP: SMTPConfig{
			Host:       getEnv("SMTP_HOST", ""),
			Port:       getEnvAsInt("SMTP_PORT", 587),
			Email:      getEnv("SMTP_EMAIL", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
			SenderName: getEnv("SMTP_SENDER_NAME", "Marketplace"),
		},
		Payment: PaymentConfig{
			Provider:          getEnv("PAYMENT_PROVIDER", "paystack"),
			Currency:          getEnv("PAYMENT_CURRENCY", "NGN"),
			CallbackURL:       getEnv("PAYMENT_CALLBACK_URL", "http://localhost:5173/billing/callback"),
			PaystackSecretKey: getEnv("PAYSTACK_SECRET_KEY", ""),
			PaystackBaseURL:   getEnv("PAYSTACK_BASE_URL", "https://api.paystack.co"),
			MidtransServerKey: getEnv("MIDTRANS_SERVER_KEY", ""),
			MidtransIsProd:    getEnvAsBool("MIDTRANS_IS_PRODUCTION", false),
			HTTPTimeout:       getEnvAsDuration("PAYMENT_HTTP_TIMEOUT", 30*time.Second),
			WebhookDedupTTL:   getEnvAsDuration("PAYMENT_WEBHOOK_DEDUP_TTL", 24*time.Hour),
		},
		Notification: NotificationConfig{
			Mode:        getEnv("NOTIFY_MODE", "sync"),
			Topic:       getEnv("NOTIFY_TOPIC", "subscription.lifecycle"),
			LogFilePath: getEnv("NOTIFY_LOG_FILE_PATH", "logs/notification.log"),
		},
		Scheduler: SchedulerConfig{
			Enabled:            getEnvAsBool("SCHEDULER_ENABLED", true),
			ReminderInterval:   getEnvAsDuration("SCHEDULER_REMINDER_INTERVAL", 24*time.Hour),
			ExpirationInterval: getEnvAsDuration("SCHEDULER_EXPIRATION_INTERVAL", time.Hour),
			ReminderDays:       getEnvAsInt("SCHEDULER_REMINDER_DAYS", 7),
			LockTTL:            getEnvAsDuration("SCHEDULER_LOCK_TTL", 30*time.Minute),
		},
		Telemetry: TelemetryConfig{
			OtelEnabled:  getEnvAsBool("OTEL_ENABLED", false),
			OtelEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "marketplace-backend"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go duration strings ("90m", "24h").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
