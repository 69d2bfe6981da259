package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort           string
	AppEnv            string
	AWSRegion         string
	AWSEndpointURL    string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID    string
	AWSSecretKey      string
	StoreDriver       string // dynamo | postgres | memory
	DatabaseDSN       string
	DynamoTables      DynamoTables
	TemplatesBucket   string
	TemplatesPrefix   string
	TypesFile         string
	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration
	SMTPHost          string
	SMTPPort          string
	SMTPFrom          string
	SMTPUsername      string
	SMTPPassword      string
	SMSDriver         string // log | sns | twilio
	SMSDefaultRegion  string
	SNSRegion         string
	Twilio            TwilioConfig
	PushDriver        string // log | fcm
	FCMProjectID      string
	FCMCredentials    string
	KafkaBrokers      []string
	KafkaTopic        string
	Scheduler         SchedulerConfig
	ChannelTimeout    time.Duration
	DispatchWorkers   int
	AllowedOrigins    []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users         string
	Devices       string
	Scheduled     string
	Notifications string
}

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	From       string
	BaseURL    string
}

type SchedulerConfig struct {
	Enabled   bool
	Interval  time.Duration
	BatchSize int
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:        getEnv("APP_PORT", "3000"),
		AppEnv:         getEnv("APP_ENV", "development"),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		StoreDriver:    getEnv("STORE_DRIVER", "dynamo"),
		DatabaseDSN:    getEnv("DATABASE_DSN", ""),
		DynamoTables: DynamoTables{
			Users:         getEnv("DYNAMO_TABLE_USERS", "users"),
			Devices:       getEnv("DYNAMO_TABLE_DEVICES", "devices"),
			Scheduled:     getEnv("DYNAMO_TABLE_SCHEDULED", "scheduled_notifications"),
			Notifications: getEnv("DYNAMO_TABLE_NOTIFICATIONS", "notifications"),
		},
		TemplatesBucket:   getEnv("TEMPLATES_BUCKET", ""),
		TemplatesPrefix:   getEnv("TEMPLATES_PREFIX", "templates/"),
		TypesFile:         getEnv("NOTIFICATION_TYPES_FILE", ""),
		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:         getEnvDuration("JWT_EXPIRY", 24*time.Hour),
		SMTPHost:          getEnv("SMTP_HOST", "localhost"),
		SMTPPort:          getEnv("SMTP_PORT", "1025"),
		SMTPFrom:          getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
		SMSDriver:         getEnv("SMS_DRIVER", "log"),
		SMSDefaultRegion:  getEnv("SMS_DEFAULT_REGION", "US"),
		SNSRegion:         getEnv("SNS_REGION", "us-east-1"),
		Twilio: TwilioConfig{
			AccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
			AuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
			From:       getEnv("TWILIO_FROM", ""),
			BaseURL:    getEnv("TWILIO_BASE_URL", "https://api.twilio.com"),
		},
		PushDriver:     getEnv("PUSH_DRIVER", "log"),
		FCMProjectID:   getEnv("FCM_PROJECT_ID", ""),
		FCMCredentials: getEnv("FCM_CREDENTIALS_FILE", ""),
		KafkaBrokers:   splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:     getEnv("KAFKA_TOPIC", "notifications"),
		Scheduler: SchedulerConfig{
			Enabled:   getEnvBool("SCHEDULER_ENABLED", true),
			Interval:  getEnvDuration("SCHEDULER_INTERVAL", time.Minute),
			BatchSize: getEnvInt("SCHEDULER_BATCH_SIZE", 50),
		},
		ChannelTimeout:  getEnvDuration("CHANNEL_TIMEOUT", 30*time.Second),
		DispatchWorkers: getEnvInt("DISPATCH_CONCURRENCY", 8),
		AllowedOrigins:  strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
