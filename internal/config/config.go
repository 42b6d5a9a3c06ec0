package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	S3BucketName string

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration

	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	// SNSTopicARN is the topic the email dispatcher publishes jobs to.
	// When empty the dispatch worker delivers directly over SMTP.
	SNSTopicARN string

	// ActivationBaseURL is the public URL prefix embedded in activation links.
	ActivationBaseURL string

	AllowedOrigins []string // CORS allowed origins

	DispatchQueueSize int
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users            string
	ActivationTokens string
	Verifications    string
	TokenBlacklist   string
	BatchForms       string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort: getEnv("APP_PORT", "3000"),
		AppEnv:  getEnv("APP_ENV", "development"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Users:            getEnv("DYNAMO_TABLE_USERS", "users"),
			ActivationTokens: getEnv("DYNAMO_TABLE_ACTIVATION_TOKENS", "activation_tokens"),
			Verifications:    getEnv("DYNAMO_TABLE_VERIFICATIONS", "account_actives"),
			TokenBlacklist:   getEnv("DYNAMO_TABLE_TOKEN_BLACKLIST", "token_blacklist"),
			BatchForms:       getEnv("DYNAMO_TABLE_BATCH_FORMS", "batch_forms"),
		},

		S3BucketName: getEnv("S3_BUCKET_NAME", "batchform-avatars"),

		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:         time.Duration(getEnvInt("JWT_EXPIRY_HOURS", 24)) * time.Hour,

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "1025"),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		SNSTopicARN: getEnv("SNS_EMAIL_TOPIC_ARN", ""),

		ActivationBaseURL: getEnv("ACTIVATION_BASE_URL", "http://localhost:3000"),

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),

		DispatchQueueSize: getEnvInt("DISPATCH_QUEUE_SIZE", 128),
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
