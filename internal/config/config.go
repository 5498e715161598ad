package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/awstrack/awstrack/internal/domain/analytics"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	AWS       AWSConfig
	Monitor   MonitorConfig
	Detection DetectionConfig
	Analytics AnalyticsConfig
	Alerting  AlertingConfig
	Redis     RedisConfig
	Database  DatabaseConfig
	Logging   LoggingConfig
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int `validate:"min=1,max=65535"`
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	FrontendURL     string
}

// AWSConfig contains AWS credentials and source configuration
type AWSConfig struct {
	Region          string `validate:"required"`
	AccessKeyID     string
	SecretAccessKey string
	// CloudTrail log archive; used by the S3 source when set
	TrailBucket    string
	TrailKeyPrefix string
}

// MonitorConfig contains per-agent scheduling configuration
type MonitorConfig struct {
	CloudTrailInterval time.Duration `validate:"min=1s"`
	CostInterval       time.Duration `validate:"min=1s"`
	AnalyticsInterval  time.Duration `validate:"min=1s"`
	// How far back the first cycle of each agent looks
	InitialLookback time.Duration `validate:"min=1m"`
}

// DetectionConfig contains the rule sets for activity and cost classification
type DetectionConfig struct {
	HighRiskOperations []string `validate:"min=1"`
	AccessDeniedCodes  []string
	SuspiciousAgents   []string
	SuspiciousIPs      []string
	// impactAmount < Warning => info, < Critical => warning, else critical
	WarningThreshold  float64 `validate:"gt=0"`
	CriticalThreshold float64 `validate:"gt=0"`
}

// ScoreWeights are the tunable weights of the activity score formula.
type ScoreWeights struct {
	Total            float64
	Write            float64
	HighRisk         float64
	ErrorPenalty     float64
	RecencyBonusDays int
}

// Domain converts the config weights into the analytics domain type.
func (w ScoreWeights) Domain() analytics.ScoreWeights {
	return analytics.ScoreWeights{
		Total:            w.Total,
		Write:            w.Write,
		HighRisk:         w.HighRisk,
		ErrorPenalty:     w.ErrorPenalty,
		RecencyBonusDays: w.RecencyBonusDays,
	}
}

// CategoryBounds are the lower bounds of each usage category above inactive.
type CategoryBounds struct {
	Light     int `validate:"min=1"`
	Moderate  int
	Heavy     int
	VeryHeavy int
}

// Domain converts the config bounds into the analytics domain type.
func (b CategoryBounds) Domain() analytics.CategoryBounds {
	return analytics.CategoryBounds{
		Light:     b.Light,
		Moderate:  b.Moderate,
		Heavy:     b.Heavy,
		VeryHeavy: b.VeryHeavy,
	}
}

// AnalyticsConfig contains aggregator tuning
type AnalyticsConfig struct {
	Weights    ScoreWeights
	Categories CategoryBounds
	// Buffer sizes for the recent flagged-event / anomaly queries
	RecentBufferSize int `validate:"min=1"`
}

// AlertingConfig contains alert dispatch configuration
type AlertingConfig struct {
	Channels       []string
	DedupRetention time.Duration `validate:"min=1s"`
	DedupMaxSize   int           `validate:"min=1"`
	SlackWebhookURL string
	SlackChannel    string
	SNSTopicARN     string
	EmailFrom       string
	EmailTo         []string
}

// RedisConfig contains the optional Redis dedup cache configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// DatabaseConfig contains the embedded SQLite store configuration
type DatabaseConfig struct {
	Path string
	// Cron expression for the aggregator snapshot job
	SnapshotSchedule string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string
	Format string // json or console
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors as it's optional)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			FrontendURL:     getEnv("FRONTEND_URL", "http://localhost:3000"),
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			TrailBucket:     getEnv("CLOUDTRAIL_S3_BUCKET", ""),
			TrailKeyPrefix:  getEnv("CLOUDTRAIL_LOG_PREFIX", "CloudTrail/"),
		},
		Monitor: MonitorConfig{
			CloudTrailInterval: getEnvAsDuration("CLOUDTRAIL_CHECK_INTERVAL", 60*time.Second),
			CostInterval:       getEnvAsDuration("COST_CHECK_INTERVAL", time.Hour),
			AnalyticsInterval:  getEnvAsDuration("ANALYTICS_INTERVAL", 5*time.Minute),
			InitialLookback:    getEnvAsDuration("INITIAL_LOOKBACK", time.Hour),
		},
		Detection: DetectionConfig{
			HighRiskOperations: getEnvAsSlice("HIGH_RISK_OPERATIONS", defaultHighRiskOperations),
			AccessDeniedCodes:  getEnvAsSlice("ACCESS_DENIED_CODES", defaultAccessDeniedCodes),
			SuspiciousAgents:   getEnvAsSlice("SUSPICIOUS_USER_AGENTS", defaultSuspiciousAgents),
			SuspiciousIPs:      getEnvAsSlice("SUSPICIOUS_SOURCE_IPS", nil),
			WarningThreshold:   getEnvAsFloat("COST_WARNING_THRESHOLD", 1000),
			CriticalThreshold:  getEnvAsFloat("COST_CRITICAL_THRESHOLD", 10000),
		},
		Analytics: AnalyticsConfig{
			Weights: ScoreWeights{
				Total:            getEnvAsFloat("SCORE_WEIGHT_TOTAL", 1.0),
				Write:            getEnvAsFloat("SCORE_WEIGHT_WRITE", 2.0),
				HighRisk:         getEnvAsFloat("SCORE_WEIGHT_HIGH_RISK", 5.0),
				ErrorPenalty:     getEnvAsFloat("SCORE_ERROR_PENALTY", 0.5),
				RecencyBonusDays: getEnvAsInt("SCORE_RECENCY_BONUS_DAYS", 10),
			},
			Categories: CategoryBounds{
				Light:     getEnvAsInt("USAGE_LIGHT_MIN", 1),
				Moderate:  getEnvAsInt("USAGE_MODERATE_MIN", 10),
				Heavy:     getEnvAsInt("USAGE_HEAVY_MIN", 100),
				VeryHeavy: getEnvAsInt("USAGE_VERY_HEAVY_MIN", 500),
			},
			RecentBufferSize: getEnvAsInt("RECENT_BUFFER_SIZE", 200),
		},
		Alerting: AlertingConfig{
			Channels:        getEnvAsSlice("ALERT_CHANNELS", []string{"slack"}),
			DedupRetention:  getEnvAsDuration("ALERT_DEDUP_RETENTION", 24*time.Hour),
			DedupMaxSize:    getEnvAsInt("ALERT_DEDUP_MAX_SIZE", 10000),
			SlackWebhookURL: getEnv("SLACK_WEBHOOK_URL", ""),
			SlackChannel:    getEnv("SLACK_CHANNEL", "#alerts"),
			SNSTopicARN:     getEnv("SNS_TOPIC_ARN", ""),
			EmailFrom:       getEnv("EMAIL_FROM", "noreply@example.com"),
			EmailTo:         getEnvAsSlice("EMAIL_TO", nil),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Database: DatabaseConfig{
			Path:             getEnv("DB_PATH", "./awstrack.db"),
			SnapshotSchedule: getEnv("SNAPSHOT_SCHEDULE", "0 * * * *"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

var defaultHighRiskOperations = []string{
	"DeleteBucket",
	"TerminateInstances",
	"DeleteDBInstance",
	"DeleteUser",
	"DeleteTrail",
	"StopLogging",
	"PutBucketPolicy",
	"PutUserPolicy",
	"AttachRolePolicy",
	"DetachRolePolicy",
	"CreateAccessKey",
	"DeleteAccessKey",
}

var defaultAccessDeniedCodes = []string{
	"AccessDenied",
	"UnauthorizedOperation",
	"Client.UnauthorizedOperation",
}

var defaultSuspiciousAgents = []string{"bot", "scanner", "curl"}

var validate = validator.New()

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	if c.Detection.WarningThreshold >= c.Detection.CriticalThreshold {
		return fmt.Errorf("COST_WARNING_THRESHOLD (%.2f) must be below COST_CRITICAL_THRESHOLD (%.2f)",
			c.Detection.WarningThreshold, c.Detection.CriticalThreshold)
	}

	b := c.Analytics.Categories
	if !(b.Light < b.Moderate && b.Moderate < b.Heavy && b.Heavy < b.VeryHeavy) {
		return fmt.Errorf("usage category bounds must be strictly increasing: %d < %d < %d < %d",
			b.Light, b.Moderate, b.Heavy, b.VeryHeavy)
	}

	for _, ch := range c.Alerting.Channels {
		switch ch {
		case "slack", "sns", "email":
		default:
			return fmt.Errorf("unknown alert channel: %s", ch)
		}
	}

	return nil
}

// Helper functions

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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
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

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
