package config

import (
	"os"
	"strconv"
	"time"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
}

type Platform struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type Slack struct {
	BotToken string
	Channel  string
}

type Planner struct {
	DefaultTimezone   string
	PostsCacheTTL     time.Duration
	AccountsCacheTTL  time.Duration
	ReadTimeout       time.Duration
	PageSize          int
	BulkScheduleDelay time.Duration
	ApprovalTTL       time.Duration
	AuthoringURL      string
}

type Config struct {
	Address     string
	PostgresURI string
	RedisURI    string
	FrontendURL string
	SecretKey   string
	CookieName  string
	CookieTTL   time.Duration
	R2          R2
	Platform    Platform
	Slack       Slack
	Planner     Planner
}

func LoadConfig() *Config {
	return &Config{
		Address:     getEnv("ADDRESS", ":3000"),
		PostgresURI: getEnv("POSTGRES_URI", ""),
		RedisURI:    getEnv("REDIS_URI", "localhost:6379"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),
		SecretKey:   getEnv("SECRET_KEY", ""),
		CookieName:  getEnv("COOKIE_NAME", "planner_session"),
		CookieTTL:   getDuration("COOKIE_TTL", 7*24*time.Hour),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
		},
		Platform: Platform{
			BaseURL: getEnv("LATE_API_URL", "https://getlate.dev/api"),
			APIKey:  getEnv("LATE_API_KEY", ""),
			Timeout: getDuration("LATE_API_TIMEOUT", 60*time.Second),
		},
		Slack: Slack{
			BotToken: getEnv("SLACK_BOT_TOKEN", ""),
			Channel:  getEnv("SLACK_CHANNEL", ""),
		},
		Planner: Planner{
			DefaultTimezone:   getEnv("DEFAULT_TIMEZONE", "Europe/London"),
			PostsCacheTTL:     getDuration("POSTS_CACHE_TTL", 30*time.Second),
			AccountsCacheTTL:  getDuration("ACCOUNTS_CACHE_TTL", time.Minute),
			ReadTimeout:       getDuration("READ_TIMEOUT", 10*time.Second),
			PageSize:          getInt("POSTS_PAGE_SIZE", 200),
			BulkScheduleDelay: getDuration("BULK_SCHEDULE_DELAY", time.Second),
			ApprovalTTL:       getDuration("APPROVAL_SESSION_TTL", 14*24*time.Hour),
			AuthoringURL:      getEnv("AUTHORING_URL", "http://localhost:5173/editor"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}
