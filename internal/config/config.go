package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrMissingConfig is returned when a required setting is absent.
var ErrMissingConfig = errors.New("config: missing required settings")

// Config holds application configuration. It is built once per process and
// passed explicitly to every component.
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Issue store
	GitHubToken      string
	GitHubRepo       string
	GitHubAPIBaseURL string
	SubmitTimeout    time.Duration
	ListTimeout      time.Duration
	ExportTimeout    time.Duration
	ListLimit        int

	// Admin + intake
	AdminToken         string
	DefaultSite        string
	CORSAllowedOrigins []string
	SubmitRatePerSec   float64
	SubmitRateBurst    int
	CommitSHA          string

	// Local fallback store
	RedisAddr         string
	RedisPassword     string
	RedisTLS          bool
	FallbackKeyPrefix string

	// AWS (export archive, SES notifications)
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
	ExportArchiveBucket string

	// New-lead notifications
	NotifyProvider  string
	NotifyToEmail   string
	NotifyFromEmail string
	NotifyFromName  string
	SendGridAPIKey  string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		GitHubToken:      strings.TrimSpace(getEnv("GH_TOKEN", "")),
		GitHubRepo:       strings.TrimSpace(getEnv("GH_REPO_FULLNAME", "")),
		GitHubAPIBaseURL: getEnv("GITHUB_API_BASE_URL", "https://api.github.com"),
		SubmitTimeout:    getEnvAsDuration("SUBMIT_TIMEOUT", 8*time.Second),
		ListTimeout:      getEnvAsDuration("LIST_TIMEOUT", 8*time.Second),
		ExportTimeout:    getEnvAsDuration("EXPORT_TIMEOUT", 10*time.Second),
		ListLimit:        getEnvAsInt("LIST_LIMIT", 100),

		AdminToken:         getEnv("ADMIN_TOKEN", ""),
		DefaultSite:        getEnv("DEFAULT_SITE", "teeth"),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),
		SubmitRatePerSec:   getEnvAsFloat("SUBMIT_RATE_PER_SEC", 1),
		SubmitRateBurst:    getEnvAsInt("SUBMIT_RATE_BURST", 10),
		CommitSHA:          getEnv("COMMIT_SHA", getEnv("VERCEL_GIT_COMMIT_SHA", "")),

		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisTLS:          getEnvAsBool("REDIS_TLS", false),
		FallbackKeyPrefix: getEnv("FALLBACK_KEY_PREFIX", "consultationData"),

		AWSRegion:           getEnv("AWS_REGION", "ap-northeast-2"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		ExportArchiveBucket: getEnv("EXPORT_ARCHIVE_BUCKET", ""),

		NotifyProvider:  strings.ToLower(strings.TrimSpace(getEnv("NOTIFY_PROVIDER", ""))),
		NotifyToEmail:   getEnv("NOTIFY_TO_EMAIL", ""),
		NotifyFromEmail: getEnv("NOTIFY_FROM_EMAIL", getEnv("SENDGRID_FROM_EMAIL", "")),
		NotifyFromName:  getEnv("NOTIFY_FROM_NAME", getEnv("SENDGRID_FROM_NAME", "상담신청 알림")),
		SendGridAPIKey:  getEnv("SENDGRID_API_KEY", ""),
	}
}

// ValidateIssueStore reports which issue-store settings are missing.
// The returned error wraps ErrMissingConfig.
func (c *Config) ValidateIssueStore() error {
	if c == nil {
		return fmt.Errorf("%w: GH_TOKEN, GH_REPO_FULLNAME", ErrMissingConfig)
	}
	var missing []string
	if strings.TrimSpace(c.GitHubToken) == "" {
		missing = append(missing, "GH_TOKEN")
	}
	if strings.TrimSpace(c.GitHubRepo) == "" {
		missing = append(missing, "GH_REPO_FULLNAME")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
	}
	return nil
}

// FallbackEnabled reports whether the Redis-backed fallback store is configured.
func (c *Config) FallbackEnabled() bool {
	return c != nil && strings.TrimSpace(c.RedisAddr) != ""
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping blank entries.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
