package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"

	"github.com/redis/go-redis/v9"

	appconfig "github.com/jihoo509/third-site/internal/config"
	"github.com/jihoo509/third-site/internal/github"
	"github.com/jihoo509/third-site/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if !cfg.FallbackEnabled() {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available; local fallback store disabled", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildIssueStore returns the GitHub issues client, or nil when the issue
// store is not configured. Requests then fail with a configuration error
// instead of the process refusing to start.
func BuildIssueStore(cfg *appconfig.Config, logger *logging.Logger) *github.Client {
	if logger == nil {
		logger = logging.Default()
	}
	if err := cfg.ValidateIssueStore(); err != nil {
		logger.Warn("issue store not configured", "error", err)
		return nil
	}
	client, err := github.New(github.Config{
		BaseURL: strings.TrimSpace(cfg.GitHubAPIBaseURL),
		Token:   cfg.GitHubToken,
		Repo:    cfg.GitHubRepo,
		Logger:  logger.Component("github"),
	})
	if err != nil {
		logger.Warn("issue store client rejected configuration", "error", err)
		return nil
	}
	return client
}
