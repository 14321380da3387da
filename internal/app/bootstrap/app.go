package bootstrap

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/jihoo509/third-site/internal/api/router"
	appconfig "github.com/jihoo509/third-site/internal/config"
	"github.com/jihoo509/third-site/internal/fallback"
	"github.com/jihoo509/third-site/internal/http/handlers"
	httpmiddleware "github.com/jihoo509/third-site/internal/http/middleware"
	"github.com/jihoo509/third-site/internal/leads"
	"github.com/jihoo509/third-site/internal/observability/metrics"
	"github.com/jihoo509/third-site/pkg/logging"
)

// App is the fully wired HTTP application shared by cmd/api and cmd/lambda.
type App struct {
	Handler http.Handler
	Redis   *redis.Client

	limiter *httpmiddleware.RateLimiter
	service *leads.Service
}

// Options overrides pieces of the graph, mainly for tests.
type Options struct {
	// IssueStore replaces the GitHub client.
	IssueStore leads.IssueStore
	// AWSLoader replaces DefaultAWSLoader.
	AWSLoader AWSLoader
	// Registry receives the application metrics. A fresh registry is used
	// when nil.
	Registry *prometheus.Registry
}

// Build wires config into a ready-to-serve App. Optional features (Redis
// fallback, S3 archive, notifications) degrade to disabled on missing
// configuration; only a broken AWS setup for an enabled feature fails.
func Build(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, opts Options) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	load := opts.AWSLoader
	if load == nil {
		load = DefaultAWSLoader(cfg)
	}

	registry := opts.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	leadMetrics := metrics.NewLeadMetrics(registry)

	serviceOpts := []leads.ServiceOption{leads.WithMetrics(leadMetrics)}

	archiver, err := BuildArchiver(ctx, cfg, load, logger)
	if err != nil {
		return nil, err
	}
	if archiver != nil {
		serviceOpts = append(serviceOpts, leads.WithArchiver(archiver))
	}

	notifier, err := BuildNotifier(ctx, cfg, load, logger)
	if err != nil {
		return nil, err
	}
	if notifier != nil {
		serviceOpts = append(serviceOpts, leads.WithNotifier(notifier))
	}

	store := opts.IssueStore
	if store == nil {
		if client := BuildIssueStore(cfg, logger); client != nil {
			store = client
		}
	}
	service := leads.NewService(cfg, store, logger.Component("leads"), serviceOpts...)

	redisClient := BuildRedisClient(ctx, cfg, logger, true)
	fallbackStore := fallback.NewStore(redisClient, cfg.FallbackKeyPrefix,
		fallback.WithMetrics(leadMetrics),
		fallback.WithLogger(logger.Component("fallback")),
	)

	var limiter *httpmiddleware.RateLimiter
	if cfg.SubmitRatePerSec > 0 {
		limiter = httpmiddleware.NewRateLimiter(cfg.SubmitRatePerSec, cfg.SubmitRateBurst)
	}

	handler := router.New(&router.Config{
		Logger:             logger,
		LeadsHandler:       leads.NewHandler(service, logger.Component("leads")),
		FallbackHandler:    fallback.NewHandler(fallbackStore, logger.Component("fallback")),
		Probes:             handlers.NewProbeHandler(cfg),
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		AdminToken:         cfg.AdminToken,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		SubmitLimiter:      limiter,
	})

	return &App{Handler: handler, Redis: redisClient, limiter: limiter, service: service}, nil
}

// Close waits for pending export archives and releases background resources.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	if a.service != nil {
		a.service.Wait()
	}
	if a.limiter != nil {
		a.limiter.Stop()
	}
	if a.Redis != nil {
		return a.Redis.Close()
	}
	return nil
}
