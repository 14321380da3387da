package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jihoo509/third-site/internal/fallback"
	"github.com/jihoo509/third-site/internal/http/handlers"
	httpmiddleware "github.com/jihoo509/third-site/internal/http/middleware"
	"github.com/jihoo509/third-site/internal/leads"
	"github.com/jihoo509/third-site/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	LeadsHandler       *leads.Handler
	FallbackHandler    *fallback.Handler
	Probes             *handlers.ProbeHandler
	MetricsHandler     http.Handler
	AdminToken         string
	CORSAllowedOrigins []string

	// SubmitLimiter throttles POST /api/submit per client; nil disables it.
	SubmitLimiter *httpmiddleware.RateLimiter
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// chi's Logger prints the raw URI, which carries the admin token.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}

	r.Route("/api", func(api chi.Router) {
		if cfg.Probes != nil {
			api.HandleFunc("/health", cfg.Probes.Health)
			api.HandleFunc("/debug", cfg.Probes.Health)
			api.HandleFunc("/ping", cfg.Probes.Ping)
			api.HandleFunc("/version", cfg.Probes.Version)
			api.HandleFunc("/netcheck", cfg.Probes.NetCheck)
		}

		if cfg.LeadsHandler != nil {
			submit := http.Handler(http.HandlerFunc(cfg.LeadsHandler.Submit))
			if cfg.SubmitLimiter != nil {
				submit = cfg.SubmitLimiter.Middleware(submit)
			}
			api.Handle("/submit", submit)
		}

		api.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminToken(cfg.AdminToken))
			if cfg.LeadsHandler != nil {
				admin.Get("/list", cfg.LeadsHandler.List)
				admin.Get("/export", cfg.LeadsHandler.Export)
			}
			if cfg.FallbackHandler != nil {
				admin.Route("/local", cfg.FallbackHandler.Routes)
			}
		})
	})

	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	return r
}
