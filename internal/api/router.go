package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"honeypot-lab/internal/api/handlers"
	apimiddleware "honeypot-lab/internal/api/middleware"
	"honeypot-lab/internal/config"
	"honeypot-lab/pkg/logger"
)

// Router holds dependencies for the API router
type Router struct {
	config   config.Config
	handlers *handlers.Handlers
	limiter  apimiddleware.RateLimitStore
	logger   *logger.Logger
}

// NewRouter creates a new Router instance. limiter may be nil, which
// disables rate limiting regardless of configuration.
func NewRouter(cfg config.Config, h *handlers.Handlers, limiter apimiddleware.RateLimitStore, log *logger.Logger) *Router {
	return &Router{
		config:   cfg,
		handlers: h,
		limiter:  limiter,
		logger:   log.WithComponent("router"),
	}
}

// Setup sets up the Chi router with all routes and middleware
func (r *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(apimiddleware.Logger(r.logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   r.config.CORS.AllowedOrigins,
		AllowedMethods:   r.config.CORS.AllowedMethods,
		AllowedHeaders:   r.config.CORS.AllowedHeaders,
		AllowCredentials: r.config.CORS.AllowCredentials,
		MaxAge:           r.config.CORS.MaxAge,
	}))

	// Public routes
	router.Group(func(pub chi.Router) {
		pub.Get("/", r.handlers.Health.Home)
		pub.Get("/health", r.handlers.Health.Check)
		pub.Get("/ready", r.handlers.Health.Ready)
	})

	router.Route("/v1", func(v1 chi.Router) {
		v1.Use(apimiddleware.APIKeyAuth(r.config.Auth.APIKey))
		if r.config.RateLimit.Enabled && r.limiter != nil {
			v1.Use(apimiddleware.RateLimiter(r.limiter, r.config.RateLimit, r.logger))
		}

		v1.Post("/message", r.handlers.Message.Handle)
		v1.Post("/classify", r.handlers.Classify.Classify)
		v1.Get("/stats", r.handlers.Stats.Get)

		v1.Group(func(admin chi.Router) {
			admin.Use(apimiddleware.AdminAuth(r.config.Auth.AdminToken))
			admin.Get("/reports", r.handlers.Reports.List)
		})
	})

	if r.config.Debug.Enabled {
		router.Route("/debug", func(debug chi.Router) {
			debug.Use(apimiddleware.AdminAuth(r.config.Auth.AdminToken))
			debug.Get("/session/{sessionId}", r.handlers.Debug.Session)
		})
	}

	return router
}
