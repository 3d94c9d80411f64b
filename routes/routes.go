package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/upb/ai-product-council/app"
	"github.com/upb/ai-product-council/handlers"
	"github.com/upb/ai-product-council/middleware"
	"github.com/upb/ai-product-council/utils"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(chimw.Recoverer)

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", middleware.ProcessTimeHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	health := handlers.NewHealthHandler(deps.DB, deps.Orchestrator, deps.Config.Version, deps.Logger)
	refine := handlers.NewRefinementHandler(deps.Refinement, deps.Logger)
	council := handlers.NewFallbackHandler(deps.Orchestrator, deps.Logger)

	// Health check endpoints
	r.Get("/healthz", handlers.HealthCheck(deps))
	r.Get("/readyz", health.HandleReadiness)
	r.Get("/health", health.HandleHealth)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		if deps.Config.RateLimit.Enabled && deps.RateLimiter != nil {
			r.Use(middleware.NewRateLimitMiddleware(deps.RateLimiter, deps.Logger).Limit)
		}

		r.Get("/status", handlers.StatusHandler(deps))

		r.Route("/refine", func(r chi.Router) {
			r.Post("/", refine.HandleSubmit)
			r.Get("/", refine.HandleList)
			r.Post("/sync", refine.HandleSync)
			r.Get("/{sessionID}", refine.HandleGet)
		})

		r.Route("/fallback", func(r chi.Router) {
			r.Get("/status", council.HandleStatus)
			r.Get("/health", council.HandleHealth)
			r.Get("/methods", council.HandleMethods)
			r.Post("/reset", council.HandleReset)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteError(w, http.StatusNotFound, "endpoint not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
	})

	if deps.Config.Observability.TracingEnabled {
		return otelhttp.NewHandler(r, deps.Config.Observability.ServiceName)
	}
	return r
}
