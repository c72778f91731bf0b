package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	corslib "github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/wowfoxz/botiquin-data/internal/api/handler"
)

// NewRouter creates and configures the Chi router with all middleware and routes.
func NewRouter(deps handler.Deps) *chi.Mux {
	cfg := deps.Config
	r := chi.NewRouter()

	// --- Middleware stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(TimingMiddleware)
	r.Use(middleware.Compress(5)) // gzip

	// CORS
	c := corslib.New(corslib.Options{
		AllowedOrigins:   cfg.CORSAllowOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "HEAD", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Encoding", "Content-Type"},
		ExposedHeaders:   []string{"X-Process-Time"},
		AllowCredentials: false,
	})
	r.Use(c.Handler)

	// Rate limiting
	if cfg.RateLimitEnabled {
		r.Use(RateLimitMiddleware(cfg.RateLimitRequests, cfg.RateLimitWindow))
	}

	// --- Handler dependencies ---
	h := handler.New(deps)

	// --- Routes ---

	// Root
	r.Get("/", h.Root)

	// Health checks
	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.HealthCheck)
		r.Get("/db", h.HealthCheckDB)
		r.Get("/cache", h.HealthCheckCache)
	})

	// Swagger UI
	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/doc.json"),
	))

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Reminder scheduler trigger (cron-equivalent)
		r.Post("/reminders/run", h.RunReminders)

		// Web Push subscriptions
		r.Get("/push/vapid", h.GetVAPIDKey)
		r.Post("/push/subscriptions", h.CreateSubscription)
		r.Delete("/push/subscriptions/{subscriptionID}", h.DeleteSubscription)

		// Notification preferences
		r.Get("/users/{userID}/preferences", h.GetPreferences)
		r.Put("/users/{userID}/preferences", h.PutPreferences)

		// Intake registration
		r.Post("/intakes", h.RegisterIntake)
	})

	return r
}
