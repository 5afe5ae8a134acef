package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/crowdwatch/internal/api/alerts"
	"github.com/good-yellow-bee/crowdwatch/internal/api/auth"
	"github.com/good-yellow-bee/crowdwatch/internal/api/events"
	"github.com/good-yellow-bee/crowdwatch/internal/api/middleware"
	"github.com/good-yellow-bee/crowdwatch/internal/api/stream"
	"github.com/good-yellow-bee/crowdwatch/internal/api/users"
	"github.com/good-yellow-bee/crowdwatch/internal/models"
)

// setupRouter creates and configures the chi router with all routes.
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	// Create JWT service
	jwtService := auth.NewJWTService(s.config.JWTSecret, s.config.AccessTokenTTL)

	// Create lockout tracker
	lockoutTracker := auth.NewLockoutTracker(s.config.LockoutThreshold, s.config.LockoutDuration)

	// Create rate limiters
	ipLimiter := middleware.NewRateLimiter(s.config.RateLimitPerIP)
	userLimiter := middleware.NewRateLimiter(s.config.RateLimitPerUser)

	// Global middleware
	r.Use(middleware.RequestLogger(s.config.Verbose))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Recoverer)
	r.Use(middleware.PrometheusMiddleware)

	eventHandler := events.NewHandler(s.storage, s.coordinator, s.predictor)
	alertHandler := alerts.NewHandler(s.storage)
	userHandler := users.NewHandler(s.storage)
	streamHandler := stream.NewHandler(s.storage, s.hub)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Auth routes (public, IP rate limited)
		r.Route("/auth", func(r chi.Router) {
			authHandler := auth.NewHandler(s.storage, jwtService, lockoutTracker)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimitByIP(ipLimiter))
				r.Post("/login", authHandler.Login)
			})
		})

		// QR scan: token knowledge is the credential, IP rate limited.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitByIP(ipLimiter))
			r.Post("/scan/{token}", eventHandler.Scan)
		})

		// Event routes (protected)
		r.Route("/events", func(r chi.Router) {
			r.Use(middleware.JWTAuth(jwtService))
			r.Use(middleware.RateLimitByUser(userLimiter))

			// Read endpoints (any authenticated user)
			r.Get("/", eventHandler.List)

			// Manager endpoints
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireManager)
				r.Post("/", eventHandler.Create)
			})

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", eventHandler.GetByID)
				r.Get("/status", eventHandler.Status)
				r.Get("/history", eventHandler.History)
				r.Get("/heatmap", eventHandler.Heatmap)

				// Observation submission (any authenticated user; sensors
				// and ML feeders get their own accounts)
				r.Post("/headcount", eventHandler.Ingest)

				// Manager endpoints
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireManager)
					r.Put("/", eventHandler.Update)
					r.Post("/validate", eventHandler.Validate)
				})

				// Delete is admin-only
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRole(models.RoleAdmin))
					r.Delete("/", eventHandler.Delete)
				})
			})
		})

		// Alert routes (protected)
		r.Route("/alerts", func(r chi.Router) {
			r.Use(middleware.JWTAuth(jwtService))
			r.Use(middleware.RateLimitByUser(userLimiter))

			r.Get("/", alertHandler.List)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireManager)
				r.Post("/{id}/ack", alertHandler.Acknowledge)
				r.Post("/{id}/resolve", alertHandler.Resolve)
			})
		})

		// User routes (protected)
		r.Route("/users", func(r chi.Router) {
			r.Use(middleware.JWTAuth(jwtService))
			r.Use(middleware.RateLimitByUser(userLimiter))

			// Current user endpoints (any authenticated user)
			r.Get("/me", userHandler.GetCurrentUser)
			r.Put("/me/password", userHandler.ChangePassword)

			// Admin-only endpoints
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(models.RoleAdmin))
				r.Get("/", userHandler.List)
				r.Post("/", userHandler.Create)
			})

			// Per-user endpoints (admin or self)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(middleware.RequireAdminOrSelf)
				r.Get("/", userHandler.GetByID)
				r.Put("/", userHandler.Update)

				// Delete is admin-only
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRole(models.RoleAdmin))
					r.Delete("/", userHandler.Delete)
				})
			})
		})
	})

	// Live event streams. JWTAuth accepts the token query parameter
	// for browser WebSocket clients.
	r.Route("/ws", func(r chi.Router) {
		r.Use(middleware.JWTAuth(jwtService))
		r.Get("/events/{id}", streamHandler.ServeEvent)
	})

	// Health checks (public, no rate limit)
	r.Get("/health", s.healthHandler.Health)
	r.Get("/health/live", s.healthHandler.Live)
	r.Get("/health/ready", s.healthHandler.Ready)

	return r
}
