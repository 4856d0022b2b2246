package router

import (
	"net/http"

	"listing-admin-api/internal/handler"
	"listing-admin-api/internal/logger"
	"listing-admin-api/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler        *handler.Handler
	ListingHandler *handler.ListingHandler
	EditorHandler  *handler.EditorHandler
	AdminHandler   *handler.AdminHandler
	AuthHandler    *handler.AuthHandler
	AuthMiddleware func(http.Handler) http.Handler
	CORSOrigins    []string
	Logger         logger.Logger
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.NewRecovery(log))
	r.Use(middleware.RequestID)
	r.Use(middleware.NewLogging(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-API-Key", "X-Token", "X-Login-Key"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// PUBLIC routes (no auth required)
	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
	}

	// AUTHENTICATED routes (use Group to apply auth middleware only to these)
	r.Group(func(r chi.Router) {
		if cfg.AuthMiddleware != nil {
			r.Use(cfg.AuthMiddleware)
		}

		r.Route("/api/v1", func(r chi.Router) {
			if cfg.Handler != nil {
				r.Get("/health", cfg.Handler.Health)
				r.Get("/ready", cfg.Handler.Ready)
			}

			if cfg.AuthHandler != nil {
				r.Route("/auth", func(r chi.Router) {
					r.Post("/token", cfg.AuthHandler.GenerateToken)
					r.Post("/revoke", cfg.AuthHandler.RevokeToken)
					r.Post("/refresh", cfg.AuthHandler.RefreshToken)
				})
			}

			if cfg.ListingHandler != nil {
				r.Route("/listings", func(r chi.Router) {
					r.Get("/", cfg.ListingHandler.List)
					r.Post("/delete", cfg.ListingHandler.Delete)
					r.Get("/{id}", cfg.ListingHandler.Get)
				})
			}

			if cfg.EditorHandler != nil {
				r.Route("/editor/sessions", func(r chi.Router) {
					r.Post("/", cfg.EditorHandler.Open)
					r.Route("/{sid}", func(r chi.Router) {
						r.Get("/", cfg.EditorHandler.Get)
						r.Delete("/", cfg.EditorHandler.Close)
						r.Put("/target", cfg.EditorHandler.Target)
						r.Put("/fields/{key}", cfg.EditorHandler.SetField)
						r.Post("/features", cfg.EditorHandler.AddFeature)
						r.Delete("/features/{index}", cfg.EditorHandler.RemoveFeature)
						r.Post("/images", cfg.EditorHandler.AddImages)
						r.Delete("/images/{index}", cfg.EditorHandler.RemoveImage)
						r.Post("/submit", cfg.EditorHandler.Submit)
					})
				})
			}

			if cfg.AdminHandler != nil {
				r.Route("/admin", func(r chi.Router) {
					r.Get("/stats", cfg.AdminHandler.GetStats)
					r.Get("/health", cfg.AdminHandler.GetHealth)
					r.Post("/login", cfg.AdminHandler.VerifyLogin)
					r.Post("/cache/clear", cfg.AdminHandler.ClearCache)
				})
			}
		})
	})

	return r
}
