package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/dental-assistant/internal/clinic"
	"github.com/wolfman30/dental-assistant/internal/conversation"
	"github.com/wolfman30/dental-assistant/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/dental-assistant/internal/http/middleware"
	"github.com/wolfman30/dental-assistant/internal/webchat"
	"github.com/wolfman30/dental-assistant/pkg/logging"
)

// Config holds router configuration. Nil handlers leave their routes unmounted.
type Config struct {
	Logger             *logging.Logger
	Conversation       *conversation.Handler
	Clinic             *clinic.Handler
	AdminAppointments  *handlers.AdminAppointmentsHandler
	Webchat            *webchat.Handler
	AdminAuthSecret    string
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// RateLimiter throttles patient chat traffic per client IP (optional).
	RateLimiter httpmiddleware.Limiter
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	r.Use(httpmiddleware.RequestLogger(logger))

	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// Patient-facing endpoints
	r.Group(func(public chi.Router) {
		if cfg.RateLimiter != nil {
			public.Use(httpmiddleware.RateLimit(cfg.RateLimiter, logger))
		}
		if cfg.Conversation != nil {
			cfg.Conversation.Routes(public)
		}
		if cfg.Clinic != nil {
			cfg.Clinic.PublicRoutes(public)
		}
		if cfg.Webchat != nil {
			public.Route("/webchat", func(r chi.Router) {
				r.Get("/ws", cfg.Webchat.HandleWebSocket)
				r.Get("/history", cfg.Webchat.HandleHistory)
			})
		}
	})

	// Staff back office
	if cfg.AdminAuthSecret != "" {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			if cfg.AdminAppointments != nil {
				admin.Mount("/appointments", cfg.AdminAppointments.Routes())
			}
			if cfg.Clinic != nil {
				admin.Mount("/clinic", cfg.Clinic.AdminRoutes())
			}
		})
	}

	return r
}
