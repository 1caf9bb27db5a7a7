package app

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"spt3g-viewer/internal/api"
	"spt3g-viewer/internal/config"
	"spt3g-viewer/internal/middleware"
	"spt3g-viewer/internal/ui"
)

// NewRouter mounts the UI at the configured base path and the JSON API at
// <base>/api/v1. /healthz stays at the root and skips the forwarded-by
// guard.
func NewRouter(cfg *config.Config, uiHandler *ui.Handler, apiHandler *api.Handler, auth *middleware.Authenticator) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	limits := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
	}

	mount := func(r chi.Router) {
		r.Route("/api/v1", func(r chi.Router) {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins:   cfg.CORSAllowedOrigins,
				AllowedMethods:   []string{http.MethodGet, http.MethodPut, http.MethodOptions},
				AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
				ExposedHeaders:   []string{"X-Request-ID"},
				AllowCredentials: false,
				MaxAge:           300,
			}))
			r.Use(middleware.RateLimiter(limits))
			r.Use(auth.RequireToken())
			api.MountRoutes(r, apiHandler)
		})
		r.Group(func(r chi.Router) {
			ui.MountRoutes(r, uiHandler, middleware.RateLimiter(limits))
		})
	}

	r.Group(func(r chi.Router) {
		if cfg.RequireForwardedBy != "" {
			r.Use(middleware.RequireForwardedBy(cfg.RequireForwardedBy))
		}
		if base := strings.TrimSuffix(cfg.BasePath, "/"); base != "" {
			r.Route(base, mount)
		} else {
			mount(r)
		}
	})
	return r
}
