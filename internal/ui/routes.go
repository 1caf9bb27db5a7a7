package ui

import (
	"io/fs"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"spt3g-viewer/internal/ui/assets"
)

// MountRoutes registers the UI on r. loginLimit throttles login attempts and
// may be nil.
func MountRoutes(r chi.Router, h *Handler, loginLimit func(http.Handler) http.Handler) {
	if loginLimit == nil {
		loginLimit = func(next http.Handler) http.Handler { return next }
	}
	r.Use(h.EnsureCSRFToken)

	staticFS, err := fs.Sub(assets.StaticFS(), "static")
	if err == nil {
		r.Handle("/static/*", http.StripPrefix(h.url("/static/"), http.FileServer(http.FS(staticFS))))
	}

	r.Get("/login", h.LoginPage)
	r.With(loginLimit, h.RequireCSRF).Post("/login", h.LoginSubmit)

	r.Group(func(r chi.Router) {
		r.Use(h.Auth.RequireLogin(h.url("/login")))
		r.Use(h.RequireCSRF)
		r.Get("/", h.Home)
		r.Get("/fragments/catalog", h.CatalogFragment)
		r.Get("/select", h.Select)
		r.Get("/viewer/{source}", h.Viewer)
		r.Post("/viewer/{source}/notes", h.SaveNotes)
		r.Post("/viewer/{source}/navigate", h.Navigate)
		r.Post("/theme", h.ToggleTheme)
		r.Post("/logout", h.Logout)
		r.Handle("/assets/*", h.assetHandler())
	})
}

// assetHandler serves cutouts and the map raster from AssetsDir without
// directory listings.
func (h *Handler) assetHandler() http.Handler {
	files := http.StripPrefix(h.url("/assets/"), http.FileServer(http.Dir(h.AssetsDir)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}
