// Package ui serves the server-rendered catalog browser.
package ui

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	gomponents "maragu.dev/gomponents"

	"spt3g-viewer/internal/domain"
	"spt3g-viewer/internal/filter"
	"spt3g-viewer/internal/middleware"
	"spt3g-viewer/internal/notes"
	"spt3g-viewer/internal/skymap"
	"spt3g-viewer/internal/table"
	"spt3g-viewer/internal/viewstate"
)

const sessionCookieName = "spt3g_session"

// CatalogReader is the read side of the catalog the UI needs.
// Implemented by catalog.Store.
type CatalogReader interface {
	domain.CatalogLoader
	Redshift(source string) (float64, bool)
}

// Handler serves the HTML pages. BasePath is the "/"-terminated prefix the
// router is mounted under; every generated link is rooted there.
type Handler struct {
	Catalog    CatalogReader
	Notes      *notes.Service
	Map        *skymap.Renderer
	Sessions   *viewstate.Store
	Auth       *middleware.Authenticator
	AssetsDir  string
	BasePath   string
	Production bool
	Logger     *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(
	catalog CatalogReader,
	notesSvc *notes.Service,
	renderer *skymap.Renderer,
	sessions *viewstate.Store,
	auth *middleware.Authenticator,
	assetsDir string,
	basePath string,
	production bool,
	logger *slog.Logger,
) *Handler {
	if basePath == "" {
		basePath = "/"
	}
	return &Handler{
		Catalog:    catalog,
		Notes:      notesSvc,
		Map:        renderer,
		Sessions:   sessions,
		Auth:       auth,
		AssetsDir:  assetsDir,
		BasePath:   basePath,
		Production: production,
		Logger:     logger,
	}
}

// url roots an application path at the base path.
func (h *Handler) url(p string) string {
	return strings.TrimSuffix(h.BasePath, "/") + p
}

func (h *Handler) logger(ctx context.Context) *slog.Logger {
	return middleware.Logger(ctx, h.Logger)
}

// session returns the caller's view session, issuing a cookie for new ones.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) *viewstate.Session {
	var id string
	if c, err := r.Cookie(sessionCookieName); err == nil {
		id = c.Value
	}
	sess := h.Sessions.Ensure(id)
	if sess.ID != id {
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookieName,
			Value:    sess.ID,
			Path:     h.BasePath,
			HttpOnly: true,
			Secure:   h.Production,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return sess
}

// displayed runs the full pipeline: load, project, filter and sort.
func (h *Handler) displayed(ctx context.Context, c domain.Criteria) (domain.RowSet, error) {
	records, err := h.Catalog.Load(ctx)
	if err != nil {
		return domain.RowSet{}, err
	}
	return filter.Apply(table.Project(*records, h.Notes.All()), c), nil
}

func renderHTML(w http.ResponseWriter, status int, node gomponents.Node) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = node.Render(w)
}

func isDatastarRequest(r *http.Request) bool {
	return r.Header.Get("Datastar-Request") == "true"
}

func userName(ctx context.Context) string {
	u, ok := domain.UserFromContext(ctx)
	if !ok || u.Name == "" {
		return "unknown"
	}
	return u.Name
}
