// Package api provides the JSON API over the catalog, the sky map and notes.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"spt3g-viewer/internal/domain"
	"spt3g-viewer/internal/filter"
	"spt3g-viewer/internal/middleware"
	"spt3g-viewer/internal/notes"
	"spt3g-viewer/internal/skymap"
	"spt3g-viewer/internal/table"
	"spt3g-viewer/internal/viewstate"
)

const maxNoteBytes = 64 << 10

// Handler serves /api/v1.
type Handler struct {
	catalog        domain.CatalogLoader
	notes          *notes.Service
	renderer       *skymap.Renderer
	defaultColorBy domain.Column
	log            *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(
	catalog domain.CatalogLoader,
	notesSvc *notes.Service,
	renderer *skymap.Renderer,
	defaultColorBy domain.Column,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		catalog:        catalog,
		notes:          notesSvc,
		renderer:       renderer,
		defaultColorBy: defaultColorBy,
		log:            logger,
	}
}

// MountRoutes registers the API endpoints on r.
func MountRoutes(r chi.Router, h *Handler) {
	r.Get("/sources", h.ListSources)
	r.Get("/sources/{source}", h.GetSource)
	r.Get("/sources/{source}/navigate", h.NavigateSource)
	r.Get("/map", h.GetMap)
	r.Get("/notes", h.ListNotes)
	r.Get("/notes/{source}", h.GetNote)
	r.Put("/notes/{source}", h.PutNote)
}

func (h *Handler) logger(ctx context.Context) *slog.Logger {
	return middleware.Logger(ctx, h.log)
}

// displayed filters and sorts the projected catalog with criteria read
// from the query string.
func (h *Handler) displayed(ctx context.Context, q url.Values) (domain.RowSet, error) {
	c, err := filter.ParseQuery(q)
	if err != nil {
		return domain.RowSet{}, err
	}
	records, err := h.catalog.Load(ctx)
	if err != nil {
		return domain.RowSet{}, err
	}
	return filter.Apply(table.Project(*records, h.notes.All()), c), nil
}

func sourceParam(r *http.Request) string {
	raw := chi.URLParam(r, "source")
	if s, err := url.PathUnescape(raw); err == nil {
		return s
	}
	return raw
}

// ListSources handles GET /sources.
func (h *Handler) ListSources(w http.ResponseWriter, r *http.Request) {
	rows, err := h.displayed(r.Context(), r.URL.Query())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := SourceList{Count: rows.Count(), Rows: make([]Source, 0, rows.Count())}
	for _, rec := range rows.Rows {
		out.Rows = append(out.Rows, sourceToAPI(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

// GetSource handles GET /sources/{source}.
func (h *Handler) GetSource(w http.ResponseWriter, r *http.Request) {
	name := sourceParam(r)
	rows, err := h.displayed(r.Context(), url.Values{})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	rec, i := rows.Find(name)
	if i < 0 {
		h.writeError(w, r, domain.ErrNotFound("source %q not found", name))
		return
	}
	writeJSON(w, http.StatusOK, sourceToAPI(rec))
}

// NavigateSource handles GET /sources/{source}/navigate. The remaining
// query parameters select the rows navigated over.
func (h *Handler) NavigateSource(w http.ResponseWriter, r *http.Request) {
	name := sourceParam(r)
	q := r.URL.Query()
	dir, err := viewstate.ParseDirection(q.Get("direction"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	q.Del("direction")
	rows, err := h.displayed(r.Context(), q)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	out := Navigation{Current: name, Direction: dir.String()}
	if target, ok := viewstate.Navigate(dir, name, rows.Names()); ok {
		out.Target = &target
	}
	writeJSON(w, http.StatusOK, out)
}

// GetMap handles GET /map. color_by defaults to the configured column;
// highlight names the source to ring.
func (h *Handler) GetMap(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	colorBy := h.defaultColorBy
	if raw := strings.TrimSpace(q.Get("color_by")); raw != "" {
		colorBy = filter.ResolveColumn(raw)
	}
	highlight := strings.TrimSpace(q.Get("highlight"))
	q.Del("color_by")
	q.Del("highlight")

	rows, err := h.displayed(r.Context(), q)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	fig, err := h.renderer.Render(rows.Rows, colorBy, highlight)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fig)
}

// ListNotes handles GET /notes.
func (h *Handler) ListNotes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.notes.All())
}

// GetNote handles GET /notes/{source}. A source without a note has an empty
// text.
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	name := sourceParam(r)
	writeJSON(w, http.StatusOK, Note{SourceName: name, Text: h.notes.Get(name)})
}

// PutNote handles PUT /notes/{source}. Only catalog sources take notes.
func (h *Handler) PutNote(w http.ResponseWriter, r *http.Request) {
	name := sourceParam(r)
	if err := h.requireSource(r.Context(), name); err != nil {
		h.writeError(w, r, err)
		return
	}
	var req NoteRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxNoteBytes)).Decode(&req); err != nil {
		h.writeError(w, r, domain.ErrValidation("invalid request body: %v", err))
		return
	}
	if err := h.notes.Save(r.Context(), name, req.Text); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Note{SourceName: name, Text: req.Text})
}

func (h *Handler) requireSource(ctx context.Context, name string) error {
	set, err := h.catalog.Load(ctx)
	if err != nil {
		return err
	}
	for i := range set.Records {
		if set.Records[i].SourceName == name {
			return nil
		}
	}
	return domain.ErrNotFound("source %q not found", name)
}
