package ui

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"spt3g-viewer/internal/domain"
	"spt3g-viewer/internal/viewstate"

	. "maragu.dev/gomponents"
	data "maragu.dev/gomponents-datastar"
	. "maragu.dev/gomponents/html"
)

// sourceParam returns the unescaped {source} path segment.
func sourceParam(r *http.Request) string {
	raw := chi.URLParam(r, "source")
	if s, err := url.PathUnescape(raw); err == nil {
		return s
	}
	return raw
}

// Viewer renders the cutout page for one source.
func (h *Handler) Viewer(w http.ResponseWriter, r *http.Request) {
	source := sourceParam(r)
	records, err := h.Catalog.Load(r.Context())
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}
	if !hasSource(records, source) {
		h.renderServiceError(w, r, domain.ErrNotFound("source %q not found", source))
		return
	}

	sess := h.session(w, r)
	evs := []viewstate.Event{viewstate.SourceOpened{Source: source}}
	q := r.URL.Query()
	if raw := formString(q, "res"); raw != "" {
		evs = append(evs, viewstate.ResolutionChanged{Mode: viewstate.ResolutionMode(raw)})
	}
	if q.Get("close") != "" {
		evs = append(evs, viewstate.LightboxClosed{})
	}
	state, _ := sess.Dispatch(evs...)
	if id := formString(q, "enlarge"); id != "" {
		if panel, ok := viewstate.LookupPanel(id); ok {
			u := h.url(viewstate.CutoutURL(state.Resolution, panel, source))
			state, _ = sess.Dispatch(viewstate.ThumbnailClicked{URL: u})
		}
	}

	renderHTML(w, http.StatusOK, h.viewerPage(r, source, state))
}

// SaveNotes stores the note for a catalog source. Datastar requests get the
// status fragment back; plain form posts are redirected to the viewer.
func (h *Handler) SaveNotes(w http.ResponseWriter, r *http.Request) {
	source := sourceParam(r)
	if err := r.ParseForm(); err != nil {
		h.renderServiceError(w, r, domain.ErrValidation("invalid form"))
		return
	}
	records, err := h.Catalog.Load(r.Context())
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}
	if !hasSource(records, source) {
		h.renderServiceError(w, r, domain.ErrNotFound("source %q not found", source))
		return
	}

	sess := h.session(w, r)
	var ev viewstate.Event = viewstate.NoteSaved{Source: source}
	if err := h.Notes.Save(r.Context(), source, r.Form.Get("note")); err != nil {
		ev = viewstate.NoteSaveFailed{Source: source, Err: err}
	}
	_, effects := sess.Dispatch(ev)
	if _, ok := viewstate.FindEffect[viewstate.Recompute](effects); ok {
		sess.Forget()
	}

	if isDatastarRequest(r) {
		status, _ := viewstate.FindEffect[viewstate.ShowSaveStatus](effects)
		renderHTML(w, http.StatusOK, saveStatus(status.Status))
		return
	}
	http.Redirect(w, r, h.url(viewstate.ViewerPath(source)), http.StatusSeeOther)
}

// Navigate moves to the previous or next source of the session's displayed
// rows.
func (h *Handler) Navigate(w http.ResponseWriter, r *http.Request) {
	source := sourceParam(r)
	if err := r.ParseForm(); err != nil {
		h.renderServiceError(w, r, domain.ErrValidation("invalid form"))
		return
	}
	dir, err := viewstate.ParseDirection(r.Form.Get("direction"))
	if err != nil {
		http.Redirect(w, r, h.url(viewstate.ViewerPath(source)), http.StatusSeeOther)
		return
	}

	sess := h.session(w, r)
	state, _ := sess.Dispatch(viewstate.SourceOpened{Source: source})
	rows, err := h.displayed(r.Context(), state.Criteria)
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}
	_, effects := sess.Dispatch(viewstate.NavigateClicked{Direction: dir, Names: rows.Names()})
	h.followRedirect(w, r, effects, viewstate.ViewerPath(source))
}

// ToggleTheme flips the session theme and returns to the posted path.
func (h *Handler) ToggleTheme(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	h.session(w, r).Dispatch(viewstate.ThemeToggled{})
	http.Redirect(w, r, h.url(safeReturnPath(r.Form.Get("next"))), http.StatusSeeOther)
}

func (h *Handler) viewerPage(r *http.Request, source string, state viewstate.State) Node {
	viewerPath := viewstate.ViewerPath(source)
	redshift := "n/a"
	if z, ok := h.Catalog.Redshift(source); ok {
		redshift = strconv.FormatFloat(z, 'f', 4, 64)
	}

	rows := make([]Node, 0, len(viewstate.PanelRows))
	for _, row := range viewstate.PanelRows {
		rows = append(rows, Div(Class("panel-row"), Map(row, func(p viewstate.Panel) Node {
			src := h.url(viewstate.CutoutURL(state.Resolution, p, source))
			return Div(
				Class("panel"),
				A(
					Href(h.url(viewerPath+"?enlarge="+url.QueryEscape(p.ID))),
					Img(Src(src), Alt(p.Title+" cutout of "+source), Attr("loading", "lazy")),
				),
				P(Text(p.Title)),
			)
		})))
	}

	note := h.Notes.Get(source)

	return h.appPage(r, source, state.Theme, viewerPath,
		H2(Text(source)),
		P(Text("Photometric redshift: "+redshift)),
		h.resolutionForm(viewerPath, state.Resolution),
		Group(rows),
		infoBox(),
		Form(
			Class("notes"),
			Method("post"),
			Action(h.url(viewerPath+"/notes")),
			data.Signals(map[string]any{"note": note, "saved": note}),
			Attr("data-on:submit", "$saved = $note; @post('"+h.url(viewerPath+"/notes")+"', {contentType: 'form'})"),
			csrfField(r),
			Label(For("note"), Text("Notes")),
			Textarea(ID("note"), Name("note"), Rows("5"), data.Bind("note"), Text(note)),
			Button(Type("submit"), Class("btn btn-primary"), Text("Save notes")),
			Span(Class("unsaved"), Style("display: none"), data.Show("$note !== $saved"), Text("Unsaved changes")),
			saveStatus(state.SaveStatus),
		),
		Div(
			Class("viewer-nav"),
			navButton(r, h.url(viewerPath+"/navigate"), "prev", "Previous"),
			A(Href(h.url("/")), Class("btn"), Text("Back to Home")),
			navButton(r, h.url(viewerPath+"/navigate"), "next", "Next"),
		),
		h.lightbox(viewerPath, state.Enlarged),
	)
}

func (h *Handler) resolutionForm(viewerPath string, mode viewstate.ResolutionMode) Node {
	option := func(m viewstate.ResolutionMode, label string) Node {
		return Label(
			Input(Type("radio"), Name("res"), Value(string(m)), If(m == mode, Checked())),
			Text(" "+label),
		)
	}
	return Form(
		Method("get"),
		Action(h.url(viewerPath)),
		Attr("data-on:change", "el.requestSubmit()"),
		Span(Text("Resolution: ")),
		option(viewstate.ResolutionNative, "Native"),
		option(viewstate.ResolutionConvolved, "SPT-convolved"),
		NoScript(Button(Type("submit"), Class("btn"), Text("Apply"))),
	)
}

func navButton(r *http.Request, action, direction, label string) Node {
	return Form(
		Method("post"),
		Action(action),
		csrfField(r),
		Input(Type("hidden"), Name("direction"), Value(direction)),
		Button(Type("submit"), Class("btn"), Text(label)),
	)
}

func (h *Handler) lightbox(viewerPath, enlarged string) Node {
	if enlarged == "" {
		return nil
	}
	return Div(
		Class("lightbox"),
		Img(Src(enlarged), Alt("Enlarged cutout")),
		A(Href(h.url(viewerPath+"?close=1")), Class("btn"), Text("Close")),
	)
}

func saveStatus(s viewstate.SaveStatus) Node {
	class := "status-ok"
	if !s.OK {
		class = "error"
	}
	return Span(ID("save-status"), Class(class), Text(s.Message()))
}

func infoBox() Node {
	return Div(
		Class("info-box"),
		H4(Text("Cutout Information")),
		P(Strong(Text("Contours: ")), Text("Radio contours from SPT3G 220GHz overlaid on all images.")),
		P(Strong(Text("Resolution: ")), Text("Native shows original telescope resolution. SPT-Convolved shows all images convolved to SPT beam size (1'').")),
		P(Strong(Text("Modified Blackbody fits: ")), Text("SPIRE non-detections are all set to 10mJy upper limits. Corner plots show the posterior distribution from MCMC fitting.")),
	)
}
