package ui

import (
	"net/http"
	"net/url"

	"github.com/dustin/go-humanize"

	"spt3g-viewer/internal/domain"
	"spt3g-viewer/internal/skymap"
	"spt3g-viewer/internal/table"
	"spt3g-viewer/internal/viewstate"

	. "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"
)

// Home renders the catalog table and sky map for the session's criteria.
// Query parameters are applied to the session first.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	var formErr string
	evs, err := eventsFromQuery(r.URL.Query())
	if err != nil {
		formErr = err.Error()
		evs = nil
	}
	state, _ := sess.Dispatch(evs...)

	// A full page always re-derives its rows.
	rows, err := h.displayed(r.Context(), state.Criteria)
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}
	sess.Remember(state.Criteria, rows)
	fig, err := h.Map.Render(rows.Rows, state.ColorBy, state.Selected)
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	renderHTML(w, http.StatusOK, h.appPage(r, "Catalog", state.Theme, "/",
		h.filterForm(state, formErr),
		Div(
			Class("layout"),
			Section(
				resultCount(rows.Count()),
				h.catalogTable(rows, state),
			),
			Section(h.skyMap(fig)),
		),
	))
}

// CatalogFragment applies a debounced filter change and returns the
// elements to patch. Recompute re-derives the rows and patches the count and
// table; RenderMap patches the map, reusing the session's rows when the
// criteria did not change. A response superseded by a newer request is
// dropped with 204.
func (h *Handler) CatalogFragment(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	ticket := sess.Begin()

	evs, err := eventsFromQuery(r.URL.Query())
	if err != nil {
		renderHTML(w, http.StatusOK, filterError(err.Error()))
		return
	}

	candidate, effects := viewstate.ReduceAll(sess.State(), evs...)
	_, recompute := viewstate.FindEffect[viewstate.Recompute](effects)
	_, renderMap := viewstate.FindEffect[viewstate.RenderMap](effects)

	rows, cached := sess.Rows(candidate.Criteria)
	derived := recompute || (renderMap && !cached)
	if derived {
		rows, err = h.displayed(r.Context(), candidate.Criteria)
		if err != nil {
			h.logger(r.Context()).Error("recompute catalog", "error", err)
			renderHTML(w, http.StatusOK, filterError("Catalog unavailable"))
			return
		}
	}
	var fig skymap.Figure
	if renderMap {
		fig, err = h.Map.Render(rows.Rows, candidate.ColorBy, candidate.Selected)
		if err != nil {
			renderHTML(w, http.StatusOK, filterError(err.Error()))
			return
		}
	}

	state, _, ok := sess.Commit(ticket, evs...)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if derived {
		sess.Remember(candidate.Criteria, rows)
	}

	patch := make([]Node, 0, 4)
	if recompute {
		patch = append(patch, resultCount(rows.Count()), h.catalogTable(rows, state))
	}
	if renderMap {
		patch = append(patch, h.skyMap(fig))
	}
	patch = append(patch, filterError(""))
	renderHTML(w, http.StatusOK, Group(patch))
}

// Select handles a row or point click. Unknown sources are ignored.
func (h *Handler) Select(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	source := formString(q, "source")
	records, err := h.Catalog.Load(r.Context())
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}
	if !hasSource(records, source) {
		http.Redirect(w, r, h.url("/"), http.StatusSeeOther)
		return
	}

	var ev viewstate.Event = viewstate.RowSelected{Source: source}
	if q.Get("via") == "point" {
		ev = viewstate.PointClicked{Source: source}
	}
	_, effects := h.session(w, r).Dispatch(ev)
	h.followRedirect(w, r, effects, "/")
}

func (h *Handler) followRedirect(w http.ResponseWriter, r *http.Request, effects []viewstate.Effect, fallback string) {
	if rd, ok := viewstate.FindEffect[viewstate.Redirect](effects); ok {
		http.Redirect(w, r, h.url(rd.Path), http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, h.url(fallback), http.StatusSeeOther)
}

func hasSource(records *domain.RecordSet, source string) bool {
	if source == "" {
		return false
	}
	for i := range records.Records {
		if records.Records[i].SourceName == source {
			return true
		}
	}
	return false
}

func resultCount(n int) Node {
	return P(ID("result-count"), Text("Showing "+humanize.Comma(int64(n))+" result(s)"))
}

func filterError(msg string) Node {
	return P(ID("filter-error"), Class("error"), Text(msg))
}

func (h *Handler) filterForm(state viewstate.State, formErr string) Node {
	fields := make([]Node, 0, len(rangeParamOrder)+2)
	fields = append(fields, Div(
		Label(For("search"), Text("Source name")),
		Input(ID("search"), Name("search"), Type("search"), Placeholder("SPT3G..."), Value(state.Criteria.Search)),
	))
	for _, param := range rangeParamOrder {
		lo, hi := rangeBounds(state.Criteria, param)
		fields = append(fields, Div(
			Label(Text(rangeLabels[param])),
			Div(
				Class("range"),
				Input(Name(param+"_min"), Type("number"), Step("any"), Placeholder("min"), Value(lo)),
				Input(Name(param+"_max"), Type("number"), Step("any"), Placeholder("max"), Value(hi)),
			),
		))
	}
	fields = append(fields, Div(
		Label(For("color_by"), Text("Colour by")),
		Select(
			ID("color_by"),
			Name("color_by"),
			Map(skymap.ColorOptions, func(o skymap.ColorOption) Node {
				return Option(Value(string(o.Column)), If(o.Column == state.ColorBy, Selected()), Text(o.Label))
			}),
		),
	))

	return Form(
		ID("filters"),
		Method("get"),
		Action(h.url("/")),
		Attr("data-on:input__debounce.300ms", "@get('"+h.url("/fragments/catalog")+"', {contentType: 'form'})"),
		Div(Class("filters"), Group(fields)),
		filterError(formErr),
		NoScript(Button(Type("submit"), Class("btn"), Text("Apply"))),
		A(Href(h.url("/?search=")), Class("btn"), Text("Reset filters")),
	)
}

func (h *Handler) catalogTable(rows domain.RowSet, state viewstate.State) Node {
	return Div(
		ID("catalog-table"),
		Class("table-wrap"),
		Table(
			Class("catalog"),
			THead(Tr(Map(table.Columns, func(c table.ColumnDef) Node {
				href := h.url("/?sort=" + url.QueryEscape(nextSort(state.Criteria.Sort, c.ID)))
				return Th(A(Href(href), Text(c.Label+sortIndicator(state.Criteria.Sort, c.ID))))
			}))),
			TBody(Map(rows.Rows, func(rec domain.SourceRecord) Node {
				return h.catalogRow(rec, state.Selected)
			})),
		),
	)
}

func (h *Handler) catalogRow(rec domain.SourceRecord, selected string) Node {
	cells := make([]Node, 0, len(table.Columns))
	for _, c := range table.Columns {
		switch c.ID {
		case domain.ColSourceName:
			href := h.url("/select?via=row&source=" + url.QueryEscape(rec.SourceName))
			cells = append(cells, Td(A(Href(href), Text(rec.SourceName))))
		case domain.ColHasNote:
			cells = append(cells, Td(If(rec.HasNote, Text("✓"))))
		default:
			v, _ := rec.Value(c.ID)
			cells = append(cells, Td(Text(formatCell(v, c.Places))))
		}
	}
	return Tr(If(rec.SourceName == selected, Class("selected")), Group(cells))
}
