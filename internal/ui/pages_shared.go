package ui

import (
	"net/http"

	"spt3g-viewer/internal/viewstate"

	. "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"
)

const datastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.7/bundles/datastar.js"

func (h *Handler) pageHead(title string) Node {
	return Head(
		Meta(Charset("utf-8")),
		Meta(Name("viewport"), Content("width=device-width, initial-scale=1")),
		TitleEl(Text(title+" | SPT-3G Catalog")),
		Link(Rel("icon"), Href("data:,")),
		Link(Rel("preconnect"), Href("https://fonts.googleapis.com")),
		Link(Rel("preconnect"), Href("https://fonts.gstatic.com"), Attr("crossorigin", "")),
		Link(Rel("stylesheet"), Href("https://fonts.googleapis.com/css2?family=Inter:wght@400;500;600;700&display=swap")),
		Link(Rel("stylesheet"), Href(h.url("/static/app.css"))),
		Script(Type("module"), Src(datastarScript)),
	)
}

// appPage wraps body in the signed-in layout. returnTo is the application
// path the theme toggle comes back to.
func (h *Handler) appPage(r *http.Request, title string, theme viewstate.Theme, returnTo string, body ...Node) Node {
	nextTheme := "light"
	if theme == viewstate.ThemeLight {
		nextTheme = "dark"
	}
	return HTML(
		Lang("en"),
		Attr("data-theme", string(theme)),
		h.pageHead(title),
		Body(
			Header(
				Class("topbar"),
				H1(A(Href(h.url("/")), Text("SPT-3G Catalog Viewer"))),
				Div(
					Class("actions"),
					Span(Class("muted"), Text("Signed in as "+userName(r.Context()))),
					Form(
						Method("post"),
						Action(h.url("/theme")),
						csrfField(r),
						Input(Type("hidden"), Name("next"), Value(returnTo)),
						Button(Type("submit"), Class("btn"), ID("theme-toggle"), Text("Switch to "+nextTheme+" theme")),
					),
					Form(
						Method("post"),
						Action(h.url("/logout")),
						csrfField(r),
						Button(Type("submit"), Class("btn"), Text("Sign out")),
					),
				),
			),
			Main(Class("content"), Group(body)),
		),
	)
}

func errorPage(h *Handler, title, message string) Node {
	home := "/"
	if h != nil {
		home = h.url("/")
	}
	return HTML(
		Lang("en"),
		Attr("data-theme", string(viewstate.ThemeDark)),
		Head(
			Meta(Charset("utf-8")),
			TitleEl(Text(title+" | SPT-3G Catalog")),
		),
		Body(
			Main(
				Class("content"),
				H1(Text(title)),
				P(Class("error"), Text(message)),
				A(Href(home), Text("Back to Home")),
			),
		),
	)
}
