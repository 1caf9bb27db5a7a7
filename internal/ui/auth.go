package ui

import (
	"net/http"
	"strings"

	"spt3g-viewer/internal/middleware"
	"spt3g-viewer/internal/viewstate"

	. "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"
)

// LoginPage renders the sign-in form.
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	renderHTML(w, http.StatusOK, h.loginPage(r, ""))
}

// LoginSubmit checks the configured credentials and issues the auth cookie.
func (h *Handler) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		renderHTML(w, http.StatusBadRequest, h.loginPage(r, "invalid form"))
		return
	}
	username := strings.TrimSpace(r.Form.Get("username"))
	password := r.Form.Get("password")
	if !h.Auth.CheckCredentials(username, password) {
		h.logger(r.Context()).Warn("login rejected", "username", username)
		renderHTML(w, http.StatusUnauthorized, h.loginPage(r, "Invalid username or password"))
		return
	}

	token, expires, err := h.Auth.Issue(username)
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}
	h.Auth.SetCookie(w, token, expires, h.BasePath, h.Production)
	h.logger(r.Context()).Info("login", "username", username)
	http.Redirect(w, r, h.url("/"), http.StatusSeeOther)
}

// Logout clears the auth cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	middleware.ClearCookie(w, h.BasePath)
	http.Redirect(w, r, h.url("/login"), http.StatusSeeOther)
}

func (h *Handler) loginPage(r *http.Request, errMsg string) Node {
	return HTML(
		Lang("en"),
		Attr("data-theme", string(viewstate.ThemeDark)),
		h.pageHead("Sign in"),
		Body(
			Class("login-body"),
			Main(
				Class("login-wrap"),
				H1(Text("SPT-3G Catalog Viewer")),
				If(errMsg != "", P(Class("error"), Text(errMsg))),
				Form(
					Method("post"),
					Action(h.url("/login")),
					Class("login-form"),
					csrfField(r),
					Label(For("username"), Text("Username")),
					Input(ID("username"), Name("username"), AutoComplete("username"), Required()),
					Label(For("password"), Text("Password")),
					Input(ID("password"), Name("password"), Type("password"), AutoComplete("current-password"), Required()),
					Button(Type("submit"), Class("btn btn-primary"), Text("Sign In")),
				),
			),
		),
	)
}
