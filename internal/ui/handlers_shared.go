package ui

import (
	"errors"
	"net/http"

	"spt3g-viewer/internal/domain"
)

func (h *Handler) renderServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	title := "Unexpected Error"
	message := "An unexpected error occurred while loading this page."

	var notFound *domain.NotFoundError
	var accessDenied *domain.AccessDeniedError
	var validation *domain.ValidationError
	var missing *domain.MissingColumnError
	var persistence *domain.PersistenceError
	if errors.As(err, &notFound) {
		status = http.StatusNotFound
		title = "Not Found"
		message = notFound.Error()
	} else if errors.As(err, &accessDenied) {
		status = http.StatusForbidden
		title = "Access Denied"
		message = accessDenied.Error()
	} else if errors.As(err, &validation) {
		status = http.StatusBadRequest
		title = "Invalid Request"
		message = validation.Error()
	} else if errors.As(err, &missing) {
		status = http.StatusBadRequest
		title = "Invalid Request"
		message = missing.Error()
	} else if errors.As(err, &persistence) {
		status = http.StatusServiceUnavailable
		title = "Save Failed"
		message = persistence.Error()
	}

	if status == http.StatusInternalServerError {
		h.logger(r.Context()).Error("ui request failed", "path", r.URL.Path, "error", err)
	}
	renderHTML(w, status, errorPage(h, title, message))
}

// safeReturnPath accepts only application-relative paths.
func safeReturnPath(p string) string {
	if p == "" || p[0] != '/' || (len(p) > 1 && (p[1] == '/' || p[1] == '\\')) {
		return "/"
	}
	return p
}
