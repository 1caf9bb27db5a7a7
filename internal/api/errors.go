package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"spt3g-viewer/internal/domain"
)

// Error is the JSON error body.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// httpStatusFromDomainError maps domain errors to HTTP status codes.
func httpStatusFromDomainError(err error) int {
	var notFound *domain.NotFoundError
	var accessDenied *domain.AccessDeniedError
	var validation *domain.ValidationError
	var missing *domain.MissingColumnError
	var persistence *domain.PersistenceError

	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &accessDenied):
		return http.StatusForbidden
	case errors.As(err, &validation), errors.As(err, &missing):
		return http.StatusBadRequest
	case errors.As(err, &persistence):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := httpStatusFromDomainError(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		h.logger(r.Context()).Error("api request failed", "path", r.URL.Path, "error", err)
		msg = "internal error"
	}
	writeJSON(w, code, Error{Code: code, Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
