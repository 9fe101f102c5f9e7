package handler

// Every JSON error response has the same shape:
//
//	{"error": "validation_error", "message": "Amount is required", "errors": ["Amount is required"]}

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/donation-backend/internal/apperror"
)

// ErrorResponse is the error body returned by every JSON endpoint.
type ErrorResponse struct {
	Error   string   `json:"error"`   // machine-readable type, e.g. "payment_error"
	Message string   `json:"message"` // donor-facing description
	Errors  []string `json:"errors,omitempty"`
}

// writeJSON sets headers and status before writing the body; header
// changes after the first Write are ignored.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// classify maps a service error to an HTTP status and error type.
//
//	ErrValidation, ErrPayment → 422 (the donor can fix the form or card)
//	ErrNotFound               → 404
//	ErrComputation, ErrStorage → 500
//
// Anything else is an unexpected internal error.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusUnprocessableEntity, "validation_error"
	case errors.Is(err, apperror.ErrPayment):
		return http.StatusUnprocessableEntity, "payment_error"
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrComputation):
		return http.StatusInternalServerError, "computation_error"
	case errors.Is(err, apperror.ErrStorage):
		return http.StatusInternalServerError, "storage_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// publicMessages returns what may be shown to the donor for err. Errors
// that are not AppErrors can carry SQL or file paths, so they get a
// generic message.
func publicMessages(err error) []string {
	if msgs := apperror.Messages(err); len(msgs) > 0 {
		return msgs
	}
	return []string{"An internal error occurred"}
}

func writeError(w http.ResponseWriter, err error) {
	status, errorType := classify(err)
	msgs := publicMessages(err)

	resp := ErrorResponse{
		Error:   errorType,
		Message: msgs[0],
	}
	if len(msgs) > 1 {
		resp.Message = err.Error()
		resp.Errors = msgs
	} else if errors.Is(err, apperror.ErrValidation) {
		resp.Errors = msgs
	}
	writeJSON(w, status, resp)
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:   "bad_request",
		Message: message,
	})
}

// wantsJSON reports whether the client sent or asked for JSON. Everything
// else gets HTML.
func wantsJSON(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") ||
		strings.Contains(r.Header.Get("Accept"), "application/json")
}
