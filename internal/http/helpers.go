package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"faturas/internal/auth"
	"faturas/internal/classify"
	"faturas/internal/core"
	"faturas/internal/log"
	"faturas/internal/services"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

// validationErrors are the domain errors that map to 422.
var validationErrors = []error{
	core.ErrInvalidAmount,
	core.ErrInvalidDate,
	core.ErrInvalidDay,
	core.ErrInvalidMonth,
	core.ErrEmptyDescription,
	core.ErrDescriptionLong,
	core.ErrInvalidCategory,
	core.ErrEmptyName,
	core.ErrMissingPerson,
	core.ErrMissingCard,
	core.ErrMissingInvoice,
}

// writeServiceError maps a service-layer error onto a response.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrInUse):
		writeError(w, http.StatusConflict, log.ErrorTypeConflict, err.Error())
		return
	case errors.Is(err, classify.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, log.ErrorTypeUnavailable, err.Error())
		return
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrMissingToken):
		writeError(w, http.StatusUnauthorized, log.ErrorTypeAuth, err.Error())
		return
	}
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			writeError(w, http.StatusUnprocessableEntity, log.ErrorTypeValidation, err.Error())
			return
		}
	}
	log.NewStructuredLogger(log.FromContext(r.Context())).LogError(r.Context(), "Request failed", err,
		log.ComponentHTTP, operationFor(r.Method), log.NewFields().WithHTTPRequest(r.Method, r.URL.Path, r.UserAgent()))
	writeError(w, http.StatusInternalServerError, log.ErrorTypeInternal, "internal error")
}

// operationFor names the operation a request method performs.
func operationFor(method string) string {
	switch method {
	case http.MethodPost:
		return log.OpCreate
	case http.MethodPut, http.MethodPatch:
		return log.OpUpdate
	case http.MethodDelete:
		return log.OpDelete
	default:
		return log.OpRead
	}
}

// sanitizeInput removes control characters except tab, newline and
// carriage return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
