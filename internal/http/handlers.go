package http

import (
	"net/http"
	"strings"
	"time"

	"faturas/internal/core"
	"faturas/internal/log"
)

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.gate == nil {
		writeError(w, http.StatusNotFound, log.ErrorTypeNotFound, "password gate disabled")
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, log.ErrorTypeValidation, err.Error())
		return
	}
	token, exp, err := s.gate.Login(req.Password)
	if err != nil {
		s.logger.WarnContext(r.Context(), "Login failed", log.FieldOperation, log.OpLogin, log.FieldError, err)
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: exp.UTC().Format(time.RFC3339)})
}

// requireAuth lets requests through only with a valid bearer token. With
// no gate configured every request passes.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.gate == nil {
			next.ServeHTTP(w, r)
			return
		}
		token, _ := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if _, err := s.gate.Validate(strings.TrimSpace(token)); err != nil {
			writeServiceError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleState serves the ledger in its persisted JSON form as a download.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	body, err := core.EncodeState(s.store.State())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	name := "faturas-backup-" + s.now().Format("2006-01-02") + ".json"
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, core.Categories())
}
