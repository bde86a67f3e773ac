package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"faturas/internal/log"
)

func (s *Server) handleListPeople(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.State().People)
}

func (s *Server) handleCreatePerson(w http.ResponseWriter, r *http.Request) {
	var req personRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, log.ErrorTypeValidation, err.Error())
		return
	}
	p, err := s.expenses.SavePerson(r.Context(), req.toPerson(""))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleUpdatePerson(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := s.store.State().Person(id); !ok {
		writeError(w, http.StatusNotFound, log.ErrorTypeNotFound, "person not found")
		return
	}
	var req personRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, log.ErrorTypeValidation, err.Error())
		return
	}
	p, err := s.expenses.SavePerson(r.Context(), req.toPerson(id))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleDeletePerson answers 409 while the person still has expenses or
// payments.
func (s *Server) handleDeletePerson(w http.ResponseWriter, r *http.Request) {
	if err := s.expenses.DeletePerson(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.State().Cards)
}

func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	var req cardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, log.ErrorTypeValidation, err.Error())
		return
	}
	c, err := s.expenses.SaveCard(r.Context(), req.toCard(""))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleUpdateCard(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := s.store.State().Card(id); !ok {
		writeError(w, http.StatusNotFound, log.ErrorTypeNotFound, "card not found")
		return
	}
	var req cardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, log.ErrorTypeValidation, err.Error())
		return
	}
	c, err := s.expenses.SaveCard(r.Context(), req.toCard(id))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	if err := s.expenses.DeleteCard(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
