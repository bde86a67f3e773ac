package http

import (
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"faturas/internal/core"
	"faturas/internal/log"
	"faturas/internal/services"
)

// handleCreateExpense stores the expense right away; a category suggestion
// may land on it later.
func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var in services.ExpenseInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, log.ErrorTypeValidation, err.Error())
		return
	}
	in.Description = sanitizeInput(in.Description)

	e, err := s.expenses.AddExpense(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// handleClassify suggests a category for an expense that is still being
// typed. 503 means no suggestion is available.
func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, log.ErrorTypeValidation, err.Error())
		return
	}
	sug, err := s.expenses.Suggest(r.Context(), sanitizeInput(req.Description), req.Amount)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sug)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := s.store.State().Expense(id); !ok {
		writeError(w, http.StatusNotFound, log.ErrorTypeNotFound, "expense not found")
		return
	}
	var req expenseUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, log.ErrorTypeValidation, err.Error())
		return
	}
	e := req.toExpense(id)
	if err := s.expenses.UpdateExpense(r.Context(), e); err != nil {
		writeServiceError(w, r, err)
		return
	}
	updated, _ := s.store.State().Expense(id)
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	s.expenses.DeleteExpense(r.Context(), chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// handleListPayments lists payments newest first.
func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	payments := append([]core.Payment(nil), s.store.State().Payments...)
	sort.SliceStable(payments, func(i, j int) bool {
		return payments[i].Date.After(payments[j].Date.Time)
	})
	if payments == nil {
		payments = []core.Payment{}
	}
	writeJSON(w, http.StatusOK, payments)
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	var in services.PaymentInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, log.ErrorTypeValidation, err.Error())
		return
	}
	p, err := s.expenses.AddPayment(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleDeletePayment(w http.ResponseWriter, r *http.Request) {
	s.expenses.DeletePayment(r.Context(), chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}
