package http

import (
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"faturas/internal/balance"
	"faturas/internal/core"
	"faturas/internal/lifecycle"
	"faturas/internal/log"
)

// handleListInvoices returns invoices in stored order, newest first.
func (s *Server) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.State().Invoices)
}

func (s *Server) handleCreateInvoice(w http.ResponseWriter, r *http.Request) {
	var req invoiceNameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, log.ErrorTypeValidation, err.Error())
		return
	}
	id := s.invoices.Create(r.Context(), sanitizeInput(req.Name))
	inv, _ := s.store.State().Invoice(id)
	writeJSON(w, http.StatusCreated, inv)
}

func (s *Server) handleRenameInvoice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := s.store.State().Invoice(id); !ok {
		writeError(w, http.StatusNotFound, log.ErrorTypeNotFound, "invoice not found")
		return
	}
	var req invoiceNameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, log.ErrorTypeValidation, err.Error())
		return
	}
	name := sanitizeInput(req.Name)
	if name == "" {
		writeError(w, http.StatusUnprocessableEntity, log.ErrorTypeValidation, core.ErrEmptyName.Error())
		return
	}
	s.invoices.Rename(r.Context(), id, name)
	inv, _ := s.store.State().Invoice(id)
	writeJSON(w, http.StatusOK, inv)
}

// handleDeleteInvoice removes the invoice and its expenses. The caller
// passes its current selection in ?current= and gets back what to select
// next.
func (s *Server) handleDeleteInvoice(w http.ResponseWriter, r *http.Request) {
	current := strings.TrimSpace(r.URL.Query().Get("current"))
	next := s.invoices.Delete(r.Context(), chi.URLParam(r, "id"), current)
	writeJSON(w, http.StatusOK, invoiceDeleteResponse{CurrentInvoiceID: next})
}

// handleToggleInvoice flips the status without rolling debt over.
func (s *Server) handleToggleInvoice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := s.store.State().Invoice(id); !ok {
		writeError(w, http.StatusNotFound, log.ErrorTypeNotFound, "invoice not found")
		return
	}
	s.invoices.Toggle(r.Context(), id)
	inv, _ := s.store.State().Invoice(id)
	writeJSON(w, http.StatusOK, inv)
}

func (s *Server) handleReopenInvoice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := s.store.State().Invoice(id); !ok {
		writeError(w, http.StatusNotFound, log.ErrorTypeNotFound, "invoice not found")
		return
	}
	s.invoices.Reopen(r.Context(), id)
	inv, _ := s.store.State().Invoice(id)
	writeJSON(w, http.StatusOK, inv)
}

// handleInitiateClose returns the proposal a client confirms with
// /close/confirm. Nothing changes yet.
func (s *Server) handleInitiateClose(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	proposal, ok := s.invoices.InitiateClose(id)
	if !ok {
		s.closeRejected(w, id)
		return
	}
	writeJSON(w, http.StatusOK, proposal)
}

func (s *Server) handleConfirmClose(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req confirmCloseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, log.ErrorTypeValidation, err.Error())
		return
	}
	res := s.invoices.ConfirmClose(r.Context(), lifecycle.CloseRequest{
		InvoiceID:    id,
		NextName:     sanitizeInput(req.NextName),
		ExportReport: req.ExportReport,
	})
	if !res.Closed {
		s.closeRejected(w, id)
		return
	}
	s.metrics.closes.Inc()

	out := closeResponse{
		Closed:      true,
		SuccessorID: res.SuccessorID,
		Rollovers:   res.Rollovers,
		ReportRef:   res.ReportRef,
	}
	if res.ReportErr != nil {
		s.metrics.reportFailures.Inc()
		out.ReportError = res.ReportErr.Error()
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) closeRejected(w http.ResponseWriter, id string) {
	if _, ok := s.store.State().Invoice(id); !ok {
		writeError(w, http.StatusNotFound, log.ErrorTypeNotFound, "invoice not found")
		return
	}
	writeError(w, http.StatusConflict, log.ErrorTypeConflict, "invoice is already closed")
}

// handleInvoiceExpenses lists an invoice's expenses newest first.
func (s *Server) handleInvoiceExpenses(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	st := s.store.State()
	if _, ok := st.Invoice(id); !ok {
		writeError(w, http.StatusNotFound, log.ErrorTypeNotFound, "invoice not found")
		return
	}
	expenses := balance.InvoiceExpenses(st, id)
	sort.SliceStable(expenses, func(i, j int) bool {
		return expenses[i].Date.After(expenses[j].Date.Time)
	})
	if expenses == nil {
		expenses = []core.Expense{}
	}
	writeJSON(w, http.StatusOK, expenses)
}
