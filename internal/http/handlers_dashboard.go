package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"faturas/internal/balance"
	"faturas/internal/log"
	"faturas/internal/report"
)

// viewKey ties cached views to the ledger version they were built from, so
// any mutation makes older entries unreachable.
func viewKey(version uint64, invoiceID string) string {
	return strconv.FormatUint(version, 10) + "|" + invoiceID
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	invoiceID := strings.TrimSpace(r.URL.Query().Get("invoice"))
	st, version := s.store.Snapshot()
	key := viewKey(version, invoiceID)

	if d, ok := s.dashboards.Get(key); ok {
		s.logger.DebugContext(r.Context(), "Dashboard cache hit", log.FieldVersion, version)
		writeJSON(w, http.StatusOK, d)
		return
	}
	d := balance.BuildDashboard(st, invoiceID)
	s.dashboards.Set(key, d)
	writeJSON(w, http.StatusOK, d)
}

type reportTable struct {
	Title    string  `json:"title"`
	Filename string  `json:"filename"`
	Rows     [][]any `json:"rows"`
}

// handleReport previews the closing report of an invoice. format=table
// returns the rows a spreadsheet export would write.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	st, version := s.store.Snapshot()
	key := viewKey(version, id)

	rep, ok := s.reports.Get(key)
	if !ok {
		var err error
		rep, err = report.Build(st, id, s.now())
		if errors.Is(err, report.ErrUnknownInvoice) {
			writeError(w, http.StatusNotFound, log.ErrorTypeNotFound, err.Error())
			return
		}
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		s.reports.Set(key, rep)
	}
	// Cached per ledger version; the timestamp belongs to this response.
	rep.GeneratedAt = s.now()

	if r.URL.Query().Get("format") == "table" {
		writeJSON(w, http.StatusOK, reportTable{Title: rep.Title(), Filename: rep.Filename(), Rows: s.formatter.Rows(rep)})
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
