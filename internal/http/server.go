// Package http exposes the ledger as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"faturas/internal/auth"
	"faturas/internal/balance"
	"faturas/internal/cache"
	"faturas/internal/ledger"
	"faturas/internal/lifecycle"
	"faturas/internal/log"
	"faturas/internal/middleware/ratelimit"
	"faturas/internal/middleware/security"
	"faturas/internal/middleware/trace"
	"faturas/internal/report"
	"faturas/internal/services"
)

const (
	viewCacheSize     = 100
	viewCacheTTL      = 5 * time.Minute
	cacheSweepEvery   = 10 * time.Minute
	readHeaderTimeout = 10 * time.Second
)

// Deps are the collaborators the API serves.
type Deps struct {
	Store    *ledger.Store
	Expenses *services.ExpenseService
	Invoices *lifecycle.Manager
	// Gate guards /api; nil leaves the API open.
	Gate *auth.Gate
	// Formatter renders report tables; the zero value formats in BRL.
	Formatter report.Formatter
	// Ready reports backend health for /readyz; nil means always ready.
	Ready   func(ctx context.Context) error
	Metrics *Metrics
	Logger  *log.Logger
	Clock   func() time.Time
}

type Server struct {
	http.Server

	store     *ledger.Store
	expenses  *services.ExpenseService
	invoices  *lifecycle.Manager
	gate      *auth.Gate
	formatter report.Formatter
	ready     func(ctx context.Context) error
	metrics   *Metrics
	logger    *log.Logger
	now       func() time.Time

	loginLimiter *ratelimit.Limiter
	dashboards   *cache.LRU[balance.Dashboard]
	reports      *cache.LRU[report.Report]
	caches       *cache.Manager

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware and returns a server ready for
// ListenAndServe.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)
	if deps.Metrics == nil {
		deps.Metrics = NewMetrics()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Formatter == (report.Formatter{}) {
		deps.Formatter = report.NewFormatter("BRL")
	}

	s := &Server{
		store:        deps.Store,
		expenses:     deps.Expenses,
		invoices:     deps.Invoices,
		gate:         deps.Gate,
		formatter:    deps.Formatter,
		ready:        deps.Ready,
		metrics:      deps.Metrics,
		logger:       logger,
		now:          deps.Clock,
		loginLimiter: ratelimit.NewLimiter(ratelimit.LoginConfig()),
		dashboards:   cache.NewLRU[balance.Dashboard](viewCacheSize, viewCacheTTL),
		reports:      cache.NewLRU[report.Report](viewCacheSize, viewCacheTTL),
		caches:       cache.NewManager(logger),
	}
	s.caches.Register(s.dashboards)
	s.caches.Register(s.reports)
	s.caches.Start(cacheSweepEvery)

	s.store.Subscribe(s.metrics.ObserveLedger)
	st, v := s.store.Snapshot()
	s.metrics.ObserveLedger(st, v)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(trace.Middleware(s.logger, security.ClientIP))
	r.Use(trace.Recoverer(s.logger))
	r.Use(security.NewHeadersMiddleware(security.APIHeadersConfig()).Middleware)
	r.Use(s.metrics.middleware)

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.With(s.loginLimiter.Middleware(security.ClientIP, s.onRateLimited)).
			Post("/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Get("/state", s.handleState)
			r.Get("/dashboard", s.handleDashboard)
			r.Get("/categories", s.handleCategories)

			r.Get("/people", s.handleListPeople)
			r.Post("/people", s.handleCreatePerson)
			r.Put("/people/{id}", s.handleUpdatePerson)
			r.Delete("/people/{id}", s.handleDeletePerson)

			r.Get("/cards", s.handleListCards)
			r.Post("/cards", s.handleCreateCard)
			r.Put("/cards/{id}", s.handleUpdateCard)
			r.Delete("/cards/{id}", s.handleDeleteCard)

			r.Post("/classify", s.handleClassify)
			r.Post("/expenses", s.handleCreateExpense)
			r.Put("/expenses/{id}", s.handleUpdateExpense)
			r.Delete("/expenses/{id}", s.handleDeleteExpense)

			r.Get("/payments", s.handleListPayments)
			r.Post("/payments", s.handleCreatePayment)
			r.Delete("/payments/{id}", s.handleDeletePayment)

			r.Get("/invoices", s.handleListInvoices)
			r.Post("/invoices", s.handleCreateInvoice)
			r.Put("/invoices/{id}", s.handleRenameInvoice)
			r.Delete("/invoices/{id}", s.handleDeleteInvoice)
			r.Post("/invoices/{id}/toggle", s.handleToggleInvoice)
			r.Post("/invoices/{id}/reopen", s.handleReopenInvoice)
			r.Post("/invoices/{id}/close", s.handleInitiateClose)
			r.Post("/invoices/{id}/close/confirm", s.handleConfirmClose)
			r.Get("/invoices/{id}/expenses", s.handleInvoiceExpenses)
			r.Get("/invoices/{id}/report", s.handleReport)
		})
	})
	return r
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	route := "unmatched"
	if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
		route = rc.RoutePattern()
	}
	s.metrics.rateLimited.WithLabelValues(route).Inc()
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, security.ClientIP(r), log.FieldPath, r.URL.Path)
	writeError(w, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded, try again later")
}

// Shutdown stops background loops and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.loginLimiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
