package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"faturas/internal/balance"
	"faturas/internal/core"
)

// Metrics owns a registry so several servers (tests) can coexist.
type Metrics struct {
	registry *prometheus.Registry

	requests       *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	rateLimited    *prometheus.CounterVec
	ledgerVersion  prometheus.Gauge
	ledgerRecords  *prometheus.GaugeVec
	openInvoices   prometheus.Gauge
	globalDebt     prometheus.Gauge
	closes         prometheus.Counter
	reportFailures prometheus.Counter
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "faturas",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "faturas",
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		rateLimited: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "faturas",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter",
		}, []string{"route"}),
		ledgerVersion: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "faturas",
			Name:      "ledger_version",
			Help:      "Mutation counter of the in-memory ledger",
		}),
		ledgerRecords: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "faturas",
			Name:      "ledger_records",
			Help:      "Number of records per collection",
		}, []string{"collection"}),
		openInvoices: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "faturas",
			Name:      "open_invoices",
			Help:      "Invoices currently open",
		}),
		globalDebt: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "faturas",
			Name:      "global_debt",
			Help:      "Total spent minus total paid, in currency units",
		}),
		closes: f.NewCounter(prometheus.CounterOpts{
			Namespace: "faturas",
			Name:      "invoice_closes_total",
			Help:      "Invoices closed through the API",
		}),
		reportFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: "faturas",
			Name:      "report_export_failures_total",
			Help:      "Closing reports that failed to export",
		}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveLedger refreshes the ledger gauges. It has the ledger.Listener
// signature so it can be subscribed to the store directly.
func (m *Metrics) ObserveLedger(s core.State, version uint64) {
	m.ledgerVersion.Set(float64(version))
	m.ledgerRecords.WithLabelValues("people").Set(float64(len(s.People)))
	m.ledgerRecords.WithLabelValues("cards").Set(float64(len(s.Cards)))
	m.ledgerRecords.WithLabelValues("expenses").Set(float64(len(s.Expenses)))
	m.ledgerRecords.WithLabelValues("payments").Set(float64(len(s.Payments)))
	m.ledgerRecords.WithLabelValues("invoices").Set(float64(len(s.Invoices)))

	open := 0
	for _, inv := range s.Invoices {
		if inv.IsOpen() {
			open++
		}
	}
	m.openInvoices.Set(float64(open))
	m.globalDebt.Set(balance.GlobalDebt(s).Units())
}

func (m *Metrics) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.duration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
