package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics mengumpulkan metrik Prometheus untuk aplikasi.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	transactionsPosted  prometheus.Counter
	rollbacksPosted     prometheus.Counter
	verificationFailed  prometheus.Counter
	integrityImbalanced prometheus.Counter
}

// NewMetrics menginisialisasi registry dan metrik dasar.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bukubesar_http_requests_total",
		Help: "Jumlah permintaan HTTP berdasarkan route dan status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bukubesar_http_request_duration_seconds",
		Help:    "Durasi permintaan HTTP per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	posted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bukubesar_transactions_posted_total",
		Help: "Jumlah transaksi jurnal yang berhasil diposting.",
	})
	rollbacks := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bukubesar_rollbacks_posted_total",
		Help: "Jumlah transaksi pembalik yang diposting.",
	})
	verifyFailed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bukubesar_balance_verification_failures_total",
		Help: "Jumlah kegagalan verifikasi saldo pasca-commit.",
	})
	imbalanced := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bukubesar_trial_balance_imbalance_total",
		Help: "Jumlah pemeriksaan integritas yang menemukan neraca tidak seimbang.",
	})
	registry.MustRegister(requests, duration, posted, rollbacks, verifyFailed, imbalanced)
	return &Metrics{
		registry:            registry,
		handler:             promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:       requests,
		requestDuration:     duration,
		transactionsPosted:  posted,
		rollbacksPosted:     rollbacks,
		verificationFailed:  verifyFailed,
		integrityImbalanced: imbalanced,
	}
}

// Handler mengembalikan http.Handler untuk endpoint /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// TransactionPosted menambah hitungan transaksi yang diposting.
func (m *Metrics) TransactionPosted() {
	if m != nil {
		m.transactionsPosted.Inc()
	}
}

// RollbackPosted menambah hitungan transaksi pembalik.
func (m *Metrics) RollbackPosted() {
	if m != nil {
		m.rollbacksPosted.Inc()
	}
}

// VerificationFailed menambah hitungan kegagalan verifikasi saldo.
func (m *Metrics) VerificationFailed() {
	if m != nil {
		m.verificationFailed.Inc()
	}
}

// IntegrityImbalance menambah hitungan neraca percobaan yang tidak seimbang.
func (m *Metrics) IntegrityImbalance() {
	if m != nil {
		m.integrityImbalanced.Inc()
	}
}

// Middleware mencatat metrik untuk setiap permintaan HTTP.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Registerer mengekspos registry untuk pendaftaran metrik khusus.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
