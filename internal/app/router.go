package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/bukubesar/bukubesar/internal/ledger/book"
	"github.com/bukubesar/bukubesar/internal/ledger/coa"
	"github.com/bukubesar/bukubesar/internal/observability"
	"github.com/bukubesar/bukubesar/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	AccountHandler *coa.Handler
	LedgerHandler  *book.Handler
	JobHandler     *jobs.Handler
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router with service defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api/v1", func(api chi.Router) {
		api.Route("/accounts", func(rr chi.Router) {
			params.AccountHandler.MountRoutes(rr)
		})
		params.LedgerHandler.MountRoutes(api)
		if params.JobHandler != nil {
			api.Route("/jobs", func(rr chi.Router) {
				params.JobHandler.MountRoutes(rr)
			})
		}
	})

	return r
}
