package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	jobmetrics "github.com/bukubesar/bukubesar/internal/jobs"
	"github.com/bukubesar/bukubesar/internal/ledger/balance"
	"github.com/bukubesar/bukubesar/internal/ledger/book"
	"github.com/bukubesar/bukubesar/internal/ledger/coa"
	"github.com/bukubesar/bukubesar/internal/observability"
)

// Ledger is the slice of the bookkeeping service the job handlers consume.
type Ledger interface {
	MultipleAccountBalances(ctx context.Context, accountIDs []uuid.UUID, asOf *time.Time) (balance.BatchResult, error)
	TrialBalance(ctx context.Context, asOf *time.Time) ([]book.TrialBalanceEntry, error)
}

// AccountLister provides the active accounts to rewarm.
type AccountLister interface {
	FindAll(ctx context.Context, filter coa.Filter) ([]coa.Account, error)
}

// Handlers bundles the dependencies shared by all job handlers.
type Handlers struct {
	ledger   Ledger
	accounts AccountLister
	logger   *slog.Logger
	metrics  *observability.Metrics
	jobs     *jobmetrics.Metrics
}

// NewHandlers constructs the job handler set. Metrics may be nil.
func NewHandlers(ledger Ledger, accounts AccountLister, logger *slog.Logger, metrics *observability.Metrics, jobs *jobmetrics.Metrics) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{ledger: ledger, accounts: accounts, logger: logger, metrics: metrics, jobs: jobs}
}
