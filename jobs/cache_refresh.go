package jobs

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/bukubesar/bukubesar/internal/ledger/coa"
)

// HandleCacheRefresh recomputes current balances for every active account so
// the cache stays warm between postings.
func (h *Handlers) HandleCacheRefresh(ctx context.Context, _ *asynq.Task) error {
	tracker := h.jobs.Track("cache_refresh")
	active := true
	accounts, err := h.accounts.FindAll(ctx, coa.Filter{IsActive: &active})
	if err != nil {
		h.logger.Error("cache refresh: list accounts", slog.Any("error", err))
		return tracker.End(err)
	}
	if len(accounts) == 0 {
		return tracker.End(nil)
	}
	ids := make([]uuid.UUID, 0, len(accounts))
	for _, account := range accounts {
		ids = append(ids, account.ID)
	}
	result, err := h.ledger.MultipleAccountBalances(ctx, ids, nil)
	if err != nil {
		h.logger.Error("cache refresh: compute balances", slog.Any("error", err))
		return tracker.End(err)
	}
	for accountID, cerr := range result.Errors {
		h.logger.Warn("cache refresh: account skipped",
			slog.String("account_id", accountID.String()),
			slog.Any("error", cerr))
	}
	h.logger.Info("balance cache refreshed",
		slog.Int("accounts", len(result.Balances)),
		slog.Int("failed", len(result.Errors)))
	return tracker.End(nil)
}
