package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
)

// HandleBalanceVerify recomputes the balances for the accounts touched by a
// posted transaction. Failures are reported, never retried into the posting
// path: the transaction already committed.
func (h *Handlers) HandleBalanceVerify(ctx context.Context, t *asynq.Task) error {
	tracker := h.jobs.Track("balance_verify")
	var payload BalanceVerifyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		_ = tracker.End(err)
		return asynq.SkipRetry
	}
	if len(payload.AccountIDs) == 0 {
		return tracker.End(nil)
	}
	result, err := h.ledger.MultipleAccountBalances(ctx, payload.AccountIDs, nil)
	if err != nil {
		h.logger.Error("balance verification failed",
			slog.String("transaction_id", payload.TransactionID.String()),
			slog.Any("error", err))
		h.metrics.VerificationFailed()
		return tracker.End(err)
	}
	for accountID, verr := range result.Errors {
		h.logger.Warn("balance verification failed for account",
			slog.String("transaction_id", payload.TransactionID.String()),
			slog.String("account_id", accountID.String()),
			slog.Any("error", verr))
		h.metrics.VerificationFailed()
	}
	return tracker.End(nil)
}
