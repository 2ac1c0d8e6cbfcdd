package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"

	"github.com/bukubesar/bukubesar/internal/ledger/validate"
)

// HandleGLIntegrity verifies that the trial balance still balances: the sum
// of all debit columns must equal the sum of all credit columns within
// tolerance. An imbalance means committed data violates double entry and is
// alerted, not repaired.
func (h *Handlers) HandleGLIntegrity(ctx context.Context, _ *asynq.Task) error {
	tracker := h.jobs.Track("gl_integrity")
	rows, err := h.ledger.TrialBalance(ctx, nil)
	if err != nil {
		h.logger.Error("GL integrity check failed", slog.Any("error", err))
		return tracker.End(err)
	}
	totalDebits := decimal.Zero
	totalCredits := decimal.Zero
	for _, row := range rows {
		totalDebits = totalDebits.Add(row.DebitBalance)
		totalCredits = totalCredits.Add(row.CreditBalance)
	}
	diff := totalDebits.Sub(totalCredits).Abs()
	if diff.GreaterThanOrEqual(validate.Tolerance) {
		h.logger.Error("GL integrity violation: trial balance out of balance",
			slog.String("total_debits", totalDebits.String()),
			slog.String("total_credits", totalCredits.String()),
			slog.String("difference", diff.String()),
			slog.Int("accounts", len(rows)))
		h.metrics.IntegrityImbalance()
		return tracker.End(nil)
	}
	h.logger.Info("GL integrity check passed",
		slog.String("total_debits", totalDebits.String()),
		slog.Int("accounts", len(rows)))
	return tracker.End(nil)
}
