// Package book orchestrates transaction processing over the chart of
// accounts, the journal store, and the balance calculator.
package book

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bukubesar/bukubesar/internal/ledger/balance"
	"github.com/bukubesar/bukubesar/internal/ledger/coa"
	"github.com/bukubesar/bukubesar/internal/ledger/journal"
	"github.com/bukubesar/bukubesar/internal/ledger/shared"
	"github.com/bukubesar/bukubesar/internal/ledger/validate"
)

// AccountPort is the slice of the account store the orchestrator consumes.
type AccountPort interface {
	GetByID(ctx context.Context, id uuid.UUID) (coa.Account, error)
	FindAll(ctx context.Context, filter coa.Filter) ([]coa.Account, error)
}

// JournalPort is the slice of the journal store the orchestrator consumes.
// InsertTransactionWithEntries re-verifies referenced accounts inside its own
// storage transaction; the orchestrator's earlier account checks are a fast
// path, not the commit-time guarantee.
type JournalPort interface {
	InsertTransactionWithEntries(ctx context.Context, tx journal.Transaction) error
	GetWithEntries(ctx context.Context, id uuid.UUID) (journal.Transaction, error)
}

// BalancePort supplies derived balances.
type BalancePort interface {
	AccountBalance(ctx context.Context, accountID uuid.UUID, asOf *time.Time) (decimal.Decimal, error)
	MultipleBalances(ctx context.Context, accountIDs []uuid.UUID, asOf *time.Time) (balance.BatchResult, error)
	MultipleBalancesAtomic(ctx context.Context, accountIDs []uuid.UUID, asOf *time.Time) (map[uuid.UUID]decimal.Decimal, error)
}

// AuditPort records ledger events for compliance. Best-effort.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// VerifyEnqueuer hands post-commit balance verification to a background
// worker. Optional; when absent verification runs inline.
type VerifyEnqueuer interface {
	EnqueueBalanceVerification(ctx context.Context, transactionID uuid.UUID, accountIDs []uuid.UUID) error
}

// Metrics counts orchestrator outcomes for operational alerting.
type Metrics interface {
	TransactionPosted()
	RollbackPosted()
	VerificationFailed()
}

// Service is the bookkeeping orchestrator.
type Service struct {
	accounts AccountPort
	journals JournalPort
	balances BalancePort
	audit    AuditPort
	verify   VerifyEnqueuer
	metrics  Metrics
	cache    *balance.Cache
	logger   *slog.Logger
	now      func() time.Time
}

// Options carries the optional collaborators.
type Options struct {
	Audit   AuditPort
	Verify  VerifyEnqueuer
	Metrics Metrics
	Cache   *balance.Cache
}

// NewService constructs the orchestrator.
func NewService(logger *slog.Logger, accounts AccountPort, journals JournalPort, balances BalancePort, opts Options) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		accounts: accounts,
		journals: journals,
		balances: balances,
		audit:    opts.Audit,
		verify:   opts.Verify,
		metrics:  opts.Metrics,
		cache:    opts.Cache,
		logger:   logger,
		now:      time.Now,
	}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// ProcessTransaction validates, persists, and verifies a new transaction.
// All validation happens before any write; the header and entries commit as
// one unit or not at all.
func (s *Service) ProcessTransaction(ctx context.Context, input TransactionInput) (journal.Transaction, error) {
	if err := input.Validate(); err != nil {
		return journal.Transaction{}, err
	}

	result := validate.Validate(toLines(input.Entries))
	if !result.IsValid {
		return journal.Transaction{}, invariantError(result)
	}

	touched := distinctAccounts(input.Entries)
	for _, accountID := range touched {
		account, err := s.accounts.GetByID(ctx, accountID)
		if err != nil {
			if shared.KindOf(err) == shared.KindNotFound {
				return journal.Transaction{}, shared.ErrAccountNotFound.WithField(accountID.String())
			}
			return journal.Transaction{}, err
		}
		if !account.IsActive {
			return journal.Transaction{}, shared.ErrInactiveAccount.WithField(account.Code)
		}
	}

	now := s.now()
	tx := journal.Transaction{
		ID:              uuid.New(),
		ReferenceNumber: journal.NewReferenceNumber(now),
		Date:            input.Date,
		Description:     input.Description,
		TotalAmount:     totalAmount(input.Entries),
		CreatedBy:       input.CreatedBy,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for _, in := range input.Entries {
		tx.Entries = append(tx.Entries, journal.Entry{
			ID:            uuid.New(),
			TransactionID: tx.ID,
			AccountID:     in.AccountID,
			Debit:         in.Debit,
			Credit:        in.Credit,
			Description:   in.Description,
			CreatedAt:     now,
		})
	}

	if err := s.journals.InsertTransactionWithEntries(ctx, tx); err != nil {
		return journal.Transaction{}, err
	}
	if s.metrics != nil {
		s.metrics.TransactionPosted()
	}
	s.cache.Invalidate(ctx, touched...)

	s.recordAudit(ctx, input.CreatedBy, "transaction.post", tx.ID, map[string]any{
		"reference":    tx.ReferenceNumber,
		"total_amount": tx.TotalAmount.String(),
		"entries":      len(tx.Entries),
	})

	// The transaction is committed; verification failures are reported but
	// never undo it.
	s.verifyBalances(ctx, tx.ID, touched)

	return tx, nil
}

// FindTransaction fetches a transaction with its entries.
func (s *Service) FindTransaction(ctx context.Context, id uuid.UUID) (journal.Transaction, error) {
	return s.journals.GetWithEntries(ctx, id)
}

// ValidateTransactionBalance is the standalone validate-before-submit API.
func (s *Service) ValidateTransactionBalance(entries []EntryInput) validate.Result {
	return validate.Validate(toLines(entries))
}

// AccountBalance delegates to the balance calculator.
func (s *Service) AccountBalance(ctx context.Context, accountID uuid.UUID, asOf *time.Time) (decimal.Decimal, error) {
	return s.balances.AccountBalance(ctx, accountID, asOf)
}

// MultipleAccountBalances delegates to the batched calculator.
func (s *Service) MultipleAccountBalances(ctx context.Context, accountIDs []uuid.UUID, asOf *time.Time) (balance.BatchResult, error) {
	return s.balances.MultipleBalances(ctx, accountIDs, asOf)
}

// TrialBalance computes the balance of every active account as of the given
// date. Accounts balancing to ~0 are excluded; rows are sorted by code. The
// caller verifies total debits against total credits as a health check; a
// persistent imbalance indicates a prior invariant breach and is surfaced,
// never corrected here.
func (s *Service) TrialBalance(ctx context.Context, asOf *time.Time) ([]TrialBalanceEntry, error) {
	active := true
	accounts, err := s.accounts.FindAll(ctx, coa.Filter{IsActive: &active})
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(accounts))
	for _, a := range accounts {
		ids = append(ids, a.ID)
	}
	balances, err := s.balances.MultipleBalancesAtomic(ctx, ids, asOf)
	if err != nil {
		return nil, err
	}

	entries := make([]TrialBalanceEntry, 0, len(accounts))
	for _, account := range accounts {
		bal := balances[account.ID]
		if bal.Abs().LessThan(validate.Tolerance) {
			continue
		}
		row := TrialBalanceEntry{
			AccountID: account.ID,
			Code:      account.Code,
			Name:      account.Name,
			Type:      string(account.Type),
			Balance:   bal,
			Display:   formatAmount(bal),
		}
		debitNormal := account.Type == coa.AccountTypeAsset || account.Type == coa.AccountTypeExpense
		switch {
		case debitNormal && bal.IsPositive(), !debitNormal && bal.IsNegative():
			row.DebitBalance = bal.Abs()
			row.CreditBalance = decimal.Zero
		default:
			row.DebitBalance = decimal.Zero
			row.CreditBalance = bal.Abs()
		}
		entries = append(entries, row)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Code < entries[j].Code })
	return entries, nil
}

// Rollback reverses a committed transaction by submitting a new one with
// debits and credits swapped through the normal processing pipeline. The
// original stays untouched; both remain visible in history.
func (s *Service) Rollback(ctx context.Context, transactionID uuid.UUID, reason, rollbackBy string) (journal.Transaction, error) {
	original, err := s.journals.GetWithEntries(ctx, transactionID)
	if err != nil {
		return journal.Transaction{}, err
	}
	input := TransactionInput{
		Date:        s.now(),
		Description: fmt.Sprintf("ROLLBACK: %s (Reason: %s)", original.Description, reason),
		CreatedBy:   rollbackBy,
		Entries:     reverseEntries(original.Entries),
	}
	reversal, err := s.ProcessTransaction(ctx, input)
	if err != nil {
		return journal.Transaction{}, err
	}
	if s.metrics != nil {
		s.metrics.RollbackPosted()
	}
	s.recordAudit(ctx, rollbackBy, "transaction.rollback", original.ID, map[string]any{
		"reversal_id":        reversal.ID.String(),
		"reversal_reference": reversal.ReferenceNumber,
		"reason":             reason,
	})
	return reversal, nil
}

func (s *Service) verifyBalances(ctx context.Context, transactionID uuid.UUID, accountIDs []uuid.UUID) {
	if s.verify != nil {
		err := s.verify.EnqueueBalanceVerification(ctx, transactionID, accountIDs)
		if err == nil {
			return
		}
		s.logger.Warn("enqueue balance verification", slog.Any("error", err))
	}
	result, err := s.balances.MultipleBalances(ctx, accountIDs, nil)
	if err != nil {
		s.reportVerificationFailure(transactionID, err)
		return
	}
	for id, accErr := range result.Errors {
		s.reportVerificationFailure(transactionID, fmt.Errorf("account %s: %w", id, accErr))
	}
}

func (s *Service) reportVerificationFailure(transactionID uuid.UUID, err error) {
	if s.metrics != nil {
		s.metrics.VerificationFailed()
	}
	s.logger.Warn("post-commit balance verification failed",
		slog.String("transaction_id", transactionID.String()),
		slog.Any("error", err))
}

func (s *Service) recordAudit(ctx context.Context, actor, action string, entityID uuid.UUID, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Actor:    actor,
		Action:   action,
		Entity:   "transaction",
		EntityID: entityID.String(),
		Meta:     meta,
		At:       s.now(),
	})
}

func invariantError(result validate.Result) error {
	for _, e := range result.Errors {
		if e.Code == validate.CodeUnbalanced {
			return shared.Newf(shared.KindInvariant, validate.CodeUnbalanced,
				"total debits %s do not equal total credits %s", result.TotalDebits, result.TotalCredits)
		}
	}
	first := result.Errors[0]
	return shared.New(shared.KindInvariant, first.Code, first.Message).WithField(fmt.Sprintf("entries[%d]", first.Line))
}

func toLines(entries []EntryInput) []validate.Line {
	lines := make([]validate.Line, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, validate.Line{Debit: e.Debit, Credit: e.Credit})
	}
	return lines
}

func distinctAccounts(entries []EntryInput) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(entries))
	var out []uuid.UUID
	for _, e := range entries {
		if _, ok := seen[e.AccountID]; ok {
			continue
		}
		seen[e.AccountID] = struct{}{}
		out = append(out, e.AccountID)
	}
	return out
}

// totalAmount sums the larger side of each entry and halves it, since both
// sides of a balanced set reflect the same economic amount.
func totalAmount(entries []EntryInput) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		if e.Debit.GreaterThanOrEqual(e.Credit) {
			total = total.Add(e.Debit)
		} else {
			total = total.Add(e.Credit)
		}
	}
	return total.Div(decimal.NewFromInt(2))
}

func reverseEntries(entries []journal.Entry) []EntryInput {
	out := make([]EntryInput, 0, len(entries))
	for _, e := range entries {
		out = append(out, EntryInput{
			AccountID:   e.AccountID,
			Debit:       e.Credit,
			Credit:      e.Debit,
			Description: e.Description,
		})
	}
	return out
}
