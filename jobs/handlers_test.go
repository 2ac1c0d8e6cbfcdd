package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/bukubesar/bukubesar/internal/ledger/balance"
	"github.com/bukubesar/bukubesar/internal/ledger/book"
	"github.com/bukubesar/bukubesar/internal/ledger/coa"
)

type stubLedger struct {
	rows     []book.TrialBalanceEntry
	rowsErr  error
	batch    balance.BatchResult
	batchErr error
	gotIDs   []uuid.UUID
}

func (s *stubLedger) MultipleAccountBalances(_ context.Context, accountIDs []uuid.UUID, _ *time.Time) (balance.BatchResult, error) {
	s.gotIDs = accountIDs
	return s.batch, s.batchErr
}

func (s *stubLedger) TrialBalance(context.Context, *time.Time) ([]book.TrialBalanceEntry, error) {
	return s.rows, s.rowsErr
}

type stubAccounts struct {
	accounts []coa.Account
	err      error
}

func (s *stubAccounts) FindAll(context.Context, coa.Filter) ([]coa.Account, error) {
	return s.accounts, s.err
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestHandleGLIntegrityBalanced(t *testing.T) {
	ledger := &stubLedger{rows: []book.TrialBalanceEntry{
		{Code: "1101", DebitBalance: amount("5000000"), CreditBalance: decimal.Zero},
		{Code: "3101", DebitBalance: decimal.Zero, CreditBalance: amount("5000000")},
	}}
	h := NewHandlers(ledger, &stubAccounts{}, nil, nil, nil)

	err := h.HandleGLIntegrity(context.Background(), NewGLIntegrityTask())
	require.NoError(t, err)
}

func TestHandleGLIntegrityImbalanceIsAlertedNotFailed(t *testing.T) {
	ledger := &stubLedger{rows: []book.TrialBalanceEntry{
		{Code: "1101", DebitBalance: amount("5000000"), CreditBalance: decimal.Zero},
		{Code: "3101", DebitBalance: decimal.Zero, CreditBalance: amount("4999000")},
	}}
	h := NewHandlers(ledger, &stubAccounts{}, nil, nil, nil)

	err := h.HandleGLIntegrity(context.Background(), NewGLIntegrityTask())
	require.NoError(t, err)
}

func TestHandleGLIntegrityPropagatesReadError(t *testing.T) {
	ledger := &stubLedger{rowsErr: errors.New("db down")}
	h := NewHandlers(ledger, &stubAccounts{}, nil, nil, nil)

	err := h.HandleGLIntegrity(context.Background(), NewGLIntegrityTask())
	require.Error(t, err)
}

func TestHandleBalanceVerify(t *testing.T) {
	accountID := uuid.New()
	ledger := &stubLedger{batch: balance.BatchResult{
		Balances: map[uuid.UUID]decimal.Decimal{accountID: amount("250000")},
		Errors:   map[uuid.UUID]error{},
	}}
	h := NewHandlers(ledger, &stubAccounts{}, nil, nil, nil)

	task, err := NewBalanceVerifyTask(BalanceVerifyPayload{
		TransactionID: uuid.New(),
		AccountIDs:    []uuid.UUID{accountID},
	})
	require.NoError(t, err)

	require.NoError(t, h.HandleBalanceVerify(context.Background(), task))
	require.Equal(t, []uuid.UUID{accountID}, ledger.gotIDs)
}

func TestHandleBalanceVerifyBadPayloadSkipsRetry(t *testing.T) {
	h := NewHandlers(&stubLedger{}, &stubAccounts{}, nil, nil, nil)

	task := asynq.NewTask(TaskTypeBalanceVerify, []byte("{"))
	err := h.HandleBalanceVerify(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleCacheRefresh(t *testing.T) {
	first := uuid.New()
	second := uuid.New()
	ledger := &stubLedger{batch: balance.BatchResult{
		Balances: map[uuid.UUID]decimal.Decimal{
			first:  amount("100000"),
			second: amount("-5000"),
		},
		Errors: map[uuid.UUID]error{},
	}}
	accounts := &stubAccounts{accounts: []coa.Account{
		{ID: first, Code: "1101"},
		{ID: second, Code: "2101"},
	}}
	h := NewHandlers(ledger, accounts, nil, nil, nil)

	require.NoError(t, h.HandleCacheRefresh(context.Background(), NewCacheRefreshTask()))
	require.Len(t, ledger.gotIDs, 2)
}

func TestHandleCacheRefreshNoAccounts(t *testing.T) {
	ledger := &stubLedger{}
	h := NewHandlers(ledger, &stubAccounts{}, nil, nil, nil)

	require.NoError(t, h.HandleCacheRefresh(context.Background(), NewCacheRefreshTask()))
	require.Nil(t, ledger.gotIDs)
}
