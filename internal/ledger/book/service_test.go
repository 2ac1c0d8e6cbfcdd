package book

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/bukubesar/bukubesar/internal/ledger/balance"
	"github.com/bukubesar/bukubesar/internal/ledger/coa"
	"github.com/bukubesar/bukubesar/internal/ledger/journal"
	"github.com/bukubesar/bukubesar/internal/ledger/shared"
	"github.com/bukubesar/bukubesar/internal/ledger/validate"
	_ "github.com/bukubesar/bukubesar/testing"
)

type memoryStore struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]coa.Account
	txs      map[uuid.UUID]journal.Transaction
	failNext bool
	onInsert func()
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		accounts: make(map[uuid.UUID]coa.Account),
		txs:      make(map[uuid.UUID]journal.Transaction),
	}
}

func (m *memoryStore) addAccount(code, name string, accountType coa.AccountType, active bool) coa.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := coa.Account{ID: uuid.New(), Code: code, Name: name, Type: accountType, IsActive: active}
	m.accounts[a.ID] = a
	return a
}

func (m *memoryStore) GetByID(ctx context.Context, id uuid.UUID) (coa.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return coa.Account{}, shared.ErrAccountNotFound
	}
	return a, nil
}

func (m *memoryStore) FindAll(ctx context.Context, filter coa.Filter) ([]coa.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []coa.Account
	for _, a := range m.accounts {
		if filter.IsActive != nil && a.IsActive != *filter.IsActive {
			continue
		}
		if filter.Type != nil && a.Type != *filter.Type {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// InsertTransactionWithEntries mirrors the pgx repository: referenced
// accounts are re-verified inside the same critical section as the write.
func (m *memoryStore) InsertTransactionWithEntries(ctx context.Context, tx journal.Transaction) error {
	if m.onInsert != nil {
		m.onInsert()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext {
		m.failNext = false
		return shared.ErrPersistence
	}
	for _, e := range tx.Entries {
		a, ok := m.accounts[e.AccountID]
		if !ok {
			return shared.ErrAccountNotFound.WithField(e.AccountID.String())
		}
		if !a.IsActive {
			return shared.ErrInactiveAccount.WithField(a.Code)
		}
	}
	m.txs[tx.ID] = tx
	return nil
}

func (m *memoryStore) GetWithEntries(ctx context.Context, id uuid.UUID) (journal.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.txs[id]
	if !ok {
		return journal.Transaction{}, shared.ErrTransactionNotFound
	}
	return tx, nil
}

func (m *memoryStore) DebitCreditSums(ctx context.Context, accountID uuid.UUID, asOf *time.Time) (journal.Sums, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now()
	if asOf != nil {
		cutoff = *asOf
	}
	sums := journal.Sums{Debit: decimal.Zero, Credit: decimal.Zero}
	for _, tx := range m.txs {
		if tx.Date.After(cutoff) {
			continue
		}
		for _, e := range tx.Entries {
			if e.AccountID != accountID {
				continue
			}
			sums.Debit = sums.Debit.Add(e.Debit)
			sums.Credit = sums.Credit.Add(e.Credit)
		}
	}
	return sums, nil
}

type countingMetrics struct {
	posted, rollbacks, verifyFails int
}

func (c *countingMetrics) TransactionPosted()  { c.posted++ }
func (c *countingMetrics) RollbackPosted()     { c.rollbacks++ }
func (c *countingMetrics) VerificationFailed() { c.verifyFails++ }

func newTestService(store *memoryStore) (*Service, *countingMetrics) {
	calc := balance.NewCalculator(store, store, nil)
	metrics := &countingMetrics{}
	svc := NewService(nil, store, store, calc, Options{Metrics: metrics})
	return svc, metrics
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func entryPair(debitAccount, creditAccount uuid.UUID, amount string) []EntryInput {
	return []EntryInput{
		{AccountID: debitAccount, Debit: dec(amount), Credit: decimal.Zero},
		{AccountID: creditAccount, Debit: decimal.Zero, Credit: dec(amount)},
	}
}

func TestProcessTransactionAndBalances(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	cash := store.addAccount("1000", "Cash", coa.AccountTypeAsset, true)
	payable := store.addAccount("2000", "Payable", coa.AccountTypeLiability, true)
	svc, metrics := newTestService(store)

	tx, err := svc.ProcessTransaction(ctx, TransactionInput{
		Date:        time.Now(),
		Description: "Initial loan",
		CreatedBy:   "budi",
		Entries:     entryPair(cash.ID, payable.ID, "500.00"),
	})
	require.NoError(t, err)
	require.Len(t, tx.Entries, 2)
	require.True(t, tx.TotalAmount.Equal(dec("500.00")), "total %s", tx.TotalAmount)
	require.Regexp(t, `^TXN-\d{8}-\d{6}$`, tx.ReferenceNumber)
	require.Equal(t, 1, metrics.posted)

	cashBal, err := svc.AccountBalance(ctx, cash.ID, nil)
	require.NoError(t, err)
	require.True(t, cashBal.Equal(dec("500.00")), "cash balance %s", cashBal)

	// liability is credit-normal, so its balance is also positive
	payableBal, err := svc.AccountBalance(ctx, payable.ID, nil)
	require.NoError(t, err)
	require.True(t, payableBal.Equal(dec("500.00")), "payable balance %s", payableBal)
}

func TestProcessTransactionRejectsUnbalanced(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	cash := store.addAccount("1000", "Cash", coa.AccountTypeAsset, true)
	payable := store.addAccount("2000", "Payable", coa.AccountTypeLiability, true)
	svc, _ := newTestService(store)

	_, err := svc.ProcessTransaction(ctx, TransactionInput{
		Date:        time.Now(),
		Description: "Broken",
		CreatedBy:   "budi",
		Entries: []EntryInput{
			{AccountID: cash.ID, Debit: dec("100"), Credit: decimal.Zero},
			{AccountID: payable.ID, Debit: decimal.Zero, Credit: dec("99")},
		},
	})
	require.Error(t, err)
	require.Equal(t, shared.KindInvariant, shared.KindOf(err))
	require.ErrorContains(t, err, "UNBALANCED")

	// nothing persisted, balances untouched
	require.Empty(t, store.txs)
	bal, err := svc.AccountBalance(ctx, cash.ID, nil)
	require.NoError(t, err)
	require.True(t, bal.IsZero())
}

func TestProcessTransactionStructuralValidation(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	svc, _ := newTestService(store)

	cases := []TransactionInput{
		{Description: "no date", CreatedBy: "a", Entries: []EntryInput{{}}},
		{Date: time.Now(), CreatedBy: "a", Entries: []EntryInput{{}}},
		{Date: time.Now(), Description: "no creator", Entries: []EntryInput{{}}},
		{Date: time.Now(), Description: "no entries", CreatedBy: "a"},
	}
	for _, input := range cases {
		_, err := svc.ProcessTransaction(ctx, input)
		require.Error(t, err)
		require.Equal(t, shared.KindValidation, shared.KindOf(err))
	}
}

func TestProcessTransactionAccountChecks(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	cash := store.addAccount("1000", "Cash", coa.AccountTypeAsset, true)
	dormant := store.addAccount("2000", "Old Payable", coa.AccountTypeLiability, false)
	svc, _ := newTestService(store)

	_, err := svc.ProcessTransaction(ctx, TransactionInput{
		Date:        time.Now(),
		Description: "Unknown account",
		CreatedBy:   "budi",
		Entries:     entryPair(cash.ID, uuid.New(), "10"),
	})
	require.ErrorIs(t, err, shared.ErrAccountNotFound)
	require.Empty(t, store.txs)

	_, err = svc.ProcessTransaction(ctx, TransactionInput{
		Date:        time.Now(),
		Description: "Inactive account",
		CreatedBy:   "budi",
		Entries:     entryPair(cash.ID, dormant.ID, "10"),
	})
	require.ErrorIs(t, err, shared.ErrInactiveAccount)
	require.Empty(t, store.txs)
}

func TestProcessTransactionConcurrentDeactivate(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	cash := store.addAccount("1000", "Cash", coa.AccountTypeAsset, true)
	payable := store.addAccount("2000", "Payable", coa.AccountTypeLiability, true)
	svc, metrics := newTestService(store)

	store.onInsert = func() {
		store.mu.Lock()
		defer store.mu.Unlock()
		a := store.accounts[payable.ID]
		a.IsActive = false
		store.accounts[payable.ID] = a
	}

	_, err := svc.ProcessTransaction(ctx, TransactionInput{
		Date:        time.Now(),
		Description: "Deactivated mid-flight",
		CreatedBy:   "budi",
		Entries:     entryPair(cash.ID, payable.ID, "10"),
	})
	require.ErrorIs(t, err, shared.ErrInactiveAccount)
	require.Equal(t, 0, metrics.posted)
	require.Empty(t, store.txs)
}

func TestProcessTransactionPersistenceFailure(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	cash := store.addAccount("1000", "Cash", coa.AccountTypeAsset, true)
	payable := store.addAccount("2000", "Payable", coa.AccountTypeLiability, true)
	svc, metrics := newTestService(store)

	store.failNext = true
	_, err := svc.ProcessTransaction(ctx, TransactionInput{
		Date:        time.Now(),
		Description: "Will fail",
		CreatedBy:   "budi",
		Entries:     entryPair(cash.ID, payable.ID, "10"),
	})
	require.Error(t, err)
	require.Equal(t, shared.KindPersistence, shared.KindOf(err))
	require.Equal(t, 0, metrics.posted)
	require.Empty(t, store.txs)
}

func TestTrialBalance(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	cash := store.addAccount("1000", "Cash", coa.AccountTypeAsset, true)
	payable := store.addAccount("2000", "Payable", coa.AccountTypeLiability, true)
	store.addAccount("3000", "Equity", coa.AccountTypeEquity, true) // stays at zero
	svc, _ := newTestService(store)

	_, err := svc.ProcessTransaction(ctx, TransactionInput{
		Date:        time.Now(),
		Description: "Loan",
		CreatedBy:   "budi",
		Entries:     entryPair(cash.ID, payable.ID, "500.00"),
	})
	require.NoError(t, err)

	rows, err := svc.TrialBalance(ctx, nil)
	require.NoError(t, err)
	require.Len(t, rows, 2, "zero-balance accounts must be excluded")
	require.Equal(t, "1000", rows[0].Code)
	require.Equal(t, "2000", rows[1].Code)
	require.True(t, rows[0].DebitBalance.Equal(dec("500.00")))
	require.True(t, rows[0].CreditBalance.IsZero())
	require.True(t, rows[1].CreditBalance.Equal(dec("500.00")))
	require.True(t, rows[1].DebitBalance.IsZero())

	totalDebit, totalCredit := decimal.Zero, decimal.Zero
	for _, row := range rows {
		totalDebit = totalDebit.Add(row.DebitBalance)
		totalCredit = totalCredit.Add(row.CreditBalance)
	}
	require.True(t, totalDebit.Sub(totalCredit).Abs().LessThan(validate.Tolerance))
}

func TestTrialBalanceAsOfDate(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	cash := store.addAccount("1000", "Cash", coa.AccountTypeAsset, true)
	payable := store.addAccount("2000", "Payable", coa.AccountTypeLiability, true)
	svc, _ := newTestService(store)

	_, err := svc.ProcessTransaction(ctx, TransactionInput{
		Date:        time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		Description: "January loan",
		CreatedBy:   "budi",
		Entries:     entryPair(cash.ID, payable.ID, "100.00"),
	})
	require.NoError(t, err)
	_, err = svc.ProcessTransaction(ctx, TransactionInput{
		Date:        time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		Description: "March loan",
		CreatedBy:   "budi",
		Entries:     entryPair(cash.ID, payable.ID, "50.00"),
	})
	require.NoError(t, err)

	cutoff := time.Date(2026, 1, 31, 23, 59, 59, 0, time.UTC)
	bal, err := svc.AccountBalance(ctx, cash.ID, &cutoff)
	require.NoError(t, err)
	require.True(t, bal.Equal(dec("100.00")), "as-of balance %s", bal)

	bal, err = svc.AccountBalance(ctx, cash.ID, nil)
	require.NoError(t, err)
	require.True(t, bal.Equal(dec("150.00")))
}

func TestRollbackRestoresBalances(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	cash := store.addAccount("1000", "Cash", coa.AccountTypeAsset, true)
	revenue := store.addAccount("4000", "Sales", coa.AccountTypeRevenue, true)
	svc, metrics := newTestService(store)

	before, err := svc.AccountBalance(ctx, cash.ID, nil)
	require.NoError(t, err)

	tx, err := svc.ProcessTransaction(ctx, TransactionInput{
		Date:        time.Now(),
		Description: "Cash sale",
		CreatedBy:   "budi",
		Entries:     entryPair(cash.ID, revenue.ID, "250.00"),
	})
	require.NoError(t, err)

	reversal, err := svc.Rollback(ctx, tx.ID, "duplicate input", "siti")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(reversal.Description, "ROLLBACK: Cash sale (Reason: duplicate input)"))
	require.Equal(t, "siti", reversal.CreatedBy)
	require.Equal(t, 1, metrics.rollbacks)

	after, err := svc.AccountBalance(ctx, cash.ID, nil)
	require.NoError(t, err)
	require.True(t, after.Sub(before).Abs().LessThan(validate.Tolerance), "balance drifted by %s", after.Sub(before))

	// both transactions stay queryable
	_, err = store.GetWithEntries(ctx, tx.ID)
	require.NoError(t, err)
	got, err := store.GetWithEntries(ctx, reversal.ID)
	require.NoError(t, err)
	require.True(t, got.Entries[0].Debit.Equal(tx.Entries[0].Credit))
	require.True(t, got.Entries[0].Credit.Equal(tx.Entries[0].Debit))
}

func TestRollbackUnknownTransaction(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	svc, _ := newTestService(store)

	_, err := svc.Rollback(ctx, uuid.New(), "oops", "siti")
	require.ErrorIs(t, err, shared.ErrTransactionNotFound)
}

func TestValidateTransactionBalance(t *testing.T) {
	store := newMemoryStore()
	svc, _ := newTestService(store)

	res := svc.ValidateTransactionBalance([]EntryInput{
		{AccountID: uuid.New(), Debit: dec("10"), Credit: decimal.Zero},
		{AccountID: uuid.New(), Debit: decimal.Zero, Credit: dec("10")},
	})
	require.True(t, res.IsValid)

	res = svc.ValidateTransactionBalance([]EntryInput{
		{AccountID: uuid.New(), Debit: dec("10"), Credit: dec("10")},
	})
	require.False(t, res.IsValid)
}

func TestMultipleAccountBalancesPartialFailure(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	cash := store.addAccount("1000", "Cash", coa.AccountTypeAsset, true)
	svc, _ := newTestService(store)

	unknown := uuid.New()
	result, err := svc.MultipleAccountBalances(ctx, []uuid.UUID{cash.ID, unknown}, nil)
	require.NoError(t, err)
	require.Contains(t, result.Balances, cash.ID)
	require.Contains(t, result.Errors, unknown)
}
