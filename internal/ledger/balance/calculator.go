// Package balance derives account balances from committed journal entries.
package balance

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/bukubesar/bukubesar/internal/ledger/coa"
	"github.com/bukubesar/bukubesar/internal/ledger/journal"
)

// AccountReader supplies the account type needed for the sign convention.
type AccountReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (coa.Account, error)
}

// SumsReader aggregates committed debit/credit totals per account.
type SumsReader interface {
	DebitCreditSums(ctx context.Context, accountID uuid.UUID, asOf *time.Time) (journal.Sums, error)
}

// Calculator computes derived balances. Results are always recomputed from
// the full entry set; the advisory cache only receives them for display.
type Calculator struct {
	accounts AccountReader
	sums     SumsReader
	cache    *Cache
}

// NewCalculator constructs the calculator. cache may be nil.
func NewCalculator(accounts AccountReader, sums SumsReader, cache *Cache) *Calculator {
	return &Calculator{accounts: accounts, sums: sums, cache: cache}
}

// Apply resolves the normal balance for an account type: assets and expenses
// are debit-normal, the rest credit-normal.
func Apply(accountType coa.AccountType, sums journal.Sums) decimal.Decimal {
	switch accountType {
	case coa.AccountTypeAsset, coa.AccountTypeExpense:
		return sums.Debit.Sub(sums.Credit)
	default:
		return sums.Credit.Sub(sums.Debit)
	}
}

// AccountBalance sums all entries for the account up to and including asOf
// (nil means now) under the account type's sign convention.
func (c *Calculator) AccountBalance(ctx context.Context, accountID uuid.UUID, asOf *time.Time) (decimal.Decimal, error) {
	account, err := c.accounts.GetByID(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	sums, err := c.sums.DebitCreditSums(ctx, accountID, asOf)
	if err != nil {
		return decimal.Zero, err
	}
	result := Apply(account.Type, sums)
	if c.cache != nil && asOf == nil {
		c.cache.Put(ctx, accountID, result)
	}
	return result, nil
}

// BatchResult holds per-account outcomes of a batched computation.
type BatchResult struct {
	Balances map[uuid.UUID]decimal.Decimal
	Errors   map[uuid.UUID]error
}

// maxConcurrentBalances bounds fan-out against the connection pool.
const maxConcurrentBalances = 8

// MultipleBalances computes balances independently per account. Individual
// failures land in the result's Errors map and do not abort the batch; the
// returned error is reserved for caller-side cancellation.
func (c *Calculator) MultipleBalances(ctx context.Context, accountIDs []uuid.UUID, asOf *time.Time) (BatchResult, error) {
	result := BatchResult{
		Balances: make(map[uuid.UUID]decimal.Decimal, len(accountIDs)),
		Errors:   make(map[uuid.UUID]error),
	}
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(maxConcurrentBalances)
	for _, id := range accountIDs {
		id := id
		g.Go(func() error {
			bal, err := c.AccountBalance(ctx, id, asOf)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Errors[id] = err
				return nil
			}
			result.Balances[id] = bal
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// MultipleBalancesAtomic is the all-or-nothing variant: the first failure
// aborts the batch and is returned.
func (c *Calculator) MultipleBalancesAtomic(ctx context.Context, accountIDs []uuid.UUID, asOf *time.Time) (map[uuid.UUID]decimal.Decimal, error) {
	balances := make(map[uuid.UUID]decimal.Decimal, len(accountIDs))
	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentBalances)
	for _, id := range accountIDs {
		id := id
		g.Go(func() error {
			bal, err := c.AccountBalance(ctx, id, asOf)
			if err != nil {
				return err
			}
			mu.Lock()
			balances[id] = bal
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return balances, nil
}
