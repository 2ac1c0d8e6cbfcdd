package journal

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bukubesar/bukubesar/internal/ledger/shared"
	"github.com/bukubesar/bukubesar/internal/platform/db"
)

// Repository encapsulates DB operations for transactions and entries.
type Repository interface {
	// InsertTransactionWithEntries persists the header and all entries in a
	// single storage transaction. Every referenced account is re-verified and
	// share-locked inside that transaction, so a concurrent deactivate or
	// delete cannot land between verification and commit. On failure nothing
	// is persisted.
	InsertTransactionWithEntries(ctx context.Context, tx Transaction) error
	GetWithEntries(ctx context.Context, id uuid.UUID) (Transaction, error)
	List(ctx context.Context, limit int) ([]Transaction, error)
	// DebitCreditSums aggregates committed entries for one account up to and
	// including asOf. A nil asOf means now.
	DebitCreditSums(ctx context.Context, accountID uuid.UUID, asOf *time.Time) (Sums, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) InsertTransactionWithEntries(ctx context.Context, t Transaction) error {
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		for _, accountID := range distinctAccountIDs(t.Entries) {
			if err := lockActiveAccount(ctx, tx, accountID); err != nil {
				return err
			}
		}
		_, err := tx.Exec(ctx, `INSERT INTO transactions (id, reference_number, date, description, total_amount, created_by, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`, t.ID, t.ReferenceNumber, t.Date, t.Description, t.TotalAmount, t.CreatedBy, t.CreatedAt, t.UpdatedAt)
		if err != nil {
			return err
		}
		for _, entry := range t.Entries {
			_, err = tx.Exec(ctx, `INSERT INTO journal_entries (id, transaction_id, account_id, debit_amount, credit_amount, description, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)`, entry.ID, t.ID, entry.AccountID, entry.Debit, entry.Credit, entry.Description, entry.CreatedAt)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		var serr *shared.Error
		if errors.As(err, &serr) {
			return err
		}
		return shared.Wrap(shared.KindPersistence, "PERSISTENCE_FAILED", "insert transaction with entries", err)
	}
	return nil
}

// lockActiveAccount takes a share lock on the account row so a concurrent
// deactivate or delete blocks until this posting commits.
func lockActiveAccount(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) error {
	var code string
	var active bool
	err := tx.QueryRow(ctx, `SELECT code, is_active FROM accounts WHERE id=$1 FOR SHARE`, accountID).Scan(&code, &active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return shared.ErrAccountNotFound.WithField(accountID.String())
		}
		return err
	}
	if !active {
		return shared.ErrInactiveAccount.WithField(code)
	}
	return nil
}

func distinctAccountIDs(entries []Entry) []uuid.UUID {
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

func (r *repository) GetWithEntries(ctx context.Context, id uuid.UUID) (Transaction, error) {
	var t Transaction
	err := r.db.QueryRow(ctx, `SELECT id, reference_number, date, description, total_amount, created_by, created_at, updated_at
FROM transactions WHERE id=$1`, id).
		Scan(&t.ID, &t.ReferenceNumber, &t.Date, &t.Description, &t.TotalAmount, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, shared.ErrTransactionNotFound
		}
		return Transaction{}, err
	}
	rows, err := r.db.Query(ctx, `SELECT id, transaction_id, account_id, debit_amount, credit_amount, description, created_at
FROM journal_entries WHERE transaction_id=$1 ORDER BY created_at ASC, id ASC`, id)
	if err != nil {
		return Transaction{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.TransactionID, &e.AccountID, &e.Debit, &e.Credit, &e.Description, &e.CreatedAt); err != nil {
			return Transaction{}, err
		}
		t.Entries = append(t.Entries, e)
	}
	return t, rows.Err()
}

func (r *repository) List(ctx context.Context, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `SELECT id, reference_number, date, description, total_amount, created_by, created_at, updated_at
FROM transactions ORDER BY date DESC, created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.ReferenceNumber, &t.Date, &t.Description, &t.TotalAmount, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *repository) DebitCreditSums(ctx context.Context, accountID uuid.UUID, asOf *time.Time) (Sums, error) {
	cutoff := time.Now()
	if asOf != nil {
		cutoff = *asOf
	}
	var sums Sums
	err := r.db.QueryRow(ctx, `SELECT COALESCE(SUM(e.debit_amount),0), COALESCE(SUM(e.credit_amount),0)
FROM journal_entries e
JOIN transactions t ON t.id = e.transaction_id
WHERE e.account_id=$1 AND t.date <= $2`, accountID, cutoff).
		Scan(&sums.Debit, &sums.Credit)
	if err != nil {
		return Sums{}, err
	}
	return sums, nil
}
