package coa

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bukubesar/bukubesar/internal/ledger/shared"
	"github.com/bukubesar/bukubesar/internal/platform/db"
)

// Repository encapsulates DB operations for the chart of accounts.
// Mutations run through WithTx so existence checks and writes share one
// storage transaction.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (Account, error)
	GetByCode(ctx context.Context, code string) (Account, error)
	FindAll(ctx context.Context, filter Filter) ([]Account, error)
	ListChildren(ctx context.Context, parentID uuid.UUID) ([]Account, error)
	ListRoots(ctx context.Context, rootType *AccountType) ([]Account, error)
	CountEntries(ctx context.Context, accountID uuid.UUID) (int64, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes operations available within a transaction.
type TxRepository interface {
	Insert(ctx context.Context, a Account) error
	Update(ctx context.Context, a Account) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (Account, error)
	GetByCode(ctx context.Context, code string) (Account, error)
	CountEntries(ctx context.Context, accountID uuid.UUID) (int64, error)
	CountChildren(ctx context.Context, accountID uuid.UUID) (int64, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const accountColumns = `id, code, name, type, parent_id, is_active, description, created_at, updated_at`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.ParentID, &a.IsActive, &a.Description, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.ErrAccountNotFound
		}
		return Account{}, err
	}
	return a, nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (Account, error) {
	return scanAccount(r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1`, id))
}

func (r *repository) GetByCode(ctx context.Context, code string) (Account, error) {
	return scanAccount(r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE code=$1`, code))
}

func (r *repository) FindAll(ctx context.Context, filter Filter) ([]Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE 1=1`
	args := []any{}
	if filter.Type != nil {
		args = append(args, *filter.Type)
		query += ` AND type=$` + strconv.Itoa(len(args))
	}
	if filter.IsActive != nil {
		args = append(args, *filter.IsActive)
		query += ` AND is_active=$` + strconv.Itoa(len(args))
	}
	if filter.ParentID != nil {
		args = append(args, *filter.ParentID)
		query += ` AND parent_id=$` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY code ASC`
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAccounts(rows)
}

func (r *repository) ListChildren(ctx context.Context, parentID uuid.UUID) ([]Account, error) {
	rows, err := r.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE parent_id=$1 ORDER BY code ASC`, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAccounts(rows)
}

func (r *repository) ListRoots(ctx context.Context, rootType *AccountType) ([]Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE parent_id IS NULL AND is_active=TRUE`
	args := []any{}
	if rootType != nil {
		args = append(args, *rootType)
		query += ` AND type=$1`
	}
	query += ` ORDER BY code ASC`
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAccounts(rows)
}

func (r *repository) CountEntries(ctx context.Context, accountID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM journal_entries WHERE account_id=$1`, accountID).Scan(&n)
	return n, err
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) Insert(ctx context.Context, a Account) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO accounts (id, code, name, type, parent_id, is_active, description, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`, a.ID, a.Code, a.Name, a.Type, a.ParentID, a.IsActive, a.Description, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return shared.ErrDuplicateCode
		}
		return err
	}
	return nil
}

func (r *txRepository) Update(ctx context.Context, a Account) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE accounts SET name=$2, description=$3, parent_id=$4, updated_at=$5 WHERE id=$1`,
		a.ID, a.Name, a.Description, a.ParentID, a.UpdatedAt)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrAccountNotFound
	}
	return nil
}

func (r *txRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE accounts SET is_active=$2, updated_at=NOW() WHERE id=$1`, id, active)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrAccountNotFound
	}
	return nil
}

func (r *txRepository) Delete(ctx context.Context, id uuid.UUID) error {
	cmd, err := r.tx.Exec(ctx, `DELETE FROM accounts WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrAccountNotFound
	}
	return nil
}

func (r *txRepository) GetByID(ctx context.Context, id uuid.UUID) (Account, error) {
	return scanAccount(r.tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1`, id))
}

func (r *txRepository) GetByCode(ctx context.Context, code string) (Account, error) {
	return scanAccount(r.tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE code=$1`, code))
}

func (r *txRepository) CountEntries(ctx context.Context, accountID uuid.UUID) (int64, error) {
	var n int64
	err := r.tx.QueryRow(ctx, `SELECT COUNT(*) FROM journal_entries WHERE account_id=$1`, accountID).Scan(&n)
	return n, err
}

func (r *txRepository) CountChildren(ctx context.Context, accountID uuid.UUID) (int64, error) {
	var n int64
	err := r.tx.QueryRow(ctx, `SELECT COUNT(*) FROM accounts WHERE parent_id=$1`, accountID).Scan(&n)
	return n, err
}

func collectAccounts(rows pgx.Rows) ([]Account, error) {
	var accounts []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.ParentID, &a.IsActive, &a.Description, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
