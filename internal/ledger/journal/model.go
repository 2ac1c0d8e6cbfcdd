// Package journal stores transactions and their double-entry lines.
package journal

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction is an immutable journal header. It is created atomically with
// its entries and never mutated; corrections happen through reversing
// transactions.
type Transaction struct {
	ID              uuid.UUID
	ReferenceNumber string
	Date            time.Time
	Description     string
	TotalAmount     decimal.Decimal
	CreatedBy       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Entries         []Entry
}

// Entry is one transaction line affecting a single account by exactly one of
// debit or credit.
type Entry struct {
	ID            uuid.UUID
	TransactionID uuid.UUID
	AccountID     uuid.UUID
	Debit         decimal.Decimal
	Credit        decimal.Decimal
	Description   string
	CreatedAt     time.Time
}

// Sums aggregates debit and credit totals for one account.
type Sums struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
}
