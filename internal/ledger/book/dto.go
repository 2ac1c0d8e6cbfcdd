package book

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bukubesar/bukubesar/internal/ledger/shared"
)

// EntryInput describes one proposed journal entry.
type EntryInput struct {
	AccountID   uuid.UUID
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Description string
}

// TransactionInput groups fields required to post a transaction.
type TransactionInput struct {
	Date        time.Time
	Description string
	CreatedBy   string
	Entries     []EntryInput
}

// Validate performs the structural checks that precede balance validation.
func (in TransactionInput) Validate() error {
	if in.Date.IsZero() {
		return shared.ErrValidationFailed.WithField("date")
	}
	if in.Description == "" {
		return shared.ErrValidationFailed.WithField("description")
	}
	if in.CreatedBy == "" {
		return shared.ErrValidationFailed.WithField("createdBy")
	}
	if len(in.Entries) == 0 {
		return shared.ErrValidationFailed.WithField("entries")
	}
	return nil
}

// TrialBalanceEntry is one derived row of the trial balance report.
type TrialBalanceEntry struct {
	AccountID     uuid.UUID
	Code          string
	Name          string
	Type          string
	DebitBalance  decimal.Decimal
	CreditBalance decimal.Decimal
	Balance       decimal.Decimal
	Display       string
}
