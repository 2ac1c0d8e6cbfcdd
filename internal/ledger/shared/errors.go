// Package shared carries the error taxonomy used across the ledger core.
package shared

import (
	"errors"
	"fmt"
)

// Kind classifies a ledger error for the calling layer.
type Kind string

const (
	// KindValidation marks bad input shape or format. Caller error, not
	// retryable as-is.
	KindValidation Kind = "VALIDATION"
	// KindInvariant marks a double-entry or hierarchy invariant breach.
	KindInvariant Kind = "INVARIANT"
	// KindNotFound marks a missing account or transaction.
	KindNotFound Kind = "NOT_FOUND"
	// KindConflict marks duplicate codes and delete protection conflicts.
	KindConflict Kind = "CONFLICT"
	// KindPersistence marks storage layer failures, possibly transient.
	KindPersistence Kind = "PERSISTENCE"
)

// Error is the structured ledger error. Code identifies the specific rule,
// Field optionally points at the offending attribute or entry row.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Field   string
	Err     error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("ledger: %s (%s): %s", e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("ledger: %s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches errors of the same Kind and Code so sentinels below work with
// errors.Is even after wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && (t.Code == "" || e.Code == t.Code)
}

// New constructs a ledger error.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Newf constructs a ledger error with a formatted message.
func Newf(kind Kind, code, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithField returns a copy annotated with the offending field or row.
func (e *Error) WithField(field string) *Error {
	clone := *e
	clone.Field = field
	return &clone
}

// Wrap attaches an underlying cause, typically a driver error.
func Wrap(kind Kind, code, message string, err error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

// Sentinels for errors.Is checks across packages.
var (
	// ErrInvalidCode indicates an account code outside [1-5]\d{2,3}.
	ErrInvalidCode = New(KindValidation, "INVALID_CODE", "account code must match [1-5] followed by 2-3 digits")
	// ErrTypeMismatch indicates the declared type contradicts the code prefix.
	ErrTypeMismatch = New(KindInvariant, "TYPE_MISMATCH", "account type does not match code prefix")
	// ErrDuplicateCode indicates the code already exists.
	ErrDuplicateCode = New(KindConflict, "DUPLICATE_CODE", "account code already exists")
	// ErrParentNotFound indicates the referenced parent account is missing.
	ErrParentNotFound = New(KindNotFound, "PARENT_NOT_FOUND", "parent account not found")
	// ErrHierarchyViolation indicates parent/child code or type mismatch.
	ErrHierarchyViolation = New(KindInvariant, "HIERARCHY_VIOLATION", "parent code must prefix child code and types must match")
	// ErrAccountNotFound indicates a missing account.
	ErrAccountNotFound = New(KindNotFound, "ACCOUNT_NOT_FOUND", "account not found")
	// ErrTransactionNotFound indicates a missing transaction.
	ErrTransactionNotFound = New(KindNotFound, "TRANSACTION_NOT_FOUND", "transaction not found")
	// ErrInactiveAccount indicates a journal entry references a deactivated account.
	ErrInactiveAccount = New(KindInvariant, "INACTIVE_ACCOUNT", "account is inactive")
	// ErrNoAssociatedData indicates deactivation of an entry-free account.
	ErrNoAssociatedData = New(KindConflict, "NO_ASSOCIATED_DATA", "account has no journal entries; delete it instead of deactivating")
	// ErrHasTransactions indicates deletion of an account with entries.
	ErrHasTransactions = New(KindConflict, "HAS_TRANSACTIONS", "account has journal entries; deactivate it instead of deleting")
	// ErrHasChildren indicates deletion of an account with children.
	ErrHasChildren = New(KindConflict, "HAS_CHILDREN", "account has child accounts")
	// ErrUnbalanced indicates total debits != total credits.
	ErrUnbalanced = New(KindInvariant, "UNBALANCED", "journal entries must balance")
	// ErrValidationFailed indicates a structurally invalid transaction request.
	ErrValidationFailed = New(KindValidation, "VALIDATION_FAILED", "transaction request is incomplete")
	// ErrPersistence indicates a storage failure. Nothing was persisted.
	ErrPersistence = New(KindPersistence, "PERSISTENCE_FAILED", "storage operation failed")
)

// KindOf extracts the Kind from any error, defaulting to persistence for
// unrecognised causes so callers treat unknown failures as retry-inspectable.
func KindOf(err error) Kind {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return KindPersistence
}
