// Package validate holds the pure double-entry balance checks.
package validate

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Tolerance absorbs monetary rounding when comparing debit and credit totals.
var Tolerance = decimal.RequireFromString("0.01")

// Error codes attached to ValidationError.
const (
	CodeNegativeAmount = "NEGATIVE_AMOUNT"
	CodeBothAmounts    = "BOTH_AMOUNTS"
	CodeMissingAmount  = "MISSING_AMOUNT"
	CodeUnbalanced     = "UNBALANCED"
)

// Line is the debit/credit pair of one proposed journal entry.
type Line struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

// ValidationError points at one failed check, optionally at a specific line.
type ValidationError struct {
	Code    string
	Line    int // -1 for aggregate errors
	Message string
}

func (e ValidationError) Error() string {
	if e.Line >= 0 {
		return fmt.Sprintf("entry %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Result reports the outcome of a balance validation.
type Result struct {
	IsValid      bool
	TotalDebits  decimal.Decimal
	TotalCredits decimal.Decimal
	Difference   decimal.Decimal
	Errors       []ValidationError
}

// Validate checks a proposed entry set: every line must carry exactly one
// positive side, and total debits must equal total credits within Tolerance.
// Pure and deterministic; used as a pre-check before persistence and as a
// standalone validate-before-submit API.
func Validate(lines []Line) Result {
	result := Result{
		TotalDebits:  decimal.Zero,
		TotalCredits: decimal.Zero,
	}
	for i, line := range lines {
		switch {
		case line.Debit.IsNegative() || line.Credit.IsNegative():
			result.Errors = append(result.Errors, ValidationError{
				Code:    CodeNegativeAmount,
				Line:    i,
				Message: "debit and credit amounts must not be negative",
			})
		case line.Debit.IsPositive() && line.Credit.IsPositive():
			result.Errors = append(result.Errors, ValidationError{
				Code:    CodeBothAmounts,
				Line:    i,
				Message: "an entry cannot carry both a debit and a credit",
			})
		case line.Debit.IsZero() && line.Credit.IsZero():
			result.Errors = append(result.Errors, ValidationError{
				Code:    CodeMissingAmount,
				Line:    i,
				Message: "an entry must carry a debit or a credit",
			})
		}
		result.TotalDebits = result.TotalDebits.Add(line.Debit)
		result.TotalCredits = result.TotalCredits.Add(line.Credit)
	}
	result.Difference = result.TotalDebits.Sub(result.TotalCredits)
	if result.Difference.Abs().GreaterThanOrEqual(Tolerance) {
		result.Errors = append(result.Errors, ValidationError{
			Code:    CodeUnbalanced,
			Line:    -1,
			Message: fmt.Sprintf("total debits %s do not equal total credits %s", result.TotalDebits, result.TotalCredits),
		})
	}
	result.IsValid = len(result.Errors) == 0
	return result
}
