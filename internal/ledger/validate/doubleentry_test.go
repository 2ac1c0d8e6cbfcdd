package validate

import (
	"testing"

	"github.com/shopspring/decimal"

	_ "github.com/bukubesar/bukubesar/testing"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestValidateBalanced(t *testing.T) {
	res := Validate([]Line{
		{Debit: dec("500.00"), Credit: decimal.Zero},
		{Debit: decimal.Zero, Credit: dec("500.00")},
	})
	if !res.IsValid {
		t.Fatalf("expected valid, got errors %v", res.Errors)
	}
	if !res.TotalDebits.Equal(dec("500.00")) || !res.TotalCredits.Equal(dec("500.00")) {
		t.Fatalf("unexpected totals %s / %s", res.TotalDebits, res.TotalCredits)
	}
	if !res.Difference.IsZero() {
		t.Fatalf("expected zero difference got %s", res.Difference)
	}
}

func TestValidateUnbalanced(t *testing.T) {
	res := Validate([]Line{
		{Debit: dec("100"), Credit: decimal.Zero},
		{Debit: decimal.Zero, Credit: dec("99")},
	})
	if res.IsValid {
		t.Fatal("expected invalid result")
	}
	if len(res.Errors) != 1 || res.Errors[0].Code != CodeUnbalanced {
		t.Fatalf("expected UNBALANCED, got %v", res.Errors)
	}
	if !res.Difference.Equal(dec("1")) {
		t.Fatalf("expected difference 1 got %s", res.Difference)
	}
}

func TestValidateWithinTolerance(t *testing.T) {
	res := Validate([]Line{
		{Debit: dec("100.005"), Credit: decimal.Zero},
		{Debit: decimal.Zero, Credit: dec("100.00")},
	})
	if !res.IsValid {
		t.Fatalf("sub-cent rounding should pass, got %v", res.Errors)
	}
}

func TestValidatePerLineChecks(t *testing.T) {
	res := Validate([]Line{
		{Debit: dec("10"), Credit: dec("10")},
		{Debit: decimal.Zero, Credit: decimal.Zero},
		{Debit: dec("-5"), Credit: decimal.Zero},
	})
	if res.IsValid {
		t.Fatal("expected invalid result")
	}
	codes := map[string]int{}
	for _, e := range res.Errors {
		codes[e.Code] = e.Line
	}
	if line, ok := codes[CodeBothAmounts]; !ok || line != 0 {
		t.Fatalf("expected BOTH_AMOUNTS on line 0, got %v", res.Errors)
	}
	if line, ok := codes[CodeMissingAmount]; !ok || line != 1 {
		t.Fatalf("expected MISSING_AMOUNT on line 1, got %v", res.Errors)
	}
	if line, ok := codes[CodeNegativeAmount]; !ok || line != 2 {
		t.Fatalf("expected NEGATIVE_AMOUNT on line 2, got %v", res.Errors)
	}
}

func TestValidateEmpty(t *testing.T) {
	res := Validate(nil)
	if !res.IsValid {
		// zero entries balance trivially; structural checks live upstream
		t.Fatalf("expected empty set to pass balance check, got %v", res.Errors)
	}
}
