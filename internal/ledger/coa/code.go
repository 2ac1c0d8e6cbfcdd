package coa

import (
	"regexp"
	"strings"
)

// AccountType enumerates CoA categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// codePattern follows the Indonesian CoA convention: a leading type digit
// (1 asset, 2 liability, 3 equity, 4 revenue, 5 expense) plus 2-3 digits.
var codePattern = regexp.MustCompile(`^[1-5]\d{2,3}$`)

var typeByDigit = map[byte]AccountType{
	'1': AccountTypeAsset,
	'2': AccountTypeLiability,
	'3': AccountTypeEquity,
	'4': AccountTypeRevenue,
	'5': AccountTypeExpense,
}

// ValidateCode reports whether code has a valid format.
func ValidateCode(code string) bool {
	return codePattern.MatchString(code)
}

// TypeFromCode maps the leading digit to an account type. The boolean is
// false when the code is not valid.
func TypeFromCode(code string) (AccountType, bool) {
	if !ValidateCode(code) {
		return "", false
	}
	t, ok := typeByDigit[code[0]]
	return t, ok
}

// ValidateHierarchy reports whether parentCode may own childCode: the parent
// code must be a strict prefix of the child code.
func ValidateHierarchy(parentCode, childCode string) bool {
	return len(parentCode) < len(childCode) && strings.HasPrefix(childCode, parentCode)
}
