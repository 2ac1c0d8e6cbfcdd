package coa

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account models a chart of accounts node. The row carries no balance
// column; balances are always derived from journal entries.
type Account struct {
	ID          uuid.UUID
	Code        string
	Name        string
	Type        AccountType
	ParentID    *uuid.UUID
	IsActive    bool
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HierarchyNode is an account with its computed balance and children,
// assembled by Service.Hierarchy.
type HierarchyNode struct {
	Account  Account
	Balance  decimal.Decimal
	Children []*HierarchyNode
}

// Filter narrows FindAll results. Nil fields are ignored.
type Filter struct {
	Type     *AccountType
	IsActive *bool
	ParentID *uuid.UUID
}

// CreateInput groups fields for account creation.
type CreateInput struct {
	Code        string
	Name        string
	Type        AccountType
	ParentID    *uuid.UUID
	Description string
}

// UpdateInput groups mutable account fields. Nil fields are left untouched.
type UpdateInput struct {
	Name        *string
	Description *string
	ParentID    *uuid.UUID
	ClearParent bool
}
