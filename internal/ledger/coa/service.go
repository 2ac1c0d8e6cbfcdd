package coa

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bukubesar/bukubesar/internal/ledger/shared"
)

// BalanceReader supplies derived balances for hierarchy assembly. Cached
// balances are never read here; the implementation recomputes from entries.
type BalanceReader interface {
	AccountBalance(ctx context.Context, accountID uuid.UUID, asOf *time.Time) (decimal.Decimal, error)
}

// Service coordinates chart of accounts lifecycle.
//
// The delete/deactivate lifecycle is asymmetric on purpose: accounts holding
// journal entries may only be deactivated, while entry-free accounts may only
// be deleted. Pending product confirmation whether entry-free accounts should
// also support deactivation.
type Service struct {
	repo     Repository
	balances BalanceReader
	now      func() time.Time
}

// NewService constructs the account service.
func NewService(repo Repository, balances BalanceReader) *Service {
	return &Service{repo: repo, balances: balances, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Create validates and persists a new account.
func (s *Service) Create(ctx context.Context, input CreateInput) (Account, error) {
	if !ValidateCode(input.Code) {
		return Account{}, shared.ErrInvalidCode.WithField("code")
	}
	expected, _ := TypeFromCode(input.Code)
	if input.Type != expected {
		return Account{}, shared.ErrTypeMismatch.WithField("type")
	}
	if input.Name == "" {
		return Account{}, shared.New(shared.KindValidation, "VALIDATION_FAILED", "account name required").WithField("name")
	}
	now := s.now()
	account := Account{
		ID:          uuid.New(),
		Code:        input.Code,
		Name:        input.Name,
		Type:        input.Type,
		ParentID:    input.ParentID,
		IsActive:    true,
		Description: input.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetByCode(ctx, input.Code); err == nil {
			return shared.ErrDuplicateCode.WithField("code")
		} else if !isNotFound(err) {
			return err
		}
		if input.ParentID != nil {
			parent, err := tx.GetByID(ctx, *input.ParentID)
			if err != nil {
				if isNotFound(err) {
					return shared.ErrParentNotFound.WithField("parentId")
				}
				return err
			}
			if err := checkHierarchy(parent, input.Code, input.Type); err != nil {
				return err
			}
		}
		return tx.Insert(ctx, account)
	})
	if err != nil {
		return Account{}, err
	}
	return account, nil
}

// Update applies name/description/parent changes, re-validating the
// hierarchy when the parent moves.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (Account, error) {
	var updated Account
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		account, err := tx.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if input.Name != nil {
			account.Name = *input.Name
		}
		if input.Description != nil {
			account.Description = *input.Description
		}
		if input.ClearParent {
			account.ParentID = nil
		} else if input.ParentID != nil {
			parent, err := tx.GetByID(ctx, *input.ParentID)
			if err != nil {
				if isNotFound(err) {
					return shared.ErrParentNotFound.WithField("parentId")
				}
				return err
			}
			if parent.ID == account.ID {
				return shared.ErrHierarchyViolation.WithField("parentId")
			}
			if err := checkHierarchy(parent, account.Code, account.Type); err != nil {
				return err
			}
			account.ParentID = input.ParentID
		}
		account.UpdatedAt = s.now()
		if err := tx.Update(ctx, account); err != nil {
			return err
		}
		updated = account
		return nil
	})
	if err != nil {
		return Account{}, err
	}
	return updated, nil
}

// Deactivate soft-removes an account that has journal entries.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) (Account, error) {
	var account Account
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetByID(ctx, id)
		if err != nil {
			return err
		}
		entries, err := tx.CountEntries(ctx, id)
		if err != nil {
			return err
		}
		if entries == 0 {
			return shared.ErrNoAssociatedData
		}
		if err := tx.SetActive(ctx, id, false); err != nil {
			return err
		}
		current.IsActive = false
		current.UpdatedAt = s.now()
		account = current
		return nil
	})
	if err != nil {
		return Account{}, err
	}
	return account, nil
}

// Delete hard-removes an entry-free, childless account.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetByID(ctx, id); err != nil {
			return err
		}
		entries, err := tx.CountEntries(ctx, id)
		if err != nil {
			return err
		}
		if entries > 0 {
			return shared.ErrHasTransactions
		}
		children, err := tx.CountChildren(ctx, id)
		if err != nil {
			return err
		}
		if children > 0 {
			return shared.ErrHasChildren
		}
		return tx.Delete(ctx, id)
	})
}

// FindByID fetches one account.
func (s *Service) FindByID(ctx context.Context, id uuid.UUID) (Account, error) {
	return s.repo.GetByID(ctx, id)
}

// FindByCode fetches one account by its code.
func (s *Service) FindByCode(ctx context.Context, code string) (Account, error) {
	return s.repo.GetByCode(ctx, code)
}

// FindAll lists accounts ordered by code.
func (s *Service) FindAll(ctx context.Context, filter Filter) ([]Account, error) {
	return s.repo.FindAll(ctx, filter)
}

// Hierarchy assembles the account tree under active root accounts, each node
// carrying its derived balance.
func (s *Service) Hierarchy(ctx context.Context, rootType *AccountType) ([]*HierarchyNode, error) {
	roots, err := s.repo.ListRoots(ctx, rootType)
	if err != nil {
		return nil, err
	}
	nodes := make([]*HierarchyNode, 0, len(roots))
	for _, root := range roots {
		node, err := s.buildNode(ctx, root)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func (s *Service) buildNode(ctx context.Context, account Account) (*HierarchyNode, error) {
	node := &HierarchyNode{Account: account, Balance: decimal.Zero}
	if s.balances != nil {
		bal, err := s.balances.AccountBalance(ctx, account.ID, nil)
		if err != nil {
			return nil, err
		}
		node.Balance = bal
	}
	children, err := s.repo.ListChildren(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	for _, child := range children {
		childNode, err := s.buildNode(ctx, child)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, childNode)
	}
	return node, nil
}

func checkHierarchy(parent Account, childCode string, childType AccountType) error {
	if !ValidateHierarchy(parent.Code, childCode) {
		return shared.ErrHierarchyViolation.WithField("code")
	}
	if parent.Type != childType {
		return shared.ErrHierarchyViolation.WithField("type")
	}
	return nil
}

func isNotFound(err error) bool {
	return shared.KindOf(err) == shared.KindNotFound
}
