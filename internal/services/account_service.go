package services

import (
	"context"
	"log"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/corebank/ledger/internal/models"
	"github.com/corebank/ledger/internal/store"
)

// AccountService creates and reads accounts on behalf of a resolved actor.
// Balance mutation never happens here; that is the ledger's job.
type AccountService struct {
	store  store.Store
	ledger *LedgerService
}

func NewAccountService(st store.Store, ledger *LedgerService) *AccountService {
	return &AccountService{store: st, ledger: ledger}
}

// Create opens a zero-balance account for ownerID. A positive opening balance
// is folded into the history as the account's first deposit, so the
// reconciliation invariant holds from transaction 1.
func (s *AccountService) Create(ctx context.Context, ownerID int64, accountType models.AccountType, openingBalance decimal.Decimal) (*models.Account, error) {
	if !accountType.Valid() {
		return nil, models.NewValidationError("account_type", "must be SAVINGS or CHECKING")
	}
	if openingBalance.IsNegative() {
		return nil, models.NewValidationError("balance", "must not be negative")
	}

	account := &models.Account{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		AccountType: accountType,
		Balance:     decimal.Zero,
		Version:     1,
	}
	if err := s.store.CreateAccount(ctx, account); err != nil {
		return nil, err
	}
	log.Printf("[ACCOUNT] Created %s account %s for owner %d", accountType, account.ID, ownerID)

	if openingBalance.IsPositive() {
		if _, err := s.ledger.Execute(ctx, account.ID, models.TypeDeposit, openingBalance, "opening balance"); err != nil {
			return nil, err
		}
		return s.store.GetAccount(ctx, account.ID)
	}
	return account, nil
}

// Get returns the account after checking the actor may see it.
func (s *AccountService) Get(ctx context.Context, actor models.Actor, accountID string) (*models.Account, error) {
	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(account.OwnerID) {
		return nil, models.ErrForbidden
	}
	return account, nil
}

// ListByOwner returns the actor's own accounts.
func (s *AccountService) ListByOwner(ctx context.Context, ownerID int64) ([]models.Account, error) {
	return s.store.AccountsByOwner(ctx, ownerID)
}

// Transactions returns an account's history, newest first, after an
// ownership check.
func (s *AccountService) Transactions(ctx context.Context, actor models.Actor, accountID string, limit int) ([]models.Transaction, error) {
	if _, err := s.Get(ctx, actor, accountID); err != nil {
		return nil, err
	}
	return s.store.TransactionsByAccount(ctx, accountID, limit)
}

// TransactionByID returns a single record if the actor may see the account
// it belongs to.
func (s *AccountService) TransactionByID(ctx context.Context, actor models.Actor, id int64) (*models.Transaction, error) {
	record, err := s.store.TransactionByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, actor, record.AccountID); err != nil {
		return nil, err
	}
	return record, nil
}
