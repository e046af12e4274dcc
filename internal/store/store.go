// Package store owns the authoritative account balances and the append-only
// transaction log. Both are committed through one primitive, CompareAndApply,
// so that a balance change and its transaction record are a single atomic
// unit: readers never observe one without the other.
package store

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/corebank/ledger/internal/models"
)

// AccountStore provides atomic, versioned balance mutation.
type AccountStore interface {
	// CreateAccount persists a new account. The caller assigns the id; the
	// store initialises version to 1 when the account carries none.
	CreateAccount(ctx context.Context, account *models.Account) error

	// GetAccount returns the account or models.ErrAccountNotFound.
	GetAccount(ctx context.Context, id string) (*models.Account, error)

	// AccountsByOwner lists an owner's accounts, oldest first.
	AccountsByOwner(ctx context.Context, ownerID int64) ([]models.Account, error)

	// CompareAndApply adds delta to the account balance iff the stored
	// version equals expectedVersion and the resulting balance stays
	// non-negative (unless the account allows overdraft). On success the
	// record is appended to the transaction log with its id, timestamp,
	// resulting balance and commit version filled in, and the committed
	// record is returned; balance, version and log entry become visible to
	// all readers as one step. On models.ErrAccountNotFound,
	// models.ErrVersionConflict or models.ErrInsufficientFunds nothing is
	// mutated.
	CompareAndApply(ctx context.Context, accountID string, expectedVersion int64, delta decimal.Decimal, record *models.Transaction) (*models.Transaction, error)
}

// TransactionLog provides read access to the immutable transaction history.
// Appending happens only through CompareAndApply.
type TransactionLog interface {
	// TransactionByID returns the record or models.ErrTransactionNotFound.
	TransactionByID(ctx context.Context, id int64) (*models.Transaction, error)

	// TransactionsByAccount returns up to limit records for the account,
	// newest first. A non-positive limit means no limit.
	TransactionsByAccount(ctx context.Context, accountID string, limit int) ([]models.Transaction, error)

	// TransactionsForAudit returns the account's complete history, oldest
	// first, for balance reconciliation.
	TransactionsForAudit(ctx context.Context, accountID string) ([]models.Transaction, error)
}

// Store is the full persistence contract consumed by the ledger services.
type Store interface {
	AccountStore
	TransactionLog
}
