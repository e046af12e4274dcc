package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/corebank/ledger/internal/models"
)

// MemoryStore is an in-memory Store used in tests and as a stand-in when no
// database is configured. A single mutex serialises conflicting writes;
// version checks still apply so it exercises the same optimistic-locking
// paths as the Postgres implementation.
type MemoryStore struct {
	mu           sync.RWMutex
	accounts     map[string]*models.Account
	transactions []models.Transaction
	byAccount    map[string][]int // indexes into transactions, append order
	nextTxID     int64
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:  make(map[string]*models.Account),
		byAccount: make(map[string][]int),
		nextTxID:  1,
	}
}

func (s *MemoryStore) CreateAccount(_ context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[account.ID]; exists {
		return models.NewValidationError("id", "account already exists")
	}

	now := time.Now().UTC()
	cp := *account
	if cp.Version == 0 {
		cp.Version = 1
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	s.accounts[cp.ID] = &cp
	*account = cp
	return nil
}

func (s *MemoryStore) GetAccount(_ context.Context, id string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[id]
	if !ok {
		return nil, models.ErrAccountNotFound
	}
	cp := *account
	return &cp, nil
}

func (s *MemoryStore) AccountsByOwner(_ context.Context, ownerID int64) ([]models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Account
	for _, account := range s.accounts {
		if account.OwnerID == ownerID {
			out = append(out, *account)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) CompareAndApply(_ context.Context, accountID string, expectedVersion int64, delta decimal.Decimal, record *models.Transaction) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[accountID]
	if !ok {
		return nil, models.ErrAccountNotFound
	}
	if account.Version != expectedVersion {
		return nil, models.ErrVersionConflict
	}

	newBalance := account.Balance.Add(delta)
	if newBalance.IsNegative() && !account.AllowOverdraft {
		return nil, models.ErrInsufficientFunds
	}

	now := time.Now().UTC()
	account.Balance = newBalance
	account.Version++
	account.UpdatedAt = now

	committed := *record
	committed.ID = s.nextTxID
	s.nextTxID++
	committed.AccountID = accountID
	committed.ResultingBalance = newBalance
	committed.AccountVersion = account.Version
	committed.CreatedAt = now

	s.transactions = append(s.transactions, committed)
	s.byAccount[accountID] = append(s.byAccount[accountID], len(s.transactions)-1)

	cp := committed
	return &cp, nil
}

func (s *MemoryStore) TransactionByID(_ context.Context, id int64) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// ids are assigned sequentially from 1, so the slice doubles as an index.
	idx := int(id - 1)
	if idx < 0 || idx >= len(s.transactions) {
		return nil, models.ErrTransactionNotFound
	}
	cp := s.transactions[idx]
	return &cp, nil
}

func (s *MemoryStore) TransactionsByAccount(_ context.Context, accountID string, limit int) ([]models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.accounts[accountID]; !ok {
		return nil, models.ErrAccountNotFound
	}

	indexes := s.byAccount[accountID]
	out := make([]models.Transaction, 0, len(indexes))
	for i := len(indexes) - 1; i >= 0; i-- {
		out = append(out, s.transactions[indexes[i]])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) TransactionsForAudit(_ context.Context, accountID string) ([]models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.accounts[accountID]; !ok {
		return nil, models.ErrAccountNotFound
	}

	indexes := s.byAccount[accountID]
	out := make([]models.Transaction, 0, len(indexes))
	for _, idx := range indexes {
		out = append(out, s.transactions[idx])
	}
	return out, nil
}
