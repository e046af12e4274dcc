package store

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/corebank/ledger/internal/models"
)

func newTestAccount(t *testing.T, s *MemoryStore, id string, balance string) *models.Account {
	t.Helper()
	account := &models.Account{
		ID:          id,
		OwnerID:     1,
		AccountType: models.AccountTypeSavings,
		Balance:     decimal.RequireFromString(balance),
	}
	err := s.CreateAccount(context.Background(), account)
	assert.NoError(t, err)
	return account
}

func TestMemoryStore_CreateAccount(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	account := newTestAccount(t, s, "acc-1", "100")
	assert.Equal(t, int64(1), account.Version)
	assert.False(t, account.CreatedAt.IsZero())

	t.Run("duplicate id rejected", func(t *testing.T) {
		err := s.CreateAccount(ctx, &models.Account{ID: "acc-1", OwnerID: 2})
		var verr *models.ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("read returns a copy", func(t *testing.T) {
		got, err := s.GetAccount(ctx, "acc-1")
		assert.NoError(t, err)
		got.Balance = decimal.RequireFromString("999")

		again, err := s.GetAccount(ctx, "acc-1")
		assert.NoError(t, err)
		assert.True(t, again.Balance.Equal(decimal.RequireFromString("100")))
	})

	t.Run("unknown account", func(t *testing.T) {
		_, err := s.GetAccount(ctx, "nope")
		assert.ErrorIs(t, err, models.ErrAccountNotFound)
	})
}

func TestMemoryStore_CompareAndApply(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	account := newTestAccount(t, s, "acc-1", "100")

	t.Run("commits balance and record together", func(t *testing.T) {
		committed, err := s.CompareAndApply(ctx, account.ID, 1, decimal.RequireFromString("25"), &models.Transaction{
			Type:   models.TypeDeposit,
			Amount: decimal.RequireFromString("25"),
		})
		assert.NoError(t, err)
		assert.Equal(t, int64(1), committed.ID)
		assert.Equal(t, int64(2), committed.AccountVersion)
		assert.True(t, committed.ResultingBalance.Equal(decimal.RequireFromString("125")))

		got, err := s.GetAccount(ctx, account.ID)
		assert.NoError(t, err)
		assert.True(t, got.Balance.Equal(decimal.RequireFromString("125")))
		assert.Equal(t, int64(2), got.Version)
	})

	t.Run("stale version rejected without side effects", func(t *testing.T) {
		_, err := s.CompareAndApply(ctx, account.ID, 1, decimal.RequireFromString("10"), &models.Transaction{
			Type:   models.TypeDeposit,
			Amount: decimal.RequireFromString("10"),
		})
		assert.ErrorIs(t, err, models.ErrVersionConflict)

		history, err := s.TransactionsForAudit(ctx, account.ID)
		assert.NoError(t, err)
		assert.Len(t, history, 1)
	})

	t.Run("insufficient funds", func(t *testing.T) {
		_, err := s.CompareAndApply(ctx, account.ID, 2, decimal.RequireFromString("-200"), &models.Transaction{
			Type:   models.TypeWithdrawal,
			Amount: decimal.RequireFromString("200"),
		})
		assert.ErrorIs(t, err, models.ErrInsufficientFunds)

		got, err := s.GetAccount(ctx, account.ID)
		assert.NoError(t, err)
		assert.Equal(t, int64(2), got.Version)
	})

	t.Run("overdraft allowed when flagged", func(t *testing.T) {
		od := newTestAccount(t, s, "acc-od", "0")
		od.AllowOverdraft = true
		s.accounts[od.ID].AllowOverdraft = true

		committed, err := s.CompareAndApply(ctx, od.ID, 1, decimal.RequireFromString("-50"), &models.Transaction{
			Type:   models.TypeWithdrawal,
			Amount: decimal.RequireFromString("50"),
		})
		assert.NoError(t, err)
		assert.True(t, committed.ResultingBalance.Equal(decimal.RequireFromString("-50")))
	})

	t.Run("unknown account", func(t *testing.T) {
		_, err := s.CompareAndApply(ctx, "nope", 1, decimal.RequireFromString("1"), &models.Transaction{
			Type:   models.TypeDeposit,
			Amount: decimal.RequireFromString("1"),
		})
		assert.ErrorIs(t, err, models.ErrAccountNotFound)
	})
}

func TestMemoryStore_ConcurrentDeposits(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	newTestAccount(t, s, "acc-1", "0")

	// Each goroutine runs its own reload-and-retry loop, the same discipline
	// the ledger service uses. All 50 deposits must land exactly once.
	const workers = 50
	amount := decimal.RequireFromString("10")

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				account, err := s.GetAccount(ctx, "acc-1")
				if !assert.NoError(t, err) {
					return
				}
				_, err = s.CompareAndApply(ctx, account.ID, account.Version, amount, &models.Transaction{
					Type:   models.TypeDeposit,
					Amount: amount,
				})
				if err == models.ErrVersionConflict {
					continue
				}
				assert.NoError(t, err)
				return
			}
		}()
	}
	wg.Wait()

	account, err := s.GetAccount(ctx, "acc-1")
	assert.NoError(t, err)
	assert.True(t, account.Balance.Equal(decimal.RequireFromString("500")))
	assert.Equal(t, int64(workers+1), account.Version)

	history, err := s.TransactionsForAudit(ctx, "acc-1")
	assert.NoError(t, err)
	assert.Len(t, history, workers)

	// resulting_balance snapshots must form a strictly increasing chain
	running := decimal.Zero
	for _, record := range history {
		running = running.Add(record.Amount)
		assert.True(t, record.ResultingBalance.Equal(running))
	}
}

func TestMemoryStore_TransactionReads(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	newTestAccount(t, s, "acc-1", "0")
	newTestAccount(t, s, "acc-2", "0")

	for i := 0; i < 3; i++ {
		_, err := s.CompareAndApply(ctx, "acc-1", int64(i+1), decimal.RequireFromString("10"), &models.Transaction{
			Type:   models.TypeDeposit,
			Amount: decimal.RequireFromString("10"),
		})
		assert.NoError(t, err)
	}
	_, err := s.CompareAndApply(ctx, "acc-2", 1, decimal.RequireFromString("5"), &models.Transaction{
		Type:   models.TypeDeposit,
		Amount: decimal.RequireFromString("5"),
	})
	assert.NoError(t, err)

	t.Run("by id", func(t *testing.T) {
		record, err := s.TransactionByID(ctx, 4)
		assert.NoError(t, err)
		assert.Equal(t, "acc-2", record.AccountID)

		_, err = s.TransactionByID(ctx, 99)
		assert.ErrorIs(t, err, models.ErrTransactionNotFound)
	})

	t.Run("by account newest first", func(t *testing.T) {
		records, err := s.TransactionsByAccount(ctx, "acc-1", 0)
		assert.NoError(t, err)
		assert.Len(t, records, 3)
		assert.Equal(t, int64(3), records[0].ID)
		assert.Equal(t, int64(1), records[2].ID)
	})

	t.Run("limit applies", func(t *testing.T) {
		records, err := s.TransactionsByAccount(ctx, "acc-1", 2)
		assert.NoError(t, err)
		assert.Len(t, records, 2)
		assert.Equal(t, int64(3), records[0].ID)
	})

	t.Run("audit order oldest first", func(t *testing.T) {
		records, err := s.TransactionsForAudit(ctx, "acc-1")
		assert.NoError(t, err)
		assert.Len(t, records, 3)
		assert.Equal(t, int64(1), records[0].ID)
	})

	t.Run("unknown account", func(t *testing.T) {
		_, err := s.TransactionsByAccount(ctx, "nope", 0)
		assert.ErrorIs(t, err, models.ErrAccountNotFound)
	})
}

func TestMemoryStore_AccountsByOwner(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	newTestAccount(t, s, "acc-1", "0")
	newTestAccount(t, s, "acc-2", "0")
	err := s.CreateAccount(ctx, &models.Account{ID: "acc-3", OwnerID: 2, AccountType: models.AccountTypeChecking})
	assert.NoError(t, err)

	accounts, err := s.AccountsByOwner(ctx, 1)
	assert.NoError(t, err)
	assert.Len(t, accounts, 2)

	accounts, err = s.AccountsByOwner(ctx, 99)
	assert.NoError(t, err)
	assert.Empty(t, accounts)
}
