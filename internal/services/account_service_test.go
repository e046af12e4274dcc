package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/corebank/ledger/internal/models"
	"github.com/corebank/ledger/internal/store"
)

func newAccountFixture(t *testing.T) (*AccountService, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	ledger := NewLedgerService(st, testLedgerConfig())
	return NewAccountService(st, ledger), st
}

func TestAccountService_Create(t *testing.T) {
	ctx := context.Background()
	service, st := newAccountFixture(t)

	t.Run("zero balance", func(t *testing.T) {
		account, err := service.Create(ctx, 1, models.AccountTypeSavings, dec("0"))
		assert.NoError(t, err)
		assert.NotEmpty(t, account.ID)
		assert.Equal(t, int64(1), account.Version)
		assert.True(t, account.Balance.IsZero())

		history, err := st.TransactionsForAudit(ctx, account.ID)
		assert.NoError(t, err)
		assert.Empty(t, history)
	})

	t.Run("opening balance becomes the first deposit", func(t *testing.T) {
		account, err := service.Create(ctx, 1, models.AccountTypeChecking, dec("250"))
		assert.NoError(t, err)
		assert.True(t, account.Balance.Equal(dec("250")))
		assert.Equal(t, int64(2), account.Version)

		history, err := st.TransactionsForAudit(ctx, account.ID)
		assert.NoError(t, err)
		assert.Len(t, history, 1)
		assert.Equal(t, models.TypeDeposit, history[0].Type)
		assert.Equal(t, "opening balance", history[0].Description)
	})

	t.Run("invalid type", func(t *testing.T) {
		_, err := service.Create(ctx, 1, "CRYPTO", dec("0"))
		var verr *models.ValidationError
		assert.ErrorAs(t, err, &verr)
		assert.Equal(t, "account_type", verr.Field)
	})

	t.Run("negative opening balance", func(t *testing.T) {
		_, err := service.Create(ctx, 1, models.AccountTypeSavings, dec("-1"))
		var verr *models.ValidationError
		assert.ErrorAs(t, err, &verr)
		assert.Equal(t, "balance", verr.Field)
	})
}

func TestAccountService_Ownership(t *testing.T) {
	ctx := context.Background()
	service, st := newAccountFixture(t)

	owner := models.Actor{ID: 1, Role: models.RoleUser}
	stranger := models.Actor{ID: 2, Role: models.RoleUser}
	admin := models.Actor{ID: 3, Role: models.RoleAdmin}

	account, err := service.Create(ctx, owner.ID, models.AccountTypeSavings, dec("100"))
	assert.NoError(t, err)

	t.Run("owner reads own account", func(t *testing.T) {
		got, err := service.Get(ctx, owner, account.ID)
		assert.NoError(t, err)
		assert.Equal(t, account.ID, got.ID)
	})

	t.Run("stranger is forbidden", func(t *testing.T) {
		_, err := service.Get(ctx, stranger, account.ID)
		assert.ErrorIs(t, err, models.ErrForbidden)
	})

	t.Run("admin sees everything", func(t *testing.T) {
		_, err := service.Get(ctx, admin, account.ID)
		assert.NoError(t, err)
	})

	t.Run("transactions carry the same check", func(t *testing.T) {
		records, err := service.Transactions(ctx, owner, account.ID, 10)
		assert.NoError(t, err)
		assert.Len(t, records, 1)

		_, err = service.Transactions(ctx, stranger, account.ID, 10)
		assert.ErrorIs(t, err, models.ErrForbidden)
	})

	t.Run("transaction lookup checks the owning account", func(t *testing.T) {
		history, err := st.TransactionsForAudit(ctx, account.ID)
		assert.NoError(t, err)
		assert.Len(t, history, 1)

		record, err := service.TransactionByID(ctx, owner, history[0].ID)
		assert.NoError(t, err)
		assert.Equal(t, history[0].ID, record.ID)

		_, err = service.TransactionByID(ctx, stranger, history[0].ID)
		assert.ErrorIs(t, err, models.ErrForbidden)

		_, err = service.TransactionByID(ctx, owner, 999)
		assert.ErrorIs(t, err, models.ErrTransactionNotFound)
	})

	t.Run("list by owner", func(t *testing.T) {
		_, err := service.Create(ctx, owner.ID, models.AccountTypeChecking, dec("0"))
		assert.NoError(t, err)

		accounts, err := service.ListByOwner(ctx, owner.ID)
		assert.NoError(t, err)
		assert.Len(t, accounts, 2)

		accounts, err = service.ListByOwner(ctx, stranger.ID)
		assert.NoError(t, err)
		assert.Empty(t, accounts)
	})
}
