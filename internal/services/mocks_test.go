package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/corebank/ledger/internal/config"
	"github.com/corebank/ledger/internal/models"
	"github.com/corebank/ledger/internal/store"
)

// flakyStore wraps a real MemoryStore and injects failures into
// CompareAndApply so the retry and compensation paths can be driven
// deterministically.
type flakyStore struct {
	store.Store

	// conflicts[accountID] is decremented per call; while positive the call
	// fails with ErrVersionConflict.
	conflicts map[string]int
	// failWith[accountID] makes every CompareAndApply on that account fail.
	failWith map[string]error
	// conflictFrom[accountID] makes every call from that 1-based call number
	// onward fail with ErrVersionConflict, exhausting any retry loop.
	conflictFrom map[string]int
	calls        map[string]int
}

func newFlakyStore(inner store.Store) *flakyStore {
	return &flakyStore{
		Store:        inner,
		conflicts:    make(map[string]int),
		failWith:     make(map[string]error),
		conflictFrom: make(map[string]int),
		calls:        make(map[string]int),
	}
}

func (s *flakyStore) CompareAndApply(ctx context.Context, accountID string, expectedVersion int64, delta decimal.Decimal, record *models.Transaction) (*models.Transaction, error) {
	s.calls[accountID]++
	if err, ok := s.failWith[accountID]; ok {
		return nil, err
	}
	if from, ok := s.conflictFrom[accountID]; ok && s.calls[accountID] >= from {
		return nil, models.ErrVersionConflict
	}
	if s.conflicts[accountID] > 0 {
		s.conflicts[accountID]--
		return nil, models.ErrVersionConflict
	}
	return s.Store.CompareAndApply(ctx, accountID, expectedVersion, delta, record)
}

func testLedgerConfig() *config.LedgerConfig {
	return config.LoadLedgerConfig()
}

func seedAccount(t *testing.T, st store.Store, id string, ownerID int64, balance string) {
	t.Helper()
	err := st.CreateAccount(context.Background(), &models.Account{
		ID:          id,
		OwnerID:     ownerID,
		AccountType: models.AccountTypeChecking,
		Balance:     decimal.RequireFromString(balance),
	})
	assert.NoError(t, err)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
