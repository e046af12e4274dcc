package services

import (
	"context"
	"errors"
	"log"

	"github.com/shopspring/decimal"

	"github.com/corebank/ledger/internal/config"
	"github.com/corebank/ledger/internal/models"
	"github.com/corebank/ledger/internal/store"
)

// LedgerService executes single-account operations: DEPOSIT and WITHDRAWAL.
// Each operation is a compare-and-apply retry loop against the store; no
// locks are taken, conflicts are cheap to retry, and the retry bound keeps
// contention failures visible to the caller instead of looping forever.
type LedgerService struct {
	store      store.Store
	maxRetries int
}

// NewLedgerService builds a LedgerService over the given store.
func NewLedgerService(st store.Store, cfg *config.LedgerConfig) *LedgerService {
	return &LedgerService{
		store:      st,
		maxRetries: cfg.MaxRetries,
	}
}

// Execute validates and commits a deposit or withdrawal, returning the
// committed transaction record.
func (s *LedgerService) Execute(ctx context.Context, accountID string, txType models.TransactionType, amount decimal.Decimal, description string) (*models.Transaction, error) {
	if txType != models.TypeDeposit && txType != models.TypeWithdrawal {
		return nil, models.NewValidationError("type", "must be DEPOSIT or WITHDRAWAL")
	}
	record := &models.Transaction{
		AccountID:   accountID,
		Type:        txType,
		Amount:      amount,
		Description: description,
	}
	return s.apply(ctx, record)
}

// apply runs the compare-and-apply retry loop for any transaction record,
// including the transfer legs driven by the TransferService. The record's
// amount is re-validated here regardless of what the presentation layer
// already checked.
func (s *LedgerService) apply(ctx context.Context, record *models.Transaction) (*models.Transaction, error) {
	if !record.Amount.IsPositive() {
		return nil, models.NewValidationError("amount", "must be greater than zero")
	}

	delta := record.SignedAmount()
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		account, err := s.store.GetAccount(ctx, record.AccountID)
		if err != nil {
			return nil, err
		}

		committed, err := s.store.CompareAndApply(ctx, account.ID, account.Version, delta, record)
		if errors.Is(err, models.ErrVersionConflict) {
			// Lost the race; reload and retry immediately.
			continue
		}
		if err != nil {
			return nil, err
		}

		if attempt > 1 {
			log.Printf("[LEDGER] %s on account %s committed after %d attempts", record.Type, record.AccountID, attempt)
		}
		return committed, nil
	}

	log.Printf("[LEDGER] %s on account %s: %d version conflicts, giving up", record.Type, record.AccountID, s.maxRetries)
	return nil, models.ErrConcurrencyExhausted
}
