package services

import (
	"context"
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"github.com/corebank/ledger/internal/store"
)

// ReconciliationReport is the outcome of replaying an account's full history
// against its stored balance.
type ReconciliationReport struct {
	AccountID        string          `json:"account_id"`
	StoredBalance    decimal.Decimal `json:"stored_balance"`
	ComputedBalance  decimal.Decimal `json:"computed_balance"`
	TransactionCount int             `json:"transaction_count"`
	Consistent       bool            `json:"consistent"`
	Mismatches       []string        `json:"mismatches,omitempty"`
}

// ReconciliationService recomputes balances from the transaction log alone.
// It never corrects anything; mismatches are reported for manual resolution.
type ReconciliationService struct {
	store store.Store
}

func NewReconciliationService(st store.Store) *ReconciliationService {
	return &ReconciliationService{store: st}
}

// VerifyAccount checks that the stored balance equals the signed sum of the
// account's history, that the newest record's resulting balance matches, and
// that every record's resulting balance continues the running chain.
func (s *ReconciliationService) VerifyAccount(ctx context.Context, accountID string) (*ReconciliationReport, error) {
	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	history, err := s.store.TransactionsForAudit(ctx, accountID)
	if err != nil {
		return nil, err
	}

	report := &ReconciliationReport{
		AccountID:        accountID,
		StoredBalance:    account.Balance,
		TransactionCount: len(history),
	}

	running := decimal.Zero
	for i := range history {
		record := &history[i]
		running = running.Add(record.SignedAmount())
		if !record.ResultingBalance.Equal(running) {
			report.Mismatches = append(report.Mismatches,
				fmt.Sprintf("transaction %d: resulting_balance %s, running sum %s",
					record.ID, record.ResultingBalance, running))
		}
	}
	report.ComputedBalance = running

	if !account.Balance.Equal(running) {
		report.Mismatches = append(report.Mismatches,
			fmt.Sprintf("stored balance %s does not equal transaction sum %s", account.Balance, running))
	}
	if n := len(history); n > 0 {
		if last := history[n-1].ResultingBalance; !account.Balance.Equal(last) {
			report.Mismatches = append(report.Mismatches,
				fmt.Sprintf("stored balance %s does not equal last resulting_balance %s", account.Balance, last))
		}
	}

	report.Consistent = len(report.Mismatches) == 0
	if !report.Consistent {
		log.Printf("[RECONCILE] Account %s inconsistent: %v", accountID, report.Mismatches)
	}
	return report, nil
}
