package audit

import (
	"encoding/json"
	"log"
	"time"

	"github.com/shopspring/decimal"
)

type AuditEvent struct {
	Timestamp  time.Time       `json:"timestamp"`
	EventType  string          `json:"event_type"`
	TransferID string          `json:"transfer_id,omitempty"`
	AccountID  string          `json:"account_id,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	Status     string          `json:"status"`
	Details    any             `json:"details,omitempty"`
}

// Logger emits structured audit events for every transfer outcome. The
// COMPENSATION_FAILED event is the escalation channel for transfers that
// broke the reconciliation invariant and need manual resolution.
type Logger struct{}

func NewLogger() *Logger {
	return &Logger{}
}

func (a *Logger) LogTransfer(transferID, sourceAccount, destAccount string, amount decimal.Decimal, status string) {
	event := AuditEvent{
		Timestamp:  time.Now(),
		EventType:  "TRANSFER",
		TransferID: transferID,
		Amount:     amount,
		Status:     status,
		Details: map[string]string{
			"source_account": sourceAccount,
			"dest_account":   destAccount,
		},
	}
	a.log(event)
}

func (a *Logger) LogCompensation(transferID, sourceAccount string, amount decimal.Decimal, debitTxID int64, cause error) {
	event := AuditEvent{
		Timestamp:  time.Now(),
		EventType:  "COMPENSATION",
		TransferID: transferID,
		AccountID:  sourceAccount,
		Amount:     amount,
		Status:     "REVERSED",
		Details: map[string]any{
			"debit_tx_id": debitTxID,
			"cause":       cause.Error(),
		},
	}
	a.log(event)
}

func (a *Logger) LogCompensationFailure(transferID, sourceAccount string, amount decimal.Decimal, debitTxID int64, cause, compensationErr error) {
	event := AuditEvent{
		Timestamp:  time.Now(),
		EventType:  "COMPENSATION_FAILED",
		TransferID: transferID,
		AccountID:  sourceAccount,
		Amount:     amount,
		Status:     "MANUAL_RECONCILIATION_REQUIRED",
		Details: map[string]any{
			"debit_tx_id":        debitTxID,
			"cause":              cause.Error(),
			"compensation_error": compensationErr.Error(),
		},
	}
	a.log(event)
}

func (a *Logger) LogError(transferID, accountID string, err error) {
	event := AuditEvent{
		Timestamp:  time.Now(),
		EventType:  "ERROR",
		TransferID: transferID,
		AccountID:  accountID,
		Status:     "FAILED",
		Details:    map[string]string{"error": err.Error()},
	}
	a.log(event)
}

func (a *Logger) log(event AuditEvent) {
	data, _ := json.Marshal(event)
	log.Printf("AUDIT: %s", string(data))
}
