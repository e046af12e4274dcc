package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType determines which way Amount moves the account balance.
// Amount itself is always stored as a positive magnitude.
type TransactionType string

const (
	TypeDeposit     TransactionType = "DEPOSIT"
	TypeWithdrawal  TransactionType = "WITHDRAWAL"
	TypeTransferOut TransactionType = "TRANSFER_OUT"
	TypeTransferIn  TransactionType = "TRANSFER_IN"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	switch t {
	case TypeDeposit, TypeWithdrawal, TypeTransferOut, TypeTransferIn:
		return true
	}
	return false
}

// Signed applies the direction of t to a positive magnitude.
func (t TransactionType) Signed(amount decimal.Decimal) decimal.Decimal {
	if t == TypeWithdrawal || t == TypeTransferOut {
		return amount.Neg()
	}
	return amount
}

// Transaction is one immutable ledger record. It is created exactly once, at
// commit time, and never updated or deleted; corrections are new compensating
// records.
type Transaction struct {
	ID int64 `json:"id" db:"id"`

	AccountID string          `json:"account_id" db:"account_id"`
	Type      TransactionType `json:"type" db:"type"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`

	// TransferID groups the two legs of a transfer (and any compensation for
	// it) under one identifier. CounterpartyAccountID names the other leg's
	// account and CounterpartyTxID, set on credit legs only, points at the
	// debit record that was committed first.
	TransferID            string `json:"transfer_id,omitempty" db:"transfer_id"`
	CounterpartyAccountID string `json:"counterparty_account_id,omitempty" db:"counterparty_account_id"`
	CounterpartyTxID      int64  `json:"counterparty_transaction_id,omitempty" db:"counterparty_tx_id"`

	// ResultingBalance is the account balance immediately after this record
	// was applied, captured atomically with the balance mutation.
	ResultingBalance decimal.Decimal `json:"resulting_balance" db:"resulting_balance"`
	AccountVersion   int64           `json:"account_version" db:"account_version"`

	Description string    `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// SignedAmount is the balance effect of this record.
func (t *Transaction) SignedAmount() decimal.Decimal {
	return t.Type.Signed(t.Amount)
}
