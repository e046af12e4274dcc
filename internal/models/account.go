package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType classifies an account. Informational only; ledger rules do not
// depend on it.
type AccountType string

const (
	AccountTypeSavings  AccountType = "SAVINGS"
	AccountTypeChecking AccountType = "CHECKING"
)

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	return t == AccountTypeSavings || t == AccountTypeChecking
}

// Account holds the authoritative balance for one ledger account. Balance and
// Version only ever change together through the store's compare-and-apply
// primitive.
type Account struct {
	ID             string          `json:"id" db:"id"`
	OwnerID        int64           `json:"owner_id" db:"owner_id"`
	AccountType    AccountType     `json:"account_type" db:"account_type"`
	Balance        decimal.Decimal `json:"balance" db:"balance"`
	AllowOverdraft bool            `json:"allow_overdraft" db:"allow_overdraft"`
	Version        int64           `json:"version" db:"version"` // for optimistic locking
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}
