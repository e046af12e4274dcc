package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"github.com/corebank/ledger/internal/models"
)

// PostgresStore implements Store on database/sql. The balance mutation and
// the transaction record are committed in one sql.Tx; the conditional UPDATE
// carries the version check, so no row is ever read-then-written.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateAccount(ctx context.Context, account *models.Account) error {
	if account.Version == 0 {
		account.Version = 1
	}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO accounts (id, owner_id, account_type, balance, allow_overdraft, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, NOW(), NOW())
		RETURNING created_at, updated_at`,
		account.ID, account.OwnerID, string(account.AccountType),
		account.Balance.String(), account.AllowOverdraft, account.Version)
	return row.Scan(&account.CreatedAt, &account.UpdatedAt)
}

func (s *PostgresStore) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	account, err := scanAccount(s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, account_type, balance::text, allow_overdraft, version, created_at, updated_at
		FROM accounts
		WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, models.ErrAccountNotFound
	}
	return account, err
}

func (s *PostgresStore) AccountsByOwner(ctx context.Context, ownerID int64) ([]models.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, account_type, balance::text, allow_overdraft, version, created_at, updated_at
		FROM accounts
		WHERE owner_id = $1
		ORDER BY created_at, id`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := []models.Account{}
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *account)
	}
	return accounts, rows.Err()
}

func (s *PostgresStore) CompareAndApply(ctx context.Context, accountID string, expectedVersion int64, delta decimal.Decimal, record *models.Transaction) (*models.Transaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var balanceStr string
	var version int64
	err = tx.QueryRowContext(ctx, `
		UPDATE accounts
		SET balance = balance + $1::numeric, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND version = $3 AND (allow_overdraft OR balance + $1::numeric >= 0)
		RETURNING balance::text, version`,
		delta.String(), accountID, expectedVersion).Scan(&balanceStr, &version)
	if err == sql.ErrNoRows {
		return nil, s.classifyConflict(ctx, tx, accountID, expectedVersion)
	}
	if err != nil {
		return nil, err
	}

	newBalance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return nil, fmt.Errorf("parsing balance for account %s: %w", accountID, err)
	}

	committed := *record
	committed.AccountID = accountID
	committed.ResultingBalance = newBalance
	committed.AccountVersion = version

	err = tx.QueryRowContext(ctx, `
		INSERT INTO transactions
		(account_id, type, amount, transfer_id, counterparty_account_id, counterparty_tx_id, resulting_balance, account_version, description, created_at)
		VALUES ($1, $2, $3::numeric, $4, $5, $6, $7::numeric, $8, $9, NOW())
		RETURNING id, created_at`,
		committed.AccountID, string(committed.Type), committed.Amount.String(),
		nullString(committed.TransferID), nullString(committed.CounterpartyAccountID),
		nullInt64(committed.CounterpartyTxID), committed.ResultingBalance.String(),
		committed.AccountVersion, nullString(committed.Description)).
		Scan(&committed.ID, &committed.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &committed, nil
}

// classifyConflict turns a zero-row conditional UPDATE into the typed failure
// the ledger service dispatches on.
func (s *PostgresStore) classifyConflict(ctx context.Context, tx *sql.Tx, accountID string, expectedVersion int64) error {
	var version int64
	err := tx.QueryRowContext(ctx,
		`SELECT version FROM accounts WHERE id = $1`, accountID).Scan(&version)
	if err == sql.ErrNoRows {
		return models.ErrAccountNotFound
	}
	if err != nil {
		log.Printf("[STORE] Failed to classify conflict for account %s: %v", accountID, err)
		return err
	}
	if version != expectedVersion {
		return models.ErrVersionConflict
	}
	return models.ErrInsufficientFunds
}

func (s *PostgresStore) TransactionByID(ctx context.Context, id int64) (*models.Transaction, error) {
	record, err := scanTransaction(s.db.QueryRowContext(ctx, `
		SELECT id, account_id, type, amount::text, transfer_id, counterparty_account_id, counterparty_tx_id,
		       resulting_balance::text, account_version, description, created_at
		FROM transactions
		WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, models.ErrTransactionNotFound
	}
	return record, err
}

func (s *PostgresStore) TransactionsByAccount(ctx context.Context, accountID string, limit int) ([]models.Transaction, error) {
	if limit <= 0 {
		return s.queryTransactions(ctx, `
			SELECT id, account_id, type, amount::text, transfer_id, counterparty_account_id, counterparty_tx_id,
			       resulting_balance::text, account_version, description, created_at
			FROM transactions
			WHERE account_id = $1
			ORDER BY id DESC`, accountID)
	}
	return s.queryTransactions(ctx, `
		SELECT id, account_id, type, amount::text, transfer_id, counterparty_account_id, counterparty_tx_id,
		       resulting_balance::text, account_version, description, created_at
		FROM transactions
		WHERE account_id = $1
		ORDER BY id DESC
		LIMIT $2`, accountID, limit)
}

func (s *PostgresStore) TransactionsForAudit(ctx context.Context, accountID string) ([]models.Transaction, error) {
	return s.queryTransactions(ctx, `
		SELECT id, account_id, type, amount::text, transfer_id, counterparty_account_id, counterparty_tx_id,
		       resulting_balance::text, account_version, description, created_at
		FROM transactions
		WHERE account_id = $1
		ORDER BY id ASC`, accountID)
}

func (s *PostgresStore) queryTransactions(ctx context.Context, query string, args ...any) ([]models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transactions := []models.Transaction{}
	for rows.Next() {
		record, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *record)
	}
	return transactions, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var account models.Account
	var accountType, balanceStr string
	err := row.Scan(&account.ID, &account.OwnerID, &accountType, &balanceStr,
		&account.AllowOverdraft, &account.Version, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		return nil, err
	}
	account.AccountType = models.AccountType(accountType)
	account.Balance, err = decimal.NewFromString(balanceStr)
	if err != nil {
		return nil, fmt.Errorf("parsing balance for account %s: %w", account.ID, err)
	}
	return &account, nil
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var record models.Transaction
	var txType, amountStr, balanceStr string
	var transferID, counterpartyAccount, description sql.NullString
	var counterpartyTx sql.NullInt64
	err := row.Scan(&record.ID, &record.AccountID, &txType, &amountStr,
		&transferID, &counterpartyAccount, &counterpartyTx,
		&balanceStr, &record.AccountVersion, &description, &record.CreatedAt)
	if err != nil {
		return nil, err
	}
	record.Type = models.TransactionType(txType)
	record.TransferID = transferID.String
	record.CounterpartyAccountID = counterpartyAccount.String
	record.CounterpartyTxID = counterpartyTx.Int64
	record.Description = description.String
	record.Amount, err = decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("parsing amount for transaction %d: %w", record.ID, err)
	}
	record.ResultingBalance, err = decimal.NewFromString(balanceStr)
	if err != nil {
		return nil, fmt.Errorf("parsing resulting balance for transaction %d: %w", record.ID, err)
	}
	return &record, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt64(n int64) any {
	if n == 0 {
		return nil
	}
	return n
}
