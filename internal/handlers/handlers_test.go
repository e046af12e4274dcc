package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/corebank/ledger/internal/config"
	"github.com/corebank/ledger/internal/models"
	"github.com/corebank/ledger/internal/services"
	"github.com/corebank/ledger/internal/store"
)

type fixture struct {
	router *chi.Mux
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := store.NewMemoryStore()
	cfg := config.LoadLedgerConfig()
	ledger := services.NewLedgerService(st, cfg)
	accounts := services.NewAccountService(st, ledger)
	transfers := services.NewTransferService(ledger, nil, cfg)
	reconcile := services.NewReconciliationService(st)

	accountHandler := NewAccountHandler(accounts, reconcile)
	txHandler := NewTransactionHandler(accounts, ledger, transfers)

	r := chi.NewRouter()
	r.Post("/accounts", accountHandler.CreateAccount)
	r.Get("/accounts", accountHandler.ListAccounts)
	r.Get("/accounts/{accountId}", accountHandler.GetAccount)
	r.Get("/accounts/{accountId}/transactions", accountHandler.ListAccountTransactions)
	r.Get("/accounts/{accountId}/reconciliation", accountHandler.ReconcileAccount)
	r.Post("/transactions", txHandler.CreateTransaction)
	r.Get("/transactions/{txId}", txHandler.GetTransaction)
	r.Post("/transfers", txHandler.CreateTransfer)

	return &fixture{router: r}
}

func (f *fixture) do(t *testing.T, actor *models.Actor, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		assert.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	if actor != nil {
		req = req.WithContext(models.ContextWithActor(req.Context(), *actor))
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) createAccount(t *testing.T, actor models.Actor, balance string) string {
	t.Helper()
	w := f.do(t, &actor, "POST", "/accounts", map[string]any{
		"account_type": "CHECKING",
		"balance":      balance,
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	var account models.Account
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &account))
	return account.ID
}

func TestAccountHandler(t *testing.T) {
	f := newFixture(t)
	owner := models.Actor{ID: 1, Role: models.RoleUser}
	stranger := models.Actor{ID: 2, Role: models.RoleUser}

	t.Run("missing actor is unauthorized", func(t *testing.T) {
		w := f.do(t, nil, "GET", "/accounts", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("create and read back", func(t *testing.T) {
		id := f.createAccount(t, owner, "100")

		w := f.do(t, &owner, "GET", "/accounts/"+id, nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var account models.Account
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &account))
		assert.True(t, account.Balance.Equal(decimal.RequireFromString("100")))
	})

	t.Run("invalid account type", func(t *testing.T) {
		w := f.do(t, &owner, "POST", "/accounts", map[string]any{"account_type": "CRYPTO"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown field rejected", func(t *testing.T) {
		w := f.do(t, &owner, "POST", "/accounts", map[string]any{
			"account_type": "SAVINGS",
			"currency":     "USD",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("stranger gets 403", func(t *testing.T) {
		id := f.createAccount(t, owner, "0")
		w := f.do(t, &stranger, "GET", "/accounts/"+id, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("unknown account gets 404", func(t *testing.T) {
		w := f.do(t, &owner, "GET", "/accounts/does-not-exist", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("reconciliation report", func(t *testing.T) {
		id := f.createAccount(t, owner, "75")
		w := f.do(t, &owner, "GET", "/accounts/"+id+"/reconciliation", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var report services.ReconciliationReport
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
		assert.True(t, report.Consistent)
		assert.Equal(t, 1, report.TransactionCount)
	})
}

func TestTransactionHandler(t *testing.T) {
	f := newFixture(t)
	owner := models.Actor{ID: 1, Role: models.RoleUser}
	stranger := models.Actor{ID: 2, Role: models.RoleUser}
	accountID := f.createAccount(t, owner, "100")

	t.Run("deposit", func(t *testing.T) {
		w := f.do(t, &owner, "POST", "/transactions", map[string]any{
			"account_id": accountID,
			"type":       "DEPOSIT",
			"amount":     "50",
		})
		assert.Equal(t, http.StatusCreated, w.Code)

		var record models.Transaction
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &record))
		assert.Equal(t, models.TypeDeposit, record.Type)
		assert.True(t, record.ResultingBalance.Equal(decimal.RequireFromString("150")))
	})

	t.Run("overdraw maps to 422", func(t *testing.T) {
		w := f.do(t, &owner, "POST", "/transactions", map[string]any{
			"account_id": accountID,
			"type":       "WITHDRAWAL",
			"amount":     "9999",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("zero amount maps to 400", func(t *testing.T) {
		w := f.do(t, &owner, "POST", "/transactions", map[string]any{
			"account_id": accountID,
			"type":       "DEPOSIT",
			"amount":     "0",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("transfer type rejected by payload validation", func(t *testing.T) {
		w := f.do(t, &owner, "POST", "/transactions", map[string]any{
			"account_id": accountID,
			"type":       "TRANSFER_OUT",
			"amount":     "10",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("stranger cannot move funds", func(t *testing.T) {
		w := f.do(t, &stranger, "POST", "/transactions", map[string]any{
			"account_id": accountID,
			"type":       "WITHDRAWAL",
			"amount":     "10",
		})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("lookup by id", func(t *testing.T) {
		w := f.do(t, &owner, "GET", "/transactions/1", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		w = f.do(t, &owner, "GET", "/transactions/999", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = f.do(t, &owner, "GET", "/transactions/abc", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("history with limit", func(t *testing.T) {
		w := f.do(t, &owner, "GET", "/accounts/"+accountID+"/transactions?limit=1", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Transactions []models.Transaction `json:"transactions"`
			Count        int                  `json:"count"`
		}
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 1, resp.Count)
	})
}

func TestTransferEndpoint(t *testing.T) {
	f := newFixture(t)
	owner := models.Actor{ID: 1, Role: models.RoleUser}
	other := models.Actor{ID: 2, Role: models.RoleUser}
	src := f.createAccount(t, owner, "100")
	dst := f.createAccount(t, other, "0")

	t.Run("created", func(t *testing.T) {
		w := f.do(t, &owner, "POST", "/transfers", map[string]any{
			"source_account_id":      src,
			"destination_account_id": dst,
			"amount":                 "40",
		})
		assert.Equal(t, http.StatusCreated, w.Code)

		var result services.TransferResult
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.Equal(t, result.Debit.ID, result.Credit.CounterpartyTxID)
	})

	t.Run("idempotency key header replays with 200", func(t *testing.T) {
		body := map[string]any{
			"source_account_id":      src,
			"destination_account_id": dst,
			"amount":                 "10",
		}

		var buf bytes.Buffer
		assert.NoError(t, json.NewEncoder(&buf).Encode(body))
		req := httptest.NewRequest("POST", "/transfers", &buf)
		req.Header.Set("Idempotency-Key", "retry-1")
		req = req.WithContext(models.ContextWithActor(req.Context(), owner))
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusCreated, w.Code)

		buf.Reset()
		assert.NoError(t, json.NewEncoder(&buf).Encode(body))
		req = httptest.NewRequest("POST", "/transfers", &buf)
		req.Header.Set("Idempotency-Key", "retry-1")
		req = req.WithContext(models.ContextWithActor(req.Context(), owner))
		w = httptest.NewRecorder()
		f.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)

		var result services.TransferResult
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.True(t, result.Replayed)
	})

	t.Run("source ownership enforced", func(t *testing.T) {
		w := f.do(t, &other, "POST", "/transfers", map[string]any{
			"source_account_id":      src,
			"destination_account_id": dst,
			"amount":                 "10",
		})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("insufficient funds maps to 422", func(t *testing.T) {
		w := f.do(t, &owner, "POST", "/transfers", map[string]any{
			"source_account_id":      src,
			"destination_account_id": dst,
			"amount":                 "100000",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("same account maps to 400", func(t *testing.T) {
		w := f.do(t, &owner, "POST", "/transfers", map[string]any{
			"source_account_id":      src,
			"destination_account_id": src,
			"amount":                 "10",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

