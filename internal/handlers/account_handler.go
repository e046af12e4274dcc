package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/corebank/ledger/internal/models"
	"github.com/corebank/ledger/internal/services"
)

type AccountHandler struct {
	accounts  *services.AccountService
	reconcile *services.ReconciliationService
	validator *services.ValidationHelper
}

func NewAccountHandler(accounts *services.AccountService, reconcile *services.ReconciliationService) *AccountHandler {
	return &AccountHandler{
		accounts:  accounts,
		reconcile: reconcile,
		validator: services.NewValidationHelper(),
	}
}

// CreateAccountRequest represents the account creation payload
type CreateAccountRequest struct {
	AccountType models.AccountType `json:"account_type" validate:"required,oneof=SAVINGS CHECKING" example:"SAVINGS"`
	Balance     decimal.Decimal    `json:"balance"` // opening balance, folded into transaction 1
}

// CreateAccount opens a new account for the authenticated user
// @Summary Create account
// @Description Open a new account, optionally with an opening balance
// @Tags accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateAccountRequest true "Account details"
// @Success 201 {object} models.Account
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Router /accounts [post]
func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	actor, ok := models.ActorFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req CreateAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	account, err := h.accounts.Create(r.Context(), actor.ID, req.AccountType, req.Balance)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(account)
}

// ListAccounts lists the authenticated user's accounts
// @Summary List accounts
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Account
// @Router /accounts [get]
func (h *AccountHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	actor, ok := models.ActorFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	accounts, err := h.accounts.ListByOwner(r.Context(), actor.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"accounts": accounts,
		"count":    len(accounts),
	})
}

// GetAccount fetches one account
// @Summary Get account by ID
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Param accountId path string true "Account ID"
// @Success 200 {object} models.Account
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{accountId} [get]
func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	actor, ok := models.ActorFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	account, err := h.accounts.Get(r.Context(), actor, chi.URLParam(r, "accountId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(account)
}

// ListAccountTransactions lists an account's history, newest first
// @Summary List account transactions
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Param accountId path string true "Account ID"
// @Param limit query int false "Number of records to return (default: 50, max: 200)"
// @Success 200 {object} object{transactions=[]models.Transaction,count=int}
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{accountId}/transactions [get]
func (h *AccountHandler) ListAccountTransactions(w http.ResponseWriter, r *http.Request) {
	actor, ok := models.ActorFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 200 {
			limit = l
		}
	}

	transactions, err := h.accounts.Transactions(r.Context(), actor, chi.URLParam(r, "accountId"), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"transactions": transactions,
		"count":        len(transactions),
	})
}

// ReconcileAccount replays an account's history against its balance
// @Summary Reconcile account
// @Description Verify the stored balance against the full transaction history
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Param accountId path string true "Account ID"
// @Success 200 {object} services.ReconciliationReport
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{accountId}/reconciliation [get]
func (h *AccountHandler) ReconcileAccount(w http.ResponseWriter, r *http.Request) {
	actor, ok := models.ActorFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	accountID := chi.URLParam(r, "accountId")
	if _, err := h.accounts.Get(r.Context(), actor, accountID); err != nil {
		writeServiceError(w, err)
		return
	}

	report, err := h.reconcile.VerifyAccount(r.Context(), accountID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

// decodeJSON applies the shared body-decoding discipline: size cap, unknown
// fields rejected, exactly one JSON object.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return false
	}
	return true
}
