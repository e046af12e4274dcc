package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/corebank/ledger/internal/models"
	"github.com/corebank/ledger/internal/services"
)

type TransactionHandler struct {
	accounts  *services.AccountService
	ledger    *services.LedgerService
	transfers *services.TransferService
	validator *services.ValidationHelper
}

func NewTransactionHandler(accounts *services.AccountService, ledger *services.LedgerService, transfers *services.TransferService) *TransactionHandler {
	return &TransactionHandler{
		accounts:  accounts,
		ledger:    ledger,
		transfers: transfers,
		validator: services.NewValidationHelper(),
	}
}

// CreateTransactionRequest represents a deposit or withdrawal payload
type CreateTransactionRequest struct {
	AccountID   string                 `json:"account_id" validate:"required" example:"6b1de0b5-88ab-44c2-867a-79b234ad1b4d"`
	Type        models.TransactionType `json:"type" validate:"required,oneof=DEPOSIT WITHDRAWAL" example:"DEPOSIT"`
	Amount      decimal.Decimal        `json:"amount"`
	Description string                 `json:"description" validate:"max=200"`
}

// TransferRequest represents a two-account transfer payload
type TransferRequest struct {
	SourceAccountID      string          `json:"source_account_id" validate:"required"`
	DestinationAccountID string          `json:"destination_account_id" validate:"required"`
	Amount               decimal.Decimal `json:"amount"`
	Description          string          `json:"description" validate:"max=200"`
	IdempotencyKey       string          `json:"idempotency_key" validate:"max=64"`
}

// CreateTransaction commits a deposit or withdrawal
// @Summary Create a transaction
// @Description Commit a deposit or withdrawal against one account
// @Tags transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateTransactionRequest true "Transaction data"
// @Success 201 {object} models.Transaction
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Failure 422 {object} services.ErrorResponse
// @Router /transactions [post]
func (h *TransactionHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	actor, ok := models.ActorFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req CreateTransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}
	if !req.Amount.IsPositive() {
		services.SendErrorResponse(w, "Amount must be greater than zero", http.StatusBadRequest, nil)
		return
	}

	// The actor must own the target account; the ledger itself does not
	// know about ownership.
	if _, err := h.accounts.Get(r.Context(), actor, req.AccountID); err != nil {
		writeServiceError(w, err)
		return
	}

	record, err := h.ledger.Execute(r.Context(), req.AccountID, req.Type, req.Amount, req.Description)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(record)
}

// GetTransaction fetches one transaction record
// @Summary Get transaction by ID
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param txId path int true "Transaction ID"
// @Success 200 {object} models.Transaction
// @Failure 404 {object} services.ErrorResponse
// @Router /transactions/{txId} [get]
func (h *TransactionHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	actor, ok := models.ActorFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "txId"), 10, 64)
	if err != nil {
		services.SendErrorResponse(w, "Invalid transaction id", http.StatusBadRequest, nil)
		return
	}

	record, err := h.accounts.TransactionByID(r.Context(), actor, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(record)
}

// CreateTransfer moves funds between two accounts
// @Summary Transfer between accounts
// @Description Debit the source and credit the destination as one atomic operation
// @Tags transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string false "Idempotency key for safe retries"
// @Param request body TransferRequest true "Transfer data"
// @Success 201 {object} services.TransferResult
// @Success 200 {object} services.TransferResult "Replayed idempotent request"
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 422 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Router /transfers [post]
func (h *TransactionHandler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	actor, ok := models.ActorFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req TransferRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}
	if !req.Amount.IsPositive() {
		services.SendErrorResponse(w, "Amount must be greater than zero", http.StatusBadRequest, nil)
		return
	}

	idempotencyKey := req.IdempotencyKey
	if headerKey := r.Header.Get("Idempotency-Key"); headerKey != "" {
		idempotencyKey = headerKey
	}

	// Ownership is checked on the source only; anyone may be credited.
	if _, err := h.accounts.Get(r.Context(), actor, req.SourceAccountID); err != nil {
		writeServiceError(w, err)
		return
	}

	result, err := h.transfers.Transfer(r.Context(), req.SourceAccountID, req.DestinationAccountID, req.Amount, req.Description, idempotencyKey)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(result)
}
