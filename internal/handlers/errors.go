package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/corebank/ledger/internal/models"
	"github.com/corebank/ledger/internal/services"
)

// writeServiceError maps the core's typed errors onto transport status codes.
// The mapping is deterministic; unknown errors become opaque 500s.
func writeServiceError(w http.ResponseWriter, err error) {
	var validationErr *models.ValidationError
	var compensationErr *models.CompensationFailure

	switch {
	// CompensationFailure wraps the errors of both failed legs, so it must be
	// matched before the sentinel checks: a compensation that died on retry
	// exhaustion is not a retryable conflict, it is a broken invariant.
	case errors.As(err, &compensationErr):
		// Already escalated through the audit log by the coordinator.
		services.SendErrorResponse(w, "Transfer failed and requires manual reconciliation", http.StatusInternalServerError, nil)
	case errors.As(err, &validationErr):
		services.SendErrorResponse(w, validationErr.Error(), http.StatusBadRequest, nil)
	case errors.Is(err, models.ErrAccountNotFound), errors.Is(err, models.ErrTransactionNotFound):
		services.SendErrorResponse(w, err.Error(), http.StatusNotFound, nil)
	case errors.Is(err, models.ErrForbidden):
		services.SendErrorResponse(w, "Forbidden", http.StatusForbidden, nil)
	case errors.Is(err, models.ErrInsufficientFunds):
		services.SendErrorResponse(w, err.Error(), http.StatusUnprocessableEntity, nil)
	case errors.Is(err, models.ErrDuplicateRequest):
		services.SendErrorResponse(w, "Duplicate request is still being processed, retry", http.StatusConflict, nil)
	case errors.Is(err, models.ErrConcurrencyExhausted):
		services.SendErrorResponse(w, "Operation conflicted with concurrent updates, retry", http.StatusConflict, nil)
	default:
		log.Printf("[HTTP] Unhandled service error: %v", err)
		services.SendErrorResponse(w, "Internal server error", http.StatusInternalServerError, nil)
	}
}
