package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/corebank/ledger/internal/audit"
	"github.com/corebank/ledger/internal/config"
	"github.com/corebank/ledger/internal/models"
)

// TransferResult holds both committed legs of a successful transfer.
type TransferResult struct {
	TransferID string              `json:"transfer_id"`
	Debit      *models.Transaction `json:"debit"`
	Credit     *models.Transaction `json:"credit"`
	Replayed   bool                `json:"replayed,omitempty"`
}

// TransferService moves funds between two accounts as a compensating
// transaction saga. The debit commits first; a credit failure is undone by a
// new compensating record, never by editing history. Legs go through the
// ledger's compare-and-apply discipline, so no locks are held across the two
// accounts and opposing transfers cannot deadlock.
type TransferService struct {
	ledger *LedgerService
	redis  *redis.Client
	audit  *audit.Logger
	cfg    *config.LedgerConfig

	// fallback replay cache for deployments without Redis
	mu     sync.Mutex
	replay map[string][]byte
}

// NewTransferService builds the transfer coordinator. redisClient may be nil;
// idempotency replay then degrades to a process-local cache.
func NewTransferService(ledger *LedgerService, redisClient *redis.Client, cfg *config.LedgerConfig) *TransferService {
	return &TransferService{
		ledger: ledger,
		redis:  redisClient,
		audit:  audit.NewLogger(),
		cfg:    cfg,
		replay: make(map[string][]byte),
	}
}

// Transfer debits sourceID and credits destID as one indivisible operation.
// A non-empty idempotencyKey dedupes resubmissions of the same
// (source, dest, amount, key) tuple against the recorded outcome.
func (s *TransferService) Transfer(ctx context.Context, sourceID, destID string, amount decimal.Decimal, description, idempotencyKey string) (*TransferResult, error) {
	if sourceID == destID {
		return nil, models.NewValidationError("destination_account_id", "must differ from source account")
	}
	if !amount.IsPositive() {
		return nil, models.NewValidationError("amount", "must be greater than zero")
	}

	var reservation string
	if idempotencyKey != "" {
		key := s.replayKey(sourceID, destID, amount, idempotencyKey)
		prior, reserved, err := s.reserveReplay(ctx, key)
		if err != nil {
			return nil, err
		}
		if prior != nil {
			log.Printf("[TRANSFER] Replayed transfer %s for idempotency key %q", prior.TransferID, idempotencyKey)
			prior.Replayed = true
			return prior, nil
		}
		if reserved {
			reservation = key
		}
	}

	transferID := uuid.NewString()

	debit, err := s.ledger.apply(ctx, &models.Transaction{
		AccountID:             sourceID,
		Type:                  models.TypeTransferOut,
		Amount:                amount,
		TransferID:            transferID,
		CounterpartyAccountID: destID,
		Description:           description,
	})
	if err != nil {
		// Nothing committed yet; surface as-is.
		s.releaseReplay(ctx, reservation)
		s.audit.LogError(transferID, sourceID, err)
		return nil, err
	}

	credit, err := s.ledger.apply(ctx, &models.Transaction{
		AccountID:             destID,
		Type:                  models.TypeTransferIn,
		Amount:                amount,
		TransferID:            transferID,
		CounterpartyAccountID: sourceID,
		CounterpartyTxID:      debit.ID,
		Description:           description,
	})
	if err != nil {
		s.releaseReplay(ctx, reservation)
		return nil, s.compensate(ctx, transferID, debit, err)
	}

	result := &TransferResult{TransferID: transferID, Debit: debit, Credit: credit}
	if idempotencyKey != "" {
		s.storeReplay(ctx, s.replayKey(sourceID, destID, amount, idempotencyKey), result)
	}
	s.audit.LogTransfer(transferID, sourceID, destID, amount, "SUCCESS")
	return result, nil
}

// compensate reverses a committed debit after the credit leg failed. The
// reversal is a new TRANSFER_IN on the source, under the same transfer id and
// pointing at the debit record, so the failed attempt stays fully auditable.
// The original credit failure is what the caller sees; only a failed
// compensation is reported as CompensationFailure.
func (s *TransferService) compensate(ctx context.Context, transferID string, debit *models.Transaction, cause error) error {
	_, err := s.ledger.apply(ctx, &models.Transaction{
		AccountID:             debit.AccountID,
		Type:                  models.TypeTransferIn,
		Amount:                debit.Amount,
		TransferID:            transferID,
		CounterpartyAccountID: debit.CounterpartyAccountID,
		CounterpartyTxID:      debit.ID,
		Description:           fmt.Sprintf("reversal of transaction %d: transfer failed", debit.ID),
	})
	if err != nil {
		s.audit.LogCompensationFailure(transferID, debit.AccountID, debit.Amount, debit.ID, cause, err)
		return &models.CompensationFailure{
			TransferID:      transferID,
			DebitTxID:       debit.ID,
			SourceAccountID: debit.AccountID,
			Cause:           cause,
			CompensationErr: err,
		}
	}

	s.audit.LogCompensation(transferID, debit.AccountID, debit.Amount, debit.ID, cause)
	return cause
}

// replayPendingMarker occupies the replay slot while the first submission is
// in flight, so a concurrent duplicate cannot execute a second pair of legs.
const replayPendingMarker = "PENDING"

func (s *TransferService) replayKey(sourceID, destID string, amount decimal.Decimal, key string) string {
	return fmt.Sprintf("transfer_idem:%s:%s:%s:%s", sourceID, destID, amount.String(), key)
}

// reserveReplay atomically claims the idempotency slot. It returns the prior
// result when one is recorded, reserved=true when this call now owns the slot,
// and models.ErrDuplicateRequest when another submission holds it in flight.
// A Redis outage degrades to executing without a reservation.
func (s *TransferService) reserveReplay(ctx context.Context, key string) (*TransferResult, bool, error) {
	var data []byte
	if s.redis != nil {
		acquired, err := s.redis.SetNX(ctx, key, replayPendingMarker, s.cfg.IdempotencyTTL).Result()
		if err != nil {
			log.Printf("[TRANSFER] Failed to reserve replay slot %s: %v", key, err)
			return nil, false, nil
		}
		if acquired {
			return nil, true, nil
		}
		raw, err := s.redis.Get(ctx, key).Result()
		if err != nil {
			// Slot expired between SetNX and Get; execute without it.
			return nil, false, nil
		}
		data = []byte(raw)
	} else {
		s.mu.Lock()
		existing, exists := s.replay[key]
		if !exists {
			s.replay[key] = []byte(replayPendingMarker)
			s.mu.Unlock()
			return nil, true, nil
		}
		data = existing
		s.mu.Unlock()
	}

	if string(data) == replayPendingMarker {
		return nil, false, models.ErrDuplicateRequest
	}

	var result TransferResult
	if err := json.Unmarshal(data, &result); err != nil {
		log.Printf("[TRANSFER] Corrupt replay entry for %s: %v", key, err)
		return nil, false, nil
	}
	return &result, false, nil
}

// releaseReplay frees a reservation after a failed transfer so a later
// resubmission with the same key executes instead of replaying a failure.
func (s *TransferService) releaseReplay(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if s.redis != nil {
		if err := s.redis.Del(ctx, key).Err(); err != nil {
			log.Printf("[TRANSFER] Failed to release replay slot %s: %v", key, err)
		}
		return
	}
	s.mu.Lock()
	delete(s.replay, key)
	s.mu.Unlock()
}

func (s *TransferService) storeReplay(ctx context.Context, key string, result *TransferResult) {
	data, err := json.Marshal(result)
	if err != nil {
		log.Printf("[TRANSFER] Failed to marshal replay entry for %s: %v", key, err)
		return
	}
	if s.redis != nil {
		if err := s.redis.Set(ctx, key, data, s.cfg.IdempotencyTTL).Err(); err != nil {
			log.Printf("[TRANSFER] Failed to store replay entry for %s: %v", key, err)
		}
		return
	}
	s.mu.Lock()
	s.replay[key] = data
	s.mu.Unlock()
}
