package repositories

import (
	"context"
	"time"

	"github.com/brinegold/jarvis-settlement/internal/domain/entities"
	"github.com/shopspring/decimal"
)

// WithdrawalRepository defines the persistence contract for withdrawal
// requests. Status transitions are compare-and-set: they only apply when the
// row is still in the expected state and return ErrAlreadyProcessed
// otherwise, which keeps every transition out of pending exactly-once.
type WithdrawalRepository interface {
	// Create persists a new request in pending state.
	Create(ctx context.Context, request *entities.WithdrawalRequest) error

	// GetByID returns the request or ErrNotFound.
	GetByID(ctx context.Context, id int) (*entities.WithdrawalRequest, error)

	// GetByUserID returns the user's withdrawal history, newest first.
	GetByUserID(ctx context.Context, userID int, limit, offset int) ([]entities.WithdrawalRequest, error)

	// HasPending reports whether the user already has a pending request.
	HasPending(ctx context.Context, userID int) (bool, error)

	// MarkProcessing transitions pending -> processing.
	MarkProcessing(ctx context.Context, id int) error

	// MarkCompleted transitions processing -> completed, recording the
	// transaction hashes, the fee split, and an optional admin note.
	MarkCompleted(ctx context.Context, id int, result *entities.TransferResult, fee, net decimal.Decimal, note string) error

	// MarkRejected transitions from -> rejected and credits the full
	// original amount back to the user's balance in the same database
	// transaction.
	MarkRejected(ctx context.Context, id int, from entities.WithdrawalStatus, reason string) error

	// ListProcessingOlderThan returns requests stuck in processing, used by
	// the reconciliation sweep to alert on unknown chain outcomes.
	ListProcessingOlderThan(ctx context.Context, age time.Duration) ([]entities.WithdrawalRequest, error)
}
