package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/brinegold/jarvis-settlement/internal/domain/entities"
	domainRepos "github.com/brinegold/jarvis-settlement/internal/domain/repositories"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// withdrawalRepository implements WithdrawalRepository on gorm/postgres
type withdrawalRepository struct {
	db *gorm.DB
}

// NewWithdrawalRepository creates a new withdrawal repository
func NewWithdrawalRepository(db *gorm.DB) domainRepos.WithdrawalRepository {
	return &withdrawalRepository{
		db: db,
	}
}

// Create persists a new withdrawal request in pending state
func (r *withdrawalRepository) Create(ctx context.Context, request *entities.WithdrawalRequest) error {
	request.Status = entities.WithdrawalStatusPending
	return r.db.WithContext(ctx).Create(request).Error
}

// GetByID retrieves a withdrawal request by ID
func (r *withdrawalRepository) GetByID(ctx context.Context, id int) (*entities.WithdrawalRequest, error) {
	var request entities.WithdrawalRequest
	err := r.db.WithContext(ctx).First(&request, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainRepos.ErrNotFound
		}
		return nil, err
	}
	return &request, nil
}

// GetByUserID retrieves withdrawal history for a user, newest first
func (r *withdrawalRepository) GetByUserID(ctx context.Context, userID int, limit, offset int) ([]entities.WithdrawalRequest, error) {
	var requests []entities.WithdrawalRequest
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	err := query.Order("create_at DESC").Find(&requests).Error
	return requests, err
}

// HasPending reports whether the user already has a pending request
func (r *withdrawalRepository) HasPending(ctx context.Context, userID int) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.WithdrawalRequest{}).
		Where("user_id = ? AND status = ?", userID, entities.WithdrawalStatusPending).
		Count(&count).Error
	return count > 0, err
}

// MarkProcessing transitions pending -> processing. The conditional update is
// the mutual-exclusion point: of two racing approvals only one sees a row in
// pending state, the other gets ErrAlreadyProcessed.
func (r *withdrawalRepository) MarkProcessing(ctx context.Context, id int) error {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&entities.WithdrawalRequest{}).
		Where("id = ? AND status = ?", id, entities.WithdrawalStatusPending).
		Updates(map[string]interface{}{
			"status":    entities.WithdrawalStatusProcessing,
			"update_at": now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainRepos.ErrAlreadyProcessed
	}
	return nil
}

// MarkCompleted transitions processing -> completed with the settlement facts
func (r *withdrawalRepository) MarkCompleted(ctx context.Context, id int, transferResult *entities.TransferResult, fee, net decimal.Decimal, note string) error {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&entities.WithdrawalRequest{}).
		Where("id = ? AND status = ?", id, entities.WithdrawalStatusProcessing).
		Updates(map[string]interface{}{
			"status":      entities.WithdrawalStatusCompleted,
			"tx_hash":     transferResult.TxHash,
			"fee_tx_hash": transferResult.FeeTxHash,
			"fee":         fee,
			"net_amount":  net,
			"admin_note":  note,
			"update_at":   now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainRepos.ErrAlreadyProcessed
	}
	return nil
}

// MarkRejected transitions from -> rejected and refunds the original amount
// to the user's spendable balance in the same database transaction, so a
// failed settlement can never silently consume the user's recorded balance.
func (r *withdrawalRepository) MarkRejected(ctx context.Context, id int, from entities.WithdrawalStatus, reason string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var request entities.WithdrawalRequest
		if err := tx.First(&request, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainRepos.ErrNotFound
			}
			return err
		}

		now := time.Now()
		result := tx.Model(&entities.WithdrawalRequest{}).
			Where("id = ? AND status = ?", id, from).
			Updates(map[string]interface{}{
				"status":     entities.WithdrawalStatusRejected,
				"admin_note": reason,
				"update_at":  now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domainRepos.ErrAlreadyProcessed
		}

		return tx.Exec(
			"UPDATE user_balance SET balance = balance + ?, last_action = ?, update_at = ? WHERE user_id = ?",
			request.Amount, "withdrawal_refund", now, request.UserID,
		).Error
	})
}

// ListProcessingOlderThan returns requests stuck in processing state
func (r *withdrawalRepository) ListProcessingOlderThan(ctx context.Context, age time.Duration) ([]entities.WithdrawalRequest, error) {
	var requests []entities.WithdrawalRequest
	cutoff := time.Now().Add(-age)
	err := r.db.WithContext(ctx).
		Where("status = ? AND update_at < ?", entities.WithdrawalStatusProcessing, cutoff).
		Order("update_at ASC").
		Find(&requests).Error
	return requests, err
}
