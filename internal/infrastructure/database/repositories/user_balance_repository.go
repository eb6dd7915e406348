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

// userBalanceRepository implements UserBalanceRepository on gorm/postgres
type userBalanceRepository struct {
	db *gorm.DB
}

// NewUserBalanceRepository creates a new user balance repository
func NewUserBalanceRepository(db *gorm.DB) domainRepos.UserBalanceRepository {
	return &userBalanceRepository{
		db: db,
	}
}

// GetByUserID retrieves the balance row of a user
func (r *userBalanceRepository) GetByUserID(ctx context.Context, userID int) (*entities.UserBalance, error) {
	var balance entities.UserBalance
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&balance).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainRepos.ErrNotFound
		}
		return nil, err
	}
	return &balance, nil
}

// Credit adds amount to the user's spendable balance
func (r *userBalanceRepository) Credit(ctx context.Context, userID int, amount decimal.Decimal, action string) error {
	return r.db.WithContext(ctx).Exec(
		"UPDATE user_balance SET balance = balance + ?, last_action = ?, update_at = ? WHERE user_id = ?",
		amount, action, time.Now(), userID,
	).Error
}

// Debit subtracts amount from the user's spendable balance. The guard in the
// WHERE clause keeps the balance from going negative under concurrent debits.
func (r *userBalanceRepository) Debit(ctx context.Context, userID int, amount decimal.Decimal, action string) error {
	result := r.db.WithContext(ctx).Exec(
		"UPDATE user_balance SET balance = balance - ?, last_action = ?, update_at = ? WHERE user_id = ? AND balance >= ?",
		amount, action, time.Now(), userID, amount,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainRepos.ErrInsufficientBalance
	}
	return nil
}
