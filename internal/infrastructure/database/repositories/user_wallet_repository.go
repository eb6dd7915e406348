package repositories

import (
	"context"
	"errors"

	"github.com/brinegold/jarvis-settlement/internal/domain/entities"
	domainRepos "github.com/brinegold/jarvis-settlement/internal/domain/repositories"
	"gorm.io/gorm"
)

// userWalletRepository implements UserWalletRepository on gorm/postgres
type userWalletRepository struct {
	db *gorm.DB
}

// NewUserWalletRepository creates a new user wallet repository
func NewUserWalletRepository(db *gorm.DB) domainRepos.UserWalletRepository {
	return &userWalletRepository{
		db: db,
	}
}

// Create persists a derived deposit address
func (r *userWalletRepository) Create(ctx context.Context, wallet *entities.UserWallet) error {
	return r.db.WithContext(ctx).Create(wallet).Error
}

// GetByUserID retrieves the deposit wallet of a user
func (r *userWalletRepository) GetByUserID(ctx context.Context, userID int) (*entities.UserWallet, error) {
	var wallet entities.UserWallet
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainRepos.ErrNotFound
		}
		return nil, err
	}
	return &wallet, nil
}

// GetByAddress retrieves a deposit wallet by its address
func (r *userWalletRepository) GetByAddress(ctx context.Context, address string) (*entities.UserWallet, error) {
	var wallet entities.UserWallet
	err := r.db.WithContext(ctx).Where("lower(deposit_address) = lower(?)", address).First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainRepos.ErrNotFound
		}
		return nil, err
	}
	return &wallet, nil
}
