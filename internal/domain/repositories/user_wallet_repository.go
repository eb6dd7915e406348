package repositories

import (
	"context"

	"github.com/brinegold/jarvis-settlement/internal/domain/entities"
)

// UserWalletRepository defines the interface for deposit address records
type UserWalletRepository interface {
	Create(ctx context.Context, wallet *entities.UserWallet) error
	GetByUserID(ctx context.Context, userID int) (*entities.UserWallet, error)
	GetByAddress(ctx context.Context, address string) (*entities.UserWallet, error)
}
