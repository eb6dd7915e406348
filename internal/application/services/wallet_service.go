package services

import (
	"context"
	"errors"
	"strconv"

	walletcrypto "github.com/brinegold/jarvis-settlement/internal/crypto"
	"github.com/brinegold/jarvis-settlement/internal/domain/entities"
	domainRepos "github.com/brinegold/jarvis-settlement/internal/domain/repositories"
	"go.uber.org/zap"
)

// WalletService provisions deposit addresses. Derivation is deterministic,
// so the stored row is a cache of the derivation result plus the ownership
// proof, never a key.
type WalletService struct {
	wallets domainRepos.UserWalletRepository
	deriver *walletcrypto.WalletDeriver
	logger  *zap.Logger
}

// NewWalletService creates a new wallet service
func NewWalletService(wallets domainRepos.UserWalletRepository, deriver *walletcrypto.WalletDeriver, logger *zap.Logger) *WalletService {
	return &WalletService{
		wallets: wallets,
		deriver: deriver,
		logger:  logger,
	}
}

// GetOrCreateDepositAddress returns the user's deposit address, deriving and
// storing it on first use.
func (s *WalletService) GetOrCreateDepositAddress(ctx context.Context, userID int) (*entities.UserWallet, error) {
	wallet, err := s.wallets.GetByUserID(ctx, userID)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, domainRepos.ErrNotFound) {
		return nil, err
	}

	derived, err := s.deriver.DeriveUserWallet(userKey(userID))
	if err != nil {
		return nil, err
	}

	wallet = &entities.UserWallet{
		UserID:         userID,
		DepositAddress: derived.Address,
		OwnershipProof: derived.OwnershipProof,
	}
	if err := s.wallets.Create(ctx, wallet); err != nil {
		// A concurrent first call may have inserted the same row; the
		// derivation is deterministic so re-reading is safe.
		if existing, getErr := s.wallets.GetByUserID(ctx, userID); getErr == nil {
			return existing, nil
		}
		return nil, err
	}

	s.logger.Info("Deposit address derived",
		zap.Int("user_id", userID),
		zap.String("address", derived.Address))

	return wallet, nil
}

// VerifyDepositAddress checks that an address belongs to a user.
func (s *WalletService) VerifyDepositAddress(ctx context.Context, userID int, address string) (bool, error) {
	wallet, err := s.wallets.GetByUserID(ctx, userID)
	if err != nil {
		return false, err
	}
	if !walletcrypto.SameAddress(wallet.DepositAddress, address) {
		return false, nil
	}
	return s.deriver.VerifyOwnership(userKey(userID), wallet.DepositAddress, wallet.OwnershipProof), nil
}

func userKey(userID int) string {
	return "user-" + strconv.Itoa(userID)
}
