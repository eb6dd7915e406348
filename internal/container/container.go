package container

import (
	"context"
	"fmt"

	"github.com/brinegold/jarvis-settlement/internal/application/services"
	"github.com/brinegold/jarvis-settlement/internal/blockchain/bsc"
	"github.com/brinegold/jarvis-settlement/internal/cloud"
	"github.com/brinegold/jarvis-settlement/internal/config"
	walletcrypto "github.com/brinegold/jarvis-settlement/internal/crypto"
	domainRepos "github.com/brinegold/jarvis-settlement/internal/domain/repositories"
	"github.com/brinegold/jarvis-settlement/internal/infrastructure/database/repositories"
	"github.com/brinegold/jarvis-settlement/internal/notification"
	"github.com/brinegold/jarvis-settlement/internal/security"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Container holds all application dependencies
type Container struct {
	Config *config.Config
	DB     *gorm.DB

	// Repositories
	WithdrawalRepo  domainRepos.WithdrawalRepository
	UserWalletRepo  domainRepos.UserWalletRepository
	UserBalanceRepo domainRepos.UserBalanceRepository

	// Chain side
	Gateway *bsc.BEP20Manager

	// Services
	Notifier     *notification.Notifier
	WalletSvc    *services.WalletService
	Orchestrator *services.WithdrawalOrchestrator
	Sweeper      *services.SettlementSweeper
}

// NewContainer loads configuration, resolves the custody key, verifies the
// custody configuration, and wires all dependencies.
func NewContainer(ctx context.Context, logger *zap.Logger) (*Container, error) {
	cfg := config.LoadConfig()

	if err := resolveCustodyKey(ctx, cfg); err != nil {
		return nil, err
	}

	// The validator runs once here so a misconfigured deployment dies at
	// startup, not on the first withdrawal.
	validation := security.ValidateConfig(cfg)
	for _, warning := range validation.Warnings {
		logger.Warn("Custody configuration warning", zap.String("warning", warning))
	}
	if !validation.IsValid {
		return nil, fmt.Errorf("custody configuration invalid: %s", validation.Reason())
	}

	db, err := config.NewDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	withdrawalRepo := repositories.NewWithdrawalRepository(db)
	userWalletRepo := repositories.NewUserWalletRepository(db)
	userBalanceRepo := repositories.NewUserBalanceRepository(db)

	gateway, err := bsc.NewBEP20Manager(cfg)
	if err != nil {
		return nil, err
	}

	deriver, err := walletcrypto.NewWalletDeriver(cfg.Wallet.Seed, cfg.Wallet.Salt)
	if err != nil {
		return nil, err
	}

	notifier := notification.NewNotifier(cfg.Notification.Telegram)
	walletSvc := services.NewWalletService(userWalletRepo, deriver, logger)
	orchestrator := services.NewWithdrawalOrchestrator(cfg, withdrawalRepo, userBalanceRepo, gateway, notifier, logger)
	sweeper := services.NewSettlementSweeper(withdrawalRepo, notifier, logger, cfg.Settlement.StuckAfter)

	return &Container{
		Config:          cfg,
		DB:              db,
		WithdrawalRepo:  withdrawalRepo,
		UserWalletRepo:  userWalletRepo,
		UserBalanceRepo: userBalanceRepo,
		Gateway:         gateway,
		Notifier:        notifier,
		WalletSvc:       walletSvc,
		Orchestrator:    orchestrator,
		Sweeper:         sweeper,
	}, nil
}

// resolveCustodyKey fills cfg.Wallet.CustodyPrivateKey from the first source
// that yields one: plain env value, passphrase-encrypted blob, or AWS
// Secrets Manager + KMS.
func resolveCustodyKey(ctx context.Context, cfg *config.Config) error {
	if cfg.Wallet.CustodyPrivateKey != "" {
		if encrypted := cfg.Wallet.CustodyPrivateKey; cfg.Wallet.Passphrase != "" && looksEncrypted(encrypted) {
			aesCrypto, err := walletcrypto.NewAESCrypto(cfg.Wallet.Passphrase)
			if err != nil {
				return err
			}
			plaintext, err := aesCrypto.DecryptFromBase64(encrypted)
			if err != nil {
				return fmt.Errorf("failed to decrypt custody key blob: %w", err)
			}
			cfg.Wallet.CustodyPrivateKey = string(plaintext)
		}
		return nil
	}

	if cfg.AWS.SecretID == "" || cfg.AWS.KeyAlias == "" {
		// Nothing to resolve from; ValidateConfig reports the missing key.
		return nil
	}

	keyService, err := cloud.NewCustodyKeyService(ctx)
	if err != nil {
		return err
	}
	key, err := keyService.FetchCustodyKey(ctx, cfg.AWS.SecretID, cfg.AWS.KeyAlias)
	if err != nil {
		return err
	}
	cfg.Wallet.CustodyPrivateKey = key
	return nil
}

// looksEncrypted distinguishes an AES envelope from a raw hex key.
func looksEncrypted(value string) bool {
	if _, err := walletcrypto.ValidatePrivateKey(value); err == nil {
		return false
	}
	return true
}
