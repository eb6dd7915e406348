package services

import (
	"context"
	"fmt"
	"time"

	domainRepos "github.com/brinegold/jarvis-settlement/internal/domain/repositories"
	"github.com/brinegold/jarvis-settlement/internal/notification"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// SettlementSweeper periodically looks for requests stuck in processing.
// A stuck request means a chain call ended with an unknown outcome, so the
// sweeper alerts for manual reconciliation instead of refunding blindly.
type SettlementSweeper struct {
	withdrawals domainRepos.WithdrawalRepository
	notifier    *notification.Notifier
	logger      *zap.Logger
	stuckAfter  time.Duration
	cron        *cron.Cron
	isRunning   bool
}

// NewSettlementSweeper creates a new settlement sweeper
func NewSettlementSweeper(
	withdrawals domainRepos.WithdrawalRepository,
	notifier *notification.Notifier,
	logger *zap.Logger,
	stuckAfter time.Duration,
) *SettlementSweeper {
	return &SettlementSweeper{
		withdrawals: withdrawals,
		notifier:    notifier,
		logger:      logger,
		stuckAfter:  stuckAfter,
		cron:        cron.New(cron.WithSeconds()),
	}
}

// Start starts the sweeper
func (s *SettlementSweeper) Start() error {
	if s.isRunning {
		s.logger.Warn("Settlement sweeper is already running")
		return nil
	}

	_, err := s.cron.AddFunc("0 * * * * *", s.sweep)
	if err != nil {
		s.logger.Error("Failed to add cron job", zap.Error(err))
		return err
	}

	s.cron.Start()
	s.isRunning = true

	s.logger.Info("Settlement sweeper started", zap.Duration("stuck_after", s.stuckAfter))
	return nil
}

// Stop stops the sweeper
func (s *SettlementSweeper) Stop() {
	if !s.isRunning {
		return
	}
	s.cron.Stop()
	s.isRunning = false
	s.logger.Info("Settlement sweeper stopped")
}

// IsRunning returns whether the sweeper is currently running
func (s *SettlementSweeper) IsRunning() bool {
	return s.isRunning
}

func (s *SettlementSweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stuck, err := s.withdrawals.ListProcessingOlderThan(ctx, s.stuckAfter)
	if err != nil {
		s.logger.Error("Failed to list stuck withdrawals", zap.Error(err))
		return
	}
	if len(stuck) == 0 {
		return
	}

	for _, request := range stuck {
		s.logger.Warn("Withdrawal stuck in processing",
			zap.Int("request_id", request.ID),
			zap.Int("user_id", request.UserID),
			zap.String("amount", request.Amount.String()),
			zap.String("tx_hash", request.TxHash))
	}

	s.notifier.SendOrLog(fmt.Sprintf("%d withdrawal(s) stuck in processing for over %s, manual reconciliation required", len(stuck), s.stuckAfter))
}
