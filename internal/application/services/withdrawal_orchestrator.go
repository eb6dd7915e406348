package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/brinegold/jarvis-settlement/internal/blockchain/bsc"
	"github.com/brinegold/jarvis-settlement/internal/config"
	walletcrypto "github.com/brinegold/jarvis-settlement/internal/crypto"
	"github.com/brinegold/jarvis-settlement/internal/domain/entities"
	domainRepos "github.com/brinegold/jarvis-settlement/internal/domain/repositories"
	"github.com/brinegold/jarvis-settlement/internal/notification"
	"github.com/brinegold/jarvis-settlement/internal/security"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// WithdrawalFeeRate is the platform fee charged on every withdrawal.
// Changing it is a code change on purpose: the split must match what the
// investment side advertises.
var WithdrawalFeeRate = decimal.NewFromFloat(0.10)

var (
	// ErrPendingWithdrawalExists is returned by Submit when the user
	// already has an open request.
	ErrPendingWithdrawalExists = errors.New("user already has a pending withdrawal")
)

// SecurityViolationError means the transfer was blocked by the security
// validator before reaching the chain.
type SecurityViolationError struct {
	Reasons []string
}

func (e *SecurityViolationError) Error() string {
	return "transfer blocked by security validation: " + strings.Join(e.Reasons, "; ")
}

// ChainGateway is what the orchestrator needs from the chain side.
type ChainGateway interface {
	CustodyAddress() string
	ProcessWithdrawal(ctx context.Context, destination string, amount decimal.Decimal) (string, error)
	ProcessWithdrawalWithFee(ctx context.Context, destination string, gross, fee decimal.Decimal) (*entities.TransferResult, error)
}

// WithdrawalOrchestrator drives a withdrawal request through its state
// machine: pending -> processing -> completed, or rejected with a balance
// refund when the transfer could not be made.
type WithdrawalOrchestrator struct {
	cfg         *config.Config
	withdrawals domainRepos.WithdrawalRepository
	balances    domainRepos.UserBalanceRepository
	gateway     ChainGateway
	notifier    *notification.Notifier
	logger      *zap.Logger
}

// NewWithdrawalOrchestrator creates a new withdrawal orchestrator
func NewWithdrawalOrchestrator(
	cfg *config.Config,
	withdrawals domainRepos.WithdrawalRepository,
	balances domainRepos.UserBalanceRepository,
	gateway ChainGateway,
	notifier *notification.Notifier,
	logger *zap.Logger,
) *WithdrawalOrchestrator {
	return &WithdrawalOrchestrator{
		cfg:         cfg,
		withdrawals: withdrawals,
		balances:    balances,
		gateway:     gateway,
		notifier:    notifier,
		logger:      logger,
	}
}

// ComputeFee splits an amount into fee and net parts.
func ComputeFee(amount decimal.Decimal) (fee, net decimal.Decimal) {
	fee = amount.Mul(WithdrawalFeeRate)
	net = amount.Sub(fee)
	return fee, net
}

// Submit records a new withdrawal request in pending state. The amount is
// debited from the user's spendable balance up front; a later rejection
// credits it back.
func (o *WithdrawalOrchestrator) Submit(ctx context.Context, userID int, amount decimal.Decimal, destination, ip string) (*entities.WithdrawalRequest, error) {
	canonical, err := walletcrypto.ValidateAddress(destination)
	if err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("withdrawal amount must be positive, got %s", amount.String())
	}

	hasPending, err := o.withdrawals.HasPending(ctx, userID)
	if err != nil {
		return nil, err
	}
	if hasPending {
		return nil, ErrPendingWithdrawalExists
	}

	if err := o.balances.Debit(ctx, userID, amount, "withdrawal_request"); err != nil {
		return nil, err
	}

	fee, net := ComputeFee(amount)
	request := &entities.WithdrawalRequest{
		UserID:    userID,
		ToAddress: canonical,
		Amount:    amount,
		Fee:       fee,
		NetAmount: net,
		IP:        ip,
	}
	if err := o.withdrawals.Create(ctx, request); err != nil {
		// Give the debited amount back; the request never existed.
		if creditErr := o.balances.Credit(ctx, userID, amount, "withdrawal_request_failed"); creditErr != nil {
			o.logger.Error("Failed to credit back after create failure",
				zap.Int("user_id", userID),
				zap.String("amount", amount.String()),
				zap.Error(creditErr))
			o.notifier.SendOrLog(fmt.Sprintf("manual action needed: user %d debited %s but request creation failed", userID, amount.String()))
		}
		return nil, err
	}

	o.logger.Info("Withdrawal request submitted",
		zap.Int("request_id", request.ID),
		zap.Int("user_id", userID),
		zap.String("amount", amount.String()),
		zap.String("destination", canonical))

	return request, nil
}

// Approve settles a pending withdrawal on-chain. Exactly one of two racing
// approvals wins the pending -> processing transition; the loser gets
// ErrAlreadyProcessed and must not retry.
func (o *WithdrawalOrchestrator) Approve(ctx context.Context, requestID int) (*entities.WithdrawalRequest, error) {
	request, err := o.withdrawals.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status != entities.WithdrawalStatusPending {
		return nil, domainRepos.ErrAlreadyProcessed
	}

	if err := o.withdrawals.MarkProcessing(ctx, requestID); err != nil {
		return nil, err
	}
	request.Status = entities.WithdrawalStatusProcessing

	fee, net := ComputeFee(request.Amount)

	validation := security.ValidateTransfer(o.gateway.CustodyAddress(), request.ToAddress, net, o.cfg)
	for _, warning := range validation.Warnings {
		o.logger.Warn("Security validation warning", zap.Int("request_id", requestID), zap.String("warning", warning))
	}
	if !validation.IsValid {
		reason := "security validation failed: " + validation.Reason()
		o.rejectProcessing(ctx, request, reason)
		o.notifier.SendOrLog(fmt.Sprintf("withdrawal %d blocked: %s", requestID, validation.Reason()))
		return nil, &SecurityViolationError{Reasons: validation.Errors}
	}

	result, err := o.settle(ctx, request, fee)
	if err != nil {
		var partial *bsc.PartialTransferError
		if errors.As(err, &partial) {
			// The user leg landed. Record completion with a warning so
			// nobody refunds an amount the user already received.
			note := "completed with warning: " + partial.Error()
			if markErr := o.withdrawals.MarkCompleted(ctx, requestID, result, fee, net, note); markErr != nil {
				o.logger.Error("Failed to record partial settlement", zap.Int("request_id", requestID), zap.Error(markErr))
			}
			o.notifier.SendOrLog(fmt.Sprintf("withdrawal %d: fee leg failed after user transfer %s, reconcile fee manually", requestID, partial.UserTxHash))
			request.Status = entities.WithdrawalStatusCompleted
			request.TxHash = result.TxHash
			request.AdminNote = note
			return request, nil
		}

		var timeout *bsc.SubmissionTimeoutError
		if errors.As(err, &timeout) {
			// Unknown outcome: the transfer may have landed. Leave the
			// request in processing for the sweep to reconcile instead of
			// refunding into a possible double payment.
			o.logger.Error("Settlement outcome unknown", zap.Int("request_id", requestID), zap.String("tx_hash", timeout.TxHash))
			o.notifier.SendOrLog(fmt.Sprintf("withdrawal %d outcome unknown, tx %s needs reconciliation", requestID, timeout.TxHash))
			return nil, err
		}

		reason := "chain settlement failed: " + err.Error()
		o.rejectProcessing(ctx, request, reason)
		o.notifier.SendOrLog(fmt.Sprintf("withdrawal %d failed and was refunded: %v", requestID, err))
		return nil, err
	}

	if err := o.withdrawals.MarkCompleted(ctx, requestID, result, fee, net, ""); err != nil {
		o.logger.Error("Settlement landed but completion not recorded",
			zap.Int("request_id", requestID),
			zap.String("tx_hash", result.TxHash),
			zap.Error(err))
		o.notifier.SendOrLog(fmt.Sprintf("withdrawal %d settled (tx %s) but status update failed", requestID, result.TxHash))
		return nil, err
	}

	o.logger.Info("Withdrawal completed",
		zap.Int("request_id", requestID),
		zap.String("tx_hash", result.TxHash),
		zap.String("fee", fee.String()),
		zap.String("net", net.String()))

	request.Status = entities.WithdrawalStatusCompleted
	request.TxHash = result.TxHash
	request.FeeTxHash = result.FeeTxHash
	request.Fee = fee
	request.NetAmount = net
	return request, nil
}

// Reject declines a pending withdrawal without touching the chain and
// refunds the amount to the user's balance.
func (o *WithdrawalOrchestrator) Reject(ctx context.Context, requestID int, reason string) (*entities.WithdrawalRequest, error) {
	request, err := o.withdrawals.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if err := o.withdrawals.MarkRejected(ctx, requestID, entities.WithdrawalStatusPending, reason); err != nil {
		return nil, err
	}

	o.logger.Info("Withdrawal rejected",
		zap.Int("request_id", requestID),
		zap.String("reason", reason))

	request.Status = entities.WithdrawalStatusRejected
	request.AdminNote = reason
	return request, nil
}

func (o *WithdrawalOrchestrator) settle(ctx context.Context, request *entities.WithdrawalRequest, fee decimal.Decimal) (*entities.TransferResult, error) {
	if o.cfg.Wallet.FeeWallet != "" && fee.IsPositive() {
		return o.gateway.ProcessWithdrawalWithFee(ctx, request.ToAddress, request.Amount, fee)
	}

	net := request.Amount.Sub(fee)
	txHash, err := o.gateway.ProcessWithdrawal(ctx, request.ToAddress, net)
	if err != nil {
		return nil, err
	}
	return &entities.TransferResult{TxHash: txHash}, nil
}

// rejectProcessing is the compensating transition for a request that already
// left pending: processing -> rejected plus the balance refund.
func (o *WithdrawalOrchestrator) rejectProcessing(ctx context.Context, request *entities.WithdrawalRequest, reason string) {
	if err := o.withdrawals.MarkRejected(ctx, request.ID, entities.WithdrawalStatusProcessing, reason); err != nil {
		o.logger.Error("Failed to reject and refund withdrawal",
			zap.Int("request_id", request.ID),
			zap.String("reason", reason),
			zap.Error(err))
		o.notifier.SendOrLog(fmt.Sprintf("manual action needed: withdrawal %d could not be rejected/refunded", request.ID))
		return
	}
	request.Status = entities.WithdrawalStatusRejected
	request.AdminNote = reason
}
