package repositories

import (
	"context"

	"github.com/brinegold/jarvis-settlement/internal/domain/entities"
	"github.com/shopspring/decimal"
)

// UserBalanceRepository defines the interface for spendable balance
// bookkeeping. Debit is guarded so a withdrawal request can never lock up
// more than the user holds.
type UserBalanceRepository interface {
	GetByUserID(ctx context.Context, userID int) (*entities.UserBalance, error)
	Credit(ctx context.Context, userID int, amount decimal.Decimal, action string) error
	Debit(ctx context.Context, userID int, amount decimal.Decimal, action string) error
}
