package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// WithdrawalStatus is the persisted state of a withdrawal request. Every
// transition writes one of these values atomically; there is no implicit
// in-between state.
type WithdrawalStatus string

const (
	WithdrawalStatusPending    WithdrawalStatus = "pending"
	WithdrawalStatusProcessing WithdrawalStatus = "processing"
	WithdrawalStatusCompleted  WithdrawalStatus = "completed"
	WithdrawalStatusFailed     WithdrawalStatus = "failed"
	WithdrawalStatusRejected   WithdrawalStatus = "rejected"
)

func (s WithdrawalStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is allowed from s.
func (s WithdrawalStatus) IsTerminal() bool {
	switch s {
	case WithdrawalStatusCompleted, WithdrawalStatusFailed, WithdrawalStatusRejected:
		return true
	}
	return false
}

// WithdrawalRequest represents the withdrawal_requests table. Requests are
// never deleted; a rejected request keeps its row and the amount is credited
// back to the user balance.
type WithdrawalRequest struct {
	ID        int              `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	UserID    int              `gorm:"not null;column:user_id;index" json:"user_id"`
	ToAddress string           `gorm:"type:text;not null;column:to_address" json:"to_address"`
	Amount    decimal.Decimal  `gorm:"type:decimal(38,18);not null;column:amount" json:"amount"`
	Fee       decimal.Decimal  `gorm:"type:decimal(38,18);column:fee" json:"fee"`
	NetAmount decimal.Decimal  `gorm:"type:decimal(38,18);column:net_amount" json:"net_amount"`
	Status    WithdrawalStatus `gorm:"size:20;not null;default:pending;column:status;index" json:"status"`
	TxHash    string           `gorm:"size:120;column:tx_hash" json:"tx_hash"`
	FeeTxHash string           `gorm:"size:120;column:fee_tx_hash" json:"fee_tx_hash"`
	AdminNote string           `gorm:"type:text;column:admin_note" json:"admin_note"`
	CreateAt  time.Time        `gorm:"column:create_at;default:now();not null" json:"create_at"`
	UpdateAt  *time.Time       `gorm:"column:update_at" json:"update_at"`
	IP        string           `gorm:"size:45;column:ip" json:"ip"`
}

// TableName returns the table name for WithdrawalRequest
func (WithdrawalRequest) TableName() string {
	return "withdrawal_requests"
}
