package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// UserBalance represents the user_balance table
type UserBalance struct {
	ID         uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     int             `gorm:"column:user_id;not null;uniqueIndex:user_balance_user_idx" json:"user_id"`
	Balance    decimal.Decimal `gorm:"column:balance;type:decimal(38,18);default:0;not null" json:"balance"`
	UpdateAt   time.Time       `gorm:"column:update_at;default:CURRENT_TIMESTAMP" json:"update_at"`
	LastAction string          `gorm:"column:last_action" json:"last_action"`

	User User `gorm:"foreignKey:UserID;references:ID" json:"user,omitempty"`
}

// TableName returns the table name for UserBalance
func (UserBalance) TableName() string {
	return "user_balance"
}
