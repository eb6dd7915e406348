package entities

import "time"

// UserWallet represents a derived deposit address. The address is
// deterministic from the wallet seed and user id, so no private key is
// stored: deposits are observed on this address, all outbound transfers
// go through the custody wallet.
type UserWallet struct {
	ID             int       `gorm:"primaryKey;autoIncrement;column:id"`
	UserID         int       `gorm:"column:user_id;uniqueIndex:user_wallets_user_idx"`
	DepositAddress string    `gorm:"size:42;not null;column:deposit_address"`
	OwnershipProof string    `gorm:"size:64;column:ownership_proof"`
	CreateAt       time.Time `gorm:"column:create_at;default:CURRENT_TIMESTAMP;not null"`
}

func (UserWallet) TableName() string {
	return "user_wallets"
}
