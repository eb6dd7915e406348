package bsc

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// TokenUnits converts a human-readable token amount to on-chain integer
// units. Excess fractional digits are truncated, never rounded up, so the
// chain can never move more than the recorded amount.
func TokenUnits(amount decimal.Decimal, decimals int) *big.Int {
	return amount.Shift(int32(decimals)).Truncate(0).BigInt()
}

// FromTokenUnits converts on-chain integer units back to a decimal amount.
func FromTokenUnits(units *big.Int, decimals int) decimal.Decimal {
	return decimal.NewFromBigInt(units, -int32(decimals))
}
