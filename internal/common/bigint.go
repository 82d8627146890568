package common

import (
	"errors"
	"math/big"

	"github.com/shopspring/decimal"
)

var ErrNegativeAmount = errors.New("negative amount")

// ToUnits converts an amount expressed in whole tokens to the smallest unit of a token
// with the given decimals. Digits below the smallest unit are truncated.
func ToUnits(amount decimal.Decimal, decimals int) (*big.Int, error) {
	if amount.IsNegative() {
		return nil, ErrNegativeAmount
	}

	return amount.Shift(int32(decimals)).Truncate(0).BigInt(), nil
}

// FromUnits converts an amount in the smallest unit back to whole tokens
func FromUnits(v *big.Int, decimals int) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}

	return decimal.NewFromBigInt(v, int32(-decimals))
}
