package ethereum

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// ToBaseUnits converts a whole-token amount to integer base units. Amounts
// with more fractional digits than the token supports are rejected.
func ToBaseUnits(amount decimal.Decimal, decimals int32) (*big.Int, error) {
	if amount.IsNegative() {
		return nil, fmt.Errorf("negative amount %s", amount)
	}
	shifted := amount.Shift(decimals)
	if !shifted.Equal(shifted.Truncate(0)) {
		return nil, fmt.Errorf("amount %s exceeds %d decimals", amount, decimals)
	}
	return shifted.BigInt(), nil
}

// FromBaseUnits converts integer base units to a whole-token amount.
func FromBaseUnits(units *big.Int, decimals int32) decimal.Decimal {
	return decimal.NewFromBigInt(units, -decimals)
}

// applySlippage returns quote reduced by bps basis points, rounded down.
func applySlippage(quote *big.Int, bps int) *big.Int {
	out := new(big.Int).Mul(quote, big.NewInt(int64(10_000-bps)))
	return out.Quo(out, big.NewInt(10_000))
}
