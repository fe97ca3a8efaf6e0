// Package payment builds payment requests and the transfer transactions
// that settle them.
package payment

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrNonPositiveAmount = errors.New("amount must be positive")
	ErrAmountPrecision   = errors.New("amount has sub-base-unit precision")
	ErrAmountRange       = errors.New("amount exceeds representable range")
)

// ToBaseUnits scales a decimal token amount to base units at the mint's
// precision. A fractional remainder below one base unit is a caller
// error, never a silent truncation.
func ToBaseUnits(amount decimal.Decimal, mintDecimals uint8) (uint64, error) {
	if amount.Sign() <= 0 {
		return 0, fmt.Errorf("%w: got %s", ErrNonPositiveAmount, amount)
	}
	scaled := amount.Shift(int32(mintDecimals))
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("%w: %s at %d decimals", ErrAmountPrecision, amount, mintDecimals)
	}
	units := scaled.BigInt()
	if !units.IsUint64() {
		return 0, fmt.Errorf("%w: %s at %d decimals", ErrAmountRange, amount, mintDecimals)
	}
	return units.Uint64(), nil
}

// FromBaseUnits is the inverse scaling, used when rendering stored
// base-unit amounts back to humans.
func FromBaseUnits(units uint64, mintDecimals uint8) decimal.Decimal {
	return decimal.NewFromUint64(units).Shift(-int32(mintDecimals))
}
