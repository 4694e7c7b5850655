package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

// MaxAmount is the largest single amount in minor units, the processor's
// eight-digit charge limit.
const MaxAmount int64 = 99_999_999

var (
	hundred   = decimal.NewFromInt(100)
	maxAmount = decimal.NewFromInt(MaxAmount)
)

// ParseAmount converts a decimal string such as "20.00" into minor units.
func ParseAmount(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("%w: %q is negative", ErrInvalidAmount, s)
	}
	if d.Exponent() < -2 && !d.Equal(d.Round(2)) {
		return 0, fmt.Errorf("%w: %q has more than two decimal places", ErrInvalidAmount, s)
	}
	minor := d.Mul(hundred)
	if minor.GreaterThan(maxAmount) {
		return 0, fmt.Errorf("%w: %q exceeds %s", ErrInvalidAmount, s, FormatAmount(MaxAmount))
	}
	return minor.IntPart(), nil
}

// FormatAmount renders minor units as a two-decimal string.
func FormatAmount(minor int64) string {
	return decimal.New(minor, -2).StringFixed(2)
}
