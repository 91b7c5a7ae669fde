package money

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits kept in minor units.
const Scale = 2

// Tolerance is the largest difference between two amounts still treated as equal.
const Tolerance Amount = 1

var (
	ErrPrecision = errors.New("amount has more than two decimal places")
	ErrOverflow  = errors.New("amount out of range")
)

var (
	maxAmount = decimal.NewFromInt(math.MaxInt64)
	minAmount = decimal.NewFromInt(math.MinInt64)
)

// Amount is a monetary value counted in minor units (1/100 of the currency unit).
type Amount int64

func FromMinor(minor int64) Amount {
	return Amount(minor)
}

func FromDecimal(d decimal.Decimal) (Amount, error) {
	scaled := d.Shift(Scale)
	if !scaled.IsInteger() {
		return 0, ErrPrecision
	}
	if scaled.GreaterThan(maxAmount) || scaled.LessThan(minAmount) {
		return 0, ErrOverflow
	}
	return Amount(scaled.IntPart()), nil
}

func Parse(raw string) (Amount, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", raw, err)
	}
	return FromDecimal(d)
}

// MustParse is Parse for literals known to be valid; it panics otherwise.
func MustParse(raw string) Amount {
	a, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Amount) Minor() int64 {
	return int64(a)
}

func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -Scale)
}

func (a Amount) String() string {
	return a.Decimal().StringFixed(Scale)
}

func (a Amount) IsNegative() bool {
	return a < 0
}

func (a Amount) Abs() Amount {
	if a < 0 {
		return -a
	}
	return a
}

func (a Amount) Sub(b Amount) Amount {
	return a - b
}

// Times multiplies a by an integer quantity, failing instead of wrapping on overflow.
func (a Amount) Times(qty int64) (Amount, error) {
	if a == 0 || qty == 0 {
		return 0, nil
	}
	product := int64(a) * qty
	if product/qty != int64(a) || (int64(a) == -1 && qty == math.MinInt64) || (qty == -1 && int64(a) == math.MinInt64) {
		return 0, ErrOverflow
	}
	return Amount(product), nil
}

func Sum(amounts ...Amount) (Amount, error) {
	var total int64
	for _, a := range amounts {
		next := total + int64(a)
		if (a > 0 && next < total) || (a < 0 && next > total) {
			return 0, ErrOverflow
		}
		total = next
	}
	return Amount(total), nil
}

func Clamp(a, lo, hi Amount) Amount {
	if a < lo {
		return lo
	}
	if a > hi {
		return hi
	}
	return a
}

// WithinTolerance reports whether |a-b| does not exceed Tolerance.
func WithinTolerance(a, b Amount) bool {
	return a.Sub(b).Abs() <= Tolerance
}

// HintWithinTolerance compares a client supplied price of any precision
// against a stored amount.
func HintWithinTolerance(hint decimal.Decimal, stored Amount) bool {
	return hint.Sub(stored.Decimal()).Abs().LessThanOrEqual(Tolerance.Decimal())
}

// MarshalJSON writes the amount as a plain JSON number with two decimals.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (a *Amount) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	parsed, err := FromDecimal(d)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
