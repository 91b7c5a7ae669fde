package money

import (
	"math"

	"github.com/shopspring/decimal"
)

var maxQuantity = decimal.NewFromInt(math.MaxInt32)

// Quantity is a client-supplied item count. It keeps the raw decimal so that
// fractional or negative inputs survive decoding and can be rejected with a
// precise reason instead of a generic JSON error.
type Quantity struct {
	value decimal.Decimal
}

func NewQuantity(n int64) Quantity {
	return Quantity{value: decimal.NewFromInt(n)}
}

func ParseQuantity(raw string) (Quantity, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return Quantity{}, err
	}
	return Quantity{value: d}, nil
}

// Count returns the quantity when it is a whole number in [1, MaxInt32].
func (q Quantity) Count() (int64, bool) {
	if !q.value.IsInteger() || q.value.LessThan(decimal.NewFromInt(1)) || q.value.GreaterThan(maxQuantity) {
		return 0, false
	}
	return q.value.IntPart(), true
}

func (q Quantity) String() string {
	return q.value.String()
}

func (q Quantity) MarshalJSON() ([]byte, error) {
	return []byte(q.value.String()), nil
}

func (q *Quantity) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		q.value = decimal.Zero
		return nil
	}
	return q.value.UnmarshalJSON(data)
}
