package money

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKeepsExactMinorUnits(t *testing.T) {
	cases := map[string]Amount{
		"19.99":  1999,
		"0.1":    10,
		"15000":  1500000,
		"-2.50":  -250,
		" 3.00 ": 300,
	}
	for raw, want := range cases {
		got, err := Parse(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
}

func TestParseRejectsSubMinorPrecision(t *testing.T) {
	_, err := Parse("1.005")
	require.ErrorIs(t, err, ErrPrecision)
}

func TestTimesSumsWithoutDrift(t *testing.T) {
	price := MustParse("19.99")
	line, err := price.Times(3)
	require.NoError(t, err)
	assert.Equal(t, "59.97", line.String())

	total, err := Sum(line, line, line)
	require.NoError(t, err)
	assert.Equal(t, Amount(17991), total)
}

func TestTimesDetectsOverflow(t *testing.T) {
	_, err := Amount(math.MaxInt64 / 2).Times(3)
	require.ErrorIs(t, err, ErrOverflow)
}

func TestSumDetectsOverflow(t *testing.T) {
	_, err := Sum(Amount(math.MaxInt64), 1)
	require.ErrorIs(t, err, ErrOverflow)
}

func TestClampAndTolerance(t *testing.T) {
	assert.Equal(t, Amount(0), Clamp(-5, 0, 100))
	assert.Equal(t, Amount(100), Clamp(500, 0, 100))
	assert.Equal(t, Amount(42), Clamp(42, 0, 100))

	assert.True(t, WithinTolerance(1999, 2000))
	assert.False(t, WithinTolerance(1999, 2001))
	assert.True(t, HintWithinTolerance(decimal.RequireFromString("19.999"), 2000))
	assert.True(t, HintWithinTolerance(decimal.RequireFromString("19.99"), 2000))
	assert.False(t, HintWithinTolerance(decimal.RequireFromString("19.989"), 2000))
}

func TestAmountJSON(t *testing.T) {
	payload, err := json.Marshal(struct {
		Total Amount `json:"total"`
	}{Total: 5997})
	require.NoError(t, err)
	assert.JSONEq(t, `{"total":59.97}`, string(payload))

	var decoded struct {
		A Amount `json:"a"`
		B Amount `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":30000,"b":"12.5"}`), &decoded))
	assert.Equal(t, Amount(3000000), decoded.A)
	assert.Equal(t, Amount(1250), decoded.B)

	require.Error(t, json.Unmarshal([]byte(`{"a":0.001}`), &decoded))
}

func TestQuantityCount(t *testing.T) {
	var q struct {
		Qty Quantity `json:"qty"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"qty":2}`), &q))
	n, ok := q.Qty.Count()
	assert.True(t, ok)
	assert.Equal(t, int64(2), n)

	for _, raw := range []string{`{"qty":0}`, `{"qty":-1}`, `{"qty":1.5}`, `{"qty":null}`} {
		require.NoError(t, json.Unmarshal([]byte(raw), &q), raw)
		_, ok := q.Qty.Count()
		assert.False(t, ok, raw)
	}
}
