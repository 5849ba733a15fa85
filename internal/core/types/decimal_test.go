package types

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuantity_UnmarshalJSON(t *testing.T) {
	cases := map[string]Quantity{
		`12.5`:      MustQuantity("12.5"),
		`"0.0001"`:  Quantity(1),
		`"-3"`:      NewQuantity(-3),
		`1.123456`:  Quantity(11234),
		`null`:      0,
	}
	for in, want := range cases {
		var q Quantity
		require.NoError(t, json.Unmarshal([]byte(in), &q), in)
		assert.Equal(t, want, q, in)
	}
}

func TestQuantity_UnmarshalJSON_RejectsExponent(t *testing.T) {
	for _, in := range []string{`1e3`, `"2.5E-1"`} {
		var q Quantity
		assert.Error(t, json.Unmarshal([]byte(in), &q), in)
	}
}

func TestQuantity_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(MustQuantity("18.25"))
	require.NoError(t, err)
	assert.Equal(t, "18.2500", string(b))
}

func TestQuantity_Mul(t *testing.T) {
	assert.Equal(t, NewQuantity(10), NewQuantity(2).Mul(NewQuantity(5)))
	assert.Equal(t, MustQuantity("0.375"), MustQuantity("0.25").Mul(MustQuantity("1.5")))
}

func TestQuantity_DecimalRoundTrip(t *testing.T) {
	q := MustQuantity("7.1234")
	assert.True(t, q.Decimal().Equal(decimal.RequireFromString("7.1234")))
	assert.Equal(t, q, NewQuantityFromDecimal(q.Decimal()))
}

func TestQuantity_FloorAndMin(t *testing.T) {
	assert.Equal(t, Quantity(0), NewQuantity(-2).Floor())
	assert.Equal(t, NewQuantity(18), MinQuantity(NewQuantity(30), NewQuantity(18)))
}

func TestAmount(t *testing.T) {
	got := Amount(MustMoney("5"), NewQuantity(10))
	assert.True(t, got.Equal(MustMoney("50")))
}
