package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	t.Run("US grouping with symbol", func(t *testing.T) {
		d := ParseAmount("$1,074.43")
		require.NotNil(t, d)
		assert.True(t, d.Equal(decimal.RequireFromString("1074.43")), "got %s", d)
	})

	t.Run("European grouping", func(t *testing.T) {
		d := ParseAmount("1.074,43")
		require.NotNil(t, d)
		assert.True(t, d.Equal(decimal.RequireFromString("1074.43")), "got %s", d)
	})

	t.Run("bare integer", func(t *testing.T) {
		d := ParseAmount("45")
		require.NotNil(t, d)
		assert.True(t, d.Equal(decimal.NewFromInt(45)))
	})

	t.Run("same value across locales", func(t *testing.T) {
		us := ParseAmount("$1,074.43")
		eu := ParseAmount("1.074,43")
		require.NotNil(t, us)
		require.NotNil(t, eu)
		assert.True(t, us.Equal(*eu))
	})

	t.Run("parenthesized negative", func(t *testing.T) {
		d := ParseAmount("($25.00)")
		require.NotNil(t, d)
		assert.True(t, d.Equal(decimal.RequireFromString("-25")))
	})

	t.Run("trailing minus", func(t *testing.T) {
		d := ParseAmount("25.00-")
		require.NotNil(t, d)
		assert.True(t, d.IsNegative())
	})

	t.Run("lone comma decimal", func(t *testing.T) {
		d := ParseAmount("45,50")
		require.NotNil(t, d)
		assert.True(t, d.Equal(decimal.RequireFromString("45.5")))
	})

	t.Run("US thousands without decimals", func(t *testing.T) {
		d := ParseAmount("1,074")
		require.NotNil(t, d)
		assert.True(t, d.Equal(decimal.NewFromInt(1074)))
	})

	t.Run("non-numeric returns nil", func(t *testing.T) {
		assert.Nil(t, ParseAmount("due date"))
		assert.Nil(t, ParseAmount(""))
		assert.Nil(t, ParseAmount("$"))
		assert.Nil(t, ParseAmount("12a3"))
	})

	t.Run("euro symbol", func(t *testing.T) {
		d := ParseAmount("€1.234,56")
		require.NotNil(t, d)
		assert.True(t, d.Equal(decimal.RequireFromString("1234.56")))
	})
}

func TestParseAmountAs(t *testing.T) {
	t.Run("forced european", func(t *testing.T) {
		d := ParseAmountAs("1.074", true)
		require.NotNil(t, d)
		assert.True(t, d.Equal(decimal.NewFromInt(1074)))
	})

	t.Run("forced US", func(t *testing.T) {
		d := ParseAmountAs("1,074", false)
		require.NotNil(t, d)
		assert.True(t, d.Equal(decimal.NewFromInt(1074)))
	})
}

func TestDetectCurrency(t *testing.T) {
	assert.Equal(t, "USD", DetectCurrency("Balance: $1,074.43"))
	assert.Equal(t, "EUR", DetectCurrency("Saldo €300,00"))
	assert.Equal(t, "BRL", DetectCurrency("R$ 120,00"))
	assert.Equal(t, "", DetectCurrency("no currency here"))
}

func TestMoneyArithmetic(t *testing.T) {
	a := New(150000, USD)
	b := New(50000, USD)

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, int64(200000), sum.Amount())

	diff, err := a.Subtract(b)
	require.NoError(t, err)
	assert.Equal(t, int64(100000), diff.Amount())

	mixed := New(100, EUR)
	_, err = a.Add(mixed)
	assert.Error(t, err)
}

func TestMoneyJSONRoundTrip(t *testing.T) {
	a := New(207443, USD)
	data, err := a.MarshalJSON()
	require.NoError(t, err)

	var back Money
	require.NoError(t, back.UnmarshalJSON(data))
	assert.Equal(t, a.Amount(), back.Amount())
	assert.Equal(t, a.Currency(), back.Currency())
}
