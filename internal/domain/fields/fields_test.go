package fields

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/card-truth/internal/domain/issuer"
	"github.com/FACorreiaa/card-truth/internal/domain/statement"
)

const englishStatement = `CHASE Statement
Account ending in 4242
Statement Period: 10/05/2024 to 11/04/2024
Previous Balance: USD 900.00
Payments and Credits: USD -500.00
Purchases: USD 650.00
Fees Charged: USD 10.00
Interest Charged: USD 14.43
New Balance: USD 1,074.43
Minimum Payment Due: USD 40.00
Payment Due Date: 12/01/2024
Credit Limit: USD 5,000.00
Purchase APR: 24.99%
`

const spanishStatement = `BBVA Estado de Cuenta
Tarjeta terminación 7781
Fecha de corte: 04/11/2024
Saldo anterior: 900,00
Compras: 650,00
Pagos y créditos: 500,00
Saldo nuevo: 1.074,43
Pago mínimo: 40,00
Fecha límite de pago: 01/12/2024
Límite de crédito: 5.000,00
`

func TestExtractEnglish(t *testing.T) {
	e := New()
	det := issuer.Detection{Issuer: "Chase", Confidence: 0.95, Language: issuer.LangEnglish}
	st := e.Extract(englishStatement, det)

	assert.Equal(t, "Chase", st.Issuer)
	assert.Equal(t, "4242", st.CardLast4)
	assert.Equal(t, "USD", st.Currency)

	require.NotNil(t, st.NewBalance)
	assert.True(t, st.NewBalance.Equal(decimal.RequireFromString("1074.43")))
	assert.InDelta(t, 0.95, st.Confidence[statement.FieldNewBalance], 0.001)

	require.NotNil(t, st.MinimumDue)
	assert.True(t, st.MinimumDue.Equal(decimal.RequireFromString("40")))

	require.NotNil(t, st.PaymentsCredits)
	assert.True(t, st.PaymentsCredits.Equal(decimal.RequireFromString("500")), "payments stored as magnitude")

	require.NotNil(t, st.DueDate)
	assert.Equal(t, time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), *st.DueDate)

	require.NotNil(t, st.PeriodStart)
	require.NotNil(t, st.PeriodEnd)
	assert.Equal(t, time.Date(2024, 10, 5, 0, 0, 0, 0, time.UTC), *st.PeriodStart)
	assert.Equal(t, time.Date(2024, 11, 4, 0, 0, 0, 0, time.UTC), *st.PeriodEnd)

	require.NotNil(t, st.PurchaseAPR)
	assert.True(t, st.PurchaseAPR.Equal(decimal.RequireFromString("24.99")))
}

func TestExtractSpanishDayFirst(t *testing.T) {
	e := New()
	det := issuer.Detection{Issuer: "BBVA", Confidence: 0.95, Language: issuer.LangSpanish}
	st := e.Extract(spanishStatement, det)

	assert.Equal(t, "7781", st.CardLast4)

	require.NotNil(t, st.DueDate)
	assert.Equal(t, time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), *st.DueDate, "01/12 reads day-first in Spanish")

	require.NotNil(t, st.PeriodEnd)
	assert.Equal(t, time.Date(2024, 11, 4, 0, 0, 0, 0, time.UTC), *st.PeriodEnd)

	require.NotNil(t, st.NewBalance)
	assert.True(t, st.NewBalance.Equal(decimal.RequireFromString("1074.43")), "european grouping")

	require.NotNil(t, st.CreditLimit)
	assert.True(t, st.CreditLimit.Equal(decimal.RequireFromString("5000")))
}

func TestDerivedAvailableCreditCapped(t *testing.T) {
	e := New()
	st := e.Extract("New Balance: USD 1,000.00\nCredit Limit: USD 5,000.00\n", issuer.Detection{Language: issuer.LangEnglish})

	require.NotNil(t, st.AvailableCredit)
	assert.True(t, st.AvailableCredit.Equal(decimal.RequireFromString("4000")))
	assert.LessOrEqual(t, st.Confidence[statement.FieldAvailableCredit], 0.6)
}

func TestDerivedClosingDay(t *testing.T) {
	e := New()
	st := e.Extract("Statement Closing Date: 11/04/2024\n", issuer.Detection{Language: issuer.LangEnglish})

	assert.Equal(t, 4, st.ClosingDay)
	assert.LessOrEqual(t, st.Confidence[statement.FieldClosingDay], 0.6)
}

func TestMultipleCandidatesReduceConfidence(t *testing.T) {
	e := New()
	text := "New Balance: USD 100.00\nNew Balance: USD 200.00\n"
	st := e.Extract(text, issuer.Detection{Language: issuer.LangEnglish})

	require.NotNil(t, st.NewBalance)
	assert.True(t, st.NewBalance.Equal(decimal.RequireFromString("100")), "first occurrence wins")
	assert.InDelta(t, 0.95*0.85, st.Confidence[statement.FieldNewBalance], 0.001)
}

func TestFuzzyLabelSurvivesOCRDamage(t *testing.T) {
	e := New()
	st := e.Extract("Mnimum Payment USD 25.00\n", issuer.Detection{Language: issuer.LangEnglish})

	require.NotNil(t, st.MinimumDue)
	assert.True(t, st.MinimumDue.Equal(decimal.RequireFromString("25")))
	assert.InDelta(t, 0.7, st.Confidence[statement.FieldMinimumDue], 0.001)
}

func TestAmbiguousDateDefaultsMonthFirst(t *testing.T) {
	e := New()
	st := e.Extract("Payment Due Date: 11/02/2025\n", issuer.Detection{Language: issuer.LangAuto})

	require.NotNil(t, st.DueDate)
	assert.Equal(t, time.Date(2025, 11, 2, 0, 0, 0, 0, time.UTC), *st.DueDate)
}

func TestNoMatchLeavesFieldAbsent(t *testing.T) {
	e := New()
	st := e.Extract("nothing useful here\n", issuer.Detection{})

	assert.Nil(t, st.NewBalance)
	assert.False(t, st.Has(statement.FieldNewBalance))
	assert.NotContains(t, st.Confidence, statement.FieldNewBalance)
}
