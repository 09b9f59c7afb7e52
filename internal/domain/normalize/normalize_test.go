package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyOCRFixes(t *testing.T) {
	n := New()

	res := n.Apply("New Bal ance: $1,074.43\nMini mum Payment Due: $35.00")
	assert.Contains(t, res.Text, "Balance")
	assert.Contains(t, res.Text, "Minimum Payment")
	assert.Contains(t, res.Applied, "ocr_confusion_fixes")

	// Intact words are left alone.
	res = n.Apply("New Balance: USD 1,074.43")
	assert.NotContains(t, res.Applied, "ocr_confusion_fixes")
}

func TestApplyCurrencyToISO(t *testing.T) {
	n := New()

	res := n.Apply("Saldo nuevo: $1,074.43 y límite R$2.000,00")
	assert.Contains(t, res.Text, "USD 1,074.43")
	assert.Contains(t, res.Text, "BRL 2.000,00")
	assert.NotContains(t, res.Text, "$")
	assert.Contains(t, res.Applied, "currency_to_iso")
}

func TestApplyStripsPageLines(t *testing.T) {
	n := New()

	text := strings.Join([]string{
		"New Balance: USD 1,074.43",
		"Page 2 of 5",
		"Página 3 de 5",
		"----------",
		"Minimum Payment Due: USD 35.00",
	}, "\n")

	res := n.Apply(text)
	assert.NotContains(t, res.Text, "Page 2")
	assert.NotContains(t, res.Text, "Página 3")
	assert.NotContains(t, res.Text, "----------")
	assert.Contains(t, res.Text, "Minimum Payment Due")
	assert.Contains(t, res.Applied, "header_footer_strip")
}

func TestApplyHyphenationRepair(t *testing.T) {
	n := New()

	res := n.Apply("your state-\nment period ended")
	assert.Contains(t, res.Text, "statement period")
	assert.Contains(t, res.Applied, "hyphenation_repair")
}

func TestApplyColumnCollapse(t *testing.T) {
	n := New()

	res := n.Apply("Payment Due Date\nMarch 15, 2025\n")
	assert.Contains(t, res.Text, "Payment Due Date March 15, 2025")
	assert.Contains(t, res.Applied, "column_collapse")
}

func TestApplyWhitespaceCollapse(t *testing.T) {
	n := New()

	res := n.Apply("New Balance:      USD 1,074.43\n\n\n\nMinimum:  USD 25.00")
	assert.Contains(t, res.Text, "New Balance: USD 1,074.43")
	assert.NotContains(t, res.Text, "\n\n\n")
	assert.Contains(t, res.Applied, "whitespace_collapse")
}

func TestApplyIsPure(t *testing.T) {
	n := New()
	input := "New Bal ance: $1,074.43"

	first := n.Apply(input)
	second := n.Apply(input)
	require.Equal(t, first.Text, second.Text)
	require.Equal(t, first.Applied, second.Applied)
}

func TestDescribe(t *testing.T) {
	n := New()
	res := n.Apply("unchanged")
	assert.Equal(t, "no transforms applied", res.Describe())

	res = n.Apply("Bal ance due")
	assert.Contains(t, res.Describe(), "ocr_confusion_fixes")
}
