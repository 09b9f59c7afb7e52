package fields

import (
	"regexp"

	"github.com/FACorreiaa/card-truth/internal/domain/statement"
)

// MatchType describes how a rule locates its value. Exact rules anchor on
// a literal label, fuzzy rules tolerate OCR damage in the label, inferred
// values are derived from other fields after extraction.
type MatchType string

const (
	MatchExact    MatchType = "exact"
	MatchFuzzy    MatchType = "fuzzy"
	MatchInferred MatchType = "inferred"
)

// ValueKind tells the extractor how to interpret a rule's capture group.
type ValueKind int

const (
	KindAmount ValueKind = iota
	KindDate
	KindDateRange
	KindPercent
	KindText
)

// Rule is one entry in the ranked extraction table. Rules for the same
// field are tried in table order and the first one that matches wins.
// Language restricts a rule to statements in that language; empty matches
// any. Fuzzy rules carry a Label instead of a Pattern.
type Rule struct {
	Field      statement.Field
	Pattern    *regexp.Regexp
	Label      string
	Confidence float64
	Match      MatchType
	Language   string
	Kind       ValueKind
}

// Capture fragments shared by the rule table. The normalizer rewrites
// currency symbols to ISO codes before extraction, so amounts arrive as
// "USD 1,074.43" or bare "1.074,43".
const (
	amt  = `((?:USD|EUR|GBP|MXN|BRL)?\s*\(?-?\d[\d.,]*\)?-?)`
	date = `(\d{4}-\d{2}-\d{2}|\d{1,2}[/.-]\d{1,2}[/.-]\d{2,4}|[A-Za-zÀ-ÿ]{3,10}\.?\s+\d{1,2},?\s+\d{4}|\d{1,2}\s+de\s+[A-Za-zÀ-ÿ]{3,10}\s+de\s+\d{4})`
)

func re(label string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + label)
}

// DefaultRules is the ranked extraction table: English exact labels first,
// Spanish exact labels, then fuzzy fallbacks for OCR-damaged text.
func DefaultRules() []Rule {
	return []Rule{
		// new balance
		{Field: statement.FieldNewBalance, Pattern: re(`new balance(?:\s+total)?:?\s*` + amt), Confidence: 0.95, Match: MatchExact, Language: "en", Kind: KindAmount},
		{Field: statement.FieldNewBalance, Pattern: re(`(?:statement|ending|total) balance:?\s*` + amt), Confidence: 0.85, Match: MatchExact, Language: "en", Kind: KindAmount},
		{Field: statement.FieldNewBalance, Pattern: re(`saldo (?:nuevo|actual|al corte|total):?\s*` + amt), Confidence: 0.95, Match: MatchExact, Language: "es", Kind: KindAmount},
		{Field: statement.FieldNewBalance, Label: "new balance", Confidence: 0.7, Match: MatchFuzzy, Language: "en", Kind: KindAmount},

		// minimum due
		{Field: statement.FieldMinimumDue, Pattern: re(`(?:total )?minimum payment(?: due)?:?\s*` + amt), Confidence: 0.95, Match: MatchExact, Language: "en", Kind: KindAmount},
		{Field: statement.FieldMinimumDue, Pattern: re(`minimum (?:amount )?due:?\s*` + amt), Confidence: 0.9, Match: MatchExact, Language: "en", Kind: KindAmount},
		{Field: statement.FieldMinimumDue, Pattern: re(`pago m[íi]nimo(?: requerido)?:?\s*` + amt), Confidence: 0.95, Match: MatchExact, Language: "es", Kind: KindAmount},
		{Field: statement.FieldMinimumDue, Label: "minimum payment", Confidence: 0.7, Match: MatchFuzzy, Language: "en", Kind: KindAmount},

		// due date
		{Field: statement.FieldDueDate, Pattern: re(`payment due date:?\s*` + date), Confidence: 0.95, Match: MatchExact, Language: "en", Kind: KindDate},
		{Field: statement.FieldDueDate, Pattern: re(`(?:payment )?due(?: by| date)?:?\s*` + date), Confidence: 0.85, Match: MatchExact, Language: "en", Kind: KindDate},
		{Field: statement.FieldDueDate, Pattern: re(`fecha l[íi]mite de pago:?\s*` + date), Confidence: 0.95, Match: MatchExact, Language: "es", Kind: KindDate},
		{Field: statement.FieldDueDate, Pattern: re(`pagar antes del?:?\s*` + date), Confidence: 0.85, Match: MatchExact, Language: "es", Kind: KindDate},
		{Field: statement.FieldDueDate, Label: "payment due date", Confidence: 0.7, Match: MatchFuzzy, Language: "en", Kind: KindDate},

		// previous balance
		{Field: statement.FieldPreviousBalance, Pattern: re(`previous balance:?\s*` + amt), Confidence: 0.95, Match: MatchExact, Language: "en", Kind: KindAmount},
		{Field: statement.FieldPreviousBalance, Pattern: re(`saldo anterior:?\s*` + amt), Confidence: 0.95, Match: MatchExact, Language: "es", Kind: KindAmount},

		// payments and credits
		{Field: statement.FieldPaymentsCredits, Pattern: re(`payments(?:\s*(?:and|/|&)\s*(?:other\s+)?credits)?:?\s*` + amt), Confidence: 0.9, Match: MatchExact, Language: "en", Kind: KindAmount},
		{Field: statement.FieldPaymentsCredits, Pattern: re(`pagos(?: y cr[ée]ditos)?:?\s*` + amt), Confidence: 0.9, Match: MatchExact, Language: "es", Kind: KindAmount},

		// purchases
		{Field: statement.FieldPurchases, Pattern: re(`purchases(?:\s*(?:and|/|&)\s*adjustments)?:?\s*` + amt), Confidence: 0.9, Match: MatchExact, Language: "en", Kind: KindAmount},
		{Field: statement.FieldPurchases, Pattern: re(`compras(?: y cargos)?:?\s*` + amt), Confidence: 0.9, Match: MatchExact, Language: "es", Kind: KindAmount},

		// cash advances
		{Field: statement.FieldCashAdvances, Pattern: re(`cash advances?:?\s*` + amt), Confidence: 0.9, Match: MatchExact, Language: "en", Kind: KindAmount},
		{Field: statement.FieldCashAdvances, Pattern: re(`disposiciones(?: de efectivo)?:?\s*` + amt), Confidence: 0.9, Match: MatchExact, Language: "es", Kind: KindAmount},

		// fees
		{Field: statement.FieldFees, Pattern: re(`fees? charged:?\s*` + amt), Confidence: 0.9, Match: MatchExact, Language: "en", Kind: KindAmount},
		{Field: statement.FieldFees, Pattern: re(`(?:total )?fees:?\s*` + amt), Confidence: 0.8, Match: MatchExact, Language: "en", Kind: KindAmount},
		{Field: statement.FieldFees, Pattern: re(`comisiones:?\s*` + amt), Confidence: 0.9, Match: MatchExact, Language: "es", Kind: KindAmount},

		// interest
		{Field: statement.FieldInterest, Pattern: re(`interest charged:?\s*` + amt), Confidence: 0.9, Match: MatchExact, Language: "en", Kind: KindAmount},
		{Field: statement.FieldInterest, Pattern: re(`(?:total )?interest:?\s*` + amt), Confidence: 0.8, Match: MatchExact, Language: "en", Kind: KindAmount},
		{Field: statement.FieldInterest, Pattern: re(`intereses(?: del periodo)?:?\s*` + amt), Confidence: 0.9, Match: MatchExact, Language: "es", Kind: KindAmount},

		// credit limit
		{Field: statement.FieldCreditLimit, Pattern: re(`credit (?:limit|line):?\s*` + amt), Confidence: 0.9, Match: MatchExact, Language: "en", Kind: KindAmount},
		{Field: statement.FieldCreditLimit, Pattern: re(`l[íi]mite de cr[ée]dito:?\s*` + amt), Confidence: 0.9, Match: MatchExact, Language: "es", Kind: KindAmount},

		// available credit
		{Field: statement.FieldAvailableCredit, Pattern: re(`available credit(?: line)?:?\s*` + amt), Confidence: 0.9, Match: MatchExact, Language: "en", Kind: KindAmount},
		{Field: statement.FieldAvailableCredit, Pattern: re(`cr[ée]dito disponible:?\s*` + amt), Confidence: 0.9, Match: MatchExact, Language: "es", Kind: KindAmount},

		// statement period
		{Field: statement.FieldPeriodStart, Pattern: re(`(?:statement |billing )?period:?\s*` + date + `\s*(?:to|through|-|al?)\s*` + date), Confidence: 0.9, Match: MatchExact, Language: "en", Kind: KindDateRange},
		{Field: statement.FieldPeriodStart, Pattern: re(`periodo:?\s*(?:del? )?` + date + `\s*(?:al?|-)\s*` + date), Confidence: 0.9, Match: MatchExact, Language: "es", Kind: KindDateRange},
		{Field: statement.FieldPeriodEnd, Pattern: re(`(?:statement )?closing date:?\s*` + date), Confidence: 0.9, Match: MatchExact, Language: "en", Kind: KindDate},
		{Field: statement.FieldPeriodEnd, Pattern: re(`fecha de corte:?\s*` + date), Confidence: 0.9, Match: MatchExact, Language: "es", Kind: KindDate},
		{Field: statement.FieldPeriodEnd, Pattern: re(`statement date:?\s*` + date), Confidence: 0.75, Match: MatchExact, Language: "en", Kind: KindDate},

		// APRs
		{Field: statement.FieldPurchaseAPR, Pattern: re(`purchase(?:s)? (?:annual percentage rate|apr):?\s*(\d{1,2}[.,]\d{1,2})\s*%`), Confidence: 0.9, Match: MatchExact, Language: "en", Kind: KindPercent},
		{Field: statement.FieldPurchaseAPR, Pattern: re(`tasa (?:de inter[ée]s )?anual:?\s*(\d{1,2}[.,]\d{1,2})\s*%`), Confidence: 0.85, Match: MatchExact, Language: "es", Kind: KindPercent},
		{Field: statement.FieldCashAPR, Pattern: re(`cash (?:advance )?(?:annual percentage rate|apr):?\s*(\d{1,2}[.,]\d{1,2})\s*%`), Confidence: 0.9, Match: MatchExact, Language: "en", Kind: KindPercent},

		// card last four
		{Field: statement.FieldCardLast4, Pattern: re(`(?:account|card|tarjeta|cuenta)[^\d\n]{0,30}(?:ending(?: in)?|terminaci[óo]n|\*{2,}|x{2,})\s*-?(\d{4})\b`), Confidence: 0.9, Match: MatchExact, Kind: KindText},
	}
}
